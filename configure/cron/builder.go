package cron

import (
	"context"
	"fmt"
	"reflect"

	"github.com/gocrud/hostbridge/logging"
	"github.com/gocrud/hostbridge/services"
)

// Job 在独立作用域中执行的任务
type Job interface {
	Run(ctx context.Context) error
}

// Builder Cron 配置构建器
type Builder struct {
	enableSeconds    bool
	enableCronLogger bool
	location         string
	jobs             []jobDefinition
	registrations    []func(*services.ServiceCollection)
}

// jobDefinition 任务定义
type jobDefinition struct {
	spec    string
	name    string
	handler any // func()、依赖注入的函数或 scopedJob
}

// scopedJob 每次运行从作用域解析 Job
type scopedJob struct {
	jobType reflect.Type
}

var (
	contextType = reflect.TypeOf((*context.Context)(nil)).Elem()
	errorType   = reflect.TypeOf((*error)(nil)).Elem()
)

// NewBuilder 创建 Cron 构建器
func NewBuilder() *Builder {
	return &Builder{
		location: "UTC",
		jobs:     make([]jobDefinition, 0),
	}
}

// WithSeconds 启用秒级精度
func (b *Builder) WithSeconds() *Builder {
	b.enableSeconds = true
	return b
}

// WithLocation 设置时区
func (b *Builder) WithLocation(location string) *Builder {
	b.location = location
	return b
}

// EnableCronLogger 启用 cron 库的内部调度日志
func (b *Builder) EnableCronLogger() *Builder {
	b.enableCronLogger = true
	return b
}

// AddJob 添加简单任务（无依赖注入）
func (b *Builder) AddJob(spec, name string, handler func()) *Builder {
	b.jobs = append(b.jobs, jobDefinition{spec: spec, name: name, handler: handler})
	return b
}

// AddJobWithDI 添加带依赖注入的任务。
// 每次运行都会创建新的作用域，handler 的参数从该作用域解析；
// context.Context 参数得到作用域的上下文，返回的 error 会被记录。
//
// 示例：
//
//	builder.AddJobWithDI("0 */5 * * * *", "sync-data", func(ctx context.Context, svc *DataService) error {
//	    return svc.Sync(ctx)
//	})
func (b *Builder) AddJobWithDI(spec, name string, handler any) *Builder {
	b.jobs = append(b.jobs, jobDefinition{spec: spec, name: name, handler: handler})
	return b
}

// AddScopedJob 将 T 注册为 Scoped 服务，每次运行在新的作用域中解析并执行
func AddScopedJob[T Job](b *Builder, spec, name string) *Builder {
	b.registrations = append(b.registrations, func(sc *services.ServiceCollection) {
		services.AddScoped[T, T](sc)
	})
	b.jobs = append(b.jobs, jobDefinition{
		spec:    spec,
		name:    name,
		handler: scopedJob{jobType: reflect.TypeOf((*T)(nil)).Elem()},
	})
	return b
}

// RegisterServices 把作用域任务写入服务集合
func (b *Builder) RegisterServices(sc *services.ServiceCollection) {
	for _, register := range b.registrations {
		register(sc)
	}
}

// build 以作用域工厂构建 cron 服务
func (b *Builder) build(scopes services.ServiceScopeFactory, logger logging.Logger) (*service, error) {
	cronSvc, err := newService(logger, schedulerSettings{
		location: b.location,
		seconds:  b.enableSeconds,
		verbose:  b.enableCronLogger,
	})
	if err != nil {
		return nil, err
	}

	for _, job := range b.jobs {
		run, err := b.wrap(scopes, logger, job.handler)
		if err != nil {
			return nil, fmt.Errorf("failed to wrap job '%s': %w", job.name, err)
		}
		if err := cronSvc.addJob(job.spec, job.name, run); err != nil {
			return nil, err
		}
	}

	return cronSvc, nil
}

func (b *Builder) wrap(scopes services.ServiceScopeFactory, logger logging.Logger, handler any) (func(), error) {
	switch h := handler.(type) {
	case func():
		return h, nil
	case scopedJob:
		return inScope(scopes, logger, func(ctx context.Context, sp services.ServiceProvider) error {
			v, err := sp.GetService(h.jobType)
			if err != nil {
				return err
			}
			return v.(Job).Run(ctx)
		}), nil
	default:
		return wrapHandlerWithDI(scopes, logger, handler)
	}
}

// inScope 为每次运行创建作用域，运行结束后释放
func inScope(scopes services.ServiceScopeFactory, logger logging.Logger, run func(context.Context, services.ServiceProvider) error) func() {
	return func() {
		scope := scopes.CreateScope(context.Background())
		defer scope.Dispose()

		if err := run(scope.Context(), scope.ServiceProvider()); err != nil {
			logger.Error("Cron job failed",
				logging.Field{Key: "error", Value: err.Error()})
		}
	}
}

// wrapHandlerWithDI 包装处理器，参数从每次运行的作用域中解析
func wrapHandlerWithDI(scopes services.ServiceScopeFactory, logger logging.Logger, handler any) (func(), error) {
	handlerValue := reflect.ValueOf(handler)
	handlerType := handlerValue.Type()

	if handlerType.Kind() != reflect.Func {
		return nil, fmt.Errorf("handler must be a function, got %v", handlerType.Kind())
	}
	if handlerType.NumOut() > 1 || (handlerType.NumOut() == 1 && handlerType.Out(0) != errorType) {
		return nil, fmt.Errorf("handler may only return error, got %v", handlerType)
	}

	return inScope(scopes, logger, func(ctx context.Context, sp services.ServiceProvider) error {
		args := make([]reflect.Value, handlerType.NumIn())
		for i := range args {
			paramType := handlerType.In(i)
			if paramType == contextType {
				args[i] = reflect.ValueOf(ctx)
				continue
			}

			instance, err := sp.GetService(paramType)
			if err != nil {
				return fmt.Errorf("resolve parameter %d (%v): %w", i, paramType, err)
			}
			if instance == nil {
				args[i] = reflect.Zero(paramType)
			} else {
				args[i] = reflect.ValueOf(instance)
			}
		}

		out := handlerValue.Call(args)
		if len(out) == 1 && !out[0].IsNil() {
			return out[0].Interface().(error)
		}
		return nil
	}), nil
}
