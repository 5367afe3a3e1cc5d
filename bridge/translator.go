package bridge

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/gocrud/hostbridge/di"
	"github.com/gocrud/hostbridge/logging"
	"github.com/gocrud/hostbridge/services"
)

type options struct {
	logger           logging.Logger
	verify           bool
	containerOptions []di.ContainerOption
}

// Option 配置 UseContainer
type Option func(*options)

// WithLogger 设置翻译与作用域释放时使用的日志记录器
func WithLogger(logger logging.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithVerify 构建后立即尝试创建每个已注册服务
func WithVerify() Option {
	return func(o *options) {
		o.verify = true
	}
}

// WithContainerOptions 追加底层容器选项，它们在默认选项之后应用
func WithContainerOptions(opts ...di.ContainerOption) Option {
	return func(o *options) {
		o.containerOptions = append(o.containerOptions, opts...)
	}
}

// UseContainer 把服务集合中的全部描述符注册到新的容器中，返回进程级的服务提供者。
//
// 每个描述符按注册顺序翻译；随后按服务类型分组，为每组注册一个集合，
// 使 "[]T" 能解析出该契约的全部实现。
func UseContainer(sc *services.ServiceCollection, opts ...Option) (*Provider, error) {
	o := &options{logger: logging.Nop()}
	for _, opt := range opts {
		opt(o)
	}

	scopes := &scopeFactory{logger: o.logger}
	containerOpts := []di.ContainerOption{
		di.WithAllowOverriding(true),
		di.WithResolveUnregisteredCollections(true),
		di.WithScopedLifestyle(scopes),
		di.WithTypeCloser(genericCloser{registry: sc.Generics()}),
	}
	container := di.NewContainer(append(containerOpts, o.containerOptions...)...)
	scopes.container = container

	t := &translator{container: container, logger: o.logger}
	descriptors := sc.Descriptors()
	for _, d := range descriptors {
		if err := t.register(d); err != nil {
			return nil, err
		}
	}
	if err := t.registerCollections(descriptors); err != nil {
		return nil, err
	}

	provider := &Provider{container: container, scopes: scopes}
	if err := container.RegisterInstance(reflect.TypeOf((*services.ServiceProvider)(nil)).Elem(), services.ServiceProvider(provider), di.ScopeSingleton); err != nil {
		return nil, err
	}
	if err := container.RegisterInstance(reflect.TypeOf((*services.ServiceScopeFactory)(nil)).Elem(), services.ServiceScopeFactory(scopes), di.ScopeSingleton); err != nil {
		return nil, err
	}
	if err := container.RegisterInstance(reflect.TypeOf(provider), provider, di.ScopeSingleton); err != nil {
		return nil, err
	}

	if err := container.Build(); err != nil {
		return nil, err
	}
	if o.verify {
		if err := container.Verify(); err != nil {
			return nil, err
		}
	}

	o.logger.Debug("Service collection translated",
		logging.Field{Key: "descriptors", Value: len(descriptors)})
	return provider, nil
}

// MustUseContainer 与 UseContainer 相同，出错时 panic
func MustUseContainer(sc *services.ServiceCollection, opts ...Option) *Provider {
	p, err := UseContainer(sc, opts...)
	if err != nil {
		panic(err)
	}
	return p
}

type translator struct {
	container di.Container
	logger    logging.Logger
}

func (t *translator) register(d *services.ServiceDescriptor) error {
	if d == nil || d.ServiceType.IsZero() {
		return fmt.Errorf("%w: missing service type", ErrInvalidDescriptor)
	}
	scope, err := toScope(d.Lifetime)
	if err != nil {
		return fmt.Errorf("%s: %w", d.ServiceType, err)
	}

	service := d.ServiceType
	switch {
	case d.HasImplementationType():
		err = t.registerType(service, d.ImplementationType, scope)
	case service.IsGenericTypeDefinition():
		return fmt.Errorf("%w: open generic %s requires an implementation type", ErrInvalidDescriptor, service)
	case d.ImplementationFactory != nil:
		err = t.container.RegisterFactory(service.Type(), adaptFactory(d.ImplementationFactory), scope)
	default:
		err = t.container.RegisterInstance(service.Type(), d.ImplementationInstance, scope)
	}
	if err != nil {
		return descriptorError(d, err)
	}

	t.logger.Debug("Registered service",
		logging.Field{Key: "descriptor", Value: d.String()})
	return nil
}

func (t *translator) registerType(service, impl services.TypeKey, scope di.ScopeType) error {
	switch {
	case service.IsGenericTypeDefinition() && impl.IsGenericTypeDefinition():
		return t.container.RegisterOpenGeneric(toOpen(service.Generic()), toOpen(impl.Generic()), scope)
	case service.IsGenericTypeDefinition():
		return t.container.AppendOpenGeneric(toOpen(service.Generic()), impl.Type(), scope)
	case impl.IsGenericTypeDefinition():
		return fmt.Errorf("%w: closed service %s cannot use open implementation %s", di.ErrInvalidRegistration, service, impl)
	}

	if err := t.container.Register(service.Type(), impl.Type(), scope); err != nil {
		return err
	}
	// 实现类型自身也可解析，与契约共享实例
	return t.container.Register(impl.Type(), impl.Type(), scope)
}

// descriptorError 仅把容器拒绝的注册报告为 ErrInvalidDescriptor，
// 其余容器错误（如 ErrAlreadyRegistered）原样保留。
func descriptorError(subject any, err error) error {
	if errors.Is(err, di.ErrInvalidRegistration) {
		return fmt.Errorf("%w: %v: %w", ErrInvalidDescriptor, subject, err)
	}
	return fmt.Errorf("%v: %w", subject, err)
}

// adaptFactory 让描述符工厂拿到当前解析器（作用域或根容器）对应的服务提供者
func adaptFactory(f services.Factory) di.Factory {
	return func(r di.Resolver) (any, error) {
		return f(&resolverProvider{resolver: r})
	}
}

type group struct {
	service services.TypeKey
	members []*services.ServiceDescriptor
}

// groupByService 按服务类型分组，保持首次出现的顺序
func groupByService(descriptors []*services.ServiceDescriptor) []*group {
	var groups []*group
	index := make(map[services.TypeKey]*group)
	for _, d := range descriptors {
		g, ok := index[d.ServiceType]
		if !ok {
			g = &group{service: d.ServiceType}
			index[d.ServiceType] = g
			groups = append(groups, g)
		}
		g.members = append(g.members, d)
	}
	return groups
}

func (t *translator) registerCollections(descriptors []*services.ServiceDescriptor) error {
	for _, g := range groupByService(descriptors) {
		// 集合的生命周期取第一个成员的
		scope, err := toScope(g.members[0].Lifetime)
		if err != nil {
			return err
		}

		if g.service.IsGenericTypeDefinition() {
			err = t.registerOpenCollection(g)
		} else {
			err = t.registerClosedCollection(g, scope)
		}
		if err != nil {
			return descriptorError(fmt.Sprintf("collection of %s", g.service), err)
		}
	}
	return nil
}

func (t *translator) registerOpenCollection(g *group) error {
	items := make([]di.CollectionItem, 0, len(g.members))
	for _, d := range g.members {
		if !d.HasImplementationType() {
			continue
		}
		scope, err := toScope(d.Lifetime)
		if err != nil {
			return err
		}
		item := di.CollectionItem{Scope: scope}
		if d.ImplementationType.IsGenericTypeDefinition() {
			item.Open = toOpen(d.ImplementationType.Generic())
		} else {
			item.Type = d.ImplementationType.Type()
		}
		items = append(items, item)
	}
	if len(items) == 0 {
		return nil
	}
	return t.container.RegisterCollection(toOpen(g.service.Generic()), items...)
}

func (t *translator) registerClosedCollection(g *group, scope di.ScopeType) error {
	var impls []reflect.Type
	for _, d := range g.members {
		if d.HasImplementationType() {
			impls = append(impls, d.ImplementationType.Type())
		}
	}
	if len(impls) == 0 {
		return nil
	}

	sliceType := reflect.SliceOf(g.service.Type())
	return t.container.RegisterFactory(sliceType, func(r di.Resolver) (any, error) {
		out := reflect.MakeSlice(sliceType, 0, len(impls))
		for _, impl := range impls {
			v, err := r.Get(impl)
			if err != nil {
				return nil, err
			}
			out = reflect.Append(out, reflect.ValueOf(v))
		}
		return out.Interface(), nil
	}, scope)
}
