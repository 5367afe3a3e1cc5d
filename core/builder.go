package core

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gocrud/hostbridge/bridge"
	"github.com/gocrud/hostbridge/config"
	"github.com/gocrud/hostbridge/hosting"
	"github.com/gocrud/hostbridge/logging"
	"github.com/gocrud/hostbridge/services"
)

const defaultShutdownTimeout = 30 * time.Second

// ApplicationBuilder 收集配置源、日志提供者、服务注册和配置器，
// TryBuild 时按固定顺序组装出 Application
type ApplicationBuilder struct {
	mu sync.Mutex

	environment     string
	configBuilder   *config.ConfigurationBuilder
	loggingBuilder  *logging.LoggingBuilder
	shutdownTimeout time.Duration
	verify          bool

	// configurators 先于 serviceConfigurators 执行
	configurators        []Configurator
	serviceConfigurators []func(*services.ServiceCollection)
}

// NewApplicationBuilder 创建应用程序构建器
func NewApplicationBuilder() *ApplicationBuilder {
	return &ApplicationBuilder{
		environment:     environmentFromProcess(),
		configBuilder:   config.NewConfigurationBuilder(),
		loggingBuilder:  logging.NewLoggingBuilder(),
		shutdownTimeout: defaultShutdownTimeout,
	}
}

// UseEnvironment 覆盖 HOSTBRIDGE_ENVIRONMENT
func (b *ApplicationBuilder) UseEnvironment(env string) *ApplicationBuilder {
	b.mu.Lock()
	b.environment = env
	b.mu.Unlock()
	return b
}

// UseShutdownTimeout 设置停止托管服务的最长等待时间
func (b *ApplicationBuilder) UseShutdownTimeout(timeout time.Duration) *ApplicationBuilder {
	b.mu.Lock()
	b.shutdownTimeout = timeout
	b.mu.Unlock()
	return b
}

// UseVerification 容器构建后立即解析每个服务一次
func (b *ApplicationBuilder) UseVerification() *ApplicationBuilder {
	b.mu.Lock()
	b.verify = true
	b.mu.Unlock()
	return b
}

func (b *ApplicationBuilder) ConfigureConfiguration(configure func(*config.ConfigurationBuilder)) *ApplicationBuilder {
	if configure != nil {
		b.mu.Lock()
		configure(b.configBuilder)
		b.mu.Unlock()
	}
	return b
}

func (b *ApplicationBuilder) ConfigureLogging(configure func(*logging.LoggingBuilder)) *ApplicationBuilder {
	if configure != nil {
		b.mu.Lock()
		configure(b.loggingBuilder)
		b.mu.Unlock()
	}
	return b
}

// ConfigureServices 直接向服务集合注册描述符
func (b *ApplicationBuilder) ConfigureServices(configure func(*services.ServiceCollection)) *ApplicationBuilder {
	if configure != nil {
		b.mu.Lock()
		b.serviceConfigurators = append(b.serviceConfigurators, configure)
		b.mu.Unlock()
	}
	return b
}

// Configure 添加配置器，参数可以是 Configurator 或 func(*BuildContext)
func (b *ApplicationBuilder) Configure(configurators ...any) *ApplicationBuilder {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, c := range configurators {
		switch fn := c.(type) {
		case Configurator:
			b.configurators = append(b.configurators, fn)
		case func(*BuildContext):
			b.configurators = append(b.configurators, fn)
		default:
			panic(fmt.Sprintf("core: Configure expects func(*BuildContext), got %T", c))
		}
	}
	return b
}

// AddExtension 按扩展实现的接口拆分为服务注册和配置器
func (b *ApplicationBuilder) AddExtension(ext Extension) *ApplicationBuilder {
	sc, ac := splitExtension(ext)

	b.mu.Lock()
	defer b.mu.Unlock()
	if sc != nil {
		b.serviceConfigurators = append(b.serviceConfigurators, sc.ConfigureServices)
	}
	if ac != nil {
		b.configurators = append(b.configurators, ac.ConfigureBuilder)
	}
	return b
}

// AddOptions 将配置节 section 绑定为 T 的三种选项
// 使用示例: core.AddOptions[AppSetting](builder, "app")
func AddOptions[T any](b *ApplicationBuilder, section string) *ApplicationBuilder {
	return b.Configure(func(ctx *BuildContext) {
		ConfigureOptions[T](ctx, section)
	})
}

// AddTask 把一个函数作为托管服务运行，ctx 在应用停止时取消
func (b *ApplicationBuilder) AddTask(task func(ctx context.Context) error) *ApplicationBuilder {
	return b.Configure(func(ctx *BuildContext) {
		ctx.AddHostedService(taskService(task))
	})
}

type taskService func(ctx context.Context) error

func (t taskService) Name() string                    { return "task" }
func (t taskService) Start(ctx context.Context) error { return t(ctx) }
func (t taskService) Stop(context.Context) error      { return nil }

// Build 与 TryBuild 相同，失败时写入 Fatal 日志并退出进程
func (b *ApplicationBuilder) Build() Application {
	app, err := b.TryBuild()
	if err != nil {
		logging.NewLogger().Fatal("Failed to build application",
			logging.Field{Key: "error", Value: err})
	}
	return app
}

// TryBuild 依次构建配置、日志、服务集合和容器，最后创建托管服务
func (b *ApplicationBuilder) TryBuild() (Application, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	cfg, err := b.configBuilder.BuildReloadable()
	if err != nil {
		return nil, fmt.Errorf("core: build configuration: %w", err)
	}

	loggerFactory := b.loggingBuilder.Build()
	logger := loggerFactory.CreateLogger("Application")
	env := NewEnvironment(b.environment)
	logger.Info("Building application", logging.Field{Key: "environment", Value: env.Name()})

	sc := newRootCollection(cfg, loggerFactory, logger, env)
	ctx := newBuildContext(sc, cfg, logger, env)
	for _, configure := range b.configurators {
		configure(ctx)
	}
	for _, configure := range b.serviceConfigurators {
		configure(sc)
	}

	provider, err := b.buildProvider(sc, loggerFactory)
	if err != nil {
		logger.Error("Failed to build service provider", logging.Field{Key: "error", Value: err})
		return nil, err
	}
	logger.Info("Service provider ready", logging.Field{Key: "services", Value: sc.Len()})

	hosted, err := ctx.hostedServicesFor(provider)
	if err != nil {
		if closeErr := provider.Close(); closeErr != nil {
			logger.Warn("Failed to dispose services", logging.Field{Key: "error", Value: closeErr})
		}
		return nil, err
	}

	return &application{
		provider:        provider,
		configuration:   cfg,
		loggerFactory:   loggerFactory,
		logger:          logger,
		environment:     env,
		hostedServices:  hosted,
		cleanups:        ctx.takeCleanups(),
		shutdownTimeout: b.shutdownTimeout,
		stopCh:          make(chan struct{}),
	}, nil
}

// newRootCollection 预先注册配置、日志和环境
func newRootCollection(cfg config.ReloadableConfiguration, factory logging.LoggerFactory, logger logging.Logger, env Environment) *services.ServiceCollection {
	sc := services.NewServiceCollection()
	config.AddConfiguration(sc, cfg)
	services.AddInstance[config.ReloadableConfiguration](sc, cfg)
	services.AddInstance[logging.LoggerFactory](sc, factory)
	services.AddInstance[logging.Logger](sc, logger)
	services.AddInstance[Environment](sc, env)
	return sc
}

func (b *ApplicationBuilder) buildProvider(sc *services.ServiceCollection, factory logging.LoggerFactory) (*bridge.Provider, error) {
	opts := []bridge.Option{bridge.WithLogger(factory.CreateLogger("Container"))}
	if b.verify {
		opts = append(opts, bridge.WithVerify())
	}
	return bridge.UseContainer(sc, opts...)
}

var _ hosting.Named = taskService(nil)
