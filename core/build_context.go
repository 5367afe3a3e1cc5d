package core

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/gocrud/hostbridge/config"
	"github.com/gocrud/hostbridge/hosting"
	"github.com/gocrud/hostbridge/logging"
	"github.com/gocrud/hostbridge/services"
)

// Configurator 在容器构建前扩展应用程序
type Configurator func(*BuildContext)

// HostedServiceFactory 在容器构建后以根服务提供者创建托管服务
type HostedServiceFactory func(sp services.ServiceProvider) (hosting.HostedService, error)

// BuildContext 配置器可见的构建状态
type BuildContext struct {
	services      *services.ServiceCollection
	configuration config.Configuration
	logger        logging.Logger
	environment   Environment

	mu              sync.Mutex
	hostedServices  []hosting.HostedService
	hostedFactories []HostedServiceFactory
	cleanups        []cleanup
}

type cleanup struct {
	key string
	fn  func()
}

func newBuildContext(sc *services.ServiceCollection, cfg config.Configuration, logger logging.Logger, env Environment) *BuildContext {
	return &BuildContext{
		services:      sc,
		configuration: cfg,
		logger:        logger,
		environment:   env,
	}
}

func (c *BuildContext) Services() *services.ServiceCollection { return c.services }

func (c *BuildContext) GetLogger() logging.Logger { return c.logger }

func (c *BuildContext) GetConfiguration() config.Configuration { return c.configuration }

func (c *BuildContext) GetEnvironment() Environment { return c.environment }

// AddHostedService 添加已创建的托管服务实例
func (c *BuildContext) AddHostedService(service hosting.HostedService) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hostedServices = append(c.hostedServices, service)
}

// AddHostedServiceFactory 添加需要从容器解析依赖的托管服务
func (c *BuildContext) AddHostedServiceFactory(factory HostedServiceFactory) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hostedFactories = append(c.hostedFactories, factory)
}

// SetCleanup 注册在托管服务停止后、容器释放前执行的清理函数。
// 相同 key 的清理函数会被替换；多个清理函数按注册的逆序执行。
func (c *BuildContext) SetCleanup(key string, fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.cleanups {
		if c.cleanups[i].key == key {
			c.cleanups[i].fn = fn
			return
		}
	}
	c.cleanups = append(c.cleanups, cleanup{key: key, fn: fn})
}

func (c *BuildContext) takeCleanups() []cleanup {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.cleanups
	c.cleanups = nil
	return out
}

// hostedServicesFor 按以下顺序合并托管服务：直接添加的实例、工厂创建的实例、容器中注册的 hosting.HostedService
func (c *BuildContext) hostedServicesFor(sp services.ServiceProvider) ([]hosting.HostedService, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := append([]hosting.HostedService(nil), c.hostedServices...)
	for i, factory := range c.hostedFactories {
		hs, err := factory(sp)
		if err != nil {
			return nil, fmt.Errorf("core: hosted service factory #%d: %w", i, err)
		}
		out = append(out, hs)
	}

	registered, err := services.GetAll[hosting.HostedService](sp)
	if err != nil {
		return nil, fmt.Errorf("core: resolve hosted services: %w", err)
	}
	return append(out, registered...), nil
}

// ConfigureOptions 注册 Option、OptionSnapshot 和 OptionMonitor
// 使用示例: core.ConfigureOptions[AppSetting](ctx, "app")
func ConfigureOptions[T any](ctx *BuildContext, section string) {
	config.AddOptions[T](ctx.services, ctx.configuration, section)
	ctx.logger.Debug("Options bound",
		logging.Field{Key: "type", Value: reflect.TypeFor[T]().String()},
		logging.Field{Key: "section", Value: section})
}
