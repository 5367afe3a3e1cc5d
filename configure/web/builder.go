package web

import (
	"fmt"
	"net/http"
	"sync/atomic"

	"github.com/gin-gonic/gin"
	"github.com/gocrud/hostbridge/logging"
	"github.com/gocrud/hostbridge/services"
)

// Controller 控制器在主机构建时挂载自己的路由。
// 通过 AddController 注册的控制器是单例；需要按请求创建的控制器请使用 Action。
type Controller interface {
	MountRoutes(router gin.IRouter)
}

// Builder 基于 gin 的 Web 主机构建器
type Builder struct {
	logger      logging.Logger
	port        int
	engine      *gin.Engine
	scopes      atomic.Pointer[scopeFactoryRef]
	controllers []func(*services.ServiceCollection)
}

type scopeFactoryRef struct {
	factory services.ServiceScopeFactory
}

// NewBuilder 默认端口 8080，gin 处于 release 模式
func NewBuilder(logger logging.Logger) *Builder {
	gin.SetMode(gin.ReleaseMode)

	b := &Builder{
		logger: logger,
		port:   8080,
		engine: gin.New(),
	}

	// 默认中间件：恢复 panic、请求作用域、请求日志
	b.engine.Use(gin.Recovery(), b.scopeMiddleware(), requestLogger(logger))
	return b
}

// UsePort 设置端口，0 表示由系统分配
func (b *Builder) UsePort(port int) *Builder {
	b.port = port
	return b
}

// AddController 将 T 注册为单例控制器，构建主机时挂载其路由
func AddController[T Controller](b *Builder) *Builder {
	b.controllers = append(b.controllers, func(sc *services.ServiceCollection) {
		services.AddSingleton[Controller, T](sc)
	})
	return b
}

func (b *Builder) handle(method, path string, handlers []gin.HandlerFunc) *Builder {
	b.engine.Handle(method, path, handlers...)
	return b
}

func (b *Builder) Get(path string, handlers ...gin.HandlerFunc) *Builder {
	return b.handle(http.MethodGet, path, handlers)
}

func (b *Builder) Post(path string, handlers ...gin.HandlerFunc) *Builder {
	return b.handle(http.MethodPost, path, handlers)
}

func (b *Builder) Put(path string, handlers ...gin.HandlerFunc) *Builder {
	return b.handle(http.MethodPut, path, handlers)
}

func (b *Builder) Delete(path string, handlers ...gin.HandlerFunc) *Builder {
	return b.handle(http.MethodDelete, path, handlers)
}

func (b *Builder) Patch(path string, handlers ...gin.HandlerFunc) *Builder {
	return b.handle(http.MethodPatch, path, handlers)
}

// Any 为所有常用方法注册同一组处理器
func (b *Builder) Any(path string, handlers ...gin.HandlerFunc) *Builder {
	b.engine.Any(path, handlers...)
	return b
}

// Group 路由组共享请求作用域中间件
func (b *Builder) Group(prefix string, handlers ...gin.HandlerFunc) *gin.RouterGroup {
	return b.engine.Group(prefix, handlers...)
}

// Use 追加全局中间件，它们在请求作用域建立之后执行
func (b *Builder) Use(middleware ...gin.HandlerFunc) *Builder {
	b.engine.Use(middleware...)
	return b
}

func (b *Builder) Static(prefix, dir string) *Builder {
	b.engine.Static(prefix, dir)
	return b
}

func (b *Builder) StaticFS(prefix string, fs http.FileSystem) *Builder {
	b.engine.StaticFS(prefix, fs)
	return b
}

func (b *Builder) NoRoute(handlers ...gin.HandlerFunc) *Builder {
	b.engine.NoRoute(handlers...)
	return b
}

// SetMode 透传给 gin.SetMode，影响整个进程
func (b *Builder) SetMode(mode string) *Builder {
	gin.SetMode(mode)
	return b
}

// Engine 暴露底层 gin.Engine
func (b *Builder) Engine() *gin.Engine {
	return b.engine
}

// RegisterServices 把通过 AddController 声明的控制器写入服务集合
func (b *Builder) RegisterServices(sc *services.ServiceCollection) {
	for _, register := range b.controllers {
		register(sc)
	}
}

// Build 从根服务提供者构建 Web 主机：绑定作用域工厂并挂载所有已注册控制器的路由
func (b *Builder) Build(sp services.ServiceProvider) (*Host, error) {
	scopes, err := services.Get[services.ServiceScopeFactory](sp)
	if err != nil {
		return nil, fmt.Errorf("web: resolve scope factory: %w", err)
	}
	b.scopes.Store(&scopeFactoryRef{factory: scopes})

	controllers, err := services.GetAll[Controller](sp)
	if err != nil {
		return nil, fmt.Errorf("web: resolve controllers: %w", err)
	}
	for _, c := range controllers {
		c.MountRoutes(b.engine)
		b.logger.Debug("Controller mapped",
			logging.Field{Key: "controller", Value: fmt.Sprintf("%T", c)})
	}

	return newHost(b.port, b.engine, b.logger), nil
}
