package bridge

import (
	"context"
	"reflect"

	"github.com/gocrud/hostbridge/di"
	"github.com/gocrud/hostbridge/logging"
	"github.com/gocrud/hostbridge/services"
)

// scopeFactory 用容器的嵌套作用域实现 services.ServiceScopeFactory，
// 同时作为容器的默认 ScopedLifestyle。
type scopeFactory struct {
	container di.Container
	logger    logging.Logger
}

// CreateScope 总是开启一个新的嵌套作用域，它在返回句柄的 Context() 中成为当前作用域。
func (f *scopeFactory) CreateScope(ctx context.Context) services.ServiceScope {
	return newServiceScope(f.container.BeginScope(ctx), true, f.logger)
}

// GetOrCreateScope 返回 ctx 中的当前作用域；没有时创建一个，并返回以它为当前作用域的上下文。
// 复用的作用域不归返回的句柄所有，Dispose 不会释放它。
func (f *scopeFactory) GetOrCreateScope(ctx context.Context) (services.ServiceScope, context.Context) {
	if s, ok := f.CurrentScope(ctx); ok && !s.Disposed() {
		return newServiceScope(s, false, f.logger), ctx
	}
	scope := f.CreateScope(ctx)
	return scope, scope.Context()
}

// CurrentScope 实现 di.ScopedLifestyle，只返回 ctx 中已有的作用域。
// 容器从不隐式创建作用域：ctx 中没有作用域时，从根提供者解析 Scoped 服务得到 di.ErrNoActiveScope。
func (f *scopeFactory) CurrentScope(ctx context.Context) (di.Scope, bool) {
	return di.ScopeFromContext(ctx)
}

// serviceScope 把 di.Scope 暴露为 services.ServiceScope
type serviceScope struct {
	scope    di.Scope
	provider *resolverProvider
	owned    bool
	logger   logging.Logger
}

func newServiceScope(s di.Scope, owned bool, logger logging.Logger) *serviceScope {
	return &serviceScope{
		scope:    s,
		provider: &resolverProvider{resolver: s},
		owned:    owned,
		logger:   logger,
	}
}

func (s *serviceScope) ServiceProvider() services.ServiceProvider {
	return s.provider
}

func (s *serviceScope) Context() context.Context {
	return s.scope.Context()
}

// Dispose 释放作用域，重复调用无效果
func (s *serviceScope) Dispose() {
	if !s.owned {
		return
	}
	if err := s.scope.Dispose(); err != nil {
		s.logger.Warn("Failed to dispose scoped services",
			logging.Field{Key: "error", Value: err.Error()})
	}
}

// resolverProvider 将任意 di.Resolver（根容器或作用域）包装为 services.ServiceProvider
type resolverProvider struct {
	resolver di.Resolver
}

func (p *resolverProvider) GetService(serviceType reflect.Type) (any, error) {
	return p.resolver.Get(serviceType)
}

// Context 返回解析器所在的上下文
func (p *resolverProvider) Context() context.Context {
	return p.resolver.Context()
}

// ProviderFromContext 返回 ctx 当前作用域的服务提供者
func ProviderFromContext(ctx context.Context) (services.ServiceProvider, bool) {
	s, ok := di.ScopeFromContext(ctx)
	if !ok {
		return nil, false
	}
	return &resolverProvider{resolver: s}, true
}
