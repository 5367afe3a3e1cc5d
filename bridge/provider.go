package bridge

import (
	"context"
	"reflect"

	"github.com/gocrud/hostbridge/di"
	"github.com/gocrud/hostbridge/services"
)

// Provider 是进程级的服务解析器，由 UseContainer 返回。
type Provider struct {
	container di.Container
	scopes    *scopeFactory
}

// GetService 从根容器解析服务
func (p *Provider) GetService(serviceType reflect.Type) (any, error) {
	return p.container.Get(serviceType)
}

// GetServiceContext 解析服务，Scoped 服务使用 ctx 中的当前作用域
func (p *Provider) GetServiceContext(ctx context.Context, serviceType reflect.Type) (any, error) {
	return p.container.GetWithContext(ctx, serviceType)
}

// CreateScope 创建新的解析作用域
func (p *Provider) CreateScope(ctx context.Context) services.ServiceScope {
	return p.scopes.CreateScope(ctx)
}

// GetOrCreateScope 返回 ctx 的当前作用域，没有时创建
func (p *Provider) GetOrCreateScope(ctx context.Context) (services.ServiceScope, context.Context) {
	return p.scopes.GetOrCreateScope(ctx)
}

// ScopeFactory 返回作用域工厂
func (p *Provider) ScopeFactory() services.ServiceScopeFactory {
	return p.scopes
}

// Container 返回底层容器
func (p *Provider) Container() di.Container {
	return p.container
}

// Close 释放容器拥有的单例
func (p *Provider) Close() error {
	return p.container.Close()
}
