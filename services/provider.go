package services

import (
	"context"
	"fmt"
	"reflect"
)

// ServiceProvider 按类型解析服务实例
type ServiceProvider interface {
	GetService(serviceType reflect.Type) (any, error)
}

// ServiceScope 是一次请求（或一个工作单元）的解析作用域
type ServiceScope interface {
	// ServiceProvider 返回绑定到此作用域的解析器
	ServiceProvider() ServiceProvider
	// Context 返回以此作用域为当前作用域的上下文
	Context() context.Context
	// Dispose 释放作用域及其拥有的实例，重复调用无效果
	Dispose()
}

// ServiceScopeFactory 创建解析作用域
type ServiceScopeFactory interface {
	CreateScope(ctx context.Context) ServiceScope
}

// Get 解析类型 T
func Get[T any](p ServiceProvider) (T, error) {
	var zero T
	typ := reflect.TypeOf((*T)(nil)).Elem()

	val, err := p.GetService(typ)
	if err != nil {
		return zero, err
	}
	if val == nil {
		return zero, nil
	}
	if v, ok := val.(T); ok {
		return v, nil
	}
	return zero, fmt.Errorf("%w: got %T, expected %v", ErrUnexpectedType, val, typ)
}

// MustGet 解析类型 T，失败时 panic
func MustGet[T any](p ServiceProvider) T {
	v, err := Get[T](p)
	if err != nil {
		panic(fmt.Sprintf("services: failed to resolve %v: %v", reflect.TypeOf((*T)(nil)).Elem(), err))
	}
	return v
}

// GetAll 解析 T 的全部已注册实现
func GetAll[T any](p ServiceProvider) ([]T, error) {
	return Get[[]T](p)
}
