package services

import (
	"reflect"
	"sync"
)

// ServiceCollection 是有序的服务描述符列表
type ServiceCollection struct {
	mu          sync.RWMutex
	descriptors []*ServiceDescriptor
	generics    *GenericRegistry
}

// NewServiceCollection 创建空的服务集合
func NewServiceCollection() *ServiceCollection {
	return &ServiceCollection{
		descriptors: make([]*ServiceDescriptor, 0),
		generics:    NewGenericRegistry(),
	}
}

// Add 追加描述符
func (sc *ServiceCollection) Add(descriptors ...*ServiceDescriptor) *ServiceCollection {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.descriptors = append(sc.descriptors, descriptors...)
	return sc
}

// TryAdd 仅当契约类型尚未注册时追加
func (sc *ServiceCollection) TryAdd(d *ServiceDescriptor) bool {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	for _, existing := range sc.descriptors {
		if existing.ServiceType == d.ServiceType {
			return false
		}
	}
	sc.descriptors = append(sc.descriptors, d)
	return true
}

// Descriptors 返回描述符快照（按注册顺序）
func (sc *ServiceCollection) Descriptors() []*ServiceDescriptor {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return append([]*ServiceDescriptor(nil), sc.descriptors...)
}

// Len 返回描述符数量
func (sc *ServiceCollection) Len() int {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return len(sc.descriptors)
}

// Contains 是否已注册契约类型
func (sc *ServiceCollection) Contains(service TypeKey) bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	for _, d := range sc.descriptors {
		if d.ServiceType == service {
			return true
		}
	}
	return false
}

// Generics 返回泛型闭合注册表
func (sc *ServiceCollection) Generics() *GenericRegistry {
	return sc.generics
}

// AddSingleton 注册 TService -> TImpl 单例
func AddSingleton[TService, TImpl any](sc *ServiceCollection) *ServiceCollection {
	return sc.Add(Describe(TypeOf[TService](), TypeOf[TImpl](), Singleton))
}

// AddScoped 注册 TService -> TImpl 作用域服务
func AddScoped[TService, TImpl any](sc *ServiceCollection) *ServiceCollection {
	return sc.Add(Describe(TypeOf[TService](), TypeOf[TImpl](), Scoped))
}

// AddTransient 注册 TService -> TImpl 瞬态服务
func AddTransient[TService, TImpl any](sc *ServiceCollection) *ServiceCollection {
	return sc.Add(Describe(TypeOf[TService](), TypeOf[TImpl](), Transient))
}

// AddSingletonFactory 使用工厂注册单例
func AddSingletonFactory[T any](sc *ServiceCollection, factory func(ServiceProvider) (T, error)) *ServiceCollection {
	return sc.Add(DescribeFactory(TypeOf[T](), wrapFactory(factory), Singleton))
}

// AddScopedFactory 使用工厂注册作用域服务
func AddScopedFactory[T any](sc *ServiceCollection, factory func(ServiceProvider) (T, error)) *ServiceCollection {
	return sc.Add(DescribeFactory(TypeOf[T](), wrapFactory(factory), Scoped))
}

// AddTransientFactory 使用工厂注册瞬态服务
func AddTransientFactory[T any](sc *ServiceCollection, factory func(ServiceProvider) (T, error)) *ServiceCollection {
	return sc.Add(DescribeFactory(TypeOf[T](), wrapFactory(factory), Transient))
}

// AddInstance 将已有实例注册为单例
func AddInstance[T any](sc *ServiceCollection, instance T) *ServiceCollection {
	return sc.Add(DescribeInstance(TypeOf[T](), instance, Singleton))
}

// AddOpenGeneric 注册开放泛型契约到开放泛型实现的映射
func AddOpenGeneric(sc *ServiceCollection, service, impl GenericDefinition, lifetime ServiceLifetime) *ServiceCollection {
	return sc.Add(Describe(Open(service), Open(impl), lifetime))
}

// AddClosedGeneric 将闭合实现 TImpl 注册为开放契约 service 的一个实现
func AddClosedGeneric[TImpl any](sc *ServiceCollection, service GenericDefinition, lifetime ServiceLifetime) *ServiceCollection {
	return sc.Add(Describe(Open(service), TypeOf[TImpl](), lifetime))
}

// RegisterClosing 声明 T 是 def 以 args 闭合后的类型
func RegisterClosing[T any](sc *ServiceCollection, def GenericDefinition, args ...reflect.Type) error {
	return sc.generics.Register(def, reflect.TypeOf((*T)(nil)).Elem(), args...)
}

func wrapFactory[T any](factory func(ServiceProvider) (T, error)) Factory {
	return func(p ServiceProvider) (any, error) {
		v, err := factory(p)
		if err != nil {
			return nil, err
		}
		return v, nil
	}
}
