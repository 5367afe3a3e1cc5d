package services

import "fmt"

// Factory 通过服务提供者创建实例
type Factory func(ServiceProvider) (any, error)

// ServiceDescriptor 描述如何产生某个契约类型的实例。
// ImplementationType、ImplementationFactory、ImplementationInstance 按此优先级生效。
type ServiceDescriptor struct {
	ServiceType            TypeKey
	ImplementationType     TypeKey
	ImplementationFactory  Factory
	ImplementationInstance any
	Lifetime               ServiceLifetime
}

// Describe 创建基于实现类型的描述符
func Describe(service, impl TypeKey, lifetime ServiceLifetime) *ServiceDescriptor {
	return &ServiceDescriptor{
		ServiceType:        service,
		ImplementationType: impl,
		Lifetime:           lifetime,
	}
}

// DescribeFactory 创建基于工厂的描述符
func DescribeFactory(service TypeKey, factory Factory, lifetime ServiceLifetime) *ServiceDescriptor {
	return &ServiceDescriptor{
		ServiceType:           service,
		ImplementationFactory: factory,
		Lifetime:              lifetime,
	}
}

// DescribeInstance 创建基于已有实例的描述符
func DescribeInstance(service TypeKey, instance any, lifetime ServiceLifetime) *ServiceDescriptor {
	return &ServiceDescriptor{
		ServiceType:            service,
		ImplementationInstance: instance,
		Lifetime:               lifetime,
	}
}

// HasImplementationType 是否指定了实现类型
func (d *ServiceDescriptor) HasImplementationType() bool {
	return !d.ImplementationType.IsZero()
}

func (d *ServiceDescriptor) String() string {
	switch {
	case d.HasImplementationType():
		return fmt.Sprintf("%s -> %s (%s)", d.ServiceType, d.ImplementationType, d.Lifetime)
	case d.ImplementationFactory != nil:
		return fmt.Sprintf("%s -> factory (%s)", d.ServiceType, d.Lifetime)
	default:
		return fmt.Sprintf("%s -> instance (%s)", d.ServiceType, d.Lifetime)
	}
}
