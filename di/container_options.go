package di

// ContainerOption 配置容器行为。
type ContainerOption func(*container)

// WithAllowOverriding 允许后注册的服务覆盖先注册的同类型服务
func WithAllowOverriding(allow bool) ContainerOption {
	return func(c *container) {
		c.allowOverriding = allow
	}
}

// WithResolveUnregisteredCollections 解析未注册的切片类型时返回空切片
func WithResolveUnregisteredCollections(enable bool) ContainerOption {
	return func(c *container) {
		c.resolveUnregisteredCollections = enable
	}
}

// WithScopedLifestyle 设置默认的作用域生命周期提供者
func WithScopedLifestyle(lifestyle ScopedLifestyle) ContainerOption {
	return func(c *container) {
		if lifestyle != nil {
			c.lifestyle = lifestyle
		}
	}
}

// WithTypeCloser 设置开放泛型闭合器
func WithTypeCloser(closer TypeCloser) ContainerOption {
	return func(c *container) {
		c.closer = closer
	}
}
