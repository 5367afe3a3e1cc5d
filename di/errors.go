package di

import "errors"

var (
	// ErrServiceNotFound 未注册的服务
	ErrServiceNotFound = errors.New("di: service not found")

	// ErrAlreadyRegistered 不允许覆盖时重复注册
	ErrAlreadyRegistered = errors.New("di: service already registered")

	// ErrInvalidRegistration 注册信息不合法
	ErrInvalidRegistration = errors.New("di: invalid registration")

	// ErrContainerBuilt 构建后不允许再注册
	ErrContainerBuilt = errors.New("di: container already built")

	// ErrContainerNotBuilt 构建前不允许解析
	ErrContainerNotBuilt = errors.New("di: container not built")

	// ErrContainerClosed 容器已关闭
	ErrContainerClosed = errors.New("di: container closed")

	// ErrCircularDependency 检测到循环依赖
	ErrCircularDependency = errors.New("di: circular dependency")

	// ErrNoActiveScope 在没有当前作用域时解析 Scoped 服务
	ErrNoActiveScope = errors.New("di: no active scope")

	// ErrScopeDisposed 作用域已释放
	ErrScopeDisposed = errors.New("di: scope disposed")

	// ErrNoTypeCloser 使用开放泛型但未配置 TypeCloser
	ErrNoTypeCloser = errors.New("di: open generic registration requires a TypeCloser")
)
