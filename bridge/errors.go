package bridge

import "errors"

var (
	// ErrUnsupportedLifetime 无法映射的生命周期，属于配置错误
	ErrUnsupportedLifetime = errors.New("bridge: unsupported service lifetime")

	// ErrInvalidDescriptor 描述符缺少或包含不一致的类型信息
	ErrInvalidDescriptor = errors.New("bridge: invalid service descriptor")
)
