package services

import "fmt"

// ServiceLifetime 定义服务实例的共享策略。
type ServiceLifetime int

const (
	// Singleton 进程内只创建一个实例。
	Singleton ServiceLifetime = iota
	// Scoped 每个解析作用域创建一个实例。
	Scoped
	// Transient 每次解析都创建新实例。
	Transient
)

func (l ServiceLifetime) String() string {
	switch l {
	case Singleton:
		return "Singleton"
	case Scoped:
		return "Scoped"
	case Transient:
		return "Transient"
	default:
		return fmt.Sprintf("ServiceLifetime(%d)", int(l))
	}
}
