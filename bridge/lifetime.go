package bridge

import (
	"fmt"

	"github.com/gocrud/hostbridge/di"
	"github.com/gocrud/hostbridge/services"
)

// toScope 将服务生命周期映射为容器作用域，未知值返回错误。
func toScope(lifetime services.ServiceLifetime) (di.ScopeType, error) {
	switch lifetime {
	case services.Singleton:
		return di.ScopeSingleton, nil
	case services.Scoped:
		return di.ScopeScoped, nil
	case services.Transient:
		return di.ScopeTransient, nil
	default:
		return 0, fmt.Errorf("%w: %v", ErrUnsupportedLifetime, lifetime)
	}
}
