package bridge

import (
	"reflect"

	"github.com/gocrud/hostbridge/di"
	"github.com/gocrud/hostbridge/services"
)

// genericCloser 让容器通过服务集合的泛型注册表闭合开放泛型。
type genericCloser struct {
	registry *services.GenericRegistry
}

func (g genericCloser) Close(def di.OpenGeneric, args []reflect.Type) (reflect.Type, bool) {
	return g.registry.Close(services.GenericDefinition{Name: def.Name, Arity: def.Arity}, args)
}

func (g genericCloser) Open(t reflect.Type) (di.OpenGeneric, []reflect.Type, bool) {
	def, args, ok := g.registry.Open(t)
	if !ok {
		return di.OpenGeneric{}, nil, false
	}
	return toOpen(def), args, true
}

func toOpen(def services.GenericDefinition) di.OpenGeneric {
	return di.OpenGeneric{Name: def.Name, Arity: def.Arity}
}
