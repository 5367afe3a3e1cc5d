package services

import (
	"fmt"
	"reflect"
	"sync"
)

type closing struct {
	def  GenericDefinition
	args []reflect.Type
	typ  reflect.Type
}

// GenericRegistry 记录泛型定义与其闭合类型之间的映射。
//
// 示例：
//
//	var RepoDef = services.NewGeneric("Repository", 1)
//	services.RegisterClosing[Repository[User]](sc, RepoDef, reflect.TypeOf(User{}))
type GenericRegistry struct {
	mu       sync.RWMutex
	closings map[GenericDefinition][]closing
	opened   map[reflect.Type]closing
}

// NewGenericRegistry 创建空的泛型注册表
func NewGenericRegistry() *GenericRegistry {
	return &GenericRegistry{
		closings: make(map[GenericDefinition][]closing),
		opened:   make(map[reflect.Type]closing),
	}
}

// Register 声明 closed 是 def 以 args 闭合后的类型
func (r *GenericRegistry) Register(def GenericDefinition, closed reflect.Type, args ...reflect.Type) error {
	if len(args) != def.Arity {
		return fmt.Errorf("%w: %s expects %d type arguments, got %d", ErrArityMismatch, def, def.Arity, len(args))
	}
	if closed == nil {
		return fmt.Errorf("services: closed type for %s is nil", def)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.opened[closed]; ok {
		if existing.def == def && sameArgs(existing.args, args) {
			return nil
		}
		return fmt.Errorf("%w: %v already closes %s", ErrClosingConflict, closed, existing.def)
	}
	for _, c := range r.closings[def] {
		if sameArgs(c.args, args) {
			return fmt.Errorf("%w: %s%v already closed by %v", ErrClosingConflict, def, args, c.typ)
		}
	}

	c := closing{def: def, args: append([]reflect.Type(nil), args...), typ: closed}
	r.closings[def] = append(r.closings[def], c)
	r.opened[closed] = c
	return nil
}

// Close 返回 def 以 args 闭合后的类型
func (r *GenericRegistry) Close(def GenericDefinition, args []reflect.Type) (reflect.Type, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, c := range r.closings[def] {
		if sameArgs(c.args, args) {
			return c.typ, true
		}
	}
	return nil, false
}

// Open 返回闭合类型对应的泛型定义和类型参数
func (r *GenericRegistry) Open(t reflect.Type) (GenericDefinition, []reflect.Type, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.opened[t]
	if !ok {
		return GenericDefinition{}, nil, false
	}
	return c.def, append([]reflect.Type(nil), c.args...), true
}

// Closings 返回 def 已声明的全部闭合类型
func (r *GenericRegistry) Closings(def GenericDefinition) []reflect.Type {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]reflect.Type, 0, len(r.closings[def]))
	for _, c := range r.closings[def] {
		out = append(out, c.typ)
	}
	return out
}

func sameArgs(a, b []reflect.Type) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
