package services

import (
	"fmt"
	"reflect"
)

// GenericDefinition 描述一个尚未闭合的泛型类型，例如 Repository[T]。
// Go 在运行时没有开放泛型，因此以 (名称, 参数个数) 作为标识。
type GenericDefinition struct {
	Name  string
	Arity int
}

// NewGeneric 创建泛型定义
func NewGeneric(name string, arity int) GenericDefinition {
	if arity < 1 {
		panic(fmt.Sprintf("services: generic %q must have at least one type parameter", name))
	}
	return GenericDefinition{Name: name, Arity: arity}
}

func (g GenericDefinition) String() string {
	return fmt.Sprintf("%s`%d", g.Name, g.Arity)
}

// TypeKey 是服务契约或实现的类型标识。
// 要么是一个闭合的 Go 类型，要么是一个开放的泛型定义。
type TypeKey struct {
	typ     reflect.Type
	generic GenericDefinition
}

// TypeOf 返回 T 的类型键
func TypeOf[T any]() TypeKey {
	return TypeKey{typ: reflect.TypeOf((*T)(nil)).Elem()}
}

// KeyOf 将 reflect.Type 包装为类型键
func KeyOf(t reflect.Type) TypeKey {
	return TypeKey{typ: t}
}

// Open 返回开放泛型定义的类型键
func Open(def GenericDefinition) TypeKey {
	return TypeKey{generic: def}
}

// IsGenericTypeDefinition 是否为开放泛型
func (k TypeKey) IsGenericTypeDefinition() bool {
	return k.typ == nil && k.generic.Arity > 0
}

// IsZero 是否为空键
func (k TypeKey) IsZero() bool {
	return k.typ == nil && k.generic.Arity == 0
}

// Type 返回闭合类型，开放泛型返回 nil
func (k TypeKey) Type() reflect.Type {
	return k.typ
}

// Generic 返回开放泛型定义
func (k TypeKey) Generic() GenericDefinition {
	return k.generic
}

func (k TypeKey) String() string {
	switch {
	case k.typ != nil:
		return k.typ.String()
	case k.generic.Arity > 0:
		return k.generic.String()
	default:
		return "<nil>"
	}
}
