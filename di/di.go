package di

import (
	"fmt"
	"reflect"
)

// Resolve resolves an instance of type T from the container or scope.
func Resolve[T any](r Resolver) (T, error) {
	var zero T
	typ := TypeOf[T]()

	val, err := r.Get(typ)
	if err != nil {
		return zero, err
	}
	if val == nil {
		return zero, nil
	}

	if v, ok := val.(T); ok {
		return v, nil
	}
	return zero, fmt.Errorf("di: resolved value is %T, expected %v", val, typ)
}

// MustResolve is like Resolve but panics on error.
func MustResolve[T any](r Resolver) T {
	v, err := Resolve[T](r)
	if err != nil {
		panic(err)
	}
	return v
}

// TypeOf 获取类型 T 的 reflect.Type（泛型辅助函数）
func TypeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}
