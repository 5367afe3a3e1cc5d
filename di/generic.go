package di

import (
	"fmt"
	"reflect"
)

// OpenGeneric 标识一个未闭合的泛型定义（名称 + 类型参数个数）。
type OpenGeneric struct {
	Name  string
	Arity int
}

func (g OpenGeneric) String() string {
	return fmt.Sprintf("%s`%d", g.Name, g.Arity)
}

// IsZero 是否为空定义
func (g OpenGeneric) IsZero() bool {
	return g.Arity == 0 && g.Name == ""
}

// TypeCloser 在开放泛型定义与闭合类型之间转换。
// Go 没有运行时开放泛型，闭合关系由外部显式登记。
type TypeCloser interface {
	// Close 返回 def 以 args 闭合后的类型
	Close(def OpenGeneric, args []reflect.Type) (reflect.Type, bool)
	// Open 返回闭合类型对应的定义和类型参数
	Open(t reflect.Type) (OpenGeneric, []reflect.Type, bool)
}
