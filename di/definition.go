package di

import (
	"fmt"
	"reflect"
	"sync"
)

// ScopeType 定义了服务的生命周期。
type ScopeType int

const (
	// ScopeSingleton 每个容器创建一个实例。
	ScopeSingleton ScopeType = iota
	// ScopeTransient 每次请求创建一个新实例。
	ScopeTransient
	// ScopeScoped 每个作用域创建一个实例。
	ScopeScoped
)

func (s ScopeType) String() string {
	switch s {
	case ScopeSingleton:
		return "singleton"
	case ScopeTransient:
		return "transient"
	case ScopeScoped:
		return "scoped"
	default:
		return fmt.Sprintf("scope(%d)", int(s))
	}
}

func (s ScopeType) valid() bool {
	return s == ScopeSingleton || s == ScopeTransient || s == ScopeScoped
}

// Factory 使用当前解析器创建实例。
type Factory func(r Resolver) (any, error)

// FieldInjection 包含需要注入的结构体字段的元数据。
type FieldInjection struct {
	Index    int
	Name     string // 字段名
	Type     reflect.Type
	Optional bool
}

// InjectionSchema 包含预计算的注入元数据。
type InjectionSchema struct {
	Fields []FieldInjection
}

type producerKind int

const (
	kindStruct producerKind = iota
	kindFactory
	kindValue
	kindCollection
)

// producer 描述一种构造策略及其生命周期。
// 同一个实现类型在同一生命周期下只有一个 producer，
// 因此按契约和按实现解析得到同一个实例。
type producer struct {
	id       int
	kind     producerKind
	scope    ScopeType
	implType reflect.Type // 用于结构体反射
	factory  Factory
	value    any
	schema   *InjectionSchema

	// 集合：元素类型与成员
	sliceType reflect.Type
	members   []*producer

	// 用于单例作用域
	singletonInst any
	singletonErr  error
	singletonOnce sync.Once
}

func (p *producer) String() string {
	switch p.kind {
	case kindStruct:
		return fmt.Sprintf("%v (%s)", p.implType, p.scope)
	case kindCollection:
		return fmt.Sprintf("%v (%d members)", p.sliceType, len(p.members))
	case kindValue:
		return fmt.Sprintf("value %T (%s)", p.value, p.scope)
	default:
		return fmt.Sprintf("factory (%s)", p.scope)
	}
}

type implKey struct {
	typ   reflect.Type
	scope ScopeType
}

type openMapping struct {
	impl  OpenGeneric
	scope ScopeType
}

type closedImpl struct {
	typ   reflect.Type
	scope ScopeType
}

// CollectionItem 是开放泛型集合的一个成员：开放实现或闭合实现二选一。
type CollectionItem struct {
	Open  OpenGeneric
	Type  reflect.Type
	Scope ScopeType
}
