package di

import (
	"context"
	"fmt"
	"reflect"
)

type resolver struct {
	c *container
}

func newResolver(c *container) *resolver {
	return &resolver{c: c}
}

// createInstance 创建 p 描述的服务的新实例。
// 它使用发起方 req 递归解析依赖项。
func (r *resolver) createInstance(req requester, p *producer, path []int) (any, error) {
	switch p.kind {
	case kindValue:
		return p.value, nil
	case kindFactory:
		return p.factory(pathResolver{req: req, path: path})
	case kindCollection:
		return r.createCollection(req, p, path)
	}

	// 否则，视为结构体注入
	return r.createStruct(req, p, path)
}

// createCollection 依次解析成员，组装为 []Elem。
func (r *resolver) createCollection(req requester, p *producer, path []int) (any, error) {
	elem := p.sliceType.Elem()
	out := reflect.MakeSlice(p.sliceType, 0, len(p.members))

	for _, member := range p.members {
		v, err := r.c.produce(req, member, path)
		if err != nil {
			return nil, fmt.Errorf("集合 %v: %w", p.sliceType, err)
		}
		out = reflect.Append(out, valueOf(v, elem))
	}
	return out.Interface(), nil
}

// createStruct 实例化结构体并注入标记为 `di` 的字段。
func (r *resolver) createStruct(req requester, p *producer, path []int) (any, error) {
	implType := p.implType

	var val reflect.Value
	if implType.Kind() == reflect.Ptr {
		// 创建 Ptr -> Struct
		val = reflect.New(implType.Elem())
	} else {
		val = reflect.New(implType)
	}

	if val.Elem().Kind() == reflect.Struct {
		if err := r.injectFields(req, val.Elem(), p.schema, path); err != nil {
			return nil, fmt.Errorf("%v: %w", implType, err)
		}
	}

	if implType.Kind() == reflect.Ptr {
		return val.Interface(), nil
	}
	return val.Elem().Interface(), nil
}

func (r *resolver) injectFields(req requester, structVal reflect.Value, schema *InjectionSchema, path []int) error {
	if schema == nil {
		return nil
	}
	// 使用预计算 schema 仅迭代需要注入的字段
	for _, fieldInfo := range schema.Fields {
		depVal, err := req.resolvePath(fieldInfo.Type, path)
		if err != nil {
			if fieldInfo.Optional {
				continue
			}
			return fmt.Errorf("字段 %s: %w", fieldInfo.Name, err)
		}

		structVal.Field(fieldInfo.Index).Set(valueOf(depVal, fieldInfo.Type))
	}
	return nil
}

// pathResolver 交给工厂函数的解析器，工厂内的解析沿用当前路径，
// 因此经由工厂形成的环同样报告 ErrCircularDependency。
type pathResolver struct {
	req  requester
	path []int
}

func (r pathResolver) Get(typ reflect.Type) (any, error) {
	return r.req.resolvePath(typ, r.path)
}

func (r pathResolver) Context() context.Context {
	return r.req.Context()
}

func (r pathResolver) owner() *scope {
	return r.req.owner()
}

func (r pathResolver) resolvePath(typ reflect.Type, path []int) (any, error) {
	return r.req.resolvePath(typ, path)
}

// valueOf 处理 nil 依赖（例如可选的接口实例）
func valueOf(v any, typ reflect.Type) reflect.Value {
	if v == nil {
		return reflect.Zero(typ)
	}
	return reflect.ValueOf(v)
}
