package di

import (
	"fmt"
	"reflect"
	"strings"
)

// graphBuilder 处理依赖图的验证。
type graphBuilder struct {
	producers []*producer
	lookup    func(reflect.Type) (*producer, bool)
}

func newGraphBuilder(producers []*producer, lookup func(reflect.Type) (*producer, bool)) *graphBuilder {
	return &graphBuilder{
		producers: producers,
		lookup:    lookup,
	}
}

// validate 对结构体注入产生的依赖做循环检测。
// 工厂函数的依赖在运行时才可知，由解析路径检测。
func (g *graphBuilder) validate() error {
	dependencies := make(map[int][]int)

	// 1. 提取所有 producer 的依赖关系
	for _, p := range g.producers {
		if p.schema == nil {
			continue
		}
		for _, field := range p.schema.Fields {
			if field.Optional {
				continue // 不在图中强制执行可选依赖
			}
			// 未注册的依赖留给运行时报错
			if dep, ok := g.lookup(field.Type); ok {
				dependencies[p.id] = append(dependencies[p.id], dep.id)
			}
		}
	}

	// 2. 基于 DFS 的循环检测
	visited := make(map[int]bool)
	recursionStack := make(map[int]bool)

	var visit func(int) error
	visit = func(u int) error {
		visited[u] = true
		recursionStack[u] = true

		for _, v := range dependencies[u] {
			if !visited[v] {
				if err := visit(v); err != nil {
					return err
				}
			} else if recursionStack[v] {
				return fmt.Errorf("%w: %v -> %v", ErrCircularDependency, g.producers[u], g.producers[v])
			}
		}

		recursionStack[u] = false
		return nil
	}

	for _, p := range g.producers {
		if !visited[p.id] {
			if err := visit(p.id); err != nil {
				return err
			}
		}
	}
	return nil
}

// analyzeStruct 解析 `di` 标签。
// 支持 `di:""`、`di:"?"`、`di:"optional"`。
func analyzeStruct(typ reflect.Type) (*InjectionSchema, error) {
	schema := &InjectionSchema{}

	// 解包指针
	if typ.Kind() == reflect.Ptr {
		typ = typ.Elem()
	}
	if typ.Kind() != reflect.Struct {
		return schema, nil
	}

	for i := 0; i < typ.NumField(); i++ {
		field := typ.Field(i)
		tagValue, hasTag := field.Tag.Lookup("di")
		if !hasTag {
			continue
		}
		if !field.IsExported() {
			return nil, fmt.Errorf("字段 %s 未导出，无法注入", field.Name)
		}

		isOptional := false
		for _, part := range strings.Split(tagValue, ",") {
			switch strings.TrimSpace(part) {
			case "":
			case "?", "optional":
				isOptional = true
			default:
				return nil, fmt.Errorf("字段 %s: 不支持的 di 标签 %q", field.Name, tagValue)
			}
		}

		schema.Fields = append(schema.Fields, FieldInjection{
			Index:    i,
			Name:     field.Name,
			Type:     field.Type,
			Optional: isOptional,
		})
	}
	return schema, nil
}
