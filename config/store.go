package config

import (
	"strings"
	"sync"
	"sync/atomic"
)

// tree 保存合并后的配置树，读取无锁，重载时整体替换
type tree struct {
	root atomic.Pointer[map[string]any]
}

func newTree(data map[string]any) *tree {
	t := &tree{}
	t.replace(data)
	return t
}

func (t *tree) load() map[string]any {
	if m := t.root.Load(); m != nil {
		return *m
	}
	return nil
}

func (t *tree) replace(data map[string]any) {
	if data == nil {
		data = make(map[string]any)
	}
	t.root.Store(&data)
}

// lookup 按键路径查找值，键支持 "a:b:c" 和 "a.b.c"
func (t *tree) lookup(key string) any {
	var current any = t.load()
	if key == "" {
		return current
	}
	for _, part := range splitKey(key) {
		m, ok := current.(map[string]any)
		if !ok {
			return nil
		}
		current = m[part]
	}
	return current
}

var keyCache sync.Map // string -> []string

func splitKey(key string) []string {
	if v, ok := keyCache.Load(key); ok {
		return v.([]string)
	}
	parts := strings.FieldsFunc(key, func(r rune) bool { return r == ':' || r == '.' })
	keyCache.Store(key, parts)
	return parts
}

// mergeMaps 把 src 合并进 dst，嵌套的 map 被复制，dst 不与 src 共享
func mergeMaps(dst, src map[string]any) {
	for k, v := range src {
		srcMap, isMap := v.(map[string]any)
		if !isMap {
			dst[k] = v
			continue
		}
		dstMap, ok := dst[k].(map[string]any)
		if !ok {
			dstMap = make(map[string]any, len(srcMap))
			dst[k] = dstMap
		}
		mergeMaps(dstMap, srcMap)
	}
}

// setPath 在 data 中按段写入值，中间节点不是 map 时放弃
func setPath(data map[string]any, parts []string, value any) {
	if len(parts) == 0 {
		return
	}
	current := data
	for _, part := range parts[:len(parts)-1] {
		next, exists := current[part]
		if !exists {
			m := make(map[string]any)
			current[part] = m
			current = m
			continue
		}
		m, ok := next.(map[string]any)
		if !ok {
			return
		}
		current = m
	}
	current[parts[len(parts)-1]] = value
}
