// Package lazy 提供按名称登记配置、首次使用时才创建实例的注册表，
// configure 下的各个客户端工厂都建立在它之上。
package lazy

import (
	"errors"
	"fmt"
	"slices"
	"sync"
)

// ErrNotRegistered Get 的名称没有登记过
var ErrNotRegistered = errors.New("not registered")

// Registry 并发安全。同一名称的实例只创建一次，创建失败不会缓存。
type Registry[O, C any] struct {
	kind string
	open func(name string, opts O) (C, error)

	mu        sync.Mutex
	options   map[string]O
	names     []string
	instances map[string]C
	created   []string
}

// New kind 只用于错误信息，例如 "redis client"
func New[O, C any](kind string, open func(name string, opts O) (C, error)) *Registry[O, C] {
	return &Registry[O, C]{
		kind:      kind,
		open:      open,
		options:   make(map[string]O),
		instances: make(map[string]C),
	}
}

func (r *Registry[O, C]) Register(name string, opts O) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.options[name]; dup {
		return fmt.Errorf("%s %q already registered", r.kind, name)
	}
	r.options[name] = opts
	r.names = append(r.names, name)
	return nil
}

// Names 按登记顺序返回
func (r *Registry[O, C]) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.names)
}

func (r *Registry[O, C]) Options(name string) (O, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	opts, ok := r.options[name]
	return opts, ok
}

func (r *Registry[O, C]) Get(name string) (C, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if c, ok := r.instances[name]; ok {
		return c, nil
	}
	opts, ok := r.options[name]
	if !ok {
		var zero C
		return zero, fmt.Errorf("%s %q: %w", r.kind, name, ErrNotRegistered)
	}
	c, err := r.open(name, opts)
	if err != nil {
		var zero C
		return zero, fmt.Errorf("%s %q: %w", r.kind, name, err)
	}
	r.instances[name] = c
	r.created = append(r.created, name)
	return c, nil
}

// Close 按创建的逆序释放所有已创建的实例，之后 Get 会重新创建
func (r *Registry[O, C]) Close(release func(C) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	for i := len(r.created) - 1; i >= 0; i-- {
		name := r.created[i]
		if err := release(r.instances[name]); err != nil {
			errs = append(errs, fmt.Errorf("%s %q: %w", r.kind, name, err))
		}
	}
	r.instances = make(map[string]C)
	r.created = nil
	return errors.Join(errs...)
}
