package di

import (
	"context"
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"
)

// Scope 表示作用域生命周期上下文。
type Scope interface {
	Resolver

	// Dispose 释放与作用域关联的资源。重复调用无效果。
	Dispose() error

	// Disposed 作用域是否已释放。
	Disposed() bool
}

type scopeEntry struct {
	val atomic.Value // 存储 *instanceBox（如果尚未创建则为 nil）
	mu  sync.Mutex   // 用于创建此特定实例的锁
}

// instanceBox 允许缓存 nil 实例
type instanceBox struct {
	v any
}

type scope struct {
	parent *container
	ctx    context.Context

	mu          sync.RWMutex
	entries     []*scopeEntry // 按 producer.id 索引，按需增长
	disposables []any         // 按创建顺序
	disposed    atomic.Bool
}

func newScope(parent *container, ctx context.Context) *scope {
	s := &scope{
		parent:  parent,
		entries: make([]*scopeEntry, parent.producerCount()),
	}
	s.ctx = WithScope(ctx, s)
	return s
}

func (s *scope) Get(typ reflect.Type) (any, error) {
	return s.resolvePath(typ, nil)
}

func (s *scope) Context() context.Context {
	return s.ctx
}

func (s *scope) Disposed() bool {
	return s.disposed.Load()
}

func (s *scope) owner() *scope {
	return s
}

func (s *scope) resolvePath(typ reflect.Type, path []int) (any, error) {
	if s.disposed.Load() {
		return nil, fmt.Errorf("%w: resolving %v", ErrScopeDisposed, typ)
	}
	return s.parent.resolve(s, typ, path)
}

// entry 返回 producer 对应的条目，延迟闭合的泛型会使数组增长。
func (s *scope) entry(id int) (*scopeEntry, error) {
	s.mu.RLock()
	if id < len(s.entries) {
		if e := s.entries[id]; e != nil {
			s.mu.RUnlock()
			return e, nil
		}
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.disposed.Load() {
		return nil, ErrScopeDisposed
	}
	if id >= len(s.entries) {
		grown := make([]*scopeEntry, id+1)
		copy(grown, s.entries)
		s.entries = grown
	}
	if s.entries[id] == nil {
		s.entries[id] = &scopeEntry{}
	}
	return s.entries[id], nil
}

func (s *scope) getScoped(p *producer, path []int) (any, error) {
	entry, err := s.entry(p.id)
	if err != nil {
		return nil, err
	}

	// 快速路径：检查是否已创建
	if box, ok := entry.val.Load().(*instanceBox); ok {
		return box.v, nil
	}

	// 慢速路径：带锁创建
	entry.mu.Lock()
	defer entry.mu.Unlock()

	// 双重检查
	if box, ok := entry.val.Load().(*instanceBox); ok {
		return box.v, nil
	}
	if s.disposed.Load() {
		return nil, ErrScopeDisposed
	}

	instance, err := s.parent.resolver.createInstance(s, p, path)
	if err != nil {
		return nil, err
	}
	if p.kind != kindValue {
		if err := s.track(instance); err != nil {
			return nil, err
		}
	}

	entry.val.Store(&instanceBox{v: instance})
	return instance, nil
}

// track 登记由作用域释放的实例。
// 作用域已释放时立即释放 instance 并返回 ErrScopeDisposed。
func (s *scope) track(instance any) error {
	s.mu.Lock()
	if s.disposed.Load() {
		s.mu.Unlock()
		if isDisposable(instance) {
			_ = dispose(instance)
		}
		return ErrScopeDisposed
	}
	if isDisposable(instance) {
		s.disposables = append(s.disposables, instance)
	}
	s.mu.Unlock()
	return nil
}

// Dispose 按创建的逆序释放作用域拥有的实例。
func (s *scope) Dispose() error {
	if !s.disposed.CompareAndSwap(false, true) {
		return nil
	}

	s.mu.Lock()
	list := s.disposables
	s.disposables = nil
	s.entries = nil
	s.mu.Unlock()

	return disposeAll(list)
}
