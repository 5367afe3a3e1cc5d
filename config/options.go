package config

import (
	"encoding/json"
	"sync"
	"sync/atomic"
)

// Option 单例选项，值在首次解析时固定
type Option[T any] interface {
	Value() T
}

// OptionSnapshot 作用域选项，每个作用域创建时取一次快照
type OptionSnapshot[T any] interface {
	Value() T
}

// OptionMonitor 单例选项，总是返回最新绑定的值
type OptionMonitor[T any] interface {
	Value() T
	// OnChange 注册配置重新绑定后的回调
	OnChange(fn func(T))
}

// OptionsCache 持有某个配置节最近一次成功绑定的值，配置重载时重新绑定
type OptionsCache[T any] struct {
	config  Configuration
	section string
	current atomic.Pointer[T]
	lastErr atomic.Pointer[error]

	mu        sync.Mutex
	listeners []func(T)
}

// NewOptionsCache 创建选项缓存，配置节不存在时值为零值
func NewOptionsCache[T any](cfg Configuration, section string) *OptionsCache[T] {
	c := &OptionsCache[T]{config: cfg, section: section}
	c.current.Store(new(T))
	_ = c.rebind()

	if rc, ok := cfg.(ReloadableConfiguration); ok {
		rc.OnReload(func() {
			if c.rebind() == nil {
				c.notify()
			}
		})
	}
	return c
}

// rebind 失败时保留旧值并记录错误
func (c *OptionsCache[T]) rebind() error {
	var v T
	if err := c.config.Bind(c.section, &v); err != nil {
		c.lastErr.Store(&err)
		return err
	}
	c.current.Store(&v)
	c.lastErr.Store(nil)
	return nil
}

func (c *OptionsCache[T]) notify() {
	c.mu.Lock()
	listeners := append([]func(T){}, c.listeners...)
	c.mu.Unlock()

	v := c.Get()
	for _, fn := range listeners {
		fn(v)
	}
}

// Get 返回当前值
func (c *OptionsCache[T]) Get() T {
	return *c.current.Load()
}

// Err 返回最近一次绑定的错误
func (c *OptionsCache[T]) Err() error {
	if p := c.lastErr.Load(); p != nil {
		return *p
	}
	return nil
}

// Snapshot 返回当前值的深拷贝
func (c *OptionsCache[T]) Snapshot() T {
	current := c.Get()
	raw, err := json.Marshal(current)
	if err != nil {
		return current
	}
	var copied T
	if err := json.Unmarshal(raw, &copied); err != nil {
		return current
	}
	return copied
}

type fixedOption[T any] struct {
	value T
}

func (o *fixedOption[T]) Value() T {
	return o.value
}

// NewOption 创建固定值选项
func NewOption[T any](value T) Option[T] {
	return &fixedOption[T]{value: value}
}

// NewOptionSnapshot 创建快照选项
func NewOptionSnapshot[T any](snapshot T) OptionSnapshot[T] {
	return &fixedOption[T]{value: snapshot}
}

type optionMonitor[T any] struct {
	cache *OptionsCache[T]
}

func (o *optionMonitor[T]) Value() T {
	return o.cache.Get()
}

func (o *optionMonitor[T]) OnChange(fn func(T)) {
	o.cache.mu.Lock()
	defer o.cache.mu.Unlock()
	o.cache.listeners = append(o.cache.listeners, fn)
}

// NewOptionMonitor 创建监听选项
func NewOptionMonitor[T any](cache *OptionsCache[T]) OptionMonitor[T] {
	return &optionMonitor[T]{cache: cache}
}
