package config

import (
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
)

// Configuration 只读的分层配置
type Configuration interface {
	// Get 获取配置值的字符串形式，不存在时返回空串
	Get(key string) string
	// GetWithDefault 获取配置值，不存在时返回默认值
	GetWithDefault(key, defaultValue string) string
	// GetInt 获取整数配置值
	GetInt(key string) (int, error)
	// GetBool 获取布尔配置值
	GetBool(key string) (bool, error)
	// GetSection 获取配置节
	GetSection(key string) Configuration
	// Bind 绑定配置节到结构体，使用 json 标签
	Bind(key string, target any) error
	// GetAll 获取整棵配置树的副本
	GetAll() map[string]any
}

// ReloadableConfiguration 可以从配置源重新加载的配置
type ReloadableConfiguration interface {
	Configuration
	// Reload 按顺序重新加载所有配置源，失败时保留旧值
	Reload() error
	// OnReload 注册重载成功后的回调
	OnReload(fn func())
}

type configuration struct {
	data    *tree
	sources []ConfigurationSource

	mu        sync.Mutex
	callbacks []func()
}

func newSection(data map[string]any) *configuration {
	return &configuration{data: newTree(data)}
}

func (c *configuration) Reload() error {
	merged := make(map[string]any)
	for _, source := range c.sources {
		loaded, err := source.Load()
		if err != nil {
			return fmt.Errorf("failed to load config source %s: %w", source.Name(), err)
		}
		mergeMaps(merged, loaded)
	}

	c.mu.Lock()
	c.data.replace(merged)
	callbacks := append([]func(){}, c.callbacks...)
	c.mu.Unlock()

	for _, fn := range callbacks {
		fn()
	}
	return nil
}

func (c *configuration) OnReload(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.callbacks = append(c.callbacks, fn)
}

func (c *configuration) Get(key string) string {
	switch v := c.data.lookup(key).(type) {
	case nil:
		return ""
	case string:
		return v
	case map[string]any, []any:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

func (c *configuration) GetWithDefault(key, defaultValue string) string {
	if value := c.Get(key); value != "" {
		return value
	}
	return defaultValue
}

func (c *configuration) GetInt(key string) (int, error) {
	switch v := c.data.lookup(key).(type) {
	case nil:
		return 0, fmt.Errorf("key %s not found", key)
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case uint64:
		return int(v), nil
	case float64:
		return int(v), nil
	case string:
		return strconv.Atoi(v)
	default:
		return 0, fmt.Errorf("key %s: cannot convert %T to int", key, v)
	}
}

func (c *configuration) GetBool(key string) (bool, error) {
	switch v := c.data.lookup(key).(type) {
	case nil:
		return false, fmt.Errorf("key %s not found", key)
	case bool:
		return v, nil
	case string:
		return strconv.ParseBool(v)
	default:
		return false, fmt.Errorf("key %s: cannot convert %T to bool", key, v)
	}
}

func (c *configuration) GetSection(key string) Configuration {
	section := make(map[string]any)
	if m, ok := c.data.lookup(key).(map[string]any); ok {
		mergeMaps(section, m)
	}
	return newSection(section)
}

func (c *configuration) Bind(key string, target any) error {
	value := c.data.lookup(key)
	if value == nil {
		return fmt.Errorf("key %s not found", key)
	}

	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("key %s: %w", key, err)
	}
	if err := json.Unmarshal(raw, target); err != nil {
		return fmt.Errorf("key %s: %w", key, err)
	}
	return nil
}

func (c *configuration) GetAll() map[string]any {
	result := make(map[string]any)
	mergeMaps(result, c.data.load())
	return result
}

// Load 绑定配置节到新的 T，section 为空时绑定整个配置
func Load[T any](cfg Configuration, section string) (T, error) {
	var v T
	err := cfg.Bind(section, &v)
	return v, err
}
