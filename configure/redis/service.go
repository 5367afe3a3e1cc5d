package redis

import (
	"context"
	"errors"
	"time"

	"github.com/gocrud/hostbridge/internal/lazy"
	"github.com/redis/go-redis/v9"
)

// RedisClientOptions 单个命名客户端的连接参数
type RedisClientOptions struct {
	Name         string
	Addr         string // host:port
	Password     string
	DB           int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	PoolSize     int
	MinIdleConns int
	MaxRetries   int
}

// NewDefaultOptions 指向本机 6379 的默认参数
func NewDefaultOptions(name string) *RedisClientOptions {
	return &RedisClientOptions{
		Name:         name,
		Addr:         "localhost:6379",
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MaxRetries:   3,
	}
}

func (o *RedisClientOptions) Validate() error {
	switch {
	case o.Name == "":
		return errors.New("redis: client name is empty")
	case o.Addr == "":
		return errors.New("redis: addr is empty")
	case o.DB < 0:
		return errors.New("redis: db must not be negative")
	case o.DialTimeout <= 0:
		return errors.New("redis: dial timeout must be positive")
	}
	return nil
}

// RedisClientFactory 按名称延迟创建 *redis.Client，
// 作为单例注册后由容器在关闭时调用 Close
type RedisClientFactory struct {
	clients *lazy.Registry[RedisClientOptions, *redis.Client]
}

func NewRedisClientFactory() *RedisClientFactory {
	return &RedisClientFactory{
		clients: lazy.New("redis client", func(_ string, o RedisClientOptions) (*redis.Client, error) {
			return redis.NewClient(&redis.Options{
				Addr:         o.Addr,
				Password:     o.Password,
				DB:           o.DB,
				DialTimeout:  o.DialTimeout,
				ReadTimeout:  o.ReadTimeout,
				WriteTimeout: o.WriteTimeout,
				PoolSize:     o.PoolSize,
				MinIdleConns: o.MinIdleConns,
				MaxRetries:   o.MaxRetries,
			}), nil
		}),
	}
}

// Register 只登记参数，连接在首次 Get 时建立
func (f *RedisClientFactory) Register(opts RedisClientOptions) error {
	if err := opts.Validate(); err != nil {
		return err
	}
	return f.clients.Register(opts.Name, opts)
}

func (f *RedisClientFactory) Names() []string { return f.clients.Names() }

func (f *RedisClientFactory) Get(name string) (*redis.Client, error) {
	return f.clients.Get(name)
}

// Ping 对指定客户端发送 PING
func (f *RedisClientFactory) Ping(ctx context.Context, name string) error {
	client, err := f.Get(name)
	if err != nil {
		return err
	}
	return client.Ping(ctx).Err()
}

// Close 默认客户端可能已被容器关闭，redis.ErrClosed 不视为错误
func (f *RedisClientFactory) Close() error {
	return f.clients.Close(func(c *redis.Client) error {
		if err := c.Close(); err != nil && !errors.Is(err, redis.ErrClosed) {
			return err
		}
		return nil
	})
}
