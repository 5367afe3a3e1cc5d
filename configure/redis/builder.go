package redis

import (
	"fmt"

	"github.com/gocrud/hostbridge/logging"
	"github.com/gocrud/hostbridge/services"
	"github.com/redis/go-redis/v9"
)

// DefaultClientName 单独注册为 *redis.Client 的客户端名称
const DefaultClientName = "default"

// Builder Redis 客户端配置构建器
type Builder struct {
	configs []RedisClientOptions
	errs    []error
}

// NewBuilder 创建 Redis 构建器
func NewBuilder() *Builder {
	return &Builder{
		configs: make([]RedisClientOptions, 0),
	}
}

// AddClient 添加一个 Redis 客户端配置
func (b *Builder) AddClient(name string, configure func(*RedisClientOptions)) *Builder {
	opts := NewDefaultOptions(name)
	if configure != nil {
		configure(opts)
	}

	if err := opts.Validate(); err != nil {
		b.errs = append(b.errs, fmt.Errorf("invalid redis configuration for '%s': %w", name, err))
		return b
	}
	b.configs = append(b.configs, *opts)
	return b
}

// Build 构建 Redis 客户端工厂
func (b *Builder) Build(logger logging.Logger) (*RedisClientFactory, error) {
	if len(b.errs) > 0 {
		return nil, b.errs[0]
	}

	factory := NewRedisClientFactory()
	for _, opts := range b.configs {
		if err := factory.Register(opts); err != nil {
			return nil, fmt.Errorf("failed to register redis client '%s': %w", opts.Name, err)
		}

		logger.Info("redis client registered",
			logging.Field{Key: "name", Value: opts.Name},
			logging.Field{Key: "addr", Value: opts.Addr},
			logging.Field{Key: "db", Value: opts.DB})
	}
	return factory, nil
}

// RegisterServices 构建工厂并注册到服务集合。
// 工厂是单例；名为 "default" 的客户端额外注册为 *redis.Client 单例。
func (b *Builder) RegisterServices(sc *services.ServiceCollection, logger logging.Logger) error {
	factory, err := b.Build(logger)
	if err != nil {
		return err
	}
	if len(b.configs) == 0 {
		return nil
	}

	services.AddSingletonFactory(sc, func(services.ServiceProvider) (*RedisClientFactory, error) {
		return factory, nil
	})

	for _, opts := range b.configs {
		if opts.Name != DefaultClientName {
			continue
		}
		services.AddSingletonFactory(sc, func(sp services.ServiceProvider) (*redis.Client, error) {
			f, err := services.Get[*RedisClientFactory](sp)
			if err != nil {
				return nil, err
			}
			return f.Get(DefaultClientName)
		})
	}
	return nil
}
