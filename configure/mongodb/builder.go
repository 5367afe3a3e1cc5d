package mongodb

import (
	"errors"
	"fmt"

	"github.com/gocrud/hostbridge/logging"
	"github.com/gocrud/hostbridge/services"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

// DefaultClientName 单独注册为 *mongo.Client 的客户端名称
const DefaultClientName = "default"

// Builder MongoDB 配置构建器
type Builder struct {
	configs []MongoOptions
	errors  []error
}

// NewBuilder 创建构建器
func NewBuilder() *Builder {
	return &Builder{}
}

// Add 添加 MongoDB 客户端配置
func (b *Builder) Add(name string, uri string, configure func(*MongoOptions)) *Builder {
	for _, c := range b.configs {
		if c.Name == name {
			b.errors = append(b.errors, fmt.Errorf("mongo client '%s' already configured", name))
			return b
		}
	}

	opts := NewDefaultOptions(name, uri)
	if configure != nil {
		configure(opts)
	}
	if err := opts.Validate(); err != nil {
		b.errors = append(b.errors, fmt.Errorf("invalid mongo configuration for '%s': %w", name, err))
		return b
	}

	b.configs = append(b.configs, *opts)
	return b
}

// Build 构建 MongoDB 工厂
func (b *Builder) Build(logger logging.Logger) (*MongoFactory, error) {
	if len(b.errors) > 0 {
		return nil, fmt.Errorf("mongo configuration errors: %w", errors.Join(b.errors...))
	}

	factory := NewMongoFactory()
	for _, opts := range b.configs {
		if err := factory.Register(opts); err != nil {
			return nil, fmt.Errorf("failed to register mongo client '%s': %w", opts.Name, err)
		}

		logger.Info("Mongo client registered",
			logging.Field{Key: "name", Value: opts.Name},
			logging.Field{Key: "database", Value: opts.Database})
	}
	return factory, nil
}

// RegisterServices 注册工厂单例。
// "default" 客户端另注册为 *mongo.Client；配置了 Database 时再注册 *mongo.Database。
func (b *Builder) RegisterServices(sc *services.ServiceCollection, logger logging.Logger) error {
	factory, err := b.Build(logger)
	if err != nil {
		return err
	}
	if len(b.configs) == 0 {
		return nil
	}

	services.AddSingletonFactory(sc, func(services.ServiceProvider) (*MongoFactory, error) {
		return factory, nil
	})
	for _, opts := range b.configs {
		if opts.Name != DefaultClientName {
			continue
		}
		services.AddSingletonFactory(sc, func(sp services.ServiceProvider) (*mongo.Client, error) {
			return Named(sp, DefaultClientName)
		})
		if opts.Database != "" {
			services.AddSingletonFactory(sc, func(sp services.ServiceProvider) (*mongo.Database, error) {
				f, err := services.Get[*MongoFactory](sp)
				if err != nil {
					return nil, err
				}
				return f.Database(DefaultClientName)
			})
		}
	}
	return nil
}

// Named 解析指定名称的 MongoDB 客户端
func Named(sp services.ServiceProvider, name string) (*mongo.Client, error) {
	factory, err := services.Get[*MongoFactory](sp)
	if err != nil {
		return nil, err
	}
	return factory.Get(name)
}
