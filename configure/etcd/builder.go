package etcd

import (
	"errors"
	"fmt"

	"github.com/gocrud/hostbridge/logging"
	"github.com/gocrud/hostbridge/services"
	clientv3 "go.etcd.io/etcd/client/v3"
)

// DefaultClientName 单独注册为 *clientv3.Client 的客户端名称
const DefaultClientName = "default"

// Builder Etcd 客户端配置构建器
type Builder struct {
	configs []EtcdClientOptions
	errors  []error
}

// NewBuilder 创建 Etcd 构建器
func NewBuilder() *Builder {
	return &Builder{}
}

// AddClient 添加一个 etcd 客户端配置
func (b *Builder) AddClient(name string, configure func(*EtcdClientOptions)) *Builder {
	for _, c := range b.configs {
		if c.Name == name {
			b.errors = append(b.errors, fmt.Errorf("etcd client '%s' already configured", name))
			return b
		}
	}

	opts := NewDefaultOptions(name)
	if configure != nil {
		configure(opts)
	}
	if err := opts.Validate(); err != nil {
		b.errors = append(b.errors, fmt.Errorf("invalid etcd configuration for '%s': %w", name, err))
		return b
	}

	b.configs = append(b.configs, *opts)
	return b
}

// Build 构建 Etcd 客户端工厂
func (b *Builder) Build(logger logging.Logger) (*EtcdClientFactory, error) {
	if len(b.errors) > 0 {
		return nil, fmt.Errorf("etcd configuration errors: %w", errors.Join(b.errors...))
	}

	factory := NewEtcdClientFactory()
	for _, opts := range b.configs {
		if err := factory.Register(opts); err != nil {
			return nil, fmt.Errorf("failed to register etcd client '%s': %w", opts.Name, err)
		}

		logger.Info("etcd client registered",
			logging.Field{Key: "name", Value: opts.Name},
			logging.Field{Key: "endpoints", Value: fmt.Sprintf("%v", opts.Endpoints)})
	}
	return factory, nil
}

// RegisterServices 注册客户端工厂单例，"default" 客户端另注册为 *clientv3.Client
func (b *Builder) RegisterServices(sc *services.ServiceCollection, logger logging.Logger) error {
	factory, err := b.Build(logger)
	if err != nil {
		return err
	}
	if len(b.configs) == 0 {
		return nil
	}

	services.AddSingletonFactory(sc, func(services.ServiceProvider) (*EtcdClientFactory, error) {
		return factory, nil
	})
	for _, opts := range b.configs {
		if opts.Name == DefaultClientName {
			services.AddSingletonFactory(sc, func(sp services.ServiceProvider) (*clientv3.Client, error) {
				return Named(sp, DefaultClientName)
			})
		}
	}
	return nil
}

// Named 解析指定名称的 etcd 客户端
func Named(sp services.ServiceProvider, name string) (*clientv3.Client, error) {
	factory, err := services.Get[*EtcdClientFactory](sp)
	if err != nil {
		return nil, err
	}
	return factory.Get(name)
}
