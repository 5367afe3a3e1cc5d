package database

import (
	"errors"
	"fmt"

	"github.com/gocrud/hostbridge/config"
	"github.com/gocrud/hostbridge/logging"
	"github.com/gocrud/hostbridge/services"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// DefaultDatabaseName 单独注册为 *gorm.DB 的数据库名称
const DefaultDatabaseName = "default"

// DatabaseSection 配置文件中的数据库节
type DatabaseSection struct {
	Driver       string `json:"driver" yaml:"driver"`
	DSN          string `json:"dsn" yaml:"dsn"`
	MaxIdleConns int    `json:"max_idle_conns" yaml:"max_idle_conns"`
	MaxOpenConns int    `json:"max_open_conns" yaml:"max_open_conns"`
}

// Builder 数据库配置构建器
type Builder struct {
	configuration config.Configuration
	configs       []DatabaseOptions
	errors        []error
}

// NewBuilder 创建构建器，cfg 可以为 nil
func NewBuilder(cfg config.Configuration) *Builder {
	return &Builder{configuration: cfg}
}

// Configuration 返回应用配置
func (b *Builder) Configuration() config.Configuration {
	return b.configuration
}

// Add 添加数据库配置
// name: 实例名称
// dialector: GORM 驱动 (e.g. sqlite.Open(dsn))
// configure: 可选的配置函数
func (b *Builder) Add(name string, dialector gorm.Dialector, configure func(*DatabaseOptions)) *Builder {
	for _, c := range b.configs {
		if c.Name == name {
			b.errors = append(b.errors, fmt.Errorf("database '%s' already configured", name))
			return b
		}
	}

	opts := NewDefaultOptions(name, dialector)
	if configure != nil {
		configure(opts)
	}
	if err := opts.Validate(); err != nil {
		b.errors = append(b.errors, fmt.Errorf("invalid configuration for '%s': %w", name, err))
		return b
	}

	b.configs = append(b.configs, *opts)
	return b
}

// AddFromConfig 从配置节读取连接信息，目前支持 sqlite 驱动
func (b *Builder) AddFromConfig(name, section string, configure func(*DatabaseOptions)) *Builder {
	if b.configuration == nil {
		b.errors = append(b.errors, fmt.Errorf("database '%s': no configuration available", name))
		return b
	}
	sec, err := config.Load[DatabaseSection](b.configuration, section)
	if err != nil {
		b.errors = append(b.errors, fmt.Errorf("database '%s': %w", name, err))
		return b
	}

	var dialector gorm.Dialector
	switch sec.Driver {
	case "", "sqlite":
		if sec.DSN != "" {
			dialector = sqlite.Open(sec.DSN)
		}
	default:
		b.errors = append(b.errors, fmt.Errorf("database '%s': unsupported driver %q", name, sec.Driver))
		return b
	}

	return b.Add(name, dialector, func(o *DatabaseOptions) {
		if sec.MaxIdleConns > 0 {
			o.MaxIdleConns = sec.MaxIdleConns
		}
		if sec.MaxOpenConns > 0 {
			o.MaxOpenConns = sec.MaxOpenConns
		}
		if configure != nil {
			configure(o)
		}
	})
}

// Build 构建数据库工厂
func (b *Builder) Build(logger logging.Logger) (*DatabaseFactory, error) {
	if len(b.errors) > 0 {
		return nil, fmt.Errorf("database configuration errors: %w", errors.Join(b.errors...))
	}

	factory := NewDatabaseFactory()
	for _, opts := range b.configs {
		if err := factory.Register(opts); err != nil {
			return nil, fmt.Errorf("failed to register database '%s': %w", opts.Name, err)
		}

		logger.Info("Database registered",
			logging.Field{Key: "name", Value: opts.Name},
			logging.Field{Key: "dialector", Value: opts.Dialector.Name()})
	}
	return factory, nil
}

// RegisterServices 注册数据库工厂单例。
// 存在 "default" 数据库时，额外注册 *gorm.DB 单例和 Scoped 的 *UnitOfWork。
func (b *Builder) RegisterServices(sc *services.ServiceCollection, logger logging.Logger) error {
	factory, err := b.Build(logger)
	if err != nil {
		return err
	}
	if len(b.configs) == 0 {
		return nil
	}

	services.AddSingletonFactory(sc, func(services.ServiceProvider) (*DatabaseFactory, error) {
		return factory, nil
	})

	for _, opts := range b.configs {
		if opts.Name != DefaultDatabaseName {
			continue
		}
		services.AddSingletonFactory(sc, func(sp services.ServiceProvider) (*gorm.DB, error) {
			return Named(sp, DefaultDatabaseName)
		})
		services.AddScopedFactory(sc, func(sp services.ServiceProvider) (*UnitOfWork, error) {
			db, err := services.Get[*gorm.DB](sp)
			if err != nil {
				return nil, err
			}
			return NewUnitOfWork(db), nil
		})
	}
	return nil
}

// Named 从服务提供者解析指定名称的数据库
func Named(sp services.ServiceProvider, name string) (*gorm.DB, error) {
	factory, err := services.Get[*DatabaseFactory](sp)
	if err != nil {
		return nil, err
	}
	return factory.Get(name)
}
