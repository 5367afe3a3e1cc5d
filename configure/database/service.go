package database

import (
	"errors"
	"fmt"
	"time"

	"github.com/gocrud/hostbridge/internal/lazy"
	"gorm.io/gorm"
)

// DatabaseOptions 单个命名数据库的连接参数
type DatabaseOptions struct {
	Name         string
	Dialector    gorm.Dialector
	GormConfig   *gorm.Config
	MaxIdleConns int
	MaxOpenConns int
	MaxLifetime  time.Duration
	// AutoMigrate 中的模型在首次打开时迁移
	AutoMigrate []any
}

func NewDefaultOptions(name string, dialector gorm.Dialector) *DatabaseOptions {
	return &DatabaseOptions{
		Name:         name,
		Dialector:    dialector,
		GormConfig:   &gorm.Config{},
		MaxIdleConns: 10,
		MaxOpenConns: 100,
		MaxLifetime:  time.Hour,
	}
}

func (o *DatabaseOptions) Validate() error {
	if o.Name == "" {
		return errors.New("database: name is empty")
	}
	if o.Dialector == nil {
		return fmt.Errorf("database %q: dialector is nil", o.Name)
	}
	return nil
}

// DatabaseFactory 按名称延迟打开 *gorm.DB
type DatabaseFactory struct {
	dbs *lazy.Registry[DatabaseOptions, *gorm.DB]
}

func NewDatabaseFactory() *DatabaseFactory {
	return &DatabaseFactory{dbs: lazy.New("database", open)}
}

func (f *DatabaseFactory) Register(opts DatabaseOptions) error {
	if err := opts.Validate(); err != nil {
		return err
	}
	return f.dbs.Register(opts.Name, opts)
}

func (f *DatabaseFactory) Names() []string { return f.dbs.Names() }

func (f *DatabaseFactory) Get(name string) (*gorm.DB, error) {
	return f.dbs.Get(name)
}

func open(_ string, opts DatabaseOptions) (*gorm.DB, error) {
	cfg := opts.GormConfig
	if cfg == nil {
		cfg = &gorm.Config{}
	}
	db, err := gorm.Open(opts.Dialector, cfg)
	if err != nil {
		return nil, err
	}

	pool, err := db.DB()
	if err != nil {
		return nil, err
	}
	pool.SetMaxIdleConns(opts.MaxIdleConns)
	pool.SetMaxOpenConns(opts.MaxOpenConns)
	pool.SetConnMaxLifetime(opts.MaxLifetime)

	if len(opts.AutoMigrate) == 0 {
		return db, nil
	}
	if err := db.AutoMigrate(opts.AutoMigrate...); err != nil {
		_ = pool.Close()
		return nil, fmt.Errorf("auto migrate: %w", err)
	}
	return db, nil
}

func (f *DatabaseFactory) Close() error {
	return f.dbs.Close(func(db *gorm.DB) error {
		pool, err := db.DB()
		if err != nil {
			return err
		}
		return pool.Close()
	})
}
