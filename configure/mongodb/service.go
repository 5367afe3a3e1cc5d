package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gocrud/hostbridge/internal/lazy"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const disconnectTimeout = 10 * time.Second

// MongoOptions 单个命名客户端的连接参数
type MongoOptions struct {
	Name        string
	Uri         string
	Database    string // 可选，设置后可通过 MongoFactory.Database 获取
	Username    string
	Password    string
	MaxPoolSize uint64
	MinPoolSize uint64
	Timeout     time.Duration
}

func NewDefaultOptions(name string, uri string) *MongoOptions {
	return &MongoOptions{
		Name:        name,
		Uri:         uri,
		MaxPoolSize: 100,
		Timeout:     10 * time.Second,
	}
}

func (o *MongoOptions) Validate() error {
	if o.Name == "" {
		return errors.New("mongo client name is required")
	}
	if o.Uri == "" {
		return errors.New("mongo uri is required")
	}
	return nil
}

func (o *MongoOptions) clientOptions() *options.ClientOptions {
	opts := options.Client().ApplyURI(o.Uri)
	if o.Username != "" || o.Password != "" {
		opts.SetAuth(options.Credential{Username: o.Username, Password: o.Password})
	}
	if o.MaxPoolSize > 0 {
		opts.SetMaxPoolSize(o.MaxPoolSize)
	}
	if o.MinPoolSize > 0 {
		opts.SetMinPoolSize(o.MinPoolSize)
	}
	if o.Timeout > 0 {
		opts.SetConnectTimeout(o.Timeout)
	}
	return opts
}

// MongoFactory 按名称延迟创建 *mongo.Client，连接在第一次操作时才真正建立。
// mongo.Client 不实现 io.Closer，由工厂的 Close 负责断开。
type MongoFactory struct {
	clients *lazy.Registry[MongoOptions, *mongo.Client]
}

func NewMongoFactory() *MongoFactory {
	return &MongoFactory{
		clients: lazy.New("mongo client", func(_ string, o MongoOptions) (*mongo.Client, error) {
			return mongo.Connect(o.clientOptions())
		}),
	}
}

func (f *MongoFactory) Register(opts MongoOptions) error {
	if err := opts.Validate(); err != nil {
		return err
	}
	return f.clients.Register(opts.Name, opts)
}

func (f *MongoFactory) Names() []string { return f.clients.Names() }

func (f *MongoFactory) Get(name string) (*mongo.Client, error) {
	return f.clients.Get(name)
}

// Database 返回客户端配置的默认数据库
func (f *MongoFactory) Database(name string) (*mongo.Database, error) {
	client, err := f.Get(name)
	if err != nil {
		return nil, err
	}
	opts, _ := f.clients.Options(name)
	if opts.Database == "" {
		return nil, fmt.Errorf("mongo client %q has no default database", name)
	}
	return client.Database(opts.Database), nil
}

func (f *MongoFactory) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), disconnectTimeout)
	defer cancel()
	return f.clients.Close(func(c *mongo.Client) error {
		if err := c.Disconnect(ctx); err != nil && !errors.Is(err, mongo.ErrClientDisconnected) {
			return err
		}
		return nil
	})
}
