package etcd

import (
	"errors"
	"time"

	"github.com/gocrud/hostbridge/internal/lazy"
	clientv3 "go.etcd.io/etcd/client/v3"
)

// EtcdClientOptions 单个命名客户端的连接参数，零值字段使用 clientv3 的默认值
type EtcdClientOptions struct {
	Name               string
	Endpoints          []string
	DialTimeout        time.Duration
	Username           string
	Password           string
	AutoSyncInterval   time.Duration
	MaxCallSendMsgSize int
	MaxCallRecvMsgSize int
}

func NewDefaultOptions(name string) *EtcdClientOptions {
	return &EtcdClientOptions{
		Name:        name,
		Endpoints:   []string{"localhost:2379"},
		DialTimeout: 5 * time.Second,
	}
}

func (o *EtcdClientOptions) Validate() error {
	switch {
	case o.Name == "":
		return errors.New("etcd: client name is empty")
	case len(o.Endpoints) == 0:
		return errors.New("etcd: no endpoints")
	case o.DialTimeout <= 0:
		return errors.New("etcd: dial timeout must be positive")
	}
	return nil
}

func (o *EtcdClientOptions) toConfig() clientv3.Config {
	cfg := clientv3.Config{
		Endpoints:          o.Endpoints,
		DialTimeout:        o.DialTimeout,
		AutoSyncInterval:   o.AutoSyncInterval,
		MaxCallSendMsgSize: o.MaxCallSendMsgSize,
		MaxCallRecvMsgSize: o.MaxCallRecvMsgSize,
	}
	if o.Username != "" {
		cfg.Username, cfg.Password = o.Username, o.Password
	}
	return cfg
}

// EtcdClientFactory 按名称延迟创建 *clientv3.Client
type EtcdClientFactory struct {
	clients *lazy.Registry[EtcdClientOptions, *clientv3.Client]
}

func NewEtcdClientFactory() *EtcdClientFactory {
	return &EtcdClientFactory{
		clients: lazy.New("etcd client", func(_ string, o EtcdClientOptions) (*clientv3.Client, error) {
			return clientv3.New(o.toConfig())
		}),
	}
}

func (f *EtcdClientFactory) Register(opts EtcdClientOptions) error {
	if err := opts.Validate(); err != nil {
		return err
	}
	return f.clients.Register(opts.Name, opts)
}

func (f *EtcdClientFactory) Names() []string { return f.clients.Names() }

func (f *EtcdClientFactory) Get(name string) (*clientv3.Client, error) {
	return f.clients.Get(name)
}

// Close 跳过上下文已取消的客户端，它们已经被容器关闭
func (f *EtcdClientFactory) Close() error {
	return f.clients.Close(func(c *clientv3.Client) error {
		if c.Ctx().Err() != nil {
			return nil
		}
		return c.Close()
	})
}
