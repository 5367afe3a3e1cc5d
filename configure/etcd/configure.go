package etcd

import (
	"github.com/gocrud/hostbridge/core"
	"github.com/gocrud/hostbridge/logging"
)

// Configure 返回 Etcd 配置器
// 使用示例: builder.Configure(etcd.Configure(func(b *etcd.Builder) { ... }))
func Configure(options func(*Builder)) core.Configurator {
	return func(ctx *core.BuildContext) {
		builder := NewBuilder()
		if options != nil {
			options(builder)
		}

		logger := ctx.GetLogger().WithCategory("Etcd")
		if err := builder.RegisterServices(ctx.Services(), logger); err != nil {
			logger.Fatal("Failed to build etcd clients",
				logging.Field{Key: "error", Value: err.Error()})
		}
	}
}
