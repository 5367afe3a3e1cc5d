package mongodb

import (
	"github.com/gocrud/hostbridge/core"
	"github.com/gocrud/hostbridge/logging"
)

// Configure 返回 MongoDB 配置器
func Configure(options func(*Builder)) core.Configurator {
	return func(ctx *core.BuildContext) {
		builder := NewBuilder()
		if options != nil {
			options(builder)
		}

		logger := ctx.GetLogger().WithCategory("MongoDB")
		if err := builder.RegisterServices(ctx.Services(), logger); err != nil {
			logger.Fatal("Failed to build mongodb clients",
				logging.Field{Key: "error", Value: err.Error()})
		}
	}
}
