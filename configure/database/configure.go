package database

import (
	"github.com/gocrud/hostbridge/core"
	"github.com/gocrud/hostbridge/logging"
)

// Configure 返回数据库配置器
func Configure(options func(*Builder)) core.Configurator {
	return func(ctx *core.BuildContext) {
		builder := NewBuilder(ctx.GetConfiguration())
		if options != nil {
			options(builder)
		}

		logger := ctx.GetLogger().WithCategory("Database")
		if err := builder.RegisterServices(ctx.Services(), logger); err != nil {
			logger.Fatal("Failed to build databases",
				logging.Field{Key: "error", Value: err.Error()})
		}
	}
}
