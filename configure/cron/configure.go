package cron

import (
	"github.com/gocrud/hostbridge/core"
	"github.com/gocrud/hostbridge/hosting"
	"github.com/gocrud/hostbridge/services"
)

// Configure 返回 Cron 配置器
// 使用示例: builder.Configure(cron.Configure(func(b *cron.Builder) { ... }))
func Configure(options func(*Builder)) core.Configurator {
	return func(ctx *core.BuildContext) {
		builder := NewBuilder()
		if options != nil {
			options(builder)
		}
		builder.RegisterServices(ctx.Services())

		logger := ctx.GetLogger().WithCategory("Cron")
		ctx.AddHostedServiceFactory(func(sp services.ServiceProvider) (hosting.HostedService, error) {
			scopes, err := services.Get[services.ServiceScopeFactory](sp)
			if err != nil {
				return nil, err
			}
			return builder.build(scopes, logger)
		})

		ctx.GetLogger().Info("Cron service configured")
	}
}
