package web

import (
	"github.com/gocrud/hostbridge/core"
	"github.com/gocrud/hostbridge/hosting"
	"github.com/gocrud/hostbridge/logging"
	"github.com/gocrud/hostbridge/services"
)

// Configure 返回 Web 配置器
// 使用示例: builder.Configure(web.Configure(func(b *web.Builder) { ... }))
func Configure(options func(*Builder)) core.Configurator {
	return func(ctx *core.BuildContext) {
		builder := NewBuilder(ctx.GetLogger().WithCategory("Web"))
		if options != nil {
			options(builder)
		}
		builder.RegisterServices(ctx.Services())

		// 容器构建后再创建主机，以便解析控制器和作用域工厂
		ctx.AddHostedServiceFactory(func(sp services.ServiceProvider) (hosting.HostedService, error) {
			return builder.Build(sp)
		})

		ctx.GetLogger().Info("Web host configured",
			logging.Field{Key: "port", Value: builder.port})
	}
}
