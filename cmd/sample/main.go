package main

import (
	"context"

	"github.com/gocrud/hostbridge"
	"github.com/gocrud/hostbridge/config"
	"github.com/gocrud/hostbridge/configure/cron"
	"github.com/gocrud/hostbridge/configure/web"
	"github.com/gocrud/hostbridge/logging"
)

func main() {
	app := hostbridge.NewApplicationBuilder().
		ConfigureConfiguration(func(cb *config.ConfigurationBuilder) {
			cb.AddYamlFile("appsettings.yaml", true).
				AddEnvironmentVariables("SAMPLE_")
		}).
		ConfigureLogging(func(lb *logging.LoggingBuilder) {
			lb.AddConsole()
		}).
		ConfigureServices(registerServices).
		Configure(
			web.Configure(func(b *web.Builder) {
				b.UsePort(5000)
				mountRoutes(b)
			}),
			cron.Configure(func(b *cron.Builder) {
				b.AddJobWithDI("@every 1m", "heartbeat", func(ctx context.Context, svc ITestService, logger logging.Logger) {
					logger.Debug("heartbeat", logging.Field{Key: "sum", Value: svc.Add(1, 1)})
				})
			}),
		).
		Build()

	if err := app.Run(); err != nil {
		app.Logger().Fatal("Application stopped with error", logging.Field{Key: "error", Value: err.Error()})
	}
}
