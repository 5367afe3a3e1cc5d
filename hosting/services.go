package hosting

import "github.com/gocrud/hostbridge/services"

// AddHostedService 将 T 注册为单例托管服务，应用启动时通过 []HostedService 一并解析。
// T 通过结构体字段注入创建。
func AddHostedService[T HostedService](sc *services.ServiceCollection) *services.ServiceCollection {
	return services.AddSingleton[HostedService, T](sc)
}
