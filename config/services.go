package config

import (
	"github.com/gocrud/hostbridge/services"
)

// AddConfiguration 将配置注册为单例
func AddConfiguration(sc *services.ServiceCollection, cfg Configuration) *services.ServiceCollection {
	return services.AddInstance[Configuration](sc, cfg)
}

// AddOptions 绑定配置节并注册三种选项：
//   - Option[T]：单例，首次解析时的值
//   - OptionSnapshot[T]：每个作用域一份快照
//   - OptionMonitor[T]：单例，总是返回最新值
func AddOptions[T any](sc *services.ServiceCollection, cfg Configuration, section string) *OptionsCache[T] {
	cache := NewOptionsCache[T](cfg, section)

	services.AddSingletonFactory[Option[T]](sc, func(services.ServiceProvider) (Option[T], error) {
		return NewOption(cache.Get()), nil
	})
	services.AddScopedFactory[OptionSnapshot[T]](sc, func(services.ServiceProvider) (OptionSnapshot[T], error) {
		return NewOptionSnapshot(cache.Snapshot()), nil
	})
	services.AddInstance[OptionMonitor[T]](sc, NewOptionMonitor(cache))
	return cache
}
