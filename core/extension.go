package core

import (
	"fmt"

	"github.com/gocrud/hostbridge/services"
)

// Extension 可复用的应用程序扩展，需至少实现 ServiceConfigurator 或 AppConfigurator
type Extension interface {
	Name() string
}

// ServiceConfigurator 向服务集合注册描述符
type ServiceConfigurator interface {
	ConfigureServices(services *services.ServiceCollection)
}

// AppConfigurator 在构建上下文中添加选项、托管服务等
type AppConfigurator interface {
	ConfigureBuilder(ctx *BuildContext)
}

// splitExtension 两个接口都没有实现时 panic，通常是方法签名写错了
func splitExtension(ext Extension) (ServiceConfigurator, AppConfigurator) {
	sc, _ := ext.(ServiceConfigurator)
	ac, _ := ext.(AppConfigurator)
	if sc == nil && ac == nil {
		panic(fmt.Sprintf("core: extension %q implements neither ServiceConfigurator nor AppConfigurator", ext.Name()))
	}
	return sc, ac
}
