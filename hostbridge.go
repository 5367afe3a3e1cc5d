package hostbridge

import "github.com/gocrud/hostbridge/core"

// NewApplicationBuilder 创建应用程序构建器
// 这是创建应用程序的入口点
func NewApplicationBuilder() *core.ApplicationBuilder {
	return core.NewApplicationBuilder()
}
