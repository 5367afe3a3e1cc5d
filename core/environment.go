package core

import "os"

// 预定义的环境名称
const (
	Development = "development"
	Staging     = "staging"
	Production  = "production"
)

// EnvironmentVariable 未显式调用 UseEnvironment 时读取的环境变量
const EnvironmentVariable = "HOSTBRIDGE_ENVIRONMENT"

// Environment 当前运行环境
type Environment interface {
	Name() string
	IsDevelopment() bool
	IsStaging() bool
	IsProduction() bool
}

type environment string

// NewEnvironment 创建环境，空名称视为 development
func NewEnvironment(name string) Environment {
	if name == "" {
		name = Development
	}
	return environment(name)
}

func environmentFromProcess() string {
	if name, ok := os.LookupEnv(EnvironmentVariable); ok && name != "" {
		return name
	}
	return Development
}

func (e environment) Name() string        { return string(e) }
func (e environment) IsDevelopment() bool { return e == Development }
func (e environment) IsStaging() bool     { return e == Staging }
func (e environment) IsProduction() bool  { return e == Production }
