package logging

import (
	"fmt"
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LoggingBuilder 日志构建器
type LoggingBuilder struct {
	providers    []LoggerProvider
	minimumLevel LogLevel
	mu           sync.RWMutex
}

// NewLoggingBuilder 创建日志构建器
func NewLoggingBuilder() *LoggingBuilder {
	return &LoggingBuilder{
		providers:    make([]LoggerProvider, 0),
		minimumLevel: LogLevelInfo,
	}
}

// SetMinimumLevel 设置最小日志级别
func (b *LoggingBuilder) SetMinimumLevel(level LogLevel) *LoggingBuilder {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.minimumLevel = level
	return b
}

// AddProvider 添加日志提供者
func (b *LoggingBuilder) AddProvider(provider LoggerProvider) *LoggingBuilder {
	b.mu.Lock()
	defer b.mu.Unlock()
	provider.SetMinimumLevel(b.minimumLevel)
	b.providers = append(b.providers, provider)
	return b
}

// AddConsole 添加控制台日志
func (b *LoggingBuilder) AddConsole(options ...ConsoleLoggerOptions) *LoggingBuilder {
	opts := ConsoleLoggerOptions{
		IncludeTimestamp: true,
		TimestampFormat:  "2006-01-02 15:04:05",
		ColorOutput:      true,
		Output:           os.Stdout,
	}
	if len(options) > 0 {
		opts = options[0]
	}
	return b.AddProvider(NewConsoleLoggerProvider(opts))
}

// AddFile 添加 JSON 文件日志，文件无法打开时退回到标准错误输出
func (b *LoggingBuilder) AddFile(path string) *LoggingBuilder {
	provider, err := NewFileLoggerProvider(FileLoggerOptions{Path: path})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open log file: %v\n", err)
		return b.AddConsole(ConsoleLoggerOptions{Output: os.Stderr})
	}
	return b.AddProvider(provider)
}

// AddZap 将已有的 zap.Logger 作为提供者
func (b *LoggingBuilder) AddZap(z *zap.Logger) *LoggingBuilder {
	return b.AddProvider(&existingZapProvider{z: z})
}

// Build 构建日志工厂
func (b *LoggingBuilder) Build() LoggerFactory {
	b.mu.RLock()
	defer b.mu.RUnlock()

	factory := newLoggerFactory(b.minimumLevel)
	for _, provider := range b.providers {
		factory.AddProvider(provider)
	}
	return factory
}

// existingZapProvider 使用外部 zap.Logger 的 core，其级别由外部控制
type existingZapProvider struct {
	z *zap.Logger
}

func (p *existingZapProvider) Core() zapcore.Core {
	return p.z.Core()
}

func (p *existingZapProvider) SetMinimumLevel(LogLevel) {}

func (p *existingZapProvider) Sync() error {
	return p.z.Sync()
}
