package logging

import (
	"errors"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogLevel 日志级别
type LogLevel int

const (
	LogLevelTrace LogLevel = iota
	LogLevelDebug
	LogLevelInfo
	LogLevelWarn
	LogLevelError
	LogLevelFatal
)

var levelNames = [...]string{"TRACE", "DEBUG", "INFO", "WARN", "ERROR", "FATAL"}

func (l LogLevel) String() string {
	if l < LogLevelTrace || l > LogLevelFatal {
		return "UNKNOWN"
	}
	return levelNames[l]
}

// Field 日志字段
type Field struct {
	Key   string
	Value any
}

// Logger 带分类的结构化日志接口
type Logger interface {
	Trace(msg string, fields ...Field)
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	// Fatal 写入后退出进程
	Fatal(msg string, fields ...Field)
	Log(level LogLevel, msg string, fields ...Field)
	WithFields(fields ...Field) Logger
	WithCategory(category string) Logger
}

// LoggerFactory 按分类创建 Logger，所有 Logger 写入同一组提供者
type LoggerFactory interface {
	CreateLogger(category string) Logger
	AddProvider(provider LoggerProvider)
	SetMinimumLevel(level LogLevel)
	// Sync 刷新所有提供者的缓冲
	Sync() error
}

// LoggerProvider 向工厂贡献一个 zapcore.Core
type LoggerProvider interface {
	Core() zapcore.Core
	SetMinimumLevel(level LogLevel)
	Sync() error
}

type loggerFactory struct {
	mu        sync.RWMutex
	providers []LoggerProvider
	level     zap.AtomicLevel
}

func newLoggerFactory(level LogLevel) *loggerFactory {
	return &loggerFactory{level: zap.NewAtomicLevelAt(toZapLevel(level))}
}

// CreateLogger 只包含调用时已添加的提供者
func (f *loggerFactory) CreateLogger(category string) Logger {
	f.mu.RLock()
	cores := make([]zapcore.Core, 0, len(f.providers))
	for _, p := range f.providers {
		cores = append(cores, p.Core())
	}
	f.mu.RUnlock()

	core := levelFilter{Core: zapcore.NewTee(cores...), level: f.level}
	l := NewZapLogger(zap.New(core))
	if category == "" {
		return l
	}
	return l.WithCategory(category)
}

func (f *loggerFactory) AddProvider(provider LoggerProvider) {
	f.mu.Lock()
	defer f.mu.Unlock()
	provider.SetMinimumLevel(fromZapLevel(f.level.Level()))
	f.providers = append(f.providers, provider)
}

func (f *loggerFactory) SetMinimumLevel(level LogLevel) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.level.SetLevel(toZapLevel(level))
	for _, p := range f.providers {
		p.SetMinimumLevel(level)
	}
}

func (f *loggerFactory) Sync() error {
	f.mu.RLock()
	defer f.mu.RUnlock()

	var errs []error
	for _, p := range f.providers {
		errs = append(errs, p.Sync())
	}
	return errors.Join(errs...)
}

// levelFilter 在提供者自身级别之上再施加工厂的最小级别，
// 外部传入的 zap.Logger 不受 SetMinimumLevel 影响时也能被过滤
type levelFilter struct {
	zapcore.Core
	level zap.AtomicLevel
}

func (c levelFilter) Enabled(l zapcore.Level) bool {
	return c.level.Enabled(l) && c.Core.Enabled(l)
}

func (c levelFilter) With(fields []zapcore.Field) zapcore.Core {
	return levelFilter{Core: c.Core.With(fields), level: c.level}
}

func (c levelFilter) Check(e zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if !c.level.Enabled(e.Level) {
		return ce
	}
	return c.Core.Check(e, ce)
}

// appendFields 复制后追加，派生的 Logger 之间不共享底层数组
func appendFields(base, extra []Field) []Field {
	if len(extra) == 0 {
		return base
	}
	out := make([]Field, 0, len(base)+len(extra))
	out = append(out, base...)
	return append(out, extra...)
}

// NewLogger 创建写入标准输出的默认 Logger
func NewLogger() Logger {
	return NewLoggingBuilder().AddConsole().Build().CreateLogger("default")
}

type nopLogger struct{}

// Nop 返回丢弃所有日志的 Logger
func Nop() Logger { return nopLogger{} }

func (nopLogger) Trace(string, ...Field)         {}
func (nopLogger) Debug(string, ...Field)         {}
func (nopLogger) Info(string, ...Field)          {}
func (nopLogger) Warn(string, ...Field)          {}
func (nopLogger) Error(string, ...Field)         {}
func (nopLogger) Fatal(string, ...Field)         {}
func (nopLogger) Log(LogLevel, string, ...Field) {}
func (n nopLogger) WithFields(...Field) Logger   { return n }
func (n nopLogger) WithCategory(string) Logger   { return n }
