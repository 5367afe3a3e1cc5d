package logging

import (
	"fmt"
	"io"
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// zapTraceLevel zap 没有 Trace 级别，使用比 Debug 更低的自定义级别
const zapTraceLevel = zapcore.DebugLevel - 1

func toZapLevel(level LogLevel) zapcore.Level {
	switch level {
	case LogLevelTrace:
		return zapTraceLevel
	case LogLevelDebug:
		return zapcore.DebugLevel
	case LogLevelInfo:
		return zapcore.InfoLevel
	case LogLevelWarn:
		return zapcore.WarnLevel
	case LogLevelError:
		return zapcore.ErrorLevel
	default:
		return zapcore.FatalLevel
	}
}

func fromZapLevel(level zapcore.Level) LogLevel {
	switch {
	case level <= zapTraceLevel:
		return LogLevelTrace
	case level == zapcore.DebugLevel:
		return LogLevelDebug
	case level == zapcore.InfoLevel:
		return LogLevelInfo
	case level == zapcore.WarnLevel:
		return LogLevelWarn
	case level == zapcore.ErrorLevel:
		return LogLevelError
	default:
		return LogLevelFatal
	}
}

func levelEncoder(color bool) zapcore.LevelEncoder {
	return func(l zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
		text := fromZapLevel(l).String()
		if color {
			text = colorize(fromZapLevel(l), text)
		}
		enc.AppendString(text)
	}
}

func toZapFields(fields []Field) []zap.Field {
	out := make([]zap.Field, 0, len(fields))
	for _, f := range fields {
		if err, ok := f.Value.(error); ok {
			out = append(out, zap.NamedError(f.Key, err))
			continue
		}
		out = append(out, zap.Any(f.Key, f.Value))
	}
	return out
}

// deferExit 让 Fatal 只写入，由 Logger.Fatal 统一退出进程
type deferExit struct{}

func (deferExit) OnWrite(*zapcore.CheckedEntry, []zapcore.Field) {}

// zapLogger 基于 zap 的 Logger 实现
type zapLogger struct {
	base     *zap.Logger
	z        *zap.Logger
	category string
	fields   []Field
}

// NewZapLogger 将已有的 zap.Logger 适配为 Logger
func NewZapLogger(z *zap.Logger) Logger {
	base := z.WithOptions(zap.WithFatalHook(deferExit{}))
	return &zapLogger{base: base, z: base}
}

func (l *zapLogger) Trace(msg string, fields ...Field) {
	l.Log(LogLevelTrace, msg, fields...)
}

func (l *zapLogger) Debug(msg string, fields ...Field) {
	l.Log(LogLevelDebug, msg, fields...)
}

func (l *zapLogger) Info(msg string, fields ...Field) {
	l.Log(LogLevelInfo, msg, fields...)
}

func (l *zapLogger) Warn(msg string, fields ...Field) {
	l.Log(LogLevelWarn, msg, fields...)
}

func (l *zapLogger) Error(msg string, fields ...Field) {
	l.Log(LogLevelError, msg, fields...)
}

func (l *zapLogger) Fatal(msg string, fields ...Field) {
	l.Log(LogLevelFatal, msg, fields...)
	_ = l.z.Sync()
	os.Exit(1)
}

func (l *zapLogger) Log(level LogLevel, msg string, fields ...Field) {
	if ce := l.z.Check(toZapLevel(level), msg); ce != nil {
		ce.Write(toZapFields(fields)...)
	}
}

func (l *zapLogger) WithFields(fields ...Field) Logger {
	all := appendFields(l.fields, fields)
	return &zapLogger{
		base:     l.base,
		z:        l.z.With(toZapFields(fields)...),
		category: l.category,
		fields:   all,
	}
}

func (l *zapLogger) WithCategory(category string) Logger {
	return &zapLogger{
		base:     l.base,
		z:        l.base.Named(category).With(toZapFields(l.fields)...),
		category: category,
		fields:   l.fields,
	}
}

// zapProvider 基于单个 zapcore.Core 的提供者，最小级别由 AtomicLevel 控制
type zapProvider struct {
	level zap.AtomicLevel
	core  zapcore.Core
	out   zapcore.WriteSyncer
}

func newZapProvider(enc zapcore.Encoder, out zapcore.WriteSyncer) *zapProvider {
	level := zap.NewAtomicLevelAt(zapcore.InfoLevel)
	return &zapProvider{level: level, core: zapcore.NewCore(enc, out, level), out: out}
}

func (p *zapProvider) Core() zapcore.Core {
	return p.core
}

func (p *zapProvider) SetMinimumLevel(level LogLevel) {
	p.level.SetLevel(toZapLevel(level))
}

func (p *zapProvider) Sync() error {
	return p.out.Sync()
}

// ConsoleLoggerOptions 控制台日志选项
type ConsoleLoggerOptions struct {
	IncludeTimestamp bool
	TimestampFormat  string
	ColorOutput      bool
	Output           io.Writer
}

// ConsoleLoggerProvider 控制台日志提供者，使用 zap 的 console 编码器
type ConsoleLoggerProvider struct {
	*zapProvider
}

func NewConsoleLoggerProvider(options ConsoleLoggerOptions) *ConsoleLoggerProvider {
	if options.Output == nil {
		options.Output = os.Stdout
	}

	cfg := zap.NewDevelopmentEncoderConfig()
	cfg.EncodeLevel = levelEncoder(options.ColorOutput)
	cfg.CallerKey = zapcore.OmitKey
	cfg.StacktraceKey = zapcore.OmitKey
	if options.IncludeTimestamp {
		format := options.TimestampFormat
		if format == "" {
			format = "2006-01-02 15:04:05"
		}
		cfg.EncodeTime = zapcore.TimeEncoderOfLayout(format)
	} else {
		cfg.TimeKey = zapcore.OmitKey
	}

	out := zapcore.Lock(zapcore.AddSync(options.Output))
	return &ConsoleLoggerProvider{newZapProvider(zapcore.NewConsoleEncoder(cfg), out)}
}

// FileLoggerOptions 文件日志选项
type FileLoggerOptions struct {
	Path string
}

// FileLoggerProvider 文件日志提供者，每行一个 JSON 对象
type FileLoggerProvider struct {
	*zapProvider
	file *os.File
}

var (
	openFilesMu sync.Mutex
	openFiles   = make(map[string]*os.File)
)

func NewFileLoggerProvider(options FileLoggerOptions) (*FileLoggerProvider, error) {
	openFilesMu.Lock()
	defer openFilesMu.Unlock()

	file, ok := openFiles[options.Path]
	if !ok {
		var err error
		file, err = os.OpenFile(options.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("logging: open log file: %w", err)
		}
		openFiles[options.Path] = file
	}

	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncodeLevel = levelEncoder(false)
	cfg.NameKey = "category"
	p := newZapProvider(zapcore.NewJSONEncoder(cfg), zapcore.Lock(file))
	return &FileLoggerProvider{zapProvider: p, file: file}, nil
}

// colorize 为日志级别添加颜色
func colorize(level LogLevel, text string) string {
	const (
		reset   = "\033[0m"
		gray    = "\033[90m"
		cyan    = "\033[36m"
		green   = "\033[32m"
		yellow  = "\033[33m"
		red     = "\033[31m"
		magenta = "\033[35m"
	)

	switch level {
	case LogLevelTrace:
		return gray + text + reset
	case LogLevelDebug:
		return cyan + text + reset
	case LogLevelInfo:
		return green + text + reset
	case LogLevelWarn:
		return yellow + text + reset
	case LogLevelError:
		return red + text + reset
	case LogLevelFatal:
		return magenta + text + reset
	default:
		return text
	}
}
