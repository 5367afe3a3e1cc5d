package cron

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gocrud/hostbridge/logging"
	"github.com/robfig/cron/v3"
)

// schedulerSettings 由 Builder 填充
type schedulerSettings struct {
	location string
	seconds  bool
	verbose  bool // 把 cron 库自己的调度日志转发到 Debug
}

// service 把 *cron.Cron 包装为托管服务
type service struct {
	cron   *cron.Cron
	logger logging.Logger

	mu      sync.RWMutex
	entries map[string]cron.EntryID
}

func newService(logger logging.Logger, settings schedulerSettings) (*service, error) {
	loc, err := time.LoadLocation(settings.location)
	if err != nil {
		return nil, fmt.Errorf("cron: load location %q: %w", settings.location, err)
	}

	adapter := cronLogger{logger}
	opts := []cron.Option{
		cron.WithLocation(loc),
		cron.WithChain(cron.Recover(adapter)),
	}
	if settings.verbose {
		opts = append(opts, cron.WithLogger(adapter))
	}
	if settings.seconds {
		opts = append(opts, cron.WithSeconds())
	}

	return &service{
		cron:    cron.New(opts...),
		logger:  logger,
		entries: make(map[string]cron.EntryID),
	}, nil
}

func (s *service) Name() string { return "cron" }

func (s *service) addJob(spec, name string, run func()) error {
	log := s.logger.WithFields(logging.Field{Key: "job", Value: name})

	s.mu.Lock()
	defer s.mu.Unlock()
	id, err := s.cron.AddFunc(spec, func() {
		started := time.Now()
		run()
		log.Debug("Cron job finished", logging.Field{Key: "elapsed", Value: time.Since(started).String()})
	})
	if err != nil {
		return fmt.Errorf("cron: job %q: %w", name, err)
	}
	s.entries[name] = id
	log.Info("Cron job scheduled", logging.Field{Key: "spec", Value: spec})
	return nil
}

// runNow 在调用方 goroutine 中立即执行一次，名称未知时返回 false
func (s *service) runNow(name string) bool {
	s.mu.RLock()
	id, ok := s.entries[name]
	s.mu.RUnlock()
	if ok {
		s.cron.Entry(id).WrappedJob.Run()
	}
	return ok
}

// Start 启动调度器后阻塞到 ctx 结束
func (s *service) Start(ctx context.Context) error {
	s.mu.RLock()
	s.logger.Info("Cron scheduler starting", logging.Field{Key: "jobs", Value: len(s.entries)})
	s.mu.RUnlock()

	s.cron.Start()
	<-ctx.Done()
	return nil
}

// Stop 等待正在执行的任务结束
func (s *service) Stop(ctx context.Context) error {
	select {
	case <-s.cron.Stop().Done():
		s.logger.Info("Cron scheduler stopped")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Cron jobs still running at stop deadline")
		return ctx.Err()
	}
}

// cronLogger 实现 cron.Logger
type cronLogger struct {
	logger logging.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug(msg, pairs(keysAndValues)...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error(msg, append(pairs(keysAndValues), logging.Field{Key: "error", Value: err})...)
}

func pairs(kv []any) []logging.Field {
	fields := make([]logging.Field, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		fields = append(fields, logging.Field{Key: fmt.Sprint(kv[i]), Value: kv[i+1]})
	}
	return fields
}
