package hosting

import (
	"context"
	"sync"
	"time"

	"github.com/gocrud/hostbridge/logging"
	"github.com/gocrud/hostbridge/services"
)

// BackgroundService 可嵌入的托管服务骨架：Start 阻塞到 Stop 或 ctx 结束，
// Stop 等待 Start 返回或 Stop 的 ctx 超时。
type BackgroundService struct {
	name   string
	logger logging.Logger

	quit     chan struct{}
	quitOnce sync.Once
	finished chan struct{}
	doneOnce sync.Once
}

func NewBackgroundService(name string, logger logging.Logger) *BackgroundService {
	return &BackgroundService{
		name:     name,
		logger:   logger,
		quit:     make(chan struct{}),
		finished: make(chan struct{}),
	}
}

func (s *BackgroundService) Name() string { return s.name }

func (s *BackgroundService) Start(ctx context.Context) error {
	defer s.markFinished()
	select {
	case <-s.quit:
	case <-ctx.Done():
	}
	return nil
}

func (s *BackgroundService) Stop(ctx context.Context) error {
	s.quitOnce.Do(func() { close(s.quit) })
	select {
	case <-s.finished:
		return nil
	case <-ctx.Done():
		s.logger.Warn("Background service did not finish before stop deadline",
			logging.Field{Key: "service", Value: s.name})
		return ctx.Err()
	}
}

// Quit 在 Stop 被调用后关闭，嵌入者的循环应监听它
func (s *BackgroundService) Quit() <-chan struct{} { return s.quit }

func (s *BackgroundService) markFinished() {
	s.doneOnce.Do(func() { close(s.finished) })
}

// TimedHostedService 每隔 interval 执行一次 task，task 的错误只记录日志
type TimedHostedService struct {
	*BackgroundService
	interval time.Duration
	task     func(ctx context.Context) error
}

func NewTimedHostedService(name string, interval time.Duration, task func(ctx context.Context) error, logger logging.Logger) *TimedHostedService {
	return &TimedHostedService{
		BackgroundService: NewBackgroundService(name, logger),
		interval:          interval,
		task:              task,
	}
}

// NewScopedTimedService 每次执行都创建新的解析作用域，task 返回后释放
func NewScopedTimedService(name string, interval time.Duration, scopes services.ServiceScopeFactory,
	task func(ctx context.Context, sp services.ServiceProvider) error, logger logging.Logger) *TimedHostedService {
	return NewTimedHostedService(name, interval, func(ctx context.Context) error {
		scope := scopes.CreateScope(ctx)
		defer scope.Dispose()
		return task(scope.Context(), scope.ServiceProvider())
	}, logger)
}

func (s *TimedHostedService) Start(ctx context.Context) error {
	defer s.markFinished()

	log := s.logger.WithFields(logging.Field{Key: "service", Value: s.name})
	log.Info("Timed service running", logging.Field{Key: "interval", Value: s.interval.String()})

	tick := time.NewTicker(s.interval)
	defer tick.Stop()
	for {
		select {
		case <-s.quit:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		case <-tick.C:
			if err := s.task(ctx); err != nil {
				log.Error("Timed service run failed", logging.Field{Key: "error", Value: err})
			}
		}
	}
}
