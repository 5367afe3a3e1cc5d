package hosting

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/gocrud/hostbridge/logging"
)

// HostedService 随应用启动和停止的长期运行组件。
// Start 在独立的 goroutine 中调用，可以阻塞到 ctx 结束；Stop 负责额外的清理。
type HostedService interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// Named 托管服务可以实现它以在日志中显示名称
type Named interface {
	Name() string
}

func nameOf(svc HostedService) string {
	if n, ok := svc.(Named); ok {
		return n.Name()
	}
	return fmt.Sprintf("%T", svc)
}

// HostedServiceManager 按添加顺序启动托管服务，按相反顺序停止
type HostedServiceManager struct {
	logger logging.Logger

	mu      sync.Mutex
	members []HostedService
	active  sync.WaitGroup
}

func NewHostedServiceManager(logger logging.Logger) *HostedServiceManager {
	return &HostedServiceManager{logger: logger}
}

func (m *HostedServiceManager) Add(svc HostedService) {
	m.mu.Lock()
	m.members = append(m.members, svc)
	m.mu.Unlock()
}

func (m *HostedServiceManager) snapshot() []HostedService {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]HostedService(nil), m.members...)
}

// StartAll 返回的通道只接收 Start 的失败，ctx 结束导致的返回不算失败
func (m *HostedServiceManager) StartAll(ctx context.Context) <-chan error {
	members := m.snapshot()
	failures := make(chan error, len(members))
	m.logger.Info("Starting hosted services", logging.Field{Key: "count", Value: len(members)})

	for _, svc := range members {
		m.active.Add(1)
		go func() {
			defer m.active.Done()
			if err := m.run(ctx, svc); err != nil {
				failures <- err
			}
		}()
	}
	return failures
}

func (m *HostedServiceManager) run(ctx context.Context, svc HostedService) error {
	name := nameOf(svc)
	log := m.logger.WithFields(logging.Field{Key: "service", Value: name})
	log.Debug("Hosted service starting")

	err := svc.Start(ctx)
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		log.Debug("Hosted service returned")
		return nil
	}
	log.Error("Hosted service failed", logging.Field{Key: "error", Value: err})
	return fmt.Errorf("%s: %w", name, err)
}

// StopAll 并发调用每个服务的 Stop，返回合并后的错误
func (m *HostedServiceManager) StopAll(ctx context.Context) error {
	members := m.snapshot()
	m.logger.Info("Stopping hosted services", logging.Field{Key: "count", Value: len(members)})

	errs := make([]error, len(members))
	var wg sync.WaitGroup
	for i := len(members) - 1; i >= 0; i-- {
		wg.Add(1)
		go func() {
			defer wg.Done()
			name := nameOf(members[i])
			if err := members[i].Stop(ctx); err != nil {
				m.logger.Error("Hosted service stop failed",
					logging.Field{Key: "service", Value: name},
					logging.Field{Key: "error", Value: err})
				errs[i] = fmt.Errorf("%s: %w", name, err)
			}
		}()
	}
	wg.Wait()
	return errors.Join(errs...)
}

// Wait 阻塞到所有 Start 都已返回
func (m *HostedServiceManager) Wait() {
	m.active.Wait()
}
