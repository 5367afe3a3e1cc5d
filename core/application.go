package core

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"reflect"
	"sync"
	"syscall"
	"time"

	"github.com/gocrud/hostbridge/bridge"
	"github.com/gocrud/hostbridge/config"
	"github.com/gocrud/hostbridge/hosting"
	"github.com/gocrud/hostbridge/logging"
)

// ErrAlreadyRunning RunAsync 在上一次运行结束前被再次调用
var ErrAlreadyRunning = errors.New("core: application is already running")

// Application 已构建的应用程序
type Application interface {
	// Run 阻塞到收到 SIGINT/SIGTERM 或 Stop 被调用
	Run() error
	RunAsync(ctx context.Context) error
	Stop(ctx context.Context) error
	Services() *bridge.Provider
	Configuration() config.Configuration
	Logger() logging.Logger
	Environment() Environment
	// GetService 按 ptr 指向的类型解析服务并写入，失败时 panic
	GetService(ptr any)
}

type application struct {
	provider        *bridge.Provider
	configuration   config.ReloadableConfiguration
	loggerFactory   logging.LoggerFactory
	logger          logging.Logger
	environment     Environment
	hostedServices  []hosting.HostedService
	cleanups        []cleanup
	shutdownTimeout time.Duration

	stopCh   chan struct{}
	stopOnce sync.Once
	running  sync.Mutex
}

func (a *application) Run() error {
	return a.RunAsync(context.Background())
}

// RunAsync 启动全部托管服务，直到 ctx 结束、收到信号、Stop 被调用或某个托管服务失败，
// 然后依次停止托管服务、执行清理函数并释放容器。返回导致停止的托管服务错误。
func (a *application) RunAsync(ctx context.Context) error {
	if !a.running.TryLock() {
		return ErrAlreadyRunning
	}
	defer a.running.Unlock()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	manager := hosting.NewHostedServiceManager(a.logger)
	for _, svc := range a.hostedServices {
		manager.Add(svc)
	}

	a.logger.Info("Starting application", logging.Field{Key: "environment", Value: a.environment.Name()})
	failures := manager.StartAll(runCtx)

	runErr := a.waitForShutdown(ctx, failures)
	cancel()
	a.shutdown(manager)
	return runErr
}

func (a *application) waitForShutdown(ctx context.Context, failures <-chan error) error {
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(signals)

	select {
	case sig := <-signals:
		a.logger.Info("Shutdown signal received", logging.Field{Key: "signal", Value: sig.String()})
	case <-a.stopCh:
		a.logger.Info("Stop requested")
	case <-ctx.Done():
		a.logger.Info("Run context done")
	case err := <-failures:
		a.logger.Error("Hosted service failed, shutting down", logging.Field{Key: "error", Value: err})
		return err
	}
	return nil
}

func (a *application) shutdown(manager *hosting.HostedServiceManager) {
	stopCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
	defer cancel()

	if err := manager.StopAll(stopCtx); err != nil {
		a.logger.Error("Hosted services did not stop cleanly", logging.Field{Key: "error", Value: err})
	}
	manager.Wait()

	for i := len(a.cleanups) - 1; i >= 0; i-- {
		a.logger.Debug("Cleanup", logging.Field{Key: "key", Value: a.cleanups[i].key})
		a.cleanups[i].fn()
	}

	if err := a.provider.Close(); err != nil {
		a.logger.Warn("Failed to dispose services", logging.Field{Key: "error", Value: err})
	}
	a.logger.Info("Application stopped")
	_ = a.loggerFactory.Sync()
}

// Stop 请求正在运行的 RunAsync 返回，可重复调用
func (a *application) Stop(context.Context) error {
	a.stopOnce.Do(func() { close(a.stopCh) })
	return nil
}

func (a *application) Services() *bridge.Provider { return a.provider }

func (a *application) Configuration() config.Configuration { return a.configuration }

func (a *application) Logger() logging.Logger { return a.logger }

func (a *application) Environment() Environment { return a.environment }

// 使用示例：
//
//	var svc *MyService
//	app.GetService(&svc)
func (a *application) GetService(ptr any) {
	target := reflect.ValueOf(ptr)
	if target.Kind() != reflect.Pointer || target.IsNil() {
		panic(fmt.Sprintf("core: GetService needs a non-nil pointer, got %T", ptr))
	}

	elem := target.Elem()
	instance, err := a.provider.GetService(elem.Type())
	if err != nil {
		panic(fmt.Sprintf("core: resolve %s: %v", elem.Type(), err))
	}
	elem.Set(reflect.ValueOf(instance))
}
