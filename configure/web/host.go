package web

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gocrud/hostbridge/logging"
)

// Host Web 主机，实现 hosting.HostedService
type Host struct {
	port   int
	engine *gin.Engine
	server *http.Server
	logger logging.Logger

	mu   sync.RWMutex
	addr string
}

func newHost(port int, engine *gin.Engine, logger logging.Logger) *Host {
	return &Host{
		port:   port,
		engine: engine,
		server: &http.Server{Handler: engine},
		logger: logger,
	}
}

// Handler 返回 HTTP 处理器（用于测试或嵌入其他服务器）
func (h *Host) Handler() http.Handler {
	return h.engine
}

// Address 获取监听地址，仅在 Start 后有效
func (h *Host) Address() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.addr
}

// Start 启动 Web 主机，阻塞直到 ctx 取消或服务器出错
func (h *Host) Start(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", h.port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("web: failed to listen on %s: %w", addr, err)
	}

	h.mu.Lock()
	h.addr = ln.Addr().String()
	h.mu.Unlock()

	h.logger.Info("Web host started",
		logging.Field{Key: "address", Value: h.Address()})

	errCh := make(chan error, 1)
	go func() {
		if err := h.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			h.logger.Error("Web host error",
				logging.Field{Key: "error", Value: err.Error()})
		}
		return err
	case <-ctx.Done():
		// Stop 负责关闭
		return nil
	}
}

// Stop 停止 Web 主机
func (h *Host) Stop(ctx context.Context) error {
	h.logger.Info("Stopping web host")

	if err := h.server.Shutdown(ctx); err != nil {
		h.logger.Error("Failed to shutdown web host gracefully",
			logging.Field{Key: "error", Value: err.Error()})
		return err
	}

	h.logger.Info("Web host stopped")
	return nil
}
