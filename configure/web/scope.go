package web

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gocrud/hostbridge/bridge"
	"github.com/gocrud/hostbridge/logging"
	"github.com/gocrud/hostbridge/services"
)

const requestServicesKey = "hostbridge.requestServices"

// scopeMiddleware 为每个请求创建一个解析作用域，请求结束后释放。
// 作用域同时写入 gin.Context 和 Request.Context()。
func (b *Builder) scopeMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ref := b.scopes.Load()
		if ref == nil {
			c.Next()
			return
		}

		scope := ref.factory.CreateScope(c.Request.Context())
		defer scope.Dispose()

		c.Request = c.Request.WithContext(scope.Context())
		c.Set(requestServicesKey, scope.ServiceProvider())
		c.Next()
	}
}

// RequestServices 返回当前请求作用域的服务提供者
func RequestServices(c *gin.Context) (services.ServiceProvider, bool) {
	if v, ok := c.Get(requestServicesKey); ok {
		if sp, ok := v.(services.ServiceProvider); ok {
			return sp, true
		}
	}
	return bridge.ProviderFromContext(c.Request.Context())
}

// Action 返回一个处理器：从请求作用域解析 T 后调用 handler
//
// 使用示例：
//
//	b.Get("/", web.Action(func(h *HomeController, c *gin.Context) { h.Index(c) }))
func Action[T any](handler func(T, *gin.Context)) gin.HandlerFunc {
	return func(c *gin.Context) {
		sp, ok := RequestServices(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "request services are not available"})
			return
		}
		target, err := services.Get[T](sp)
		if err != nil {
			_ = c.Error(err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		handler(target, c)
	}
}

// requestLogger 以 Debug 级别记录每个请求
func requestLogger(logger logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("HTTP request",
			logging.Field{Key: "method", Value: c.Request.Method},
			logging.Field{Key: "path", Value: c.FullPath()},
			logging.Field{Key: "status", Value: c.Writer.Status()},
			logging.Field{Key: "latency", Value: time.Since(start).String()})
	}
}
