package main

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gocrud/hostbridge/configure/web"
	"github.com/gocrud/hostbridge/logging"
	"github.com/gocrud/hostbridge/services"
)

var errBrokenService = errors.New("ITestService.Add(1, 1) did not return 2")

// ITestService 示例服务契约
type ITestService interface {
	Add(a, b int) int
}

// TestService ITestService 的默认实现
type TestService struct{}

func (s *TestService) Add(a, b int) int {
	return a + b
}

// HomeController 每个请求创建一次
type HomeController struct {
	service ITestService
	logger  logging.Logger
}

// NewHomeController 在依赖不可用时拒绝创建
func NewHomeController(service ITestService, logger logging.Logger) (*HomeController, error) {
	if service.Add(1, 1) != 2 {
		return nil, errBrokenService
	}
	return &HomeController{service: service, logger: logger}, nil
}

func (h *HomeController) Index(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"view": "Index"})
}

func (h *HomeController) About(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"view": "About", "message": "Your application description page."})
}

func (h *HomeController) Contact(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"view": "Contact", "message": "Your contact page."})
}

func (h *HomeController) Error(c *gin.Context) {
	h.logger.Warn("Error page requested", logging.Field{Key: "path", Value: c.Request.URL.Path})
	c.JSON(http.StatusOK, gin.H{"view": "Error", "request_id": c.GetHeader("X-Request-ID")})
}

func registerServices(sc *services.ServiceCollection) {
	services.AddSingleton[ITestService, *TestService](sc)
	services.AddScopedFactory(sc, func(sp services.ServiceProvider) (*HomeController, error) {
		svc, err := services.Get[ITestService](sp)
		if err != nil {
			return nil, err
		}
		logger, err := services.Get[logging.Logger](sp)
		if err != nil {
			logger = logging.Nop()
		}
		return NewHomeController(svc, logger.WithCategory("Home"))
	})
}

func mountRoutes(b *web.Builder) {
	b.Get("/", web.Action((*HomeController).Index))
	b.Get("/home/about", web.Action((*HomeController).About))
	b.Get("/home/contact", web.Action((*HomeController).Contact))
	b.Get("/home/error", web.Action((*HomeController).Error))
}
