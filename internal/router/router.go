package router

import (
	"context"
	"net/http"
	"time"

	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/d60-Lab/warbler/config"
	_ "github.com/d60-Lab/warbler/docs"
	"github.com/d60-Lab/warbler/internal/api/handler"
	"github.com/d60-Lab/warbler/internal/metrics"
	"github.com/d60-Lab/warbler/internal/middleware"
	"github.com/d60-Lab/warbler/internal/validation"
	"github.com/d60-Lab/warbler/internal/web"
	"github.com/d60-Lab/warbler/pkg/response"
)

// HealthCheck 依赖探活，返回 error 表示不可用
type HealthCheck func(ctx context.Context) error

type Options struct {
	Config       *config.Config
	Web          *web.Handler
	API          *handler.Handler
	Metrics      *metrics.Metrics
	LoginLimiter *middleware.IPRateLimiter
	Checks       map[string]HealthCheck
}

// Setup 组装中间件与全部路由
func Setup(opts Options) (*gin.Engine, error) {
	cfg := opts.Config
	if cfg.Server.Mode != "" {
		gin.SetMode(cfg.Server.Mode)
	}
	if err := validation.Register(); err != nil {
		return nil, err
	}

	r := gin.New()
	r.Use(middleware.RequestLogger(), gin.Recovery())
	if cfg.Sentry.DSN != "" {
		r.Use(sentrygin.New(sentrygin.Options{Repanic: true}))
	}
	if cfg.Tracing.Enabled {
		r.Use(otelgin.Middleware(cfg.Tracing.ServiceName))
	}
	r.Use(
		middleware.Metrics(opts.Metrics),
		gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics"})),
	)

	r.GET("/healthz", healthz(opts.Checks))
	if opts.Metrics != nil {
		r.GET("/metrics", gin.WrapH(opts.Metrics.Handler()))
	}
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	api := r.Group("/api/v1", middleware.CORS(cfg.Server.CORSOrigins))
	// 预检请求由 CORS 中间件处理
	api.OPTIONS("/*path", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	opts.API.Register(api, opts.LoginLimiter)

	if err := opts.Web.Register(r, opts.LoginLimiter); err != nil {
		return nil, err
	}
	return r, nil
}

func healthz(checks map[string]HealthCheck) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		status := make(map[string]string, len(checks))
		healthy := true
		for name, check := range checks {
			if err := check(ctx); err != nil {
				status[name] = err.Error()
				healthy = false
				continue
			}
			status[name] = "ok"
		}
		if !healthy {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, response.Response{
				Code:    http.StatusServiceUnavailable,
				Message: "unhealthy",
				Data:    status,
			})
			return
		}
		response.Success(c, status)
	}
}
