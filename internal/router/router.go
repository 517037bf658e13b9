package router

import (
	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/pageza/alchemorsel-engine/backend/internal/api"
	"github.com/pageza/alchemorsel-engine/backend/internal/middleware"
	"github.com/pageza/alchemorsel-engine/backend/internal/service"
)

// Options configures the HTTP surface.
type Options struct {
	AllowedOrigins []string
	AdminToken     string
	// Limiter is applied to /api/v1 when set.
	Limiter   middleware.Limiter
	RateLimit int
	Logger    *zap.Logger
}

// SetupRouter configures the application routes
func SetupRouter(engine service.IEngine, opts Options) *gin.Engine {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.New()
	router.Use(
		requestid.New(),
		middleware.Logger(logger),
		middleware.Recovery(logger),
		middleware.CORS(opts.AllowedOrigins),
		middleware.ErrorHandler(logger),
	)

	health := api.NewHealthHandler(engine)
	router.GET("/health", health.HealthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	if opts.Limiter != nil {
		v1.Use(middleware.RateLimit(opts.Limiter, opts.RateLimit, logger))
	}
	v1.GET("/health", health.HealthCheck)

	api.NewRecipeHandler(engine).RegisterRoutes(v1)
	api.NewAdminHandler(engine, opts.AdminToken).RegisterRoutes(v1)

	return router
}
