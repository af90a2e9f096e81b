package http

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/vinylkeeper/vinylkeeper-back/internal/adapters/transport/http/middleware"
	"go.uber.org/zap"
)

type RouterOptions struct {
	RateLimit int
	Burst     int
	CacheSize int
	IdleTTL   time.Duration
}

// NewRouter wires every route. ctx bounds the lifetime of the rate
// limiter's cleaner goroutine.
func NewRouter(ctx context.Context, h *Handler, logger *zap.Logger, opts RouterOptions) *gin.Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = 10_000
	}
	if opts.IdleTTL <= 0 {
		opts.IdleTTL = time.Hour
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(logger))

	router.GET("/health", h.healthz)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/")
	if opts.RateLimit > 0 {
		api.Use(middleware.NewHTTPRateLimitPerIP(ctx, opts.RateLimit, opts.Burst, opts.CacheSize, opts.IdleTTL))
	}

	auth := api.Group("/auth")
	auth.POST("/register", h.register)
	auth.POST("/login", h.login)
	auth.POST("/refresh", h.refresh)
	auth.POST("/logout", h.logout)
	auth.POST("/forgot-password", h.forgotPassword)
	auth.POST("/reset-password", h.resetPassword)
	auth.POST("/change-password", h.changePassword)

	api.GET("/users/me", h.me)

	cols := api.Group("/collections")
	cols.GET("", h.listMyCollections)
	cols.POST("", h.createCollection)
	cols.GET("/public", h.listPublicCollections)
	cols.GET("/:id", h.getCollection)
	cols.PATCH("/:id", h.updateCollection)
	cols.PATCH("/:id/area", h.switchArea)
	cols.DELETE("/:id", h.deleteCollection)

	return router
}
