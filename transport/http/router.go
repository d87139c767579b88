package http

import (
	"github.com/cyberauditpro/cyberaudit/service"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// SetupRouter sets up the Gin router. gatherer may be nil to leave /metrics out.
func SetupRouter(
	authService *service.AuthService,
	leadService *service.LeadService,
	contactLimiter *RateLimiter,
	gatherer prometheus.Gatherer,
	logger *zap.Logger,
) *gin.Engine {
	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.New()
	router.Use(RequestLogger(logger), gin.Recovery())

	// Create handlers
	authHandlers := NewAuthHandlers(authService)
	leadHandlers := NewLeadHandlers(leadService)

	router.GET("/healthz", Health)
	if gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	// Auth routes
	auth := router.Group("/auth")
	{
		auth.POST("/signup", authHandlers.SignUp)
		auth.POST("/login", authHandlers.Login)
		auth.POST("/refresh", authHandlers.Refresh)
		auth.POST("/logout", authHandlers.Logout)
	}

	// Public contact form
	router.POST("/leads", RateLimitMiddleware(contactLimiter), leadHandlers.Submit)

	// Protected API routes
	api := router.Group("/api")
	api.Use(AuthMiddleware(authService))
	{
		api.GET("/me", authHandlers.Me)
	}

	admin := router.Group("/admin")
	admin.Use(AuthMiddleware(authService))
	{
		admin.GET("/leads", leadHandlers.List)
		admin.GET("/leads/:id", leadHandlers.Get)
		admin.POST("/leads/:id/read", leadHandlers.MarkRead)
		admin.DELETE("/leads/:id", leadHandlers.Delete)
		admin.GET("/stats", leadHandlers.Stats)
	}

	return router
}
