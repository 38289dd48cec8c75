package routes

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/argus-sec/argus/internal/api/handlers"
	"github.com/argus-sec/argus/internal/api/middleware"
	"github.com/argus-sec/argus/internal/config"
	"github.com/argus-sec/argus/internal/logger"
	"github.com/argus-sec/argus/internal/metrics"
	"github.com/argus-sec/argus/internal/models"
	"github.com/argus-sec/argus/internal/services"
)

// Register wires up API routes and performs automatic migrations.
func Register(router *gin.Engine, db *gorm.DB, cfg config.Config) error {
	if err := db.AutoMigrate(
		&models.User{},
		&models.WhitelistRule{},
		&models.AuditEvent{},
	); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}

	registry := prometheus.NewRegistry()
	metrics.Register(registry)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))
	router.GET("/healthz", handlers.HealthHandler)

	if cfg.WhitelistDefaultDeny {
		logger.Log().Info("whitelist default policy: deny services with no rules")
	} else {
		logger.Log().Info("whitelist default policy: allow services with no rules")
	}

	auditService := services.NewAuditService(db, cfg.AlertURL)
	authService := services.NewAuthService(db, cfg)
	whitelistService := services.NewWhitelistService(db, auditService)
	accessService := services.NewAccessService(authService, whitelistService, auditService, cfg.WhitelistDefaultDeny)

	authHandler := handlers.NewAuthHandler(authService, auditService)
	whitelistHandler := handlers.NewWhitelistHandler(whitelistService)
	auditHandler := handlers.NewAuditHandler(auditService)
	serviceHandler := handlers.NewServiceHandler(accessService)

	authMiddleware := middleware.AuthMiddleware(authService, auditService)
	limiter := middleware.NewRateLimiter()

	api := router.Group("/api/v1")
	api.Use(limiter.Limit("api", cfg.APIRateMax, cfg.APIRateWindow))

	loginLimit := limiter.Limit("login", cfg.LoginRateMax, cfg.LoginRateWindow)
	api.POST("/auth/register", loginLimit, authHandler.Register)
	api.POST("/auth/login", loginLimit, authHandler.Login)
	api.POST("/auth/refresh-token", authHandler.Refresh)

	protected := api.Group("/")
	protected.Use(authMiddleware)
	{
		protected.POST("/auth/logout", authHandler.Logout)
		protected.GET("/auth/me", authHandler.Me)

		// Whitelist reads need only a valid credential; mutations are admin.
		protected.GET("/whitelist", whitelistHandler.List)
		protected.GET("/whitelist/:id", whitelistHandler.Get)

		admin := protected.Group("/")
		admin.Use(middleware.RequireRole(models.RoleAdmin))
		{
			admin.POST("/whitelist",
				limiter.Limit("rule-create", cfg.RuleCreateRateMax, cfg.RuleCreateWindow),
				whitelistHandler.Create)
			admin.PUT("/whitelist/:id", whitelistHandler.Update)
			admin.DELETE("/whitelist/:id", whitelistHandler.Delete)

			admin.GET("/audit", auditHandler.List)
		}
	}

	// Full access evaluation demo: token, role and source address are all
	// checked by the decision engine, not by route middleware.
	api.GET("/service/:name", serviceHandler.Access)

	return nil
}
