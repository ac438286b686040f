// Package api provides HTTP routing for the iptables-easy backend. It wires
// together handlers, middleware, and services to expose the management
// plane's REST endpoints.
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/iptables-easy/iptables-easy-backend/internal/api/handlers"
	"github.com/iptables-easy/iptables-easy-backend/internal/api/middleware"
	"github.com/iptables-easy/iptables-easy-backend/internal/config"
	"github.com/iptables-easy/iptables-easy-backend/internal/database"
	"github.com/iptables-easy/iptables-easy-backend/internal/service"
	"go.uber.org/zap"
)

// NewRouter creates and configures the HTTP router
func NewRouter(cfg *config.Config, db *database.Database, logger *zap.Logger) *gin.Engine {
	// Set Gin mode
	if cfg.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Global middleware
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggerMiddleware(logger))
	router.Use(middleware.CORSMiddleware(cfg))

	// Initialize services
	userService := service.NewUserService(db, cfg)
	nodeService := service.NewNodeService(db, logger)
	ruleService := service.NewRuleService(db, logger)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(userService, nodeService, logger)
	nodeHandler := handlers.NewNodeHandler(nodeService, logger)
	ruleHandler := handlers.NewRuleHandler(ruleService, logger)

	// Liveness
	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "iptables-easy API is running"})
	})
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})

	// Auth routes
	auth := router.Group("/auth")
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
		auth.GET("/me", authHandler.GetCurrentUser)
		auth.POST("/register-agent", authHandler.RegisterAgent)
	}

	// Node lifecycle routes
	nodes := router.Group("/nodes")
	{
		nodes.POST("", nodeHandler.CreateNode)
		nodes.GET("", nodeHandler.ListNodes)
		nodes.GET("/:id", nodeHandler.GetNode)
		nodes.PUT("/:id", nodeHandler.UpdateNode)
		nodes.DELETE("/:id", nodeHandler.DeleteNode)
		nodes.POST("/:id/heartbeat", nodeHandler.Heartbeat)
	}

	// Rule management routes
	rules := router.Group("/rules")
	{
		rules.POST("", ruleHandler.CreateRule)
		rules.GET("", ruleHandler.ListRules)
		rules.GET("/:id", ruleHandler.GetRule)
		rules.PUT("/:id", ruleHandler.UpdateRule)
		rules.DELETE("/:id", ruleHandler.DeleteRule)
	}

	return router
}
