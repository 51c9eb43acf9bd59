package http

import (
	"github.com/gin-gonic/gin"

	"github.com/mrlokans/learncard/internal/auth"
	"github.com/mrlokans/learncard/internal/config"
)

// hstsMaxAge is one year.
const hstsMaxAge = 31536000

// NewRouter creates and configures the HTTP router with all endpoints.
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	// Apply security headers to all responses
	router.Use(auth.SecurityHeadersMiddleware())
	if cfg.AuthConfig.SecureCookies {
		router.Use(auth.StrictTransportSecurityMiddleware(hstsMaxAge))
	}

	// CSRF must run before session so that session context is preserved
	if len(cfg.CSRFSecret) > 0 {
		router.Use(auth.CSRFMiddleware(cfg.CSRFSecret, cfg.AuthConfig.SecureCookies))
	}

	// Session runs after CSRF so session context isn't overwritten by CSRF's request replacement
	if cfg.SessionManager != nil {
		router.Use(cfg.SessionManager.LoadAndSave())
	}

	requireAuth := func(c *gin.Context) { c.Next() }
	if cfg.AuthMiddleware != nil {
		router.Use(cfg.AuthMiddleware.Handler())
		requireAuth = cfg.AuthMiddleware.RequireAuth()
	} else {
		// No auth - inject default user ID
		router.Use(func(c *gin.Context) {
			c.Set(auth.ContextKeyUserID, auth.DefaultUserID)
			c.Set(auth.ContextKeyAuthType, auth.AuthTypeNone)
			c.Next()
		})
	}

	clients := NewClients(cfg.SessionManager, cfg.Registry)

	// Health endpoints
	health := NewHealthController(cfg)
	router.GET("/health", health.Status)
	router.GET("/ping", health.Ping)

	// Catalog endpoints
	books := NewBooksController(cfg.Content)
	router.GET("/api/books", books.GetAllBooks)
	router.GET("/api/books/:bookId/words", books.GetWords)
	router.GET("/api/books/:bookId/words/:wordRank", books.GetWord)

	// Study endpoints, open to guests who then study without saving
	learn := NewLearnController(cfg.Content, clients, cfg.Events)
	router.GET("/api/learn/:bookId", learn.Open)
	router.POST("/api/learn/:bookId/position", learn.Position)

	if clients == nil || cfg.AuthConfig.Mode == config.AuthModeNone {
		return router
	}

	// Account endpoints
	authController := NewAuthController(clients, cfg.SessionManager, cfg.RateLimiter)
	router.POST("/api/auth/register", authController.Register)
	router.POST("/api/auth/login", authController.Login)
	router.POST("/api/auth/logout", authController.Logout)
	if len(cfg.CSRFSecret) > 0 {
		router.GET("/api/auth/csrf", authController.CSRFToken)
	}

	user := NewUserController(clients, cfg.Events)
	router.GET("/api/user/summary", user.Summary)
	router.GET("/api/user/progress", requireAuth, user.Progress)
	if cfg.Events != nil {
		router.GET("/api/user/events", requireAuth, user.Events)
	}

	// Task endpoints
	if cfg.TaskClient != nil {
		tasksController := NewTasksController(cfg.TaskClient)
		router.GET("/api/tasks/types", requireAuth, tasksController.ListTaskTypes)
		router.GET("/api/tasks/:id", requireAuth, tasksController.GetTaskStatus)
		router.POST("/api/tasks", requireAuth, tasksController.RunTask)
	}

	return router
}
