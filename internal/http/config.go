package http

import (
	"github.com/mrlokans/learncard/internal/auth"
	"github.com/mrlokans/learncard/internal/config"
	"github.com/mrlokans/learncard/internal/content"
	"github.com/mrlokans/learncard/internal/database"
	"github.com/mrlokans/learncard/internal/events"
	"github.com/mrlokans/learncard/internal/session"
	"github.com/mrlokans/learncard/internal/tasks"
)

// RouterConfig contains all dependencies and configuration needed
// to create the HTTP router.
type RouterConfig struct {
	// Core dependencies
	Database *database.Database
	Content  *content.Provider

	// Authentication
	AuthConfig     config.Auth
	AuthMiddleware *auth.Middleware
	SessionManager *auth.SessionManager
	RateLimiter    *auth.RateLimiter
	CSRFSecret     []byte // CSRF protection is off when empty

	// One session manager per client; nil in catalog-only mode
	Registry *session.Registry

	// Study event log (optional)
	Events *events.Service

	// Task queue client (optional)
	TaskClient *tasks.Client

	// Application info
	Version string
}
