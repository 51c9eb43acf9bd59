package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type HealthResponse struct {
	Status  string            `json:"status"`
	Time    string            `json:"time"`
	Version string            `json:"version,omitempty"`
	Checks  map[string]string `json:"checks"`
}

// healthCheck describes one dependency. A failing check makes the server
// unhealthy.
type healthCheck struct {
	name string
	run  func(ctx context.Context) (string, error)
}

// HealthController reports on the database, the word catalog and the client
// registry.
type HealthController struct {
	version string
	checks  []healthCheck
}

func NewHealthController(cfg RouterConfig) *HealthController {
	h := &HealthController{version: cfg.Version}

	h.checks = append(h.checks, healthCheck{name: "database", run: func(context.Context) (string, error) {
		if cfg.Database == nil {
			return "not configured", nil
		}
		if err := cfg.Database.Ping(); err != nil {
			return "", err
		}
		return "ok", nil
	}})

	if cfg.Content != nil {
		h.checks = append(h.checks, healthCheck{name: "catalog", run: func(ctx context.Context) (string, error) {
			books, err := cfg.Content.ListBooks(ctx)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("ok (%d books)", len(books)), nil
		}})
	}

	if cfg.Registry != nil {
		h.checks = append(h.checks, healthCheck{name: "sessions", run: func(context.Context) (string, error) {
			return fmt.Sprintf("ok (%d clients)", cfg.Registry.Len()), nil
		}})
	}
	return h
}

// Status handles GET /health.
func (h *HealthController) Status(c *gin.Context) {
	resp := HealthResponse{
		Status:  "healthy",
		Time:    time.Now().Format(time.RFC3339),
		Version: h.version,
		Checks:  make(map[string]string, len(h.checks)),
	}

	for _, check := range h.checks {
		detail, err := check.run(c.Request.Context())
		if err != nil {
			resp.Checks[check.name] = "error: " + err.Error()
			resp.Status = "unhealthy"
			continue
		}
		resp.Checks[check.name] = detail
	}

	code := http.StatusOK
	if resp.Status != "healthy" {
		code = http.StatusServiceUnavailable
	}
	c.IndentedJSON(code, resp)
}

// Ping handles GET /ping.
func (h *HealthController) Ping(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "pong"})
}
