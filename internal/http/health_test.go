package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthController_Status(t *testing.T) {
	t.Run("returns healthy when database is connected", func(t *testing.T) {
		env := setupEnv(t)

		w := env.client(t).do(http.MethodGet, "/health", nil)

		assert.Equal(t, http.StatusOK, w.Code)
		response := decode[HealthResponse](t, w)
		assert.Equal(t, "healthy", response.Status)
		assert.Equal(t, "test", response.Version)
		assert.Equal(t, "ok", response.Checks["database"])
		assert.Equal(t, "ok (1 books)", response.Checks["catalog"])
		assert.Contains(t, response.Checks["sessions"], "clients")
		assert.NotEmpty(t, response.Time)
	})

	t.Run("reports a missing database", func(t *testing.T) {
		controller := NewHealthController(RouterConfig{Version: "1.0.0"})

		router := gin.New()
		router.GET("/health", controller.Status)

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/health", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var response HealthResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, "not configured", response.Checks["database"])
		assert.NotContains(t, response.Checks, "catalog")
	})

	t.Run("returns unhealthy when database connection is closed", func(t *testing.T) {
		env := setupEnv(t)
		require.NoError(t, env.db.Close())

		controller := NewHealthController(RouterConfig{Database: env.db, Version: "1.0.0"})
		router := gin.New()
		router.GET("/health", controller.Status)

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/health", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		var response HealthResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, "unhealthy", response.Status)
		assert.Contains(t, response.Checks["database"], "error: ")
	})
}

func TestPing(t *testing.T) {
	env := setupEnv(t)

	w := env.client(t).do(http.MethodGet, "/ping", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"pong"}`, w.Body.String())
}

func TestSecurityHeadersApplied(t *testing.T) {
	env := setupEnv(t)

	w := env.client(t).do(http.MethodGet, "/api/books", nil)
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Empty(t, w.Header().Get("Strict-Transport-Security"), "plain HTTP test config")
}
