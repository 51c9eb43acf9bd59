package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

var testCSRFSecret = []byte("0123456789abcdef0123456789abcdef")

func csrfRouter(reached *bool) *gin.Engine {
	router := gin.New()
	router.Use(CSRFMiddleware(testCSRFSecret, false))
	router.GET("/api/auth/csrf", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"csrf_token": GetCSRFToken(c)})
	})
	router.POST("/api/auth/logout", func(c *gin.Context) {
		*reached = true
		c.Status(http.StatusNoContent)
	})
	return router
}

func TestCSRFMiddleware_SafeMethodIssuesToken(t *testing.T) {
	var reached bool
	router := csrfRouter(&reached)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/auth/csrf", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rr.Code)
	}
	if token := extractField(t, rr.Body.String(), "csrf_token"); token == "" {
		t.Error("Expected a CSRF token")
	}
}

func TestCSRFMiddleware_RejectsMissingToken(t *testing.T) {
	var reached bool
	router := csrfRouter(&reached)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil))

	if rr.Code != http.StatusForbidden {
		t.Errorf("Expected 403, got %d", rr.Code)
	}
	if got := extractField(t, rr.Body.String(), "error"); got != "CSRF token invalid or missing" {
		t.Errorf("Unexpected body: %s", rr.Body.String())
	}
	if reached {
		t.Error("Handler should not run after a CSRF rejection")
	}
}

func TestCSRFMiddleware_AcceptsIssuedToken(t *testing.T) {
	var reached bool
	router := csrfRouter(&reached)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/auth/csrf", nil))
	token := extractField(t, rr.Body.String(), "csrf_token")

	req := httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil)
	req.Header.Set(CSRFTokenHeader, token)
	for _, c := range rr.Result().Cookies() {
		req.AddCookie(c)
	}
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Errorf("Expected 204, got %d: %s", rr.Code, rr.Body.String())
	}
	if !reached {
		t.Error("Handler should run with a valid token")
	}
}
