package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/learncard/internal/config"
	"github.com/mrlokans/learncard/internal/entities"
)

func setupSessionManager(t *testing.T) *SessionManager {
	t.Helper()

	sqlDB, err := setupDB(t).DB()
	if err != nil {
		t.Fatalf("failed to get SQL DB: %v", err)
	}

	sm, err := NewSessionManager(sqlDB, config.DriverSQLite, testAuthConfig(config.AuthModeLocal))
	if err != nil {
		t.Fatalf("failed to create session manager: %v", err)
	}
	return sm
}

func TestNewSessionManager(t *testing.T) {
	sm := setupSessionManager(t)

	if sm.Cookie.Name != "session" {
		t.Errorf("Expected cookie name 'session', got '%s'", sm.Cookie.Name)
	}
	if !sm.Cookie.HttpOnly {
		t.Error("Cookie should be HttpOnly")
	}
	if sm.Cookie.SameSite != http.SameSiteStrictMode {
		t.Errorf("Expected SameSiteStrictMode, got %v", sm.Cookie.SameSite)
	}
	if sm.IdleTimeout != sm.Lifetime/2 {
		t.Errorf("Expected idle timeout of half the lifetime, got %v", sm.IdleTimeout)
	}
}

func TestNewSessionManager_MemoryStoreForPostgres(t *testing.T) {
	sm, err := NewSessionManager(nil, config.DriverPostgres, config.Auth{})
	if err != nil {
		t.Fatalf("failed to create session manager: %v", err)
	}
	if sm.Store == nil {
		t.Fatal("store should be set")
	}
}

// sessionRouter exposes login, logout and whoami endpoints over a session manager.
func sessionRouter(sm *SessionManager) *gin.Engine {
	router := gin.New()
	router.Use(sm.LoadAndSave())
	router.POST("/login", func(c *gin.Context) {
		user := &entities.User{ID: 7, Email: "reader@example.com"}
		if err := sm.CreateSession(c.Request, user); err != nil {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.Status(http.StatusOK)
	})
	router.POST("/logout", func(c *gin.Context) {
		if err := sm.EndSession(c.Request); err != nil {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.Status(http.StatusOK)
	})
	router.GET("/whoami", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"user_id":   sm.GetUserID(c.Request),
			"email":     sm.GetEmail(c.Request),
			"client_id": sm.ClientID(c.Request),
		})
	})
	return router
}

func sessionCookie(t *testing.T, rr *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rr.Result().Cookies() {
		if c.Name == "session" {
			return c
		}
	}
	return nil
}

func TestSessionManager_LoginLogoutKeepsClient(t *testing.T) {
	sm := setupSessionManager(t)
	router := sessionRouter(sm)

	// First contact assigns a client id.
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/whoami", nil))
	cookie := sessionCookie(t, rr)
	if cookie == nil {
		t.Fatal("expected a session cookie after first contact")
	}
	clientID := extractField(t, rr.Body.String(), "client_id")

	// Login renews the token.
	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	req.AddCookie(cookie)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	renewed := sessionCookie(t, rr)
	if renewed == nil || renewed.Value == cookie.Value {
		t.Fatal("login should issue a new session token")
	}

	req = httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.AddCookie(renewed)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if got := extractField(t, rr.Body.String(), "email"); got != "reader@example.com" {
		t.Errorf("expected email in session, got %q", got)
	}
	if got := extractField(t, rr.Body.String(), "client_id"); got != clientID {
		t.Errorf("client id should survive login, got %q want %q", got, clientID)
	}

	// Logout forgets the user, not the client.
	req = httptest.NewRequest(http.MethodPost, "/logout", nil)
	req.AddCookie(renewed)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	afterLogout := sessionCookie(t, rr)
	if afterLogout == nil {
		t.Fatal("logout should issue a new session token")
	}

	req = httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.AddCookie(afterLogout)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if got := extractField(t, rr.Body.String(), "user_id"); got != "0" {
		t.Errorf("expected anonymous after logout, got user %s", got)
	}
	if got := extractField(t, rr.Body.String(), "client_id"); got != clientID {
		t.Errorf("client id should survive logout, got %q want %q", got, clientID)
	}
}
