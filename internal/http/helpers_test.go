package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/mrlokans/learncard/internal/auth"
	"github.com/mrlokans/learncard/internal/config"
	"github.com/mrlokans/learncard/internal/content"
	"github.com/mrlokans/learncard/internal/database"
	"github.com/mrlokans/learncard/internal/database/books"
	eventsrepo "github.com/mrlokans/learncard/internal/database/events"
	"github.com/mrlokans/learncard/internal/database/localprogress"
	"github.com/mrlokans/learncard/internal/database/userprogress"
	"github.com/mrlokans/learncard/internal/database/users"
	"github.com/mrlokans/learncard/internal/entities"
	"github.com/mrlokans/learncard/internal/events"
	"github.com/mrlokans/learncard/internal/localstore"
	"github.com/mrlokans/learncard/internal/session"
	"github.com/mrlokans/learncard/internal/tasks"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testAuthConfig() config.Auth {
	return config.Auth{
		Mode:              config.AuthModeLocal,
		SessionLifetime:   24 * time.Hour,
		SecureCookies:     false,
		BcryptCost:        4, // Low cost for faster tests
		MinPasswordLength: 8,
		MaxLoginAttempts:  3,
		RateLimitWindow:   time.Minute,
		LockoutDuration:   time.Hour,
	}
}

type testEnv struct {
	cfg      RouterConfig
	router   *gin.Engine
	db       *database.Database
	catalog  *books.Repository
	provider *content.Provider
	store    *localstore.Store
	server   *userprogress.Repository
	events   *events.Service
}

func setupEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := database.Open(config.Database{
		Driver:   config.DriverSQLite,
		Path:     filepath.Join(t.TempDir(), "learncard.db"),
		LogLevel: "silent",
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	catalog := books.NewRepository(db.DB)
	seedBook(t, catalog, "cet4", "CET-4", 5)

	provider, err := content.NewProvider(catalog, 4, 0)
	require.NoError(t, err)

	authCfg := testAuthConfig()
	authService := auth.NewService(users.NewRepository(db.DB), authCfg)

	sqlDB, err := db.DB.DB()
	require.NoError(t, err)
	sessions, err := auth.NewSessionManager(sqlDB, db.Driver, authCfg)
	require.NoError(t, err)

	limiter := auth.NewRateLimiter(auth.RateLimitConfigFrom(authCfg))
	t.Cleanup(limiter.Stop)

	env := &testEnv{
		db:       db,
		catalog:  catalog,
		provider: provider,
		store:    localstore.NewStore(localprogress.NewRepository(db.DB), ""),
		server:   userprogress.NewRepository(db.DB),
		events:   events.NewService(eventsrepo.NewRepository(db.DB)),
	}
	t.Cleanup(env.events.Wait)

	env.cfg = RouterConfig{
		Database:       db,
		Content:        provider,
		AuthConfig:     authCfg,
		AuthMiddleware: auth.NewMiddleware(authService, sessions, authCfg),
		SessionManager: sessions,
		RateLimiter:    limiter,
		Events:         env.events,
		Version:        "test",
	}
	env.cfg.Registry = env.newRegistry(authService)
	env.router = NewRouter(env.cfg)
	return env
}

func (e *testEnv) newRegistry(authService *auth.Service) *session.Registry {
	pusher := tasks.NewPusher(e.store, e.server, e.events)
	syncer := tasks.NewProgressSyncer(nil, pusher)
	return session.NewRegistry(16, time.Hour, func() *session.Manager {
		return session.NewManager(session.Dependencies{
			Authenticator: auth.NewAuthenticator(authService),
			Server:        e.server,
			Store:         e.store,
			Syncer:        syncer,
			Recorder:      e.events,
		})
	})
}

func seedBook(t *testing.T, repo *books.Repository, bookID, title string, n int) {
	t.Helper()
	require.NoError(t, repo.SaveBook(&entities.Book{BookID: bookID, Title: title}))

	words := make([]entities.Word, n)
	for i := range words {
		head := fmt.Sprintf("word%d", i+1)
		words[i] = entities.Word{
			WordRank: i + 1,
			HeadWord: head,
			Content:  datatypes.JSON(fmt.Sprintf(`{"wordHead":%q,"trans":[{"pos":"n","tranCn":"释义%d"}]}`, head, i+1)),
		}
	}
	_, err := repo.ReplaceWords(bookID, words)
	require.NoError(t, err)
}

// testClient is a browser: it keeps the cookies the server sets.
type testClient struct {
	t       *testing.T
	router  http.Handler
	cookies map[string]*http.Cookie
}

func (e *testEnv) client(t *testing.T) *testClient {
	return &testClient{t: t, router: e.router, cookies: map[string]*http.Cookie{}}
}

func (tc *testClient) do(method, path string, body any) *httptest.ResponseRecorder {
	tc.t.Helper()
	return tc.doWithHeader(method, path, body, "", "")
}

func (tc *testClient) doWithHeader(method, path string, body any, header, value string) *httptest.ResponseRecorder {
	tc.t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(tc.t, err)
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if header != "" {
		req.Header.Set(header, value)
	}
	for _, c := range tc.cookies {
		req.AddCookie(c)
	}

	w := httptest.NewRecorder()
	tc.router.ServeHTTP(w, req)

	for _, c := range w.Result().Cookies() {
		if c.MaxAge < 0 || c.Value == "" {
			delete(tc.cookies, c.Name)
			continue
		}
		tc.cookies[c.Name] = c
	}
	return w
}

func (tc *testClient) register(email, password string) *httptest.ResponseRecorder {
	return tc.do(http.MethodPost, "/api/auth/register", gin.H{"email": email, "password": password})
}

func (tc *testClient) login(email, password string) *httptest.ResponseRecorder {
	return tc.do(http.MethodPost, "/api/auth/login", gin.H{"email": email, "password": password})
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func background() context.Context {
	return context.Background()
}
