package http

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/learncard/internal/progress"
	"github.com/mrlokans/learncard/internal/session"
)

const testPassword = "password123"

func TestAuthController_Register(t *testing.T) {
	env := setupEnv(t)
	client := env.client(t)

	w := client.register("learner@example.com", testPassword)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	state := decode[ClientState](t, w)
	assert.Equal(t, session.Authenticated, state.State)
	require.NotNil(t, state.User)
	assert.Equal(t, "learner@example.com", state.User.Email)
	assert.Equal(t, "learner", state.User.DisplayName)
	assert.Contains(t, client.cookies, "session")

	t.Run("duplicate email", func(t *testing.T) {
		w := env.client(t).register("learner@example.com", testPassword)
		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, "already_registered", decode[ErrorResponse](t, w).Code)
	})

	t.Run("missing fields", func(t *testing.T) {
		w := env.client(t).register("", "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "missing_credentials", decode[ErrorResponse](t, w).Code)
	})

	t.Run("invalid email", func(t *testing.T) {
		w := env.client(t).register("not-an-email", testPassword)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "invalid_input", decode[ErrorResponse](t, w).Code)
	})

	t.Run("short password", func(t *testing.T) {
		w := env.client(t).register("short@example.com", "abc")
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "invalid_input", decode[ErrorResponse](t, w).Code)
	})
}

func TestAuthController_Login(t *testing.T) {
	env := setupEnv(t)
	require.Equal(t, http.StatusOK, env.client(t).register("learner@example.com", testPassword).Code)

	t.Run("valid credentials", func(t *testing.T) {
		client := env.client(t)
		w := client.login("learner@example.com", testPassword)

		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Equal(t, session.Authenticated, decode[ClientState](t, w).State)

		summary := client.do(http.MethodGet, "/api/user/summary", nil)
		assert.Equal(t, session.Authenticated, decode[ClientState](t, summary).State)
	})

	t.Run("wrong password", func(t *testing.T) {
		w := env.client(t).login("learner@example.com", "wrong-password")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "invalid_credentials", decode[ErrorResponse](t, w).Code)
	})

	t.Run("unknown user", func(t *testing.T) {
		w := env.client(t).login("nobody@example.com", testPassword)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("missing credentials", func(t *testing.T) {
		client := env.client(t)
		w := client.login("learner@example.com", "")
		assert.Equal(t, http.StatusBadRequest, w.Code)

		state := decode[ClientState](t, client.do(http.MethodGet, "/api/user/summary", nil))
		assert.Equal(t, session.Anonymous, state.State)
		assert.Equal(t, session.MessageMissingCredentials, state.Message)
	})
}

func TestAuthController_LoginRateLimited(t *testing.T) {
	env := setupEnv(t)
	require.Equal(t, http.StatusOK, env.client(t).register("learner@example.com", testPassword).Code)
	client := env.client(t)

	assert.Equal(t, http.StatusUnauthorized, client.login("learner@example.com", "wrong-1").Code)
	assert.Equal(t, http.StatusUnauthorized, client.login("learner@example.com", "wrong-2").Code)

	w := client.login("learner@example.com", "wrong-3")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))

	w = client.login("learner@example.com", testPassword)
	assert.Equal(t, http.StatusTooManyRequests, w.Code, "correct password is still throttled")
}

func TestAuthController_LogoutKeepsDeviceProgress(t *testing.T) {
	env := setupEnv(t)
	client := env.client(t)
	require.Equal(t, http.StatusOK, client.register("learner@example.com", testPassword).Code)

	require.Equal(t, http.StatusOK, client.do(http.MethodPost, "/api/learn/cet4/position", map[string]int{"index": 2}).Code)

	w := client.do(http.MethodPost, "/api/auth/logout", nil)
	require.Equal(t, http.StatusOK, w.Code)
	state := decode[ClientState](t, w)
	assert.Equal(t, session.Anonymous, state.State)
	assert.Nil(t, state.User)

	assert.Equal(t, http.StatusUnauthorized, client.do(http.MethodGet, "/api/user/progress", nil).Code)

	local, ok := env.store.Read("1")
	require.True(t, ok, "device store keeps the map after logout")
	assert.Equal(t, 2, local["cet4"].LastIndex)

	server, err := env.server.GetUserProgress(background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 3, server["cet4"].Learned(), "logout pushes the map to the server")

	t.Run("logging in elsewhere restores it", func(t *testing.T) {
		other := env.client(t)
		w := other.login("learner@example.com", testPassword)
		require.Equal(t, http.StatusOK, w.Code)

		state := decode[ClientState](t, w)
		require.NotNil(t, state.User)
		assert.Equal(t, 1, state.User.LearnedBooks)
		assert.Equal(t, 3, state.User.LearnedWords)
	})
}

func TestAuthController_LogoutAnonymous(t *testing.T) {
	env := setupEnv(t)

	w := env.client(t).do(http.MethodPost, "/api/auth/logout", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, session.Anonymous, decode[ClientState](t, w).State)
}

func TestAuthController_SessionRestoredAfterRestart(t *testing.T) {
	env := setupEnv(t)
	client := env.client(t)
	require.Equal(t, http.StatusOK, client.register("learner@example.com", testPassword).Code)
	require.Equal(t, http.StatusOK, client.do(http.MethodGet, "/api/learn/cet4", nil).Code)

	// A new registry knows no clients, as after a restart. The cookie
	// session still names the user.
	restarted := env.cfg
	restarted.Registry = env.newRegistry(nil)
	client.router = NewRouter(restarted)

	w := client.do(http.MethodGet, "/api/user/summary", nil)
	require.Equal(t, http.StatusOK, w.Code)
	state := decode[ClientState](t, w)
	assert.Equal(t, session.Authenticated, state.State)
	require.NotNil(t, state.User)
	assert.Equal(t, "learner@example.com", state.User.Email)

	progressResp := client.do(http.MethodGet, "/api/user/progress", nil)
	require.Equal(t, http.StatusOK, progressResp.Code)
	entries := decode[struct {
		Data []progress.BookProgress `json:"data"`
	}](t, progressResp)
	require.Len(t, entries.Data, 1)
	assert.Equal(t, "cet4", entries.Data[0].BookID)
}

func TestAuthController_FailedReloginForgetsPreviousUser(t *testing.T) {
	env := setupEnv(t)
	require.Equal(t, http.StatusOK, env.client(t).register("other@example.com", testPassword).Code)
	client := env.client(t)
	require.Equal(t, http.StatusOK, client.register("learner@example.com", testPassword).Code)

	w := client.login("other@example.com", "wrong-password")
	require.Equal(t, http.StatusUnauthorized, w.Code)

	state := decode[ClientState](t, client.do(http.MethodGet, "/api/user/summary", nil))
	assert.Equal(t, session.Anonymous, state.State)
	assert.Nil(t, state.User)
	assert.Equal(t, http.StatusUnauthorized, client.do(http.MethodGet, "/api/user/progress", nil).Code)

	t.Run("rejected input keeps the session", func(t *testing.T) {
		client := env.client(t)
		require.Equal(t, http.StatusOK, client.login("learner@example.com", testPassword).Code)
		require.Equal(t, http.StatusBadRequest, client.login("other@example.com", "").Code)

		state := decode[ClientState](t, client.do(http.MethodGet, "/api/user/summary", nil))
		assert.Equal(t, session.Authenticated, state.State)
	})
}

func TestAuthController_TwoClientsOfOneUser(t *testing.T) {
	env := setupEnv(t)
	seedBook(t, env.catalog, "cet6", "CET-6", 5)

	phone := env.client(t)
	require.Equal(t, http.StatusOK, phone.register("learner@example.com", testPassword).Code)
	laptop := env.client(t)
	require.Equal(t, http.StatusOK, laptop.login("learner@example.com", testPassword).Code)

	require.Equal(t, http.StatusOK, phone.do(http.MethodPost, "/api/learn/cet4/position", map[string]int{"index": 3}).Code)
	require.Equal(t, http.StatusOK, laptop.do(http.MethodPost, "/api/learn/cet6/position", map[string]int{"index": 1}).Code)

	local, ok := env.store.Read("1")
	require.True(t, ok)
	assert.Equal(t, 3, local["cet4"].LastIndex)
	assert.Equal(t, 1, local["cet6"].LastIndex)

	require.Equal(t, http.StatusOK, phone.do(http.MethodPost, "/api/auth/logout", nil).Code)
	require.Equal(t, http.StatusOK, laptop.do(http.MethodPost, "/api/auth/logout", nil).Code)

	server, err := env.server.GetUserProgress(background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 4, server["cet4"].Learned())
	assert.Equal(t, 2, server["cet6"].Learned())

	w := env.client(t).login("learner@example.com", testPassword)
	require.Equal(t, http.StatusOK, w.Code)
	state := decode[ClientState](t, w)
	require.NotNil(t, state.User)
	assert.Equal(t, 2, state.User.LearnedBooks)
	assert.Equal(t, 6, state.User.LearnedWords)
}
