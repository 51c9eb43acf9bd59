package http

import (
	"net/http"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/learncard/internal/tasks"
)

func setupTasksEnv(t *testing.T) (*testEnv, *testClient) {
	t.Helper()
	env := setupEnv(t)

	client, err := tasks.NewClient(filepath.Join(t.TempDir(), "learncard.db"), tasks.Config{Workers: 1})
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	client.Register(tasks.NewPushProgressQueue(tasks.NewPusher(env.store, env.server, env.events)))

	cfg := env.cfg
	cfg.TaskClient = client
	env.router = NewRouter(cfg)
	return env, env.client(t)
}

func TestTasksController_RequiresLogin(t *testing.T) {
	_, client := setupTasksEnv(t)

	w := client.do(http.MethodPost, "/api/tasks", gin.H{"type": "push_progress"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestTasksController_RunAndStatus(t *testing.T) {
	_, client := setupTasksEnv(t)
	require.Equal(t, http.StatusOK, client.register("learner@example.com", testPassword).Code)

	w := client.do(http.MethodGet, "/api/tasks/types", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "push_progress")

	w = client.do(http.MethodPost, "/api/tasks", gin.H{"type": "push_progress"})
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	enqueued := decode[struct {
		TaskID string `json:"task_id"`
		Type   string `json:"type"`
	}](t, w)
	require.NotEmpty(t, enqueued.TaskID)
	assert.Equal(t, "push_progress", enqueued.Type)

	// Workers are not started, so the task waits.
	w = client.do(http.MethodGet, "/api/tasks/"+enqueued.TaskID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pending", decode[map[string]string](t, w)["status"])

	t.Run("unknown type", func(t *testing.T) {
		w := client.do(http.MethodPost, "/api/tasks", gin.H{"type": "enrich_book"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("missing type", func(t *testing.T) {
		w := client.do(http.MethodPost, "/api/tasks", gin.H{})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
