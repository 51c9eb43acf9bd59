package http

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/learncard/internal/content"
	"github.com/mrlokans/learncard/internal/entities"
)

func TestBooksController_GetAllBooks(t *testing.T) {
	env := setupEnv(t)

	w := env.client(t).do(http.MethodGet, "/api/books", nil)

	require.Equal(t, http.StatusOK, w.Code)
	response := decode[struct {
		Data []entities.Book `json:"data"`
	}](t, w)
	require.Len(t, response.Data, 1)
	assert.Equal(t, "cet4", response.Data[0].BookID)
	assert.Equal(t, 5, response.Data[0].WordsCount)
}

func TestBooksController_GetWords(t *testing.T) {
	env := setupEnv(t)
	client := env.client(t)

	t.Run("words in rank order", func(t *testing.T) {
		w := client.do(http.MethodGet, "/api/books/cet4/words", nil)

		require.Equal(t, http.StatusOK, w.Code)
		response := decode[struct {
			Data []content.WordDetail `json:"data"`
		}](t, w)
		require.Len(t, response.Data, 5)
		assert.Equal(t, "word1", response.Data[0].WordHead)
		assert.Equal(t, "释义1", response.Data[0].Trans[0].TranCn)
		assert.Equal(t, 5, response.Data[4].WordRank)
	})

	t.Run("unknown book has no words", func(t *testing.T) {
		w := client.do(http.MethodGet, "/api/books/nope/words", nil)

		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"data":[]}`, w.Body.String())
	})
}

func TestBooksController_GetWord(t *testing.T) {
	env := setupEnv(t)
	client := env.client(t)

	tests := []struct {
		name       string
		path       string
		wantStatus int
		wantHead   string
	}{
		{"existing rank", "/api/books/cet4/words/3", http.StatusOK, "word3"},
		{"missing rank", "/api/books/cet4/words/99", http.StatusNotFound, ""},
		{"invalid rank", "/api/books/cet4/words/abc", http.StatusBadRequest, ""},
		{"negative rank", "/api/books/cet4/words/-1", http.StatusBadRequest, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := client.do(http.MethodGet, tt.path, nil)
			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantHead != "" {
				response := decode[struct {
					Data content.WordDetail `json:"data"`
				}](t, w)
				assert.Equal(t, tt.wantHead, response.Data.WordHead)
			}
		})
	}
}
