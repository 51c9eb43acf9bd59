package http

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/learncard/internal/content"
)

type BooksController struct {
	provider *content.Provider
}

func NewBooksController(provider *content.Provider) *BooksController {
	return &BooksController{provider: provider}
}

// GetAllBooks handles GET /api/books.
func (bc *BooksController) GetAllBooks(c *gin.Context) {
	books, err := bc.provider.ListBooks(c.Request.Context())
	if err != nil {
		respondInternalError(c, err, "list books")
		return
	}
	respondData(c, books)
}

// GetWords handles GET /api/books/:bookId/words. An unknown book has no words.
func (bc *BooksController) GetWords(c *gin.Context) {
	words, err := bc.provider.ListWords(c.Request.Context(), c.Param("bookId"))
	if err != nil {
		respondInternalError(c, err, "list words")
		return
	}
	respondData(c, words)
}

// GetWord handles GET /api/books/:bookId/words/:wordRank.
func (bc *BooksController) GetWord(c *gin.Context) {
	rank, ok := parseIntParam(c, "wordRank")
	if !ok {
		return
	}

	word, err := bc.provider.Word(c.Request.Context(), c.Param("bookId"), rank)
	if errors.Is(err, content.ErrWordNotFound) {
		respondNotFound(c, "word")
		return
	}
	if err != nil {
		respondInternalError(c, err, "get word")
		return
	}
	respondData(c, word)
}
