// Package books provides database operations for the word book catalog.
//
// # Usage
//
//	repo := books.NewRepository(db)
//	catalog, err := repo.ListBooks(ctx)
//	words, err := repo.ListWords(ctx, "cet4", 500)
package books

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/mrlokans/learncard/internal/entities"
)

var ErrBookNotFound = errors.New("book not found")

// insertBatchSize keeps multi-row inserts under SQLite's variable limit.
const insertBatchSize = 200

// Repository handles all book and word database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new books repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// ListBooks returns the catalog, most recently updated first.
func (r *Repository) ListBooks(ctx context.Context) ([]entities.Book, error) {
	var books []entities.Book
	err := r.db.WithContext(ctx).Order("updated_at DESC").Order("book_id ASC").Find(&books).Error
	return books, err
}

// GetBook retrieves a book by its public identifier.
func (r *Repository) GetBook(ctx context.Context, bookID string) (*entities.Book, error) {
	var book entities.Book
	err := r.db.WithContext(ctx).Where("book_id = ?", bookID).First(&book).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBookNotFound
		}
		return nil, err
	}
	return &book, nil
}

// ListWords returns up to limit words of a book in rank order.
// A non-positive limit returns every word.
func (r *Repository) ListWords(ctx context.Context, bookID string, limit int) ([]entities.Word, error) {
	var words []entities.Word
	query := r.db.WithContext(ctx).Where("book_id = ?", bookID).Order("word_rank ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&words).Error
	return words, err
}

// SaveBook creates the book or updates the existing one with the same BookID.
func (r *Repository) SaveBook(book *entities.Book) error {
	var existing entities.Book
	result := r.db.Where("book_id = ?", book.BookID).First(&existing)

	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return r.db.Create(book).Error
	} else if result.Error != nil {
		return result.Error
	}

	book.ID = existing.ID
	book.CreatedAt = existing.CreatedAt
	return r.db.Save(book).Error
}

// ReplaceWords swaps the word list of a book and refreshes its word count.
// Returns the number of words stored.
func (r *Repository) ReplaceWords(bookID string, words []entities.Word) (int, error) {
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("book_id = ?", bookID).Delete(&entities.Word{}).Error; err != nil {
			return fmt.Errorf("failed to clear words: %w", err)
		}

		for i := range words {
			words[i].ID = 0
			words[i].BookID = bookID
		}
		if len(words) > 0 {
			if err := tx.CreateInBatches(words, insertBatchSize).Error; err != nil {
				return fmt.Errorf("failed to insert words: %w", err)
			}
		}

		return tx.Model(&entities.Book{}).
			Where("book_id = ?", bookID).
			Update("words_count", len(words)).Error
	})
	if err != nil {
		return 0, err
	}
	return len(words), nil
}
