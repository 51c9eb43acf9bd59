package entities

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Book is a word book in the catalog. BookID is the public identifier used
// in URLs and progress records, ID is the row key.
type Book struct {
	ID          string                      `gorm:"primaryKey;size:36" json:"id"`
	BookID      string                      `gorm:"uniqueIndex;size:128;not null" json:"bookId"`
	Title       string                      `gorm:"size:512;not null" json:"title"`
	WordsCount  int                         `gorm:"not null;default:0" json:"wordsCount"`
	CoverURL    *string                     `gorm:"size:2048" json:"coverUrl"`
	Tags        datatypes.JSONSlice[string] `json:"tags"`
	Description *string                     `gorm:"type:text" json:"description,omitempty"`
	CreatedAt   time.Time                   `json:"-"`
	UpdatedAt   time.Time                   `gorm:"index" json:"-"`
}

func (b *Book) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	return nil
}

// Word is one entry of a book. Content holds the raw dictionary record as imported.
type Word struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	BookID    string         `gorm:"uniqueIndex:idx_words_book_rank;size:128;not null" json:"bookId"`
	WordRank  int            `gorm:"uniqueIndex:idx_words_book_rank;not null" json:"wordRank"`
	HeadWord  string         `gorm:"size:255" json:"headWord"`
	Content   datatypes.JSON `json:"content"`
	CreatedAt time.Time      `json:"-"`
}
