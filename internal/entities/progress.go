package entities

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserBookProgress is the server copy of a user's position in a book.
type UserBookProgress struct {
	ID           string    `gorm:"primaryKey;size:36" json:"id"`
	UserID       uint      `gorm:"uniqueIndex:idx_user_book_progress;not null" json:"user_id"`
	BookID       string    `gorm:"uniqueIndex:idx_user_book_progress;size:128;not null" json:"book_id"`
	LastIndex    int       `gorm:"not null;default:0;check:last_index >= 0" json:"last_index"`
	LearnedWords int       `gorm:"not null;default:0" json:"learned_words"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `gorm:"index" json:"updated_at"`
}

func (UserBookProgress) TableName() string {
	return "user_book_progress"
}

func (p *UserBookProgress) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

// LocalProgressEntry is one key of the server-hosted local progress store.
// Payload is the JSON encoded progress map.
type LocalProgressEntry struct {
	Key       string    `gorm:"primaryKey;size:255" json:"key"`
	Payload   string    `gorm:"type:text;not null" json:"payload"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (LocalProgressEntry) TableName() string {
	return "local_progress"
}
