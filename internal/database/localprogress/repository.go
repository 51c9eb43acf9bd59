// Package localprogress provides a key-value table that backs the
// server-hosted local progress store.
//
// # Usage
//
//	repo := localprogress.NewRepository(db)
//	payload, ok, err := repo.Get("learn-card-progress:42")
package localprogress

import (
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mrlokans/learncard/internal/entities"
)

// Repository handles all local progress database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new local progress repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Get returns the payload stored under key. ok is false when nothing is stored.
func (r *Repository) Get(key string) ([]byte, bool, error) {
	var entry entities.LocalProgressEntry
	err := r.db.Where("key = ?", key).First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return []byte(entry.Payload), true, nil
}

// Put creates or replaces the payload under key in a single statement.
func (r *Repository) Put(key string, payload []byte) error {
	entry := entities.LocalProgressEntry{
		Key:       key,
		Payload:   string(payload),
		UpdatedAt: time.Now(),
	}
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"payload", "updated_at"}),
	}).Create(&entry).Error
}

// Delete removes key. Deleting a missing key is not an error.
func (r *Repository) Delete(key string) error {
	return r.db.Where("key = ?", key).Delete(&entities.LocalProgressEntry{}).Error
}

// Keys lists stored keys starting with prefix, in key order.
func (r *Repository) Keys(prefix string) ([]string, error) {
	var keys []string
	err := r.db.Model(&entities.LocalProgressEntry{}).
		Where("key LIKE ? ESCAPE '\\'", escapeLike(prefix)+"%").
		Order("key ASC").
		Pluck("key", &keys).Error
	return keys, err
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
