// Package userprogress persists per-user book progress on the server
// (the user_book_progress table).
//
// Reads join the books table so every entry carries the book size. Writes
// reconcile with what is already stored, so pushing an older local map never
// moves the server backwards.
//
// # Usage
//
//	repo := userprogress.NewRepository(db)
//	m, err := repo.GetUserProgress(ctx, userID)
//	written, err := repo.SaveUserProgress(ctx, userID, local)
package userprogress

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"gorm.io/gorm"

	"github.com/mrlokans/learncard/internal/entities"
	"github.com/mrlokans/learncard/internal/progress"
)

var ErrInvalidUserID = errors.New("invalid user id")

// Repository handles all server progress database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new user progress repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

type progressRow struct {
	BookID       string
	LastIndex    int
	LearnedWords int
	UpdatedAt    time.Time
	WordsCount   *int
}

// GetUserProgress loads every progress row of a user as a progress map.
// Books missing from the catalog keep their progress without a words count.
func (r *Repository) GetUserProgress(ctx context.Context, userID uint) (progress.Map, error) {
	var rows []progressRow
	err := r.db.WithContext(ctx).
		Table("user_book_progress AS p").
		Select("p.book_id, p.last_index, p.learned_words, p.updated_at, b.words_count").
		Joins("LEFT JOIN books b ON b.book_id = p.book_id").
		Where("p.user_id = ?", userID).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load progress for user %d: %w", userID, err)
	}

	m := make(progress.Map, len(rows))
	for _, row := range rows {
		m[row.BookID] = progress.BookProgress{
			BookID:       row.BookID,
			LastIndex:    row.LastIndex,
			LearnedWords: progress.Int(row.LearnedWords),
			UpdatedAt:    progress.FormatTime(row.UpdatedAt),
			WordsCount:   row.WordsCount,
		}
	}
	return m, nil
}

// FetchServerProgress is GetUserProgress keyed by the string identity used
// by client sessions.
func (r *Repository) FetchServerProgress(ctx context.Context, userID string) (progress.Map, error) {
	id, err := ParseUserID(userID)
	if err != nil {
		return nil, err
	}
	return r.GetUserProgress(ctx, id)
}

// SaveUserProgress merges local into the stored progress and writes back the
// entries that changed. It returns the number of rows written.
func (r *Repository) SaveUserProgress(ctx context.Context, userID uint, local progress.Map) (int, error) {
	if len(local) == 0 {
		return 0, nil
	}

	written := 0
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing []entities.UserBookProgress
		if err := tx.Where("user_id = ?", userID).Find(&existing).Error; err != nil {
			return err
		}

		server := make(progress.Map, len(existing))
		rows := make(map[string]*entities.UserBookProgress, len(existing))
		for i := range existing {
			row := &existing[i]
			rows[row.BookID] = row
			server[row.BookID] = progress.BookProgress{
				BookID:       row.BookID,
				LastIndex:    row.LastIndex,
				LearnedWords: progress.Int(row.LearnedWords),
				UpdatedAt:    progress.FormatTime(row.UpdatedAt),
			}
		}

		merged := progress.Merge(server, local)
		for bookID, entry := range merged {
			lastIndex := entry.LastIndex
			if lastIndex < 0 {
				lastIndex = 0
			}
			learned := entry.EffectiveLearned()
			updatedAt := entry.Time()

			row, ok := rows[bookID]
			if !ok {
				created := entities.UserBookProgress{
					UserID:       userID,
					BookID:       bookID,
					LastIndex:    lastIndex,
					LearnedWords: learned,
					UpdatedAt:    updatedAt,
				}
				if err := tx.Create(&created).Error; err != nil {
					return fmt.Errorf("failed to create progress for book %s: %w", bookID, err)
				}
				written++
				continue
			}

			if learned < row.LearnedWords {
				learned = row.LearnedWords
			}
			if row.LastIndex == lastIndex && row.LearnedWords == learned && row.UpdatedAt.Equal(updatedAt) {
				continue
			}

			err := tx.Model(row).UpdateColumns(map[string]any{
				"last_index":    lastIndex,
				"learned_words": learned,
				"updated_at":    updatedAt,
			}).Error
			if err != nil {
				return fmt.Errorf("failed to update progress for book %s: %w", bookID, err)
			}
			written++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return written, nil
}

// ListUserIDs returns the ids of users that have any stored progress.
func (r *Repository) ListUserIDs(ctx context.Context) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).
		Model(&entities.UserBookProgress{}).
		Distinct("user_id").
		Order("user_id").
		Pluck("user_id", &ids).Error
	return ids, err
}

// ParseUserID converts a session identity into a user id.
func ParseUserID(s string) (uint, error) {
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidUserID, s)
	}
	return uint(id), nil
}
