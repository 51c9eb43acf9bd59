// Package events stores the study activity log: logins, viewed words and
// progress merges.
package events

import (
	"time"

	"gorm.io/gorm"

	"github.com/mrlokans/learncard/internal/entities"
)

const defaultPageSize = 50

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// LogEvent saves an event to the database.
func (r *Repository) LogEvent(event *entities.Event) error {
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}
	return r.db.Create(event).Error
}

// GetEvents retrieves paginated events for a user, most recent first.
// A zero userID lists events of every user.
func (r *Repository) GetEvents(userID uint, limit, offset int) ([]entities.Event, int64, error) {
	query := r.db.Model(&entities.Event{})
	if userID > 0 {
		query = query.Where("user_id = ?", userID)
	}
	return page(query, limit, offset)
}

// GetEventsByType retrieves events of one type.
func (r *Repository) GetEventsByType(eventType entities.EventType, userID uint, limit, offset int) ([]entities.Event, int64, error) {
	query := r.db.Model(&entities.Event{}).Where("event_type = ?", eventType)
	if userID > 0 {
		query = query.Where("user_id = ?", userID)
	}
	return page(query, limit, offset)
}

// GetBookEvents retrieves a user's events for a single book.
func (r *Repository) GetBookEvents(userID uint, bookID string, limit, offset int) ([]entities.Event, int64, error) {
	query := r.db.Model(&entities.Event{}).
		Where("user_id = ?", userID).
		Where("book_id = ?", bookID)
	return page(query, limit, offset)
}

// CountWordsViewedSince counts distinct words a user viewed in a book since the given time.
func (r *Repository) CountWordsViewedSince(userID uint, bookID string, since time.Time) (int64, error) {
	var count int64
	err := r.db.Model(&entities.Event{}).
		Where("user_id = ? AND book_id = ? AND event_type = ? AND created_at >= ?",
			userID, bookID, entities.EventWordViewed, since).
		Distinct("word_rank").
		Count(&count).Error
	return count, err
}

// DeleteOldEvents removes events older than the specified time.
// Returns the number of deleted events.
func (r *Repository) DeleteOldEvents(olderThan time.Time) (int64, error) {
	result := r.db.Where("created_at < ?", olderThan).Delete(&entities.Event{})
	return result.RowsAffected, result.Error
}

func page(query *gorm.DB, limit, offset int) ([]entities.Event, int64, error) {
	var events []entities.Event
	var total int64

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if limit <= 0 {
		limit = defaultPageSize
	}
	if offset < 0 {
		offset = 0
	}

	err := query.Order("created_at DESC").Order("id DESC").Limit(limit).Offset(offset).Find(&events).Error
	return events, total, err
}
