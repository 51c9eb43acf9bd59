package entities

import (
	"time"

	"gorm.io/datatypes"
)

type EventType string

const (
	EventLogin         EventType = "login"
	EventLoginFailed   EventType = "login_failed"
	EventRegister      EventType = "register"
	EventLogout        EventType = "logout"
	EventWordViewed    EventType = "word_viewed"
	EventProgressMerge EventType = "progress_merge"
	EventProgressSync  EventType = "progress_sync"
)

// Event is one entry of the study activity log.
type Event struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	UserID    *uint          `gorm:"index" json:"user_id,omitempty"`
	BookID    *string        `gorm:"index;size:128" json:"book_id,omitempty"`
	EventType EventType      `gorm:"index;size:50;not null" json:"event_type"`
	WordRank  *int           `json:"word_rank,omitempty"`
	Payload   datatypes.JSON `json:"payload,omitempty"`
	CreatedAt time.Time      `gorm:"index" json:"created_at"`
}

func (Event) TableName() string {
	return "events"
}
