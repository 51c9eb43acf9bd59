// Package events keeps the study activity log: logins, word views, merges
// and syncs. Writes are fire-and-forget so a slow database never blocks a
// learner.
package events

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"gorm.io/datatypes"

	"github.com/mrlokans/learncard/internal/database/userprogress"
	"github.com/mrlokans/learncard/internal/entities"
	"github.com/mrlokans/learncard/internal/session"
)

// Store persists events. events.Repository in the database package implements it.
type Store interface {
	LogEvent(event *entities.Event) error
	GetEvents(userID uint, limit, offset int) ([]entities.Event, int64, error)
	DeleteOldEvents(olderThan time.Time) (int64, error)
}

// Service provides high-level event logging functionality.
type Service struct {
	store Store
	now   func() time.Time
	wg    sync.WaitGroup
}

// NewService creates a new event service.
func NewService(store Store) *Service {
	return &Service{store: store, now: time.Now}
}

// Log records an event synchronously.
func (s *Service) Log(event *entities.Event) error {
	return s.store.LogEvent(event)
}

// LogAsync records an event in the background (non-blocking).
func (s *Service) LogAsync(event *entities.Event) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.store.LogEvent(event); err != nil {
			log.Printf("Failed to log %s event: %v", event.EventType, err)
		}
	}()
}

// Wait blocks until pending async writes are done.
func (s *Service) Wait() {
	s.wg.Wait()
}

// LogWordViewed records that a user looked at a word.
func (s *Service) LogWordViewed(userID uint, bookID string, rank int) {
	s.LogAsync(&entities.Event{
		UserID:    &userID,
		BookID:    &bookID,
		EventType: entities.EventWordViewed,
		WordRank:  &rank,
	})
}

// LogProgressSync records a push of a local map to the server table.
func (s *Service) LogProgressSync(userID uint, written int, err error) {
	details := map[string]any{"written": written}
	if err != nil {
		details["error"] = truncate(err.Error(), 500)
	}
	s.LogAsync(&entities.Event{
		UserID:    &userID,
		EventType: entities.EventProgressSync,
		Payload:   payload(details),
	})
}

// RecordActivity logs a session milestone. It makes Service a
// session.ActivityRecorder.
func (s *Service) RecordActivity(a session.Activity) {
	event := &entities.Event{EventType: activityTypes[a.Kind]}
	if event.EventType == "" {
		event.EventType = entities.EventType(a.Kind)
	}
	if id, err := userprogress.ParseUserID(a.Identity.ID); err == nil {
		event.UserID = &id
	}

	details := make(map[string]any, len(a.Details)+1)
	for k, v := range a.Details {
		details[k] = v
	}
	if event.UserID == nil && a.Email != "" {
		details["email"] = a.Email
	}
	if len(details) > 0 {
		event.Payload = payload(details)
	}

	s.LogAsync(event)
}

var activityTypes = map[session.ActivityKind]entities.EventType{
	session.ActivityLogin:       entities.EventLogin,
	session.ActivityLoginFailed: entities.EventLoginFailed,
	session.ActivityRegister:    entities.EventRegister,
	session.ActivityLogout:      entities.EventLogout,
	session.ActivityMerge:       entities.EventProgressMerge,
}

// Recent returns a page of a user's events, newest first.
func (s *Service) Recent(userID uint, limit, offset int) ([]entities.Event, int64, error) {
	return s.store.GetEvents(userID, limit, offset)
}

// Cleanup removes events older than the retention period.
func (s *Service) Cleanup(retentionDays int) (int64, error) {
	if retentionDays <= 0 {
		return 0, nil
	}
	cutoff := s.now().AddDate(0, 0, -retentionDays)
	return s.store.DeleteOldEvents(cutoff)
}

func payload(details map[string]any) datatypes.JSON {
	data, err := json.Marshal(details)
	if err != nil {
		log.Printf("Failed to encode event payload: %v", err)
		return nil
	}
	return datatypes.JSON(data)
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen]
}
