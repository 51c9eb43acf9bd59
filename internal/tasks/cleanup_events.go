package tasks

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/mikestefanello/backlite"
)

// DefaultEventRetentionDays applies when a task carries no retention.
const DefaultEventRetentionDays = 90

// EventCleaner deletes study events past their retention.
type EventCleaner interface {
	Cleanup(retentionDays int) (int64, error)
}

// CleanupEventsTask removes study events older than RetentionDays.
type CleanupEventsTask struct {
	RetentionDays int `json:"retention_days"`
}

func (t CleanupEventsTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "cleanup_events",
		MaxAttempts: 3,
		Backoff:     5 * time.Minute,
		Timeout:     2 * time.Minute,
		Retention: &backlite.Retention{
			Duration:   24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// CleanupEventsProcessor creates a processor function for CleanupEventsTask.
func CleanupEventsProcessor(cleaner EventCleaner) backlite.QueueProcessor[CleanupEventsTask] {
	return func(ctx context.Context, task CleanupEventsTask) error {
		if cleaner == nil {
			return fmt.Errorf("event cleaner not configured")
		}

		retentionDays := task.RetentionDays
		if retentionDays <= 0 {
			retentionDays = DefaultEventRetentionDays
		}

		deleted, err := cleaner.Cleanup(retentionDays)
		if err != nil {
			return fmt.Errorf("cleanup events: %w", err)
		}

		log.Printf("[TASK] Cleaned up %d events older than %d days", deleted, retentionDays)
		return nil
	}
}

func NewCleanupEventsQueue(cleaner EventCleaner) backlite.Queue {
	return backlite.NewQueue(CleanupEventsProcessor(cleaner))
}
