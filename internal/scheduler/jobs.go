package scheduler

import (
	"context"
	"log"

	"github.com/mrlokans/learncard/internal/session"
	"github.com/mrlokans/learncard/internal/tasks"
)

const (
	JobProgressSync  = "progress_sync"
	JobEventsCleanup = "events_cleanup"
	JobSessionSweep  = "session_sweep"
)

// ProgressSyncJob sweeps the local progress store into the server table.
// With a task client the sweep is queued, otherwise it runs in the job.
func ProgressSyncJob(client *tasks.Client, pusher *tasks.Pusher) JobFunc {
	return func(ctx context.Context) error {
		if client != nil {
			_, err := client.Add(tasks.PushAllProgressTask{}).Ctx(ctx).Save()
			return err
		}
		users, written, err := pusher.PushAll(ctx)
		log.Printf("Scheduler: progress sweep wrote %d entries for %d users", written, users)
		return err
	}
}

// EventsCleanupJob prunes events older than retentionDays.
func EventsCleanupJob(client *tasks.Client, cleaner tasks.EventCleaner, retentionDays int) JobFunc {
	return func(ctx context.Context) error {
		if client != nil {
			_, err := client.Add(tasks.CleanupEventsTask{RetentionDays: retentionDays}).Ctx(ctx).Save()
			return err
		}
		return tasks.CleanupEventsProcessor(cleaner)(ctx, tasks.CleanupEventsTask{RetentionDays: retentionDays})
	}
}

// SessionSweepJob evicts idle clients, so their progress is handed off even
// when they never come back.
func SessionSweepJob(registry *session.Registry) JobFunc {
	return func(ctx context.Context) error {
		if n := registry.ExpireIdle(); n > 0 {
			log.Printf("Scheduler: expired %d idle clients", n)
		}
		return nil
	}
}
