package tasks

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/mikestefanello/backlite"

	"github.com/mrlokans/learncard/internal/database/userprogress"
	"github.com/mrlokans/learncard/internal/localstore"
	"github.com/mrlokans/learncard/internal/progress"
	"github.com/mrlokans/learncard/internal/session"
)

// ProgressSaver merges a local map into the server progress table.
type ProgressSaver interface {
	SaveUserProgress(ctx context.Context, userID uint, local progress.Map) (int, error)
}

// SyncLogger is told about every push. events.Service implements it.
type SyncLogger interface {
	LogProgressSync(userID uint, written int, err error)
}

// Pusher copies maps from the local progress store to the server table.
type Pusher struct {
	store  *localstore.Store
	saver  ProgressSaver
	logger SyncLogger
}

// NewPusher creates a pusher. logger may be nil.
func NewPusher(store *localstore.Store, saver ProgressSaver, logger SyncLogger) *Pusher {
	return &Pusher{store: store, saver: saver, logger: logger}
}

// PushUser pushes the stored map of one user. Users with nothing stored, and
// keys that are not user ids, are skipped.
func (p *Pusher) PushUser(ctx context.Context, userKey string) (int, error) {
	m, ok := p.store.Read(userKey)
	if !ok || len(m) == 0 {
		return 0, nil
	}
	return p.PushMap(ctx, userKey, m)
}

// PushMap pushes m as the map of userKey.
func (p *Pusher) PushMap(ctx context.Context, userKey string, m progress.Map) (int, error) {
	userID, err := userprogress.ParseUserID(userKey)
	if err != nil {
		// Legacy email keys are migrated on the user's next login.
		return 0, nil
	}

	written, err := p.saver.SaveUserProgress(ctx, userID, m)
	if p.logger != nil {
		p.logger.LogProgressSync(userID, written, err)
	}
	if err != nil {
		return 0, fmt.Errorf("push progress for user %d: %w", userID, err)
	}
	return written, nil
}

// PushAll pushes every user in the local store. Failures for one user do
// not stop the sweep; they are joined into the returned error.
func (p *Pusher) PushAll(ctx context.Context) (users, written int, err error) {
	keys, err := p.store.Users()
	if err != nil {
		return 0, 0, fmt.Errorf("list local progress: %w", err)
	}

	var errs []error
	for _, key := range keys {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		n, err := p.PushUser(ctx, key)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if n > 0 {
			users++
			written += n
		}
	}
	return users, written, errors.Join(errs...)
}

// PushProgressTask pushes one user's local map to the server.
type PushProgressTask struct {
	UserID string `json:"user_id"`
}

func (t PushProgressTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "push_progress",
		MaxAttempts: 3,
		Backoff:     30 * time.Second,
		Timeout:     time.Minute,
		Retention: &backlite.Retention{
			Duration:   24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// PushProgressProcessor creates a processor function for PushProgressTask.
func PushProgressProcessor(pusher *Pusher) backlite.QueueProcessor[PushProgressTask] {
	return func(ctx context.Context, task PushProgressTask) error {
		if pusher == nil {
			return fmt.Errorf("progress pusher not configured")
		}

		written, err := pusher.PushUser(ctx, task.UserID)
		if err != nil {
			return err
		}
		if written > 0 {
			log.Printf("[TASK] Pushed %d progress entries for user %s", written, task.UserID)
		}
		return nil
	}
}

func NewPushProgressQueue(pusher *Pusher) backlite.Queue {
	return backlite.NewQueue(PushProgressProcessor(pusher))
}

// PushAllProgressTask sweeps the whole local store into the server table.
type PushAllProgressTask struct{}

func (t PushAllProgressTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "push_all_progress",
		MaxAttempts: 1,
		Backoff:     time.Minute,
		Timeout:     30 * time.Minute,
		Retention: &backlite.Retention{
			Duration:   24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// PushAllProgressProcessor creates a processor function for PushAllProgressTask.
func PushAllProgressProcessor(pusher *Pusher) backlite.QueueProcessor[PushAllProgressTask] {
	return func(ctx context.Context, task PushAllProgressTask) error {
		if pusher == nil {
			return fmt.Errorf("progress pusher not configured")
		}

		users, written, err := pusher.PushAll(ctx)
		log.Printf("[TASK] Progress sweep complete: %d users, %d entries written", users, written)
		if err != nil {
			return fmt.Errorf("push all progress: %w", err)
		}
		return nil
	}
}

func NewPushAllProgressQueue(pusher *Pusher) backlite.Queue {
	return backlite.NewQueue(PushAllProgressProcessor(pusher))
}

// ProgressSyncer hands a finished session's map to the server. With a task
// client the push is queued, otherwise it runs inline.
type ProgressSyncer struct {
	client *Client
	pusher *Pusher
}

// NewProgressSyncer creates a syncer. client may be nil.
func NewProgressSyncer(client *Client, pusher *Pusher) *ProgressSyncer {
	return &ProgressSyncer{client: client, pusher: pusher}
}

// Sync implements session.Syncer.
func (s *ProgressSyncer) Sync(ctx context.Context, identity session.Identity, m progress.Map) error {
	if s.client != nil {
		_, err := s.client.Add(PushProgressTask{UserID: identity.ID}).Ctx(ctx).Save()
		if err != nil {
			return fmt.Errorf("queue progress push: %w", err)
		}
		return nil
	}
	_, err := s.pusher.PushMap(ctx, identity.ID, m)
	return err
}
