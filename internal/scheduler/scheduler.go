// Package scheduler runs the periodic maintenance jobs of the server on cron
// schedules: the progress sweep and event log cleanup.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// ValidateSchedule checks a five-field cron expression.
func ValidateSchedule(schedule string) error {
	_, err := parser.Parse(schedule)
	return err
}

// Describe returns a human-readable description of a cron schedule.
func Describe(schedule string) string {
	switch schedule {
	case "0 * * * *":
		return "Every hour at :00"
	case "*/15 * * * *":
		return "Every 15 minutes"
	case "*/30 * * * *":
		return "Every 30 minutes"
	case "0 */6 * * *":
		return "Every 6 hours"
	case "0 0 * * *":
		return "Daily at midnight"
	default:
		return "Custom schedule: " + schedule
	}
}

// JobFunc is one run of a job.
type JobFunc func(ctx context.Context) error

type job struct {
	name     string
	schedule string
	run      JobFunc
	entryID  cron.EntryID
}

// Scheduler runs named jobs. A job that is still running when its next
// slot comes up is skipped for that slot.
type Scheduler struct {
	cron *cron.Cron

	mu         sync.RWMutex
	jobs       map[string]*job
	isRunning  bool
	cancelFunc context.CancelFunc

	// ctx is guarded separately so jobs never wait on mu while Stop holds it.
	ctxMu sync.Mutex
	ctx   context.Context
}

func New() *Scheduler {
	return &Scheduler{
		cron: cron.New(
			cron.WithParser(parser),
			cron.WithChain(cron.SkipIfStillRunning(cron.PrintfLogger(log.Default()))),
		),
		jobs: make(map[string]*job),
		ctx:  context.Background(),
	}
}

// Add registers a job. Jobs can be added before or after Start.
func (s *Scheduler) Add(name, schedule string, run JobFunc) error {
	if err := ValidateSchedule(schedule); err != nil {
		return fmt.Errorf("invalid cron schedule '%s': %w", schedule, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[name]; exists {
		return fmt.Errorf("job %q already scheduled", name)
	}

	j := &job{name: name, schedule: schedule, run: run}
	entryID, err := s.cron.AddFunc(schedule, func() { s.runJob(j) })
	if err != nil {
		return fmt.Errorf("failed to schedule %s: %w", name, err)
	}
	j.entryID = entryID
	s.jobs[name] = j

	log.Printf("Scheduler: %s scheduled '%s' (%s)", name, schedule, Describe(schedule))
	return nil
}

// Start begins running jobs until Stop is called or ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return
	}

	var cancelCtx context.Context
	cancelCtx, s.cancelFunc = context.WithCancel(ctx)
	s.ctxMu.Lock()
	s.ctx = cancelCtx
	s.ctxMu.Unlock()

	s.cron.Start()
	s.isRunning = true
	log.Printf("Scheduler: started with %d jobs", len(s.jobs))

	go func() {
		<-cancelCtx.Done()
		s.Stop()
	}()
}

// Stop waits for running jobs and stops the scheduler.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return
	}

	if s.cancelFunc != nil {
		s.cancelFunc()
		s.cancelFunc = nil
	}
	done := s.cron.Stop()
	<-done.Done()

	s.isRunning = false
	log.Printf("Scheduler: stopped")
}

func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// NextRun returns when a job runs next, nil when it is unknown or the
// scheduler is stopped.
func (s *Scheduler) NextRun(name string) *time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	j, ok := s.jobs[name]
	if !ok || !s.isRunning {
		return nil
	}
	entry := s.cron.Entry(j.entryID)
	if entry.ID == 0 {
		return nil
	}
	next := entry.Next
	return &next
}

// RunNow runs a job immediately in the background.
func (s *Scheduler) RunNow(name string) error {
	s.mu.RLock()
	j, ok := s.jobs[name]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("unknown job %q", name)
	}
	go s.runJob(j)
	return nil
}

func (s *Scheduler) runJob(j *job) {
	s.ctxMu.Lock()
	ctx := s.ctx
	s.ctxMu.Unlock()

	started := time.Now()
	if err := j.run(ctx); err != nil {
		log.Printf("Scheduler: %s failed after %v: %v", j.name, time.Since(started).Round(time.Millisecond), err)
		return
	}
	log.Printf("Scheduler: %s finished in %v", j.name, time.Since(started).Round(time.Millisecond))
}
