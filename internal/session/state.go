// Package session tracks who is studying on one client and reconciles their
// progress when they sign in.
//
// Each client moves through three states:
//
//	Anonymous ──LoginStarted──▶ Authenticating ──LoginSucceeded──▶ Authenticated
//	    ▲                            │                                  │
//	    └───────LoginFailed──────────┘◀──────────LoggedOut──────────────┘
//
// State changes go through Transition, a pure function of the previous
// snapshot and an event. Manager owns the snapshot for one client and runs
// the side effects around each transition.
package session

import (
	"strings"

	"github.com/mrlokans/learncard/internal/progress"
)

type State int

const (
	Anonymous State = iota
	Authenticating
	Authenticated
)

func (s State) String() string {
	switch s {
	case Anonymous:
		return "anonymous"
	case Authenticating:
		return "authenticating"
	case Authenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

// MarshalText lets State appear as a string in JSON.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Message is the user-facing outcome of the last login or register attempt.
type Message string

const (
	MessageNone               Message = ""
	MessageMissingCredentials Message = "missing_credentials"
	MessageInvalidCredentials Message = "invalid_credentials"
	MessageAccountLocked      Message = "account_locked"
	MessageTransientFailure   Message = "transient_failure"
	MessageAlreadyRegistered  Message = "already_registered"
	MessageInvalidInput       Message = "invalid_input"
)

// Identity is an authenticated user as seen by a client.
type Identity struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// UserSummary is derived from the progress map on every change.
type UserSummary struct {
	ID           string                  `json:"id"`
	Email        string                  `json:"email"`
	DisplayName  string                  `json:"displayName"`
	LearnedBooks int                     `json:"learnedBooks"`
	LearnedWords int                     `json:"learnedWords"`
	Progress     []progress.BookProgress `json:"progress"`
}

// BuildSummary folds m into a summary for identity.
func BuildSummary(identity Identity, m progress.Map) UserSummary {
	totals := progress.RecomputeSummary(m)
	return UserSummary{
		ID:           identity.ID,
		Email:        identity.Email,
		DisplayName:  DisplayName(identity.Email),
		LearnedBooks: totals.LearnedBooks,
		LearnedWords: totals.LearnedWords,
		Progress:     progress.SortByRecency(m),
	}
}

// DisplayName is the local part of an email address.
func DisplayName(email string) string {
	if at := strings.Index(email, "@"); at >= 0 {
		return email[:at]
	}
	return email
}

func (s UserSummary) clone() UserSummary {
	out := s
	out.Progress = make([]progress.BookProgress, len(s.Progress))
	for i, entry := range s.Progress {
		out.Progress[i] = entry.Copy()
	}
	return out
}

// Snapshot is the complete state of one client.
type Snapshot struct {
	State      State
	Submitting bool
	Message    Message
	Summary    *UserSummary
	Progress   progress.Map
}

// Event is an input to Transition.
type Event interface {
	event()
}

// InputRejected reports a validation failure. Only the message changes.
type InputRejected struct {
	Message Message
}

type LoginStarted struct{}

type LoginFailed struct {
	Message Message
}

type LoginSucceeded struct {
	Summary  UserSummary
	Progress progress.Map
}

// ProgressUpdated replaces the map of an authenticated client.
type ProgressUpdated struct {
	Progress progress.Map
}

type LoggedOut struct{}

func (InputRejected) event()   {}
func (LoginStarted) event()    {}
func (LoginFailed) event()     {}
func (LoginSucceeded) event()  {}
func (ProgressUpdated) event() {}
func (LoggedOut) event()       {}

// Transition returns the snapshot that follows s after e. Events that do not
// apply to the current state leave it unchanged.
func Transition(s Snapshot, e Event) Snapshot {
	switch ev := e.(type) {
	case InputRejected:
		s.Message = ev.Message
		return s

	case LoginStarted:
		if s.State == Authenticating {
			return s
		}
		return Snapshot{State: Authenticating, Submitting: true, Progress: progress.Map{}}

	case LoginFailed:
		if s.State != Authenticating {
			return s
		}
		return Snapshot{State: Anonymous, Message: ev.Message, Progress: progress.Map{}}

	case LoginSucceeded:
		if s.State != Authenticating {
			return s
		}
		summary := ev.Summary
		return Snapshot{
			State:    Authenticated,
			Summary:  &summary,
			Progress: ev.Progress,
		}

	case ProgressUpdated:
		if s.State != Authenticated || s.Summary == nil {
			return s
		}
		summary := BuildSummary(Identity{ID: s.Summary.ID, Email: s.Summary.Email}, ev.Progress)
		s.Summary = &summary
		s.Progress = ev.Progress
		return s

	case LoggedOut:
		return Snapshot{State: Anonymous, Progress: progress.Map{}}
	}
	return s
}
