package session

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"

	"github.com/mrlokans/learncard/internal/localstore"
	"github.com/mrlokans/learncard/internal/progress"
)

var (
	ErrMissingCredentials = errors.New("email and password are required")
	ErrTransitionInFlight = errors.New("a login is already in progress")
	ErrNotAuthenticated   = errors.New("not authenticated")
	ErrSuperseded         = errors.New("result belongs to a superseded login")
)

// Errors an Authenticator reports. Anything else counts as transient.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountLocked      = errors.New("account locked")
	ErrMissingFields      = errors.New("missing fields")
	ErrAlreadyRegistered  = errors.New("already registered")
	ErrInvalidInput       = errors.New("invalid input")
)

// Authenticator checks credentials and creates accounts.
type Authenticator interface {
	Authenticate(ctx context.Context, email, password string) (Identity, error)
	Register(ctx context.Context, email, password string) error
}

// ServerProgressSource loads the progress the server holds for a user.
type ServerProgressSource interface {
	FetchServerProgress(ctx context.Context, userID string) (progress.Map, error)
}

// Syncer receives the final map of a session when it ends.
type Syncer interface {
	Sync(ctx context.Context, identity Identity, m progress.Map) error
}

// ActivityRecorder is told about session milestones.
type ActivityRecorder interface {
	RecordActivity(a Activity)
}

type ActivityKind string

const (
	ActivityLogin       ActivityKind = "login"
	ActivityLoginFailed ActivityKind = "login_failed"
	ActivityRegister    ActivityKind = "register"
	ActivityLogout      ActivityKind = "logout"
	ActivityMerge       ActivityKind = "progress_merge"
)

// Activity describes one milestone. Identity is empty for failed logins.
type Activity struct {
	Kind     ActivityKind
	Identity Identity
	Email    string
	Details  map[string]any
}

// Dependencies wires a Manager. Syncer and Recorder are optional.
type Dependencies struct {
	Authenticator Authenticator
	Server        ServerProgressSource
	Store         *localstore.Store
	Syncer        Syncer
	Recorder      ActivityRecorder
}

// Manager owns the session of one client. All methods are safe for
// concurrent use; operations on one manager are applied one at a time.
type Manager struct {
	deps Dependencies

	mu         sync.Mutex
	snap       Snapshot
	identity   Identity
	generation uint64
}

func NewManager(deps Dependencies) *Manager {
	return &Manager{
		deps: deps,
		snap: Snapshot{State: Anonymous, Progress: progress.Map{}},
	}
}

// Login authenticates and reconciles the user's progress.
func (m *Manager) Login(ctx context.Context, email, password string) error {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		m.reject(MessageMissingCredentials)
		return ErrMissingCredentials
	}

	gen, err := m.begin(ctx)
	if err != nil {
		return err
	}

	identity, err := m.deps.Authenticator.Authenticate(ctx, email, password)
	if err != nil {
		m.record(Activity{Kind: ActivityLoginFailed, Email: email})
		return m.fail(gen, err)
	}

	return m.complete(ctx, gen, identity, ActivityLogin)
}

// Register creates an account and then logs it in.
func (m *Manager) Register(ctx context.Context, email, password string) error {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		m.reject(MessageMissingCredentials)
		return ErrMissingCredentials
	}

	gen, err := m.begin(ctx)
	if err != nil {
		return err
	}

	if err := m.deps.Authenticator.Register(ctx, email, password); err != nil {
		return m.fail(gen, err)
	}

	identity, err := m.deps.Authenticator.Authenticate(ctx, email, password)
	if err != nil {
		return m.fail(gen, err)
	}

	return m.complete(ctx, gen, identity, ActivityRegister)
}

// Resume restores a user whose credentials were already checked, such as
// one carried by a session cookie. Resuming the current user is a no-op.
func (m *Manager) Resume(ctx context.Context, identity Identity) error {
	if identity.ID == "" {
		return ErrMissingCredentials
	}

	m.mu.Lock()
	current := m.snap.State == Authenticated && m.identity.ID == identity.ID
	m.mu.Unlock()
	if current {
		return nil
	}

	gen, err := m.begin(ctx)
	if err != nil {
		return err
	}
	return m.complete(ctx, gen, identity, ActivityLogin)
}

// Logout drops the in-memory session. The device store keeps the map so a
// later login on this client picks it up again.
func (m *Manager) Logout(ctx context.Context) {
	identity, final, ok := m.reset()
	if !ok {
		return
	}
	m.handOff(ctx, identity, final)
	m.record(Activity{Kind: ActivityLogout, Identity: identity})
}

// Expire ends the session without recording a logout. The registry calls it
// when a client goes idle.
func (m *Manager) Expire(ctx context.Context) {
	identity, final, ok := m.reset()
	if !ok {
		return
	}
	m.handOff(ctx, identity, final)
}

// UpdateProgress applies updater to bookID and persists the new map on the
// device. Books other clients of the user stored meanwhile are merged in.
func (m *Manager) UpdateProgress(bookID string, updater progress.Updater) (progress.BookProgress, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.snap.State != Authenticated {
		return progress.BookProgress{}, ErrNotAuthenticated
	}

	// Other clients of the same user write to the same key, so the update
	// lands on top of what they stored.
	var entry progress.BookProgress
	next := m.deps.Store.Update(m.identity.ID, func(stored progress.Map) progress.Map {
		var out progress.Map
		entry, out = progress.UpdateProgress(progress.Merge(stored, m.snap.Progress), bookID, updater)
		return out
	})
	m.snap = Transition(m.snap, ProgressUpdated{Progress: next})
	return entry, nil
}

func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snap.State
}

// Authenticated reports whether progress updates are currently accepted.
func (m *Manager) Authenticated() bool {
	return m.State() == Authenticated
}

func (m *Manager) Submitting() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snap.Submitting
}

func (m *Manager) Message() Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snap.Message
}

// Summary returns a copy of the current summary, nil when nobody is logged in.
func (m *Manager) Summary() *UserSummary {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.snap.Summary == nil {
		return nil
	}
	s := m.snap.Summary.clone()
	return &s
}

// Progress returns a copy of the current map.
func (m *Manager) Progress() progress.Map {
	m.mu.Lock()
	defer m.mu.Unlock()
	return progress.Clone(m.snap.Progress)
}

// Entry returns the current entry for one book.
func (m *Manager) Entry(bookID string) (progress.BookProgress, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.snap.Progress[bookID]
	if !ok {
		return progress.BookProgress{}, false
	}
	return entry.Copy(), true
}

// Identity returns the logged in user. ok is false when anonymous.
func (m *Manager) Identity() (Identity, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.identity, m.snap.State == Authenticated
}

// Snapshot returns a copy of the full client state.
func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.snap
	out.Progress = progress.Clone(m.snap.Progress)
	if m.snap.Summary != nil {
		s := m.snap.Summary.clone()
		out.Summary = &s
	}
	return out
}

func (m *Manager) reject(msg Message) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snap = Transition(m.snap, InputRejected{Message: msg})
}

// begin enters Authenticating and returns the generation the attempt runs
// under. A previous session on this client is handed off first.
func (m *Manager) begin(ctx context.Context) (uint64, error) {
	m.mu.Lock()
	if m.snap.State == Authenticating {
		m.mu.Unlock()
		return 0, ErrTransitionInFlight
	}

	var (
		previous Identity
		final    progress.Map
	)
	if m.snap.State == Authenticated {
		previous = m.identity
		final = m.snap.Progress
	}

	m.generation++
	gen := m.generation
	m.identity = Identity{}
	m.snap = Transition(m.snap, LoginStarted{})
	m.mu.Unlock()

	if previous.ID != "" {
		m.handOff(ctx, previous, final)
	}
	return gen, nil
}

func (m *Manager) fail(gen uint64, cause error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if gen != m.generation {
		return ErrSuperseded
	}
	m.snap = Transition(m.snap, LoginFailed{Message: messageFor(cause)})
	return cause
}

// complete reconciles server and device progress for identity. Everything
// after the server fetch runs under the lock, so no progress update can see
// the map before the merge.
func (m *Manager) complete(ctx context.Context, gen uint64, identity Identity, kind ActivityKind) error {
	server, err := m.deps.Server.FetchServerProgress(ctx, identity.ID)
	if err != nil {
		log.Printf("Failed to fetch server progress for %s: %v", identity.ID, err)
		server = nil
	}

	m.mu.Lock()
	if gen != m.generation {
		m.mu.Unlock()
		return ErrSuperseded
	}

	merged, local, origin := m.deps.Store.Reconcile(identity.ID, identity.Email, server)

	m.identity = identity
	m.snap = Transition(m.snap, LoginSucceeded{
		Summary:  BuildSummary(identity, merged),
		Progress: merged,
	})
	m.mu.Unlock()

	m.record(Activity{Kind: kind, Identity: identity})
	m.record(Activity{
		Kind:     ActivityMerge,
		Identity: identity,
		Details: map[string]any{
			"server_books": len(server),
			"local_books":  len(local),
			"merged_books": len(merged),
			"legacy_key":   origin == localstore.OriginLegacyEmail,
		},
	})
	return nil
}

// reset leaves the current session and returns what it held.
func (m *Manager) reset() (Identity, progress.Map, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.snap.State == Anonymous {
		return Identity{}, nil, false
	}

	identity := m.identity
	final := m.snap.Progress
	wasAuthenticated := m.snap.State == Authenticated

	m.generation++
	m.identity = Identity{}
	m.snap = Transition(m.snap, LoggedOut{})
	return identity, final, wasAuthenticated
}

func (m *Manager) handOff(ctx context.Context, identity Identity, final progress.Map) {
	if m.deps.Syncer == nil || len(final) == 0 {
		return
	}
	if err := m.deps.Syncer.Sync(ctx, identity, final); err != nil {
		log.Printf("Failed to sync progress for %s: %v", identity.ID, err)
	}
}

func (m *Manager) record(a Activity) {
	if m.deps.Recorder != nil {
		m.deps.Recorder.RecordActivity(a)
	}
}

func messageFor(err error) Message {
	switch {
	case errors.Is(err, ErrInvalidCredentials):
		return MessageInvalidCredentials
	case errors.Is(err, ErrAccountLocked):
		return MessageAccountLocked
	case errors.Is(err, ErrMissingFields):
		return MessageMissingCredentials
	case errors.Is(err, ErrAlreadyRegistered):
		return MessageAlreadyRegistered
	case errors.Is(err, ErrInvalidInput):
		return MessageInvalidInput
	default:
		return MessageTransientFailure
	}
}

// IsTransient reports whether err is an infrastructure failure rather than
// a problem with the user's input.
func IsTransient(err error) bool {
	return err != nil && messageFor(err) == MessageTransientFailure &&
		!errors.Is(err, ErrMissingCredentials) &&
		!errors.Is(err, ErrTransitionInFlight) &&
		!errors.Is(err, ErrSuperseded) &&
		!errors.Is(err, ErrNotAuthenticated)
}
