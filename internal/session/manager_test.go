package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/learncard/internal/localstore"
	"github.com/mrlokans/learncard/internal/progress"
)

type memBackend struct {
	mu   sync.Mutex
	data map[string][]byte
}

func (m *memBackend) Get(key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memBackend) Put(key string, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = payload
	return nil
}

func (m *memBackend) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

type fakeAuth struct {
	identity    Identity
	authErr     error
	registerErr error
	// block, when set, holds Authenticate until it is closed.
	block   chan struct{}
	entered chan struct{}
}

func (f *fakeAuth) Authenticate(ctx context.Context, email, password string) (Identity, error) {
	if f.entered != nil {
		f.entered <- struct{}{}
	}
	if f.block != nil {
		<-f.block
	}
	if f.authErr != nil {
		return Identity{}, f.authErr
	}
	return f.identity, nil
}

func (f *fakeAuth) Register(ctx context.Context, email, password string) error {
	return f.registerErr
}

type fakeServer struct {
	m   progress.Map
	err error
}

func (f *fakeServer) FetchServerProgress(ctx context.Context, userID string) (progress.Map, error) {
	return progress.Clone(f.m), f.err
}

type fakeSyncer struct {
	mu     sync.Mutex
	synced []progress.Map
}

func (f *fakeSyncer) Sync(ctx context.Context, identity Identity, m progress.Map) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.synced = append(f.synced, m)
	return nil
}

type fakeRecorder struct {
	mu    sync.Mutex
	kinds []ActivityKind
}

func (f *fakeRecorder) RecordActivity(a Activity) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.kinds = append(f.kinds, a.Kind)
}

type fixture struct {
	manager  *Manager
	store    *localstore.Store
	auth     *fakeAuth
	server   *fakeServer
	syncer   *fakeSyncer
	recorder *fakeRecorder
}

func newFixture() *fixture {
	f := &fixture{
		store:    localstore.NewStore(&memBackend{data: map[string][]byte{}}, ""),
		auth:     &fakeAuth{identity: Identity{ID: "42", Email: "reader@example.com"}},
		server:   &fakeServer{},
		syncer:   &fakeSyncer{},
		recorder: &fakeRecorder{},
	}
	f.manager = NewManager(Dependencies{
		Authenticator: f.auth,
		Server:        f.server,
		Store:         f.store,
		Syncer:        f.syncer,
		Recorder:      f.recorder,
	})
	return f
}

func TestManager_LoginMergesAndPersists(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	f.server.m = progress.Map{
		"cet4": {BookID: "cet4", LastIndex: 10, LearnedWords: progress.Int(11), UpdatedAt: "2024-01-02T00:00:00Z", WordsCount: progress.Int(3000)},
		"gre":  {BookID: "gre", LastIndex: 3, LearnedWords: progress.Int(4), UpdatedAt: "2024-01-01T00:00:00Z"},
	}
	f.store.Write("42", progress.Map{
		"cet4": {BookID: "cet4", LastIndex: 15, LearnedWords: progress.Int(16), UpdatedAt: "2024-01-03T00:00:00Z"},
	})

	require.NoError(t, f.manager.Login(ctx, "reader@example.com", "secret-password"))

	assert.Equal(t, Authenticated, f.manager.State())
	assert.False(t, f.manager.Submitting())

	merged := f.manager.Progress()
	assert.Equal(t, 15, merged["cet4"].LastIndex)
	require.NotNil(t, merged["cet4"].WordsCount)
	assert.Equal(t, 3000, *merged["cet4"].WordsCount)

	summary := f.manager.Summary()
	require.NotNil(t, summary)
	assert.Equal(t, 2, summary.LearnedBooks)
	assert.Equal(t, 20, summary.LearnedWords)
	assert.Equal(t, "cet4", summary.Progress[0].BookID)

	stored, ok := f.store.Read("42")
	require.True(t, ok)
	assert.Equal(t, merged, stored)

	assert.Equal(t, []ActivityKind{ActivityLogin, ActivityMerge}, f.recorder.kinds)
}

func TestManager_LoginMigratesLegacyEmailKey(t *testing.T) {
	f := newFixture()
	f.store.Write("reader@example.com", progress.Map{
		"cet4": {BookID: "cet4", LastIndex: 2, UpdatedAt: "2024-01-03T00:00:00Z"},
	})

	require.NoError(t, f.manager.Login(context.Background(), "reader@example.com", "pw"))

	_, ok := f.store.Read("reader@example.com")
	assert.False(t, ok, "legacy key is cleared")
	stored, ok := f.store.Read("42")
	require.True(t, ok)
	assert.Equal(t, 2, stored["cet4"].LastIndex)
}

func TestManager_CorruptLocalStoreEqualsEmpty(t *testing.T) {
	backend := &memBackend{data: map[string][]byte{"learn-card-progress:42": []byte("{broken")}}
	f := newFixture()
	f.store = localstore.NewStore(backend, "")
	f.manager = NewManager(Dependencies{Authenticator: f.auth, Server: f.server, Store: f.store})
	f.server.m = progress.Map{
		"cet4": {BookID: "cet4", LastIndex: 1, LearnedWords: progress.Int(2), UpdatedAt: "2024-01-01T00:00:00Z"},
	}

	require.NoError(t, f.manager.Login(context.Background(), "reader@example.com", "pw"))
	assert.Equal(t, f.server.m, f.manager.Progress())
}

func TestManager_ServerFailureDegradesToLocal(t *testing.T) {
	f := newFixture()
	f.server.err = errors.New("connection refused")
	f.store.Write("42", progress.Map{"gre": {BookID: "gre", LastIndex: 4}})

	require.NoError(t, f.manager.Login(context.Background(), "reader@example.com", "pw"))
	assert.Equal(t, Authenticated, f.manager.State())
	assert.Contains(t, f.manager.Progress(), "gre")
}

func TestManager_LoginValidation(t *testing.T) {
	f := newFixture()

	err := f.manager.Login(context.Background(), "  ", "pw")
	assert.ErrorIs(t, err, ErrMissingCredentials)
	assert.Equal(t, Anonymous, f.manager.State())
	assert.Equal(t, MessageMissingCredentials, f.manager.Message())
}

func TestManager_LoginFailureMessages(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		message Message
	}{
		{"bad password", ErrInvalidCredentials, MessageInvalidCredentials},
		{"locked", ErrAccountLocked, MessageAccountLocked},
		{"network", errors.New("dial tcp: timeout"), MessageTransientFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			f.auth.authErr = tt.err

			err := f.manager.Login(context.Background(), "reader@example.com", "pw")
			assert.ErrorIs(t, err, tt.err)
			assert.Equal(t, Anonymous, f.manager.State())
			assert.Equal(t, tt.message, f.manager.Message())
			assert.Nil(t, f.manager.Summary())
		})
	}
}

func TestManager_RegisterFailureMessages(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		message Message
	}{
		{"taken", ErrAlreadyRegistered, MessageAlreadyRegistered},
		{"weak password", ErrInvalidInput, MessageInvalidInput},
		{"missing", ErrMissingFields, MessageMissingCredentials},
		{"database down", errors.New("disk I/O error"), MessageTransientFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			f.auth.registerErr = tt.err

			err := f.manager.Register(context.Background(), "reader@example.com", "pw")
			assert.ErrorIs(t, err, tt.err)
			assert.Equal(t, tt.message, f.manager.Message())
		})
	}

	t.Run("success logs in", func(t *testing.T) {
		f := newFixture()
		require.NoError(t, f.manager.Register(context.Background(), "reader@example.com", "pw"))
		assert.Equal(t, Authenticated, f.manager.State())
		assert.Equal(t, ActivityRegister, f.recorder.kinds[0])
	})
}

func TestManager_UpdateProgress(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	_, err := f.manager.UpdateProgress("cet4", progress.AdvanceTo(0, 0, now))
	assert.ErrorIs(t, err, ErrNotAuthenticated)
	_, ok := f.store.Read("42")
	assert.False(t, ok, "anonymous updates are not persisted")

	require.NoError(t, f.manager.Login(ctx, "reader@example.com", "pw"))

	entry, err := f.manager.UpdateProgress("cet4", progress.AdvanceTo(5, 3000, now))
	require.NoError(t, err)
	assert.Equal(t, 6, entry.Learned())

	entry, err = f.manager.UpdateProgress("cet4", progress.AdvanceTo(2, 0, now.Add(time.Minute)))
	require.NoError(t, err)
	assert.Equal(t, 2, entry.LastIndex)
	assert.Equal(t, 6, entry.Learned())

	summary := f.manager.Summary()
	assert.Equal(t, 1, summary.LearnedBooks)
	assert.Equal(t, 6, summary.LearnedWords)

	stored, ok := f.store.Read("42")
	require.True(t, ok)
	assert.Equal(t, 2, stored["cet4"].LastIndex)
}

func TestManager_LogoutPreservesLocalStore(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	require.NoError(t, f.manager.Login(ctx, "reader@example.com", "pw"))
	_, err := f.manager.UpdateProgress("cet4", progress.AdvanceTo(3, 0, time.Now()))
	require.NoError(t, err)

	f.manager.Logout(ctx)

	assert.Equal(t, Anonymous, f.manager.State())
	assert.Nil(t, f.manager.Summary())
	assert.Empty(t, f.manager.Progress())

	stored, ok := f.store.Read("42")
	require.True(t, ok)
	assert.Equal(t, 3, stored["cet4"].LastIndex)

	require.Len(t, f.syncer.synced, 1)
	assert.Contains(t, f.syncer.synced[0], "cet4")

	t.Run("logout when anonymous is a no-op", func(t *testing.T) {
		f.manager.Logout(ctx)
		assert.Len(t, f.syncer.synced, 1)
	})

	t.Run("re-login picks up device progress", func(t *testing.T) {
		require.NoError(t, f.manager.Login(ctx, "reader@example.com", "pw"))
		assert.Equal(t, 3, f.manager.Progress()["cet4"].LastIndex)
	})
}

func TestManager_ClientsOfOneUserKeepEachOthersBooks(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	phone := f.manager
	laptop := NewManager(Dependencies{Authenticator: f.auth, Server: f.server, Store: f.store, Syncer: f.syncer})
	require.NoError(t, phone.Login(ctx, "reader@example.com", "pw"))
	require.NoError(t, laptop.Login(ctx, "reader@example.com", "pw"))

	_, err := phone.UpdateProgress("cet4", progress.AdvanceTo(40, 0, now))
	require.NoError(t, err)
	_, err = laptop.UpdateProgress("cet6", progress.AdvanceTo(3, 0, now.Add(time.Minute)))
	require.NoError(t, err)

	stored, ok := f.store.Read("42")
	require.True(t, ok)
	assert.Equal(t, 40, stored["cet4"].LastIndex)
	assert.Equal(t, 3, stored["cet6"].LastIndex)
	assert.Equal(t, 41, laptop.Progress()["cet4"].Learned(), "the laptop picks up the phone's book on its next update")

	_, err = phone.UpdateProgress("cet4", progress.AdvanceTo(41, 0, now.Add(2*time.Minute)))
	require.NoError(t, err)
	stored, _ = f.store.Read("42")
	assert.Equal(t, 3, stored["cet6"].LastIndex)

	phone.Logout(ctx)
	laptop.Logout(ctx)

	require.NoError(t, phone.Login(ctx, "reader@example.com", "pw"))
	summary := phone.Summary()
	require.NotNil(t, summary)
	assert.Equal(t, 2, summary.LearnedBooks)
	assert.Equal(t, 46, summary.LearnedWords)
}

func TestManager_ConcurrentClientsOfOneUser(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	now := time.Now()

	managers := []*Manager{
		f.manager,
		NewManager(Dependencies{Authenticator: f.auth, Server: f.server, Store: f.store}),
		NewManager(Dependencies{Authenticator: f.auth, Server: f.server, Store: f.store}),
	}
	for _, m := range managers {
		require.NoError(t, m.Login(ctx, "reader@example.com", "pw"))
	}

	var wg sync.WaitGroup
	for i := 0; i < 30; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := managers[i%len(managers)].UpdateProgress(fmt.Sprintf("book-%d", i), progress.AdvanceTo(i, 0, now))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	stored, ok := f.store.Read("42")
	require.True(t, ok)
	assert.Len(t, stored, 30)
}

func TestManager_ConcurrentLoginIsRejected(t *testing.T) {
	f := newFixture()
	f.auth.block = make(chan struct{})
	f.auth.entered = make(chan struct{}, 1)
	ctx := context.Background()

	done := make(chan error, 1)
	go func() {
		done <- f.manager.Login(ctx, "reader@example.com", "pw")
	}()
	<-f.auth.entered

	assert.True(t, f.manager.Submitting())
	err := f.manager.Login(ctx, "reader@example.com", "pw")
	assert.ErrorIs(t, err, ErrTransitionInFlight)

	close(f.auth.block)
	require.NoError(t, <-done)
	assert.Equal(t, Authenticated, f.manager.State())
}

func TestManager_LogoutDiscardsInFlightLogin(t *testing.T) {
	f := newFixture()
	f.auth.block = make(chan struct{})
	f.auth.entered = make(chan struct{}, 1)
	ctx := context.Background()

	done := make(chan error, 1)
	go func() {
		done <- f.manager.Login(ctx, "reader@example.com", "pw")
	}()
	<-f.auth.entered

	f.manager.Logout(ctx)
	close(f.auth.block)

	assert.ErrorIs(t, <-done, ErrSuperseded)
	assert.Equal(t, Anonymous, f.manager.State())
	_, ok := f.store.Read("42")
	assert.False(t, ok, "superseded login never touches the store")
}

func TestManager_Resume(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	identity := Identity{ID: "42", Email: "reader@example.com"}

	require.NoError(t, f.manager.Resume(ctx, identity))
	assert.Equal(t, Authenticated, f.manager.State())

	require.NoError(t, f.manager.Resume(ctx, identity))
	assert.Equal(t, []ActivityKind{ActivityLogin, ActivityMerge}, f.recorder.kinds, "resuming the same user does nothing")

	assert.ErrorIs(t, f.manager.Resume(ctx, Identity{}), ErrMissingCredentials)
}

func TestManager_AccessorsReturnCopies(t *testing.T) {
	f := newFixture()
	f.server.m = progress.Map{"cet4": {BookID: "cet4", LastIndex: 1, LearnedWords: progress.Int(2)}}
	require.NoError(t, f.manager.Login(context.Background(), "reader@example.com", "pw"))

	m := f.manager.Progress()
	m["cet4"] = progress.BookProgress{BookID: "cet4", LastIndex: 99}
	*f.manager.Summary().Progress[0].LearnedWords = 500

	entry, ok := f.manager.Entry("cet4")
	require.True(t, ok)
	assert.Equal(t, 1, entry.LastIndex)
	assert.Equal(t, 2, entry.Learned())
}

func TestIsTransient(t *testing.T) {
	assert.True(t, IsTransient(errors.New("boom")))
	assert.False(t, IsTransient(ErrInvalidCredentials))
	assert.False(t, IsTransient(ErrTransitionInFlight))
	assert.False(t, IsTransient(nil))
}
