// Package localstore keeps a user's progress map on the device between
// sessions, keyed by user identity.
//
// The store never fails its callers. Read treats missing or corrupt data as
// absent, and write and clear failures are only logged.
package localstore

import (
	"errors"
	"log"
	"strings"
	"sync"

	"github.com/mrlokans/learncard/internal/config"
	"github.com/mrlokans/learncard/internal/progress"
)

// Backend holds raw payloads. Each call must be atomic for its key.
type Backend interface {
	Get(key string) ([]byte, bool, error)
	Put(key string, payload []byte) error
	Delete(key string) error
}

// KeyLister is implemented by backends that can enumerate their keys.
type KeyLister interface {
	Keys(prefix string) ([]string, error)
}

// Origin reports which key ReadForIdentity found data under.
type Origin int

const (
	OriginNone Origin = iota
	OriginID
	OriginLegacyEmail
)

type Store struct {
	backend Backend
	prefix  string

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewStore wraps backend. An empty prefix falls back to the default key prefix.
func NewStore(backend Backend, prefix string) *Store {
	if prefix == "" {
		prefix = config.DefaultProgressKeyPrefix
	}
	return &Store{backend: backend, prefix: prefix, locks: make(map[string]*sync.Mutex)}
}

// lock holds userKey until the returned func is called.
func (s *Store) lock(userKey string) func() {
	s.mu.Lock()
	l, ok := s.locks[userKey]
	if !ok {
		l = &sync.Mutex{}
		s.locks[userKey] = l
	}
	s.mu.Unlock()

	l.Lock()
	return l.Unlock
}

// Key is the backend key for a user.
func (s *Store) Key(userKey string) string {
	return s.prefix + userKey
}

// Prefix is the common prefix of every key this store writes.
func (s *Store) Prefix() string {
	return s.prefix
}

// ErrNotListable is returned by Users when the backend cannot enumerate keys.
var ErrNotListable = errors.New("backend cannot list keys")

// Users returns the user keys that have a stored map.
func (s *Store) Users() ([]string, error) {
	lister, ok := s.backend.(KeyLister)
	if !ok {
		return nil, ErrNotListable
	}
	keys, err := lister.Keys(s.prefix)
	if err != nil {
		return nil, err
	}
	users := make([]string, 0, len(keys))
	for _, key := range keys {
		if userKey := strings.TrimPrefix(key, s.prefix); userKey != "" {
			users = append(users, userKey)
		}
	}
	return users, nil
}

// Read returns the stored map for userKey. ok is false when nothing usable is stored.
func (s *Store) Read(userKey string) (progress.Map, bool) {
	if userKey == "" {
		return nil, false
	}
	payload, ok, err := s.backend.Get(s.Key(userKey))
	if err != nil {
		log.Printf("Failed to read stored progress for %s: %v", userKey, err)
		return nil, false
	}
	if !ok || len(payload) == 0 {
		return nil, false
	}
	m, err := progress.Decode(payload)
	if err != nil {
		log.Printf("Failed to read stored progress for %s: %v", userKey, err)
		return nil, false
	}
	return m, true
}

// Write replaces the whole stored map for userKey.
func (s *Store) Write(userKey string, m progress.Map) {
	if userKey == "" {
		return
	}
	payload, err := progress.Encode(m)
	if err != nil {
		log.Printf("Failed to persist progress for %s: %v", userKey, err)
		return
	}
	if err := s.backend.Put(s.Key(userKey), payload); err != nil {
		log.Printf("Failed to persist progress for %s: %v", userKey, err)
	}
}

// Clear removes the stored map for userKey.
func (s *Store) Clear(userKey string) {
	if userKey == "" {
		return
	}
	if err := s.backend.Delete(s.Key(userKey)); err != nil {
		log.Printf("Failed to clear stored progress for %s: %v", userKey, err)
	}
}

// ReadForIdentity looks up a user's map by id, then under the email key
// older clients wrote to. A map found under the email is not moved; callers
// migrate it with Migrate once they have merged it.
func (s *Store) ReadForIdentity(id, email string) (progress.Map, Origin) {
	if m, ok := s.Read(id); ok {
		return m, OriginID
	}
	if email != "" && email != id {
		if m, ok := s.Read(email); ok {
			return m, OriginLegacyEmail
		}
	}
	return nil, OriginNone
}

// Update passes the map stored for userKey to fn, nil when nothing usable is
// stored, and stores what fn returns. Updates and reconciles of one key through
// the same Store are applied one at a time.
func (s *Store) Update(userKey string, fn func(stored progress.Map) progress.Map) progress.Map {
	if userKey == "" {
		return fn(nil)
	}
	unlock := s.lock(userKey)
	defer unlock()

	stored, _ := s.Read(userKey)
	next := fn(stored)
	s.Write(userKey, next)
	return next
}

// Reconcile merges server with the map stored for the identity and stores the
// result under id. A map found under the legacy email key is moved to id.
func (s *Store) Reconcile(id, email string, server progress.Map) (merged, local progress.Map, origin Origin) {
	unlock := s.lock(id)
	defer unlock()

	local, origin = s.ReadForIdentity(id, email)
	merged = progress.Merge(server, local)
	if origin == OriginLegacyEmail {
		s.Migrate(id, email, merged)
	} else {
		s.Write(id, merged)
	}
	return merged, local, origin
}

// Migrate stores m under id and drops the legacy email key.
func (s *Store) Migrate(id, email string, m progress.Map) {
	s.Write(id, m)
	if email != "" && email != id {
		s.Clear(email)
	}
}
