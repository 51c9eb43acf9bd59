package session

import (
	"context"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

const defaultRegistrySize = 1024

type client struct {
	manager  *Manager
	lastSeen time.Time
}

// Registry keeps one Manager per client id. A client idle for longer than
// ttl is evicted, and the least recently used client goes first once size is
// reached. An evicted manager hands its progress to the Syncer on the way out.
type Registry struct {
	mu      sync.Mutex
	cache   *lru.Cache[string, *client]
	ttl     time.Duration
	factory func() *Manager
	now     func() time.Time
}

func NewRegistry(size int, ttl time.Duration, factory func() *Manager) *Registry {
	if size <= 0 {
		size = defaultRegistrySize
	}
	onEvict := func(_ string, c *client) {
		go c.manager.Expire(context.Background())
	}
	cache, _ := lru.NewWithEvict[string, *client](size, onEvict)
	return &Registry{
		cache:   cache,
		ttl:     ttl,
		factory: factory,
		now:     time.Now,
	}
}

// Get returns the manager for clientID, creating it on first use or once the
// previous one went idle. Every call counts as activity.
func (r *Registry) Get(clientID string) *Manager {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if c, ok := r.cache.Get(clientID); ok {
		if !r.idle(c, now) {
			c.lastSeen = now
			return c.manager
		}
		r.cache.Remove(clientID)
	}

	m := r.factory()
	r.cache.Add(clientID, &client{manager: m, lastSeen: now})
	return m
}

// Peek returns the manager for clientID without creating one or counting
// as activity.
func (r *Registry) Peek(clientID string) (*Manager, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.cache.Peek(clientID)
	if !ok || r.idle(c, r.now()) {
		return nil, false
	}
	return c.manager, true
}

// Remove drops a client. Its manager is expired like any other eviction.
func (r *Registry) Remove(clientID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache.Remove(clientID)
}

// ExpireIdle evicts every idle client and returns how many went.
func (r *Registry) ExpireIdle() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	evicted := 0
	for _, id := range r.cache.Keys() {
		if c, ok := r.cache.Peek(id); ok && r.idle(c, now) {
			r.cache.Remove(id)
			evicted++
		}
	}
	return evicted
}

func (r *Registry) Len() int {
	return r.cache.Len()
}

func (r *Registry) idle(c *client, now time.Time) bool {
	return r.ttl > 0 && now.Sub(c.lastSeen) >= r.ttl
}
