package cart

import (
	"context"
	"sync"
	"time"

	"github.com/fjod/food-storefront/internal/slot"
	"github.com/fjod/food-storefront/pkg/logger"
)

// SessionListener observes mutations of any cart held by the registry.
type SessionListener func(sessionID string, snap Snapshot)

type session struct {
	store    *Store
	lastSeen time.Time
}

// Sessions keeps one Store per browser session. Each store persists to its
// own namespace of the shared slot, so evicted carts reload on next access.
type Sessions struct {
	mu       sync.Mutex
	base     slot.Slot
	sessions map[string]*session
	idleTTL  time.Duration
	now      func() time.Time

	lmu       sync.RWMutex
	listeners []SessionListener
}

func NewSessions(base slot.Slot, idleTTL time.Duration) *Sessions {
	return &Sessions{
		base:     base,
		sessions: make(map[string]*session),
		idleTTL:  idleTTL,
		now:      time.Now,
	}
}

// Slot returns the slot namespace for sessionID.
func (s *Sessions) Slot(sessionID string) slot.Slot {
	return slot.Namespaced(s.base, "session:"+sessionID)
}

// Get returns the cart for sessionID, restoring it from the slot on first use.
// A cart whose slot could not be read is returned but not kept, so the next
// Get reads the slot again.
func (s *Sessions) Get(ctx context.Context, sessionID string) *Store {
	if store, ok := s.cached(sessionID); ok {
		return store
	}

	store := NewStore(ctx, s.Slot(sessionID))
	store.Subscribe(func(snap Snapshot) {
		s.notify(sessionID, snap)
	})
	if !store.Restored() {
		return store
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[sessionID]; ok {
		sess.lastSeen = s.now()
		return sess.store
	}
	s.sessions[sessionID] = &session{store: store, lastSeen: s.now()}
	return store
}

func (s *Sessions) cached(sessionID string) (*Store, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil, false
	}
	sess.lastSeen = s.now()
	return sess.store, true
}

// Subscribe registers fn for mutations of every current and future session cart.
func (s *Sessions) Subscribe(fn SessionListener) {
	s.lmu.Lock()
	defer s.lmu.Unlock()
	s.listeners = append(s.listeners, fn)
}

func (s *Sessions) notify(sessionID string, snap Snapshot) {
	s.lmu.RLock()
	listeners := make([]SessionListener, len(s.listeners))
	copy(listeners, s.listeners)
	s.lmu.RUnlock()

	for _, fn := range listeners {
		fn(sessionID, snap)
	}
}

// Len reports how many carts are held in memory.
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Evict drops carts not accessed within the idle TTL and returns how many were dropped.
func (s *Sessions) Evict(now time.Time) int {
	if s.idleTTL <= 0 {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	evicted := 0
	for id, sess := range s.sessions {
		if now.Sub(sess.lastSeen) > s.idleTTL {
			delete(s.sessions, id)
			evicted++
		}
	}
	return evicted
}

// Run evicts idle carts every interval until ctx is done.
func (s *Sessions) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := s.Evict(s.now()); n > 0 {
				logger.FromContext(ctx).Debug().Int("evicted", n).Msg("evicted idle carts")
			}
		case <-ctx.Done():
			return
		}
	}
}
