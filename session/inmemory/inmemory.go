package inmemory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mohammad-safakhou/orchestra/session"
)

// Store keeps sessions in a mutex-guarded map. The clock is injected so
// eviction is deterministically testable.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*session.Session
	ttl      time.Duration
	now      func() time.Time
}

// New creates an in-memory store with the given idle TTL. A zero ttl
// falls back to session.DefaultTTL.
func New(ttl time.Duration) *Store {
	return NewWithClock(ttl, time.Now)
}

// NewWithClock creates a store with an explicit clock.
func NewWithClock(ttl time.Duration, now func() time.Time) *Store {
	if ttl <= 0 {
		ttl = session.DefaultTTL
	}
	return &Store{
		sessions: make(map[string]*session.Session),
		ttl:      ttl,
		now:      now,
	}
}

func (s *Store) GetOrCreate(_ context.Context, id string) (*session.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id == "" {
		id = uuid.NewString()
	}
	sess, ok := s.sessions[id]
	if !ok {
		sess = &session.Session{ID: id, LastTouched: s.now()}
		s.sessions[id] = sess
	}
	return sess, nil
}

func (s *Store) Get(_ context.Context, id string) (*session.Session, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	return sess, ok, nil
}

func (s *Store) Put(_ context.Context, sess *session.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess.LastTouched = s.now()
	s.sessions[sess.ID] = sess
	return nil
}

func (s *Store) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}

// Evict drops sessions idle longer than the TTL and reports how many
// were removed.
func (s *Store) Evict(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, sess := range s.sessions {
		if now.Sub(sess.LastTouched) > s.ttl {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

// StartSweeper runs Evict on the given interval until ctx is done.
func (s *Store) StartSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = session.DefaultSweepInterval
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.Evict(s.now())
			}
		}
	}()
}
