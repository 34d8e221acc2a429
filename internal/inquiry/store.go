package inquiry

import (
	"sync"
	"sync/atomic"
	"time"
)

// DefaultSessionTTL bounds how long an untouched session stays valid.
const DefaultSessionTTL = 30 * time.Minute

type entry struct {
	mu      sync.Mutex
	session Session
	touched time.Time
	gone    atomic.Bool
}

// Store is the in-memory session registry. Each entry carries its own lock so
// mutations of one session are serialized while different sessions proceed in
// parallel. Sessions idle longer than the TTL read as absent.
type Store struct {
	mu      sync.RWMutex
	entries map[string]*entry
	ttl     time.Duration
	now     func() time.Time
}

// StoreOption customises a Store.
type StoreOption func(*Store)

// WithClock overrides the time source.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) { s.now = now }
}

// NewStore builds an empty store. A non-positive ttl disables expiry.
func NewStore(ttl time.Duration, opts ...StoreOption) *Store {
	s := &Store{entries: make(map[string]*entry), ttl: ttl, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// expired reports whether e has idled past the TTL. A session waiting on its
// submission is pinned until the task commits its outcome; the commit then
// restarts the TTL.
func (s *Store) expired(e *entry, now time.Time) bool {
	if e.session.State == StateAwaitingSubmission {
		return false
	}
	return s.ttl > 0 && now.Sub(e.touched) > s.ttl
}

func (s *Store) lookup(key string) *entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.entries[key]
}

// Create stores a new session. Existing keys are never overwritten.
func (s *Store) Create(sess Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[sess.Key]; ok {
		return ErrDuplicateKey
	}
	s.entries[sess.Key] = &entry{session: sess.clone(), touched: s.now()}
	return nil
}

// Get returns a copy of the session, or false when it is absent or expired.
func (s *Store) Get(key string) (Session, bool) {
	e := s.lookup(key)
	if e == nil {
		return Session{}, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.gone.Load() || s.expired(e, s.now()) {
		return Session{}, false
	}
	return e.session.clone(), true
}

// Mutate applies fn to a copy of the session under the session's lock and
// commits the copy only when fn succeeds. Absent or expired sessions yield
// ErrSessionExpired without calling fn.
func (s *Store) Mutate(key string, fn func(*Session) error) (Session, error) {
	e := s.lookup(key)
	if e == nil {
		return Session{}, ErrSessionExpired
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	now := s.now()
	if e.gone.Load() || s.expired(e, now) {
		return Session{}, ErrSessionExpired
	}
	next := e.session.clone()
	if err := fn(&next); err != nil {
		return e.session.clone(), err
	}
	e.session = next
	e.touched = now
	return next.clone(), nil
}

// Delete removes the session and reports whether it was present.
func (s *Store) Delete(key string) bool {
	s.mu.Lock()
	e, ok := s.entries[key]
	delete(s.entries, key)
	s.mu.Unlock()
	if ok {
		e.gone.Store(true)
	}
	return ok
}

// Len returns the number of stored sessions, including expired ones not yet swept.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// SweepExpired removes expired sessions. Locked sessions are left for a later pass.
func (s *Store) SweepExpired() int {
	if s.ttl <= 0 {
		return 0
	}
	now := s.now()

	s.mu.RLock()
	var victims []string
	for key, e := range s.entries {
		if !e.mu.TryLock() {
			continue
		}
		if s.expired(e, now) {
			victims = append(victims, key)
		}
		e.mu.Unlock()
	}
	s.mu.RUnlock()

	removed := 0
	for _, key := range victims {
		if s.Delete(key) {
			removed++
		}
	}
	return removed
}
