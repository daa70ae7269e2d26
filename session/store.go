// Package session keeps one deck per study session. Each session serialises
// its own deck commands; the store only guards the session map.
package session

import (
	"sync"
	"time"

	"github.com/giygas/vetflash-api/deck"
	"github.com/giygas/vetflash-api/interfaces"
	"github.com/giygas/vetflash-api/logging"
	"github.com/giygas/vetflash-api/metrics"
	"github.com/google/uuid"
)

// Compile-time checks
var (
	_ interfaces.SessionStore = (*Store)(nil)
	_ interfaces.Session      = (*Session)(nil)
)

// Session is a single user's deck
type Session struct {
	mu       sync.Mutex
	id       uuid.UUID
	deck     *deck.Deck
	lastSeen time.Time
	created  time.Time
}

// ID returns the session identifier
func (s *Session) ID() uuid.UUID {
	return s.id
}

// Do runs fn with exclusive access to the deck and refreshes the session
func (s *Session) Do(fn func(d *deck.Deck)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastSeen = time.Now()
	fn(s.deck)
}

// LastSeen returns when the session was last used
func (s *Session) LastSeen() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// Store holds the live sessions
type Store struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session
	opts     []deck.Option
}

// NewStore creates an empty store. Options are passed to every new deck.
func NewStore(opts ...deck.Option) *Store {
	return &Store{
		sessions: make(map[uuid.UUID]*Session),
		opts:     opts,
	}
}

// Create starts a session with a fresh deck built from records
func (st *Store) Create(records []deck.MedicationRecord) interfaces.Session {
	now := time.Now()
	s := &Session{
		id:       uuid.New(),
		deck:     deck.New(records, st.opts...),
		lastSeen: now,
		created:  now,
	}

	st.mu.Lock()
	st.sessions[s.id] = s
	count := len(st.sessions)
	st.mu.Unlock()

	metrics.ActiveSessions.Set(float64(count))
	logging.Debug("Session created", "sessionID", s.id.String(), "cards", len(records))
	return s
}

// Get returns a session by ID
func (st *Store) Get(id uuid.UUID) (interfaces.Session, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()

	s, ok := st.sessions[id]
	if !ok {
		return nil, false
	}
	return s, true
}

// Delete ends a session. It reports whether the session existed.
func (st *Store) Delete(id uuid.UUID) bool {
	st.mu.Lock()
	_, ok := st.sessions[id]
	delete(st.sessions, id)
	count := len(st.sessions)
	st.mu.Unlock()

	if ok {
		metrics.ActiveSessions.Set(float64(count))
	}
	return ok
}

// Sweep removes sessions idle for longer than ttl and returns how many went
func (st *Store) Sweep(ttl time.Duration) int {
	cutoff := time.Now().Add(-ttl)

	st.mu.RLock()
	var stale []uuid.UUID
	for id, s := range st.sessions {
		if s.LastSeen().Before(cutoff) {
			stale = append(stale, id)
		}
	}
	st.mu.RUnlock()

	if len(stale) == 0 {
		return 0
	}

	st.mu.Lock()
	removed := 0
	for _, id := range stale {
		// Re-check, the session may have been used since the scan
		if s, ok := st.sessions[id]; ok && s.LastSeen().Before(cutoff) {
			delete(st.sessions, id)
			removed++
		}
	}
	count := len(st.sessions)
	st.mu.Unlock()

	metrics.ActiveSessions.Set(float64(count))
	logging.Info("Expired sessions removed", "removed", removed, "remaining", count)
	return removed
}

// Count returns the number of live sessions
func (st *Store) Count() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}
