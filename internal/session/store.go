package session

import (
	"errors"
	"sync"
	"time"

	"github.com/clipferry/bot/internal/metrics"
	"github.com/clipferry/bot/internal/source"
)

var (
	// ErrActiveSession indicates the user already has a download in flight.
	ErrActiveSession = errors.New("session: download already in progress")
	// ErrSessionNotFound indicates no live session exists for the user.
	ErrSessionNotFound = errors.New("session: not found")
)

// DefaultWindow is the inactivity window after which sessions and orphaned
// temp files are swept.
const DefaultWindow = 30 * time.Minute

// Session records one user's in-flight download request.
type Session struct {
	URL          string
	Meta         source.Metadata
	LastActivity time.Time

	claimed bool
}

// Store maps user ids to their single active download session. It is the
// mutual-exclusion gate in front of the transfer pipeline: Begin fails while
// a session exists, and nothing is ever queued.
type Store struct {
	window time.Duration
	now    func() time.Time

	mu       sync.Mutex
	sessions map[int64]*Session
}

// NewStore constructs a Store whose sessions expire after the provided
// inactivity window.
func NewStore(window time.Duration) *Store {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Store{
		window:   window,
		now:      time.Now,
		sessions: make(map[int64]*Session),
	}
}

// Begin creates a session for the user. It returns ErrActiveSession when one
// already exists, regardless of how far along its transfer is.
func (s *Store) Begin(userID int64, url string) error {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.sessions[userID]; ok {
		if now.Sub(existing.LastActivity) <= s.window {
			return ErrActiveSession
		}
		// Stale entry the sweep has not reached yet.
		delete(s.sessions, userID)
		metrics.ActiveSessions.Dec()
	}

	s.sessions[userID] = &Session{URL: url, LastActivity: now}
	metrics.ActiveSessions.Inc()
	return nil
}

// Attach stores freshly fetched metadata on the user's session.
func (s *Store) Attach(userID int64, meta source.Metadata) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[userID]
	if !ok {
		return ErrSessionNotFound
	}
	sess.Meta = meta
	sess.LastActivity = s.now()
	return nil
}

// Get returns a copy of the user's session and refreshes its activity stamp.
func (s *Store) Get(userID int64) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[userID]
	if !ok {
		return Session{}, ErrSessionNotFound
	}
	if s.now().Sub(sess.LastActivity) > s.window {
		delete(s.sessions, userID)
		metrics.ActiveSessions.Dec()
		return Session{}, ErrSessionNotFound
	}
	sess.LastActivity = s.now()
	return *sess, nil
}

// Claim hands the session to a transfer task. The first claim wins; further
// claims fail with ErrActiveSession until the transfer ends the session, so a
// double button press cannot start a second artifact.
func (s *Store) Claim(userID int64) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[userID]
	if !ok {
		return Session{}, ErrSessionNotFound
	}
	if s.now().Sub(sess.LastActivity) > s.window {
		delete(s.sessions, userID)
		metrics.ActiveSessions.Dec()
		return Session{}, ErrSessionNotFound
	}
	if sess.claimed {
		return Session{}, ErrActiveSession
	}
	sess.claimed = true
	sess.LastActivity = s.now()
	return *sess, nil
}

// Touch refreshes the session's activity stamp if it still exists.
func (s *Store) Touch(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[userID]; ok {
		sess.LastActivity = s.now()
	}
}

// End removes the user's session. Ending an absent session is a no-op so the
// pipeline's deferred release and the sweep can race safely.
func (s *Store) End(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[userID]; ok {
		delete(s.sessions, userID)
		metrics.ActiveSessions.Dec()
	}
}

// Len reports the number of live sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Sweep removes sessions idle past the window and returns how many went.
func (s *Store) Sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for userID, sess := range s.sessions {
		if now.Sub(sess.LastActivity) > s.window {
			delete(s.sessions, userID)
			removed++
		}
	}
	if removed > 0 {
		metrics.ActiveSessions.Sub(float64(removed))
		metrics.SessionsExpired.Add(float64(removed))
	}
	return removed
}

// WithNowFunc allows tests to override the time source.
func (s *Store) WithNowFunc(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}
