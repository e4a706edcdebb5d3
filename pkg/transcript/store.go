package transcript

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/harun/heycoach/internal/metrics"
)

const (
	DefaultTTL        = 30 * time.Second
	DefaultMaxPending = 500
)

// Session is a point-in-time copy of one session's state.
type Session struct {
	ID           string
	Pending      []string
	CreatedAt    time.Time
	LastActivity time.Time
	Subscribers  int
}

// Options configures a Store. Zero values fall back to defaults.
type Options struct {
	TTL time.Duration
	// MaxPending caps pending transcripts per session; oldest are dropped.
	// Negative disables the cap.
	MaxPending int
	Clock      clockwork.Clock
	Logger     zerolog.Logger
	Metrics    *metrics.Metrics
}

type session struct {
	pending      []string
	createdAt    time.Time
	lastActivity time.Time
	subscribers  int
}

// Store maps session ids to pending transcripts.
type Store struct {
	mu         sync.Mutex
	sessions   map[string]*session
	ttl        time.Duration
	maxPending int
	clock      clockwork.Clock
	logger     zerolog.Logger
	metrics    *metrics.Metrics
}

// NewStore creates an empty store
func NewStore(opts Options) *Store {
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.MaxPending == 0 {
		opts.MaxPending = DefaultMaxPending
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.NewMetrics()
	}

	return &Store{
		sessions:   make(map[string]*session),
		ttl:        opts.TTL,
		maxPending: opts.MaxPending,
		clock:      opts.Clock,
		logger:     opts.Logger.With().Str("component", "transcript").Logger(),
		metrics:    opts.Metrics,
	}
}

// Open creates the session if missing and refreshes its activity time.
func (s *Store) Open(id string) error {
	if err := ValidateSessionID(id); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	s.openLocked(id, now)
	return nil
}

func (s *Store) openLocked(id string, now time.Time) *session {
	sess, ok := s.sessions[id]
	if !ok {
		sess = &session{createdAt: now}
		s.sessions[id] = sess
		s.metrics.SessionsActive.Set(float64(len(s.sessions)))
		s.logger.Debug().Str("sessionId", id).Msg("Session opened")
	}
	sess.lastActivity = now
	return sess
}

// Subscribe opens the session and registers a live subscriber on it.
// The returned release drops the subscription; the last release deletes the
// session. Release is idempotent and does nothing once the session it
// subscribed to has been closed or replaced.
func (s *Store) Subscribe(id string) (release func(), err error) {
	if err := ValidateSessionID(id); err != nil {
		return nil, err
	}

	s.mu.Lock()
	sess := s.openLocked(id, s.clock.Now())
	sess.subscribers++
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { s.release(id, sess) })
	}, nil
}

func (s *Store) release(id string, sess *session) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sessions[id] != sess {
		return
	}
	sess.subscribers--
	if sess.subscribers > 0 {
		return
	}
	delete(s.sessions, id)
	s.metrics.SessionsActive.Set(float64(len(s.sessions)))
	s.logger.Debug().Str("sessionId", id).Msg("Session closed")
}

// Append adds a transcript to an open session. Blank text is ignored.
func (s *Store) Append(id, text string) error {
	if err := ValidateSessionID(id); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return fmt.Errorf("append to %q: %w", id, ErrSessionNotFound)
	}
	sess.lastActivity = s.clock.Now()

	if strings.TrimSpace(text) == "" {
		return nil
	}

	sess.pending = append(sess.pending, text)
	s.metrics.TranscriptsAppended.Inc()

	if s.maxPending > 0 && len(sess.pending) > s.maxPending {
		dropped := len(sess.pending) - s.maxPending
		sess.pending = append([]string(nil), sess.pending[dropped:]...)
		s.metrics.TranscriptsDropped.Add(float64(dropped))
		s.logger.Debug().
			Str("sessionId", id).
			Int("dropped", dropped).
			Msg("Session pruned")
	}
	return nil
}

// Drain returns all pending transcripts in append order and clears them.
func (s *Store) Drain(id string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("drain %q: %w", id, ErrSessionNotFound)
	}
	sess.lastActivity = s.clock.Now()

	pending := sess.pending
	sess.pending = nil
	return pending, nil
}

// Close deletes the session and anything still pending.
func (s *Store) Close(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[id]; !ok {
		return
	}
	delete(s.sessions, id)
	s.metrics.SessionsActive.Set(float64(len(s.sessions)))
	s.logger.Debug().Str("sessionId", id).Msg("Session closed")
}

// Sweep removes sessions idle for at least the TTL and returns how many it
// removed. Sessions with a live subscriber are never swept.
func (s *Store) Sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, sess := range s.sessions {
		if sess.subscribers > 0 || now.Sub(sess.lastActivity) < s.ttl {
			continue
		}
		delete(s.sessions, id)
		removed++
		s.logger.Debug().
			Str("sessionId", id).
			Dur("idle", now.Sub(sess.lastActivity)).
			Msg("Session expired")
	}

	if removed > 0 {
		s.metrics.SessionsExpired.Add(float64(removed))
		s.metrics.SessionsActive.Set(float64(len(s.sessions)))
	}
	return removed
}

// Len returns the number of live sessions
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Snapshot returns a copy of the session state
func (s *Store) Snapshot(id string) (Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return Session{}, false
	}
	return Session{
		ID:           id,
		Pending:      append([]string(nil), sess.pending...),
		CreatedAt:    sess.createdAt,
		LastActivity: sess.lastActivity,
		Subscribers:  sess.subscribers,
	}, true
}

// TTL returns the idle timeout
func (s *Store) TTL() time.Duration {
	return s.ttl
}

// Clock returns the store's time source
func (s *Store) Clock() clockwork.Clock {
	return s.clock
}
