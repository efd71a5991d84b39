// Package service provides the core game service that implements
// the dependencies required by the HTTP API and the websocket bridge.
package service

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/bodytap/internal/adapters/ws"
	"github.com/okian/bodytap/internal/domain/session"
	"github.com/okian/bodytap/internal/engine"
	"github.com/okian/bodytap/pkg/logger"
)

// entry is one live session as seen by the registry.
type entry struct {
	opened time.Time
	state  session.State
}

// SessionInfo is a read-only view of a live session.
type SessionInfo struct {
	ID          string `json:"id"`
	Phase       string `json:"phase"`
	Score       int    `json:"score"`
	RemainingMS int64  `json:"remaining_ms"`
	AgeMS       int64  `json:"age_ms"`
}

// Service owns the default game settings and the registry of live sessions.
type Service struct {
	mu sync.RWMutex

	// Configuration
	settings    engine.Settings
	maxSessions int
	outboxSize  int

	// State
	started   bool
	sessions  map[string]*entry
	opened    int
	rejected  int
	bestScore int

	clock  func() time.Time
	newID  func() string
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithSettings sets the settings new sessions start from.
func WithSettings(s engine.Settings) Option {
	return func(svc *Service) {
		svc.settings = s
	}
}

// WithMaxSessions caps the number of concurrent sessions.
func WithMaxSessions(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxSessions = n
		}
	}
}

// WithOutboxSize bounds queued outbound messages per connection.
func WithOutboxSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.outboxSize = n
		}
	}
}

// WithClock replaces the wall clock used for session ages.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.clock = now
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(logger logger.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		settings:    engine.DefaultSettings(),
		maxSessions: 64,
		outboxSize:  256,
		sessions:    make(map[string]*entry),
		clock:       time.Now,
		newID:       func() string { return uuid.NewString() },
		logger:      nil, // Will be replaced when service starts
	}

	// Apply all options
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start validates the settings and opens the service for sessions.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	// Initialize logger if not already set
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	if err := s.settings.Validate(); err != nil {
		return fmt.Errorf("start service: %w", err)
	}

	s.started = true
	s.logger.Info(ctx, "game service started",
		logger.String("region", string(s.settings.Region)),
		logger.String("difficulty", string(s.settings.Difficulty)),
		logger.Duration("session", s.settings.SessionDuration),
		logger.Int("maxSessions", s.maxSessions),
	)

	return nil
}

// Stop closes the service to new sessions. Live sessions run until their
// connections end.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	s.started = false
	s.logger.Info(context.Background(), "game service stopped",
		logger.Int("liveSessions", len(s.sessions)),
	)
}

// Settings returns the settings new sessions start from.
func (s *Service) Settings() engine.Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

// Open admits a session and returns its id.
func (s *Service) Open(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return "", ErrNotStarted
	}
	if len(s.sessions) >= s.maxSessions {
		s.rejected++
		return "", fmt.Errorf("%w: limit %d", ErrTooManySessions, s.maxSessions)
	}

	id := s.newID()
	s.sessions[id] = &entry{opened: s.clock()}
	s.opened++
	s.logger.Debug(ctx, "session admitted", logger.String("session", id), logger.Int("live", len(s.sessions)))
	return id, nil
}

// Update records the latest state of a session.
func (s *Service) Update(id string, st session.State) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.sessions[id]
	if !ok {
		return
	}
	e.state = st
	if st.Score > s.bestScore {
		s.bestScore = st.Score
	}
}

// Close forgets a session.
func (s *Service) Close(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}

// Sessions lists live sessions, oldest first.
func (s *Service) Sessions() []SessionInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.clock()
	out := make([]SessionInfo, 0, len(s.sessions))
	for id, e := range s.sessions {
		out = append(out, SessionInfo{
			ID:          id,
			Phase:       e.state.Phase.String(),
			Score:       e.state.Score,
			RemainingMS: e.state.Remaining.Milliseconds(),
			AgeMS:       now.Sub(e.opened).Milliseconds(),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].AgeMS != out[j].AgeMS {
			return out[i].AgeMS > out[j].AgeMS
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// PlayHandler returns the websocket endpoint that runs games against this
// service.
func (s *Service) PlayHandler(opts ...ws.Option) http.Handler {
	s.mu.RLock()
	base := []ws.Option{ws.WithOutboxSize(s.outboxSize)}
	if s.logger != nil {
		base = append(base, ws.WithLogger(s.logger.Named("ws")))
	}
	settings := s.settings
	s.mu.RUnlock()

	return ws.NewHandler(s, settings, append(base, opts...)...)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	sessions := s.Sessions()

	s.mu.RLock()
	defer s.mu.RUnlock()

	return map[string]interface{}{
		"started":          s.started,
		"activeSessions":   len(sessions),
		"maxSessions":      s.maxSessions,
		"sessionsOpened":   s.opened,
		"sessionsRejected": s.rejected,
		"bestScore":        s.bestScore,
		"sessions":         sessions,
	}
}
