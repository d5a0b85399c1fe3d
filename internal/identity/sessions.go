package identity

import (
	"errors"
	"strings"
	"sync"
	"time"

	"esuvi/internal/log"
	"esuvi/internal/settings"
)

// ErrEmptyUserID is returned when signing in without a user ID.
var ErrEmptyUserID = errors.New("user id is required")

// Sessions holds the single signed-in user of this process. Expiry follows
// auth.sessionTimeout minutes, read on every check so runtime changes apply.
type Sessions struct {
	mu       sync.Mutex
	current  *Identity
	signedAt time.Time

	settings *settings.Settings
	now      func() time.Time
	logger   *log.Logger
}

// SessionsOption configures Sessions.
type SessionsOption func(*Sessions)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) SessionsOption {
	return func(s *Sessions) { s.now = now }
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) SessionsOption {
	return func(s *Sessions) { s.logger = l }
}

// NewSessions creates an empty session holder.
func NewSessions(cfg *settings.Settings, opts ...SessionsOption) *Sessions {
	s := &Sessions{settings: cfg, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = log.OrDiscard(s.logger).WithComponent(log.ComponentIdentity)
	return s
}

// SignIn replaces the current session.
func (s *Sessions) SignIn(id Identity) error {
	id.UserID = strings.TrimSpace(id.UserID)
	if id.UserID == "" {
		return ErrEmptyUserID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = &id
	s.signedAt = s.now()
	s.logger.Info("Signed in", log.FieldUserID, id.UserID)
	return nil
}

// SignOut ends the current session, if any.
func (s *Sessions) SignOut() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current != nil {
		s.logger.Info("Signed out", log.FieldUserID, s.current.UserID)
	}
	s.current = nil
}

// CurrentIdentity implements Provider. An expired session is dropped.
func (s *Sessions) CurrentIdentity() (Identity, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return Identity{}, false
	}
	if timeout := s.settings.IntOr(settings.CategoryAuth, settings.KeySessionTimeout, 0); timeout > 0 {
		if s.now().Sub(s.signedAt) >= time.Duration(timeout)*time.Minute {
			s.logger.Info("Session expired", log.FieldUserID, s.current.UserID)
			s.current = nil
			return Identity{}, false
		}
	}
	return *s.current, true
}
