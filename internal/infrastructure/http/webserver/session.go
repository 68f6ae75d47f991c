// Package webserver provides session management for the web frontend
package webserver

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/tastyfood/web/internal/application/generation"
	"github.com/tastyfood/web/internal/application/session"
	"github.com/tastyfood/web/internal/infrastructure/config"
	"github.com/tastyfood/web/internal/infrastructure/staging"
	"github.com/tastyfood/web/internal/ports/inbound"
	"github.com/tastyfood/web/internal/ports/outbound"
)

// Session is the server side of one browser session. It owns the staged
// draft, the prompt intake and the user context of that browser.
type Session struct {
	ID        string
	CreatedAt time.Time
	ExpiresAt time.Time

	Store   *staging.Store
	Intake  *generation.Intake
	User    *session.Context
	limiter *rate.Limiter
}

// Allow reports whether the session may start another generation now
func (s *Session) Allow() bool {
	return s.limiter == nil || s.limiter.Allow()
}

// SessionStore manages browser sessions
type SessionStore struct {
	sessions map[string]*Session
	mu       sync.RWMutex

	config    *config.Config
	provider  *staging.Provider
	generator inbound.GenerationService
	backend   outbound.RecipeBackend
	logger    *zap.Logger

	now      func() time.Time
	stop     chan struct{}
	stopOnce sync.Once
}

// NewSessionStore creates a new session store. Expired sessions are swept
// every session.cleanup_interval.
func NewSessionStore(
	cfg *config.Config,
	provider *staging.Provider,
	generator inbound.GenerationService,
	backend outbound.RecipeBackend,
	logger *zap.Logger,
) *SessionStore {
	store := &SessionStore{
		sessions:  make(map[string]*Session),
		config:    cfg,
		provider:  provider,
		generator: generator,
		backend:   backend,
		logger:    logger.Named("sessions"),
		now:       time.Now,
		stop:      make(chan struct{}),
	}

	if cfg.Session.CleanupInterval > 0 {
		go store.cleanupExpired(cfg.Session.CleanupInterval)
	}

	return store
}

// Get retrieves the session named by the request's cookie
func (s *SessionStore) Get(r *http.Request) (*Session, bool) {
	cookie, err := r.Cookie(s.config.Session.CookieName)
	if err != nil {
		return nil, false
	}

	s.mu.RLock()
	sess, exists := s.sessions[cookie.Value]
	s.mu.RUnlock()

	if !exists {
		return nil, false
	}

	if s.now().After(sess.ExpiresAt) {
		s.Delete(cookie.Value)
		return nil, false
	}

	return sess, true
}

// New creates a new session
func (s *SessionStore) New() *Session {
	id := uuid.NewString()
	now := s.now()

	sess := &Session{
		ID:        id,
		CreatedAt: now,
		ExpiresAt: now.Add(s.config.Session.MaxAge),
		Store:     s.provider.ForSession(id),
		User:      session.NewContext(s.backend, s.config.Session.MaxAge, s.logger),
	}
	sess.Intake = generation.NewIntake(s.generator, sess.Store)

	if s.config.RateLimit.Enabled {
		sess.limiter = rate.NewLimiter(
			rate.Limit(float64(s.config.RateLimit.RequestsPerMin)/60),
			s.config.RateLimit.BurstSize,
		)
	}

	s.mu.Lock()
	s.sessions[id] = sess
	s.mu.Unlock()

	s.logger.Debug("Session created", zap.String("session_id", id))
	return sess
}

// Save sets the session cookie
func (s *SessionStore) Save(w http.ResponseWriter, sess *Session) {
	cookie := &http.Cookie{
		Name:     s.config.Session.CookieName,
		Value:    sess.ID,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.config.Session.Secure,
		SameSite: http.SameSiteLaxMode,
		Expires:  sess.ExpiresAt,
		MaxAge:   int(sess.ExpiresAt.Sub(s.now()).Seconds()),
	}

	http.SetCookie(w, cookie)
}

// Delete removes a session and its staged draft
func (s *SessionStore) Delete(sessionID string) {
	s.mu.Lock()
	sess, exists := s.sessions[sessionID]
	delete(s.sessions, sessionID)
	s.mu.Unlock()

	if exists {
		s.provider.Release(sessionID)
		if err := sess.Store.Clear(context.Background()); err != nil {
			s.logger.Warn("Failed to clear staged draft of expired session",
				zap.String("session_id", sessionID), zap.Error(err))
		}
	}
}

// Len returns the number of live sessions
func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Close stops the cleanup goroutine
func (s *SessionStore) Close() {
	s.stopOnce.Do(func() { close(s.stop) })
}

// cleanupExpired removes expired sessions periodically
func (s *SessionStore) cleanupExpired(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.purgeExpired()
		case <-s.stop:
			return
		}
	}
}

func (s *SessionStore) purgeExpired() {
	now := s.now()

	s.mu.RLock()
	var expired []string
	for id, sess := range s.sessions {
		if now.After(sess.ExpiresAt) {
			expired = append(expired, id)
		}
	}
	s.mu.RUnlock()

	for _, id := range expired {
		s.Delete(id)
		s.logger.Debug("Cleaned up expired session", zap.String("session_id", id))
	}
}

type sessionKey struct{}

func withSession(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, sess)
}

// SessionFrom returns the session attached by the session middleware
func SessionFrom(ctx context.Context) (*Session, bool) {
	sess, ok := ctx.Value(sessionKey{}).(*Session)
	return sess, ok
}
