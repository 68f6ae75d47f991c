// Package session holds the explicit per-browser user context. The web layer
// asks it who is signed in instead of reading shared globals.
package session

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/tastyfood/web/internal/ports/inbound"
	"github.com/tastyfood/web/internal/ports/outbound"
	apperrors "github.com/tastyfood/web/pkg/errors"
)

// Context caches the signed-in user of one browser session
type Context struct {
	backend outbound.RecipeBackend
	logger  *zap.Logger
	maxAge  time.Duration
	now     func() time.Time

	mu        sync.RWMutex
	user      *outbound.SessionUser
	checkedAt time.Time
}

var _ inbound.SessionContext = (*Context)(nil)

// NewContext creates an empty context. A cached user older than maxAge is
// reported as absent; zero keeps it until Invalidate.
func NewContext(backend outbound.RecipeBackend, maxAge time.Duration, logger *zap.Logger) *Context {
	return &Context{
		backend: backend,
		logger:  logger.Named("session-context"),
		maxAge:  maxAge,
		now:     time.Now,
	}
}

// Current returns the cached user without contacting the backend
func (c *Context) Current(ctx context.Context) (*outbound.SessionUser, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.user == nil {
		return nil, false
	}
	if c.maxAge > 0 && c.now().Sub(c.checkedAt) > c.maxAge {
		return nil, false
	}
	user := *c.user
	return &user, true
}

// Refresh asks the backend who owns the session and caches the answer. An
// unauthorized reply clears the cache.
func (c *Context) Refresh(ctx context.Context) (*outbound.SessionUser, error) {
	user, err := c.backend.CheckSession(ctx)
	if err != nil {
		if apperrors.Is(err, apperrors.CodeUnauthorized) {
			c.Invalidate()
			return nil, err
		}
		c.logger.Warn("Session check failed", zap.Error(err))
		return nil, err
	}

	c.mu.Lock()
	c.user = user
	c.checkedAt = c.now()
	c.mu.Unlock()

	c.logger.Debug("Session refreshed", zap.String("user_id", user.ID))
	copied := *user
	return &copied, nil
}

// Invalidate forgets the cached user
func (c *Context) Invalidate() {
	c.mu.Lock()
	c.user = nil
	c.checkedAt = time.Time{}
	c.mu.Unlock()
}
