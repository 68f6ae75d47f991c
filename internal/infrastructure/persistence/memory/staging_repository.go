// Package memory provides the process-local draft staging backend
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/tastyfood/web/internal/domain/draft"
	"github.com/tastyfood/web/internal/ports/outbound"
)

const defaultTTL = 24 * time.Hour

// stagedSession holds the fields of one browser session
type stagedSession struct {
	fields    map[draft.Field]string
	expiresAt time.Time
}

// StagingRepository implements outbound.StagingBackend in memory. A session
// expires ttl after its last write.
type StagingRepository struct {
	data  map[string]*stagedSession
	mutex sync.RWMutex
	now   func() time.Time
	stop  chan struct{}
	once  sync.Once
}

var _ outbound.StagingBackend = (*StagingRepository)(nil)

// NewStagingRepository creates the repository and starts expiry cleanup
func NewStagingRepository(cleanupInterval time.Duration) *StagingRepository {
	repo := &StagingRepository{
		data: make(map[string]*stagedSession),
		now:  time.Now,
		stop: make(chan struct{}),
	}

	if cleanupInterval > 0 {
		go repo.cleanup(cleanupInterval)
	}

	return repo
}

// Get retrieves a staged field
func (r *StagingRepository) Get(ctx context.Context, sessionID string, field draft.Field) (string, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	session, exists := r.data[sessionID]
	if !exists || r.now().After(session.expiresAt) {
		return "", outbound.ErrFieldNotFound
	}

	value, exists := session.fields[field]
	if !exists {
		return "", outbound.ErrFieldNotFound
	}

	return value, nil
}

// Set stores a field and extends the session's lifetime
func (r *StagingRepository) Set(ctx context.Context, sessionID string, field draft.Field, value string, ttl time.Duration) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if ttl <= 0 {
		ttl = defaultTTL
	}

	session, exists := r.data[sessionID]
	if !exists || r.now().After(session.expiresAt) {
		session = &stagedSession{fields: make(map[draft.Field]string)}
		r.data[sessionID] = session
	}

	session.fields[field] = value
	session.expiresAt = r.now().Add(ttl)

	return nil
}

// Clear removes every field of a session
func (r *StagingRepository) Clear(ctx context.Context, sessionID string) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	delete(r.data, sessionID)
	return nil
}

// Len returns the number of live sessions
func (r *StagingRepository) Len() int {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return len(r.data)
}

// Close stops the cleanup goroutine
func (r *StagingRepository) Close() error {
	r.once.Do(func() { close(r.stop) })
	return nil
}

// cleanup periodically removes expired sessions
func (r *StagingRepository) cleanup(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.purgeExpired()
		case <-r.stop:
			return
		}
	}
}

func (r *StagingRepository) purgeExpired() {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	now := r.now()
	for id, session := range r.data {
		if now.After(session.expiresAt) {
			delete(r.data, id)
		}
	}
}
