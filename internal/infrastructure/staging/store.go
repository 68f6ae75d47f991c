// Package staging provides the typed, session-bound draft staging store
package staging

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/tastyfood/web/internal/domain/draft"
	"github.com/tastyfood/web/internal/ports/outbound"
)

// Provider hands out stores bound to one session over a shared backend
type Provider struct {
	backend outbound.StagingBackend
	ttl     time.Duration
	logger  *zap.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewProvider creates a store provider
func NewProvider(backend outbound.StagingBackend, ttl time.Duration, logger *zap.Logger) *Provider {
	return &Provider{
		backend: backend,
		ttl:     ttl,
		logger:  logger.Named("staging"),
		locks:   make(map[string]*sync.Mutex),
	}
}

// ForSession returns the store of one browser session
func (p *Provider) ForSession(sessionID string) *Store {
	return &Store{
		backend:   p.backend,
		sessionID: sessionID,
		ttl:       p.ttl,
		lock:      p.lockFor(sessionID),
		logger:    p.logger.With(zap.String("session_id", sessionID)),
	}
}

// Release forgets the lock of a session that has ended
func (p *Provider) Release(sessionID string) {
	p.mu.Lock()
	delete(p.locks, sessionID)
	p.mu.Unlock()
}

func (p *Provider) lockFor(sessionID string) *sync.Mutex {
	p.mu.Lock()
	defer p.mu.Unlock()

	lock, ok := p.locks[sessionID]
	if !ok {
		lock = &sync.Mutex{}
		p.locks[sessionID] = lock
	}
	return lock
}

// Store implements outbound.DraftStaging. Reads fail soft: backend errors and
// undecodable values are logged and reported as absent fields.
type Store struct {
	backend   outbound.StagingBackend
	sessionID string
	ttl       time.Duration
	lock      *sync.Mutex
	logger    *zap.Logger
}

var _ outbound.DraftStaging = (*Store)(nil)

// Lock serializes read-modify-write sequences on the session's draft
func (s *Store) Lock() { s.lock.Lock() }

// Unlock releases the session lock
func (s *Store) Unlock() { s.lock.Unlock() }

// Set stores a text field
func (s *Store) Set(ctx context.Context, field draft.Field, value string) error {
	return s.backend.Set(ctx, s.sessionID, field, value, s.ttl)
}

// Get reads a text field
func (s *Store) Get(ctx context.Context, field draft.Field) (string, bool) {
	value, err := s.backend.Get(ctx, s.sessionID, field)
	if err != nil {
		if !errors.Is(err, outbound.ErrFieldNotFound) {
			s.logger.Warn("Staged field unreadable",
				zap.String("field", string(field)),
				zap.Error(err))
		}
		return "", false
	}
	return value, true
}

// SetList stores an ordered list as JSON
func (s *Store) SetList(ctx context.Context, field draft.Field, items []string) error {
	if items == nil {
		items = []string{}
	}
	return s.setJSON(ctx, field, items)
}

// GetList reads an ordered list
func (s *Store) GetList(ctx context.Context, field draft.Field) ([]string, bool) {
	var items []string
	if !s.getJSON(ctx, field, &items) {
		return nil, false
	}
	return items, true
}

// SetVideos stores the video list
func (s *Store) SetVideos(ctx context.Context, videos []draft.Video) error {
	if videos == nil {
		videos = []draft.Video{}
	}
	return s.setJSON(ctx, draft.FieldVideos, videos)
}

// GetVideos reads the video list
func (s *Store) GetVideos(ctx context.Context) ([]draft.Video, bool) {
	var videos []draft.Video
	if !s.getJSON(ctx, draft.FieldVideos, &videos) {
		return nil, false
	}
	return videos, true
}

// SaveDraft writes the generated fields of a draft, one field at a time.
// Every field is attempted; the returned error joins the failures.
func (s *Store) SaveDraft(ctx context.Context, d *draft.Draft) error {
	var errs []error
	record := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	record(s.Set(ctx, draft.FieldMenuName, d.MenuName))
	record(s.SetList(ctx, draft.FieldIngredients, d.Ingredients))
	record(s.SetList(ctx, draft.FieldInstructions, d.Instructions))
	record(s.Set(ctx, draft.FieldCategory, d.Category))
	record(s.SetList(ctx, draft.FieldTags, d.Tags))
	record(s.Set(ctx, draft.FieldCharacteristics, d.Characteristics))
	record(s.Set(ctx, draft.FieldFlavors, d.Flavors))

	return errors.Join(errs...)
}

// LoadDraft assembles whatever is staged. Absent fields are left empty.
func (s *Store) LoadDraft(ctx context.Context) *draft.Draft {
	menuName, _ := s.Get(ctx, draft.FieldMenuName)
	ingredients, _ := s.GetList(ctx, draft.FieldIngredients)
	instructions, _ := s.GetList(ctx, draft.FieldInstructions)
	category, _ := s.Get(ctx, draft.FieldCategory)
	tags, _ := s.GetList(ctx, draft.FieldTags)
	characteristics, _ := s.Get(ctx, draft.FieldCharacteristics)
	flavors, _ := s.Get(ctx, draft.FieldFlavors)

	d := draft.New(menuName, ingredients, instructions, category, tags, characteristics, flavors)
	d.CoverImageURL, _ = s.Get(ctx, draft.FieldCoverImage)
	d.Videos, _ = s.GetVideos(ctx)
	return d
}

// Clear removes every staged field of the session
func (s *Store) Clear(ctx context.Context) error {
	return s.backend.Clear(ctx, s.sessionID)
}

func (s *Store) setJSON(ctx context.Context, field draft.Field, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.Set(ctx, field, string(data))
}

func (s *Store) getJSON(ctx context.Context, field draft.Field, v interface{}) bool {
	raw, ok := s.Get(ctx, field)
	if !ok {
		return false
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		s.logger.Warn("Staged field is not valid JSON, treating as absent",
			zap.String("field", string(field)),
			zap.Error(err))
		return false
	}
	return true
}
