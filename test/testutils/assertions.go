// Package testutils provides custom assertions and testing utilities
package testutils

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/tastyfood/web/internal/domain/draft"
	"github.com/tastyfood/web/internal/infrastructure/persistence/memory"
	"github.com/tastyfood/web/internal/infrastructure/staging"
)

// NewMemoryStore returns a session store over a fresh in-memory backend
func NewMemoryStore(sessionID string) *staging.Store {
	backend := memory.NewStagingRepository(0)
	return staging.NewProvider(backend, time.Hour, zap.NewNop()).ForSession(sessionID)
}

// StagingAssertions provides staging-store assertion methods
type StagingAssertions struct {
	t     *testing.T
	store *staging.Store
}

// NewStagingAssertions creates a new staging assertions helper
func NewStagingAssertions(t *testing.T, store *staging.Store) *StagingAssertions {
	return &StagingAssertions{t: t, store: store}
}

// Empty asserts that no field is staged
func (a *StagingAssertions) Empty() {
	a.t.Helper()
	for _, field := range draft.Fields() {
		_, ok := a.store.Get(context.Background(), field)
		assert.False(a.t, ok, "field %s should not be staged", field)
	}
}

// Field asserts the raw staged value of a field
func (a *StagingAssertions) Field(field draft.Field, expected string) {
	a.t.Helper()
	value, ok := a.store.Get(context.Background(), field)
	assert.True(a.t, ok, "field %s should be staged", field)
	assert.Equal(a.t, expected, value, "field %s", field)
}

// List asserts a staged list field
func (a *StagingAssertions) List(field draft.Field, expected []string) {
	a.t.Helper()
	items, ok := a.store.GetList(context.Background(), field)
	assert.True(a.t, ok, "field %s should be staged", field)
	assert.Equal(a.t, expected, items, "field %s", field)
}
