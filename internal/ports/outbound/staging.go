package outbound

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/tastyfood/web/internal/domain/draft"
)

// ErrFieldNotFound is returned by StagingBackend.Get for an absent field
var ErrFieldNotFound = errors.New("staged field not found")

// StagingBackend stores raw text values per browser session. Each field is
// written independently: a session whose writes were interrupted holds
// whatever fields made it, each either present or absent.
type StagingBackend interface {
	Get(ctx context.Context, sessionID string, field draft.Field) (string, error)
	Set(ctx context.Context, sessionID string, field draft.Field, value string, ttl time.Duration) error
	Clear(ctx context.Context, sessionID string) error
}

// DraftStaging is the typed, session-bound view of the staging store that
// the generation and editor services use. Reads never fail: a missing or
// undecodable field reports ok=false.
//
// Fields are read and written one at a time, so a read-modify-write of a
// field must hold the lock. Every DraftStaging handed out for the same
// session in one process shares it.
type DraftStaging interface {
	sync.Locker

	Set(ctx context.Context, field draft.Field, value string) error
	Get(ctx context.Context, field draft.Field) (string, bool)

	SetList(ctx context.Context, field draft.Field, items []string) error
	GetList(ctx context.Context, field draft.Field) ([]string, bool)

	SetVideos(ctx context.Context, videos []draft.Video) error
	GetVideos(ctx context.Context) ([]draft.Video, bool)

	SaveDraft(ctx context.Context, d *draft.Draft) error
	LoadDraft(ctx context.Context) *draft.Draft

	Clear(ctx context.Context) error
}
