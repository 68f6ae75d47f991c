// Package outbound defines the interfaces for outbound ports (secondary/driven adapters)
// These are the interfaces the workflow uses to reach the recipe backend and
// the per-session staging storage.
package outbound

import (
	"context"
	"io"

	"github.com/tastyfood/web/internal/domain/draft"
)

// RecipeBackend is the remote REST API that generates, checks and stores
// recipes. Implementations return *errors.AppError values: CodeUnauthorized
// for a 401 and CodeExternalServiceError for transport failures and other
// non-2xx answers.
type RecipeBackend interface {
	// AI generation
	Generate(ctx context.Context, prompt string) (*GenerateResponse, error)
	Parse(ctx context.Context, rawText string) (*ParseResponse, error)
	CheckRecipe(ctx context.Context, submission draft.Submission) (*CheckResponse, error)

	// Media
	SearchVideos(ctx context.Context, keyword string) ([]draft.Video, error)
	UploadImage(ctx context.Context, filename string, image io.Reader) (string, error)

	// Persistence
	SubmitRecipe(ctx context.Context, submission draft.Submission) error

	// Session
	CheckSession(ctx context.Context) (*SessionUser, error)
}

// GenerateResponse is the answer of the text-generation endpoint
type GenerateResponse struct {
	Response string `json:"response"`
	IsSafe   *bool  `json:"is_safe,omitempty"`
	Reason   string `json:"reason,omitempty"`
	Fix      string `json:"fix,omitempty"`
}

// Verdict interprets the safety flag. A missing flag counts as safe, the way
// older backends that never sent one behaved.
func (r GenerateResponse) Verdict() draft.SafetyVerdict {
	return draft.SafetyVerdict{
		Safe:   r.IsSafe == nil || *r.IsSafe,
		Reason: r.Reason,
		Fix:    r.Fix,
	}
}

// DangerCheck is the nested safety verdict of the parse endpoint
type DangerCheck struct {
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
	Fix    string `json:"fix,omitempty"`
}

// ParseResponse is the structured recipe extracted from generated text
type ParseResponse struct {
	MenuName        string      `json:"menuName"`
	Ingredients     []string    `json:"ingredients"`
	Instructions    []string    `json:"instructions"`
	Category        string      `json:"category"`
	Tags            []string    `json:"tags"`
	Characteristics string      `json:"characteristics"`
	Flavors         string      `json:"flavors"`
	DangerCheck     DangerCheck `json:"danger_check"`
}

// CheckResponse is the answer of the pre-submission safety check
type CheckResponse struct {
	Status      string `json:"status"`
	Reason      string `json:"reason,omitempty"`
	Fix         string `json:"fix,omitempty"`
	UnsafeParts string `json:"unsafe_parts,omitempty"`
}

// Status values of the safety endpoints
const (
	StatusSafe    = "Safe"
	StatusNotSafe = "Not Safe"
)

// SessionUser is the authenticated user behind the browser session
type SessionUser struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Picture string `json:"picture"`
}

// MarkdownRenderer turns backend-supplied markdown, such as a safety
// reason, into presentation text for one surface.
type MarkdownRenderer interface {
	Render(markdown string) (string, error)
}

type backendSessionKey struct{}

// WithBackendSession attaches the recipe backend's session id to ctx so
// RecipeBackend calls act on behalf of the browser that owns it.
func WithBackendSession(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, backendSessionKey{}, sessionID)
}

// BackendSession returns the session id attached by WithBackendSession
func BackendSession(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(backendSessionKey{}).(string)
	return id, ok && id != ""
}
