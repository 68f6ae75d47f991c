// Package inbound defines the interfaces for inbound ports (primary/driving adapters)
// These are the interfaces that the application exposes to the outside world
package inbound

import (
	"context"

	"github.com/tastyfood/web/internal/domain/draft"
	"github.com/tastyfood/web/internal/ports/outbound"
)

// GenerationState is a state of one generation invocation
type GenerationState string

const (
	StateIdle            GenerationState = "idle"
	StateGeneratingText  GenerationState = "generating_text"
	StateParsing         GenerationState = "parsing"
	StatePersistingDraft GenerationState = "persisting_draft"
	StateSearchingVideos GenerationState = "searching_videos"

	// Terminal states
	StateComplete       GenerationState = "complete"
	StateFailed         GenerationState = "failed"
	StateUnsafeRejected GenerationState = "unsafe_rejected"
	StateAuthRequired   GenerationState = "auth_required"
)

// Terminal reports whether the state ends an invocation
func (s GenerationState) Terminal() bool {
	switch s {
	case StateComplete, StateFailed, StateUnsafeRejected, StateAuthRequired:
		return true
	}
	return false
}

// GenerationService turns a prompt into a staged, safety-cleared draft
type GenerationService interface {
	// Generate runs one invocation to a terminal state. Every failure is
	// reported through the result, never as a panic or error.
	Generate(ctx context.Context, prompt string, store outbound.DraftStaging) *GenerationResult
}

// PromptIntake guards a GenerationService with the submission rules of one
// prompt box: non-empty prompts only and at most one generation in flight.
type PromptIntake interface {
	CanSubmit(prompt string) bool
	Busy() bool
	Submit(ctx context.Context, prompt string) (*GenerationResult, error)
}

// GenerationResult is the terminal outcome of a generation invocation
type GenerationResult struct {
	State       GenerationState `json:"state"`
	Message     string          `json:"message,omitempty"`
	Reason      string          `json:"reason,omitempty"`
	Fix         string          `json:"fix,omitempty"`
	Draft       *draft.Draft    `json:"draft,omitempty"`
	RedirectURL string          `json:"redirect_url,omitempty"`
	Attempts    int             `json:"attempts"`
}

// EditorService mutates and submits the draft staged for a session. Every
// mutation writes the changed field back to the store before returning.
type EditorService interface {
	// Queries
	Load(ctx context.Context, store outbound.DraftStaging) *EditorOutcome

	// Commands
	AddIngredient(ctx context.Context, store outbound.DraftStaging, text string) (*EditorOutcome, error)
	AddInstruction(ctx context.Context, store outbound.DraftStaging, text string) (*EditorOutcome, error)
	AddTag(ctx context.Context, store outbound.DraftStaging, text string) (*EditorOutcome, error)
	EditItem(ctx context.Context, store outbound.DraftStaging, cmd EditItemCommand) (*EditorOutcome, error)
	DeleteItem(ctx context.Context, store outbound.DraftStaging, cmd DeleteItemCommand) (*EditorOutcome, error)
	UploadCoverImage(ctx context.Context, store outbound.DraftStaging, cmd UploadCoverImageCommand) (*EditorOutcome, error)
	Submit(ctx context.Context, store outbound.DraftStaging) *EditorOutcome
	Reset(ctx context.Context, store outbound.DraftStaging) error
}

// EditItemCommand replaces one ingredient or instruction
type EditItemCommand struct {
	Kind  draft.ItemKind `json:"kind"`
	Index int            `json:"index"`
	Text  string         `json:"text"`
}

// DeleteItemCommand removes one ingredient, instruction or tag
type DeleteItemCommand struct {
	Kind  draft.ItemKind `json:"kind"`
	Index int            `json:"index"`
}

// UploadCoverImageCommand carries an image chosen by the user
type UploadCoverImageCommand struct {
	Filename string
	Data     []byte
}

// EditorOutcome is what the editor reports after an operation
type EditorOutcome struct {
	Draft *draft.Draft `json:"draft"`

	// Warning is set when an operation was refused without being an error,
	// such as deleting the protected tag.
	Warning string `json:"warning,omitempty"`

	// Submission results
	Submitted    bool   `json:"submitted"`
	Message      string `json:"message,omitempty"`
	Reason       string `json:"reason,omitempty"`
	Fix          string `json:"fix,omitempty"`
	RenderedNote string `json:"rendered_note,omitempty"`
	RedirectURL  string `json:"redirect_url,omitempty"`
}

// SessionContext is the explicit current-user context of a browser session
type SessionContext interface {
	Current(ctx context.Context) (*outbound.SessionUser, bool)
	Refresh(ctx context.Context) (*outbound.SessionUser, error)
	Invalidate()
}
