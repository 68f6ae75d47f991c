package generation

import (
	"context"
	"strings"
	"sync/atomic"

	"github.com/tastyfood/web/internal/ports/inbound"
	"github.com/tastyfood/web/internal/ports/outbound"
	apperrors "github.com/tastyfood/web/pkg/errors"
)

// Intake is the prompt box of one session. It admits non-empty prompts and
// keeps at most one generation in flight.
type Intake struct {
	service  inbound.GenerationService
	store    outbound.DraftStaging
	inFlight atomic.Bool
}

var _ inbound.PromptIntake = (*Intake)(nil)

// NewIntake binds an intake to a session's staging store
func NewIntake(service inbound.GenerationService, store outbound.DraftStaging) *Intake {
	return &Intake{service: service, store: store}
}

// CanSubmit reports whether the trigger is enabled for prompt
func (i *Intake) CanSubmit(prompt string) bool {
	return strings.TrimSpace(prompt) != "" && !i.Busy()
}

// Busy reports whether a generation is running
func (i *Intake) Busy() bool {
	return i.inFlight.Load()
}

// Submit runs one generation. It refuses empty prompts and overlapping calls.
func (i *Intake) Submit(ctx context.Context, prompt string) (*inbound.GenerationResult, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, apperrors.NewValidationError("prompt is required")
	}
	if !i.inFlight.CompareAndSwap(false, true) {
		return nil, apperrors.NewGenerationInFlightError()
	}
	defer i.inFlight.Store(false)

	return i.service.Generate(ctx, prompt, i.store), nil
}
