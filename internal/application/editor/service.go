// Package editor provides the application layer for editing and submitting
// a staged draft recipe
package editor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/tastyfood/web/internal/domain/draft"
	"github.com/tastyfood/web/internal/domain/shared"
	"github.com/tastyfood/web/internal/ports/inbound"
	"github.com/tastyfood/web/internal/ports/outbound"
	apperrors "github.com/tastyfood/web/pkg/errors"
)

// User-visible messages
const (
	MsgSubmitted        = "Recipe successfully submitted!"
	MsgSubmissionFailed = "An error occurred during submission."
	MsgValidationFailed = "Recipe validation failed: "
	MsgDangerNotice     = "พวกเราตรวจพบวัตถุดิบ หรือวิธีการทำที่อันตราย."
	MsgIncomplete       = "The recipe is incomplete. Add a name, category, tags, ingredients and instructions before submitting."
	MsgTagExists        = "Tag already exists."
	MsgTagReserved      = "The 'AI generate' tag is added automatically."
	MsgTagEmpty         = "Tag is empty after removing symbols."
	MsgProtectedTag     = "The 'AI generate' tag cannot be deleted."
)

// Config tunes the editor service
type Config struct {
	MaxUploadBytes   int64
	AllowedImageMIME []string
	PublishedPath    string
}

// DefaultConfig returns the editor defaults
func DefaultConfig() Config {
	return Config{
		MaxUploadBytes:   10 << 20,
		AllowedImageMIME: []string{"image/jpeg", "image/png", "image/gif", "image/webp"},
		PublishedPath:    "/foodview/available",
	}
}

// Service implements inbound.EditorService
type Service struct {
	backend  outbound.RecipeBackend
	renderer outbound.MarkdownRenderer
	metrics  outbound.MetricsRecorder
	config   Config
	tracer   trace.Tracer
	logger   *zap.Logger
}

var _ inbound.EditorService = (*Service)(nil)

// NewService creates a new editor service. renderer formats safety
// reasons for the caller's surface and may be nil.
func NewService(
	backend outbound.RecipeBackend,
	renderer outbound.MarkdownRenderer,
	metrics outbound.MetricsRecorder,
	cfg Config,
	logger *zap.Logger,
) *Service {
	if metrics == nil {
		metrics = outbound.NopMetrics{}
	}
	return &Service{
		backend:  backend,
		renderer: renderer,
		metrics:  metrics,
		config:   cfg,
		tracer:   otel.Tracer("github.com/tastyfood/web/editor"),
		logger:   logger.Named("editor-service"),
	}
}

// Load reads the staged draft. Ingredients and instructions pass through the
// free-text sanitizer, as they would on entry.
func (s *Service) Load(ctx context.Context, store outbound.DraftStaging) *inbound.EditorOutcome {
	return &inbound.EditorOutcome{Draft: s.load(ctx, store)}
}

// AddIngredient appends an ingredient. Blank input changes nothing.
func (s *Service) AddIngredient(ctx context.Context, store outbound.DraftStaging, text string) (*inbound.EditorOutcome, error) {
	store.Lock()
	defer store.Unlock()

	d := s.load(ctx, store)
	if !d.AddIngredient(text) {
		return &inbound.EditorOutcome{Draft: d}, nil
	}
	return s.save(ctx, store, "add_ingredient", d, draft.FieldIngredients)
}

// AddInstruction appends an instruction. Blank input changes nothing.
func (s *Service) AddInstruction(ctx context.Context, store outbound.DraftStaging, text string) (*inbound.EditorOutcome, error) {
	store.Lock()
	defer store.Unlock()

	d := s.load(ctx, store)
	if !d.AddInstruction(text) {
		return &inbound.EditorOutcome{Draft: d}, nil
	}
	return s.save(ctx, store, "add_instruction", d, draft.FieldInstructions)
}

// AddTag adds a sanitized tag. Empty, reserved and duplicate tags are
// refused with a warning and leave the tags unchanged.
func (s *Service) AddTag(ctx context.Context, store outbound.DraftStaging, text string) (*inbound.EditorOutcome, error) {
	store.Lock()
	defer store.Unlock()

	d := s.load(ctx, store)

	err := d.AddTag(text)
	switch {
	case errors.Is(err, draft.ErrEmptyText):
		return s.warn("add_tag", d, MsgTagEmpty), nil
	case errors.Is(err, draft.ErrReservedTag):
		return s.warn("add_tag", d, MsgTagReserved), nil
	case errors.Is(err, draft.ErrDuplicateTag):
		return s.warn("add_tag", d, MsgTagExists), nil
	case err != nil:
		return nil, apperrors.Wrap(err, "Failed to add tag")
	}

	return s.save(ctx, store, "add_tag", d, draft.FieldTags)
}

// EditItem replaces an ingredient or instruction
func (s *Service) EditItem(ctx context.Context, store outbound.DraftStaging, cmd inbound.EditItemCommand) (*inbound.EditorOutcome, error) {
	store.Lock()
	defer store.Unlock()

	d := s.load(ctx, store)

	if err := d.EditItem(cmd.Kind, cmd.Index, cmd.Text); err != nil {
		s.metrics.RecordEditorOperation("edit_item", "rejected")
		return nil, apperrors.NewValidationError(err.Error()).WithCause(err)
	}

	return s.save(ctx, store, "edit_item", d, cmd.Kind.Field())
}

// DeleteItem removes an ingredient, instruction or tag. Deleting the
// protected tag is refused with a warning.
func (s *Service) DeleteItem(ctx context.Context, store outbound.DraftStaging, cmd inbound.DeleteItemCommand) (*inbound.EditorOutcome, error) {
	store.Lock()
	defer store.Unlock()

	d := s.load(ctx, store)

	err := d.DeleteItem(cmd.Kind, cmd.Index)
	if errors.Is(err, draft.ErrProtectedTag) {
		return s.warn("delete_item", d, MsgProtectedTag), nil
	}
	if err != nil {
		s.metrics.RecordEditorOperation("delete_item", "rejected")
		return nil, apperrors.NewValidationError(err.Error()).WithCause(err)
	}

	return s.save(ctx, store, "delete_item", d, cmd.Kind.Field())
}

// UploadCoverImage uploads an image and stages its URL right away, so the
// image survives a reload even if the draft is never submitted. A failed
// upload leaves the current cover in place.
func (s *Service) UploadCoverImage(ctx context.Context, store outbound.DraftStaging, cmd inbound.UploadCoverImageCommand) (*inbound.EditorOutcome, error) {
	ctx, span := s.tracer.Start(ctx, "editor.UploadCoverImage",
		trace.WithAttributes(attribute.Int("image.size", len(cmd.Data))))
	defer span.End()

	if err := s.checkImage(cmd.Data); err != nil {
		s.metrics.RecordEditorOperation("upload_cover", "rejected")
		return nil, err
	}

	link, err := s.backend.UploadImage(ctx, cmd.Filename, bytes.NewReader(cmd.Data))
	if err != nil {
		span.RecordError(err)
		s.logger.Warn("Cover image upload failed", zap.Error(err))
		s.metrics.RecordEditorOperation("upload_cover", "failed")
		return nil, apperrors.NewAppError(apperrors.CodeUploadFailed, "Failed to upload image", "").WithCause(err)
	}

	store.Lock()
	defer store.Unlock()

	if err := store.Set(ctx, draft.FieldCoverImage, link); err != nil {
		s.logger.Error("Failed to stage cover image", zap.Error(err))
		return nil, apperrors.NewInternalError("Failed to save draft").WithCause(err)
	}

	d := s.load(ctx, store)
	s.metrics.RecordEditorOperation("upload_cover", "ok")
	return &inbound.EditorOutcome{Draft: d}, nil
}

// Submit runs the backend safety check and, if it passes, creates the
// recipe and clears the staged draft. Any failure keeps the draft.
func (s *Service) Submit(ctx context.Context, store outbound.DraftStaging) *inbound.EditorOutcome {
	ctx, span := s.tracer.Start(ctx, "editor.Submit")
	defer span.End()

	// Held across the backend calls so edits made meanwhile are not cleared
	// unseen.
	store.Lock()
	defer store.Unlock()

	d := s.load(ctx, store)
	outcome := &inbound.EditorOutcome{Draft: d}

	if err := d.Validate(); err != nil {
		s.metrics.RecordSubmission("incomplete")
		outcome.Message = MsgIncomplete
		return outcome
	}

	submission := d.Submission()

	check, err := s.backend.CheckRecipe(ctx, submission)
	if err != nil {
		span.RecordError(err)
		s.logger.Warn("Safety check failed", zap.Error(err))
		s.metrics.RecordSubmission("error")
		outcome.Message = MsgSubmissionFailed
		return outcome
	}
	span.SetAttributes(attribute.String("check.status", check.Status))

	if check.Status != outbound.StatusSafe {
		s.metrics.RecordSubmission("unsafe")
		outcome.Reason = check.Reason
		outcome.Fix = check.Fix
		if check.Status == outbound.StatusNotSafe {
			outcome.Message = MsgValidationFailed + check.UnsafeParts
		} else {
			outcome.Message = MsgDangerNotice
		}
		outcome.RenderedNote = s.render(draft.SafetyVerdict{Reason: check.Reason, Fix: check.Fix})
		return outcome
	}

	if err := s.backend.SubmitRecipe(ctx, submission); err != nil {
		span.RecordError(err)
		s.logger.Warn("Recipe creation failed", zap.Error(err))
		s.metrics.RecordSubmission("error")
		outcome.Message = MsgSubmissionFailed
		return outcome
	}

	if err := store.Clear(ctx); err != nil {
		s.logger.Error("Failed to clear submitted draft", zap.Error(err))
	}

	d.MarkSubmitted()
	s.logEvents(d)
	s.metrics.RecordSubmission("submitted")

	outcome.Submitted = true
	outcome.Message = MsgSubmitted
	outcome.RedirectURL = s.config.PublishedPath
	return outcome
}

// Reset discards the staged draft
func (s *Service) Reset(ctx context.Context, store outbound.DraftStaging) error {
	store.Lock()
	defer store.Unlock()

	menuName, _ := store.Get(ctx, draft.FieldMenuName)

	if err := store.Clear(ctx); err != nil {
		return apperrors.NewInternalError("Failed to reset draft").WithCause(err)
	}

	s.logEvent(draft.DraftResetEvent{MenuName: menuName, ResetAt: time.Now()})
	s.metrics.RecordEditorOperation("reset", "ok")
	return nil
}

func (s *Service) load(ctx context.Context, store outbound.DraftStaging) *draft.Draft {
	d := store.LoadDraft(ctx)
	d.Ingredients = draft.DefaultSanitizer.FreeTextAll(d.Ingredients)
	d.Instructions = draft.DefaultSanitizer.FreeTextAll(d.Instructions)
	return d
}

// save writes back the one field an operation changed
func (s *Service) save(ctx context.Context, store outbound.DraftStaging, operation string, d *draft.Draft, field draft.Field) (*inbound.EditorOutcome, error) {
	var items []string
	switch field {
	case draft.FieldIngredients:
		items = d.Ingredients
	case draft.FieldInstructions:
		items = d.Instructions
	case draft.FieldTags:
		items = d.Tags
	default:
		return nil, apperrors.NewInternalError(fmt.Sprintf("field %s is not a list", field))
	}

	if err := store.SetList(ctx, field, items); err != nil {
		s.logger.Error("Failed to stage draft field", zap.String("field", string(field)), zap.Error(err))
		s.metrics.RecordEditorOperation(operation, "failed")
		return nil, apperrors.NewInternalError("Failed to save draft").WithCause(err)
	}

	s.metrics.RecordEditorOperation(operation, "ok")
	return &inbound.EditorOutcome{Draft: d}, nil
}

func (s *Service) warn(operation string, d *draft.Draft, message string) *inbound.EditorOutcome {
	s.metrics.RecordEditorOperation(operation, "refused")
	return &inbound.EditorOutcome{Draft: d, Warning: message}
}

func (s *Service) checkImage(data []byte) error {
	if len(data) == 0 {
		return apperrors.NewValidationError("image is empty")
	}
	if s.config.MaxUploadBytes > 0 && int64(len(data)) > s.config.MaxUploadBytes {
		return apperrors.NewValidationError(fmt.Sprintf("image exceeds %d bytes", s.config.MaxUploadBytes))
	}
	if len(s.config.AllowedImageMIME) > 0 {
		mime := http.DetectContentType(data)
		if !slices.Contains(s.config.AllowedImageMIME, mime) {
			return apperrors.NewValidationError(fmt.Sprintf("unsupported image type %s", mime))
		}
	}
	return nil
}

// render formats the reason and fix. Rendering failures fall back to the
// plain text, which is still shown verbatim.
func (s *Service) render(verdict draft.SafetyVerdict) string {
	text := verdict.Message()
	if text == "" || s.renderer == nil {
		return text
	}
	rendered, err := s.renderer.Render(text)
	if err != nil {
		s.logger.Warn("Failed to render safety note", zap.Error(err))
		return text
	}
	return rendered
}

func (s *Service) logEvents(d *draft.Draft) {
	for _, event := range d.Events() {
		s.logEvent(event)
	}
}

func (s *Service) logEvent(event shared.DomainEvent) {
	s.logger.Info("Domain event",
		zap.String("event", event.EventName()),
		zap.Time("occurred_at", event.OccurredAt()),
	)
}
