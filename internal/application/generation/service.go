// Package generation provides the application layer for AI recipe generation
// This implements the generation use case defined in the inbound ports
package generation

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/tastyfood/web/internal/domain/draft"
	"github.com/tastyfood/web/internal/ports/inbound"
	"github.com/tastyfood/web/internal/ports/outbound"
	apperrors "github.com/tastyfood/web/pkg/errors"
)

// User-visible messages
const (
	MsgRetriesExhausted = "Failed to generate recipe after retries"
	MsgParseFailed      = "Failed to parse recipe"
	MsgIncomplete       = "Parsed data is incomplete"
	MsgVideoSearch      = "YouTube search failed"
	MsgAuthRequired     = "Please log in to generate a recipe"
	MsgUnsafe           = "The recipe contains unsafe content"
)

// Config tunes the generation service
type Config struct {
	Retry RetryPolicy

	// CallTimeout bounds each backend call; zero means no deadline
	CallTimeout time.Duration

	// KeywordPrefix is prepended to the menu name for the video search
	KeywordPrefix string

	// EditorPath is where a completed draft is edited
	EditorPath string
}

// DefaultConfig matches the behavior of the browser client
func DefaultConfig() Config {
	return Config{
		Retry:         DefaultRetryPolicy(),
		CallTimeout:   60 * time.Second,
		KeywordPrefix: "วิธีทำ ",
		EditorPath:    "/food_generated",
	}
}

// errEmptyResponse marks a generate call that returned no text
var errEmptyResponse = errors.New("generation returned empty text")

// Service implements inbound.GenerationService
type Service struct {
	backend outbound.RecipeBackend
	metrics outbound.MetricsRecorder
	config  Config
	tracer  trace.Tracer
	logger  *zap.Logger
}

var _ inbound.GenerationService = (*Service)(nil)

// NewService creates a new generation service
func NewService(backend outbound.RecipeBackend, metrics outbound.MetricsRecorder, cfg Config, logger *zap.Logger) *Service {
	if metrics == nil {
		metrics = outbound.NopMetrics{}
	}
	return &Service{
		backend: backend,
		metrics: metrics,
		config:  cfg,
		tracer:  otel.Tracer("github.com/tastyfood/web/generation"),
		logger:  logger.Named("generation-service"),
	}
}

// Generate runs Generate → Parse → Stage → SearchVideos for one prompt
func (s *Service) Generate(ctx context.Context, prompt string, store outbound.DraftStaging) *inbound.GenerationResult {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "generation.Generate")
	defer span.End()

	s.logger.Info("Generating recipe", zap.Int("prompt_length", len(prompt)))

	result := s.run(ctx, strings.TrimSpace(prompt), store)

	span.SetAttributes(
		attribute.String("generation.state", string(result.State)),
		attribute.Int("generation.attempts", result.Attempts),
	)
	if result.State != inbound.StateComplete {
		span.SetStatus(codes.Error, result.Message)
	}
	s.metrics.RecordGeneration(string(result.State), result.Attempts, time.Since(start))

	s.logger.Info("Generation finished",
		zap.String("state", string(result.State)),
		zap.Int("attempts", result.Attempts),
		zap.Duration("duration", time.Since(start)),
	)

	return result
}

func (s *Service) run(ctx context.Context, prompt string, store outbound.DraftStaging) *inbound.GenerationResult {
	result := &inbound.GenerationResult{State: inbound.StateGeneratingText}

	generated, attempts, err := s.generateText(ctx, prompt)
	result.Attempts = attempts
	if err != nil {
		if apperrors.Is(err, apperrors.CodeUnauthorized) {
			result.State = inbound.StateAuthRequired
			result.Message = MsgAuthRequired
			return result
		}
		return failed(result, MsgRetriesExhausted)
	}

	if verdict := generated.Verdict(); !verdict.Safe {
		return unsafe(result, verdict)
	}

	// Parsing
	result.State = inbound.StateParsing
	parsed, err := s.parse(ctx, generated.Response)
	if err != nil {
		s.logger.Warn("Parse failed", zap.Error(err))
		return failed(result, apperrors.BackendMessage(err, MsgParseFailed))
	}

	if strings.EqualFold(strings.TrimSpace(parsed.DangerCheck.Status), "not safe") {
		return unsafe(result, draft.SafetyVerdict{
			Reason: parsed.DangerCheck.Reason,
			Fix:    parsed.DangerCheck.Fix,
		})
	}

	d := draft.New(parsed.MenuName, parsed.Ingredients, parsed.Instructions,
		parsed.Category, parsed.Tags, parsed.Characteristics, parsed.Flavors)
	if err := d.Validate(); err != nil {
		s.logger.Warn("Parsed recipe is incomplete", zap.Error(err))
		return failed(result, MsgIncomplete)
	}

	// PersistingDraft
	result.State = inbound.StatePersistingDraft
	s.stage(ctx, store, d)

	// SearchingVideos
	result.State = inbound.StateSearchingVideos
	videos, err := s.searchVideos(ctx, s.config.KeywordPrefix+d.MenuName)
	if err != nil {
		s.logger.Warn("Video search failed", zap.Error(err))
		return failed(result, apperrors.BackendMessage(err, MsgVideoSearch))
	}
	if videos == nil {
		videos = []draft.Video{}
	}
	store.Lock()
	if err := store.SetVideos(ctx, videos); err != nil {
		s.logger.Error("Failed to stage videos", zap.Error(err))
	}
	store.Unlock()
	d.Videos = videos

	d.MarkGenerated(prompt)
	s.logEvents(d)

	result.State = inbound.StateComplete
	result.Draft = d
	result.RedirectURL = s.config.EditorPath + "?menuName=" + url.QueryEscape(d.MenuName)
	return result
}

// generateText calls the generate endpoint under the retry policy. A 401
// stops immediately; an empty response counts as a failed attempt.
func (s *Service) generateText(ctx context.Context, prompt string) (*outbound.GenerateResponse, int, error) {
	ctx, span := s.tracer.Start(ctx, "generation.GenerateText")
	defer span.End()

	var generated *outbound.GenerateResponse
	attempts, err := s.config.Retry.retry(ctx, func() error {
		callCtx, cancel := s.callContext(ctx)
		defer cancel()

		resp, err := s.backend.Generate(callCtx, prompt)
		switch {
		case apperrors.Is(err, apperrors.CodeUnauthorized):
			return backoff.Permanent(err)
		case err != nil:
			s.logger.Warn("Generate attempt failed", zap.Error(err))
			return err
		case strings.TrimSpace(resp.Response) == "":
			s.logger.Warn("Generate attempt returned empty text")
			return errEmptyResponse
		}
		generated = resp
		return nil
	})

	span.SetAttributes(attribute.Int("generation.attempts", attempts))
	if err != nil {
		span.RecordError(err)
		return nil, attempts, err
	}
	return generated, attempts, nil
}

func (s *Service) parse(ctx context.Context, text string) (*outbound.ParseResponse, error) {
	ctx, span := s.tracer.Start(ctx, "generation.Parse")
	defer span.End()

	ctx, cancel := s.callContext(ctx)
	defer cancel()

	resp, err := s.backend.Parse(ctx, text)
	if err != nil {
		span.RecordError(err)
	}
	return resp, err
}

// stage replaces whatever the session had staged with the new draft. Write
// failures are logged; the store fails soft.
func (s *Service) stage(ctx context.Context, store outbound.DraftStaging, d *draft.Draft) {
	_, span := s.tracer.Start(ctx, "generation.Stage")
	defer span.End()

	store.Lock()
	defer store.Unlock()

	if err := store.Clear(ctx); err != nil {
		s.logger.Error("Failed to clear previous draft", zap.Error(err))
	}
	if err := store.SaveDraft(ctx, d); err != nil {
		span.RecordError(err)
		s.logger.Error("Failed to stage draft", zap.Error(err))
	}
}

func (s *Service) searchVideos(ctx context.Context, keyword string) ([]draft.Video, error) {
	ctx, span := s.tracer.Start(ctx, "generation.SearchVideos",
		trace.WithAttributes(attribute.String("video.keyword", keyword)))
	defer span.End()

	ctx, cancel := s.callContext(ctx)
	defer cancel()

	videos, err := s.backend.SearchVideos(ctx, keyword)
	if err != nil {
		span.RecordError(err)
	}
	return videos, err
}

func (s *Service) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.config.CallTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.config.CallTimeout)
}

func (s *Service) logEvents(d *draft.Draft) {
	for _, event := range d.Events() {
		s.logger.Info("Domain event",
			zap.String("event", event.EventName()),
			zap.Time("occurred_at", event.OccurredAt()),
		)
	}
}

func failed(result *inbound.GenerationResult, message string) *inbound.GenerationResult {
	result.State = inbound.StateFailed
	result.Message = message
	return result
}

func unsafe(result *inbound.GenerationResult, verdict draft.SafetyVerdict) *inbound.GenerationResult {
	result.State = inbound.StateUnsafeRejected
	result.Reason = verdict.Reason
	result.Fix = verdict.Fix
	result.Message = MsgUnsafe
	if text := verdict.Message(); text != "" {
		result.Message = text
	}
	return result
}
