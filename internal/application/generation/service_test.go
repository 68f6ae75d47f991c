package generation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"

	"github.com/tastyfood/web/internal/domain/draft"
	"github.com/tastyfood/web/internal/infrastructure/staging"
	"github.com/tastyfood/web/internal/ports/inbound"
	"github.com/tastyfood/web/internal/ports/outbound"
	apperrors "github.com/tastyfood/web/pkg/errors"
	"github.com/tastyfood/web/test/testutils"
)

// GenerationServiceTestSuite drives the orchestrator against a mocked backend
type GenerationServiceTestSuite struct {
	suite.Suite
	backend *testutils.MockRecipeBackend
	metrics *testutils.MockMetrics
	store   *staging.Store
	service *Service
	ctx     context.Context
}

func (suite *GenerationServiceTestSuite) SetupTest() {
	suite.backend = new(testutils.MockRecipeBackend)
	suite.metrics = new(testutils.MockMetrics)
	suite.store = testutils.NewMemoryStore("session-1")
	suite.service = NewService(suite.backend, suite.metrics, DefaultConfig(), zap.NewNop())
	suite.ctx = context.Background()
}

func spicyBasilChicken() *outbound.ParseResponse {
	return &outbound.ParseResponse{
		MenuName:        "Spicy Basil Chicken",
		Ingredients:     []string{"chicken", "basil"},
		Instructions:    []string{"stir fry"},
		Category:        "Main Dish",
		Tags:            []string{"spicy"},
		Characteristics: "savory",
		Flavors:         "spicy",
		DangerCheck:     outbound.DangerCheck{Status: "safe"},
	}
}

// TestGenerate_EndToEnd tests the happy path through every step
func (suite *GenerationServiceTestSuite) TestGenerate_EndToEnd() {
	// Arrange
	videos := []draft.Video{{ID: "vid1", Title: "ผัดกะเพราไก่"}}
	suite.backend.On("Generate", mock.Anything, "Spicy Basil Chicken").
		Return(testutils.SafeGenerateResponse("raw recipe"), nil).Once()
	suite.backend.On("Parse", mock.Anything, "raw recipe").
		Return(spicyBasilChicken(), nil).Once()
	suite.backend.On("SearchVideos", mock.Anything, "วิธีทำ Spicy Basil Chicken").
		Return(videos, nil).Once()

	// Act
	result := suite.service.Generate(suite.ctx, "Spicy Basil Chicken", suite.store)

	// Assert
	require.Equal(suite.T(), inbound.StateComplete, result.State)
	assert.Equal(suite.T(), 1, result.Attempts)
	assert.Equal(suite.T(), "/food_generated?menuName=Spicy+Basil+Chicken", result.RedirectURL)
	assert.Equal(suite.T(), videos, result.Draft.Videos)

	staged := testutils.NewStagingAssertions(suite.T(), suite.store)
	staged.Field(draft.FieldMenuName, "Spicy Basil Chicken")
	staged.List(draft.FieldIngredients, []string{"chicken", "basil"})
	staged.List(draft.FieldTags, []string{"spicy"})
	staged.Field(draft.FieldFlavors, "spicy")

	stagedVideos, ok := suite.store.GetVideos(suite.ctx)
	assert.True(suite.T(), ok)
	assert.Equal(suite.T(), videos, stagedVideos)

	assert.Equal(suite.T(), []string{"complete"}, suite.metrics.Generations)
	suite.backend.AssertExpectations(suite.T())
}

// TestGenerate_StagesSanitizedTags tests that generated tags are filtered
// before they reach the store
func (suite *GenerationServiceTestSuite) TestGenerate_StagesSanitizedTags() {
	// Arrange
	parsed := spicyBasilChicken()
	parsed.Tags = []string{draft.SentinelTag, "#spicy", "spicy!", "**ไทย**"}
	suite.backend.On("Generate", mock.Anything, "kaprao").
		Return(testutils.SafeGenerateResponse("kaprao text"), nil).Once()
	suite.backend.On("Parse", mock.Anything, "kaprao text").Return(parsed, nil).Once()
	suite.backend.On("SearchVideos", mock.Anything, mock.Anything).Return([]draft.Video{}, nil).Once()

	// Act
	result := suite.service.Generate(suite.ctx, "kaprao", suite.store)

	// Assert
	require.Equal(suite.T(), inbound.StateComplete, result.State)
	expected := []string{draft.SentinelTag, "spicy", "ไทย"}
	assert.Equal(suite.T(), expected, result.Draft.Tags)
	testutils.NewStagingAssertions(suite.T(), suite.store).List(draft.FieldTags, expected)
}

// TestGenerate_RetriesExhausted tests the bounded retry of the generate step
func (suite *GenerationServiceTestSuite) TestGenerate_RetriesExhausted() {
	// Arrange
	serverErr := apperrors.NewExternalServiceError("recipe-api", 500, errors.New("boom"))
	suite.backend.On("Generate", mock.Anything, "pad thai").Return(nil, serverErr)

	// Act
	result := suite.service.Generate(suite.ctx, "pad thai", suite.store)

	// Assert
	assert.Equal(suite.T(), inbound.StateFailed, result.State)
	assert.Equal(suite.T(), "Failed to generate recipe after retries", result.Message)
	assert.Equal(suite.T(), 3, result.Attempts)
	suite.backend.AssertNumberOfCalls(suite.T(), "Generate", 3)
	suite.backend.AssertNotCalled(suite.T(), "Parse", mock.Anything, mock.Anything)
	testutils.NewStagingAssertions(suite.T(), suite.store).Empty()
}

// TestGenerate_RecoversOnRetry tests success after transient failures
func (suite *GenerationServiceTestSuite) TestGenerate_RecoversOnRetry() {
	// Arrange
	suite.backend.On("Generate", mock.Anything, "larb").
		Return(nil, apperrors.NewExternalServiceError("recipe-api", 0, errors.New("reset"))).Once()
	suite.backend.On("Generate", mock.Anything, "larb").
		Return(testutils.SafeGenerateResponse("  "), nil).Once()
	suite.backend.On("Generate", mock.Anything, "larb").
		Return(testutils.SafeGenerateResponse("larb text"), nil).Once()
	suite.backend.On("Parse", mock.Anything, "larb text").Return(spicyBasilChicken(), nil)
	suite.backend.On("SearchVideos", mock.Anything, mock.Anything).Return([]draft.Video{}, nil)

	// Act
	result := suite.service.Generate(suite.ctx, "larb", suite.store)

	// Assert
	assert.Equal(suite.T(), inbound.StateComplete, result.State)
	assert.Equal(suite.T(), 3, result.Attempts, "an empty response counts as a failed attempt")
}

// TestGenerate_Unauthorized tests that a 401 stops without retrying
func (suite *GenerationServiceTestSuite) TestGenerate_Unauthorized() {
	// Arrange
	suite.backend.On("Generate", mock.Anything, "som tam").
		Return(nil, apperrors.NewUnauthorizedError("")).Once()

	// Act
	result := suite.service.Generate(suite.ctx, "som tam", suite.store)

	// Assert
	assert.Equal(suite.T(), inbound.StateAuthRequired, result.State)
	assert.Equal(suite.T(), 1, result.Attempts)
	suite.backend.AssertNumberOfCalls(suite.T(), "Generate", 1)
}

// TestGenerate_UnsafeGeneration tests the first safety gate
func (suite *GenerationServiceTestSuite) TestGenerate_UnsafeGeneration() {
	// Arrange
	suite.backend.On("Generate", mock.Anything, "fugu").
		Return(testutils.UnsafeGenerateResponse("text", "R", "F"), nil).Once()

	// Act
	result := suite.service.Generate(suite.ctx, "fugu", suite.store)

	// Assert
	assert.Equal(suite.T(), inbound.StateUnsafeRejected, result.State)
	assert.Contains(suite.T(), result.Message, "R")
	assert.Contains(suite.T(), result.Message, "F")
	assert.Equal(suite.T(), "R", result.Reason)
	assert.Equal(suite.T(), "F", result.Fix)
	suite.backend.AssertNotCalled(suite.T(), "Parse", mock.Anything, mock.Anything)
}

// TestGenerate_UnsafeParse tests the parse-stage safety verdict
func (suite *GenerationServiceTestSuite) TestGenerate_UnsafeParse() {
	for _, status := range []string{"not safe", "Not Safe", " NOT SAFE "} {
		suite.Run(status, func() {
			// Arrange
			suite.SetupTest()
			parsed := spicyBasilChicken()
			parsed.DangerCheck = outbound.DangerCheck{Status: status, Reason: "R2", Fix: "F2"}
			suite.backend.On("Generate", mock.Anything, "raw egg").
				Return(testutils.SafeGenerateResponse("text"), nil)
			suite.backend.On("Parse", mock.Anything, "text").Return(parsed, nil)

			// Act
			result := suite.service.Generate(suite.ctx, "raw egg", suite.store)

			// Assert
			assert.Equal(suite.T(), inbound.StateUnsafeRejected, result.State)
			assert.Contains(suite.T(), result.Message, "R2")
			assert.Contains(suite.T(), result.Message, "F2")
			testutils.NewStagingAssertions(suite.T(), suite.store).Empty()
			suite.backend.AssertNotCalled(suite.T(), "SearchVideos", mock.Anything, mock.Anything)
		})
	}
}

// TestGenerate_Incomplete tests the completeness gate
func (suite *GenerationServiceTestSuite) TestGenerate_Incomplete() {
	// Arrange
	parsed := spicyBasilChicken()
	parsed.Instructions = nil
	suite.backend.On("Generate", mock.Anything, "soup").Return(testutils.SafeGenerateResponse("text"), nil)
	suite.backend.On("Parse", mock.Anything, "text").Return(parsed, nil)

	// Act
	result := suite.service.Generate(suite.ctx, "soup", suite.store)

	// Assert
	assert.Equal(suite.T(), inbound.StateFailed, result.State)
	assert.Equal(suite.T(), "Parsed data is incomplete", result.Message)
	testutils.NewStagingAssertions(suite.T(), suite.store).Empty()
}

// TestGenerate_StepFailures tests that parse and video failures are not retried
func (suite *GenerationServiceTestSuite) TestGenerate_StepFailures() {
	suite.Run("ParseFailure_UsesBackendMessage", func() {
		suite.SetupTest()
		parseErr := apperrors.NewExternalServiceError("recipe-api", 500, errors.New("x")).
			WithMetadata(apperrors.MetaBackendMessage, "model overloaded")
		suite.backend.On("Generate", mock.Anything, "p").Return(testutils.SafeGenerateResponse("t"), nil)
		suite.backend.On("Parse", mock.Anything, "t").Return(nil, parseErr)

		result := suite.service.Generate(suite.ctx, "p", suite.store)

		assert.Equal(suite.T(), inbound.StateFailed, result.State)
		assert.Equal(suite.T(), "model overloaded", result.Message)
		suite.backend.AssertNumberOfCalls(suite.T(), "Parse", 1)
	})

	suite.Run("VideoFailure_KeepsStagedDraft", func() {
		suite.SetupTest()
		suite.backend.On("Generate", mock.Anything, "p").Return(testutils.SafeGenerateResponse("t"), nil)
		suite.backend.On("Parse", mock.Anything, "t").Return(spicyBasilChicken(), nil)
		suite.backend.On("SearchVideos", mock.Anything, mock.Anything).
			Return(nil, apperrors.NewExternalServiceError("recipe-api", 503, errors.New("x")))

		result := suite.service.Generate(suite.ctx, "p", suite.store)

		assert.Equal(suite.T(), inbound.StateFailed, result.State)
		assert.Equal(suite.T(), "YouTube search failed", result.Message)
		testutils.NewStagingAssertions(suite.T(), suite.store).Field(draft.FieldMenuName, "Spicy Basil Chicken")
		suite.backend.AssertNumberOfCalls(suite.T(), "SearchVideos", 1)
	})
}

// TestGenerate_ReplacesPreviousDraft tests that stale fields do not leak into a new draft
func (suite *GenerationServiceTestSuite) TestGenerate_ReplacesPreviousDraft() {
	// Arrange
	require.NoError(suite.T(), suite.store.Set(suite.ctx, draft.FieldCoverImage, "https://i.imgur.com/old.jpg"))
	suite.backend.On("Generate", mock.Anything, "p").Return(testutils.SafeGenerateResponse("t"), nil)
	suite.backend.On("Parse", mock.Anything, "t").Return(spicyBasilChicken(), nil)
	suite.backend.On("SearchVideos", mock.Anything, mock.Anything).Return([]draft.Video{}, nil)

	// Act
	result := suite.service.Generate(suite.ctx, "p", suite.store)

	// Assert
	require.Equal(suite.T(), inbound.StateComplete, result.State)
	_, ok := suite.store.Get(suite.ctx, draft.FieldCoverImage)
	assert.False(suite.T(), ok)
}

// TestGenerate_CallTimeout tests the per-call deadline
func (suite *GenerationServiceTestSuite) TestGenerate_CallTimeout() {
	// Arrange
	cfg := DefaultConfig()
	cfg.CallTimeout = 20 * time.Millisecond
	service := NewService(suite.backend, nil, cfg, zap.NewNop())

	suite.backend.On("Generate", mock.Anything, "slow").
		Run(func(args mock.Arguments) {
			ctx := args.Get(0).(context.Context)
			_, hasDeadline := ctx.Deadline()
			assert.True(suite.T(), hasDeadline)
			<-ctx.Done()
		}).
		Return(nil, apperrors.NewExternalServiceError("recipe-api", 0, context.DeadlineExceeded))

	// Act
	result := service.Generate(suite.ctx, "slow", suite.store)

	// Assert
	assert.Equal(suite.T(), inbound.StateFailed, result.State)
	assert.Equal(suite.T(), 3, result.Attempts)
}

func TestGenerationServiceTestSuite(t *testing.T) {
	suite.Run(t, new(GenerationServiceTestSuite))
}
