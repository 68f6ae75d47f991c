// Package testutils provides mock implementations for testing
package testutils

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/tastyfood/web/internal/domain/draft"
	"github.com/tastyfood/web/internal/ports/outbound"
)

// MockRecipeBackend provides a mock implementation of outbound.RecipeBackend
type MockRecipeBackend struct {
	mock.Mock
}

var _ outbound.RecipeBackend = (*MockRecipeBackend)(nil)

// Generate mocks the text-generation endpoint
func (m *MockRecipeBackend) Generate(ctx context.Context, prompt string) (*outbound.GenerateResponse, error) {
	args := m.Called(ctx, prompt)
	if resp, ok := args.Get(0).(*outbound.GenerateResponse); ok {
		return resp, args.Error(1)
	}
	return nil, args.Error(1)
}

// Parse mocks the parse endpoint
func (m *MockRecipeBackend) Parse(ctx context.Context, rawText string) (*outbound.ParseResponse, error) {
	args := m.Called(ctx, rawText)
	if resp, ok := args.Get(0).(*outbound.ParseResponse); ok {
		return resp, args.Error(1)
	}
	return nil, args.Error(1)
}

// CheckRecipe mocks the pre-submission safety check
func (m *MockRecipeBackend) CheckRecipe(ctx context.Context, submission draft.Submission) (*outbound.CheckResponse, error) {
	args := m.Called(ctx, submission)
	if resp, ok := args.Get(0).(*outbound.CheckResponse); ok {
		return resp, args.Error(1)
	}
	return nil, args.Error(1)
}

// SearchVideos mocks the video search
func (m *MockRecipeBackend) SearchVideos(ctx context.Context, keyword string) ([]draft.Video, error) {
	args := m.Called(ctx, keyword)
	if videos, ok := args.Get(0).([]draft.Video); ok {
		return videos, args.Error(1)
	}
	return nil, args.Error(1)
}

// UploadImage mocks the image upload. The payload is drained so callers
// see the same behavior as a real upload.
func (m *MockRecipeBackend) UploadImage(ctx context.Context, filename string, image io.Reader) (string, error) {
	data, _ := io.ReadAll(image)
	args := m.Called(ctx, filename, data)
	return args.String(0), args.Error(1)
}

// SubmitRecipe mocks recipe creation
func (m *MockRecipeBackend) SubmitRecipe(ctx context.Context, submission draft.Submission) error {
	args := m.Called(ctx, submission)
	return args.Error(0)
}

// CheckSession mocks the session check
func (m *MockRecipeBackend) CheckSession(ctx context.Context) (*outbound.SessionUser, error) {
	args := m.Called(ctx)
	if user, ok := args.Get(0).(*outbound.SessionUser); ok {
		return user, args.Error(1)
	}
	return nil, args.Error(1)
}

// MockMetrics records workflow measurements for assertions
type MockMetrics struct {
	mu          sync.Mutex
	Generations []string
	Operations  []string
	Submissions []string
}

var _ outbound.MetricsRecorder = (*MockMetrics)(nil)

// RecordGeneration records a generation outcome
func (m *MockMetrics) RecordGeneration(state string, attempts int, duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Generations = append(m.Generations, state)
}

// RecordEditorOperation records an editor operation
func (m *MockMetrics) RecordEditorOperation(operation, result string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Operations = append(m.Operations, operation+":"+result)
}

// RecordSubmission records a submission result
func (m *MockMetrics) RecordSubmission(result string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Submissions = append(m.Submissions, result)
}
