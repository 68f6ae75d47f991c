package generation

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tastyfood/web/internal/ports/inbound"
	"github.com/tastyfood/web/internal/ports/outbound"
	apperrors "github.com/tastyfood/web/pkg/errors"
	"github.com/tastyfood/web/test/testutils"
)

// blockingGenerator holds Generate open until released
type blockingGenerator struct {
	started chan struct{}
	release chan struct{}
	calls   int
	mu      sync.Mutex
}

func (g *blockingGenerator) Generate(ctx context.Context, prompt string, store outbound.DraftStaging) *inbound.GenerationResult {
	g.mu.Lock()
	g.calls++
	g.mu.Unlock()

	close(g.started)
	<-g.release
	return &inbound.GenerationResult{State: inbound.StateComplete}
}

func TestIntake_CanSubmit(t *testing.T) {
	intake := NewIntake(&blockingGenerator{}, testutils.NewMemoryStore("s"))

	tests := []struct {
		prompt string
		want   bool
	}{
		{"Spicy Basil Chicken", true},
		{"  ต้มยำกุ้ง  ", true},
		{"x", true},
		{"", false},
		{"   ", false},
		{"\t\n", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, intake.CanSubmit(tt.prompt), "prompt %q", tt.prompt)
	}
}

func TestIntake_SubmitEmpty(t *testing.T) {
	intake := NewIntake(&blockingGenerator{}, testutils.NewMemoryStore("s"))

	_, err := intake.Submit(context.Background(), "  ")

	assert.True(t, apperrors.Is(err, apperrors.CodeValidationFailed))
}

func TestIntake_AtMostOneInFlight(t *testing.T) {
	gen := &blockingGenerator{started: make(chan struct{}), release: make(chan struct{})}
	intake := NewIntake(gen, testutils.NewMemoryStore("s"))

	done := make(chan *inbound.GenerationResult)
	go func() {
		result, err := intake.Submit(context.Background(), "first")
		assert.NoError(t, err)
		done <- result
	}()

	select {
	case <-gen.started:
	case <-time.After(time.Second):
		t.Fatal("generation did not start")
	}

	assert.True(t, intake.Busy())
	assert.False(t, intake.CanSubmit("second"))
	_, err := intake.Submit(context.Background(), "second")
	assert.True(t, apperrors.Is(err, apperrors.CodeGenerationInFlight))

	close(gen.release)
	result := <-done
	require.NotNil(t, result)
	assert.Equal(t, inbound.StateComplete, result.State)
	assert.False(t, intake.Busy())
	assert.Equal(t, 1, gen.calls)
}
