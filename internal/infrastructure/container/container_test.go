package container

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/tastyfood/web/internal/infrastructure/config"
	"github.com/tastyfood/web/internal/infrastructure/persistence/memory"
	redisstaging "github.com/tastyfood/web/internal/infrastructure/persistence/redis"
	"github.com/tastyfood/web/pkg/healthcheck"
)

func TestModule_Validates(t *testing.T) {
	assert.NoError(t, fx.ValidateApp(Module))
}

func TestGenerationConfig(t *testing.T) {
	t.Run("no backoff", func(t *testing.T) {
		cfg := config.Default()
		cfg.Generation.MaxAttempts = 5

		gen := GenerationConfig(cfg)

		assert.Equal(t, 5, gen.Retry.MaxAttempts)
		assert.Equal(t, time.Duration(0), gen.Retry.NewBackOff().NextBackOff())
		assert.Equal(t, 60*time.Second, gen.CallTimeout)
		assert.Equal(t, "/food_generated", gen.EditorPath)
		assert.Equal(t, "วิธีทำ ", gen.KeywordPrefix)
	})

	t.Run("exponential", func(t *testing.T) {
		cfg := config.Default()
		cfg.Generation.Backoff = config.BackoffExponential
		cfg.Generation.InitialDelay = 100 * time.Millisecond
		cfg.Generation.MaxDelay = time.Second

		gen := GenerationConfig(cfg)

		assert.Equal(t, 3, gen.Retry.MaxAttempts)
		delay := gen.Retry.NewBackOff().NextBackOff()
		assert.Greater(t, delay, time.Duration(0))
		assert.LessOrEqual(t, delay, time.Second)
	})
}

func TestEditorConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Editor.MaxUploadBytes = 1024

	ed := EditorConfig(cfg)

	assert.Equal(t, int64(1024), ed.MaxUploadBytes)
	assert.Equal(t, "/foodview/available", ed.PublishedPath)
	assert.Contains(t, ed.AllowedImageMIME, "image/png")
}

func TestOpenStagingBackend(t *testing.T) {
	t.Run("memory", func(t *testing.T) {
		cfg := config.Default()

		backend, closeFunc, err := OpenStagingBackend(cfg, zap.NewNop())

		require.NoError(t, err)
		assert.IsType(t, &memory.StagingRepository{}, backend)
		assert.NoError(t, closeFunc())
	})

	t.Run("redis", func(t *testing.T) {
		mr := miniredis.RunT(t)
		port, err := strconv.Atoi(mr.Port())
		require.NoError(t, err)

		cfg := config.Default()
		cfg.Staging.Driver = config.StagingRedis
		cfg.Redis.Host = mr.Host()
		cfg.Redis.Port = port

		backend, closeFunc, err := OpenStagingBackend(cfg, zap.NewNop())

		require.NoError(t, err)
		assert.IsType(t, &redisstaging.StagingRepository{}, backend)
		_, isPinger := backend.(healthcheck.Pinger)
		assert.True(t, isPinger)
		assert.NoError(t, closeFunc())
	})

	t.Run("redis unreachable", func(t *testing.T) {
		cfg := config.Default()
		cfg.Staging.Driver = config.StagingRedis
		cfg.Redis.Host = "127.0.0.1"
		cfg.Redis.Port = 1
		cfg.Redis.DialTimeout = 100 * time.Millisecond
		cfg.Redis.MaxRetries = -1

		_, _, err := OpenStagingBackend(cfg, zap.NewNop())

		assert.Error(t, err)
	})

	t.Run("unknown driver", func(t *testing.T) {
		cfg := config.Default()
		cfg.Staging.Driver = "etcd"

		_, _, err := OpenStagingBackend(cfg, zap.NewNop())

		assert.ErrorContains(t, err, `unknown staging driver "etcd"`)
	})
}

func TestNewHealthCheck(t *testing.T) {
	cfg := config.Default()
	cfg.Backend.BaseURL = "http://127.0.0.1:1"
	cfg.Backend.Timeout = 100 * time.Millisecond

	hc := NewHealthCheck(cfg, memory.NewStagingRepository(0), zap.NewNop())
	resp := hc.Check(context.Background())

	require.Len(t, resp.Checks, 1)
	assert.Equal(t, "recipe_api", resp.Checks[0].Name)
	assert.Equal(t, healthcheck.StatusUnhealthy, resp.Checks[0].Status)
}
