// Package redis provides the Redis draft staging backend
package redis

import (
	"context"
	"errors"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/tastyfood/web/internal/domain/draft"
	"github.com/tastyfood/web/internal/infrastructure/cache"
	"github.com/tastyfood/web/internal/ports/outbound"
)

// StagingRepository keeps each session's draft in one Redis hash,
// <prefix>:<session>, whose fields are the staging field names. Every write
// refreshes the hash's TTL.
type StagingRepository struct {
	client *cache.RedisClient
	prefix string
	logger *zap.Logger
}

var _ outbound.StagingBackend = (*StagingRepository)(nil)

// NewStagingRepository creates a Redis staging repository
func NewStagingRepository(client *cache.RedisClient, prefix string, logger *zap.Logger) *StagingRepository {
	if prefix == "" {
		prefix = "draft"
	}
	return &StagingRepository{
		client: client,
		prefix: prefix,
		logger: logger.Named("staging.redis"),
	}
}

// Get retrieves a staged field
func (r *StagingRepository) Get(ctx context.Context, sessionID string, field draft.Field) (string, error) {
	value, err := r.client.HGet(ctx, r.key(sessionID), string(field))
	if errors.Is(err, goredis.Nil) {
		return "", outbound.ErrFieldNotFound
	}
	if err != nil {
		r.logger.Debug("Staging get failed", zap.String("field", string(field)), zap.Error(err))
		return "", err
	}
	return value, nil
}

// Set stores a field with TTL
func (r *StagingRepository) Set(ctx context.Context, sessionID string, field draft.Field, value string, ttl time.Duration) error {
	if err := r.client.HSetWithTTL(ctx, r.key(sessionID), string(field), value, ttl); err != nil {
		r.logger.Error("Staging set failed", zap.String("field", string(field)), zap.Error(err))
		return err
	}
	return nil
}

// Clear removes the session's hash
func (r *StagingRepository) Clear(ctx context.Context, sessionID string) error {
	if err := r.client.Delete(ctx, r.key(sessionID)); err != nil {
		r.logger.Error("Staging clear failed", zap.Error(err))
		return err
	}
	return nil
}

func (r *StagingRepository) key(sessionID string) string {
	return r.prefix + ":" + sessionID
}

// Ping checks the connection, for health checks
func (r *StagingRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx)
}
