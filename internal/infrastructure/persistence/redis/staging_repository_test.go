package redis

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"

	"github.com/tastyfood/web/internal/domain/draft"
	"github.com/tastyfood/web/internal/infrastructure/cache"
	"github.com/tastyfood/web/internal/infrastructure/config"
	"github.com/tastyfood/web/internal/ports/outbound"
)

// StagingRepositoryTestSuite runs the Redis backend against miniredis
type StagingRepositoryTestSuite struct {
	suite.Suite
	mr     *miniredis.Miniredis
	client *cache.RedisClient
	repo   *StagingRepository
	ctx    context.Context
}

func (suite *StagingRepositoryTestSuite) SetupTest() {
	suite.mr = miniredis.RunT(suite.T())

	port, err := strconv.Atoi(suite.mr.Port())
	require.NoError(suite.T(), err)

	suite.client, err = cache.NewRedisClient(&config.RedisConfig{
		Host:         suite.mr.Host(),
		Port:         port,
		DialTimeout:  time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
		PoolSize:     2,
	}, zap.NewNop())
	require.NoError(suite.T(), err)

	suite.repo = NewStagingRepository(suite.client, "draft", zap.NewNop())
	suite.ctx = context.Background()
}

func (suite *StagingRepositoryTestSuite) TearDownTest() {
	_ = suite.client.Close()
}

func (suite *StagingRepositoryTestSuite) TestSetGet() {
	// Act
	require.NoError(suite.T(), suite.repo.Set(suite.ctx, "s1", draft.FieldIngredients, `["a","b"]`, time.Hour))
	value, err := suite.repo.Get(suite.ctx, "s1", draft.FieldIngredients)

	// Assert
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), `["a","b"]`, value)
	assert.Equal(suite.T(), `["a","b"]`, suite.mr.HGet("draft:s1", "generatedIngredients"))
	assert.Equal(suite.T(), time.Hour, suite.mr.TTL("draft:s1"))
}

func (suite *StagingRepositoryTestSuite) TestMissingField() {
	_, err := suite.repo.Get(suite.ctx, "nobody", draft.FieldMenuName)
	assert.ErrorIs(suite.T(), err, outbound.ErrFieldNotFound)
}

func (suite *StagingRepositoryTestSuite) TestExpiry() {
	require.NoError(suite.T(), suite.repo.Set(suite.ctx, "s1", draft.FieldMenuName, "Som Tam", time.Minute))

	suite.mr.FastForward(2 * time.Minute)

	_, err := suite.repo.Get(suite.ctx, "s1", draft.FieldMenuName)
	assert.ErrorIs(suite.T(), err, outbound.ErrFieldNotFound)
}

func (suite *StagingRepositoryTestSuite) TestClear() {
	require.NoError(suite.T(), suite.repo.Set(suite.ctx, "s1", draft.FieldMenuName, "Som Tam", time.Minute))
	require.NoError(suite.T(), suite.repo.Set(suite.ctx, "s2", draft.FieldMenuName, "Larb", time.Minute))

	require.NoError(suite.T(), suite.repo.Clear(suite.ctx, "s1"))

	assert.False(suite.T(), suite.mr.Exists("draft:s1"))
	assert.True(suite.T(), suite.mr.Exists("draft:s2"))
}

func (suite *StagingRepositoryTestSuite) TestOutage_ReturnsError() {
	require.NoError(suite.T(), suite.repo.Ping(suite.ctx))
	suite.mr.Close()

	assert.Error(suite.T(), suite.repo.Ping(suite.ctx))

	err := suite.repo.Set(suite.ctx, "s1", draft.FieldMenuName, "x", time.Minute)
	assert.Error(suite.T(), err)

	_, err = suite.repo.Get(suite.ctx, "s1", draft.FieldMenuName)
	assert.Error(suite.T(), err)
	assert.NotErrorIs(suite.T(), err, outbound.ErrFieldNotFound)
}

func TestStagingRepositoryTestSuite(t *testing.T) {
	suite.Run(t, new(StagingRepositoryTestSuite))
}
