package session

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

	"github.com/tastyfood/web/internal/ports/outbound"
	apperrors "github.com/tastyfood/web/pkg/errors"
	"github.com/tastyfood/web/test/testutils"
)

// ContextTestSuite covers caching of the signed-in user
type ContextTestSuite struct {
	suite.Suite
	backend *testutils.MockRecipeBackend
	session *Context
	clock   time.Time
	ctx     context.Context
}

func (suite *ContextTestSuite) SetupTest() {
	suite.backend = new(testutils.MockRecipeBackend)
	suite.session = NewContext(suite.backend, time.Hour, zap.NewNop())
	suite.clock = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	suite.session.now = func() time.Time { return suite.clock }
	suite.ctx = context.Background()
}

// TestCurrent_EmptyByDefault tests the initial state
func (suite *ContextTestSuite) TestCurrent_EmptyByDefault() {
	user, ok := suite.session.Current(suite.ctx)
	assert.False(suite.T(), ok)
	assert.Nil(suite.T(), user)
}

// TestRefresh_CachesUser tests that a successful check is remembered
func (suite *ContextTestSuite) TestRefresh_CachesUser() {
	// Arrange
	suite.backend.On("CheckSession", mock.Anything).
		Return(&outbound.SessionUser{ID: "u1", Name: "Somchai"}, nil).Once()

	// Act
	user, err := suite.session.Refresh(suite.ctx)

	// Assert
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "u1", user.ID)

	cached, ok := suite.session.Current(suite.ctx)
	require.True(suite.T(), ok)
	assert.Equal(suite.T(), "Somchai", cached.Name)
	suite.backend.AssertNumberOfCalls(suite.T(), "CheckSession", 1)
}

// TestCurrent_Expires tests the max age
func (suite *ContextTestSuite) TestCurrent_Expires() {
	suite.backend.On("CheckSession", mock.Anything).Return(&outbound.SessionUser{ID: "u1"}, nil).Once()
	_, err := suite.session.Refresh(suite.ctx)
	require.NoError(suite.T(), err)

	suite.clock = suite.clock.Add(2 * time.Hour)

	_, ok := suite.session.Current(suite.ctx)
	assert.False(suite.T(), ok)
}

// TestRefresh_UnauthorizedClears tests that a rejected session drops the user
func (suite *ContextTestSuite) TestRefresh_UnauthorizedClears() {
	suite.backend.On("CheckSession", mock.Anything).Return(&outbound.SessionUser{ID: "u1"}, nil).Once()
	suite.backend.On("CheckSession", mock.Anything).Return(nil, apperrors.NewUnauthorizedError("Invalid session")).Once()

	_, err := suite.session.Refresh(suite.ctx)
	require.NoError(suite.T(), err)

	_, err = suite.session.Refresh(suite.ctx)
	assert.True(suite.T(), apperrors.Is(err, apperrors.CodeUnauthorized))

	_, ok := suite.session.Current(suite.ctx)
	assert.False(suite.T(), ok)
}

// TestRefresh_OutageKeepsUser tests that a transient failure keeps the cache
func (suite *ContextTestSuite) TestRefresh_OutageKeepsUser() {
	suite.backend.On("CheckSession", mock.Anything).Return(&outbound.SessionUser{ID: "u1"}, nil).Once()
	suite.backend.On("CheckSession", mock.Anything).
		Return(nil, apperrors.NewExternalServiceError("recipe-api", 502, errors.New("bad gateway"))).Once()

	_, err := suite.session.Refresh(suite.ctx)
	require.NoError(suite.T(), err)

	_, err = suite.session.Refresh(suite.ctx)
	assert.Error(suite.T(), err)

	_, ok := suite.session.Current(suite.ctx)
	assert.True(suite.T(), ok)
}

// TestInvalidate tests explicit sign-out
func (suite *ContextTestSuite) TestInvalidate() {
	suite.backend.On("CheckSession", mock.Anything).Return(&outbound.SessionUser{ID: "u1"}, nil).Once()
	_, err := suite.session.Refresh(suite.ctx)
	require.NoError(suite.T(), err)

	suite.session.Invalidate()

	_, ok := suite.session.Current(suite.ctx)
	assert.False(suite.T(), ok)
}

func TestContextTestSuite(t *testing.T) {
	suite.Run(t, new(ContextTestSuite))
}
