package config_test

import (
	"testing"

	"ars-backend/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccessTokenRoundTrip(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	token, err := config.GenerateAccessToken(42, "alice", "manager")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := config.ValidateToken(token, config.TokenTypeAccess)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.UserID)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, "manager", claims.Role)
	assert.Equal(t, config.TokenTypeAccess, claims.TokenType)
}

func TestRefreshTokenRejectedAsAccess(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	token, err := config.GenerateRefreshToken(42, "alice", "manager")
	require.NoError(t, err)

	_, err = config.ValidateToken(token, config.TokenTypeAccess)
	assert.ErrorIs(t, err, config.ErrWrongTokenType)

	claims, err := config.ValidateToken(token, config.TokenTypeRefresh)
	require.NoError(t, err)
	assert.Equal(t, config.TokenTypeRefresh, claims.TokenType)
}

func TestValidateTokenWrongSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	token, err := config.GenerateAccessToken(1, "bob", "viewer")
	require.NoError(t, err)

	t.Setenv("JWT_SECRET", "other-secret")
	_, err = config.ValidateToken(token, config.TokenTypeAccess)
	assert.Error(t, err)
}

func TestValidateTokenGarbage(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	_, err := config.ValidateToken("not.a.token", config.TokenTypeAccess)
	assert.Error(t, err)
}
