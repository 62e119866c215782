package jwtutil_test

import (
	"testing"

	"purchase-order-service/pkg/config"
	"purchase-order-service/pkg/jwtutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndValidateToken(t *testing.T) {
	jwtutil.Initialize(&config.JWTConfig{
		SigningKey:      "test-signing-key",
		ExpirationHours: 1,
	})

	token, err := jwtutil.GenerateToken("buyer@example.com", 42, "purchasing")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := jwtutil.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "buyer@example.com", claims.Email)
	assert.Equal(t, uint(42), claims.UserID)
	assert.Equal(t, "purchasing", claims.Role)
}

func TestValidateTokenRejectsWrongKey(t *testing.T) {
	jwtutil.Initialize(&config.JWTConfig{
		SigningKey:      "first-key",
		ExpirationHours: 1,
	})
	token, err := jwtutil.GenerateToken("buyer@example.com", 42, "")
	require.NoError(t, err)

	jwtutil.Initialize(&config.JWTConfig{
		SigningKey:      "second-key",
		ExpirationHours: 1,
	})
	_, err = jwtutil.ValidateToken(token)
	assert.Error(t, err)
}

func TestValidateTokenRejectsGarbage(t *testing.T) {
	jwtutil.Initialize(&config.JWTConfig{
		SigningKey:      "test-signing-key",
		ExpirationHours: 1,
	})

	_, err := jwtutil.ValidateToken("not-a-token")
	assert.Error(t, err)
}
