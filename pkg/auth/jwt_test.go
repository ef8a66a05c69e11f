package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/yourusername/classroom-api/internal/pkg/errors"
)

func TestJWTService_GenerateAndParse(t *testing.T) {
	svc, err := NewJWTService("test-secret", 1)
	require.NoError(t, err)

	token, err := svc.GenerateToken("u1", "alice@test.com")
	require.NoError(t, err)

	claims, err := svc.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, "alice@test.com", claims.Email)
}

func TestJWTService_EmptySecret(t *testing.T) {
	_, err := NewJWTService("", 1)
	assert.Error(t, err)
}

func TestJWTService_ParseRejectsBadTokens(t *testing.T) {
	svc, err := NewJWTService("test-secret", 1)
	require.NoError(t, err)

	other, err := NewJWTService("another-secret", 1)
	require.NoError(t, err)

	foreign, err := other.GenerateToken("u1", "alice@test.com")
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "not-a-token"},
		{"empty", ""},
		{"wrong secret", foreign},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.ParseToken(tt.token)
			assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
		})
	}
}
