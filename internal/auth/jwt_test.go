package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestService_GenerateAndValidate(t *testing.T) {
	svc := NewService("test-secret", "", time.Hour)

	token, err := svc.GenerateToken("ops")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "ops", claims.Subject)
	assert.Equal(t, DefaultIssuer, claims.Issuer)
}

func TestService_GenerateToken_EmptySubject(t *testing.T) {
	svc := NewService("test-secret", "", time.Hour)

	_, err := svc.GenerateToken("")
	assert.Error(t, err)
}

func TestService_ValidateToken_Errors(t *testing.T) {
	svc := NewService("test-secret", "", time.Hour)
	other, err := NewService("other-secret", "", time.Hour).GenerateToken("ops")
	require.NoError(t, err)
	foreignIssuer, err := NewService("test-secret", "someone-else", time.Hour).GenerateToken("ops")
	require.NoError(t, err)
	expired, err := NewService("test-secret", "", -time.Hour).GenerateToken("ops")
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
		want  error
	}{
		{"garbage", "invalid-token", ErrInvalidToken},
		{"wrong secret", other, ErrInvalidToken},
		{"wrong issuer", foreignIssuer, ErrInvalidToken},
		{"expired", expired, ErrExpiredToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.ValidateToken(tt.token)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}
