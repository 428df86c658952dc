package jwt

import (
	"testing"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestService_RoundTrip(t *testing.T) {
	s := NewService("test-secret", 15*time.Minute)

	token, expiresIn, err := s.GenerateAccessToken("user-1", "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(900), expiresIn)

	claims, err := s.ValidateAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, "user-1", claims.Subject)
}

func TestService_Rejects(t *testing.T) {
	s := NewService("test-secret", time.Minute)
	valid, _, err := s.GenerateAccessToken("user-1", "alice")
	require.NoError(t, err)

	expired := NewService("test-secret", time.Minute)
	expired.now = func() time.Time { return time.Now().Add(-time.Hour) }
	old, _, err := expired.GenerateAccessToken("user-1", "alice")
	require.NoError(t, err)

	none := gojwt.NewWithClaims(gojwt.SigningMethodNone, Claims{UserID: "user-1"})
	unsigned, err := none.SignedString(gojwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
		svc   *Service
	}{
		{name: "garbage", token: "not-a-token", svc: s},
		{name: "other secret", token: valid, svc: NewService("other-secret", time.Minute)},
		{name: "expired", token: old, svc: s},
		{name: "alg none", token: unsigned, svc: s},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.svc.ValidateAccessToken(tt.token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}
