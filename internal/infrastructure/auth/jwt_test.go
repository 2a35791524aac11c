package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/santi-naranjo/catalog-ai/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-at-least-32-chars"

func newTestVerifier() *TokenVerifier {
	return NewTokenVerifier(config.AuthConfig{JWTSecret: testSecret, Issuer: "catalog-ai"})
}

func TestTokenVerifier_RoundTrip(t *testing.T) {
	v := newTestVerifier()
	tenantID := uuid.New()

	token, err := v.Issue(tenantID, "user-1", time.Minute)
	require.NoError(t, err)

	id, err := v.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, tenantID, id.TenantID)
	assert.Equal(t, "user-1", id.Subject)
}

func TestTokenVerifier_CustomClaim(t *testing.T) {
	v := NewTokenVerifier(config.AuthConfig{JWTSecret: testSecret, TenantClaim: "org"})
	tenantID := uuid.New()

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"org": tenantID.String(),
		"exp": jwt.NewNumericDate(time.Now().Add(time.Minute)),
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	id, err := v.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, tenantID, id.TenantID)
}

func TestTokenVerifier_Rejects(t *testing.T) {
	v := newTestVerifier()
	sign := func(t *testing.T, method jwt.SigningMethod, key any, claims jwt.MapClaims) string {
		t.Helper()
		s, err := jwt.NewWithClaims(method, claims).SignedString(key)
		require.NoError(t, err)
		return s
	}
	future := jwt.NewNumericDate(time.Now().Add(time.Hour))

	tests := []struct {
		name  string
		token string
		want  error
	}{
		{
			name:  "expired",
			token: sign(t, jwt.SigningMethodHS256, []byte(testSecret), jwt.MapClaims{"tenant_id": uuid.NewString(), "iss": "catalog-ai", "exp": jwt.NewNumericDate(time.Now().Add(-time.Minute))}),
			want:  ErrExpiredToken,
		},
		{
			name:  "not yet valid",
			token: sign(t, jwt.SigningMethodHS256, []byte(testSecret), jwt.MapClaims{"tenant_id": uuid.NewString(), "iss": "catalog-ai", "nbf": future}),
			want:  ErrTokenNotYetValid,
		},
		{
			name:  "wrong secret",
			token: sign(t, jwt.SigningMethodHS256, []byte("another-secret-key-of-32-characters"), jwt.MapClaims{"tenant_id": uuid.NewString(), "iss": "catalog-ai"}),
			want:  ErrInvalidToken,
		},
		{
			name:  "wrong issuer",
			token: sign(t, jwt.SigningMethodHS256, []byte(testSecret), jwt.MapClaims{"tenant_id": uuid.NewString(), "iss": "someone-else"}),
			want:  ErrInvalidToken,
		},
		{
			name:  "other algorithm",
			token: sign(t, jwt.SigningMethodHS512, []byte(testSecret), jwt.MapClaims{"tenant_id": uuid.NewString(), "iss": "catalog-ai"}),
			want:  ErrInvalidToken,
		},
		{
			name:  "missing tenant",
			token: sign(t, jwt.SigningMethodHS256, []byte(testSecret), jwt.MapClaims{"iss": "catalog-ai", "sub": "u"}),
			want:  ErrMissingTenantID,
		},
		{
			name:  "tenant is not a uuid",
			token: sign(t, jwt.SigningMethodHS256, []byte(testSecret), jwt.MapClaims{"tenant_id": "acme", "iss": "catalog-ai"}),
			want:  ErrInvalidTenantID,
		},
		{
			name:  "garbage",
			token: "not.a.token",
			want:  ErrInvalidToken,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.Verify(tt.token)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}
