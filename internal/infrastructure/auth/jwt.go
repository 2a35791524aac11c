// Package auth verifies bearer tokens and extracts the caller's tenant.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/santi-naranjo/catalog-ai/internal/infrastructure/config"
)

// DefaultTenantClaim is the claim holding the tenant ID
const DefaultTenantClaim = "tenant_id"

// Common errors
var (
	ErrInvalidToken     = errors.New("invalid token")
	ErrExpiredToken     = errors.New("token has expired")
	ErrTokenNotYetValid = errors.New("token is not yet valid")
	ErrMissingTenantID  = errors.New("missing tenant_id in claims")
	ErrInvalidTenantID  = errors.New("tenant_id claim is not a UUID")
)

// Identity is what a verified token says about the caller
type Identity struct {
	TenantID uuid.UUID
	Subject  string
}

// TokenVerifier validates HS256 bearer tokens
type TokenVerifier struct {
	secret      []byte
	issuer      string
	tenantClaim string
	now         func() time.Time
}

// NewTokenVerifier creates a verifier from the auth configuration
func NewTokenVerifier(cfg config.AuthConfig) *TokenVerifier {
	claim := cfg.TenantClaim
	if claim == "" {
		claim = DefaultTenantClaim
	}
	return &TokenVerifier{
		secret:      []byte(cfg.JWTSecret),
		issuer:      cfg.Issuer,
		tenantClaim: claim,
		now:         time.Now,
	}
}

// Verify parses tokenString and returns the caller's identity
func (v *TokenVerifier) Verify(tokenString string) (*Identity, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(v.now),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrExpiredToken
		case errors.Is(err, jwt.ErrTokenNotValidYet):
			return nil, ErrTokenNotYetValid
		default:
			return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
		}
	}

	raw, _ := claims[v.tenantClaim].(string)
	if raw == "" {
		return nil, ErrMissingTenantID
	}
	tenantID, err := uuid.Parse(raw)
	if err != nil {
		return nil, ErrInvalidTenantID
	}
	subject, _ := claims.GetSubject()
	return &Identity{TenantID: tenantID, Subject: subject}, nil
}

// Issue signs a token for tenantID valid for ttl. It serves local tooling
// and tests; production tokens come from the identity provider.
func (v *TokenVerifier) Issue(tenantID uuid.UUID, subject string, ttl time.Duration) (string, error) {
	now := v.now()
	claims := jwt.MapClaims{
		v.tenantClaim: tenantID.String(),
		"sub":         subject,
		"iat":         jwt.NewNumericDate(now),
		"nbf":         jwt.NewNumericDate(now),
		"exp":         jwt.NewNumericDate(now.Add(ttl)),
	}
	if v.issuer != "" {
		claims["iss"] = v.issuer
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}
