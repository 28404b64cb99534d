package auth

import (
	"context"
	"fmt"
	"time"

	"metrics-broker/src/helpers"
	"metrics-broker/src/interfaces"

	"github.com/golang-jwt/jwt/v5"
)

// Claims carried by broker tokens
type Claims struct {
	TenantID string `json:"tenant_id"`
	UserID   string `json:"user_id"`
	jwt.RegisteredClaims
}

// -----------------------------------------------------------------------------
// JWTValidator verifies HS256 tokens signed with a shared secret.
// -----------------------------------------------------------------------------

type JWTValidator struct {
	secret []byte
	parser *jwt.Parser
}

func NewJWTValidator(secret string, leeway time.Duration) *JWTValidator {
	return &JWTValidator{
		secret: []byte(secret),
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithLeeway(leeway),
		),
	}
}

// -----------------------------------------------------------------------------

// Validate checks the signature and expiry, then matches the claimed
// tenant and user against what the client presented.
func (v *JWTValidator) Validate(ctx context.Context, token, tenantID, userID string) (interfaces.Identity, error) {
	if err := ctx.Err(); err != nil {
		return interfaces.Identity{}, err
	}

	claims := &Claims{}
	_, err := v.parser.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return v.secret, nil
	})
	if err != nil {
		return interfaces.Identity{}, helpers.NewAuthenticationError("invalid token", err)
	}

	if tenantID != "" && claims.TenantID != "" && claims.TenantID != tenantID {
		return interfaces.Identity{}, helpers.NewAuthenticationError(
			fmt.Sprintf("token issued for tenant %q", claims.TenantID), nil)
	}
	if userID != "" && claims.UserID != "" && claims.UserID != userID {
		return interfaces.Identity{}, helpers.NewAuthenticationError(
			fmt.Sprintf("token issued for user %q", claims.UserID), nil)
	}

	return interfaces.Identity{
		TenantID: firstNonEmpty(claims.TenantID, tenantID),
		UserID:   firstNonEmpty(claims.UserID, userID, claims.Subject),
	}, nil
}

// -----------------------------------------------------------------------------

// IssueToken signs a token for tenant/user, used by tooling and tests
func IssueToken(secret, tenantID, userID string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		TenantID: tenantID,
		UserID:   userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}
