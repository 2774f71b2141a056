// Package auth provides session tokens and identity resolution for
// scanmatch-engine. Tokens are HS256 JWTs minted by this service at sign-in.
package auth

import (
	"context"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/scanmatch-inc/scanmatch-engine/pkg/models"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const (
	// ClaimsKey is the context key for storing JWT claims.
	ClaimsKey contextKey = "claims"
	// IdentityKey is the context key for storing the resolved request identity.
	IdentityKey contextKey = "identity"
)

// Claims represents the session token claims.
// Subject carries the account UUID.
type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email,omitempty"`
}

// GetClaims retrieves JWT claims from the request context.
// Returns nil and false if claims are not present.
func GetClaims(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(ClaimsKey).(*Claims)
	return claims, ok
}

// GetUserIDFromContext extracts the account UUID from claims in the context.
// Returns uuid.Nil if not authenticated.
func GetUserIDFromContext(ctx context.Context) uuid.UUID {
	claims, ok := GetClaims(ctx)
	if !ok || claims == nil {
		return uuid.Nil
	}
	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil
	}
	return id
}

// RequireUserIDFromContext extracts the account UUID from the context and
// returns an error if not authenticated.
func RequireUserIDFromContext(ctx context.Context) (uuid.UUID, error) {
	id := GetUserIDFromContext(ctx)
	if id == uuid.Nil {
		return uuid.Nil, jwt.ErrTokenRequiredClaimMissing
	}
	return id, nil
}

// GetIdentity retrieves the resolved request identity from the context.
// Returns false when no identity middleware ran.
func GetIdentity(ctx context.Context) (models.Identity, bool) {
	identity, ok := ctx.Value(IdentityKey).(models.Identity)
	return identity, ok
}
