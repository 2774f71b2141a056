package auth

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/scanmatch-inc/scanmatch-engine/pkg/models"
)

// SessionCookieName is the cookie the browser frontend stores the session
// token in. Bearer headers take precedence when both are present.
const SessionCookieName = "scanmatch_session"

// Middleware provides HTTP authentication middleware.
// It is thin and delegates token verification to the TokenIssuer.
type Middleware struct {
	issuer *TokenIssuer
	logger *zap.Logger
}

// NewMiddleware creates a new auth middleware.
func NewMiddleware(issuer *TokenIssuer, logger *zap.Logger) *Middleware {
	return &Middleware{issuer: issuer, logger: logger}
}

// RequireAuth validates the session token and rejects unauthenticated
// requests. Sets claims and a user identity in the context.
func (m *Middleware) RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, err := m.claimsFromRequest(r)
		if err != nil {
			m.unauthorized(w, "Authentication required")
			return
		}

		userID := userIDFromClaims(claims)
		if userID == (models.Identity{}) {
			m.unauthorized(w, "Authentication required")
			return
		}

		ctx := context.WithValue(r.Context(), ClaimsKey, claims)
		ctx = context.WithValue(ctx, IdentityKey, userID)
		next(w, r.WithContext(ctx))
	}
}

// ResolveIdentity validates the session token when present, otherwise
// resolves the caller to an anonymous identity keyed by network address.
// Use for endpoints that serve both signed-in and anonymous users.
func (m *Middleware) ResolveIdentity(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if claims, err := m.claimsFromRequest(r); err == nil {
			if identity := userIDFromClaims(claims); identity != (models.Identity{}) {
				ctx = context.WithValue(ctx, ClaimsKey, claims)
				ctx = context.WithValue(ctx, IdentityKey, identity)
				next(w, r.WithContext(ctx))
				return
			}
		}

		identity := models.AnonymousIdentity(clientAddr(r))
		ctx = context.WithValue(ctx, IdentityKey, identity)
		next(w, r.WithContext(ctx))
	}
}

// claimsFromRequest extracts and verifies the session token from the
// Authorization header or the session cookie.
func (m *Middleware) claimsFromRequest(r *http.Request) (*Claims, error) {
	if header := r.Header.Get("Authorization"); strings.HasPrefix(header, "Bearer ") {
		return m.issuer.Parse(strings.TrimPrefix(header, "Bearer "))
	}

	cookie, err := r.Cookie(SessionCookieName)
	if err != nil {
		return nil, err
	}
	return m.issuer.Parse(cookie.Value)
}

// userIDFromClaims builds a user identity from verified claims.
// Returns the zero Identity when the subject is not a valid UUID.
func userIDFromClaims(claims *Claims) models.Identity {
	id := models.Identity{}
	if claims == nil {
		return id
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return id
	}
	return models.UserIdentity(userID)
}

// clientAddr extracts the caller's network address, preferring the first
// X-Forwarded-For hop when the service runs behind a proxy. The address is
// spoofable, which is why anonymous identities get a lower trust tier.
func clientAddr(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		if first, _, ok := strings.Cut(forwarded, ","); ok {
			return strings.TrimSpace(first)
		}
		return strings.TrimSpace(forwarded)
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// unauthorized returns a 401 response with JSON error body.
func (m *Middleware) unauthorized(w http.ResponseWriter, message string) {
	m.logger.Debug("rejected unauthenticated request")
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":   "unauthorized",
		"message": message,
	})
}
