package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/scanmatch-inc/scanmatch-engine/pkg/models"
)

func testMiddleware(t *testing.T) (*Middleware, *TokenIssuer) {
	t.Helper()
	issuer := NewTokenIssuer([]byte("test-secret"), time.Hour)
	return NewMiddleware(issuer, zap.NewNop()), issuer
}

func TestRequireAuth_BearerToken(t *testing.T) {
	m, issuer := testMiddleware(t)
	userID := uuid.New()
	token, err := issuer.Generate(userID, "user@example.com")
	require.NoError(t, err)

	var gotUserID uuid.UUID
	handler := m.RequireAuth(func(w http.ResponseWriter, r *http.Request) {
		gotUserID = GetUserIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/scans", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	handler(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, userID, gotUserID)
}

func TestRequireAuth_SessionCookie(t *testing.T) {
	m, issuer := testMiddleware(t)
	token, err := issuer.Generate(uuid.New(), "user@example.com")
	require.NoError(t, err)

	handler := m.RequireAuth(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/scans", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: token})
	rec := httptest.NewRecorder()

	handler(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireAuth_MissingToken(t *testing.T) {
	m, _ := testMiddleware(t)

	handler := m.RequireAuth(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be called")
	})

	req := httptest.NewRequest(http.MethodGet, "/api/scans", nil)
	rec := httptest.NewRecorder()

	handler(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireAuth_InvalidToken(t *testing.T) {
	m, _ := testMiddleware(t)

	handler := m.RequireAuth(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be called")
	})

	req := httptest.NewRequest(http.MethodGet, "/api/scans", nil)
	req.Header.Set("Authorization", "Bearer bogus")
	rec := httptest.NewRecorder()

	handler(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestResolveIdentity_Authenticated(t *testing.T) {
	m, issuer := testMiddleware(t)
	userID := uuid.New()
	token, err := issuer.Generate(userID, "user@example.com")
	require.NoError(t, err)

	var identity models.Identity
	handler := m.ResolveIdentity(func(w http.ResponseWriter, r *http.Request) {
		identity, _ = GetIdentity(r.Context())
	})

	req := httptest.NewRequest(http.MethodPost, "/api/scans", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	handler(httptest.NewRecorder(), req)

	assert.False(t, identity.IsAnonymous())
	assert.Equal(t, userID, identity.UserID())
}

func TestResolveIdentity_AnonymousFromRemoteAddr(t *testing.T) {
	m, _ := testMiddleware(t)

	var identity models.Identity
	handler := m.ResolveIdentity(func(w http.ResponseWriter, r *http.Request) {
		identity, _ = GetIdentity(r.Context())
	})

	req := httptest.NewRequest(http.MethodPost, "/api/scans", nil)
	req.RemoteAddr = "198.51.100.7:52188"
	handler(httptest.NewRecorder(), req)

	assert.True(t, identity.IsAnonymous())
	assert.Equal(t, "anonymous:198.51.100.7", identity.Key())
}

func TestResolveIdentity_AnonymousFromForwardedFor(t *testing.T) {
	m, _ := testMiddleware(t)

	var identity models.Identity
	handler := m.ResolveIdentity(func(w http.ResponseWriter, r *http.Request) {
		identity, _ = GetIdentity(r.Context())
	})

	req := httptest.NewRequest(http.MethodPost, "/api/scans", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	handler(httptest.NewRecorder(), req)

	assert.True(t, identity.IsAnonymous())
	assert.Equal(t, "anonymous:203.0.113.9", identity.Key())
}

func TestResolveIdentity_InvalidTokenFallsBackToAnonymous(t *testing.T) {
	m, _ := testMiddleware(t)

	var identity models.Identity
	handler := m.ResolveIdentity(func(w http.ResponseWriter, r *http.Request) {
		identity, _ = GetIdentity(r.Context())
	})

	req := httptest.NewRequest(http.MethodPost, "/api/scans", nil)
	req.Header.Set("Authorization", "Bearer expired-or-garbage")
	req.RemoteAddr = "198.51.100.7:52188"
	handler(httptest.NewRecorder(), req)

	assert.True(t, identity.IsAnonymous())
}
