package handlers

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/scanmatch-inc/scanmatch-engine/pkg/apperrors"
	"github.com/scanmatch-inc/scanmatch-engine/pkg/auth"
	"github.com/scanmatch-inc/scanmatch-engine/pkg/models"
	"github.com/scanmatch-inc/scanmatch-engine/pkg/services"
)

// mockCoachService implements services.CoachService for handler tests.
type mockCoachService struct {
	reply   *models.ChatMessage
	history []*models.ChatMessage
	sendErr error

	resetCalls int
}

func (m *mockCoachService) Send(ctx context.Context, userID uuid.UUID, message string) (*models.ChatMessage, error) {
	if m.sendErr != nil {
		return nil, m.sendErr
	}
	return m.reply, nil
}

func (m *mockCoachService) History(ctx context.Context, userID uuid.UUID) ([]*models.ChatMessage, error) {
	return m.history, nil
}

func (m *mockCoachService) Reset(ctx context.Context, userID uuid.UUID) error {
	m.resetCalls++
	return nil
}

func coachTestServer(t *testing.T, svc services.CoachService) (*http.ServeMux, string) {
	t.Helper()
	mux := http.NewServeMux()
	issuer := auth.NewTokenIssuer([]byte("test-secret"), time.Hour)
	NewCoachHandler(svc, zap.NewNop()).RegisterRoutes(mux, auth.NewMiddleware(issuer, zap.NewNop()))
	token, err := issuer.Generate(uuid.New(), "user@example.com")
	require.NoError(t, err)
	return mux, token
}

func TestCoachSend_RequiresAuth(t *testing.T) {
	mux, _ := coachTestServer(t, &mockCoachService{})

	req := httptest.NewRequest(http.MethodPost, "/api/coach/messages",
		strings.NewReader(`{"message": "hi"}`))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCoachSend_ReturnsReply(t *testing.T) {
	mock := &mockCoachService{reply: &models.ChatMessage{
		Role:    models.ChatRoleAssistant,
		Content: "Lead with the Kafka migration.",
	}}
	mux, token := coachTestServer(t, mock)

	req := httptest.NewRequest(http.MethodPost, "/api/coach/messages",
		strings.NewReader(`{"message": "How do I frame my experience?"}`))
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Kafka migration")
}

func TestCoachSend_FreeTierRejected(t *testing.T) {
	mock := &mockCoachService{
		sendErr: fmt.Errorf("%w: coach requires a paid plan", apperrors.ErrFeatureNotInTier),
	}
	mux, token := coachTestServer(t, mock)

	req := httptest.NewRequest(http.MethodPost, "/api/coach/messages",
		strings.NewReader(`{"message": "hi"}`))
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestCoachHistory_ReturnsTranscript(t *testing.T) {
	mock := &mockCoachService{history: []*models.ChatMessage{
		{Role: models.ChatRoleUser, Content: "first question"},
		{Role: models.ChatRoleAssistant, Content: "first answer"},
	}}
	mux, token := coachTestServer(t, mock)

	req := httptest.NewRequest(http.MethodGet, "/api/coach/messages", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "first question")
	assert.Contains(t, rec.Body.String(), "first answer")
}

func TestCoachReset_ClearsTranscript(t *testing.T) {
	mock := &mockCoachService{}
	mux, token := coachTestServer(t, mock)

	req := httptest.NewRequest(http.MethodDelete, "/api/coach/messages", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, mock.resetCalls)
}
