package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
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

// mockScanService implements services.ScanService for handler tests.
type mockScanService struct {
	outcome    *services.ScanOutcome
	analyzeErr error

	scans   []*models.Scan
	scan    *models.Scan
	getErr  error
	listErr error

	lastIdentity models.Identity
}

func (m *mockScanService) Analyze(ctx context.Context, identity models.Identity, resumeText, jobDescription string) (*services.ScanOutcome, error) {
	m.lastIdentity = identity
	if m.analyzeErr != nil {
		return nil, m.analyzeErr
	}
	return m.outcome, nil
}

func (m *mockScanService) History(ctx context.Context, userID uuid.UUID, limit int) ([]*models.Scan, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.scans, nil
}

func (m *mockScanService) GetScan(ctx context.Context, userID, scanID uuid.UUID) (*models.Scan, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	return m.scan, nil
}

func (m *mockScanService) DeleteScan(ctx context.Context, userID, scanID uuid.UUID) error {
	return m.getErr
}

func (m *mockScanService) InterviewQuestions(ctx context.Context, userID, scanID uuid.UUID) ([]models.InterviewQuestion, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	return []models.InterviewQuestion{{Question: "Tell me about a hard bug.", Guidance: "Use a concrete story."}}, nil
}

func scanTestServer(t *testing.T, svc services.ScanService) (*http.ServeMux, *auth.TokenIssuer) {
	t.Helper()
	mux := http.NewServeMux()
	issuer := auth.NewTokenIssuer([]byte("test-secret"), time.Hour)
	NewScanHandler(svc, zap.NewNop()).RegisterRoutes(mux, auth.NewMiddleware(issuer, zap.NewNop()))
	return mux, issuer
}

func analyzeBody(t *testing.T) *bytes.Buffer {
	t.Helper()
	body, err := json.Marshal(map[string]string{
		"resume_text":     "my resume",
		"job_description": "the job",
	})
	require.NoError(t, err)
	return bytes.NewBuffer(body)
}

func TestAnalyzeEndpoint_Anonymous(t *testing.T) {
	limit := 5
	mock := &mockScanService{outcome: &services.ScanOutcome{
		Analysis: &models.ScanAnalysis{Score: 72},
		Decision: services.Decision{Allowed: true, Used: 1, Limit: &limit},
	}}
	mux, _ := scanTestServer(t, mock)

	req := httptest.NewRequest(http.MethodPost, "/api/scans", analyzeBody(t))
	req.RemoteAddr = "203.0.113.9:40000"
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, mock.lastIdentity.IsAnonymous())

	var resp struct {
		Success bool `json:"success"`
		Data    struct {
			Analysis *models.ScanAnalysis `json:"analysis"`
			ScanID   string               `json:"scan_id"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, 72, resp.Data.Analysis.Score)
	assert.Empty(t, resp.Data.ScanID)
}

func TestAnalyzeEndpoint_AuthenticatedReturnsScanID(t *testing.T) {
	userID := uuid.New()
	scanID := uuid.New()
	mock := &mockScanService{outcome: &services.ScanOutcome{
		Analysis: &models.ScanAnalysis{Score: 80},
		Scan:     &models.Scan{ID: scanID, UserID: userID},
		Decision: services.Decision{Allowed: true},
	}}
	mux, issuer := scanTestServer(t, mock)
	token, err := issuer.Generate(userID, "user@example.com")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/scans", analyzeBody(t))
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, mock.lastIdentity.IsAnonymous())
	assert.Contains(t, rec.Body.String(), scanID.String())
}

func TestAnalyzeEndpoint_QuotaExceeded(t *testing.T) {
	mock := &mockScanService{analyzeErr: &services.QuotaError{Used: 5, Limit: 5}}
	mux, _ := scanTestServer(t, mock)

	req := httptest.NewRequest(http.MethodPost, "/api/scans", analyzeBody(t))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusPaymentRequired, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "scan_limit_reached", resp["error"])
	assert.Equal(t, float64(5), resp["used"])
	assert.Contains(t, resp["message"], "Upgrade")
}

func TestAnalyzeEndpoint_UnparseableResponseCarriesRaw(t *testing.T) {
	mock := &mockScanService{analyzeErr: &services.ParseError{Raw: "not json at all"}}
	mux, _ := scanTestServer(t, mock)

	req := httptest.NewRequest(http.MethodPost, "/api/scans", analyzeBody(t))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadGateway, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "not json at all", resp["raw"])
}

func TestAnalyzeEndpoint_ValidationError(t *testing.T) {
	mock := &mockScanService{analyzeErr: apperrors.ErrValidation}
	mux, _ := scanTestServer(t, mock)

	req := httptest.NewRequest(http.MethodPost, "/api/scans", analyzeBody(t))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHistoryEndpoint_RequiresAuth(t *testing.T) {
	mux, _ := scanTestServer(t, &mockScanService{})

	req := httptest.NewRequest(http.MethodGet, "/api/scans", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHistoryEndpoint_TierGate(t *testing.T) {
	mock := &mockScanService{listErr: apperrors.ErrFeatureNotInTier}
	mux, issuer := scanTestServer(t, mock)
	token, err := issuer.Generate(uuid.New(), "user@example.com")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/scans", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestGetScanEndpoint_InvalidID(t *testing.T) {
	mux, issuer := scanTestServer(t, &mockScanService{})
	token, err := issuer.Generate(uuid.New(), "user@example.com")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/scans/not-a-uuid", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetScanEndpoint_NotFound(t *testing.T) {
	mock := &mockScanService{getErr: apperrors.ErrNotFound}
	mux, issuer := scanTestServer(t, mock)
	token, err := issuer.Generate(uuid.New(), "user@example.com")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/scans/"+uuid.NewString(), nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
