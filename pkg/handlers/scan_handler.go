package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/scanmatch-inc/scanmatch-engine/pkg/auth"
	"github.com/scanmatch-inc/scanmatch-engine/pkg/models"
	"github.com/scanmatch-inc/scanmatch-engine/pkg/services"
)

// ScanHandler handles scan analysis and history endpoints.
type ScanHandler struct {
	scans  services.ScanService
	logger *zap.Logger
}

// NewScanHandler creates a new scan handler.
func NewScanHandler(scans services.ScanService, logger *zap.Logger) *ScanHandler {
	return &ScanHandler{scans: scans, logger: logger}
}

// RegisterRoutes registers the scan handler's routes on the given mux.
// Analysis is open to anonymous callers; history requires authentication.
func (h *ScanHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware) {
	mux.HandleFunc("POST /api/scans", authMiddleware.ResolveIdentity(h.Analyze))
	mux.HandleFunc("GET /api/scans", authMiddleware.RequireAuth(h.List))
	mux.HandleFunc("GET /api/scans/{id}", authMiddleware.RequireAuth(h.Get))
	mux.HandleFunc("DELETE /api/scans/{id}", authMiddleware.RequireAuth(h.Delete))
	mux.HandleFunc("POST /api/scans/{id}/interview", authMiddleware.RequireAuth(h.InterviewQuestions))
}

// analyzeRequest is the request body for POST /api/scans.
type analyzeRequest struct {
	ResumeText     string `json:"resume_text"`
	JobDescription string `json:"job_description"`
}

// analyzeResponse carries the analysis plus quota standing. ScanID is empty
// for anonymous callers, whose results are never stored server-side.
type analyzeResponse struct {
	Analysis *models.ScanAnalysis `json:"analysis"`
	ScanID   string               `json:"scan_id,omitempty"`
	Usage    usageStanding        `json:"usage"`
}

type usageStanding struct {
	Used     int  `json:"used"`
	Limit    *int `json:"limit"` // nil = unlimited
	Degraded bool `json:"degraded,omitempty"`
}

// Analyze handles POST /api/scans.
func (h *ScanHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.GetIdentity(r.Context())
	if !ok {
		_ = ErrorResponse(w, http.StatusInternalServerError, "internal_error", "Identity not resolved")
		return
	}

	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	outcome, err := h.scans.Analyze(r.Context(), identity, req.ResumeText, req.JobDescription)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	resp := analyzeResponse{
		Analysis: outcome.Analysis,
		Usage: usageStanding{
			Used:     outcome.Decision.Used,
			Limit:    outcome.Decision.Limit,
			Degraded: outcome.Decision.Degraded,
		},
	}
	if outcome.Scan != nil {
		resp.ScanID = outcome.Scan.ID.String()
	}

	_ = WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: resp})
}

// List handles GET /api/scans. Accepts an optional limit query parameter.
func (h *ScanHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.RequireUserIDFromContext(r.Context())
	if err != nil {
		_ = ErrorResponse(w, http.StatusUnauthorized, "unauthorized", "Authentication required")
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 0 {
			_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "limit must be a non-negative integer")
			return
		}
	}

	scans, err := h.scans.History(r.Context(), userID, limit)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	_ = WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: scans})
}

// Get handles GET /api/scans/{id}.
func (h *ScanHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, scanID, ok := h.scanRequestIDs(w, r)
	if !ok {
		return
	}

	scan, err := h.scans.GetScan(r.Context(), userID, scanID)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	_ = WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: scan})
}

// Delete handles DELETE /api/scans/{id}.
func (h *ScanHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, scanID, ok := h.scanRequestIDs(w, r)
	if !ok {
		return
	}

	if err := h.scans.DeleteScan(r.Context(), userID, scanID); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	_ = WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Message: "Scan deleted"})
}

// InterviewQuestions handles POST /api/scans/{id}/interview.
func (h *ScanHandler) InterviewQuestions(w http.ResponseWriter, r *http.Request) {
	userID, scanID, ok := h.scanRequestIDs(w, r)
	if !ok {
		return
	}

	questions, err := h.scans.InterviewQuestions(r.Context(), userID, scanID)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	_ = WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: questions})
}

// scanRequestIDs extracts the authenticated user id and the path scan id,
// writing the error response itself on failure.
func (h *ScanHandler) scanRequestIDs(w http.ResponseWriter, r *http.Request) (userID, scanID uuid.UUID, ok bool) {
	userID, err := auth.RequireUserIDFromContext(r.Context())
	if err != nil {
		_ = ErrorResponse(w, http.StatusUnauthorized, "unauthorized", "Authentication required")
		return uuid.Nil, uuid.Nil, false
	}

	scanID, err = uuid.Parse(r.PathValue("id"))
	if err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid scan id")
		return uuid.Nil, uuid.Nil, false
	}

	return userID, scanID, true
}
