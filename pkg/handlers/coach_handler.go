package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/scanmatch-inc/scanmatch-engine/pkg/auth"
	"github.com/scanmatch-inc/scanmatch-engine/pkg/services"
)

// CoachHandler handles the career-coach conversation endpoints.
type CoachHandler struct {
	coach  services.CoachService
	logger *zap.Logger
}

// NewCoachHandler creates a new coach handler.
func NewCoachHandler(coach services.CoachService, logger *zap.Logger) *CoachHandler {
	return &CoachHandler{coach: coach, logger: logger}
}

// RegisterRoutes registers the coach handler's routes on the given mux.
// All coach routes require authentication; tier gating happens in the service.
func (h *CoachHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware) {
	mux.HandleFunc("POST /api/coach/messages", authMiddleware.RequireAuth(h.Send))
	mux.HandleFunc("GET /api/coach/messages", authMiddleware.RequireAuth(h.History))
	mux.HandleFunc("DELETE /api/coach/messages", authMiddleware.RequireAuth(h.Reset))
}

// sendMessageRequest is the request body for POST /api/coach/messages.
type sendMessageRequest struct {
	Message string `json:"message"`
}

// Send handles POST /api/coach/messages.
func (h *CoachHandler) Send(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.RequireUserIDFromContext(r.Context())
	if err != nil {
		_ = ErrorResponse(w, http.StatusUnauthorized, "unauthorized", "Authentication required")
		return
	}

	var req sendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	reply, err := h.coach.Send(r.Context(), userID, req.Message)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	_ = WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: reply})
}

// History handles GET /api/coach/messages.
func (h *CoachHandler) History(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.RequireUserIDFromContext(r.Context())
	if err != nil {
		_ = ErrorResponse(w, http.StatusUnauthorized, "unauthorized", "Authentication required")
		return
	}

	messages, err := h.coach.History(r.Context(), userID)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	_ = WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: messages})
}

// Reset handles DELETE /api/coach/messages.
func (h *CoachHandler) Reset(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.RequireUserIDFromContext(r.Context())
	if err != nil {
		_ = ErrorResponse(w, http.StatusUnauthorized, "unauthorized", "Authentication required")
		return
	}

	if err := h.coach.Reset(r.Context(), userID); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	_ = WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Message: "Conversation cleared"})
}
