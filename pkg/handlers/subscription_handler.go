package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/scanmatch-inc/scanmatch-engine/pkg/auth"
	"github.com/scanmatch-inc/scanmatch-engine/pkg/services"
)

// SubscriptionHandler exposes the resolved subscription summary.
type SubscriptionHandler struct {
	subscriptions services.SubscriptionService
	logger        *zap.Logger
}

// NewSubscriptionHandler creates a new subscription handler.
func NewSubscriptionHandler(subscriptions services.SubscriptionService, logger *zap.Logger) *SubscriptionHandler {
	return &SubscriptionHandler{subscriptions: subscriptions, logger: logger}
}

// RegisterRoutes registers the subscription handler's routes on the given mux.
func (h *SubscriptionHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware) {
	mux.HandleFunc("GET /api/subscription", authMiddleware.RequireAuth(h.Get))
	mux.HandleFunc("POST /api/subscription/refresh", authMiddleware.RequireAuth(h.Refresh))
}

// Get handles GET /api/subscription. Resolves from local state only.
func (h *SubscriptionHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.RequireUserIDFromContext(r.Context())
	if err != nil {
		_ = ErrorResponse(w, http.StatusUnauthorized, "unauthorized", "Authentication required")
		return
	}

	summary, err := h.subscriptions.Resolve(r.Context(), userID)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	_ = WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: summary})
}

// Refresh handles POST /api/subscription/refresh. Reconciles against the
// payment processor, throttled by the service's cool-down window.
func (h *SubscriptionHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.RequireUserIDFromContext(r.Context())
	if err != nil {
		_ = ErrorResponse(w, http.StatusUnauthorized, "unauthorized", "Authentication required")
		return
	}

	summary, err := h.subscriptions.Refresh(r.Context(), userID)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	_ = WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: summary})
}
