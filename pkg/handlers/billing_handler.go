package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/scanmatch-inc/scanmatch-engine/pkg/auth"
	"github.com/scanmatch-inc/scanmatch-engine/pkg/services"
)

// webhookBodyLimit bounds the webhook payload size. Stripe's own limit is
// lower; this is a backstop against unbounded reads.
const webhookBodyLimit = 1 << 20

// BillingHandler handles checkout, portal, and webhook endpoints.
type BillingHandler struct {
	billing services.BillingService
	logger  *zap.Logger
}

// NewBillingHandler creates a new billing handler.
func NewBillingHandler(billing services.BillingService, logger *zap.Logger) *BillingHandler {
	return &BillingHandler{billing: billing, logger: logger}
}

// RegisterRoutes registers the billing handler's routes on the given mux.
// The webhook endpoint authenticates by signature, not session.
func (h *BillingHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware) {
	mux.HandleFunc("POST /api/billing/checkout", authMiddleware.RequireAuth(h.CreateCheckout))
	mux.HandleFunc("POST /api/billing/checkout/verify", authMiddleware.RequireAuth(h.VerifyCheckout))
	mux.HandleFunc("POST /api/billing/portal", authMiddleware.RequireAuth(h.CreatePortal))
	mux.HandleFunc("POST /api/billing/webhook", h.Webhook)
}

// checkoutRequest is the request body for POST /api/billing/checkout.
type checkoutRequest struct {
	Tier string `json:"tier"`
}

// CreateCheckout handles POST /api/billing/checkout.
func (h *BillingHandler) CreateCheckout(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.RequireUserIDFromContext(r.Context())
	if err != nil {
		_ = ErrorResponse(w, http.StatusUnauthorized, "unauthorized", "Authentication required")
		return
	}

	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	url, err := h.billing.CreateCheckoutSession(r.Context(), userID, req.Tier)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	_ = WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: map[string]string{"url": url}})
}

// verifyCheckoutRequest is the request body for POST /api/billing/checkout/verify.
type verifyCheckoutRequest struct {
	SessionID string `json:"session_id"`
}

// VerifyCheckout handles POST /api/billing/checkout/verify, called from the
// post-checkout success redirect so the UI reflects the upgrade immediately
// instead of waiting for the webhook.
func (h *BillingHandler) VerifyCheckout(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.RequireUserIDFromContext(r.Context())
	if err != nil {
		_ = ErrorResponse(w, http.StatusUnauthorized, "unauthorized", "Authentication required")
		return
	}

	var req verifyCheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.SessionID == "" {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "session_id is required")
		return
	}

	if err := h.billing.VerifyCheckoutSession(r.Context(), userID, req.SessionID); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	_ = WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Message: "Subscription activated"})
}

// CreatePortal handles POST /api/billing/portal.
func (h *BillingHandler) CreatePortal(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.RequireUserIDFromContext(r.Context())
	if err != nil {
		_ = ErrorResponse(w, http.StatusUnauthorized, "unauthorized", "Authentication required")
		return
	}

	url, err := h.billing.CreatePortalSession(r.Context(), userID)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	_ = WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: map[string]string{"url": url}})
}

// Webhook handles POST /api/billing/webhook. Returns 400 on signature or
// processing failures so the sender retries.
func (h *BillingHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, webhookBodyLimit))
	if err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Failed to read payload")
		return
	}

	if err := h.billing.HandleWebhook(r.Context(), payload, r.Header.Get("Stripe-Signature")); err != nil {
		h.logger.Warn("webhook processing failed", zap.Error(err))
		_ = ErrorResponse(w, http.StatusBadRequest, "webhook_failed", "Webhook processing failed")
		return
	}

	w.WriteHeader(http.StatusOK)
}
