// Package handlers contains the HTTP surface of scanmatch-engine. Handlers
// decode requests, call services, and map service errors to status codes.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/scanmatch-inc/scanmatch-engine/pkg/apperrors"
	"github.com/scanmatch-inc/scanmatch-engine/pkg/llm"
	"github.com/scanmatch-inc/scanmatch-engine/pkg/services"
)

// ApiResponse wraps data in the format expected by the frontend.
type ApiResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

// ErrorResponse writes a JSON error response and returns any encoding error.
func ErrorResponse(w http.ResponseWriter, statusCode int, errorCode, message string) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(map[string]string{
		"error":   errorCode,
		"message": message,
	})
}

// WriteJSON writes a JSON response and returns any encoding error.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	if statusCode != http.StatusOK {
		w.WriteHeader(statusCode)
	}
	return json.NewEncoder(w).Encode(data)
}

// writeServiceError maps a service error to an HTTP response. Quota and
// parse failures carry structured payloads; everything else maps through
// the sentinel errors.
func writeServiceError(w http.ResponseWriter, logger *zap.Logger, err error) {
	var quotaErr *services.QuotaError
	if errors.As(err, &quotaErr) {
		_ = WriteJSON(w, http.StatusPaymentRequired, map[string]any{
			"error":   "scan_limit_reached",
			"message": "Scan limit reached for this period. Upgrade to a paid plan for unlimited scans.",
			"used":    quotaErr.Used,
			"limit":   quotaErr.Limit,
		})
		return
	}

	var parseErr *services.ParseError
	if errors.As(err, &parseErr) {
		// The raw text is returned so the caller can display what the
		// analysis endpoint actually produced.
		_ = WriteJSON(w, http.StatusBadGateway, map[string]any{
			"error":   "unparseable_response",
			"message": "The analysis response could not be parsed.",
			"raw":     parseErr.Raw,
		})
		return
	}

	var llmErr *llm.Error
	if errors.As(err, &llmErr) {
		logger.Warn("upstream completion failed", zap.Error(err))
		_ = ErrorResponse(w, http.StatusBadGateway, "upstream_error", "The analysis service is unavailable. Try again shortly.")
		return
	}

	switch {
	case errors.Is(err, apperrors.ErrValidation):
		_ = ErrorResponse(w, http.StatusBadRequest, "validation_failed", err.Error())
	case errors.Is(err, apperrors.ErrInvalidCredentials):
		_ = ErrorResponse(w, http.StatusUnauthorized, "invalid_credentials", "Invalid email or password")
	case errors.Is(err, apperrors.ErrFeatureNotInTier):
		_ = ErrorResponse(w, http.StatusForbidden, "feature_not_in_tier", err.Error())
	case errors.Is(err, apperrors.ErrScanLimitReached):
		_ = ErrorResponse(w, http.StatusPaymentRequired, "scan_limit_reached", err.Error())
	case errors.Is(err, apperrors.ErrNotFound):
		_ = ErrorResponse(w, http.StatusNotFound, "not_found", "Resource not found")
	case errors.Is(err, apperrors.ErrConflict):
		_ = ErrorResponse(w, http.StatusConflict, "conflict", err.Error())
	case errors.Is(err, apperrors.ErrCheckoutNotCompleted):
		_ = ErrorResponse(w, http.StatusConflict, "checkout_not_completed", "Checkout has not completed yet")
	case errors.Is(err, apperrors.ErrUnparseableResponse):
		_ = ErrorResponse(w, http.StatusBadGateway, "unparseable_response", err.Error())
	default:
		logger.Error("request failed", zap.Error(err))
		_ = ErrorResponse(w, http.StatusInternalServerError, "internal_error", "Internal server error")
	}
}
