package apperrors

import "errors"

var (
	ErrNotFound             = errors.New("not found")
	ErrConflict             = errors.New("conflict")
	ErrValidation           = errors.New("validation failed")
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrScanLimitReached     = errors.New("scan limit reached")
	ErrFeatureNotInTier     = errors.New("feature not available in current tier")
	ErrUnparseableResponse  = errors.New("model response is not parseable")
	ErrCheckoutNotCompleted = errors.New("checkout session not completed")
)
