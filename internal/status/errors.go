package status

import (
	"errors"
	"fmt"
)

// ErrorCategory normalizes verifier failures.
type ErrorCategory string

const (
	ErrorTimeout        ErrorCategory = "timeout"
	ErrorBadData        ErrorCategory = "bad_data"
	ErrorAuthentication ErrorCategory = "authentication"
	ErrorOutage         ErrorCategory = "provider_outage"
	ErrorContract       ErrorCategory = "contract_mismatch"
	ErrorNotFound       ErrorCategory = "not_found"
	ErrorRateLimited    ErrorCategory = "rate_limited"
	ErrorInternal       ErrorCategory = "internal"
)

// VerifierError wraps a verifier failure with its category.
type VerifierError struct {
	Category   ErrorCategory
	VerifierID string
	Message    string
	Underlying error
	Retryable  bool
}

func (e *VerifierError) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("verifier %s [%s]: %s: %v", e.VerifierID, e.Category, e.Message, e.Underlying)
	}
	return fmt.Sprintf("verifier %s [%s]: %s", e.VerifierID, e.Category, e.Message)
}

func (e *VerifierError) Unwrap() error {
	return e.Underlying
}

// NewVerifierError marks timeouts, outages and rate limits as retryable.
func NewVerifierError(category ErrorCategory, verifierID, message string, underlying error) *VerifierError {
	return &VerifierError{
		Category:   category,
		VerifierID: verifierID,
		Message:    message,
		Underlying: underlying,
		Retryable:  category == ErrorTimeout || category == ErrorOutage || category == ErrorRateLimited,
	}
}

// IsRetryable reports whether err is a retryable VerifierError.
func IsRetryable(err error) bool {
	var ve *VerifierError
	if errors.As(err, &ve) {
		return ve.Retryable
	}
	return false
}

// GetCategory extracts the category, defaulting to ErrorInternal.
func GetCategory(err error) ErrorCategory {
	var ve *VerifierError
	if errors.As(err, &ve) {
		return ve.Category
	}
	return ErrorInternal
}
