package chat

import (
	"errors"
	"fmt"
)

// Category classifies an upstream failure. The category decides both whether
// the call is retried and which reply the user sees.
type Category string

const (
	CategoryNotConfigured Category = "not_configured"
	CategoryServer        Category = "server_error"
	CategoryStatus        Category = "status_error"
	CategoryNetwork       Category = "network_error"
	CategoryShape         Category = "unexpected_shape"
	CategoryInternal      Category = "internal"
)

// User-visible replies for failed sends.
const (
	MessageNotConfigured = "⚠️ Please set up API Key to enable chat functionality."
	MessageShape         = "⚠️ Sorry, I couldn't generate a proper response. Please try again."
	MessageNetwork       = "⚠️ Network error: Please check your connection."
	MessageInternal      = "⚠️ I'm having technical difficulties. Please try again."
	messageStatusFormat  = "⚠️ API Error (%d): Please try again."
)

// UpstreamError describes a failed generateContent call after retries.
type UpstreamError struct {
	Category   Category
	StatusCode int
	Attempts   int
	Err        error
}

func (e *UpstreamError) Error() string {
	msg := fmt.Sprintf("chat upstream [%s] after %d attempt(s)", e.Category, e.Attempts)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(": status %d", e.StatusCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// UserMessage maps err to the reply shown in the chat window.
func UserMessage(err error) string {
	var ue *UpstreamError
	if !errors.As(err, &ue) {
		return MessageInternal
	}
	switch ue.Category {
	case CategoryNotConfigured:
		return MessageNotConfigured
	case CategoryServer, CategoryStatus:
		return fmt.Sprintf(messageStatusFormat, ue.StatusCode)
	case CategoryNetwork:
		return MessageNetwork
	case CategoryShape:
		return MessageShape
	default:
		return MessageInternal
	}
}

// GetCategory extracts the category, defaulting to CategoryInternal.
func GetCategory(err error) Category {
	var ue *UpstreamError
	if errors.As(err, &ue) {
		return ue.Category
	}
	return CategoryInternal
}
