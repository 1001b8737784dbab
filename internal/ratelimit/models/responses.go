package models

// RateLimitExceededResponse is the 429 body. Error matches the coded error
// envelope used by every other endpoint.
type RateLimitExceededResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
	RetryAfter       int    `json:"retry_after"` // seconds
}
