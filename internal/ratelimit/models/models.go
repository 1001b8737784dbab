package models

import (
	"time"
)

// EndpointClass groups routes that share a per-client limit.
type EndpointClass string

const (
	// ClassStart: opening a check session (POST /checks)
	ClassStart EndpointClass = "start"
	// ClassOTP: OTP submissions (POST /checks/{id}/otp)
	ClassOTP EndpointClass = "otp"
	// ClassChat: chat proxy sends, each one an upstream call (POST /chat)
	ClassChat EndpointClass = "chat"
	// ClassRead: polling and receipt reads
	ClassRead EndpointClass = "read"
)

// IsValid checks if the endpoint class is one of the supported values.
func (c EndpointClass) IsValid() bool {
	switch c {
	case ClassStart, ClassOTP, ClassChat, ClassRead:
		return true
	}
	return false
}

// Limit is a sliding-window allowance.
type Limit struct {
	Requests int
	Window   time.Duration
}

// DefaultLimits are applied per client IP.
func DefaultLimits() map[EndpointClass]Limit {
	return map[EndpointClass]Limit{
		ClassStart: {Requests: 20, Window: time.Minute},
		ClassOTP:   {Requests: 30, Window: time.Minute},
		ClassChat:  {Requests: 20, Window: time.Minute},
		ClassRead:  {Requests: 300, Window: time.Minute},
	}
}

// RateLimitResult represents the outcome of a rate limit check.
type RateLimitResult struct {
	Allowed    bool      `json:"allowed"`
	Bypassed   bool      `json:"bypassed,omitempty"`
	Limit      int       `json:"limit"`
	Remaining  int       `json:"remaining"`
	ResetAt    time.Time `json:"reset_at"`
	RetryAfter int       `json:"retry_after,omitempty"` // seconds, only set when not allowed
}
