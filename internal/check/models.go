// Package check runs the status check flow for one session:
// validate the number, issue an OTP, verify it, then reveal the three status
// fields in order and issue a receipt.
package check

import (
	"time"

	"github.com/google/uuid"

	"dbtcheck/internal/otp"
	"dbtcheck/internal/receipt"
	"dbtcheck/internal/status"
	"dbtcheck/pkg/domain"
)

// State is the session position in the check flow.
//
//	idle -> validating -> awaiting_otp -> running(step 1) -> running(step 2) -> complete
//
// A failed validation never leaves idle and stores nothing. failed is only
// reachable when a remote verifier errors.
type State string

const (
	StateIdle        State = "idle"
	StateValidating  State = "validating"
	StateAwaitingOTP State = "awaiting_otp"
	StateRunning     State = "running"
	StateComplete    State = "complete"
	StateFailed      State = "failed"
)

// Revealed is a status field that has become visible.
type Revealed struct {
	Field      status.Field `json:"field"`
	Value      bool         `json:"value"`
	RevealedAt time.Time    `json:"revealed_at"`
}

// Check is one session. Number is kept only for the session TTL.
type Check struct {
	ID         uuid.UUID             `json:"id"`
	Number     domain.IdentityNumber `json:"number"`
	State      State                 `json:"state"`
	Step       int                   `json:"step"`
	Challenge  otp.Challenge         `json:"challenge"`
	VerifierID string                `json:"verifier_id,omitempty"`
	Outcome    *status.Outcome       `json:"outcome,omitempty"`
	Revealed   []Revealed            `json:"revealed,omitempty"`
	Receipt    *receipt.Receipt      `json:"receipt,omitempty"`
	Failure    string                `json:"failure,omitempty"`
	Language   string                `json:"language"`
	CreatedAt  time.Time             `json:"created_at"`
	UpdatedAt  time.Time             `json:"updated_at"`
}

// IsRevealed reports whether f is visible yet.
func (c *Check) IsRevealed(f status.Field) (value bool, ok bool) {
	for _, r := range c.Revealed {
		if r.Field == f {
			return r.Value, true
		}
	}
	return false, false
}

// Discardable reports whether the session may be dropped. A running check
// always finishes.
func (c *Check) Discardable() bool {
	return c.State != StateRunning
}

// Clone returns a copy that shares no mutable state with c.
func (c *Check) Clone() *Check {
	out := *c
	if c.Outcome != nil {
		o := *c.Outcome
		out.Outcome = &o
	}
	out.Revealed = append([]Revealed(nil), c.Revealed...)
	if c.Receipt != nil {
		r := *c.Receipt
		r.Checks = append([]receipt.CheckResult(nil), c.Receipt.Checks...)
		out.Receipt = &r
	}
	return &out
}
