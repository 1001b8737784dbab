// Package otp issues and verifies one-time codes for a check session.
//
// Codes are six decimal digits drawn from crypto/rand. Only a SHA-256 hash is
// kept on the Challenge, so a stored session never holds the code itself.
package otp

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"time"
)

const (
	codeMin   = 100000
	codeRange = 900000
)

var (
	ErrMismatch         = errors.New("otp mismatch")
	ErrExpired          = errors.New("otp expired")
	ErrAttemptsExceeded = errors.New("otp attempts exceeded")
	ErrAlreadyVerified  = errors.New("otp already verified")
)

// Policy bounds verification. Zero values mean unlimited attempts and no
// expiry.
type Policy struct {
	MaxAttempts int
	Expiry      time.Duration
}

// Challenge is the pending verification for one issued code.
type Challenge struct {
	CodeHash    string    `json:"code_hash"`
	Verified    bool      `json:"verified"`
	Attempts    int       `json:"attempts"`
	MaxAttempts int       `json:"max_attempts,omitempty"`
	IssuedAt    time.Time `json:"issued_at"`
	ExpiresAt   time.Time `json:"expires_at,omitzero"`
}

// Generate draws a fresh code and returns it with its challenge.
func Generate(policy Policy, now time.Time) (string, Challenge, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(codeRange))
	if err != nil {
		return "", Challenge{}, fmt.Errorf("generate otp: %w", err)
	}
	code := fmt.Sprintf("%06d", n.Int64()+codeMin)

	ch := Challenge{
		CodeHash:    hashCode(code),
		MaxAttempts: policy.MaxAttempts,
		IssuedAt:    now,
	}
	if policy.Expiry > 0 {
		ch.ExpiresAt = now.Add(policy.Expiry)
	}
	return code, ch, nil
}

// Verify checks input against the issued code. Every call counts as an
// attempt; a mismatch leaves the challenge pending.
func (c *Challenge) Verify(input string, now time.Time) error {
	if c.Verified {
		return ErrAlreadyVerified
	}
	if !c.ExpiresAt.IsZero() && !now.Before(c.ExpiresAt) {
		return ErrExpired
	}
	if c.MaxAttempts > 0 && c.Attempts >= c.MaxAttempts {
		return ErrAttemptsExceeded
	}
	c.Attempts++
	if subtle.ConstantTimeCompare([]byte(hashCode(input)), []byte(c.CodeHash)) != 1 {
		return ErrMismatch
	}
	c.Verified = true
	return nil
}

// Remaining reports how many attempts are left, or -1 when unlimited.
func (c *Challenge) Remaining() int {
	if c.MaxAttempts <= 0 {
		return -1
	}
	return max(c.MaxAttempts-c.Attempts, 0)
}

func hashCode(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}
