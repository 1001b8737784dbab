package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores and clients return these
// (optionally wrapped) so services can translate them into domain errors.
//
//   - ErrNotFound: check or conversation does not exist in the store
//   - ErrConflict: another operation already holds the resource
//   - ErrExpired: OTP challenge or stored check has expired
//   - ErrInvalidState: check is in the wrong state for the requested operation
//   - ErrUnavailable: upstream or store temporarily unavailable
//
// For validation errors (bad input, missing fields), use pkg/domain-errors directly.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrExpired      = errors.New("expired")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
)
