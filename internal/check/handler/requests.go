package handler

import (
	dErrors "dbtcheck/pkg/domain-errors"
)

// maxNumberInput bounds the raw field before normalization. Separators are
// allowed, so it is far above the 12 digits that survive.
const maxNumberInput = 256

// StartRequest is the body of POST /checks.
type StartRequest struct {
	AadhaarNumber string `json:"aadhaar_number"`
}

// Validate bounds the raw input; digit rules live in domain.ParseIdentityNumber.
func (r *StartRequest) Validate() error {
	if len(r.AadhaarNumber) > maxNumberInput {
		return dErrors.New(dErrors.CodeValidation, "aadhaar_number input is too long")
	}
	return nil
}

// VerifyOTPRequest is the body of POST /checks/{id}/otp. The code is
// compared exactly, so it is not trimmed.
type VerifyOTPRequest struct {
	OTP string `json:"otp"`
}

func (r *VerifyOTPRequest) Validate() error {
	if r.OTP == "" {
		return dErrors.New(dErrors.CodeValidation, "otp is required")
	}
	if len(r.OTP) > 16 {
		return dErrors.New(dErrors.CodeValidation, "otp is too long")
	}
	return nil
}
