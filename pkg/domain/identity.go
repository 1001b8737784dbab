// Package domain holds validated primitives parsed at trust boundaries.
package domain

import (
	"log/slog"
	"strings"

	dErrors "dbtcheck/pkg/domain-errors"
)

// IdentityNumberLength is the number of digits in a normalized identity number.
const IdentityNumberLength = 12

// DefaultMaskChar hides the leading digits of a masked identity number.
const DefaultMaskChar = 'X'

// IdentityNumber is a normalized 12-digit national identity number.
// The zero value is not valid; construct with ParseIdentityNumber.
type IdentityNumber string

// ParseIdentityNumber strips every non-digit character from raw and checks
// the result is exactly 12 digits that are not all the same.
func ParseIdentityNumber(raw string) (IdentityNumber, error) {
	var b strings.Builder
	b.Grow(IdentityNumberLength)
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()

	if len(digits) != IdentityNumberLength {
		return "", dErrors.New(dErrors.CodeInvalidLength, "identity number must contain exactly 12 digits")
	}
	if strings.Count(digits, digits[:1]) == IdentityNumberLength {
		return "", dErrors.New(dErrors.CodeInvalidPattern, "identity number cannot repeat a single digit")
	}
	return IdentityNumber(digits), nil
}

func (n IdentityNumber) String() string {
	return string(n)
}

// Formatted groups the digits as "1234 5678 9012".
func (n IdentityNumber) Formatted() string {
	s := string(n)
	if len(s) != IdentityNumberLength {
		return s
	}
	return s[0:4] + " " + s[4:8] + " " + s[8:12]
}

// Masked replaces all but the last four digits with maskChar.
func (n IdentityNumber) Masked(maskChar rune) string {
	s := string(n)
	if len(s) <= 4 {
		return s
	}
	return strings.Repeat(string(maskChar), len(s)-4) + s[len(s)-4:]
}

// LogValue keeps raw numbers out of structured logs.
func (n IdentityNumber) LogValue() slog.Value {
	return slog.StringValue(n.Masked(DefaultMaskChar))
}
