package auth

import (
	"strings"
	"unicode"

	"github.com/mesh-intelligence/funnel/pkg/types"
)

// MinPasswordLength is the shortest password Register accepts.
const MinPasswordLength = 6

// minPhoneDigits is the digit count of a Brazilian mobile number with area
// code.
const minPhoneDigits = 11

// Registration is the sign-up form.
type Registration struct {
	Name            string
	Email           string
	Phone           string
	ExternalID      string
	Password        string
	ConfirmPassword string
}

// Validate checks the form in field order and returns the first failure.
func (r Registration) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return types.ErrInvalidName
	}
	if !strings.Contains(r.Email, "@") {
		return types.ErrInvalidEmail
	}
	if len(Digits(r.Phone)) < minPhoneDigits {
		return types.ErrInvalidPhone
	}
	if strings.TrimSpace(r.ExternalID) == "" {
		return types.ErrMissingExternalID
	}
	if len(r.Password) < MinPasswordLength {
		return types.ErrWeakPassword
	}
	if r.Password != r.ConfirmPassword {
		return types.ErrPasswordMismatch
	}
	return nil
}

// Digits returns only the decimal digits of s.
func Digits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// FormatPhone renders the first 11 digits of s as "(XX) XXXXX-XXXX". Inputs
// with fewer digits are returned as their digits.
func FormatPhone(s string) string {
	d := Digits(s)
	if len(d) < minPhoneDigits {
		return d
	}
	d = d[:minPhoneDigits]
	return "(" + d[:2] + ") " + d[2:7] + "-" + d[7:]
}

// normalizeEmail trims the address and lower-cases it.
func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimFunc(s, unicode.IsSpace))
}
