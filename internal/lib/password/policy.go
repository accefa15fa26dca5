package password

import (
	"unicode"
	"unicode/utf8"

	"github.com/hostplane/controlplane/internal/apperr"
)

const (
	MinLength = 8
	MaxLength = 128
)

const symbolSet = "!@#$%^&*()_+-=[]{}|;:'\",.<>/?`~\\"

// ValidatePolicy enforces the password complexity rule: 8-128 code points,
// at least one lowercase letter, one uppercase letter, one digit and one
// symbol from symbolSet.
func ValidatePolicy(password string) error {
	length := utf8.RuneCountInString(password)
	if length < MinLength || length > MaxLength {
		return apperr.New(apperr.Validation, "password must be 8-128 characters long")
	}

	var hasLower, hasUpper, hasDigit, hasSymbol bool
	for _, r := range password {
		switch {
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsDigit(r):
			hasDigit = true
		case containsRune(symbolSet, r):
			hasSymbol = true
		}
	}

	switch {
	case !hasLower:
		return apperr.New(apperr.Validation, "password must contain a lowercase letter")
	case !hasUpper:
		return apperr.New(apperr.Validation, "password must contain an uppercase letter")
	case !hasDigit:
		return apperr.New(apperr.Validation, "password must contain a digit")
	case !hasSymbol:
		return apperr.New(apperr.Validation, "password must contain a symbol")
	}
	return nil
}

func containsRune(set string, r rune) bool {
	for _, c := range set {
		if c == r {
			return true
		}
	}
	return false
}
