package identity

import (
	"errors"
	"fmt"
	"unicode"
	"unicode/utf8"

	"esuvi/internal/settings"
)

// ErrWeakPassword is returned when a password misses a configured requirement.
var ErrWeakPassword = errors.New("password does not meet requirements")

// ValidatePassword checks pw against auth.passwordRequirements. Requirements
// missing from the record are not enforced.
func ValidatePassword(cfg *settings.Settings, pw string) error {
	req, err := cfg.Record(settings.CategoryAuth, settings.KeyPasswordRequirements)
	if err != nil {
		return nil
	}

	if minLen, ok := req["minLength"].(int); ok && utf8.RuneCountInString(pw) < minLen {
		return fmt.Errorf("%w: at least %d characters", ErrWeakPassword, minLen)
	}

	var upper, lower, digit, special bool
	for _, r := range pw {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			special = true
		}
	}

	checks := []struct {
		key string
		ok  bool
		msg string
	}{
		{"requireUppercase", upper, "an uppercase letter"},
		{"requireLowercase", lower, "a lowercase letter"},
		{"requireNumbers", digit, "a number"},
		{"requireSpecialChars", special, "a special character"},
	}
	for _, c := range checks {
		if required, _ := req[c.key].(bool); required && !c.ok {
			return fmt.Errorf("%w: needs %s", ErrWeakPassword, c.msg)
		}
	}
	return nil
}
