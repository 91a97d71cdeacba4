package user

import (
	"errors"
	"strings"
)

var (
	ErrInvalidPhone = errors.New("phone must contain 10 to 15 digits")
	ErrInvalidMPIN  = errors.New("mpin must be 4 to 6 digits")
	ErrWeakMPIN     = errors.New("mpin must not repeat a single digit")
)

// NormalizePhone strips separators and keeps an optional leading '+'.
func NormalizePhone(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	var b strings.Builder
	for i, r := range raw {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '+' && i == 0:
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '(' || r == ')' || r == '.':
		default:
			return "", ErrInvalidPhone
		}
	}
	phone := b.String()
	digits := len(strings.TrimPrefix(phone, "+"))
	if digits < 10 || digits > 15 {
		return "", ErrInvalidPhone
	}
	return phone, nil
}

// ValidateMPIN checks the MPIN format.
func ValidateMPIN(mpin string) error {
	if len(mpin) < 4 || len(mpin) > 6 {
		return ErrInvalidMPIN
	}
	for _, r := range mpin {
		if r < '0' || r > '9' {
			return ErrInvalidMPIN
		}
	}
	if strings.Count(mpin, mpin[:1]) == len(mpin) {
		return ErrWeakMPIN
	}
	return nil
}
