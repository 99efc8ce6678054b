// internal/provider/phone.go
package provider

import (
	"strings"

	appErrors "github.com/paynudge/reminder-backend/internal/errors"
)

// NormalizeE164 converts a raw phone string to E.164. defaultCountryCode is
// the dial code (without "+") prepended to national numbers. A number that
// cannot be normalized is a permanent delivery error: it short-circuits
// dispatch before any provider adapter is invoked.
func NormalizeE164(raw, defaultCountryCode string) (string, error) {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '(', ')', '.':
			return -1
		}
		return r
	}, strings.TrimSpace(raw))

	if cleaned == "" {
		return "", appErrors.NewPermanentDelivery("empty phone number")
	}

	switch {
	case strings.HasPrefix(cleaned, "+"):
		cleaned = "+" + strings.TrimLeft(cleaned[1:], "+")
	case strings.HasPrefix(cleaned, "00"):
		cleaned = "+" + cleaned[2:]
	case strings.HasPrefix(cleaned, "0"):
		cleaned = "+" + defaultCountryCode + cleaned[1:]
	default:
		cleaned = "+" + defaultCountryCode + cleaned
	}

	digits := cleaned[1:]
	if len(digits) < 8 || len(digits) > 15 {
		return "", appErrors.NewPermanentDelivery("phone number has invalid length")
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return "", appErrors.NewPermanentDelivery("phone number contains invalid characters")
		}
	}
	return cleaned, nil
}
