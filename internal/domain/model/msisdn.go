package model

import (
	"strings"

	"remo-checkout/internal/domain"
)

const (
	countryCode = "254"
	msisdnLen   = 12 // country code + 9-digit subscriber number
)

// MSISDN is a Kenyan mobile number canonicalized to 254XXXXXXXXX, the only
// format the STK-push gateway accepts.
type MSISDN struct {
	value string
}

// NewMSISDN validates and canonicalizes a user-entered phone number.
//
// The rule is the lenient one: strip whitespace, hyphens and a leading "+";
// replace a national trunk "0" with "254"; prepend "254" when absent.
// Anything that does not end up as exactly 12 digits is rejected.
func NewMSISDN(raw string) (MSISDN, error) {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '-':
			return -1
		}
		return r
	}, strings.TrimSpace(raw))
	cleaned = strings.TrimPrefix(cleaned, "+")

	if cleaned == "" {
		return MSISDN{}, domain.ErrInvalidPhoneNumber
	}

	switch {
	case strings.HasPrefix(cleaned, "0"):
		cleaned = countryCode + cleaned[1:]
	case !strings.HasPrefix(cleaned, countryCode):
		cleaned = countryCode + cleaned
	}

	if len(cleaned) != msisdnLen {
		return MSISDN{}, domain.ErrInvalidPhoneNumber
	}
	for _, r := range cleaned {
		if r < '0' || r > '9' {
			return MSISDN{}, domain.ErrInvalidPhoneNumber
		}
	}
	return MSISDN{value: cleaned}, nil
}

// String returns the canonical 254XXXXXXXXX form.
func (m MSISDN) String() string { return m.value }

func (m MSISDN) IsZero() bool { return m.value == "" }
