// Package phone normalizes South African phone numbers to the canonical
// +27XXXXXXXXX form used as the key for OTPs and users.
package phone

import (
	"errors"
	"regexp"
	"strings"
)

const (
	countryPrefix = "+27"
	localPrefix   = "0"
)

var (
	ErrInvalidFormat = errors.New("invalid South African phone number")

	canonicalPattern = regexp.MustCompile(`^\+27\d{9}$`)
	strip            = regexp.MustCompile(`[^\d+]`)
)

type Carrier string

const (
	CarrierMobile  Carrier = "mobile"
	CarrierUnknown Carrier = "unknown"
)

// Normalize converts local (0821234567), international (+27821234567) and bare
// (27821234567) input to +27XXXXXXXXX. Spaces, dashes and brackets are ignored.
func Normalize(raw string) (string, error) {
	cleaned := strip.ReplaceAllString(strings.TrimSpace(raw), "")

	var normalized string
	switch {
	case strings.HasPrefix(cleaned, countryPrefix):
		normalized = cleaned
	case strings.HasPrefix(cleaned, localPrefix):
		normalized = countryPrefix + cleaned[len(localPrefix):]
	case strings.HasPrefix(cleaned, "27"):
		normalized = "+" + cleaned
	default:
		return "", ErrInvalidFormat
	}

	if !canonicalPattern.MatchString(normalized) {
		return "", ErrInvalidFormat
	}
	return normalized, nil
}

func IsValid(raw string) bool {
	_, err := Normalize(raw)
	return err == nil
}

// ToLocal returns the 0-prefixed national form.
func ToLocal(raw string) (string, error) {
	normalized, err := Normalize(raw)
	if err != nil {
		return "", err
	}
	return localPrefix + normalized[len(countryPrefix):], nil
}

// CarrierType treats the 6, 7 and 8 national prefixes as mobile.
func CarrierType(raw string) Carrier {
	normalized, err := Normalize(raw)
	if err != nil {
		return CarrierUnknown
	}
	switch normalized[len(countryPrefix)] {
	case '6', '7', '8':
		return CarrierMobile
	default:
		return CarrierUnknown
	}
}

// Mask keeps the country prefix and last three digits for logging.
func Mask(p string) string {
	if len(p) <= len(countryPrefix)+3 {
		return p
	}
	return p[:len(countryPrefix)] + strings.Repeat("*", len(p)-len(countryPrefix)-3) + p[len(p)-3:]
}
