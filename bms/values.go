package bms

import (
	"fmt"
	"strconv"
	"strings"
)

// parseIntValue reads a decimal integer tag value. A sign is accepted
// because a few editors emit "#VOLWAV +100" style values.
func parseIntValue(raw string) (int, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, fmt.Errorf("empty numeric value")
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("bad integer %q", s)
	}
	return v, nil
}

// parseFloatValue reads a decimal number tag value, integer or fractional.
func parseFloatValue(raw string) (float64, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, fmt.Errorf("empty numeric value")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("bad number %q", s)
	}
	return v, nil
}

// parseSlots splits an event value into fixed-width 2-character codes.
// Codes are upper-cased so they compare equal to resource indexes. The
// codes themselves are opaque here; the only structural requirement is the
// even length.
func parseSlots(raw string) ([]Slot, error) {
	if raw == "" {
		return nil, fmt.Errorf("empty object string")
	}
	if len(raw)%2 != 0 {
		return nil, fmt.Errorf("odd-length object string %q", raw)
	}
	slots := make([]Slot, 0, len(raw)/2)
	for i := 0; i < len(raw); i += 2 {
		slots = append(slots, Slot(strings.ToUpper(raw[i:i+2])))
	}
	return slots, nil
}

// isBase36 reports whether s is made of digits and ASCII letters only.
// Channel names and family indexes use this alphabet, case-insensitively.
func isBase36(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= '0' && c <= '9':
		case c >= 'A' && c <= 'Z':
		case c >= 'a' && c <= 'z':
		default:
			return false
		}
	}
	return true
}

// isDigits reports whether s is a non-empty run of ASCII digits.
func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
