package utils

import (
	"fmt"
	"strings"
)

// NormalizeCurrencyCode upper-cases and trims a currency code and checks it is
// three ASCII letters.
func NormalizeCurrencyCode(code string) (string, error) {
	normalized := strings.ToUpper(strings.TrimSpace(code))
	if len(normalized) != 3 {
		return "", fmt.Errorf("currency code %q must be 3 letters", code)
	}
	for _, r := range normalized {
		if r < 'A' || r > 'Z' {
			return "", fmt.Errorf("currency code %q must be 3 letters", code)
		}
	}
	return normalized, nil
}
