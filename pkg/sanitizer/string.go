package sanitizer

import (
	"strings"
	"unicode"
)

func TrimAndNormalize(s string) string {
	s = strings.TrimSpace(s)

	if s == "" {
		return ""
	}

	var result strings.Builder
	var lastWasSpace bool

	for _, r := range s {
		if unicode.IsSpace(r) {
			if !lastWasSpace {
				result.WriteRune(' ')
				lastWasSpace = true
			}
		} else {
			result.WriteRune(r)
			lastWasSpace = false
		}
	}

	return result.String()
}

func NormalizeCity(city string) string {
	return TrimAndNormalize(city)
}

func NormalizeGender(gender string) string {
	return strings.ToLower(TrimAndNormalize(gender))
}

// NormalizeReason trims a free-text cancel reason and caps its length.
func NormalizeReason(reason string, maxRunes int) string {
	reason = TrimAndNormalize(reason)
	if r := []rune(reason); len(r) > maxRunes {
		return strings.TrimSpace(string(r[:maxRunes]))
	}
	return reason
}
