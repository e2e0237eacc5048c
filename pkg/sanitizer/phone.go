package sanitizer

import (
	"strconv"
	"strings"

	"github.com/nyaruka/phonenumbers"
)

const DefaultRegion = "IN"

// NormalizePhone returns phone in E.164, or "" when it is not a valid number.
// Numbers without a country code are read as DefaultRegion numbers.
func NormalizePhone(phone string) string {
	phone = strings.TrimSpace(phone)

	if phone == "" {
		return ""
	}

	parsed, err := phonenumbers.Parse(phone, DefaultRegion)
	if err != nil || !phonenumbers.IsValidNumber(parsed) {
		return ""
	}
	return phonenumbers.Format(parsed, phonenumbers.E164)
}

// MaskPhone keeps the country code and the last two digits, for logs.
func MaskPhone(phone string) string {
	normalized := NormalizePhone(phone)
	if normalized == "" {
		return "***"
	}

	parsed, err := phonenumbers.Parse(normalized, DefaultRegion)
	if err != nil {
		return "***"
	}

	prefix := "+" + strconv.Itoa(int(parsed.GetCountryCode()))
	hidden := len(normalized) - len(prefix) - 2
	if hidden < 0 {
		return "***"
	}
	return prefix + strings.Repeat("*", hidden) + normalized[len(normalized)-2:]
}
