package locale

import (
	"strings"
)

const (
	DefaultTimezone = "UTC"
)

type Country struct {
	Code            string   // ISO 3166-1 alpha-2 country code (e.g., "IN", "US")
	Name            string   // Human-readable country name
	CallingCode     int      // E.164 country calling code
	DefaultTimezone string   // IANA timezone identifier (e.g., "Asia/Kolkata")
	Timezones       []string // Accepted aliases when detecting the region from a zone
}

var (
	Countries = map[string]Country{
		"IN": {
			Code:            "IN",
			Name:            "India",
			CallingCode:     91,
			DefaultTimezone: "Asia/Kolkata",
			Timezones:       []string{"Asia/Kolkata", "Asia/Calcutta"},
		},
		"US": {
			Code:            "US",
			Name:            "United States",
			CallingCode:     1,
			DefaultTimezone: "America/New_York",
			Timezones:       []string{"America/New_York", "America/Los_Angeles", "America/Chicago", "US/Eastern", "US/Pacific"},
		},
		"GB": {
			Code:            "GB",
			Name:            "United Kingdom",
			CallingCode:     44,
			DefaultTimezone: "Europe/London",
			Timezones:       []string{"Europe/London", "GB"},
		},
		"AE": {
			Code:            "AE",
			Name:            "United Arab Emirates",
			CallingCode:     971,
			DefaultTimezone: "Asia/Dubai",
			Timezones:       []string{"Asia/Dubai"},
		},
	}
)

// DetectRegion maps a timezone name to a country code, or "" if unknown.
func DetectRegion(tz string) string {
	for code, country := range Countries {
		for _, z := range country.Timezones {
			if strings.EqualFold(tz, z) {
				return code
			}
		}
	}
	return ""
}
