package locale

import (
	"strings"
	"time"

	"github.com/nyaruka/phonenumbers"
)

func InferCountryFromPhone(phone string) *Country {
	normalized := strings.TrimSpace(phone)
	if normalized == "" {
		return nil
	}
	if !strings.HasPrefix(normalized, "+") {
		normalized = "+" + normalized
	}

	parsed, err := phonenumbers.Parse(normalized, "")
	if err != nil {
		return nil
	}

	region := phonenumbers.GetRegionCodeForNumber(parsed)
	if country, ok := Countries[region]; ok {
		return &country
	}

	return nil
}

func InferTimezoneFromPhone(phone string) string {
	if country := InferCountryFromPhone(phone); country != nil {
		return country.DefaultTimezone
	}
	return DefaultTimezone
}

// LocationForPhone resolves the zone a user's calendar day is reckoned in.
// Unknown numbers fall back to fallback.
func LocationForPhone(phone string, fallback *time.Location) *time.Location {
	country := InferCountryFromPhone(phone)
	if country == nil {
		return fallback
	}
	loc, err := time.LoadLocation(country.DefaultTimezone)
	if err != nil {
		return fallback
	}
	return loc
}
