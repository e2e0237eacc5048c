package model

import "time"

type MatchOutcome string

const (
	OutcomeExact    MatchOutcome = "EXACT"
	OutcomeFallback MatchOutcome = "FALLBACK"
	OutcomeCity     MatchOutcome = "CITY"
	OutcomeEmpty    MatchOutcome = "EMPTY"
)

// SearchCriteria is what a requester asks for. Every filter is optional
// except the city, which may also come from the requester's profile.
type SearchCriteria struct {
	City               string   `json:"city"`
	AgeMin             *int     `json:"age_min,omitempty" validate:"omitempty,min=18,max=120"`
	AgeMax             *int     `json:"age_max,omitempty" validate:"omitempty,min=18,max=120"`
	Gender             string   `json:"gender,omitempty"`
	PreferredGender    []string `json:"preferred_gender,omitempty"`
	PresetLocationID   string   `json:"preset_location_id,omitempty"`
	PresetLocationName string   `json:"preset_location_name,omitempty"`
	BookingDate        string   `json:"booking_date,omitempty" validate:"omitempty,booking_date"`
	BookingHour        *int     `json:"booking_hour,omitempty" validate:"omitempty,min=0,max=23"`
	BookingHourStart   *int     `json:"booking_hour_start,omitempty" validate:"omitempty,min=0,max=23"`
	BookingHourEnd     *int     `json:"booking_hour_end,omitempty" validate:"omitempty,min=0,max=23"`
	Limit              int      `json:"limit,omitempty" validate:"omitempty,min=1"`
	Step               int      `json:"step,omitempty"`
}

// CandidateQuery is a fully resolved user search. Zero-valued fields do not
// filter.
type CandidateQuery struct {
	City               string
	Genders            []string
	AgeRange           *AgeRange
	PresetLocationID   string
	PresetLocationName string
	Weekday            string
	Hour               *int
	ExcludeIDs         []string
	SortByLastSeen     bool
	Skip               int64
	Limit              int
}

// CityOnly drops every filter except city and the exclusions.
func (q CandidateQuery) CityOnly() CandidateQuery {
	return CandidateQuery{
		City:       q.City,
		ExcludeIDs: q.ExcludeIDs,
		Skip:       q.Skip,
		Limit:      q.Limit,
	}
}

type CandidateSummary struct {
	ID              string           `json:"id"`
	Name            string           `json:"name"`
	Age             int              `json:"age,omitempty"`
	Image           string           `json:"image,omitempty"`
	Bio             string           `json:"bio,omitempty"`
	Interests       []string         `json:"interests,omitempty"`
	PresetLocations []PresetLocation `json:"preset_locations,omitempty"`
	Availability    map[string][]int `json:"availability,omitempty"`
	LastSeen        *time.Time       `json:"last_seen,omitempty"`
}

type MatchResult struct {
	Candidates []CandidateSummary `json:"candidates"`
	Outcome    MatchOutcome       `json:"outcome"`
	City       string             `json:"city"`
	Step       int                `json:"step"`
	Limit      int                `json:"limit"`
}

type InitiateResult struct {
	Matches []CandidateSummary `json:"matches"`
	Outcome MatchOutcome       `json:"outcome"`
	Charged int                `json:"charged"`
	Balance int                `json:"balance"`
}
