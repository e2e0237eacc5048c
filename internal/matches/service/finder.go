package service

import (
	"context"
	"errors"
	"slices"

	rentalsrepo "rentmate/internal/rentals/repository"
	"rentmate/internal/rentals/validator"
	userserrors "rentmate/internal/users/errors"
	usersrepo "rentmate/internal/users/repository"
	"rentmate/pkg/config"
	apperrors "rentmate/pkg/errors"
	"rentmate/pkg/model"
	"rentmate/pkg/sanitizer"
)

// MatchFinder searches the user directory for people a requester can meet.
type MatchFinder interface {
	FindMatches(ctx context.Context, requesterID string, criteria model.SearchCriteria) (*model.MatchResult, error)
}

type matchFinder struct {
	users     usersrepo.UserRepository
	claims    rentalsrepo.SlotClaimRepository
	validator *validator.RentalValidator
	cfg       *config.Config
}

func NewMatchFinder(
	users usersrepo.UserRepository,
	claims rentalsrepo.SlotClaimRepository,
	validator *validator.RentalValidator,
	cfg *config.Config,
) MatchFinder {
	return &matchFinder{
		users:     users,
		claims:    claims,
		validator: validator,
		cfg:       cfg,
	}
}

// slot is the resolved booking window of a search.
type slot struct {
	date    string
	weekday string
	hours   []int
}

func (f *matchFinder) FindMatches(ctx context.Context, requesterID string, criteria model.SearchCriteria) (*model.MatchResult, error) {
	if err := f.validator.ValidateCriteria(&criteria); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return nil, apperrors.Validation("Search validation failed", verrs.Details())
		}
		return nil, apperrors.Validation("Search validation failed", map[string]any{"error": err.Error()})
	}

	requester, err := f.users.FindByID(ctx, requesterID)
	if err != nil {
		if errors.Is(err, userserrors.ErrNotFound) || errors.Is(err, userserrors.ErrInvalidID) {
			return nil, apperrors.NotFoundWithID("User", requesterID)
		}
		return nil, apperrors.Internal("Failed to load requester", err)
	}

	city := sanitizer.NormalizeCity(criteria.City)
	if city == "" {
		city = sanitizer.NormalizeCity(requester.Profile.City)
	}
	if city == "" {
		return nil, apperrors.FieldRequired("city")
	}

	sl, err := resolveSlot(criteria)
	if err != nil {
		return nil, err
	}

	step := config.NormalizeStep(criteria.Step)
	limit := config.NormalizeLimit(criteria.Limit, f.cfg.DefaultMatchLimit, f.cfg.MaxMatchLimit)
	skip := config.SkipFor(step, limit)

	base := model.CandidateQuery{
		City:               city,
		Genders:            genderSet(criteria, requester),
		AgeRange:           ageRange(criteria, requester),
		PresetLocationID:   sanitizer.TrimAndNormalize(criteria.PresetLocationID),
		PresetLocationName: sanitizer.TrimAndNormalize(criteria.PresetLocationName),
		Weekday:            sl.weekday,
		SortByLastSeen:     true,
	}

	busy, err := f.busyByHour(ctx, sl)
	if err != nil {
		return nil, err
	}

	found, err := f.exact(ctx, requester.ID, base, sl, busy, skip, limit)
	if err != nil {
		return nil, err
	}

	outcome := model.OutcomeExact
	if len(found) == 0 {
		fallback := base.CityOnly()
		fallback.ExcludeIDs = append([]string{requester.ID}, busyAtEveryHour(sl, busy)...)
		fallback.Skip = skip
		fallback.Limit = limit

		found, err = f.users.FindCandidates(ctx, fallback)
		if err != nil {
			return nil, apperrors.Internal("Failed to search users", err)
		}
		outcome = model.OutcomeFallback
		if len(found) == 0 {
			outcome = model.OutcomeEmpty
		}
	}

	candidates := make([]model.CandidateSummary, 0, len(found))
	for _, u := range found {
		candidates = append(candidates, u.CandidateSummary())
	}

	f.cfg.Log.Debug("Match search finished",
		"requester_id", requester.ID,
		"city", city,
		"booking_date", sl.date,
		"hours", sl.hours,
		"outcome", outcome,
		"count", len(candidates),
	)

	return &model.MatchResult{
		Candidates: candidates,
		Outcome:    outcome,
		City:       city,
		Step:       step,
		Limit:      limit,
	}, nil
}

// exact runs the full-filter tier. With several hours the first hour a user
// is free in claims them, so nobody appears twice.
func (f *matchFinder) exact(ctx context.Context, requesterID string, base model.CandidateQuery, sl slot, busy map[int][]string, skip int64, limit int) ([]*model.User, error) {
	if len(sl.hours) == 0 {
		q := base
		q.ExcludeIDs = []string{requesterID}
		q.Skip = skip
		q.Limit = limit

		users, err := f.users.FindCandidates(ctx, q)
		if err != nil {
			return nil, apperrors.Internal("Failed to search users", err)
		}
		return users, nil
	}

	want := int(skip) + limit
	var acc []*model.User
	seen := []string{requesterID}

	for _, hour := range sl.hours {
		if len(acc) >= want {
			break
		}

		q := base
		q.Hour = &hour
		q.ExcludeIDs = append(slices.Clone(seen), busy[hour]...)
		q.Limit = want - len(acc)

		users, err := f.users.FindCandidates(ctx, q)
		if err != nil {
			return nil, apperrors.Internal("Failed to search users", err)
		}
		for _, u := range users {
			acc = append(acc, u)
			seen = append(seen, u.ID)
		}
	}

	if int64(len(acc)) <= skip {
		return nil, nil
	}
	return acc[skip:], nil
}

func (f *matchFinder) busyByHour(ctx context.Context, sl slot) (map[int][]string, error) {
	busy := make(map[int][]string, len(sl.hours))
	for _, hour := range sl.hours {
		ids, err := f.claims.ClaimedUserIDs(ctx, sl.date, hour)
		if err != nil {
			return nil, apperrors.Internal("Failed to load booked slots", err)
		}
		busy[hour] = ids
	}
	return busy, nil
}

// busyAtEveryHour lists users booked across the whole window. Anyone free in
// at least one requested hour stays eligible for the fallback.
func busyAtEveryHour(sl slot, busy map[int][]string) []string {
	if len(sl.hours) == 0 {
		return nil
	}

	out := slices.Clone(busy[sl.hours[0]])
	for _, hour := range sl.hours[1:] {
		out = slices.DeleteFunc(out, func(id string) bool {
			return !slices.Contains(busy[hour], id)
		})
	}
	return out
}

func resolveSlot(c model.SearchCriteria) (slot, error) {
	hasRange := c.BookingHourStart != nil || c.BookingHourEnd != nil

	if c.BookingDate == "" {
		if c.BookingHour != nil || hasRange {
			return slot{}, apperrors.FieldRequired("booking_date")
		}
		return slot{}, nil
	}

	weekday, err := model.WeekdayKey(c.BookingDate)
	if err != nil {
		return slot{}, apperrors.Validation("Search validation failed", map[string]any{"booking_date": "must be a date in YYYY-MM-DD format"})
	}
	sl := slot{date: c.BookingDate, weekday: weekday}

	switch {
	case c.BookingHour != nil:
		sl.hours = []int{*c.BookingHour}
	case c.BookingHourStart != nil && c.BookingHourEnd != nil:
		start, end := *c.BookingHourStart, *c.BookingHourEnd
		if start > end {
			return slot{}, apperrors.Validation("Search validation failed", map[string]any{
				"booking_hour_end": "must not be before booking_hour_start",
			})
		}
		for h := start; h <= end; h++ {
			sl.hours = append(sl.hours, h)
		}
	case hasRange:
		return slot{}, apperrors.Validation("Search validation failed", map[string]any{
			"booking_hour_start": "start and end must be given together",
		})
	default:
		return slot{}, apperrors.FieldRequired("booking_hour")
	}

	return sl, nil
}

func genderSet(c model.SearchCriteria, requester *model.User) []string {
	switch {
	case sanitizer.TrimAndNormalize(c.Gender) != "":
		return []string{sanitizer.NormalizeGender(c.Gender)}
	case len(c.PreferredGender) > 0:
		return sanitizer.NormalizeGenders(c.PreferredGender)
	default:
		return sanitizer.NormalizeGenders(requester.Profile.PreferredGender)
	}
}

func ageRange(c model.SearchCriteria, requester *model.User) *model.AgeRange {
	if c.AgeMin != nil || c.AgeMax != nil {
		r := &model.AgeRange{}
		if c.AgeMin != nil {
			r.Min = *c.AgeMin
		}
		if c.AgeMax != nil {
			r.Max = *c.AgeMax
		}
		return r
	}
	if requester.Profile.AgeRange != nil {
		r := *requester.Profile.AgeRange
		return &r
	}
	return nil
}
