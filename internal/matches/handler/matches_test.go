package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"rentmate/pkg/logger"
	"rentmate/pkg/middleware"
	"rentmate/pkg/model"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockFinder struct {
	requesterID string
	criteria    model.SearchCriteria
	result      *model.MatchResult
	err         error
}

func (m *mockFinder) FindMatches(_ context.Context, requesterID string, criteria model.SearchCriteria) (*model.MatchResult, error) {
	m.requesterID = requesterID
	m.criteria = criteria
	return m.result, m.err
}

func serve(h *MatchesHandler, target string, id *middleware.Identity) *httptest.ResponseRecorder {
	router := httprouter.New()
	h.RegisterRoutes(router)

	req := httptest.NewRequest(http.MethodGet, target, nil)
	if id != nil {
		req = req.WithContext(middleware.WithIdentity(req.Context(), *id))
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestTop(t *testing.T) {
	finder := &mockFinder{result: &model.MatchResult{
		Candidates: []model.CandidateSummary{{ID: "c1", Name: "Anu"}},
		Outcome:    model.OutcomeExact,
		City:       "Kochi",
		Step:       1,
		Limit:      3,
	}}
	h := NewMatchesHandler(finder, logger.Discard())

	w := serve(h, "/api/v1/matches/top?city=Kochi&booking_date=2024-06-01&booking_hour=10&preferred_gender=male,female", &middleware.Identity{UserID: "u1"})
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "success", body["status"])
	assert.Equal(t, "EXACT", body["outcome"])
	assert.Len(t, body["candidates"], 1)

	assert.Equal(t, "u1", finder.requesterID)
	assert.Equal(t, "Kochi", finder.criteria.City)
	require.NotNil(t, finder.criteria.BookingHour)
	assert.Equal(t, 10, *finder.criteria.BookingHour)
	assert.Equal(t, []string{"male", "female"}, finder.criteria.PreferredGender)
}

func TestTop_Unauthenticated(t *testing.T) {
	h := NewMatchesHandler(&mockFinder{}, logger.Discard())

	w := serve(h, "/api/v1/matches/top", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestTop_OnBehalfOf(t *testing.T) {
	finder := &mockFinder{result: &model.MatchResult{Outcome: model.OutcomeEmpty}}
	h := NewMatchesHandler(finder, logger.Discard())

	w := serve(h, "/api/v1/matches/top?user_id=u2", &middleware.Identity{UserID: "u1"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = serve(h, "/api/v1/matches/top?user_id=u2", &middleware.Identity{UserID: "admin", Role: middleware.RoleAdmin})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "u2", finder.requesterID)
}

func TestTop_BadQuery(t *testing.T) {
	h := NewMatchesHandler(&mockFinder{}, logger.Discard())

	w := serve(h, "/api/v1/matches/top?booking_hour=ten", &middleware.Identity{UserID: "u1"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "error", body["status"])
	assert.Equal(t, "INVALID_INPUT", body["code"])
}

func TestCriteriaFromQuery(t *testing.T) {
	q := url.Values{
		"city":               {" Kochi "},
		"age_min":            {"21"},
		"age_max":            {"30"},
		"booking_hour_start": {"9"},
		"booking_hour_end":   {"12"},
		"preferred_gender":   {"female", "male, other"},
		"step":               {"2"},
		"limit":              {"-4"},
	}

	c, err := CriteriaFromQuery(q)
	require.NoError(t, err)
	assert.Equal(t, " Kochi ", c.City, "normalization belongs to the finder")
	assert.Equal(t, 21, *c.AgeMin)
	assert.Equal(t, 30, *c.AgeMax)
	assert.Nil(t, c.BookingHour)
	assert.Equal(t, 9, *c.BookingHourStart)
	assert.Equal(t, 12, *c.BookingHourEnd)
	assert.Equal(t, []string{"female", "male", "other"}, c.PreferredGender)
	assert.Equal(t, 2, c.Step)
	assert.Zero(t, c.Limit)
}
