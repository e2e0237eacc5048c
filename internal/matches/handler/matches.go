package handler

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/julienschmidt/httprouter"

	"rentmate/internal/matches/service"
	apperrors "rentmate/pkg/errors"
	httputil "rentmate/pkg/http"
	"rentmate/pkg/logger"
	"rentmate/pkg/middleware"
	"rentmate/pkg/model"
)

type MatchesHandler struct {
	finder service.MatchFinder
	log    *logger.Logger
}

func NewMatchesHandler(finder service.MatchFinder, log *logger.Logger) *MatchesHandler {
	return &MatchesHandler{
		finder: finder,
		log:    log,
	}
}

type topMatchesResponse struct {
	httputil.Envelope
	*model.MatchResult
}

// Top is the unmetered search. Admins may search on behalf of user_id.
func (h *MatchesHandler) Top(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	id, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		h.writeError(w, "Top", apperrors.Unauthorized("Authentication required"))
		return
	}

	query := r.URL.Query()
	requesterID := id.UserID
	if asUser := strings.TrimSpace(query.Get("user_id")); asUser != "" && asUser != id.UserID {
		if !id.IsAdmin() {
			h.writeError(w, "Top", apperrors.Forbidden("You can only search as yourself"))
			return
		}
		requesterID = asUser
	}

	criteria, err := CriteriaFromQuery(query)
	if err != nil {
		h.writeError(w, "Top", err)
		return
	}

	result, err := h.finder.FindMatches(r.Context(), requesterID, criteria)
	if err != nil {
		h.writeError(w, "Top", err)
		return
	}

	if err := httputil.WriteJSON(w, http.StatusOK, topMatchesResponse{
		Envelope:    httputil.Success("Matches retrieved"),
		MatchResult: result,
	}); err != nil {
		h.log.Error("failed to write JSON response", "handler", "Top", "operation", "WriteJSON", "error", err)
	}
}

// CriteriaFromQuery reads search filters from URL parameters. Preferred
// genders may repeat or be comma separated.
func CriteriaFromQuery(query url.Values) (model.SearchCriteria, error) {
	c := model.SearchCriteria{
		City:               query.Get("city"),
		Gender:             query.Get("gender"),
		PresetLocationID:   query.Get("preset_location_id"),
		PresetLocationName: query.Get("preset_location_name"),
		BookingDate:        strings.TrimSpace(query.Get("booking_date")),
	}

	for _, v := range query["preferred_gender"] {
		for _, g := range strings.Split(v, ",") {
			if g = strings.TrimSpace(g); g != "" {
				c.PreferredGender = append(c.PreferredGender, g)
			}
		}
	}

	var err error
	optional := []struct {
		name string
		dst  **int
	}{
		{"age_min", &c.AgeMin},
		{"age_max", &c.AgeMax},
		{"booking_hour", &c.BookingHour},
		{"booking_hour_start", &c.BookingHourStart},
		{"booking_hour_end", &c.BookingHourEnd},
	}
	for _, o := range optional {
		if *o.dst, err = httputil.QueryOptionalInt(query.Get(o.name), o.name); err != nil {
			return model.SearchCriteria{}, err
		}
	}

	if c.Step, err = httputil.QueryInt(query.Get("step"), "step", 1); err != nil {
		return model.SearchCriteria{}, err
	}
	if c.Limit, err = httputil.QueryInt(query.Get("limit"), "limit", 0); err != nil {
		return model.SearchCriteria{}, err
	}
	if c.Limit < 0 {
		c.Limit = 0
	}

	return c, nil
}

func (h *MatchesHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func (h *MatchesHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/api/v1/matches/top", h.Top)
}
