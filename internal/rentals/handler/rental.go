package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/julienschmidt/httprouter"

	"rentmate/internal/rentals/service"
	"rentmate/pkg/config"
	apperrors "rentmate/pkg/errors"
	httputil "rentmate/pkg/http"
	"rentmate/pkg/logger"
	"rentmate/pkg/middleware"
	"rentmate/pkg/model"
)

type RentalHandler struct {
	orchestrator service.BookingOrchestrator
	ledger       service.RentalLedger
	orders       service.OrdersService
	cfg          *config.Config
	log          *logger.Logger
}

func NewRentalHandler(
	orchestrator service.BookingOrchestrator,
	ledger service.RentalLedger,
	orders service.OrdersService,
	cfg *config.Config,
) *RentalHandler {
	return &RentalHandler{
		orchestrator: orchestrator,
		ledger:       ledger,
		orders:       orders,
		cfg:          cfg,
		log:          cfg.Log,
	}
}

type ageBounds struct {
	Min *int `json:"min,omitempty"`
	Max *int `json:"max,omitempty"`
}

type initiateRequest struct {
	Location         model.RentalLocation `json:"location"`
	BookingDate      string               `json:"booking_date"`
	BookingHour      *int                 `json:"booking_hour,omitempty"`
	BookingHourStart *int                 `json:"booking_hour_start,omitempty"`
	BookingHourEnd   *int                 `json:"booking_hour_end,omitempty"`
	PreferredAge     *ageBounds           `json:"preferred_age,omitempty"`
	PreferredGender  []string             `json:"preferred_gender,omitempty"`
	Gender           string               `json:"gender,omitempty"`
	Limit            int                  `json:"limit,omitempty"`
}

func (req initiateRequest) criteria() model.SearchCriteria {
	c := model.SearchCriteria{
		City:               req.Location.City,
		PresetLocationID:   req.Location.PresetLocationID,
		PresetLocationName: req.Location.PresetLocationName,
		BookingDate:        strings.TrimSpace(req.BookingDate),
		BookingHour:        req.BookingHour,
		BookingHourStart:   req.BookingHourStart,
		BookingHourEnd:     req.BookingHourEnd,
		PreferredGender:    req.PreferredGender,
		Gender:             req.Gender,
		Limit:              max(0, req.Limit),
	}
	if req.PreferredAge != nil {
		c.AgeMin = req.PreferredAge.Min
		c.AgeMax = req.PreferredAge.Max
	}
	return c
}

type initiateResponse struct {
	httputil.Envelope
	*model.InitiateResult
}

type confirmRequest struct {
	RenterID      string               `json:"renter_id,omitempty"`
	HostID        string               `json:"host_id"`
	ScheduledAt   *time.Time           `json:"scheduled_at,omitempty"`
	BookingDate   string               `json:"booking_date"`
	BookingHour   *int                 `json:"booking_hour"`
	DurationHours int                  `json:"duration_hours,omitempty"`
	CreditsUsed   int                  `json:"credits_used,omitempty"`
	Location      model.RentalLocation `json:"location"`
}

type confirmResponse struct {
	httputil.Envelope
	RentalID string          `json:"rental_id"`
	Status   string          `json:"rental_status"`
	Warnings []model.Warning `json:"warnings,omitempty"`
}

type verifyOtpRequest struct {
	RentalID string `json:"rental_id"`
	UserID   string `json:"user_id"`
	Otp      string `json:"otp"`
}

type verifyOtpResponse struct {
	httputil.Envelope
	RentalID string `json:"rental_id"`
	Status   string `json:"rental_status"`
}

type ordersResponse struct {
	httputil.Envelope
	*model.UserOrders
}

func (h *RentalHandler) Initiate(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	id, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		h.writeError(w, "Initiate", apperrors.Unauthorized("Authentication required"))
		return
	}

	var req initiateRequest
	if err := httputil.DecodeJSON(r, &req, false); err != nil {
		h.writeError(w, "Initiate", err)
		return
	}

	result, err := h.orchestrator.Initiate(r.Context(), id.UserID, req.criteria())
	if err != nil {
		h.writeError(w, "Initiate", err)
		return
	}

	msg := "Matches found"
	if len(result.Matches) == 0 {
		msg = "No matches found"
	}
	if err := httputil.WriteJSON(w, http.StatusOK, initiateResponse{
		Envelope:       httputil.Success(msg),
		InitiateResult: result,
	}); err != nil {
		h.log.Error("failed to write JSON response", "handler", "Initiate", "operation", "WriteJSON", "error", err)
	}
}

// Confirm books the caller as renter. Admins may name another renter_id.
func (h *RentalHandler) Confirm(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	id, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		h.writeError(w, "Confirm", apperrors.Unauthorized("Authentication required"))
		return
	}

	var req confirmRequest
	if err := httputil.DecodeJSON(r, &req, false); err != nil {
		h.writeError(w, "Confirm", err)
		return
	}

	renterID := strings.TrimSpace(req.RenterID)
	if renterID == "" {
		renterID = id.UserID
	}

	result, err := h.orchestrator.Confirm(r.Context(), id.Caller(), &model.ConfirmRentalInput{
		RenterID:      renterID,
		HostID:        req.HostID,
		ScheduledAt:   req.ScheduledAt,
		BookingDate:   req.BookingDate,
		BookingHour:   req.BookingHour,
		DurationHours: req.DurationHours,
		CreditsUsed:   req.CreditsUsed,
		Location:      req.Location,
	})
	if err != nil {
		h.writeError(w, "Confirm", err)
		return
	}

	if err := httputil.WriteJSON(w, http.StatusCreated, confirmResponse{
		Envelope: httputil.Success("Rental confirmed"),
		RentalID: result.Rental.ID,
		Status:   result.Rental.Status,
		Warnings: result.Warnings,
	}); err != nil {
		h.log.Error("failed to write created response", "handler", "Confirm", "operation", "WriteJSON", "error", err)
	}
}

func (h *RentalHandler) VerifyOtp(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	id, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		h.writeError(w, "VerifyOtp", apperrors.Unauthorized("Authentication required"))
		return
	}

	var req verifyOtpRequest
	if err := httputil.DecodeJSON(r, &req, false); err != nil {
		h.writeError(w, "VerifyOtp", err)
		return
	}

	userID := strings.TrimSpace(req.UserID)
	switch {
	case userID == "" && !id.IsAdmin():
		userID = id.UserID
	case userID != "" && !id.Caller().CanActFor(userID):
		h.writeError(w, "VerifyOtp", apperrors.Forbidden("user_id must match the authenticated user"))
		return
	}

	rental, err := h.ledger.VerifyOtp(r.Context(), strings.TrimSpace(req.RentalID), userID, req.Otp)
	if err != nil {
		h.writeError(w, "VerifyOtp", err)
		return
	}

	if err := httputil.WriteJSON(w, http.StatusOK, verifyOtpResponse{
		Envelope: httputil.Success("OTP verified"),
		RentalID: rental.ID,
		Status:   rental.Status,
	}); err != nil {
		h.log.Error("failed to write JSON response", "handler", "VerifyOtp", "operation", "WriteJSON", "error", err)
	}
}

func (h *RentalHandler) UserOrders(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		h.writeError(w, "UserOrders", apperrors.Unauthorized("Authentication required"))
		return
	}

	step, limit, err := httputil.ExtractStepLimit(r, h.cfg.DefaultPageLimit, h.cfg.MaxPageLimit)
	if err != nil {
		h.writeError(w, "UserOrders", err)
		return
	}

	orders, err := h.orders.ListUserOrders(r.Context(), id.Caller(), ps.ByName("userId"), step, limit)
	if err != nil {
		h.writeError(w, "UserOrders", err)
		return
	}

	if err := httputil.WriteJSON(w, http.StatusOK, ordersResponse{
		Envelope:   httputil.Success("Orders retrieved"),
		UserOrders: orders,
	}); err != nil {
		h.log.Error("failed to write JSON response", "handler", "UserOrders", "operation", "WriteJSON", "error", err)
	}
}

func (h *RentalHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if appErr := apperrors.AsAppError(err); appErr.HTTPStatus >= http.StatusInternalServerError {
		h.log.Error("Request failed", "handler", handler, "code", appErr.Code, "error", err)
	}
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func (h *RentalHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/rentals/initiate", h.Initiate)
	router.POST("/api/v1/rentals/confirm", h.Confirm)
	router.POST("/api/v1/rentals/otp-verify", h.VerifyOtp)
	router.GET("/api/v1/rentals/user/:userId/orders", h.UserOrders)
}
