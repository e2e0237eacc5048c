package handler

import (
	"net/http"

	"github.com/julienschmidt/httprouter"

	"rentmate/internal/rentals/service"
	"rentmate/pkg/config"
	httputil "rentmate/pkg/http"
	"rentmate/pkg/logger"
	"rentmate/pkg/middleware"
	"rentmate/pkg/model"
)

// AdminHandler exposes the ledger's moderation transitions and listings.
// Every route is wrapped in middleware.AdminOnly.
type AdminHandler struct {
	ledger service.RentalLedger
	orders service.OrdersService
	cfg    *config.Config
	log    *logger.Logger
}

func NewAdminHandler(ledger service.RentalLedger, orders service.OrdersService, cfg *config.Config) *AdminHandler {
	return &AdminHandler{
		ledger: ledger,
		orders: orders,
		cfg:    cfg,
		log:    cfg.Log,
	}
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

type transitionResponse struct {
	httputil.Envelope
	Rental   *model.Rental   `json:"rental"`
	Refunded int             `json:"refunded,omitempty"`
	Warnings []model.Warning `json:"warnings,omitempty"`
}

type rentalsPage struct {
	httputil.Envelope
	Rentals []model.AdminRentalView `json:"rentals"`
	Total   int64                   `json:"total"`
	Step    int                     `json:"step"`
	Limit   int                     `json:"limit"`
}

func (h *AdminHandler) ConfirmStatus(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	res, err := h.ledger.MarkConfirmed(r.Context(), ps.ByName("id"))
	h.writeTransition(w, "ConfirmStatus", "Rental confirmed", res, err)
}

func (h *AdminHandler) Cancel(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var req cancelRequest
	if err := httputil.DecodeJSON(r, &req, true); err != nil {
		h.writeError(w, "Cancel", err)
		return
	}

	res, err := h.ledger.Cancel(r.Context(), ps.ByName("id"), req.Reason)
	h.writeTransition(w, "Cancel", "Rental cancelled", res, err)
}

func (h *AdminHandler) Complete(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	res, err := h.ledger.Complete(r.Context(), ps.ByName("id"))
	h.writeTransition(w, "Complete", "Rental completed", res, err)
}

func (h *AdminHandler) Active(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	h.list(w, r, "Active", model.ActiveStatuses)
}

func (h *AdminHandler) Pending(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	h.list(w, r, "Pending", []string{model.StatusPending})
}

func (h *AdminHandler) list(w http.ResponseWriter, r *http.Request, handler string, statuses []string) {
	step, limit, err := httputil.ExtractStepLimit(r, h.cfg.DefaultPageLimit, h.cfg.MaxPageLimit)
	if err != nil {
		h.writeError(w, handler, err)
		return
	}

	query := r.URL.Query()
	views, total, err := h.orders.ListRentals(r.Context(), model.RentalFilter{
		Statuses:         statuses,
		City:             query.Get("city"),
		PresetLocationID: query.Get("preset_location_id"),
	}, step, limit)
	if err != nil {
		h.writeError(w, handler, err)
		return
	}

	if err := httputil.WriteJSON(w, http.StatusOK, rentalsPage{
		Envelope: httputil.Success("Rentals retrieved"),
		Rentals:  views,
		Total:    total,
		Step:     step,
		Limit:    limit,
	}); err != nil {
		h.log.Error("failed to write JSON response", "handler", handler, "operation", "WriteJSON", "error", err)
	}
}

func (h *AdminHandler) writeTransition(w http.ResponseWriter, handler, msg string, res *model.RentalTransitionResult, err error) {
	if err != nil {
		h.writeError(w, handler, err)
		return
	}

	if err := httputil.WriteJSON(w, http.StatusOK, transitionResponse{
		Envelope: httputil.Success(msg),
		Rental:   res.Rental,
		Refunded: res.Refunded,
		Warnings: res.Warnings,
	}); err != nil {
		h.log.Error("failed to write JSON response", "handler", handler, "operation", "WriteJSON", "error", err)
	}
}

func (h *AdminHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func (h *AdminHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/admin/rentals/:id/confirm", middleware.AdminOnly(h.ConfirmStatus))
	router.POST("/api/v1/admin/rentals/:id/cancel", middleware.AdminOnly(h.Cancel))
	router.POST("/api/v1/admin/rentals/:id/complete", middleware.AdminOnly(h.Complete))
	router.GET("/api/v1/admin/rentals/active", middleware.AdminOnly(h.Active))
	router.GET("/api/v1/admin/rentals/pending", middleware.AdminOnly(h.Pending))
}
