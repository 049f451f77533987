package handler

import (
	"errors"
	"net/http"

	"storefront/internal/middleware"
	"storefront/internal/model"
	"storefront/internal/service"

	"github.com/rs/zerolog"
)

const (
	checkoutPage = "/checkout"
	summaryPage  = "/checkout/summary"
)

// CheckoutHandler drives details submission and order confirmation.
type CheckoutHandler struct {
	service service.CheckoutService
	logger  zerolog.Logger
}

// NewCheckoutHandler creates a new checkout handler.
func NewCheckoutHandler(service service.CheckoutService, logger zerolog.Logger) *CheckoutHandler {
	return &CheckoutHandler{
		service: service,
		logger:  logger.With().Str("handler", "checkout").Logger(),
	}
}

// Prefill handles GET /api/checkout.
func (h *CheckoutHandler) Prefill(w http.ResponseWriter, r *http.Request) {
	details, err := h.service.Prefill(r.Context(), middleware.IdentityFrom(r.Context()))
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, details)
}

// Start handles POST /api/checkout.
func (h *CheckoutHandler) Start(w http.ResponseWriter, r *http.Request) {
	var details model.CheckoutDetails
	if err := decodeJSON(w, r, &details); err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	summary, err := h.service.Start(r.Context(), middleware.IdentityFrom(r.Context()), details)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// Summary handles GET /api/checkout/summary.
func (h *CheckoutHandler) Summary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.Summary(r.Context(), middleware.IdentityFrom(r.Context()))
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// Confirm handles POST /api/checkout/confirm.
func (h *CheckoutHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	order, err := h.service.Confirm(r.Context(), middleware.IdentityFrom(r.Context()))
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	writeJSON(w, http.StatusCreated, order)
}

// StartForm handles POST /checkout/start.
func (h *CheckoutHandler) StartForm(w http.ResponseWriter, r *http.Request) {
	if _, err := h.service.Start(r.Context(), middleware.IdentityFrom(r.Context()), formDetails(r)); err != nil {
		target := checkoutPage
		if model.KindOf(err) == model.KindConflict {
			target = cartPage
		}
		redirectError(w, r, target, err, h.logger)
		return
	}
	redirectSuccess(w, r, summaryPage, "Review your order")
}

// ConfirmForm handles POST /checkout/confirm.
func (h *CheckoutHandler) ConfirmForm(w http.ResponseWriter, r *http.Request) {
	order, err := h.service.Confirm(r.Context(), middleware.IdentityFrom(r.Context()))
	if err != nil {
		var target string
		switch {
		case model.KindOf(err) == model.KindConflict, errors.Is(err, model.ErrEmptyCart):
			target = cartPage
		case errors.Is(err, model.ErrCheckoutMissing):
			target = checkoutPage
		default:
			target = summaryPage
		}
		redirectError(w, r, target, err, h.logger)
		return
	}
	redirectSuccess(w, r, "/orders/"+order.ID.String(), "Order placed")
}
