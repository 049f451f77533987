package handler

import (
	"net/http"

	"storefront/internal/middleware"
	"storefront/internal/model"
	"storefront/internal/service"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const cartPage = "/cart"

// CartHandler exposes the caller's cart as JSON and as form posts.
type CartHandler struct {
	service service.CartService
	logger  zerolog.Logger
}

// NewCartHandler creates a new cart handler.
func NewCartHandler(service service.CartService, logger zerolog.Logger) *CartHandler {
	return &CartHandler{
		service: service,
		logger:  logger.With().Str("handler", "cart").Logger(),
	}
}

// View handles GET /api/cart.
func (h *CartHandler) View(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.View(r.Context(), middleware.IdentityFrom(r.Context()))
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// Clear handles DELETE /api/cart.
func (h *CartHandler) Clear(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Clear(r.Context(), middleware.IdentityFrom(r.Context())); err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AddLine handles POST /api/cart/items.
func (h *CartHandler) AddLine(w http.ResponseWriter, r *http.Request) {
	var req model.AddLineRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	line, err := h.service.AddLine(r.Context(), middleware.IdentityFrom(r.Context()), req.VariantID, req.Qty())
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	writeJSON(w, http.StatusCreated, line)
}

// UpdateLine handles PATCH and PUT /api/cart/items/{id}.
func (h *CartHandler) UpdateLine(w http.ResponseWriter, r *http.Request) {
	lineID, err := uuidParam(r, "id")
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	var req model.UpdateLineRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	line, err := h.service.UpdateLine(r.Context(), middleware.IdentityFrom(r.Context()), lineID, *req.Quantity)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, line)
}

// RemoveLine handles DELETE /api/cart/items/{id}.
func (h *CartHandler) RemoveLine(w http.ResponseWriter, r *http.Request) {
	lineID, err := uuidParam(r, "id")
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	if err := h.service.RemoveLine(r.Context(), middleware.IdentityFrom(r.Context()), lineID); err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AddForm handles POST /cart/add with variant_id and quantity fields.
func (h *CartHandler) AddForm(w http.ResponseWriter, r *http.Request) {
	variantID, err := uuid.Parse(r.PostFormValue("variant_id"))
	if err != nil {
		redirectError(w, r, cartPage, model.ErrVariantNotFound, h.logger)
		return
	}
	qty, err := formQuantity(r, "quantity")
	if err != nil {
		redirectError(w, r, cartPage, err, h.logger)
		return
	}

	if _, err := h.service.AddLine(r.Context(), middleware.IdentityFrom(r.Context()), variantID, qty); err != nil {
		redirectError(w, r, cartPage, err, h.logger)
		return
	}
	redirectSuccess(w, r, cartPage, "Item added to cart")
}

// UpdateForm handles POST /cart/items/{id}/update with a quantity field.
func (h *CartHandler) UpdateForm(w http.ResponseWriter, r *http.Request) {
	lineID, err := uuidParam(r, "id")
	if err != nil {
		redirectError(w, r, cartPage, model.ErrCartLineNotFound, h.logger)
		return
	}
	qty, err := formQuantity(r, "quantity")
	if err != nil {
		redirectError(w, r, cartPage, err, h.logger)
		return
	}

	if _, err := h.service.UpdateLine(r.Context(), middleware.IdentityFrom(r.Context()), lineID, qty); err != nil {
		redirectError(w, r, cartPage, err, h.logger)
		return
	}
	redirectSuccess(w, r, cartPage, "Cart updated")
}

// RemoveForm handles POST /cart/items/{id}/remove.
func (h *CartHandler) RemoveForm(w http.ResponseWriter, r *http.Request) {
	lineID, err := uuidParam(r, "id")
	if err != nil {
		redirectError(w, r, cartPage, model.ErrCartLineNotFound, h.logger)
		return
	}

	if err := h.service.RemoveLine(r.Context(), middleware.IdentityFrom(r.Context()), lineID); err != nil {
		redirectError(w, r, cartPage, err, h.logger)
		return
	}
	redirectSuccess(w, r, cartPage, "Item removed from cart")
}
