package handler

import (
	"net/http"

	"storefront/internal/model"
	"storefront/internal/service"

	"github.com/rs/zerolog"
)

// StaffHandler serves catalogue and order administration behind the staff API key.
type StaffHandler struct {
	catalog service.CatalogService
	orders  service.OrderService
	logger  zerolog.Logger
}

// NewStaffHandler creates a new staff handler.
func NewStaffHandler(catalog service.CatalogService, orders service.OrderService, logger zerolog.Logger) *StaffHandler {
	return &StaffHandler{
		catalog: catalog,
		orders:  orders,
		logger:  logger.With().Str("handler", "staff").Logger(),
	}
}

// CreateProduct handles POST /api/staff/products.
func (h *StaffHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req model.CreateProductRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	product, err := h.catalog.CreateProduct(r.Context(), &req)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	writeJSON(w, http.StatusCreated, product)
}

// CreateVariant handles POST /api/staff/products/{id}/variants.
func (h *StaffHandler) CreateVariant(w http.ResponseWriter, r *http.Request) {
	productID, err := uuidParam(r, "id")
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	var req model.CreateVariantRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	variant, err := h.catalog.CreateVariant(r.Context(), productID, &req)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	writeJSON(w, http.StatusCreated, variant)
}

// UpdateVariant handles PATCH /api/staff/variants/{id}.
func (h *StaffHandler) UpdateVariant(w http.ResponseWriter, r *http.Request) {
	variantID, err := uuidParam(r, "id")
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	var req model.UpdateVariantRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	variant, err := h.catalog.UpdateVariant(r.Context(), variantID, &req)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, variant)
}

// UpdateOrderStatus handles PATCH /api/staff/orders/{id}/status.
func (h *StaffHandler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuidParam(r, "id")
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	var req model.UpdateStatusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	change, err := h.orders.UpdateStatus(r.Context(), orderID, req.Status)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, change)
}

// BatchUpdateStatus handles POST /api/staff/orders/status.
func (h *StaffHandler) BatchUpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req model.BatchStatusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	changes, err := h.orders.BatchUpdateStatus(r.Context(), req.OrderIDs, req.Status)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, changes)
}

// MarkPaid handles POST /api/staff/orders/paid.
func (h *StaffHandler) MarkPaid(w http.ResponseWriter, r *http.Request) {
	var req model.MarkPaidRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	changes, err := h.orders.MarkPaid(r.Context(), req.OrderIDs)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, changes)
}
