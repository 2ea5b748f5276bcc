package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/bharatmart/inquiry-service/internal/domain"
	"github.com/bharatmart/inquiry-service/internal/logger"
	"github.com/bharatmart/inquiry-service/internal/orders"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type OrdersHandler struct {
	history orders.History
	timeout time.Duration
}

// NewOrdersHandler accepts a nil history when the configured order sink
// cannot be read back.
func NewOrdersHandler(history orders.History, timeout time.Duration) *OrdersHandler {
	return &OrdersHandler{
		history: history,
		timeout: timeout,
	}
}

// GET /api/v1/orders
func (h *OrdersHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := getUserIDFromContext(r.Context())
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing X-User-ID header")
		return
	}
	if h.history == nil {
		respondError(w, http.StatusNotImplemented, "history_unavailable", "order history is not available for this order sink")
		return
	}

	list, err := h.history.ListOrdersByUser(ctx, userID)
	if err != nil {
		logger.Printf(ctx, "list orders for user %s: %v", userID, err)
		respondError(w, http.StatusServiceUnavailable, "service_unavailable", "order history is unavailable")
		return
	}
	if list == nil {
		list = []*domain.Order{}
	}
	respondJSON(w, http.StatusOK, list)
}

// GET /api/v1/orders/{order_id}
func (h *OrdersHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := getUserIDFromContext(r.Context())
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing X-User-ID header")
		return
	}
	if h.history == nil {
		respondError(w, http.StatusNotImplemented, "history_unavailable", "order history is not available for this order sink")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "order_id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_order_id", "order id must be a UUID")
		return
	}

	order, err := h.history.GetOrder(ctx, id)
	switch {
	case errors.Is(err, orders.ErrOrderNotFound):
		respondError(w, http.StatusNotFound, "order_not_found", "order not found")
		return
	case err != nil:
		logger.Printf(ctx, "get order %s: %v", id, err)
		respondError(w, http.StatusServiceUnavailable, "service_unavailable", "order history is unavailable")
		return
	}
	// another buyer's order is reported as missing
	if order.UserID != userID {
		respondError(w, http.StatusNotFound, "order_not_found", "order not found")
		return
	}
	respondJSON(w, http.StatusOK, order)
}
