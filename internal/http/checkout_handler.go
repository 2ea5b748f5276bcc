package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/bharatmart/inquiry-service/internal/checkout"
	"github.com/bharatmart/inquiry-service/internal/logger"
)

type CheckoutHandler struct {
	service *checkout.Service
	timeout time.Duration
}

func NewCheckoutHandler(service *checkout.Service, timeout time.Duration) *CheckoutHandler {
	return &CheckoutHandler{
		service: service,
		timeout: timeout,
	}
}

type MessagePreviewDTO struct {
	Message string `json:"message"`
	URL     string `json:"url"`
}

// GET /api/v1/checkout/message
func (h *CheckoutHandler) PreviewMessage(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	msg := h.service.BuildMessage(ctx)
	respondJSON(w, http.StatusOK, MessagePreviewDTO{
		Message: msg,
		URL:     h.service.URLFor(msg),
	})
}

// POST /api/v1/checkout
func (h *CheckoutHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	result, err := h.service.Checkout(ctx, getUserIDFromContext(r.Context()))
	if err != nil {
		switch {
		case errors.Is(err, checkout.ErrMissingUser):
			respondError(w, http.StatusUnauthorized, "unauthorized", "missing X-User-ID header")
		case errors.Is(err, checkout.ErrEmptyCart):
			respondError(w, http.StatusConflict, "empty_cart", err.Error())
		default:
			logger.Printf(ctx, "checkout failed, request_id=%s: %v", getRequestID(r.Context()), err)
			respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
		}
		return
	}

	respondJSON(w, http.StatusOK, result)
}
