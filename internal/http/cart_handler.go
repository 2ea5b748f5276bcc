package http

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/bharatmart/inquiry-service/internal/cart"
	"github.com/bharatmart/inquiry-service/internal/domain"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

type CartHandler struct {
	cart    *cart.Store
	timeout time.Duration
}

func NewCartHandler(c *cart.Store, timeout time.Duration) *CartHandler {
	return &CartHandler{
		cart:    c,
		timeout: timeout,
	}
}

// Quantities arrive loosely typed from storefront clients and are coerced.
type AddItemRequestDTO struct {
	ProductID string          `json:"productId"`
	Title     string          `json:"title"`
	Price     decimal.Decimal `json:"price"`
	Quantity  interface{}     `json:"qty"`
	Image     string          `json:"image"`
	SellerID  string          `json:"sellerId"`
}

type UpdateQuantityRequestDTO struct {
	Quantity interface{} `json:"qty"`
}

// GET /api/v1/cart
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.cart.Snapshot())
}

// POST /api/v1/cart/items
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req AddItemRequestDTO
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	req.ProductID = strings.TrimSpace(req.ProductID)
	if req.ProductID == "" {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "productId is required")
		return
	}
	if req.Price.IsNegative() {
		respondError(w, http.StatusBadRequest, "invalid_price", "price must not be negative")
		return
	}

	snap := h.cart.AddItem(ctx, domain.LineItem{
		ProductID: req.ProductID,
		Title:     req.Title,
		Price:     req.Price,
		Quantity:  domain.CoerceQuantity(req.Quantity),
		Image:     req.Image,
		SellerID:  req.SellerID,
	})
	respondJSON(w, http.StatusCreated, snap)
}

// PUT /api/v1/cart/items/{product_id}
func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	productID := chi.URLParam(r, "product_id")
	if productID == "" {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id is required")
		return
	}

	var req UpdateQuantityRequestDTO
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	snap := h.cart.UpdateQuantity(ctx, productID, domain.CoerceQuantity(req.Quantity))
	respondJSON(w, http.StatusOK, snap)
}

// DELETE /api/v1/cart/items/{product_id}
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	productID := chi.URLParam(r, "product_id")
	if productID == "" {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id is required")
		return
	}

	respondJSON(w, http.StatusOK, h.cart.RemoveItem(ctx, productID))
}

// DELETE /api/v1/cart
func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	respondJSON(w, http.StatusOK, h.cart.Clear(ctx))
}
