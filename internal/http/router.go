package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type Handlers struct {
	Cart     *CartHandler
	Location *LocationHandler
	Checkout *CheckoutHandler
	Orders   *OrdersHandler
}

func NewRouter(h Handlers, requestTimeout time.Duration) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(RequestIDMiddleware)
	r.Use(middleware.Timeout(requestTimeout))
	r.Use(UserIDMiddleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/cart", func(r chi.Router) {
			r.Get("/", h.Cart.GetCart)
			r.Delete("/", h.Cart.ClearCart)
			r.Post("/items", h.Cart.AddItem)
			r.Put("/items/{product_id}", h.Cart.UpdateQuantity)
			r.Delete("/items/{product_id}", h.Cart.RemoveItem)
		})
		r.Route("/location", func(r chi.Router) {
			r.Get("/", h.Location.GetLocation)
			r.Put("/", h.Location.SaveLocation)
			r.Delete("/", h.Location.ClearLocation)
			r.Post("/detect", h.Location.Detect)
			r.Get("/auto-prompted", h.Location.GetAutoPrompted)
			r.Post("/auto-prompted", h.Location.MarkAutoPrompted)
		})
		r.Get("/checkout/message", h.Checkout.PreviewMessage)
		r.Post("/checkout", h.Checkout.Checkout)
		r.Get("/orders", h.Orders.ListOrders)
		r.Get("/orders/{order_id}", h.Orders.GetOrder)
	})

	return r
}
