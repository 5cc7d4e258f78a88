// Package api implements the HTTP transport for the checkout service.
// Handlers decode requests with jx, delegate to the domain services, and map
// domain errors to distinct HTTP statuses.
package api

import (
	"github.com/go-chi/chi/v5"

	"github.com/xenking/kart-checkout/internal/domain/cart"
	"github.com/xenking/kart-checkout/internal/domain/order"
	"github.com/xenking/kart-checkout/internal/domain/payment"
	"github.com/xenking/kart-checkout/internal/domain/product"
)

// Handler wires the domain services to HTTP routes.
type Handler struct {
	carts    *cart.Service
	orders   *order.Service
	payments *payment.Service
	products product.Repository
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(
	carts *cart.Service,
	orders *order.Service,
	payments *payment.Service,
	products product.Repository,
) *Handler {
	return &Handler{
		carts:    carts,
		orders:   orders,
		payments: payments,
		products: products,
	}
}

// Routes registers all API routes on the given router.
func (h *Handler) Routes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Route("/cart", func(r chi.Router) {
			r.Post("/add", h.AddToCart)
			r.Get("/{userID}", h.GetCart)
			r.Delete("/{userID}/clear", h.ClearCart)
		})
		r.Route("/orders", func(r chi.Router) {
			r.Post("/", h.CreateOrder)
			r.Get("/{orderID}", h.GetOrder)
			r.Get("/user/{userID}", h.GetUserOrders)
		})
		r.Post("/payments", h.CreatePayment)
		r.Post("/webhooks/payment", h.PaymentWebhook)
		r.Route("/products", func(r chi.Router) {
			r.Post("/", h.CreateProduct)
			r.Get("/", h.ListProducts)
			r.Get("/{productID}", h.GetProduct)
		})
	})
}
