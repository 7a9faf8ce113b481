// Package handler exposes the JSON API consumed by the storefront.
package handler

import (
	"github.com/go-chi/chi/v5"

	"github.com/uiliambrandao/nammos-checkout/internal/domain/cashback"
	"github.com/uiliambrandao/nammos-checkout/internal/domain/checkout"
	"github.com/uiliambrandao/nammos-checkout/internal/domain/order"
	"github.com/uiliambrandao/nammos-checkout/internal/domain/pix"
	"github.com/uiliambrandao/nammos-checkout/internal/domain/product"
	"github.com/uiliambrandao/nammos-checkout/internal/domain/user"
)

// Config holds non-dependency configuration for the Handler.
type Config struct {
	// ImageBaseURL is prepended to relative image paths in product responses.
	// When empty, image paths are returned as stored in the database.
	ImageBaseURL string
}

// Handler translates HTTP requests into domain calls and domain results back
// into JSON responses.
type Handler struct {
	products     product.Repository
	checkout     *checkout.Service
	orders       *order.Service
	pix          *pix.Manager
	users        user.Repository
	cashback     cashback.Repository
	security     *SecurityHandler
	imageBaseURL string
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(
	cfg Config,
	products product.Repository,
	checkoutSvc *checkout.Service,
	orders *order.Service,
	pixManager *pix.Manager,
	users user.Repository,
	cashbackRepo cashback.Repository,
	security *SecurityHandler,
) *Handler {
	return &Handler{
		products:     products,
		checkout:     checkoutSvc,
		orders:       orders,
		pix:          pixManager,
		users:        users,
		cashback:     cashbackRepo,
		security:     security,
		imageBaseURL: cfg.ImageBaseURL,
	}
}

// Routes builds the API route tree under /api.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Route("/api", func(r chi.Router) {
		r.Get("/products", h.listProducts)
		r.Get("/products/{id}", h.getProduct)
		r.Get("/addons", h.listAddons)

		r.Route("/checkout", func(r chi.Router) {
			r.Post("/", h.createCheckout)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.getCheckout)
				r.Delete("/", h.dropCheckout)
				r.Post("/items", h.addItem)
				r.Patch("/items/{lineID}", h.updateItem)
				r.Delete("/items/{lineID}", h.removeItem)
				r.Put("/address", h.setAddress)
				r.Put("/fulfillment", h.setFulfillment)
				r.Put("/payment", h.setPayment)
				r.Post("/coupon", h.applyCoupon)
				r.Delete("/coupon", h.removeCoupon)
				r.Post("/cashback", h.toggleCashback)
				r.Post("/submit", h.submit)
			})
		})

		r.Route("/pix/{id}", func(r chi.Router) {
			r.Get("/", h.getPixCharge)
			r.Post("/abandon", h.abandonPixCharge)
			r.With(h.security.Require).Post("/confirm", h.confirmPixCharge)
		})

		r.Route("/orders", func(r chi.Router) {
			r.Get("/{id}", h.getOrder)
			r.Get("/{id}/tracking", h.getTracking)
			r.With(h.security.Require).Post("/{id}/tracking/advance", h.advanceTracking)
		})

		r.Get("/users", h.getUserByPhone)
		r.Post("/users", h.createUser)

		r.Get("/cashback/{userID}", h.getCashback)
	})

	return r
}
