// Package handler exposes the checkout core over HTTP: coupon validation,
// order placement and lookup, payment sessions, and the admin status surface.
package handler

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-faster/errors"

	"github.com/casamueble/checkout/internal/domain/customer"
	"github.com/casamueble/checkout/internal/domain/order"
	"github.com/casamueble/checkout/internal/domain/payment"
	"github.com/casamueble/checkout/internal/domain/pricing"
	"github.com/casamueble/checkout/pkg/httpmiddleware"
)

// maxBodySize bounds request bodies; checkout payloads are small.
const maxBodySize = 1 << 20

// Handler serves the checkout API.
type Handler struct {
	checkout  *order.CheckoutService
	coupons   order.CouponValidator
	customers customer.Repository
	payments  *payment.Manager
	cod       pricing.CODTerms
	auth      *APIKeyAuth
}

// New assembles the API handler.
func New(
	checkout *order.CheckoutService,
	coupons order.CouponValidator,
	customers customer.Repository,
	payments *payment.Manager,
	cod pricing.CODTerms,
	auth *APIKeyAuth,
) *Handler {
	return &Handler{
		checkout:  checkout,
		coupons:   coupons,
		customers: customers,
		payments:  payments,
		cod:       cod,
		auth:      auth,
	}
}

// Routes registers the API endpoints on mux.
func (h *Handler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/coupons/validate", h.validateCoupon)
	mux.HandleFunc("POST /api/orders", h.placeOrder)
	mux.HandleFunc("GET /api/orders/{number}", h.lookupOrder)
	mux.HandleFunc("POST /api/payments", h.startPayment)
	mux.HandleFunc("POST /api/payments/{id}/events", h.paymentEvent)
	mux.HandleFunc("GET /api/payments/cod/quote", h.codQuote)
	mux.HandleFunc("GET /api/payments/cod/breakdown", h.codBreakdown)

	admin := httpmiddleware.Wrap(http.HandlerFunc(h.updateOrderStatus), h.auth.Require())
	mux.Handle("PATCH /api/admin/orders/{id}/status", admin)
}

// decodeBody unmarshals a bounded JSON request body into dst.
func decodeBody(r *http.Request, dst any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		return errors.Wrap(err, "read body")
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return errors.Wrap(err, "malformed json")
	}
	return nil
}
