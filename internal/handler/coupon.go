package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/casamueble/checkout/internal/domain/coupon"
	"github.com/casamueble/checkout/internal/domain/customer"
)

type validateCouponRequest struct {
	Code          string          `json:"code"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	CustomerEmail string          `json:"customer_email"`
}

// validateCoupon prices a coupon against the cart without consuming a use.
// A failed validation is a 200 with valid=false and a reason code; only
// malformed requests and infrastructure failures are HTTP errors.
func (h *Handler) validateCoupon(w http.ResponseWriter, r *http.Request) {
	var req validateCouponRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}
	if req.Code == "" {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "code is required")
		return
	}

	// The per-customer cap only applies when the caller identifies itself.
	// An unknown email validates anonymously rather than failing: the hard
	// check happens again at order time.
	var customerID *int64
	if req.CustomerEmail != "" {
		c, err := h.customers.FindByEmail(r.Context(), req.CustomerEmail)
		switch {
		case err == nil:
			customerID = &c.ID
		case !errors.Is(err, customer.ErrNotFound):
			respondDomainError(w, r, err)
			return
		}
	}

	d, err := h.coupons.Validate(r.Context(), req.Code, req.Subtotal, customerID)
	if err != nil {
		if reason := coupon.Reason(err); reason != "" {
			writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
				e.Obj(func(e *jx.Encoder) {
					e.Field("valid", func(e *jx.Encoder) { e.Bool(false) })
					encStr(e, "reason", reason)
				})
			})
			return
		}
		respondDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("valid", func(e *jx.Encoder) { e.Bool(true) })
			encStr(e, "code", d.Code)
			encMoney(e, "discount", d.Amount)
			encMoney(e, "subtotal_after", req.Subtotal.Sub(d.Amount).Round(2))
			if d.Description != "" {
				encStr(e, "description", d.Description)
			}
		})
	})
}
