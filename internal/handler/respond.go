package handler

import (
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/casamueble/checkout/internal/domain/coupon"
	"github.com/casamueble/checkout/internal/domain/order"
	"github.com/casamueble/checkout/internal/domain/payment"
	"github.com/casamueble/checkout/internal/domain/pricing"
)

// writeJSON renders a jx-encoded body. Encoding happens fully in memory
// before the status line is written, so a marshalling bug can never produce a
// half-written 200.
func writeJSON(w http.ResponseWriter, status int, build func(e *jx.Encoder)) {
	e := &jx.Encoder{}
	build(e)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}

// writeError renders the error envelope: {"ok":false,"error":{code,message}}.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("ok", func(e *jx.Encoder) { e.Bool(false) })
			e.Field("error", func(e *jx.Encoder) {
				e.Obj(func(e *jx.Encoder) {
					e.Field("code", func(e *jx.Encoder) { e.Str(code) })
					e.Field("message", func(e *jx.Encoder) { e.Str(message) })
				})
			})
		})
	})
}

func encMoney(e *jx.Encoder, field string, d decimal.Decimal) {
	e.Field(field, func(e *jx.Encoder) { e.Str(d.StringFixed(2)) })
}

func encStr(e *jx.Encoder, field, v string) {
	e.Field(field, func(e *jx.Encoder) { e.Str(v) })
}

func encOrder(e *jx.Encoder, o *order.Order, lines []order.Line) {
	e.Obj(func(e *jx.Encoder) {
		encStr(e, "number", o.Number)
		encStr(e, "status", string(o.Status))
		encStr(e, "customer_email", o.ShipEmail)
		encStr(e, "ship_name", o.ShipName)
		encStr(e, "ship_address", o.ShipAddress)
		encStr(e, "ship_city", o.ShipCity)
		encStr(e, "ship_postal_code", o.ShipPostalCode)
		encStr(e, "shipping_method", string(o.ShippingMethod))
		encStr(e, "payment_method", string(o.PaymentMethod))
		encMoney(e, "subtotal", o.Subtotal)
		encMoney(e, "discount", o.Discount)
		encMoney(e, "shipping_cost", o.ShippingCost)
		encMoney(e, "total", o.Total)
		if o.CouponCode != "" {
			encStr(e, "coupon_code", o.CouponCode)
		}
		encStr(e, "created_at", o.CreatedAt.UTC().Format(time.RFC3339))
		if lines != nil {
			e.Field("lines", func(e *jx.Encoder) {
				e.Arr(func(e *jx.Encoder) {
					for _, l := range lines {
						e.Obj(func(e *jx.Encoder) {
							encStr(e, "product_name", l.ProductName)
							e.Field("quantity", func(e *jx.Encoder) { e.Int(l.Quantity) })
							encMoney(e, "unit_price", l.UnitPrice)
							encMoney(e, "subtotal", l.Subtotal)
						})
					}
				})
			})
		}
	})
}

func encCODBreakdown(e *jx.Encoder, b pricing.CODBreakdown) {
	e.Obj(func(e *jx.Encoder) {
		encMoney(e, "base_total", b.Base)
		encMoney(e, "fixed_fee", b.FixedFee)
		encMoney(e, "variable_fee", b.VariableFee)
		encMoney(e, "display_total", b.DisplayTotal)
	})
}

// respondDomainError maps domain errors onto HTTP statuses and stable codes.
// Anything unrecognized is a 500 and gets logged; recognized failures are the
// client's problem and are not.
func respondDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case isValidationError(err):
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
	case coupon.Reason(err) != "":
		writeError(w, http.StatusUnprocessableEntity, "COUPON_INVALID", coupon.Reason(err))
	case errors.Is(err, order.ErrCustomerUnknown):
		writeError(w, http.StatusUnprocessableEntity, "CUSTOMER_UNKNOWN", "no account matches the given email")
	case errors.Is(err, order.ErrCreationFailed):
		writeError(w, http.StatusServiceUnavailable, "ORDER_CREATION_FAILED", "could not allocate an order number, try again")
	case errors.Is(err, order.ErrNotFound):
		writeError(w, http.StatusNotFound, "ORDER_NOT_FOUND", "order not found")
	case errors.Is(err, order.ErrInvalidTransition):
		writeError(w, http.StatusConflict, "INVALID_TRANSITION", err.Error())
	case errors.Is(err, payment.ErrSessionNotFound):
		writeError(w, http.StatusNotFound, "SESSION_NOT_FOUND", "payment session not found")
	case errors.Is(err, payment.ErrTerminal), errors.Is(err, payment.ErrInvalidEvent):
		writeError(w, http.StatusConflict, "INVALID_EVENT", err.Error())
	default:
		zctx.From(r.Context()).Error("request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "PERSISTENCE_ERROR", "internal error")
	}
}

func isValidationError(err error) bool {
	return errors.Is(err, order.ErrEmptyCart) ||
		errors.Is(err, order.ErrInvalidQuantity) ||
		errors.Is(err, order.ErrMissingShipping) ||
		errors.Is(err, pricing.ErrUnknownShippingMethod) ||
		errors.Is(err, payment.ErrUnknownMethod)
}
