package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/casamueble/checkout/internal/domain/order"
	"github.com/casamueble/checkout/internal/domain/payment"
)

type startPaymentRequest struct {
	OrderNumber string `json:"order_number"`
}

// startPayment opens a payment session for a PENDING order. The flow is
// determined by the payment method chosen at checkout.
func (h *Handler) startPayment(w http.ResponseWriter, r *http.Request) {
	var req startPaymentRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}
	if req.OrderNumber == "" {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "order_number is required")
		return
	}

	o, _, err := h.checkout.Lookup(r.Context(), req.OrderNumber)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	if o.Status != order.StatusPending {
		writeError(w, http.StatusConflict, "ORDER_NOT_PAYABLE", "order is not awaiting payment")
		return
	}

	id, res, err := h.payments.Start(r.Context(), o.ID, o.PaymentMethod)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	h.writeSession(w, http.StatusCreated, id, res)
}

type paymentEventRequest struct {
	Type   string `json:"type"`
	Source string `json:"source"`
	Card   *struct {
		Holder string `json:"holder"`
		Number string `json:"number"`
		Expiry string `json:"expiry"`
		CVV    string `json:"cvv"`
	} `json:"card"`
}

// paymentEvent applies one user event to an in-flight session.
func (h *Handler) paymentEvent(w http.ResponseWriter, r *http.Request) {
	var req paymentEventRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	ev := payment.Event{Type: payment.EventType(req.Type), Source: req.Source}
	if req.Card != nil {
		ev.Card = &payment.CardDetails{
			Holder: req.Card.Holder,
			Number: req.Card.Number,
			Expiry: req.Card.Expiry,
			CVV:    req.Card.CVV,
		}
	}
	// Timer events come from the manager's own clock, never from clients.
	if ev.Type == payment.EventTimerElapsed {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "unsupported event type")
		return
	}

	res, err := h.payments.Advance(r.Context(), r.PathValue("id"), ev)
	if err != nil {
		if errors.Is(err, payment.ErrBadInput) {
			writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
			return
		}
		respondDomainError(w, r, err)
		return
	}
	h.writeSession(w, http.StatusOK, r.PathValue("id"), res)
}

func (h *Handler) writeSession(w http.ResponseWriter, status int, id string, res payment.Result) {
	writeJSON(w, status, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("ok", func(e *jx.Encoder) { e.Bool(true) })
			encStr(e, "session_id", id)
			encStr(e, "state", string(res.State))
			if res.Outcome != "" {
				encStr(e, "outcome", string(res.Outcome))
			}
			e.Field("clear_cart", func(e *jx.Encoder) { e.Bool(res.ClearCart) })
		})
	})
}

// codQuote applies the cash-on-delivery surcharge to a pre-surcharge total.
func (h *Handler) codQuote(w http.ResponseWriter, r *http.Request) {
	total, ok := decimalQuery(w, r, "total")
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		encCODBreakdown(e, h.cod.Quote(total))
	})
}

// codBreakdown recovers the pre-surcharge base from a display total, for the
// confirmation screen that only knows the surcharged figure.
func (h *Handler) codBreakdown(w http.ResponseWriter, r *http.Request) {
	display, ok := decimalQuery(w, r, "display_total")
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		encCODBreakdown(e, h.cod.Recover(display))
	})
}

func decimalQuery(w http.ResponseWriter, r *http.Request, param string) (decimal.Decimal, bool) {
	raw := r.URL.Query().Get(param)
	if raw == "" {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", param+" is required")
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(raw)
	if err != nil || d.IsNegative() {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", param+" must be a non-negative amount")
		return decimal.Zero, false
	}
	return d, true
}
