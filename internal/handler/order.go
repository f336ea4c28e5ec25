package handler

import (
	"net/http"
	"strings"

	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/casamueble/checkout/internal/domain/order"
	"github.com/casamueble/checkout/internal/domain/payment"
	"github.com/casamueble/checkout/internal/domain/pricing"
)

type orderLineRequest struct {
	ProductID        string           `json:"product_id"`
	Name             string           `json:"name"`
	UnitPrice        decimal.Decimal  `json:"unit_price"`
	PromoUnitPrice   *decimal.Decimal `json:"promo_unit_price,omitempty"`
	Quantity         int              `json:"quantity"`
	VariantSurcharge decimal.Decimal  `json:"variant_surcharge"`
}

type placeOrderRequest struct {
	CustomerEmail  string             `json:"customer_email"`
	ShipName       string             `json:"ship_name"`
	ShipAddress    string             `json:"ship_address"`
	ShipCity       string             `json:"ship_city"`
	ShipPostalCode string             `json:"ship_postal_code"`
	ShipPhone      string             `json:"ship_phone"`
	ShippingMethod string             `json:"shipping_method"`
	PaymentMethod  string             `json:"payment_method"`
	CouponCode     string             `json:"coupon_code"`
	CheckoutToken  string             `json:"checkout_token"`
	Lines          []orderLineRequest `json:"lines"`
}

func (h *Handler) placeOrder(w http.ResponseWriter, r *http.Request) {
	var req placeOrderRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	lines := make([]pricing.Line, len(req.Lines))
	for i, l := range req.Lines {
		lines[i] = pricing.Line{
			ProductID:        l.ProductID,
			Name:             l.Name,
			UnitPrice:        l.UnitPrice,
			PromoUnitPrice:   l.PromoUnitPrice,
			Quantity:         l.Quantity,
			VariantSurcharge: l.VariantSurcharge,
		}
	}

	o, err := h.checkout.PlaceOrder(r.Context(), order.CheckoutRequest{
		CustomerEmail:  req.CustomerEmail,
		ShipName:       req.ShipName,
		ShipAddress:    req.ShipAddress,
		ShipCity:       req.ShipCity,
		ShipPostal:     req.ShipPostalCode,
		ShipPhone:      req.ShipPhone,
		Lines:          lines,
		ShippingMethod: pricing.ShippingMethod(req.ShippingMethod),
		PaymentMethod:  payment.Method(req.PaymentMethod),
		CouponCode:     req.CouponCode,
		CheckoutToken:  req.CheckoutToken,
	})
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("ok", func(e *jx.Encoder) { e.Bool(true) })
			e.Field("order", func(e *jx.Encoder) { encOrder(e, o, nil) })
		})
	})
}

func (h *Handler) lookupOrder(w http.ResponseWriter, r *http.Request) {
	number := strings.ToUpper(strings.TrimSpace(r.PathValue("number")))
	if _, _, err := order.ParseNumber(number); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "malformed order number")
		return
	}

	o, lines, err := h.checkout.Lookup(r.Context(), number)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("ok", func(e *jx.Encoder) { e.Bool(true) })
			e.Field("order", func(e *jx.Encoder) { encOrder(e, o, lines) })
		})
	})
}
