// Package pricing computes checkout totals. Everything in this package is a
// pure function of its inputs: the same cart, shipping selection, and
// discount always produce the same breakdown. Rounding to 2 decimal places
// happens once, on the final figures, never on intermediate values.
package pricing

import (
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ShippingMethod is one of the closed set of supported delivery options.
type ShippingMethod string

const (
	// ShippingPickup is in-store pickup, always free.
	ShippingPickup ShippingMethod = "pickup"
	// ShippingCourier is home delivery at a fixed configured fee.
	ShippingCourier ShippingMethod = "courier"
)

// ErrUnknownShippingMethod is returned for a shipping method outside the
// closed set.
var ErrUnknownShippingMethod = errors.New("unknown shipping method")

// ParseShippingMethod validates a wire-level shipping method string.
func ParseShippingMethod(s string) (ShippingMethod, error) {
	switch ShippingMethod(s) {
	case ShippingPickup, ShippingCourier:
		return ShippingMethod(s), nil
	default:
		return "", errors.Wrapf(ErrUnknownShippingMethod, "%q", s)
	}
}

// ShippingRates holds the fixed cost of each shipping method.
type ShippingRates struct {
	Courier decimal.Decimal
}

// Cost returns the shipping cost for the given method.
func (r ShippingRates) Cost(m ShippingMethod) (decimal.Decimal, error) {
	switch m {
	case ShippingPickup:
		return decimal.Zero, nil
	case ShippingCourier:
		return r.Courier, nil
	default:
		return decimal.Zero, errors.Wrapf(ErrUnknownShippingMethod, "%q", m)
	}
}

// Line is one cart line frozen at checkout time. Prices come from the cart
// snapshot, not from the live catalog: what the customer saw is what they pay.
type Line struct {
	ProductID        string
	Name             string
	UnitPrice        decimal.Decimal
	PromoUnitPrice   *decimal.Decimal
	Quantity         int
	VariantSurcharge decimal.Decimal
}

// EffectiveUnitPrice resolves the promotional price when present and adds the
// selected-variant surcharge.
func (l Line) EffectiveUnitPrice() decimal.Decimal {
	price := l.UnitPrice
	if l.PromoUnitPrice != nil {
		price = *l.PromoUnitPrice
	}
	return price.Add(l.VariantSurcharge)
}

// Breakdown is the priced result of a checkout: all figures rounded to
// 2 decimal places.
type Breakdown struct {
	Subtotal     decimal.Decimal
	ShippingCost decimal.Decimal
	Discount     decimal.Decimal
	Total        decimal.Decimal
}

// Quote prices a cart. Total = max(0, subtotal + shipping - discount).
// The discount must already be validated; Quote only applies it.
func Quote(lines []Line, shippingCost, discount decimal.Decimal) Breakdown {
	subtotal := decimal.Zero
	for _, l := range lines {
		qty := decimal.NewFromInt(int64(l.Quantity))
		subtotal = subtotal.Add(l.EffectiveUnitPrice().Mul(qty))
	}

	total := subtotal.Add(shippingCost).Sub(discount)
	if total.IsNegative() {
		total = decimal.Zero
	}

	return Breakdown{
		Subtotal:     subtotal.Round(2),
		ShippingCost: shippingCost.Round(2),
		Discount:     discount.Round(2),
		Total:        total.Round(2),
	}
}
