// Package order materializes priced carts into durable orders and owns the
// order lifecycle: creation in PENDING, payment confirmation, and the
// administrative status transitions.
package order

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/casamueble/checkout/internal/domain/payment"
	"github.com/casamueble/checkout/internal/domain/pricing"
)

// Status is an order's lifecycle state.
type Status string

const (
	// StatusPending is committed but financially unconfirmed.
	StatusPending Status = "PENDING"
	StatusPaid    Status = "PAID"
	// StatusShipped and StatusDelivered are administrative transitions from
	// the back office.
	StatusShipped   Status = "SHIPPED"
	StatusDelivered Status = "DELIVERED"
	StatusCancelled Status = "CANCELLED"
)

// validTransitions is the full lifecycle graph. Cancellation is allowed from
// any non-final state; forward movement is strictly ordered.
var validTransitions = map[Status][]Status{
	StatusPending:   {StatusPaid, StatusCancelled},
	StatusPaid:      {StatusShipped, StatusCancelled},
	StatusShipped:   {StatusDelivered, StatusCancelled},
	StatusDelivered: {},
	StatusCancelled: {},
}

// CanTransition reports whether the status may move to the target.
func (s Status) CanTransition(to Status) bool {
	for _, next := range validTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// ParseStatus validates a wire-level status string.
func ParseStatus(s string) (Status, bool) {
	st := Status(s)
	_, ok := validTransitions[st]
	return st, ok
}

// Order is a persisted order. Shipping fields are a snapshot copied at
// checkout time; later customer edits never rewrite them.
type Order struct {
	ID         int64
	Number     string
	CustomerID int64

	ShipName       string
	ShipAddress    string
	ShipCity       string
	ShipPostalCode string
	ShipPhone      string
	ShipEmail      string

	ShippingMethod pricing.ShippingMethod
	ShippingCost   decimal.Decimal
	PaymentMethod  payment.Method

	Subtotal decimal.Decimal
	Discount decimal.Decimal
	Total    decimal.Decimal

	Status        Status
	CouponCode    string
	CheckoutToken string
	CreatedAt     time.Time
}

// Line is one immutable order line: a name and price snapshot from the cart,
// never a live catalog reference.
type Line struct {
	ProductName string
	Quantity    int
	UnitPrice   decimal.Decimal
	Subtotal    decimal.Decimal
}
