// Package coupon validates discount codes against their validity window and
// usage caps, and computes the resulting discount amount.
//
// Validation is deliberately split from consumption: Validate never touches
// any counter. Reservation (incrementing the global and per-customer usage
// counters) happens inside the order creation transaction, so an abandoned
// checkout never burns a coupon use.
package coupon

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Kind enumerates the supported discount strategies.
type Kind string

const (
	// KindPercentage discounts a percentage of the subtotal.
	KindPercentage Kind = "percentage"
	// KindFixed discounts a fixed amount, capped at the subtotal.
	KindFixed Kind = "fixed"
)

// Validation failures, in the order they are checked. Reason maps them to
// the wire-level reason codes.
var (
	ErrNotFound     = errors.New("coupon not found")
	ErrNotYetActive = errors.New("coupon not yet active")
	ErrExpired      = errors.New("coupon expired")
	ErrExhausted    = errors.New("coupon usage limit reached")
	ErrAlreadyUsed  = errors.New("coupon already used by customer")
)

// Reason returns the wire-level reason code for a validation failure, or ""
// when err is not a coupon validation error.
func Reason(err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return "NOT_FOUND"
	case errors.Is(err, ErrNotYetActive):
		return "NOT_YET_ACTIVE"
	case errors.Is(err, ErrExpired):
		return "EXPIRED"
	case errors.Is(err, ErrExhausted):
		return "EXHAUSTED"
	case errors.Is(err, ErrAlreadyUsed):
		return "ALREADY_USED"
	default:
		return ""
	}
}

// Coupon is a discount rule with usage accounting.
type Coupon struct {
	Code           string
	Kind           Kind
	Value          decimal.Decimal
	TotalCap       int // 0 means unlimited
	PerCustomerCap int // 0 means unlimited
	UsedCount      int
	ValidFrom      *time.Time
	ValidUntil     *time.Time
	Description    string
}

// Discount is a validated, computed discount ready to apply to a checkout.
type Discount struct {
	Code        string
	Amount      decimal.Decimal
	Description string
}

// Repository provides coupon lookup. Codes passed in are already normalized.
type Repository interface {
	FindByCode(ctx context.Context, code string) (*Coupon, error)
	// CustomerUses returns how many times the customer has redeemed the code.
	CustomerUses(ctx context.Context, code string, customerID int64) (int, error)
}

// Normalize trims and upper-cases a code; codes are case-insensitive.
func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
