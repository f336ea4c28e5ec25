package coupon

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Validator checks a coupon code against its rule and computes the discount
// for a given subtotal. It has no side effects; counter increments are the
// order transaction's job.
type Validator struct {
	repo Repository
	now  func() time.Time
}

// NewValidator creates a Validator backed by the given Repository.
func NewValidator(repo Repository) *Validator {
	return &Validator{repo: repo, now: time.Now}
}

// Validate runs the checks in a fixed short-circuit order: existence,
// validity window, global cap, then per-customer cap. The per-customer check
// only runs when a customer identity is provided.
func (v *Validator) Validate(ctx context.Context, code string, subtotal decimal.Decimal, customerID *int64) (*Discount, error) {
	code = Normalize(code)

	c, err := v.repo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "lookup coupon")
	}

	now := v.now()

	if c.ValidFrom != nil && now.Before(*c.ValidFrom) {
		return nil, ErrNotYetActive
	}
	if c.ValidUntil != nil && now.After(*c.ValidUntil) {
		return nil, ErrExpired
	}

	if c.TotalCap > 0 && c.UsedCount >= c.TotalCap {
		return nil, ErrExhausted
	}

	if customerID != nil && c.PerCustomerCap > 0 {
		uses, err := v.repo.CustomerUses(ctx, code, *customerID)
		if err != nil {
			return nil, errors.Wrap(err, "lookup customer uses")
		}
		if uses >= c.PerCustomerCap {
			return nil, ErrAlreadyUsed
		}
	}

	return &Discount{
		Code:        c.Code,
		Amount:      c.amount(subtotal),
		Description: c.Description,
	}, nil
}

// amount computes the discount for a subtotal. Percentage coupons round to
// 2 decimal places; fixed coupons are capped at the subtotal so the discount
// can never drive the pre-shipping total negative.
func (c *Coupon) amount(subtotal decimal.Decimal) decimal.Decimal {
	switch c.Kind {
	case KindPercentage:
		return subtotal.Mul(c.Value).Div(hundred).Round(2)
	case KindFixed:
		return decimal.Min(c.Value, subtotal).Round(2)
	default:
		return decimal.Zero
	}
}
