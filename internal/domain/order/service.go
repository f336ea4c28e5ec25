package order

import (
	"context"
	"strings"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/casamueble/checkout/internal/domain/coupon"
	"github.com/casamueble/checkout/internal/domain/customer"
	"github.com/casamueble/checkout/internal/domain/payment"
	"github.com/casamueble/checkout/internal/domain/pricing"
)

// Request validation failures.
var (
	ErrEmptyCart         = errors.New("cart is empty")
	ErrInvalidQuantity   = errors.New("quantity must be at least 1")
	ErrMissingShipping   = errors.New("missing required shipping fields")
	ErrCustomerUnknown   = errors.New("customer could not be resolved")
	ErrCreationFailed    = errors.New("order creation failed")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrNotFound          = errors.New("order not found")
)

// Reservation asks the repository to consume one coupon use inside the order
// creation transaction.
type Reservation struct {
	Code       string
	CustomerID int64
}

// Repository is the transactional persistence boundary. CreatePending must
// atomically issue the next order number for the year, insert the order and
// its lines, and apply the coupon reservation; any failure rolls the whole
// operation back.
type Repository interface {
	CreatePending(ctx context.Context, o *Order, lines []Line, res *Reservation) error
	FindByID(ctx context.Context, id int64) (*Order, error)
	FindByNumber(ctx context.Context, number string) (*Order, error)
	FindByToken(ctx context.Context, token string) (*Order, error)
	Lines(ctx context.Context, orderID int64) ([]Line, error)
	// TransitionStatus moves an order from one status to another; it fails
	// without effect when the stored status no longer matches from.
	TransitionStatus(ctx context.Context, id int64, from, to Status) error
}

// CouponValidator re-validates a code at order time; the earlier interactive
// validation only priced the cart for display.
type CouponValidator interface {
	Validate(ctx context.Context, code string, subtotal decimal.Decimal, customerID *int64) (*coupon.Discount, error)
}

// CheckoutRequest is a materialized cart plus the checkout selections.
type CheckoutRequest struct {
	CustomerEmail string
	ShipName      string
	ShipAddress   string
	ShipCity      string
	ShipPostal    string
	ShipPhone     string

	Lines          []pricing.Line
	ShippingMethod pricing.ShippingMethod
	PaymentMethod  payment.Method
	CouponCode     string

	// CheckoutToken is an optional client-generated idempotency token; a
	// replayed token returns the already-created order.
	CheckoutToken string
}

// CheckoutService turns priced carts into PENDING orders.
type CheckoutService struct {
	orders    Repository
	customers customer.Repository
	coupons   CouponValidator
	rates     pricing.ShippingRates
}

// NewCheckoutService wires the checkout pipeline.
func NewCheckoutService(
	orders Repository,
	customers customer.Repository,
	coupons CouponValidator,
	rates pricing.ShippingRates,
) *CheckoutService {
	return &CheckoutService{
		orders:    orders,
		customers: customers,
		coupons:   coupons,
		rates:     rates,
	}
}

// PlaceOrder validates the request, prices the cart, and persists the order
// in PENDING. The coupon is consumed inside the same transaction that creates
// the order; a validation-only call never burns a use.
func (s *CheckoutService) PlaceOrder(ctx context.Context, req CheckoutRequest) (*Order, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	// Idempotent replay: a token we have already committed returns the
	// original order instead of creating a duplicate.
	if req.CheckoutToken != "" {
		existing, err := s.orders.FindByToken(ctx, req.CheckoutToken)
		switch {
		case err == nil:
			return existing, nil
		case !errors.Is(err, ErrNotFound):
			return nil, errors.Wrap(err, "idempotency lookup")
		}
	}

	// Unknown customers are rejected outright. The historical behavior of
	// attributing unmatched orders to a default account misfiled real orders
	// and is not preserved.
	cust, err := s.customers.FindByEmail(ctx, req.CustomerEmail)
	if err != nil {
		if errors.Is(err, customer.ErrNotFound) {
			return nil, ErrCustomerUnknown
		}
		return nil, errors.Wrap(err, "resolve customer")
	}

	shippingCost, err := s.rates.Cost(req.ShippingMethod)
	if err != nil {
		return nil, err
	}

	subtotal := pricing.Quote(req.Lines, decimal.Zero, decimal.Zero).Subtotal

	discount := decimal.Zero
	var reservation *Reservation
	if req.CouponCode != "" {
		d, err := s.coupons.Validate(ctx, req.CouponCode, subtotal, &cust.ID)
		if err != nil {
			return nil, err
		}
		discount = d.Amount
		reservation = &Reservation{Code: d.Code, CustomerID: cust.ID}
	}

	breakdown := pricing.Quote(req.Lines, shippingCost, discount)

	o := &Order{
		CustomerID:     cust.ID,
		ShipName:       req.ShipName,
		ShipAddress:    req.ShipAddress,
		ShipCity:       req.ShipCity,
		ShipPostalCode: req.ShipPostal,
		ShipPhone:      req.ShipPhone,
		ShipEmail:      cust.Email,
		ShippingMethod: req.ShippingMethod,
		ShippingCost:   breakdown.ShippingCost,
		PaymentMethod:  req.PaymentMethod,
		Subtotal:       breakdown.Subtotal,
		Discount:       breakdown.Discount,
		Total:          breakdown.Total,
		Status:         StatusPending,
		CheckoutToken:  req.CheckoutToken,
	}
	if reservation != nil {
		o.CouponCode = reservation.Code
	}

	lines := make([]Line, len(req.Lines))
	for i, l := range req.Lines {
		unit := l.EffectiveUnitPrice().Round(2)
		lines[i] = Line{
			ProductName: l.Name,
			Quantity:    l.Quantity,
			UnitPrice:   unit,
			Subtotal:    unit.Mul(decimal.NewFromInt(int64(l.Quantity))).Round(2),
		}
	}

	if err := s.orders.CreatePending(ctx, o, lines, reservation); err != nil {
		return nil, err
	}
	return o, nil
}

// MarkPaid confirms an order financially: PENDING -> PAID. Called by the
// payment session manager on strong success only.
func (s *CheckoutService) MarkPaid(ctx context.Context, orderID int64) error {
	return s.orders.TransitionStatus(ctx, orderID, StatusPending, StatusPaid)
}

// Transition applies an administrative status change, enforcing the
// lifecycle graph.
func (s *CheckoutService) Transition(ctx context.Context, orderID int64, to Status) (*Order, error) {
	o, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !o.Status.CanTransition(to) {
		return nil, errors.Wrapf(ErrInvalidTransition, "%s -> %s", o.Status, to)
	}
	if err := s.orders.TransitionStatus(ctx, orderID, o.Status, to); err != nil {
		return nil, err
	}
	o.Status = to
	return o, nil
}

// Lookup returns an order by its human-readable number, with its lines.
func (s *CheckoutService) Lookup(ctx context.Context, number string) (*Order, []Line, error) {
	o, err := s.orders.FindByNumber(ctx, strings.ToUpper(strings.TrimSpace(number)))
	if err != nil {
		return nil, nil, err
	}
	lines, err := s.orders.Lines(ctx, o.ID)
	if err != nil {
		return nil, nil, errors.Wrap(err, "load order lines")
	}
	return o, lines, nil
}

func validateRequest(req CheckoutRequest) error {
	if len(req.Lines) == 0 {
		return ErrEmptyCart
	}
	for _, l := range req.Lines {
		if l.Quantity < 1 {
			return errors.Wrapf(ErrInvalidQuantity, "product %s", l.ProductID)
		}
	}
	if req.CustomerEmail == "" {
		return ErrCustomerUnknown
	}
	if req.ShipName == "" || req.ShipAddress == "" || req.ShipCity == "" || req.ShipPostal == "" {
		return ErrMissingShipping
	}
	if _, err := pricing.ParseShippingMethod(string(req.ShippingMethod)); err != nil {
		return err
	}
	if _, err := payment.ParseMethod(string(req.PaymentMethod)); err != nil {
		return err
	}
	return nil
}
