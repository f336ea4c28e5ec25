package order

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/casamueble/checkout/internal/domain/coupon"
	"github.com/casamueble/checkout/internal/domain/customer"
	"github.com/casamueble/checkout/internal/domain/payment"
	"github.com/casamueble/checkout/internal/domain/pricing"
)

// --- Mock implementations ---

type mockOrderRepo struct {
	created     *Order
	createdRes  *Reservation
	createErr   error
	byToken     map[string]*Order
	byID        map[int64]*Order
	transitions []string
	transErr    error
}

func (m *mockOrderRepo) CreatePending(_ context.Context, o *Order, lines []Line, res *Reservation) error {
	if m.createErr != nil {
		return m.createErr
	}
	o.ID = 101
	o.Number = FormatNumber(2026, 7)
	m.created = o
	m.createdRes = res
	return nil
}

func (m *mockOrderRepo) FindByID(_ context.Context, id int64) (*Order, error) {
	o, ok := m.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return o, nil
}

func (m *mockOrderRepo) FindByNumber(_ context.Context, number string) (*Order, error) {
	return nil, ErrNotFound
}

func (m *mockOrderRepo) FindByToken(_ context.Context, token string) (*Order, error) {
	o, ok := m.byToken[token]
	if !ok {
		return nil, ErrNotFound
	}
	return o, nil
}

func (m *mockOrderRepo) Lines(_ context.Context, orderID int64) ([]Line, error) {
	return nil, nil
}

func (m *mockOrderRepo) TransitionStatus(_ context.Context, id int64, from, to Status) error {
	m.transitions = append(m.transitions, string(from)+"->"+string(to))
	return m.transErr
}

type mockCustomerRepo struct {
	byEmail map[string]*customer.Customer
}

func (m *mockCustomerRepo) FindByID(_ context.Context, id int64) (*customer.Customer, error) {
	return nil, customer.ErrNotFound
}

func (m *mockCustomerRepo) FindByEmail(_ context.Context, email string) (*customer.Customer, error) {
	c, ok := m.byEmail[email]
	if !ok {
		return nil, customer.ErrNotFound
	}
	return c, nil
}

type mockValidator struct {
	discount *coupon.Discount
	err      error
	called   bool
}

func (m *mockValidator) Validate(_ context.Context, code string, _ decimal.Decimal, _ *int64) (*coupon.Discount, error) {
	m.called = true
	if m.err != nil {
		return nil, m.err
	}
	return m.discount, nil
}

// --- Helpers ---

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func validRequest() CheckoutRequest {
	return CheckoutRequest{
		CustomerEmail: "ana@example.com",
		ShipName:      "Ana Torres",
		ShipAddress:   "Calle Mayor 12",
		ShipCity:      "Madrid",
		ShipPostal:    "28001",
		ShipPhone:     "600111222",
		Lines: []pricing.Line{
			{ProductID: "sofa-1", Name: "Sofá Vento", UnitPrice: dec("50.00"), Quantity: 2},
		},
		ShippingMethod: pricing.ShippingCourier,
		PaymentMethod:  payment.MethodCard,
	}
}

func newService(repo *mockOrderRepo, validator *mockValidator) *CheckoutService {
	customers := &mockCustomerRepo{byEmail: map[string]*customer.Customer{
		"ana@example.com": {ID: 5, Name: "Ana Torres", Email: "ana@example.com"},
	}}
	return NewCheckoutService(repo, customers, validator,
		pricing.ShippingRates{Courier: dec("5.00")})
}

// --- Tests ---

func TestPlaceOrder_PricesAndPersists(t *testing.T) {
	repo := &mockOrderRepo{}
	svc := newService(repo, &mockValidator{})

	o, err := svc.PlaceOrder(context.Background(), validRequest())
	require.NoError(t, err)

	assert.Equal(t, int64(101), o.ID)
	assert.Equal(t, "PED-2026-0007", o.Number)
	assert.Equal(t, StatusPending, o.Status)
	assert.Equal(t, int64(5), o.CustomerID)
	assert.True(t, dec("100.00").Equal(o.Subtotal), "subtotal %s", o.Subtotal)
	assert.True(t, dec("5.00").Equal(o.ShippingCost))
	assert.True(t, dec("105.00").Equal(o.Total), "total %s", o.Total)
	assert.Nil(t, repo.createdRes, "no coupon, no reservation")
}

func TestPlaceOrder_CouponReservedAtCommit(t *testing.T) {
	repo := &mockOrderRepo{}
	validator := &mockValidator{discount: &coupon.Discount{
		Code: "DECO10", Amount: dec("10.00"),
	}}
	svc := newService(repo, validator)

	req := validRequest()
	req.CouponCode = "deco10"

	o, err := svc.PlaceOrder(context.Background(), req)
	require.NoError(t, err)

	assert.True(t, validator.called)
	assert.True(t, dec("95.00").Equal(o.Total), "total %s", o.Total)
	assert.Equal(t, "DECO10", o.CouponCode)
	require.NotNil(t, repo.createdRes)
	assert.Equal(t, "DECO10", repo.createdRes.Code)
	assert.Equal(t, int64(5), repo.createdRes.CustomerID)
}

func TestPlaceOrder_CouponFailureAborts(t *testing.T) {
	repo := &mockOrderRepo{}
	validator := &mockValidator{err: coupon.ErrExpired}
	svc := newService(repo, validator)

	req := validRequest()
	req.CouponCode = "VIEJO"

	_, err := svc.PlaceOrder(context.Background(), req)
	require.ErrorIs(t, err, coupon.ErrExpired)
	assert.Nil(t, repo.created, "nothing persisted on coupon failure")
}

func TestPlaceOrder_RejectsUnknownCustomer(t *testing.T) {
	repo := &mockOrderRepo{}
	svc := newService(repo, &mockValidator{})

	req := validRequest()
	req.CustomerEmail = "nobody@example.com"

	_, err := svc.PlaceOrder(context.Background(), req)
	require.ErrorIs(t, err, ErrCustomerUnknown)
	assert.Nil(t, repo.created)
}

func TestPlaceOrder_Validation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*CheckoutRequest)
		wantErr error
	}{
		{"empty cart", func(r *CheckoutRequest) { r.Lines = nil }, ErrEmptyCart},
		{"zero quantity", func(r *CheckoutRequest) { r.Lines[0].Quantity = 0 }, ErrInvalidQuantity},
		{"missing address", func(r *CheckoutRequest) { r.ShipAddress = "" }, ErrMissingShipping},
		{"missing city", func(r *CheckoutRequest) { r.ShipCity = "" }, ErrMissingShipping},
		{"bad shipping method", func(r *CheckoutRequest) { r.ShippingMethod = "drone" }, pricing.ErrUnknownShippingMethod},
		{"bad payment method", func(r *CheckoutRequest) { r.PaymentMethod = "barter" }, payment.ErrUnknownMethod},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &mockOrderRepo{}
			svc := newService(repo, &mockValidator{})

			req := validRequest()
			tt.mutate(&req)

			_, err := svc.PlaceOrder(context.Background(), req)
			require.ErrorIs(t, err, tt.wantErr)
			assert.Nil(t, repo.created, "validation failures must precede persistence")
		})
	}
}

func TestPlaceOrder_IdempotentReplay(t *testing.T) {
	existing := &Order{ID: 55, Number: "PED-2026-0003", Status: StatusPending}
	repo := &mockOrderRepo{byToken: map[string]*Order{"tok-1": existing}}
	svc := newService(repo, &mockValidator{})

	req := validRequest()
	req.CheckoutToken = "tok-1"

	o, err := svc.PlaceOrder(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, existing, o)
	assert.Nil(t, repo.created, "replay must not create a second order")
}

func TestPlaceOrder_LineSnapshots(t *testing.T) {
	repo := &mockOrderRepo{}
	svc := newService(repo, &mockValidator{})

	promo := dec("80.00")
	req := validRequest()
	req.Lines = []pricing.Line{
		{
			ProductID:      "mesa-2",
			Name:           "Mesa Roble",
			UnitPrice:      dec("100.00"),
			PromoUnitPrice: &promo,
			Quantity:       3,
		},
	}

	o, err := svc.PlaceOrder(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, dec("240.00").Equal(o.Subtotal), "subtotal %s", o.Subtotal)
	require.NotNil(t, repo.created)
}

func TestPlaceOrder_SurfacesRepoFailure(t *testing.T) {
	repo := &mockOrderRepo{createErr: ErrCreationFailed}
	svc := newService(repo, &mockValidator{})

	_, err := svc.PlaceOrder(context.Background(), validRequest())
	assert.ErrorIs(t, err, ErrCreationFailed)
}

func TestMarkPaid(t *testing.T) {
	repo := &mockOrderRepo{}
	svc := newService(repo, &mockValidator{})

	require.NoError(t, svc.MarkPaid(context.Background(), 101))
	assert.Equal(t, []string{"PENDING->PAID"}, repo.transitions)
}

func TestTransition(t *testing.T) {
	repo := &mockOrderRepo{byID: map[int64]*Order{
		9: {ID: 9, Status: StatusPaid},
	}}
	svc := newService(repo, &mockValidator{})

	o, err := svc.Transition(context.Background(), 9, StatusShipped)
	require.NoError(t, err)
	assert.Equal(t, StatusShipped, o.Status)
	assert.Equal(t, []string{"PAID->SHIPPED"}, repo.transitions)

	_, err = svc.Transition(context.Background(), 9, StatusPending)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestTransition_UnknownOrder(t *testing.T) {
	repo := &mockOrderRepo{}
	svc := newService(repo, &mockValidator{})

	_, err := svc.Transition(context.Background(), 404, StatusPaid)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPlaceOrder_TokenLookupErrorSurfaces(t *testing.T) {
	repo := &mockOrderRepo{}
	svc := newService(repo, &mockValidator{})

	req := validRequest()
	req.CheckoutToken = "tok-miss"

	// Token not found: proceeds to create normally.
	o, err := svc.PlaceOrder(context.Background(), req)
	require.NoError(t, err)
	assert.NotNil(t, o)
	assert.Equal(t, "tok-miss", repo.created.CheckoutToken)
}
