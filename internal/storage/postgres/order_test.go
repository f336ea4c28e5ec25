package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/casamueble/checkout/internal/domain/coupon"
	"github.com/casamueble/checkout/internal/domain/order"
	"github.com/casamueble/checkout/internal/domain/payment"
	"github.com/casamueble/checkout/internal/domain/pricing"
)

var fixedNow = time.Date(2026, time.March, 14, 12, 0, 0, 0, time.UTC)

func newMockOrderRepo(t *testing.T) (*OrderRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	repo := NewOrderRepository(mock, 3)
	repo.now = func() time.Time { return fixedNow }
	return repo, mock
}

// anyArgs returns n pgxmock.AnyArg matchers; pgxmock expectations without
// WithArgs only match zero-argument calls, so "don't care" needs explicit
// wildcards.
func anyArgs(n int) []any {
	args := make([]any, n)
	for i := range args {
		args[i] = pgxmock.AnyArg()
	}
	return args
}

func pendingOrder() (*order.Order, []order.Line) {
	o := &order.Order{
		CustomerID:     5,
		ShipName:       "Ana Torres",
		ShipAddress:    "Calle Mayor 1",
		ShipCity:       "Madrid",
		ShipPostalCode: "28001",
		ShipEmail:      "ana@example.com",
		ShippingMethod: pricing.ShippingCourier,
		ShippingCost:   decimal.RequireFromString("5.00"),
		PaymentMethod:  payment.MethodCard,
		Subtotal:       decimal.RequireFromString("120.00"),
		Discount:       decimal.Zero,
		Total:          decimal.RequireFromString("125.00"),
	}
	lines := []order.Line{{
		ProductName: "Mesa Roble",
		Quantity:    2,
		UnitPrice:   decimal.RequireFromString("60.00"),
		Subtotal:    decimal.RequireFromString("120.00"),
	}}
	return o, lines
}

func expectSequencer(mock pgxmock.PgxPoolIface, last string) {
	mock.ExpectExec("pg_advisory_xact_lock").
		WithArgs(sequencerLockBase + 2026).
		WillReturnResult(pgxmock.NewResult("SELECT", 1))
	q := mock.ExpectQuery("SELECT number FROM orders").
		WithArgs(order.NumberPrefix(2026))
	if last == "" {
		q.WillReturnError(pgx.ErrNoRows)
	} else {
		q.WillReturnRows(pgxmock.NewRows([]string{"number"}).AddRow(last))
	}
}

func TestOrderRepositoryCreatePending(t *testing.T) {
	t.Run("continues the year sequence", func(t *testing.T) {
		repo, mock := newMockOrderRepo(t)
		o, lines := pendingOrder()

		mock.ExpectBegin()
		expectSequencer(mock, "PED-2026-0012")
		mock.ExpectQuery("INSERT INTO orders").WithArgs(anyArgs(17)...).
			WillReturnRows(pgxmock.NewRows([]string{"id", "created_at"}).AddRow(int64(101), fixedNow))
		mock.ExpectExec("INSERT INTO order_lines").WithArgs(anyArgs(5)...).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		mock.ExpectCommit()

		require.NoError(t, repo.CreatePending(context.Background(), o, lines, nil))
		require.Equal(t, "PED-2026-0013", o.Number)
		require.Equal(t, order.StatusPending, o.Status)
		require.Equal(t, int64(101), o.ID)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("first order of the year starts at 0001", func(t *testing.T) {
		repo, mock := newMockOrderRepo(t)
		o, lines := pendingOrder()

		mock.ExpectBegin()
		expectSequencer(mock, "")
		mock.ExpectQuery("INSERT INTO orders").WithArgs(anyArgs(17)...).
			WillReturnRows(pgxmock.NewRows([]string{"id", "created_at"}).AddRow(int64(1), fixedNow))
		mock.ExpectExec("INSERT INTO order_lines").WithArgs(anyArgs(5)...).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		mock.ExpectCommit()

		require.NoError(t, repo.CreatePending(context.Background(), o, lines, nil))
		require.Equal(t, "PED-2026-0001", o.Number)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("retries the whole transaction on a number collision", func(t *testing.T) {
		repo, mock := newMockOrderRepo(t)
		o, lines := pendingOrder()

		mock.ExpectBegin()
		expectSequencer(mock, "PED-2026-0012")
		mock.ExpectQuery("INSERT INTO orders").WithArgs(anyArgs(17)...).
			WillReturnError(&pgconn.PgError{Code: uniqueViolation})
		mock.ExpectRollback()

		mock.ExpectBegin()
		expectSequencer(mock, "PED-2026-0013")
		mock.ExpectQuery("INSERT INTO orders").WithArgs(anyArgs(17)...).
			WillReturnRows(pgxmock.NewRows([]string{"id", "created_at"}).AddRow(int64(102), fixedNow))
		mock.ExpectExec("INSERT INTO order_lines").WithArgs(anyArgs(5)...).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		mock.ExpectCommit()

		require.NoError(t, repo.CreatePending(context.Background(), o, lines, nil))
		require.Equal(t, "PED-2026-0014", o.Number)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("gives up after the retry bound", func(t *testing.T) {
		repo, mock := newMockOrderRepo(t)
		repo.maxAttempts = 2
		o, lines := pendingOrder()

		for range 2 {
			mock.ExpectBegin()
			expectSequencer(mock, "PED-2026-0012")
			mock.ExpectQuery("INSERT INTO orders").WithArgs(anyArgs(17)...).
				WillReturnError(&pgconn.PgError{Code: uniqueViolation})
			mock.ExpectRollback()
		}

		err := repo.CreatePending(context.Background(), o, lines, nil)
		require.ErrorIs(t, err, order.ErrCreationFailed)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("line insert failure rolls the order back", func(t *testing.T) {
		repo, mock := newMockOrderRepo(t)
		o, lines := pendingOrder()

		mock.ExpectBegin()
		expectSequencer(mock, "PED-2026-0012")
		mock.ExpectQuery("INSERT INTO orders").WithArgs(anyArgs(17)...).
			WillReturnRows(pgxmock.NewRows([]string{"id", "created_at"}).AddRow(int64(106), fixedNow))
		mock.ExpectExec("INSERT INTO order_lines").WithArgs(anyArgs(5)...).
			WillReturnError(errors.New("disk full"))
		mock.ExpectRollback()

		err := repo.CreatePending(context.Background(), o, lines, nil)
		require.ErrorContains(t, err, "insert order line")
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("consumes the coupon inside the transaction", func(t *testing.T) {
		repo, mock := newMockOrderRepo(t)
		o, lines := pendingOrder()
		res := &order.Reservation{Code: "VERANO10", CustomerID: 5}

		mock.ExpectBegin()
		expectSequencer(mock, "PED-2026-0042")
		mock.ExpectQuery("INSERT INTO orders").WithArgs(anyArgs(17)...).
			WillReturnRows(pgxmock.NewRows([]string{"id", "created_at"}).AddRow(int64(103), fixedNow))
		mock.ExpectExec("INSERT INTO order_lines").WithArgs(anyArgs(5)...).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		mock.ExpectExec("UPDATE coupons SET used_count").
			WithArgs("VERANO10").
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))
		mock.ExpectExec("INSERT INTO coupon_redemptions").
			WithArgs("VERANO10", int64(5)).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		mock.ExpectCommit()

		require.NoError(t, repo.CreatePending(context.Background(), o, lines, res))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("exhausted coupon rolls the order back", func(t *testing.T) {
		repo, mock := newMockOrderRepo(t)
		o, lines := pendingOrder()
		res := &order.Reservation{Code: "VERANO10", CustomerID: 5}

		mock.ExpectBegin()
		expectSequencer(mock, "PED-2026-0042")
		mock.ExpectQuery("INSERT INTO orders").WithArgs(anyArgs(17)...).
			WillReturnRows(pgxmock.NewRows([]string{"id", "created_at"}).AddRow(int64(104), fixedNow))
		mock.ExpectExec("INSERT INTO order_lines").WithArgs(anyArgs(5)...).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		mock.ExpectExec("UPDATE coupons SET used_count").
			WithArgs("VERANO10").
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))
		mock.ExpectRollback()

		err := repo.CreatePending(context.Background(), o, lines, res)
		require.ErrorIs(t, err, coupon.ErrExhausted)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("per-customer cap rejects a repeat redemption", func(t *testing.T) {
		repo, mock := newMockOrderRepo(t)
		o, lines := pendingOrder()
		res := &order.Reservation{Code: "BIENVENIDA", CustomerID: 5}

		mock.ExpectBegin()
		expectSequencer(mock, "PED-2026-0042")
		mock.ExpectQuery("INSERT INTO orders").WithArgs(anyArgs(17)...).
			WillReturnRows(pgxmock.NewRows([]string{"id", "created_at"}).AddRow(int64(105), fixedNow))
		mock.ExpectExec("INSERT INTO order_lines").WithArgs(anyArgs(5)...).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		mock.ExpectExec("UPDATE coupons SET used_count").
			WithArgs("BIENVENIDA").
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))
		mock.ExpectExec("INSERT INTO coupon_redemptions").
			WithArgs("BIENVENIDA", int64(5)).
			WillReturnResult(pgxmock.NewResult("INSERT", 0))
		mock.ExpectRollback()

		err := repo.CreatePending(context.Background(), o, lines, res)
		require.ErrorIs(t, err, coupon.ErrAlreadyUsed)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestOrderRepositoryFind(t *testing.T) {
	orderColumns := []string{
		"id", "number", "customer_id",
		"ship_name", "ship_address", "ship_city", "ship_postal_code", "ship_phone", "ship_email",
		"shipping_method", "shipping_cost", "payment_method",
		"subtotal", "discount", "total", "status",
		"coupon_code", "checkout_token", "created_at",
	}

	t.Run("by number", func(t *testing.T) {
		repo, mock := newMockOrderRepo(t)

		mock.ExpectQuery("FROM orders WHERE number").
			WithArgs("PED-2026-0013").
			WillReturnRows(pgxmock.NewRows(orderColumns).AddRow(
				int64(101), "PED-2026-0013", int64(5),
				"Ana Torres", "Calle Mayor 1", "Madrid", "28001", "", "ana@example.com",
				"courier", decimal.RequireFromString("5.00"), "card",
				decimal.RequireFromString("120.00"), decimal.Zero, decimal.RequireFromString("125.00"), "PAID",
				"", "", fixedNow,
			))

		o, err := repo.FindByNumber(context.Background(), "PED-2026-0013")
		require.NoError(t, err)
		require.Equal(t, int64(101), o.ID)
		require.Equal(t, order.StatusPaid, o.Status)
		require.Equal(t, pricing.ShippingCourier, o.ShippingMethod)
		require.Equal(t, payment.MethodCard, o.PaymentMethod)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing order maps to not found", func(t *testing.T) {
		repo, mock := newMockOrderRepo(t)

		mock.ExpectQuery("FROM orders WHERE number").
			WithArgs("PED-2026-9999").
			WillReturnError(pgx.ErrNoRows)

		_, err := repo.FindByNumber(context.Background(), "PED-2026-9999")
		require.ErrorIs(t, err, order.ErrNotFound)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestOrderRepositoryTransitionStatus(t *testing.T) {
	t.Run("applies a guarded update", func(t *testing.T) {
		repo, mock := newMockOrderRepo(t)

		mock.ExpectExec("UPDATE orders SET status").
			WithArgs(int64(101), "PENDING", "PAID").
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		require.NoError(t, repo.TransitionStatus(context.Background(), 101, order.StatusPending, order.StatusPaid))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("stale status loses without effect", func(t *testing.T) {
		repo, mock := newMockOrderRepo(t)

		mock.ExpectExec("UPDATE orders SET status").
			WithArgs(int64(101), "PENDING", "PAID").
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		err := repo.TransitionStatus(context.Background(), 101, order.StatusPending, order.StatusPaid)
		require.ErrorIs(t, err, order.ErrInvalidTransition)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}
