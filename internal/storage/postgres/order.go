package postgres

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/casamueble/checkout/internal/domain/coupon"
	"github.com/casamueble/checkout/internal/domain/order"
	"github.com/casamueble/checkout/internal/domain/payment"
	"github.com/casamueble/checkout/internal/domain/pricing"
)

// sequencerLockBase namespaces the per-year advisory lock so it cannot
// collide with other advisory lock users on the same database.
const sequencerLockBase int64 = 0x504544 << 16 // "PED"

const uniqueViolation = "23505"

const (
	lastNumberSQL = `SELECT number FROM orders
	WHERE number LIKE $1 ORDER BY id DESC LIMIT 1`

	insertOrderSQL = `INSERT INTO orders
	(number, customer_id, ship_name, ship_address, ship_city, ship_postal_code,
	 ship_phone, ship_email, shipping_method, shipping_cost, payment_method,
	 subtotal, discount, total, status, coupon_code, checkout_token)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15,
	        NULLIF($16, ''), NULLIF($17, '')::uuid)
	RETURNING id, created_at`

	insertLineSQL = `INSERT INTO order_lines
	(order_id, product_name, quantity, unit_price, subtotal)
	VALUES ($1, $2, $3, $4, $5)`

	// The WHERE clause makes cap enforcement atomic: zero rows affected
	// means the coupon is exhausted, with no read-modify-write window.
	reserveCouponSQL = `UPDATE coupons SET used_count = used_count + 1
	WHERE code = $1 AND (total_cap = 0 OR used_count < total_cap)`

	reserveCustomerSQL = `INSERT INTO coupon_redemptions AS cr
	(coupon_code, customer_id, uses) VALUES ($1, $2, 1)
	ON CONFLICT (coupon_code, customer_id) DO UPDATE SET uses = cr.uses + 1
	WHERE (SELECT per_customer_cap FROM coupons WHERE code = $1) = 0
	   OR cr.uses < (SELECT per_customer_cap FROM coupons WHERE code = $1)`

	selectOrderSQL = `SELECT id, number, customer_id, ship_name, ship_address,
	ship_city, ship_postal_code, ship_phone, ship_email, shipping_method,
	shipping_cost, payment_method, subtotal, discount, total, status,
	COALESCE(coupon_code, ''), COALESCE(checkout_token::text, ''), created_at
	FROM orders`

	transitionSQL = `UPDATE orders SET status = $3 WHERE id = $1 AND status = $2`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	db          DB
	maxAttempts int
	now         func() time.Time
}

// NewOrderRepository returns an OrderRepository using the given pool.
// maxAttempts bounds the retries of the sequence-and-insert transaction when
// a concurrent checkout wins the same order number.
func NewOrderRepository(db DB, maxAttempts int) *OrderRepository {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &OrderRepository{db: db, maxAttempts: maxAttempts, now: time.Now}
}

// CreatePending issues the next order number for the current year and inserts
// the order, its lines, and the coupon reservation in one transaction.
//
// The read-then-insert on the sequence is serialized by a year-scoped
// advisory lock held for the transaction; the unique index on number is the
// backstop. A lost race surfaces as SQLSTATE 23505 and the whole transaction
// is retried from scratch, bounded by maxAttempts.
func (r *OrderRepository) CreatePending(ctx context.Context, o *order.Order, lines []order.Line, res *order.Reservation) error {
	year := r.now().UTC().Year()

	var lastErr error
	for attempt := 0; attempt < r.maxAttempts; attempt++ {
		err := r.createPendingTx(ctx, o, lines, res, year)
		if err == nil {
			return nil
		}
		if !isUniqueViolation(err) {
			return err
		}
		lastErr = err
	}
	return errors.Wrapf(order.ErrCreationFailed, "sequencer conflict after %d attempts: %v", r.maxAttempts, lastErr)
}

func (r *OrderRepository) createPendingTx(ctx context.Context, o *order.Order, lines []order.Line, res *order.Reservation, year int) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return errors.Wrap(err, "begin")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, sequencerLockBase+int64(year)); err != nil {
		return errors.Wrap(err, "acquire sequencer lock")
	}

	seq := 1
	var last string
	err = tx.QueryRow(ctx, lastNumberSQL, order.NumberPrefix(year)).Scan(&last)
	switch {
	case err == nil:
		_, prev, perr := order.ParseNumber(last)
		if perr != nil {
			return errors.Wrapf(perr, "stored order number %q", last)
		}
		seq = prev + 1
	case errors.Is(err, pgx.ErrNoRows):
		// First order of the year.
	default:
		return errors.Wrap(err, "query last order number")
	}

	o.Number = order.FormatNumber(year, seq)
	o.Status = order.StatusPending

	err = tx.QueryRow(ctx, insertOrderSQL,
		o.Number, o.CustomerID,
		o.ShipName, o.ShipAddress, o.ShipCity, o.ShipPostalCode, o.ShipPhone, o.ShipEmail,
		string(o.ShippingMethod), o.ShippingCost, string(o.PaymentMethod),
		o.Subtotal, o.Discount, o.Total, string(o.Status),
		o.CouponCode, o.CheckoutToken,
	).Scan(&o.ID, &o.CreatedAt)
	if err != nil {
		return errors.Wrap(err, "insert order")
	}

	for _, l := range lines {
		if _, err := tx.Exec(ctx, insertLineSQL,
			o.ID, l.ProductName, l.Quantity, l.UnitPrice, l.Subtotal,
		); err != nil {
			return errors.Wrap(err, "insert order line")
		}
	}

	if res != nil {
		tag, err := tx.Exec(ctx, reserveCouponSQL, res.Code)
		if err != nil {
			return errors.Wrap(err, "reserve coupon")
		}
		if tag.RowsAffected() == 0 {
			return coupon.ErrExhausted
		}

		tag, err = tx.Exec(ctx, reserveCustomerSQL, res.Code, res.CustomerID)
		if err != nil {
			return errors.Wrap(err, "reserve customer coupon use")
		}
		if tag.RowsAffected() == 0 {
			return coupon.ErrAlreadyUsed
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return errors.Wrap(err, "commit")
	}
	return nil
}

// FindByID returns an order by internal id.
func (r *OrderRepository) FindByID(ctx context.Context, id int64) (*order.Order, error) {
	return r.scanOne(r.db.QueryRow(ctx, selectOrderSQL+` WHERE id = $1`, id))
}

// FindByNumber returns an order by its human-readable number.
func (r *OrderRepository) FindByNumber(ctx context.Context, number string) (*order.Order, error) {
	return r.scanOne(r.db.QueryRow(ctx, selectOrderSQL+` WHERE number = $1`, number))
}

// FindByToken returns an order by its idempotency token.
func (r *OrderRepository) FindByToken(ctx context.Context, token string) (*order.Order, error) {
	return r.scanOne(r.db.QueryRow(ctx, selectOrderSQL+` WHERE checkout_token = $1::uuid`, token))
}

// TransitionStatus conditionally moves an order between statuses. The status
// guard in the WHERE clause makes concurrent transitions lose cleanly instead
// of clobbering each other.
func (r *OrderRepository) TransitionStatus(ctx context.Context, id int64, from, to order.Status) error {
	tag, err := r.db.Exec(ctx, transitionSQL, id, string(from), string(to))
	if err != nil {
		return errors.Wrap(err, "transition order status")
	}
	if tag.RowsAffected() == 0 {
		return errors.Wrapf(order.ErrInvalidTransition, "order %d is not %s", id, from)
	}
	return nil
}

// Lines returns the line items of an order.
func (r *OrderRepository) Lines(ctx context.Context, orderID int64) ([]order.Line, error) {
	rows, err := r.db.Query(ctx,
		`SELECT product_name, quantity, unit_price, subtotal
		 FROM order_lines WHERE order_id = $1 ORDER BY id`, orderID)
	if err != nil {
		return nil, errors.Wrap(err, "query order lines")
	}
	defer rows.Close()

	var lines []order.Line
	for rows.Next() {
		var l order.Line
		if err := rows.Scan(&l.ProductName, &l.Quantity, &l.UnitPrice, &l.Subtotal); err != nil {
			return nil, errors.Wrap(err, "scan order line")
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

func (r *OrderRepository) scanOne(row pgx.Row) (*order.Order, error) {
	var o order.Order
	var shippingMethod, paymentMethod, status string
	err := row.Scan(
		&o.ID, &o.Number, &o.CustomerID,
		&o.ShipName, &o.ShipAddress, &o.ShipCity, &o.ShipPostalCode, &o.ShipPhone, &o.ShipEmail,
		&shippingMethod, &o.ShippingCost, &paymentMethod,
		&o.Subtotal, &o.Discount, &o.Total, &status,
		&o.CouponCode, &o.CheckoutToken, &o.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, errors.Wrap(err, "scan order")
	}
	o.ShippingMethod = pricing.ShippingMethod(shippingMethod)
	o.PaymentMethod = payment.Method(paymentMethod)
	o.Status = order.Status(status)
	return &o, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
