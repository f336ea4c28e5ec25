package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"

	"github.com/casamueble/checkout/internal/domain/coupon"
)

var _ coupon.Repository = (*CouponRepository)(nil)

// CouponRepository implements coupon.Repository backed by PostgreSQL.
type CouponRepository struct {
	db DB
}

func NewCouponRepository(db DB) *CouponRepository {
	return &CouponRepository{db: db}
}

// FindByCode returns a coupon by its normalized code.
func (r *CouponRepository) FindByCode(ctx context.Context, code string) (*coupon.Coupon, error) {
	var c coupon.Coupon
	var kind string
	err := r.db.QueryRow(ctx,
		`SELECT code, kind, value, total_cap, per_customer_cap, used_count,
		        valid_from, valid_until, description
		 FROM coupons WHERE code = $1`, code,
	).Scan(&c.Code, &kind, &c.Value, &c.TotalCap, &c.PerCustomerCap,
		&c.UsedCount, &c.ValidFrom, &c.ValidUntil, &c.Description)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, coupon.ErrNotFound
		}
		return nil, errors.Wrap(err, "query coupon")
	}
	c.Kind = coupon.Kind(kind)
	return &c, nil
}

// CustomerUses returns how many times the customer has redeemed the code.
// A missing redemption row is simply zero uses.
func (r *CouponRepository) CustomerUses(ctx context.Context, code string, customerID int64) (int, error) {
	var uses int
	err := r.db.QueryRow(ctx,
		`SELECT uses FROM coupon_redemptions
		 WHERE coupon_code = $1 AND customer_id = $2`, code, customerID,
	).Scan(&uses)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, errors.Wrap(err, "query coupon uses")
	}
	return uses, nil
}

// Upsert inserts or replaces a coupon definition, preserving an existing
// used_count. Used by the ingest and seed tools.
func (r *CouponRepository) Upsert(ctx context.Context, c *coupon.Coupon) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO coupons
		 (code, kind, value, total_cap, per_customer_cap, valid_from, valid_until, description)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (code) DO UPDATE SET
		   kind = EXCLUDED.kind,
		   value = EXCLUDED.value,
		   total_cap = EXCLUDED.total_cap,
		   per_customer_cap = EXCLUDED.per_customer_cap,
		   valid_from = EXCLUDED.valid_from,
		   valid_until = EXCLUDED.valid_until,
		   description = EXCLUDED.description`,
		c.Code, string(c.Kind), c.Value, c.TotalCap, c.PerCustomerCap,
		c.ValidFrom, c.ValidUntil, c.Description,
	)
	if err != nil {
		return errors.Wrap(err, "upsert coupon")
	}
	return nil
}
