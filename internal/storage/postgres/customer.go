package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"

	"github.com/casamueble/checkout/internal/domain/customer"
)

const selectCustomerSQL = `SELECT id, name, email, phone, address, city, postal_code
FROM customers`

var _ customer.Repository = (*CustomerRepository)(nil)

// CustomerRepository implements customer.Repository backed by PostgreSQL.
type CustomerRepository struct {
	db DB
}

func NewCustomerRepository(db DB) *CustomerRepository {
	return &CustomerRepository{db: db}
}

func (r *CustomerRepository) FindByID(ctx context.Context, id int64) (*customer.Customer, error) {
	return r.scanOne(r.db.QueryRow(ctx, selectCustomerSQL+` WHERE id = $1`, id))
}

func (r *CustomerRepository) FindByEmail(ctx context.Context, email string) (*customer.Customer, error) {
	return r.scanOne(r.db.QueryRow(ctx, selectCustomerSQL+` WHERE lower(email) = lower($1)`, email))
}

// Create inserts a customer and fills in the assigned id. Used by the seed
// tool.
func (r *CustomerRepository) Create(ctx context.Context, c *customer.Customer) error {
	err := r.db.QueryRow(ctx,
		`INSERT INTO customers (name, email, phone, address, city, postal_code)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (email) DO UPDATE SET name = EXCLUDED.name
		 RETURNING id`,
		c.Name, c.Email, c.Phone, c.Address, c.City, c.PostalCode,
	).Scan(&c.ID)
	if err != nil {
		return errors.Wrap(err, "insert customer")
	}
	return nil
}

func (r *CustomerRepository) scanOne(row pgx.Row) (*customer.Customer, error) {
	var c customer.Customer
	err := row.Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.Address, &c.City, &c.PostalCode)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, customer.ErrNotFound
		}
		return nil, errors.Wrap(err, "scan customer")
	}
	return &c, nil
}
