// Package customer is the checkout-side boundary to the customer/session
// collaborator. The core only needs a resolved identity at checkout time;
// authentication and account management live elsewhere.
package customer

import (
	"context"

	"github.com/go-faster/errors"
)

// ErrNotFound is returned when no customer matches the given identity.
// Checkout rejects orders for unknown customers rather than silently
// attributing them to a fallback account.
var ErrNotFound = errors.New("customer not found")

// Customer is the resolved identity consumed at checkout time.
type Customer struct {
	ID         int64
	Name       string
	Email      string
	Phone      string
	Address    string
	City       string
	PostalCode string
}

// Repository resolves customer identities.
type Repository interface {
	FindByID(ctx context.Context, id int64) (*Customer, error)
	FindByEmail(ctx context.Context, email string) (*Customer, error)
}
