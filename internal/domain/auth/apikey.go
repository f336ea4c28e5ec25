// Package auth holds the admin API key model used to guard back-office
// endpoints.
package auth

import (
	"context"
	"time"

	"github.com/go-faster/errors"
)

// ErrKeyNotFound is returned when no API key matches the presented hash.
var ErrKeyNotFound = errors.New("api key not found")

// APIKey is a stored admin credential. Only the HMAC-SHA256 hash of the raw
// key is persisted.
type APIKey struct {
	KeyHash   string
	Name      string
	CreatedAt time.Time
}

// Repository provides API key lookup by hash.
type Repository interface {
	FindByHash(ctx context.Context, hash string) (*APIKey, error)
}
