package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"

	"github.com/casamueble/checkout/internal/domain/auth"
)

var _ auth.Repository = (*APIKeyRepository)(nil)

// APIKeyRepository implements auth.Repository backed by PostgreSQL.
type APIKeyRepository struct {
	db DB
}

func NewAPIKeyRepository(db DB) *APIKeyRepository {
	return &APIKeyRepository{db: db}
}

func (r *APIKeyRepository) FindByHash(ctx context.Context, hash string) (*auth.APIKey, error) {
	var k auth.APIKey
	err := r.db.QueryRow(ctx,
		`SELECT key_hash, name, created_at FROM api_keys WHERE key_hash = $1`, hash,
	).Scan(&k.KeyHash, &k.Name, &k.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, auth.ErrKeyNotFound
		}
		return nil, errors.Wrap(err, "query api key")
	}
	return &k, nil
}

// Insert registers a key hash. Used by the seed tool.
func (r *APIKeyRepository) Insert(ctx context.Context, hash, name string) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO api_keys (key_hash, name) VALUES ($1, $2)
		 ON CONFLICT (key_hash) DO NOTHING`, hash, name)
	if err != nil {
		return errors.Wrap(err, "insert api key")
	}
	return nil
}
