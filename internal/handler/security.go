package handler

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/casamueble/checkout/internal/domain/auth"
	"github.com/casamueble/checkout/pkg/httpmiddleware"
)

// APIKeyAuth guards the admin surface. Keys are never stored in clear: the
// database holds HMAC-SHA256(pepper, key) and lookups recompute the digest,
// so a leaked table does not leak usable keys.
type APIKeyAuth struct {
	keys   auth.Repository
	pepper string
}

// NewAPIKeyAuth builds the admin authenticator.
func NewAPIKeyAuth(keys auth.Repository, pepper string) *APIKeyAuth {
	return &APIKeyAuth{keys: keys, pepper: pepper}
}

// HashKey computes the stored digest of an API key.
func HashKey(pepper, key string) string {
	mac := hmac.New(sha256.New, []byte(pepper))
	mac.Write([]byte(key))
	return hex.EncodeToString(mac.Sum(nil))
}

// Authenticate resolves a bearer key to its registration.
func (a *APIKeyAuth) Authenticate(r *http.Request) (*auth.APIKey, error) {
	header := r.Header.Get("Authorization")
	key, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || key == "" {
		return nil, errors.New("missing bearer token")
	}
	return a.keys.FindByHash(r.Context(), HashKey(a.pepper, key))
}

// Require wraps a handler with API key authentication.
func (a *APIKeyAuth) Require() httpmiddleware.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			k, err := a.Authenticate(r)
			if err != nil {
				zctx.From(r.Context()).Warn("admin auth rejected", zap.Error(err))
				writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "valid API key required")
				return
			}
			zctx.From(r.Context()).Debug("admin authenticated", zap.String("key", k.Name))
			next.ServeHTTP(w, r)
		})
	}
}
