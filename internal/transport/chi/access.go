package chi

import (
	"context"
	"crypto/subtle"
	"fmt"
	"net/http"

	"github.com/kailas-cloud/cinedex/internal/domain"
	"github.com/kailas-cloud/cinedex/internal/domain/entity"
)

// Capability is an action a caller performs on one entity type.
type Capability string

// Capabilities checked by the API handlers.
const (
	CapabilitySearch Capability = "search" // listing and free-text search
	CapabilityRead   Capability = "read"   // single document by id
	CapabilityEvict  Capability = "evict"  // dropping a cached document
)

// Authorizer decides whether the request in ctx may use a capability on an entity type.
// A non-nil error denies the request with 403.
type Authorizer interface {
	Authorize(ctx context.Context, c Capability, t entity.Type) error
}

// AllowAll grants every capability. The catalog has no user accounts.
type AllowAll struct{}

// Authorize implements Authorizer.
func (AllowAll) Authorize(context.Context, Capability, entity.Type) error { return nil }

// authorize runs the capability check and maps a denial onto domain.ErrForbidden.
func (s *Server) authorize(r *http.Request, c Capability, t entity.Type) error {
	if err := s.authz.Authorize(r.Context(), c, t); err != nil {
		return fmt.Errorf("%w: %s %s: %w", domain.ErrForbidden, c, t, err)
	}
	return nil
}

// AdminKeyHeader carries the key for administrative routes.
const AdminKeyHeader = "X-Admin-Key"

// AdminKeyMiddleware admits requests whose X-Admin-Key matches one of adminKeys.
// With no keys configured the guarded routes are closed.
func AdminKeyMiddleware(adminKeys []string) func(http.Handler) http.Handler {
	validKeys := make([][]byte, 0, len(adminKeys))
	for _, k := range adminKeys {
		if k != "" {
			validKeys = append(validKeys, []byte(k))
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get(AdminKeyHeader)
			if key == "" {
				writeError(w, http.StatusForbidden, CodeForbidden, "missing admin key")
				return
			}
			if !knownKey(validKeys, []byte(key)) {
				writeError(w, http.StatusForbidden, CodeForbidden, "invalid admin key")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func knownKey(keys [][]byte, key []byte) bool {
	for _, k := range keys {
		if subtle.ConstantTimeCompare(k, key) == 1 {
			return true
		}
	}
	return false
}
