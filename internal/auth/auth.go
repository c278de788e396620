// Package auth verifies API keys and resolves the owning tenant.
package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

type ctxKey struct{}

// Authenticator maps opaque bearer tokens to tenant identifiers. The tenant
// is always derived here, server-side; client input never selects a
// namespace.
type Authenticator struct {
	keys   map[string]string
	logger *zap.Logger
}

// New creates an authenticator from a token-to-tenant map.
func New(keys map[string]string, logger *zap.Logger) *Authenticator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Authenticator{keys: keys, logger: logger}
}

// Middleware rejects requests without a valid API key. A missing key yields
// 403, an unknown key 401. On success the tenant is attached to the request
// context. Tokens are never logged.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			a.deny(w, http.StatusForbidden, "API key is missing")
			return
		}
		tenant, ok := a.keys[token]
		if !ok {
			a.deny(w, http.StatusUnauthorized, "API key is invalid")
			return
		}
		next.ServeHTTP(w, r.WithContext(WithTenant(r.Context(), tenant)))
	})
}

func (a *Authenticator) deny(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if h == "" {
		return ""
	}
	parts := strings.SplitN(h, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// WithTenant returns a context carrying the authenticated tenant.
func WithTenant(ctx context.Context, tenant string) context.Context {
	return context.WithValue(ctx, ctxKey{}, tenant)
}

// TenantFromContext returns the authenticated tenant, if any.
func TenantFromContext(ctx context.Context) (string, bool) {
	tenant, ok := ctx.Value(ctxKey{}).(string)
	return tenant, ok && tenant != ""
}
