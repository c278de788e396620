package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func protected(t *testing.T) (*Authenticator, http.Handler) {
	t.Helper()
	a := New(map[string]string{"key-a": "tenant-a", "key-b": "tenant-b"}, nil)
	h := a.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tenant, ok := TenantFromContext(r.Context())
		if !ok {
			t.Error("tenant missing from context")
		}
		w.Write([]byte(tenant))
	}))
	return a, h
}

func TestMiddleware_ValidKey(t *testing.T) {
	_, h := protected(t)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer key-a")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d", rec.Code)
	}
	if rec.Body.String() != "tenant-a" {
		t.Errorf("tenant=%q", rec.Body.String())
	}
}

func TestMiddleware_MissingKey(t *testing.T) {
	_, h := protected(t)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("status=%d, want 403", rec.Code)
	}
}

func TestMiddleware_InvalidKey(t *testing.T) {
	_, h := protected(t)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status=%d, want 401", rec.Code)
	}
}

func TestMiddleware_MalformedHeader(t *testing.T) {
	_, h := protected(t)
	for _, header := range []string{"key-a", "Basic key-a", "Bearer"} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", header)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusForbidden {
			t.Errorf("header %q: status=%d, want 403", header, rec.Code)
		}
	}
}

func TestTenantFromContext_Empty(t *testing.T) {
	if _, ok := TenantFromContext(httptest.NewRequest(http.MethodGet, "/", nil).Context()); ok {
		t.Error("expected no tenant on bare context")
	}
}
