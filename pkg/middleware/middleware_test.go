package middleware

import (
	"context"
	"database/sql"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	_ "github.com/mattn/go-sqlite3"

	"github.com/crewdesk/crewdesk/pkg/auth"
	"github.com/crewdesk/crewdesk/pkg/authz"
	"github.com/crewdesk/crewdesk/pkg/contextkeys"
	"github.com/crewdesk/crewdesk/pkg/observability"
	"github.com/crewdesk/crewdesk/pkg/tenants"
)

type fakeVerifier struct {
	principal *authz.Principal
	err       error
}

func (f *fakeVerifier) Verify(ctx context.Context, token string) (*authz.Principal, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.principal, nil
}

func okHandler(t *testing.T, gotPrincipal **authz.Principal) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if gotPrincipal != nil {
			*gotPrincipal = Principal(r.Context())
		}
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthMiddleware(t *testing.T) {
	t.Run("valid token stores principal", func(t *testing.T) {
		want := &authz.Principal{UserID: 7, TenantID: 1, Role: authz.RoleEmployee}
		var got *authz.Principal
		handler := Auth(&fakeVerifier{principal: want})(okHandler(t, &got))

		req := httptest.NewRequest(http.MethodGet, "/api/v1/users/me", nil)
		req.Header.Set("Authorization", "Bearer sometoken")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d", rec.Code)
		}
		if got == nil || got.UserID != 7 {
			t.Errorf("Principal not stored in context: %+v", got)
		}
	})

	t.Run("missing header is 401", func(t *testing.T) {
		handler := Auth(&fakeVerifier{})(okHandler(t, nil))
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("Expected 401, got %d", rec.Code)
		}
	})

	t.Run("malformed header is 401", func(t *testing.T) {
		handler := Auth(&fakeVerifier{})(okHandler(t, nil))
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("Expected 401, got %d", rec.Code)
		}
	})

	t.Run("expired token reason is surfaced", func(t *testing.T) {
		handler := Auth(&fakeVerifier{err: authz.ErrTokenExpired})(okHandler(t, nil))
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer expired")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("Expected 401, got %d", rec.Code)
		}
		if body := rec.Body.String(); !strings.Contains(body, "token expired") {
			t.Errorf("Expected expiry reason in body, got %s", body)
		}
	})
}

func setupTenantStore(t *testing.T) (*tenants.Store, *sql.DB) {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`
		CREATE TABLE tenants (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			subdomain TEXT NOT NULL UNIQUE,
			status TEXT NOT NULL DEFAULT 'trial',
			trial_ends_at TIMESTAMP,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)
	`)
	if err != nil {
		t.Fatalf("Failed to create test schema: %v", err)
	}
	return tenants.NewStore(db), db
}

func insertTenant(t *testing.T, db *sql.DB, subdomain, status string) {
	t.Helper()
	_, err := db.Exec(
		`INSERT INTO tenants (name, subdomain, status, created_at, updated_at) VALUES ($1, $2, $3, $4, $5)`,
		subdomain, subdomain, status, time.Now().UTC(), time.Now().UTC())
	if err != nil {
		t.Fatalf("Failed to insert tenant: %v", err)
	}
}

func TestTenantResolver(t *testing.T) {
	store, db := setupTenantStore(t)
	insertTenant(t, db, "acme", tenants.StatusActive)
	insertTenant(t, db, "frozen", tenants.StatusSuspended)

	resolver := NewTenantResolver(store, 16, time.Minute)
	var resolved *tenants.Tenant
	handler := resolver.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resolved = Tenant(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	t.Run("resolves from host subdomain", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Host = "acme.crewdesk.example:8080"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d", rec.Code)
		}
		if resolved == nil || resolved.Subdomain != "acme" {
			t.Errorf("Tenant not resolved: %+v", resolved)
		}
	})

	t.Run("resolves from header override", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Host = "localhost"
		req.Header.Set(TenantHeader, "ACME")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("Expected 200, got %d", rec.Code)
		}
	})

	t.Run("unknown tenant is 404", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Host = "nosuch.crewdesk.example"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusNotFound {
			t.Errorf("Expected 404, got %d", rec.Code)
		}
	})

	t.Run("bare host is 404", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Host = "localhost:8080"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusNotFound {
			t.Errorf("Expected 404, got %d", rec.Code)
		}
	})

	t.Run("suspended tenant is 403", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Host = "frozen.crewdesk.example"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusForbidden {
			t.Errorf("Expected 403, got %d", rec.Code)
		}
	})

	t.Run("cache survives a dropped row until TTL", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Host = "acme.crewdesk.example"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("Warm-up request failed: %d", rec.Code)
		}

		if _, err := db.Exec(`DELETE FROM tenants WHERE subdomain = 'acme'`); err != nil {
			t.Fatalf("Delete failed: %v", err)
		}
		rec = httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("Expected cached hit to still resolve, got %d", rec.Code)
		}
	})
}

func TestRateLimiterMemory(t *testing.T) {
	log := observability.NewLogger(observability.ErrorLevel, io.Discard)
	rl := NewRateLimiter(auth.NewMemoryCounter(), 2, time.Minute, log)
	handler := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	send := func(ip string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = ip + ":12345"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	for i := 0; i < 2; i++ {
		if code := send("10.0.0.1"); code != http.StatusOK {
			t.Fatalf("Request %d: expected 200, got %d", i+1, code)
		}
	}
	if code := send("10.0.0.1"); code != http.StatusTooManyRequests {
		t.Errorf("Expected 429 over limit, got %d", code)
	}
	// Other clients are unaffected.
	if code := send("10.0.0.2"); code != http.StatusOK {
		t.Errorf("Expected 200 for other client, got %d", code)
	}
}

func TestRateLimiterRedisWindow(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	log := observability.NewLogger(observability.ErrorLevel, io.Discard)
	rl := NewRateLimiter(auth.NewRedisCounter(client, "reqs"), 1, time.Minute, log)
	handler := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	send := func() int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	if code := send(); code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", code)
	}
	if code := send(); code != http.StatusTooManyRequests {
		t.Fatalf("Expected 429, got %d", code)
	}

	// The window expires and the client recovers.
	mr.FastForward(2 * time.Minute)
	if code := send(); code != http.StatusOK {
		t.Errorf("Expected 200 after window, got %d", code)
	}
}

func TestRateLimiterFailsOpen(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	mr.Close() // backend down

	log := observability.NewLogger(observability.ErrorLevel, io.Discard)
	rl := NewRateLimiter(auth.NewRedisCounter(client, "reqs"), 1, time.Minute, log)
	handler := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("Expected fail-open 200 with backend down, got %d", rec.Code)
	}
}

func TestRequestID(t *testing.T) {
	var seen string
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = contextkeys.GetRequestID(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	t.Run("generates when absent", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if seen == "" {
			t.Error("Expected a generated request ID in context")
		}
		if rec.Header().Get(RequestIDHeader) != seen {
			t.Error("Expected request ID echoed on response")
		}
	})

	t.Run("keeps inbound id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(RequestIDHeader, "req-abc123")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if seen != "req-abc123" {
			t.Errorf("Expected inbound ID kept, got %s", seen)
		}
	})
}
