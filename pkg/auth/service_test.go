package auth

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/crewdesk/crewdesk/pkg/audit"
	"github.com/crewdesk/crewdesk/pkg/authz"
	"github.com/crewdesk/crewdesk/pkg/observability"
	"github.com/crewdesk/crewdesk/pkg/tenants"
	"github.com/crewdesk/crewdesk/pkg/users"
)

func setupTestDB(t *testing.T) *sql.DB {
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
		);

		CREATE TABLE users (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			tenant_id INTEGER NOT NULL,
			username TEXT NOT NULL,
			email TEXT NOT NULL,
			first_name TEXT NOT NULL DEFAULT '',
			last_name TEXT NOT NULL DEFAULT '',
			role TEXT NOT NULL DEFAULT 'employee',
			status TEXT NOT NULL DEFAULT 'active',
			department_id INTEGER,
			team_id INTEGER,
			points INTEGER NOT NULL DEFAULT 0,
			password_hash TEXT NOT NULL,
			last_login_at TIMESTAMP,
			deleted_at TIMESTAMP,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		);

		CREATE TABLE sessions (
			id TEXT PRIMARY KEY,
			user_id INTEGER NOT NULL,
			tenant_id INTEGER NOT NULL,
			device_fingerprint TEXT NOT NULL DEFAULT '',
			is_active INTEGER NOT NULL DEFAULT 1,
			created_at TIMESTAMP NOT NULL,
			last_seen_at TIMESTAMP,
			expires_at TIMESTAMP NOT NULL
		)
	`)
	if err != nil {
		t.Fatalf("Failed to create test schema: %v", err)
	}
	return db
}

type testEnv struct {
	svc       *Service
	userStore *users.Store
	sessions  *SessionStore
	tenantID  int64
	userID    int64
}

func setupService(t *testing.T) *testEnv {
	db := setupTestDB(t)
	ctx := context.Background()

	tenantStore := tenants.NewStore(db)
	tenant := &tenants.Tenant{Name: "Acme", Subdomain: "acme"}
	if err := tenantStore.Create(ctx, tenant); err != nil {
		t.Fatalf("Failed to create tenant: %v", err)
	}

	userStore := users.NewStore(db)
	hash, err := HashPassword("correct-horse")
	if err != nil {
		t.Fatalf("Failed to hash password: %v", err)
	}
	u := &users.User{
		TenantID:     tenant.ID,
		Username:     "alice",
		Email:        "alice@example.com",
		Role:         authz.RoleEmployee,
		PasswordHash: hash,
	}
	if err := userStore.Create(ctx, u); err != nil {
		t.Fatalf("Failed to create user: %v", err)
	}

	sessions := NewSessionStore(db)
	svc := NewService(
		userStore, sessions, tenantStore,
		NewTokenIssuer(testSecret, 15*time.Minute, 24*time.Hour),
		NewMemoryCounter(),
		audit.NopLogger{},
		observability.NewLogger(observability.ErrorLevel, io.Discard),
		ServiceConfig{MaxLoginAttempts: 5, AttemptWindow: time.Minute, SessionTTL: 24 * time.Hour},
	)
	return &testEnv{svc: svc, userStore: userStore, sessions: sessions, tenantID: tenant.ID, userID: u.ID}
}

func TestAuthenticateSuccess(t *testing.T) {
	env := setupService(t)
	ctx := context.Background()

	pair, principal, err := env.svc.Authenticate(ctx, env.tenantID, "alice", "correct-horse", "test-device")
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Error("Expected tokens to be issued")
	}
	if principal.UserID != env.userID || principal.TenantID != env.tenantID {
		t.Errorf("Unexpected principal: %+v", principal)
	}

	// Email works as identifier too.
	if _, _, err := env.svc.Authenticate(ctx, env.tenantID, "alice@example.com", "correct-horse", ""); err != nil {
		t.Errorf("Authenticate by email failed: %v", err)
	}

	u, _ := env.userStore.GetByID(ctx, env.tenantID, env.userID)
	if u.LastLoginAt == nil {
		t.Error("Expected last_login_at to be set")
	}
}

func TestAuthenticateWrongPasswordAndUnknownUserLookAlike(t *testing.T) {
	env := setupService(t)
	ctx := context.Background()

	_, _, errWrong := env.svc.Authenticate(ctx, env.tenantID, "alice", "nope", "")
	_, _, errUnknown := env.svc.Authenticate(ctx, env.tenantID, "mallory", "nope", "")

	if !errors.Is(errWrong, authz.ErrInvalidCredentials) {
		t.Errorf("Expected InvalidCredentials for wrong password, got %v", errWrong)
	}
	if !errors.Is(errUnknown, authz.ErrInvalidCredentials) {
		t.Errorf("Expected InvalidCredentials for unknown user, got %v", errUnknown)
	}
}

func TestAuthenticateRateLimited(t *testing.T) {
	env := setupService(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, _, err := env.svc.Authenticate(ctx, env.tenantID, "alice", "wrong", "")
		if !errors.Is(err, authz.ErrInvalidCredentials) {
			t.Fatalf("Attempt %d: expected InvalidCredentials, got %v", i+1, err)
		}
	}

	// The sixth attempt is throttled even with the correct password.
	_, _, err := env.svc.Authenticate(ctx, env.tenantID, "alice", "correct-horse", "")
	if !errors.Is(err, authz.ErrRateLimited) {
		t.Fatalf("Expected RateLimited on sixth attempt, got %v", err)
	}

	// Other identifiers are unaffected.
	if _, _, err := env.svc.Authenticate(ctx, env.tenantID, "alice@example.com", "correct-horse", ""); err != nil {
		t.Errorf("Expected separate identifier to still work, got %v", err)
	}
}

func TestAuthenticateDisabledAccount(t *testing.T) {
	env := setupService(t)
	ctx := context.Background()

	status := users.StatusDisabled
	if err := env.userStore.AdminUpdate(ctx, env.tenantID, env.userID, &users.AdminUpdateRequest{Status: &status}); err != nil {
		t.Fatalf("Failed to disable user: %v", err)
	}

	_, _, err := env.svc.Authenticate(ctx, env.tenantID, "alice", "correct-horse", "")
	if !errors.Is(err, authz.ErrAccountDisabled) {
		t.Errorf("Expected AccountDisabled, got %v", err)
	}
}

func TestVerifyAndInvalidate(t *testing.T) {
	env := setupService(t)
	ctx := context.Background()

	pair, principal, err := env.svc.Authenticate(ctx, env.tenantID, "alice", "correct-horse", "")
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}

	got, err := env.svc.Verify(ctx, pair.AccessToken)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if got.UserID != principal.UserID || got.SessionID != principal.SessionID {
		t.Errorf("Unexpected principal from Verify: %+v", got)
	}

	// Refresh token is not an access token.
	if _, err := env.svc.Verify(ctx, pair.RefreshToken); !errors.Is(err, authz.ErrInvalidTokenType) {
		t.Errorf("Expected InvalidTokenType, got %v", err)
	}

	if err := env.svc.Invalidate(ctx, principal.SessionID); err != nil {
		t.Fatalf("Invalidate failed: %v", err)
	}
	if _, err := env.svc.Verify(ctx, pair.AccessToken); !errors.Is(err, authz.ErrInvalidToken) {
		t.Errorf("Expected InvalidToken after session revocation, got %v", err)
	}

	// Invalidate is idempotent.
	if err := env.svc.Invalidate(ctx, principal.SessionID); err != nil {
		t.Errorf("Second Invalidate failed: %v", err)
	}
}

func TestVerifyReflectsRoleChange(t *testing.T) {
	env := setupService(t)
	ctx := context.Background()

	pair, _, err := env.svc.Authenticate(ctx, env.tenantID, "alice", "correct-horse", "")
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}

	role := string(authz.RoleAdmin)
	if err := env.userStore.AdminUpdate(ctx, env.tenantID, env.userID, &users.AdminUpdateRequest{Role: &role}); err != nil {
		t.Fatalf("Failed to change role: %v", err)
	}

	got, err := env.svc.Verify(ctx, pair.AccessToken)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if got.Role != authz.RoleAdmin {
		t.Errorf("Expected fresh role admin, got %s", got.Role)
	}
}

func TestRefresh(t *testing.T) {
	env := setupService(t)
	ctx := context.Background()

	pair, principal, err := env.svc.Authenticate(ctx, env.tenantID, "alice", "correct-horse", "")
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}

	access, err := env.svc.Refresh(ctx, pair.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	got, err := env.svc.Verify(ctx, access)
	if err != nil {
		t.Fatalf("Verify of refreshed token failed: %v", err)
	}
	if got.UserID != principal.UserID {
		t.Errorf("Unexpected principal: %+v", got)
	}

	// Access tokens cannot be used for refresh.
	if _, err := env.svc.Refresh(ctx, pair.AccessToken); !errors.Is(err, authz.ErrInvalidTokenType) {
		t.Errorf("Expected InvalidTokenType, got %v", err)
	}

	// A revoked session stops refreshing.
	if err := env.svc.Invalidate(ctx, principal.SessionID); err != nil {
		t.Fatalf("Invalidate failed: %v", err)
	}
	if _, err := env.svc.Refresh(ctx, pair.RefreshToken); !errors.Is(err, authz.ErrInvalidToken) {
		t.Errorf("Expected InvalidToken after revocation, got %v", err)
	}
}

func TestChangePassword(t *testing.T) {
	env := setupService(t)
	ctx := context.Background()

	pair, principal, err := env.svc.Authenticate(ctx, env.tenantID, "alice", "correct-horse", "")
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}

	if err := env.svc.ChangePassword(ctx, principal, "wrong-old", "new-password"); !errors.Is(err, authz.ErrInvalidCredentials) {
		t.Errorf("Expected InvalidCredentials for wrong old password, got %v", err)
	}

	if err := env.svc.ChangePassword(ctx, principal, "correct-horse", "new-password"); err != nil {
		t.Fatalf("ChangePassword failed: %v", err)
	}

	// All sessions are revoked.
	if _, err := env.svc.Verify(ctx, pair.AccessToken); !errors.Is(err, authz.ErrInvalidToken) {
		t.Errorf("Expected existing token rejected after password change, got %v", err)
	}

	// The new password works, the old one does not.
	if _, _, err := env.svc.Authenticate(ctx, env.tenantID, "alice", "new-password", ""); err != nil {
		t.Errorf("Authenticate with new password failed: %v", err)
	}
	if _, _, err := env.svc.Authenticate(ctx, env.tenantID, "alice", "correct-horse", ""); !errors.Is(err, authz.ErrInvalidCredentials) {
		t.Errorf("Expected old password rejected, got %v", err)
	}
}

func TestRevokeSessionOwnership(t *testing.T) {
	env := setupService(t)
	ctx := context.Background()

	_, principal, err := env.svc.Authenticate(ctx, env.tenantID, "alice", "correct-horse", "laptop")
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}

	list, err := env.svc.ListSessions(ctx, principal)
	if err != nil {
		t.Fatalf("ListSessions failed: %v", err)
	}
	if len(list) != 1 || list[0].DeviceFingerprint != "laptop" {
		t.Fatalf("Unexpected sessions: %+v", list)
	}

	// Someone else's principal sees the session as missing.
	other := &authz.Principal{UserID: 999, TenantID: env.tenantID, Role: authz.RoleEmployee}
	if err := env.svc.RevokeSession(ctx, other, principal.SessionID); !errors.Is(err, authz.ErrNotFound) {
		t.Errorf("Expected ErrNotFound for foreign session, got %v", err)
	}

	if err := env.svc.RevokeSession(ctx, principal, principal.SessionID); err != nil {
		t.Fatalf("RevokeSession failed: %v", err)
	}
}

func TestSessionCleanup(t *testing.T) {
	env := setupService(t)
	ctx := context.Background()

	if _, err := env.sessions.Create(ctx, env.userID, env.tenantID, "", -time.Hour); err != nil {
		t.Fatalf("Failed to create expired session: %v", err)
	}
	if _, err := env.sessions.Create(ctx, env.userID, env.tenantID, "", time.Hour); err != nil {
		t.Fatalf("Failed to create live session: %v", err)
	}

	n, err := env.sessions.DeleteExpired(ctx, time.Now().UTC())
	if err != nil {
		t.Fatalf("DeleteExpired failed: %v", err)
	}
	if n != 1 {
		t.Errorf("Expected 1 expired session removed, got %d", n)
	}

	active, err := env.sessions.CountActive(ctx, time.Now().UTC())
	if err != nil {
		t.Fatalf("CountActive failed: %v", err)
	}
	if active != 1 {
		t.Errorf("Expected 1 active session, got %d", active)
	}
}
