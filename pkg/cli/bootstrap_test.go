package cli

import (
	"context"
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/crewdesk/crewdesk/pkg/authz"
	"github.com/crewdesk/crewdesk/pkg/tenants"
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
		)
	`)
	if err != nil {
		t.Fatalf("Failed to create test schema: %v", err)
	}
	return db
}

func TestCreateTenant(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	tn, err := createTenant(ctx, db, "Acme", "acme", 30, false)
	if err != nil {
		t.Fatalf("createTenant failed: %v", err)
	}
	if tn.Status != tenants.StatusTrial || tn.TrialEndsAt == nil {
		t.Errorf("Expected a trial tenant, got %+v", tn)
	}

	active, err := createTenant(ctx, db, "Globex", "globex", 30, true)
	if err != nil {
		t.Fatalf("createTenant with activate failed: %v", err)
	}
	if active.Status != tenants.StatusActive {
		t.Errorf("Expected active tenant, got %s", active.Status)
	}

	if _, err := createTenant(ctx, db, "Bad", "Not A Subdomain", 30, false); err == nil {
		t.Error("Expected invalid subdomain to be rejected")
	}
	if _, err := createTenant(ctx, db, "", "", 30, false); err == nil {
		t.Error("Expected missing fields to be rejected")
	}
}

func TestCreateRootBootstrapsSystemTenant(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	u, err := createRoot(ctx, db, "root", "root@example.com", "a-long-password")
	if err != nil {
		t.Fatalf("createRoot failed: %v", err)
	}
	if u.TenantID != authz.SystemTenantID || u.Role != authz.RoleRoot {
		t.Errorf("Unexpected root account: %+v", u)
	}

	sys, err := tenants.NewStore(db).GetByID(ctx, authz.SystemTenantID)
	if err != nil {
		t.Fatalf("System tenant missing: %v", err)
	}
	if sys.Status != tenants.StatusActive {
		t.Errorf("Expected active system tenant, got %s", sys.Status)
	}

	// A second root lands in the same tenant.
	if _, err := createRoot(ctx, db, "root2", "root2@example.com", "a-long-password"); err != nil {
		t.Errorf("Second createRoot failed: %v", err)
	}
}

func TestCreateRootRejectsWeakPassword(t *testing.T) {
	db := setupTestDB(t)
	if _, err := createRoot(context.Background(), db, "root", "root@example.com", "short"); err == nil {
		t.Error("Expected short password to be rejected")
	}
}
