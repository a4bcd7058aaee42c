package tenants

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/crewdesk/crewdesk/pkg/authz"
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
		)
	`)
	if err != nil {
		t.Fatalf("Failed to create test schema: %v", err)
	}
	return db
}

func TestCreateAndGetTenant(t *testing.T) {
	store := NewStore(setupTestDB(t))
	ctx := context.Background()

	ends := time.Now().UTC().Add(30 * 24 * time.Hour)
	tenant := &Tenant{Name: "Acme GmbH", Subdomain: "acme", TrialEndsAt: &ends}
	if err := store.Create(ctx, tenant); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if tenant.ID == 0 {
		t.Error("Expected tenant ID to be set")
	}
	if tenant.Status != StatusTrial {
		t.Errorf("Expected new tenant in trial, got %s", tenant.Status)
	}

	got, err := store.GetByID(ctx, tenant.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Subdomain != "acme" {
		t.Errorf("Expected subdomain acme, got %s", got.Subdomain)
	}
	if got.TrialEndsAt == nil {
		t.Error("Expected trial_ends_at to round-trip")
	}

	bySub, err := store.GetBySubdomain(ctx, "acme")
	if err != nil {
		t.Fatalf("GetBySubdomain failed: %v", err)
	}
	if bySub.ID != tenant.ID {
		t.Errorf("Expected id %d, got %d", tenant.ID, bySub.ID)
	}
}

func TestGetTenantNotFound(t *testing.T) {
	store := NewStore(setupTestDB(t))
	ctx := context.Background()

	if _, err := store.GetByID(ctx, 999); !errors.Is(err, authz.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
	if _, err := store.GetBySubdomain(ctx, "nope"); !errors.Is(err, authz.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestTenantTransitions(t *testing.T) {
	store := NewStore(setupTestDB(t))
	ctx := context.Background()

	tenant := &Tenant{Name: "Acme", Subdomain: "acme"}
	if err := store.Create(ctx, tenant); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	got, err := store.Transition(ctx, tenant.ID, StatusActive)
	if err != nil {
		t.Fatalf("trial -> active failed: %v", err)
	}
	if got.Status != StatusActive {
		t.Errorf("Expected active, got %s", got.Status)
	}

	if _, err := store.Transition(ctx, tenant.ID, StatusTrial); err != nil {
		t.Fatalf("active -> trial failed: %v", err)
	}
	if _, err := store.Transition(ctx, tenant.ID, StatusCancelled); err != nil {
		t.Fatalf("trial -> cancelled failed: %v", err)
	}

	// Cancelled is terminal.
	_, err = store.Transition(ctx, tenant.ID, StatusActive)
	var policyErr *authz.Error
	if !errors.As(err, &policyErr) || policyErr.Kind != authz.KindInvalidTransition {
		t.Errorf("Expected invalid_transition error, got %v", err)
	}
}

func TestExpireTrials(t *testing.T) {
	store := NewStore(setupTestDB(t))
	ctx := context.Background()

	past := time.Now().UTC().Add(-time.Hour)
	future := time.Now().UTC().Add(time.Hour)

	overdue := &Tenant{Name: "Overdue", Subdomain: "overdue", TrialEndsAt: &past}
	current := &Tenant{Name: "Current", Subdomain: "current", TrialEndsAt: &future}
	for _, tn := range []*Tenant{overdue, current} {
		if err := store.Create(ctx, tn); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}

	// An already-active tenant with a stale trial date must not be touched.
	active := &Tenant{Name: "Paid", Subdomain: "paid", TrialEndsAt: &past}
	if err := store.Create(ctx, active); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := store.Transition(ctx, active.ID, StatusActive); err != nil {
		t.Fatalf("Transition failed: %v", err)
	}

	n, err := store.ExpireTrials(ctx, time.Now().UTC())
	if err != nil {
		t.Fatalf("ExpireTrials failed: %v", err)
	}
	if n != 1 {
		t.Errorf("Expected 1 expired trial, got %d", n)
	}

	got, _ := store.GetByID(ctx, overdue.ID)
	if got.Status != StatusSuspended {
		t.Errorf("Expected overdue tenant suspended, got %s", got.Status)
	}
	got, _ = store.GetByID(ctx, current.ID)
	if got.Status != StatusTrial {
		t.Errorf("Expected current tenant still in trial, got %s", got.Status)
	}
	got, _ = store.GetByID(ctx, active.ID)
	if got.Status != StatusActive {
		t.Errorf("Expected active tenant untouched, got %s", got.Status)
	}
}

func TestValidSubdomain(t *testing.T) {
	cases := []struct {
		in string
		ok bool
	}{
		{"acme", true},
		{"acme-corp", true},
		{"a", true},
		{"0start", true},
		{"-acme", false},
		{"acme-", false},
		{"Acme", false},
		{"acme corp", false},
		{"", false},
	}
	for _, tc := range cases {
		if got := ValidSubdomain(tc.in); got != tc.ok {
			t.Errorf("ValidSubdomain(%q) = %v, want %v", tc.in, got, tc.ok)
		}
	}
}
