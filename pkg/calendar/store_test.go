package calendar

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/crewdesk/crewdesk/pkg/authz"
	"github.com/crewdesk/crewdesk/pkg/scope"
)

func setupTestDB(t *testing.T) *sql.DB {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`
		CREATE TABLE calendar_events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			tenant_id INTEGER NOT NULL,
			creator_id INTEGER NOT NULL,
			title TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			location TEXT NOT NULL DEFAULT '',
			starts_at TIMESTAMP NOT NULL,
			ends_at TIMESTAMP NOT NULL,
			visibility_scope TEXT NOT NULL DEFAULT 'company',
			target_id INTEGER,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)
	`)
	if err != nil {
		t.Fatalf("Failed to create test schema: %v", err)
	}
	return db
}

func testEvent(tenantID, creatorID int64, title string, start time.Time) *Event {
	return &Event{
		TenantID:  tenantID,
		CreatorID: creatorID,
		Title:     title,
		StartsAt:  start,
		EndsAt:    start.Add(time.Hour),
	}
}

func TestTeamEventVisibility(t *testing.T) {
	store := NewStore(setupTestDB(t))
	ctx := context.Background()

	team := int64(20)
	e := testEvent(1, 2, "Shift handover briefing", time.Now().UTC())
	e.VisibilityScope = scope.ScopeTeam
	e.TargetID = &team
	if err := store.Create(ctx, e); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	member := &authz.Principal{UserID: 3, TenantID: 1, Role: authz.RoleEmployee, TeamID: &team}
	if _, err := store.GetVisible(ctx, member, e.ID); err != nil {
		t.Errorf("Expected team member to see event: %v", err)
	}

	otherTeam := int64(21)
	outsider := &authz.Principal{UserID: 4, TenantID: 1, Role: authz.RoleEmployee, TeamID: &otherTeam}
	if _, err := store.GetVisible(ctx, outsider, e.ID); !errors.Is(err, authz.ErrNotFound) {
		t.Errorf("Expected ErrNotFound for other team, got %v", err)
	}

	adm := &authz.Principal{UserID: 5, TenantID: 1, Role: authz.RoleAdmin}
	if _, err := store.GetVisible(ctx, adm, e.ID); err != nil {
		t.Errorf("Expected admin to see event: %v", err)
	}
}

func TestListDateRangeAndScope(t *testing.T) {
	store := NewStore(setupTestDB(t))
	ctx := context.Background()

	base := time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC)
	dept := int64(10)

	early := testEvent(1, 2, "early", base)
	late := testEvent(1, 2, "late", base.AddDate(0, 0, 14))
	deptOnly := testEvent(1, 2, "dept", base.AddDate(0, 0, 1))
	deptOnly.VisibilityScope = scope.ScopeDepartment
	deptOnly.TargetID = &dept
	foreign := testEvent(2, 9, "foreign", base)
	for _, e := range []*Event{early, late, deptOnly, foreign} {
		if err := store.Create(ctx, e); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}

	outside := &authz.Principal{UserID: 3, TenantID: 1, Role: authz.RoleEmployee}
	from := base.AddDate(0, 0, -1)
	to := base.AddDate(0, 0, 7)
	got, err := store.List(ctx, outside, ListFilter{From: &from, To: &to})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	// "late" is outside the range, "dept" outside the scope, "foreign"
	// outside the tenant.
	if len(got) != 1 || got[0].Title != "early" {
		t.Errorf("Expected only the early event, got %d events", len(got))
	}

	inDept := &authz.Principal{UserID: 3, TenantID: 1, Role: authz.RoleEmployee, DepartmentID: &dept}
	got, err = store.List(ctx, inDept, ListFilter{From: &from, To: &to})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("Expected early + dept events, got %d", len(got))
	}
}

func TestUpdateAndDelete(t *testing.T) {
	store := NewStore(setupTestDB(t))
	ctx := context.Background()

	e := testEvent(1, 2, "Inventory count", time.Now().UTC())
	if err := store.Create(ctx, e); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	title := "Inventory count (moved)"
	newStart := e.StartsAt.Add(2 * time.Hour)
	if err := store.Update(ctx, 1, e.ID, &UpdateEventRequest{Title: &title, StartsAt: &newStart}); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	got, _ := store.Get(ctx, 1, e.ID)
	if got.Title != title {
		t.Errorf("Expected updated title, got %s", got.Title)
	}

	if err := store.Update(ctx, 2, e.ID, &UpdateEventRequest{Title: &title}); !errors.Is(err, authz.ErrNotFound) {
		t.Errorf("Expected ErrNotFound cross-tenant, got %v", err)
	}

	if err := store.Delete(ctx, 1, e.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := store.Get(ctx, 1, e.ID); !errors.Is(err, authz.ErrNotFound) {
		t.Errorf("Expected event gone, got %v", err)
	}
}
