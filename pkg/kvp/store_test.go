package kvp

import (
	"context"
	"database/sql"
	"errors"
	"testing"

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
		CREATE TABLE kvp_suggestions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			tenant_id INTEGER NOT NULL,
			submitter_id INTEGER NOT NULL,
			title TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			category TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT 'submitted',
			visibility_scope TEXT NOT NULL DEFAULT 'company',
			target_id INTEGER,
			is_anonymous INTEGER NOT NULL DEFAULT 0,
			points INTEGER NOT NULL DEFAULT 0,
			review_note TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)
	`)
	if err != nil {
		t.Fatalf("Failed to create test schema: %v", err)
	}
	return db
}

func employee(userID int64, dept, team *int64) *authz.Principal {
	return &authz.Principal{UserID: userID, TenantID: 1, Role: authz.RoleEmployee, DepartmentID: dept, TeamID: team}
}

func admin(userID int64) *authz.Principal {
	return &authz.Principal{UserID: userID, TenantID: 1, Role: authz.RoleAdmin}
}

func TestCreateDefaultsToSubmitted(t *testing.T) {
	store := NewStore(setupTestDB(t))
	ctx := context.Background()

	sug := &Suggestion{TenantID: 1, SubmitterID: 2, Title: "Better lighting"}
	if err := store.Create(ctx, sug); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if sug.Status != authz.KVPStatusSubmitted {
		t.Errorf("Expected submitted, got %s", sug.Status)
	}
	if sug.VisibilityScope != scope.ScopeCompany {
		t.Errorf("Expected company default scope, got %s", sug.VisibilityScope)
	}
}

func TestGetVisibleScopes(t *testing.T) {
	store := NewStore(setupTestDB(t))
	ctx := context.Background()

	dept := int64(10)
	sug := &Suggestion{
		TenantID: 1, SubmitterID: 2, Title: "Forklift maintenance plan",
		VisibilityScope: scope.ScopeDepartment, TargetID: &dept,
	}
	if err := store.Create(ctx, sug); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	// In-department employee sees it.
	if _, err := store.GetVisible(ctx, employee(3, &dept, nil), sug.ID); err != nil {
		t.Errorf("Expected department member to see suggestion: %v", err)
	}

	// Out-of-department employee gets not found, not forbidden.
	other := int64(99)
	if _, err := store.GetVisible(ctx, employee(3, &other, nil), sug.ID); !errors.Is(err, authz.ErrNotFound) {
		t.Errorf("Expected ErrNotFound out of scope, got %v", err)
	}

	// Admin bypasses scope.
	if _, err := store.GetVisible(ctx, admin(4), sug.ID); err != nil {
		t.Errorf("Expected admin to see suggestion: %v", err)
	}

	// Cross-tenant principal cannot see it at all.
	foreign := &authz.Principal{UserID: 5, TenantID: 2, Role: authz.RoleAdmin}
	if _, err := store.GetVisible(ctx, foreign, sug.ID); !errors.Is(err, authz.ErrNotFound) {
		t.Errorf("Expected ErrNotFound cross-tenant, got %v", err)
	}
}

func TestListScopeFilter(t *testing.T) {
	store := NewStore(setupTestDB(t))
	ctx := context.Background()

	dept := int64(10)
	team := int64(20)
	otherDept := int64(11)

	suggestions := []*Suggestion{
		{TenantID: 1, SubmitterID: 2, Title: "company-wide", VisibilityScope: scope.ScopeCompany},
		{TenantID: 1, SubmitterID: 2, Title: "our dept", VisibilityScope: scope.ScopeDepartment, TargetID: &dept},
		{TenantID: 1, SubmitterID: 2, Title: "other dept", VisibilityScope: scope.ScopeDepartment, TargetID: &otherDept},
		{TenantID: 1, SubmitterID: 2, Title: "our team", VisibilityScope: scope.ScopeTeam, TargetID: &team},
		{TenantID: 1, SubmitterID: 3, Title: "their private", VisibilityScope: scope.ScopePrivate},
		{TenantID: 1, SubmitterID: 4, Title: "my private", VisibilityScope: scope.ScopePrivate},
		{TenantID: 2, SubmitterID: 9, Title: "other tenant", VisibilityScope: scope.ScopeCompany},
	}
	for _, sug := range suggestions {
		if err := store.Create(ctx, sug); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}

	got, err := store.List(ctx, employee(4, &dept, &team), ListFilter{})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	titles := map[string]bool{}
	for _, sug := range got {
		titles[sug.Title] = true
	}
	want := []string{"company-wide", "our dept", "our team", "my private"}
	if len(got) != len(want) {
		t.Fatalf("Expected %d visible suggestions, got %d (%v)", len(want), len(got), titles)
	}
	for _, title := range want {
		if !titles[title] {
			t.Errorf("Expected %q visible", title)
		}
	}

	// Admin sees the whole tenant but never the other tenant's rows.
	all, err := store.List(ctx, admin(5), ListFilter{})
	if err != nil {
		t.Fatalf("Admin list failed: %v", err)
	}
	if len(all) != 6 {
		t.Errorf("Expected 6 in-tenant suggestions for admin, got %d", len(all))
	}
	for _, sug := range all {
		if sug.TenantID != 1 {
			t.Errorf("Admin list leaked cross-tenant row: %+v", sug)
		}
	}
}

func TestAnonymousMasking(t *testing.T) {
	store := NewStore(setupTestDB(t))
	ctx := context.Background()

	sug := &Suggestion{TenantID: 1, SubmitterID: 7, Title: "Anonymous idea", IsAnonymous: true}
	if err := store.Create(ctx, sug); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	// Tenant admin sees the suggestion but not who filed it.
	got, err := store.GetVisible(ctx, admin(4), sug.ID)
	if err != nil {
		t.Fatalf("GetVisible failed: %v", err)
	}
	if view := got.View(admin(4)); view.SubmitterID != 0 {
		t.Errorf("Expected submitter masked for admin, got %d", view.SubmitterID)
	}

	// The submitter sees their own identity.
	if view := got.View(employee(7, nil, nil)); view.SubmitterID != 7 {
		t.Errorf("Expected submitter to see own id, got %d", view.SubmitterID)
	}

	// Root may unmask.
	root := &authz.Principal{UserID: 1, TenantID: authz.SystemTenantID, Role: authz.RoleRoot}
	if view := got.View(root); view.SubmitterID != 7 {
		t.Errorf("Expected root to see submitter, got %d", view.SubmitterID)
	}

	// Non-anonymous suggestions are never masked.
	open := &Suggestion{TenantID: 1, SubmitterID: 7, Title: "Open idea"}
	if err := store.Create(ctx, open); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if view := open.View(admin(4)); view.SubmitterID != 7 {
		t.Errorf("Expected open suggestion unmasked, got %d", view.SubmitterID)
	}
}

func TestTransitionFlow(t *testing.T) {
	store := NewStore(setupTestDB(t))
	ctx := context.Background()

	sug := &Suggestion{TenantID: 1, SubmitterID: 2, Title: "Idea"}
	if err := store.Create(ctx, sug); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	// submitted -> implemented skips review and must fail, leaving
	// state unchanged.
	_, err := store.Transition(ctx, 1, sug.ID, &TransitionRequest{Status: authz.KVPStatusImplemented})
	var policyErr *authz.Error
	if !errors.As(err, &policyErr) || policyErr.Kind != authz.KindInvalidTransition {
		t.Fatalf("Expected invalid_transition, got %v", err)
	}
	got, _ := store.Get(ctx, 1, sug.ID)
	if got.Status != authz.KVPStatusSubmitted {
		t.Errorf("Expected state unchanged after rejected transition, got %s", got.Status)
	}

	steps := []string{authz.KVPStatusInReview, authz.KVPStatusApproved}
	for _, step := range steps {
		if _, err := store.Transition(ctx, 1, sug.ID, &TransitionRequest{Status: step}); err != nil {
			t.Fatalf("Transition to %s failed: %v", step, err)
		}
	}

	final, err := store.Transition(ctx, 1, sug.ID, &TransitionRequest{Status: authz.KVPStatusImplemented, Points: 50, ReviewNote: "rolled out plant-wide"})
	if err != nil {
		t.Fatalf("Transition to implemented failed: %v", err)
	}
	if final.Points != 50 {
		t.Errorf("Expected 50 points on row, got %d", final.Points)
	}
	if final.ReviewNote != "rolled out plant-wide" {
		t.Errorf("Unexpected review note %q", final.ReviewNote)
	}

	// Implemented is terminal.
	if _, err := store.Transition(ctx, 1, sug.ID, &TransitionRequest{Status: authz.KVPStatusInReview}); err == nil {
		t.Error("Expected transition out of implemented to fail")
	}
}

func TestUpdateAndDeleteTenantScoped(t *testing.T) {
	store := NewStore(setupTestDB(t))
	ctx := context.Background()

	sug := &Suggestion{TenantID: 1, SubmitterID: 2, Title: "Idea"}
	if err := store.Create(ctx, sug); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	title := "Sharper idea"
	if err := store.Update(ctx, 2, sug.ID, &UpdateSuggestionRequest{Title: &title}); !errors.Is(err, authz.ErrNotFound) {
		t.Errorf("Expected ErrNotFound for cross-tenant update, got %v", err)
	}
	if err := store.Update(ctx, 1, sug.ID, &UpdateSuggestionRequest{Title: &title}); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	if err := store.Delete(ctx, 2, sug.ID); !errors.Is(err, authz.ErrNotFound) {
		t.Errorf("Expected ErrNotFound for cross-tenant delete, got %v", err)
	}
	if err := store.Delete(ctx, 1, sug.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
}
