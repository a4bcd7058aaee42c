package kvp

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/crewdesk/crewdesk/pkg/authz"
	"github.com/crewdesk/crewdesk/pkg/scope"
)

// Store persists suggestions, tenant-scoped throughout.
type Store struct {
	db *sql.DB
}

// NewStore creates a suggestion store.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

const suggestionColumns = `id, tenant_id, submitter_id, title, description, category, status,
	visibility_scope, target_id, is_anonymous, points, review_note, created_at, updated_at`

func scanSuggestion(row interface{ Scan(...interface{}) error }) (*Suggestion, error) {
	s := &Suggestion{}
	err := row.Scan(
		&s.ID, &s.TenantID, &s.SubmitterID, &s.Title, &s.Description, &s.Category, &s.Status,
		&s.VisibilityScope, &s.TargetID, &s.IsAnonymous, &s.Points, &s.ReviewNote, &s.CreatedAt, &s.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, authz.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan suggestion: %w", err)
	}
	return s, nil
}

// Create inserts a new suggestion in submitted state.
func (s *Store) Create(ctx context.Context, sug *Suggestion) error {
	now := time.Now().UTC()
	sug.Status = authz.KVPStatusSubmitted
	sug.CreatedAt = now
	sug.UpdatedAt = now
	if sug.VisibilityScope == "" {
		sug.VisibilityScope = scope.ScopeCompany
	}

	query := `
		INSERT INTO kvp_suggestions (tenant_id, submitter_id, title, description, category, status,
		                             visibility_scope, target_id, is_anonymous, points, review_note, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id
	`
	err := s.db.QueryRowContext(ctx, query,
		sug.TenantID, sug.SubmitterID, sug.Title, sug.Description, sug.Category, sug.Status,
		sug.VisibilityScope, sug.TargetID, sug.IsAnonymous, sug.Points, sug.ReviewNote, sug.CreatedAt, sug.UpdatedAt,
	).Scan(&sug.ID)
	if err != nil {
		return fmt.Errorf("failed to create suggestion: %w", err)
	}
	return nil
}

// Get retrieves a suggestion within the tenant, without a scope check.
func (s *Store) Get(ctx context.Context, tenantID, id int64) (*Suggestion, error) {
	query := fmt.Sprintf(`SELECT %s FROM kvp_suggestions WHERE tenant_id = $1 AND id = $2`, suggestionColumns)
	return scanSuggestion(s.db.QueryRowContext(ctx, query, tenantID, id))
}

// GetVisible retrieves a suggestion the principal may see. Rows out of
// visibility scope look exactly like missing ones.
func (s *Store) GetVisible(ctx context.Context, p *authz.Principal, id int64) (*Suggestion, error) {
	sug, err := s.Get(ctx, p.TenantID, id)
	if err != nil {
		return nil, err
	}
	if !scope.IsVisible(p, sug.Visibility()) {
		return nil, authz.ErrNotFound
	}
	return sug, nil
}

// ListFilter narrows suggestion listings.
type ListFilter struct {
	Status      string
	SubmitterID *int64
}

// List returns the suggestions the principal may see, newest first.
// The scope predicate is baked into the query; elevated roles get the
// whole tenant.
func (s *Store) List(ctx context.Context, p *authz.Principal, filter ListFilter) ([]*Suggestion, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, `SELECT %s FROM kvp_suggestions WHERE tenant_id = $1`, suggestionColumns)
	args := []interface{}{p.TenantID}
	pos := 1

	if filter.Status != "" {
		pos++
		fmt.Fprintf(&sb, " AND status = $%d", pos)
		args = append(args, filter.Status)
	}
	if filter.SubmitterID != nil {
		pos++
		fmt.Fprintf(&sb, " AND submitter_id = $%d", pos)
		args = append(args, *filter.SubmitterID)
	}

	clause, scopeArgs := scope.Filter(p, "submitter_id", pos)
	sb.WriteString(clause)
	args = append(args, scopeArgs...)
	sb.WriteString(" ORDER BY created_at DESC")

	rows, err := s.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list suggestions: %w", err)
	}
	defer rows.Close()

	var out []*Suggestion
	for rows.Next() {
		sug, err := scanSuggestion(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sug)
	}
	return out, rows.Err()
}

// Update applies submitter edits. The editable-state gate lives in the
// policy layer; by the time this runs the caller has been authorized.
func (s *Store) Update(ctx context.Context, tenantID, id int64, req *UpdateSuggestionRequest) error {
	setClauses := []string{}
	args := []interface{}{}
	pos := 1

	if req.Title != nil {
		setClauses = append(setClauses, fmt.Sprintf("title = $%d", pos))
		args = append(args, *req.Title)
		pos++
	}
	if req.Description != nil {
		setClauses = append(setClauses, fmt.Sprintf("description = $%d", pos))
		args = append(args, *req.Description)
		pos++
	}
	if req.Category != nil {
		setClauses = append(setClauses, fmt.Sprintf("category = $%d", pos))
		args = append(args, *req.Category)
		pos++
	}
	if len(setClauses) == 0 {
		return nil
	}

	setClauses = append(setClauses, fmt.Sprintf("updated_at = $%d", pos))
	args = append(args, time.Now().UTC())
	pos++

	args = append(args, tenantID, id)
	query := fmt.Sprintf("UPDATE kvp_suggestions SET %s WHERE tenant_id = $%d AND id = $%d",
		strings.Join(setClauses, ", "), pos, pos+1)

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update suggestion: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return authz.ErrNotFound
	}
	return nil
}

// Delete removes a suggestion.
func (s *Store) Delete(ctx context.Context, tenantID, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM kvp_suggestions WHERE tenant_id = $1 AND id = $2`, tenantID, id)
	if err != nil {
		return fmt.Errorf("failed to delete suggestion: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return authz.ErrNotFound
	}
	return nil
}

// Transition moves a suggestion through the review flow. An invalid
// move returns a policy error and leaves the row untouched. Points
// land on the row only for the implemented transition; crediting the
// submitter's account happens in the caller.
func (s *Store) Transition(ctx context.Context, tenantID, id int64, req *TransitionRequest) (*Suggestion, error) {
	sug, err := s.Get(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if err := authz.KVPTransitions.Check(sug.Status, req.Status); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	points := sug.Points
	if req.Status == authz.KVPStatusImplemented && req.Points > 0 {
		points = req.Points
	}
	note := sug.ReviewNote
	if req.ReviewNote != "" {
		note = req.ReviewNote
	}

	query := `
		UPDATE kvp_suggestions SET status = $1, points = $2, review_note = $3, updated_at = $4
		WHERE tenant_id = $5 AND id = $6
	`
	if _, err := s.db.ExecContext(ctx, query, req.Status, points, note, now, tenantID, id); err != nil {
		return nil, fmt.Errorf("failed to transition suggestion: %w", err)
	}

	sug.Status = req.Status
	sug.Points = points
	sug.ReviewNote = note
	sug.UpdatedAt = now
	return sug, nil
}
