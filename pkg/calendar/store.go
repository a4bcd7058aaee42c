package calendar

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/crewdesk/crewdesk/pkg/authz"
	"github.com/crewdesk/crewdesk/pkg/scope"
)

// Store persists calendar events, tenant-scoped throughout.
type Store struct {
	db *sql.DB
}

// NewStore creates an event store.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

const eventColumns = `id, tenant_id, creator_id, title, description, location, starts_at, ends_at,
	visibility_scope, target_id, created_at, updated_at`

func scanEvent(row interface{ Scan(...interface{}) error }) (*Event, error) {
	e := &Event{}
	err := row.Scan(
		&e.ID, &e.TenantID, &e.CreatorID, &e.Title, &e.Description, &e.Location,
		&e.StartsAt, &e.EndsAt, &e.VisibilityScope, &e.TargetID, &e.CreatedAt, &e.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, authz.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan event: %w", err)
	}
	return e, nil
}

// Create inserts a new event.
func (s *Store) Create(ctx context.Context, e *Event) error {
	now := time.Now().UTC()
	e.CreatedAt = now
	e.UpdatedAt = now
	if e.VisibilityScope == "" {
		e.VisibilityScope = scope.ScopeCompany
	}

	query := `
		INSERT INTO calendar_events (tenant_id, creator_id, title, description, location, starts_at, ends_at,
		                             visibility_scope, target_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id
	`
	err := s.db.QueryRowContext(ctx, query,
		e.TenantID, e.CreatorID, e.Title, e.Description, e.Location, e.StartsAt, e.EndsAt,
		e.VisibilityScope, e.TargetID, e.CreatedAt, e.UpdatedAt,
	).Scan(&e.ID)
	if err != nil {
		return fmt.Errorf("failed to create event: %w", err)
	}
	return nil
}

// Get retrieves an event within the tenant, without a scope check.
func (s *Store) Get(ctx context.Context, tenantID, id int64) (*Event, error) {
	query := fmt.Sprintf(`SELECT %s FROM calendar_events WHERE tenant_id = $1 AND id = $2`, eventColumns)
	return scanEvent(s.db.QueryRowContext(ctx, query, tenantID, id))
}

// GetVisible retrieves an event the principal may see. Out-of-scope
// rows look exactly like missing ones.
func (s *Store) GetVisible(ctx context.Context, p *authz.Principal, id int64) (*Event, error) {
	e, err := s.Get(ctx, p.TenantID, id)
	if err != nil {
		return nil, err
	}
	if !scope.IsVisible(p, e.Visibility()) {
		return nil, authz.ErrNotFound
	}
	return e, nil
}

// List returns the events the principal may see, soonest first,
// optionally narrowed to a date range.
func (s *Store) List(ctx context.Context, p *authz.Principal, filter ListFilter) ([]*Event, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, `SELECT %s FROM calendar_events WHERE tenant_id = $1`, eventColumns)
	args := []interface{}{p.TenantID}
	pos := 1

	if filter.From != nil {
		pos++
		fmt.Fprintf(&sb, " AND ends_at >= $%d", pos)
		args = append(args, *filter.From)
	}
	if filter.To != nil {
		pos++
		fmt.Fprintf(&sb, " AND starts_at <= $%d", pos)
		args = append(args, *filter.To)
	}

	clause, scopeArgs := scope.Filter(p, "creator_id", pos)
	sb.WriteString(clause)
	args = append(args, scopeArgs...)
	sb.WriteString(" ORDER BY starts_at")

	rows, err := s.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	var out []*Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Update applies optional field updates.
func (s *Store) Update(ctx context.Context, tenantID, id int64, req *UpdateEventRequest) error {
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
	if req.Location != nil {
		setClauses = append(setClauses, fmt.Sprintf("location = $%d", pos))
		args = append(args, *req.Location)
		pos++
	}
	if req.StartsAt != nil {
		setClauses = append(setClauses, fmt.Sprintf("starts_at = $%d", pos))
		args = append(args, *req.StartsAt)
		pos++
	}
	if req.EndsAt != nil {
		setClauses = append(setClauses, fmt.Sprintf("ends_at = $%d", pos))
		args = append(args, *req.EndsAt)
		pos++
	}
	if len(setClauses) == 0 {
		return nil
	}

	setClauses = append(setClauses, fmt.Sprintf("updated_at = $%d", pos))
	args = append(args, time.Now().UTC())
	pos++

	args = append(args, tenantID, id)
	query := fmt.Sprintf("UPDATE calendar_events SET %s WHERE tenant_id = $%d AND id = $%d",
		strings.Join(setClauses, ", "), pos, pos+1)

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update event: %w", err)
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

// Delete removes an event.
func (s *Store) Delete(ctx context.Context, tenantID, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM calendar_events WHERE tenant_id = $1 AND id = $2`, tenantID, id)
	if err != nil {
		return fmt.Errorf("failed to delete event: %w", err)
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
