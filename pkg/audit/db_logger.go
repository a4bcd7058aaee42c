package audit

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/crewdesk/crewdesk/pkg/observability"
)

// DBLogger persists audit events to the database. Write failures are
// reported through the structured logger and never propagated.
type DBLogger struct {
	db  *sql.DB
	log *observability.Logger
}

// NewDBLogger creates a database-backed audit sink.
func NewDBLogger(db *sql.DB, log *observability.Logger) *DBLogger {
	return &DBLogger{db: db, log: log}
}

// Log implements Logger.
func (d *DBLogger) Log(ctx context.Context, event *Event) {
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	query := `
		INSERT INTO audit_events (principal_id, tenant_id, event_type, action, resource_kind, resource_id, reason, request_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := d.db.ExecContext(ctx, query,
		event.PrincipalID, event.TenantID, event.Type, event.Action,
		event.ResourceKind, event.ResourceID, event.Reason, event.RequestID, event.CreatedAt,
	)
	if err != nil {
		d.log.WithError(err).Error("failed to write audit event")
	}
}

// ListFilter narrows audit queries.
type ListFilter struct {
	TenantID    *int64
	PrincipalID *int64
	Type        EventType
	Limit       int
}

// List returns audit events, newest first. Root reads across tenants;
// the handler passes the tenant filter for everyone else.
func (d *DBLogger) List(ctx context.Context, filter ListFilter) ([]*Event, error) {
	query := `
		SELECT id, principal_id, tenant_id, event_type, action, resource_kind, resource_id, reason, request_id, created_at
		FROM audit_events
		WHERE 1=1
	`
	args := []interface{}{}
	pos := 1

	if filter.TenantID != nil {
		query += fmt.Sprintf(" AND tenant_id = $%d", pos)
		args = append(args, *filter.TenantID)
		pos++
	}
	if filter.PrincipalID != nil {
		query += fmt.Sprintf(" AND principal_id = $%d", pos)
		args = append(args, *filter.PrincipalID)
		pos++
	}
	if filter.Type != "" {
		query += fmt.Sprintf(" AND event_type = $%d", pos)
		args = append(args, filter.Type)
		pos++
	}
	limit := filter.Limit
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", pos)
	args = append(args, limit)

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit events: %w", err)
	}
	defer rows.Close()

	var out []*Event
	for rows.Next() {
		e := &Event{}
		if err := rows.Scan(
			&e.ID, &e.PrincipalID, &e.TenantID, &e.Type, &e.Action,
			&e.ResourceKind, &e.ResourceID, &e.Reason, &e.RequestID, &e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan audit event: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// PurgeOlderThan removes events past the retention window. Returns the
// number of rows removed; called from the retention job.
func (d *DBLogger) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := d.db.ExecContext(ctx, `DELETE FROM audit_events WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to purge audit events: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return affected, nil
}
