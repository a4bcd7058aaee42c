package notifications

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/crewdesk/crewdesk/pkg/authz"
	"github.com/crewdesk/crewdesk/pkg/scope"
)

// Store persists notifications, read markers, and preferences.
type Store struct {
	db *sql.DB
}

// NewStore creates a notification store.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Broadcast inserts a new notification.
func (s *Store) Broadcast(ctx context.Context, n *Notification) error {
	n.CreatedAt = time.Now().UTC()
	if n.VisibilityScope == "" {
		n.VisibilityScope = scope.ScopeCompany
	}

	query := `
		INSERT INTO notifications (tenant_id, sender_id, title, body, visibility_scope, target_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`
	err := s.db.QueryRowContext(ctx, query,
		n.TenantID, n.SenderID, n.Title, n.Body, n.VisibilityScope, n.TargetID, n.CreatedAt,
	).Scan(&n.ID)
	if err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}
	return nil
}

// Get retrieves a notification within the tenant.
func (s *Store) Get(ctx context.Context, tenantID, id int64) (*Notification, error) {
	query := `
		SELECT id, tenant_id, sender_id, title, body, visibility_scope, target_id, created_at
		FROM notifications
		WHERE tenant_id = $1 AND id = $2
	`
	n := &Notification{}
	err := s.db.QueryRowContext(ctx, query, tenantID, id).Scan(
		&n.ID, &n.TenantID, &n.SenderID, &n.Title, &n.Body, &n.VisibilityScope, &n.TargetID, &n.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, authz.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get notification: %w", err)
	}
	return n, nil
}

// List returns the notifications the principal may see, newest first,
// with the viewer's read flag filled in.
func (s *Store) List(ctx context.Context, p *authz.Principal, unreadOnly bool) ([]*Notification, error) {
	query := `
		SELECT n.id, n.tenant_id, n.sender_id, n.title, n.body, n.visibility_scope, n.target_id, n.created_at,
		       CASE WHEN r.user_id IS NULL THEN 0 ELSE 1 END AS read
		FROM notifications n
		LEFT JOIN notification_reads r ON r.notification_id = n.id AND r.user_id = $1
		WHERE n.tenant_id = $2
	`
	args := []interface{}{p.UserID, p.TenantID}
	pos := 2

	clause, scopeArgs := scope.Filter(p, "n.sender_id", pos)
	query += clause
	args = append(args, scopeArgs...)

	if unreadOnly {
		query += " AND r.user_id IS NULL"
	}
	query += " ORDER BY n.created_at DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	var out []*Notification
	for rows.Next() {
		n := &Notification{}
		if err := rows.Scan(
			&n.ID, &n.TenantID, &n.SenderID, &n.Title, &n.Body,
			&n.VisibilityScope, &n.TargetID, &n.CreatedAt, &n.Read,
		); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// MarkRead records that the user saw a notification. Marking twice is
// a no-op; marking an invisible notification is not found.
func (s *Store) MarkRead(ctx context.Context, p *authz.Principal, notificationID int64) error {
	n, err := s.Get(ctx, p.TenantID, notificationID)
	if err != nil {
		return err
	}
	if !scope.IsVisible(p, n.Visibility()) {
		return authz.ErrNotFound
	}

	query := `
		INSERT INTO notification_reads (notification_id, user_id, read_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (notification_id, user_id) DO NOTHING
	`
	if _, err := s.db.ExecContext(ctx, query, notificationID, p.UserID, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	return nil
}

// Delete removes a notification and its read markers.
func (s *Store) Delete(ctx context.Context, tenantID, id int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM notification_reads WHERE notification_id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete read markers: %w", err)
	}
	result, err := tx.ExecContext(ctx, `DELETE FROM notifications WHERE tenant_id = $1 AND id = $2`, tenantID, id)
	if err != nil {
		return fmt.Errorf("failed to delete notification: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return authz.ErrNotFound
	}
	return tx.Commit()
}

// GetPreferences returns the user's delivery settings, falling back to
// defaults when none are stored yet.
func (s *Store) GetPreferences(ctx context.Context, tenantID, userID int64) (*Preferences, error) {
	query := `
		SELECT user_id, tenant_id, email_enabled, push_enabled, shift_alerts, kvp_updates, updated_at
		FROM notification_preferences
		WHERE tenant_id = $1 AND user_id = $2
	`
	p := &Preferences{}
	err := s.db.QueryRowContext(ctx, query, tenantID, userID).Scan(
		&p.UserID, &p.TenantID, &p.EmailEnabled, &p.PushEnabled, &p.ShiftAlerts, &p.KVPUpdates, &p.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return DefaultPreferences(tenantID, userID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get preferences: %w", err)
	}
	return p, nil
}

// UpdatePreferences stores new delivery settings, creating the row on
// first write.
func (s *Store) UpdatePreferences(ctx context.Context, tenantID, userID int64, req *UpdatePreferencesRequest) (*Preferences, error) {
	current, err := s.GetPreferences(ctx, tenantID, userID)
	if err != nil {
		return nil, err
	}

	if req.EmailEnabled != nil {
		current.EmailEnabled = *req.EmailEnabled
	}
	if req.PushEnabled != nil {
		current.PushEnabled = *req.PushEnabled
	}
	if req.ShiftAlerts != nil {
		current.ShiftAlerts = *req.ShiftAlerts
	}
	if req.KVPUpdates != nil {
		current.KVPUpdates = *req.KVPUpdates
	}
	current.UpdatedAt = time.Now().UTC()

	query := `
		INSERT INTO notification_preferences (tenant_id, user_id, email_enabled, push_enabled, shift_alerts, kvp_updates, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (tenant_id, user_id) DO UPDATE SET
			email_enabled = excluded.email_enabled,
			push_enabled = excluded.push_enabled,
			shift_alerts = excluded.shift_alerts,
			kvp_updates = excluded.kvp_updates,
			updated_at = excluded.updated_at
	`
	_, err = s.db.ExecContext(ctx, query,
		tenantID, userID, current.EmailEnabled, current.PushEnabled, current.ShiftAlerts, current.KVPUpdates, current.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update preferences: %w", err)
	}
	return current, nil
}
