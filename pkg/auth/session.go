package auth

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/crewdesk/crewdesk/pkg/authz"
)

// Session is a server-side login record. Tokens reference it by id, so
// revoking the session invalidates every token minted for it.
type Session struct {
	ID                string     `json:"id"`
	UserID            int64      `json:"userId"`
	TenantID          int64      `json:"tenantId"`
	DeviceFingerprint string     `json:"deviceFingerprint,omitempty"`
	IsActive          bool       `json:"isActive"`
	CreatedAt         time.Time  `json:"createdAt"`
	LastSeenAt        *time.Time `json:"lastSeenAt,omitempty"`
	ExpiresAt         time.Time  `json:"expiresAt"`
}

// SessionStore persists sessions.
type SessionStore struct {
	db *sql.DB
}

// NewSessionStore creates a session store.
func NewSessionStore(db *sql.DB) *SessionStore {
	return &SessionStore{db: db}
}

// Create inserts a new active session with a fresh uuid.
func (s *SessionStore) Create(ctx context.Context, userID, tenantID int64, fingerprint string, ttl time.Duration) (*Session, error) {
	now := time.Now().UTC()
	sess := &Session{
		ID:                uuid.NewString(),
		UserID:            userID,
		TenantID:          tenantID,
		DeviceFingerprint: fingerprint,
		IsActive:          true,
		CreatedAt:         now,
		ExpiresAt:         now.Add(ttl),
	}

	query := `
		INSERT INTO sessions (id, user_id, tenant_id, device_fingerprint, is_active, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := s.db.ExecContext(ctx, query,
		sess.ID, sess.UserID, sess.TenantID, sess.DeviceFingerprint, sess.IsActive, sess.CreatedAt, sess.ExpiresAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return sess, nil
}

// Get retrieves a session by id.
func (s *SessionStore) Get(ctx context.Context, id string) (*Session, error) {
	query := `
		SELECT id, user_id, tenant_id, device_fingerprint, is_active, created_at, last_seen_at, expires_at
		FROM sessions
		WHERE id = $1
	`
	sess := &Session{}
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&sess.ID, &sess.UserID, &sess.TenantID, &sess.DeviceFingerprint,
		&sess.IsActive, &sess.CreatedAt, &sess.LastSeenAt, &sess.ExpiresAt,
	)
	if err == sql.ErrNoRows {
		return nil, authz.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return sess, nil
}

// ListByUser returns a user's sessions, newest first.
func (s *SessionStore) ListByUser(ctx context.Context, tenantID, userID int64) ([]*Session, error) {
	query := `
		SELECT id, user_id, tenant_id, device_fingerprint, is_active, created_at, last_seen_at, expires_at
		FROM sessions
		WHERE tenant_id = $1 AND user_id = $2
		ORDER BY created_at DESC
	`
	rows, err := s.db.QueryContext(ctx, query, tenantID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var out []*Session
	for rows.Next() {
		sess := &Session{}
		if err := rows.Scan(
			&sess.ID, &sess.UserID, &sess.TenantID, &sess.DeviceFingerprint,
			&sess.IsActive, &sess.CreatedAt, &sess.LastSeenAt, &sess.ExpiresAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}

// Touch updates the last-seen timestamp.
func (s *SessionStore) Touch(ctx context.Context, id string, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `UPDATE sessions SET last_seen_at = $1 WHERE id = $2`, at, id)
	if err != nil {
		return fmt.Errorf("failed to touch session: %w", err)
	}
	return nil
}

// Deactivate marks a session inactive. Idempotent: deactivating an
// already-inactive or missing session is not an error.
func (s *SessionStore) Deactivate(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE sessions SET is_active = $1 WHERE id = $2`, false, id)
	if err != nil {
		return fmt.Errorf("failed to deactivate session: %w", err)
	}
	return nil
}

// DeactivateAllForUser revokes every session of a user, for password
// changes and account deletion.
func (s *SessionStore) DeactivateAllForUser(ctx context.Context, tenantID, userID int64) error {
	query := `UPDATE sessions SET is_active = $1 WHERE tenant_id = $2 AND user_id = $3`
	_, err := s.db.ExecContext(ctx, query, false, tenantID, userID)
	if err != nil {
		return fmt.Errorf("failed to deactivate sessions: %w", err)
	}
	return nil
}

// DeleteExpired removes sessions past their expiry. Returns the number
// of rows removed; called from the cleanup job.
func (s *SessionStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at < $1`, now)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return affected, nil
}

// CountActive returns the number of active, unexpired sessions, for
// the sessions gauge.
func (s *SessionStore) CountActive(ctx context.Context, now time.Time) (int64, error) {
	query := `SELECT COUNT(*) FROM sessions WHERE is_active = $1 AND expires_at > $2`
	var n int64
	if err := s.db.QueryRowContext(ctx, query, true, now).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count sessions: %w", err)
	}
	return n, nil
}
