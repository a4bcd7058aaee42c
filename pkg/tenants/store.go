package tenants

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/crewdesk/crewdesk/pkg/authz"
)

// Store persists tenants.
type Store struct {
	db *sql.DB
}

// NewStore creates a tenant store.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Create inserts a new tenant in trial status. TrialEndsAt should be
// set by the caller from the configured trial length.
func (s *Store) Create(ctx context.Context, t *Tenant) error {
	now := time.Now().UTC()
	t.Status = StatusTrial
	t.CreatedAt = now
	t.UpdatedAt = now

	query := `
		INSERT INTO tenants (name, subdomain, status, trial_ends_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`
	err := s.db.QueryRowContext(ctx, query,
		t.Name, t.Subdomain, t.Status, t.TrialEndsAt, t.CreatedAt, t.UpdatedAt,
	).Scan(&t.ID)
	if err != nil {
		return fmt.Errorf("failed to create tenant: %w", err)
	}
	return nil
}

// GetByID retrieves a tenant by id.
func (s *Store) GetByID(ctx context.Context, id int64) (*Tenant, error) {
	query := `
		SELECT id, name, subdomain, status, trial_ends_at, created_at, updated_at
		FROM tenants
		WHERE id = $1
	`
	return s.scanOne(s.db.QueryRowContext(ctx, query, id))
}

// GetBySubdomain retrieves a tenant by its subdomain.
func (s *Store) GetBySubdomain(ctx context.Context, subdomain string) (*Tenant, error) {
	query := `
		SELECT id, name, subdomain, status, trial_ends_at, created_at, updated_at
		FROM tenants
		WHERE subdomain = $1
	`
	return s.scanOne(s.db.QueryRowContext(ctx, query, subdomain))
}

func (s *Store) scanOne(row *sql.Row) (*Tenant, error) {
	t := &Tenant{}
	err := row.Scan(&t.ID, &t.Name, &t.Subdomain, &t.Status, &t.TrialEndsAt, &t.CreatedAt, &t.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, authz.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get tenant: %w", err)
	}
	return t, nil
}

// List returns all tenants ordered by creation time. Root only; the
// handler layer enforces that.
func (s *Store) List(ctx context.Context) ([]*Tenant, error) {
	query := `
		SELECT id, name, subdomain, status, trial_ends_at, created_at, updated_at
		FROM tenants
		ORDER BY created_at DESC
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list tenants: %w", err)
	}
	defer rows.Close()

	var out []*Tenant
	for rows.Next() {
		t := &Tenant{}
		if err := rows.Scan(&t.ID, &t.Name, &t.Subdomain, &t.Status, &t.TrialEndsAt, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan tenant: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// Update applies optional field updates.
func (s *Store) Update(ctx context.Context, id int64, req *UpdateTenantRequest) error {
	if req.Name == nil {
		return nil
	}
	query := `UPDATE tenants SET name = $1, updated_at = $2 WHERE id = $3`
	result, err := s.db.ExecContext(ctx, query, *req.Name, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to update tenant: %w", err)
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

// Transition moves the tenant to a new status if the lifecycle allows
// it. Invalid transitions return a policy error, not a plain one.
func (s *Store) Transition(ctx context.Context, id int64, target string) (*Tenant, error) {
	t, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authz.TenantTransitions.Check(t.Status, target); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	query := `UPDATE tenants SET status = $1, updated_at = $2 WHERE id = $3`
	if _, err := s.db.ExecContext(ctx, query, target, now, id); err != nil {
		return nil, fmt.Errorf("failed to transition tenant: %w", err)
	}
	t.Status = target
	t.UpdatedAt = now
	return t, nil
}

// ExpireTrials suspends every trial tenant whose trial window has
// passed. Returns the number of tenants suspended.
func (s *Store) ExpireTrials(ctx context.Context, now time.Time) (int64, error) {
	query := `
		UPDATE tenants
		SET status = $1, updated_at = $2
		WHERE status = $3 AND trial_ends_at IS NOT NULL AND trial_ends_at < $4
	`
	result, err := s.db.ExecContext(ctx, query, StatusSuspended, now, StatusTrial, now)
	if err != nil {
		return 0, fmt.Errorf("failed to expire trials: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return affected, nil
}

// Count returns the total number of tenants, for metrics.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM tenants").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count tenants: %w", err)
	}
	return n, nil
}
