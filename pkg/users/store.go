package users

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/crewdesk/crewdesk/pkg/authz"
)

// Store persists users. Every query is tenant-scoped: the caller's
// tenant id is baked into the WHERE clause, so a row from another
// tenant is indistinguishable from a missing one.
type Store struct {
	db *sql.DB
}

// NewStore creates a user store.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

const userColumns = `id, tenant_id, username, email, first_name, last_name, role, status,
	department_id, team_id, points, password_hash, last_login_at, deleted_at, created_at, updated_at`

func scanUser(row interface{ Scan(...interface{}) error }) (*User, error) {
	u := &User{}
	err := row.Scan(
		&u.ID, &u.TenantID, &u.Username, &u.Email, &u.FirstName, &u.LastName,
		&u.Role, &u.Status, &u.DepartmentID, &u.TeamID, &u.Points,
		&u.PasswordHash, &u.LastLoginAt, &u.DeletedAt, &u.CreatedAt, &u.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, authz.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}
	return u, nil
}

// Create inserts a new user.
func (s *Store) Create(ctx context.Context, u *User) error {
	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now
	if u.Status == "" {
		u.Status = StatusActive
	}

	query := `
		INSERT INTO users (tenant_id, username, email, first_name, last_name, role, status,
		                   department_id, team_id, points, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id
	`
	err := s.db.QueryRowContext(ctx, query,
		u.TenantID, u.Username, u.Email, u.FirstName, u.LastName, u.Role, u.Status,
		u.DepartmentID, u.TeamID, u.Points, u.PasswordHash, u.CreatedAt, u.UpdatedAt,
	).Scan(&u.ID)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetByID retrieves a user within the given tenant.
func (s *Store) GetByID(ctx context.Context, tenantID, id int64) (*User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE tenant_id = $1 AND id = $2`, userColumns)
	return scanUser(s.db.QueryRowContext(ctx, query, tenantID, id))
}

// GetByIdentifier looks up a login candidate by username or email
// within the tenant. Soft-deleted accounts are excluded so their
// identifiers behave like unknown ones.
func (s *Store) GetByIdentifier(ctx context.Context, tenantID int64, identifier string) (*User, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM users
		WHERE tenant_id = $1 AND (username = $2 OR email = $3) AND deleted_at IS NULL
	`, userColumns)
	return scanUser(s.db.QueryRowContext(ctx, query, tenantID, identifier, identifier))
}

// List returns the tenant's users, optionally narrowed by department
// or team.
func (s *Store) List(ctx context.Context, tenantID int64, filter ListFilter) ([]*User, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, `SELECT %s FROM users WHERE tenant_id = $1`, userColumns)
	args := []interface{}{tenantID}
	pos := 2

	if filter.DepartmentID != nil {
		fmt.Fprintf(&sb, " AND department_id = $%d", pos)
		args = append(args, *filter.DepartmentID)
		pos++
	}
	if filter.TeamID != nil {
		fmt.Fprintf(&sb, " AND team_id = $%d", pos)
		args = append(args, *filter.TeamID)
		pos++
	}
	if !filter.IncludeDeleted {
		sb.WriteString(" AND deleted_at IS NULL")
	}
	sb.WriteString(" ORDER BY username")

	rows, err := s.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var out []*User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// UpdateProfile applies self-service profile changes.
func (s *Store) UpdateProfile(ctx context.Context, tenantID, id int64, req *UpdateProfileRequest) error {
	setClauses := []string{}
	args := []interface{}{}
	pos := 1

	if req.Email != nil {
		setClauses = append(setClauses, fmt.Sprintf("email = $%d", pos))
		args = append(args, *req.Email)
		pos++
	}
	if req.FirstName != nil {
		setClauses = append(setClauses, fmt.Sprintf("first_name = $%d", pos))
		args = append(args, *req.FirstName)
		pos++
	}
	if req.LastName != nil {
		setClauses = append(setClauses, fmt.Sprintf("last_name = $%d", pos))
		args = append(args, *req.LastName)
		pos++
	}
	if len(setClauses) == 0 {
		return nil
	}

	setClauses = append(setClauses, fmt.Sprintf("updated_at = $%d", pos))
	args = append(args, time.Now().UTC())
	pos++

	args = append(args, tenantID, id)
	query := fmt.Sprintf("UPDATE users SET %s WHERE tenant_id = $%d AND id = $%d AND deleted_at IS NULL",
		strings.Join(setClauses, ", "), pos, pos+1)
	return s.exec(ctx, query, args...)
}

// AdminUpdate applies admin-only field changes. Role and grant checks
// happen in the policy layer before this is called.
func (s *Store) AdminUpdate(ctx context.Context, tenantID, id int64, req *AdminUpdateRequest) error {
	setClauses := []string{}
	args := []interface{}{}
	pos := 1

	if req.Role != nil {
		setClauses = append(setClauses, fmt.Sprintf("role = $%d", pos))
		args = append(args, *req.Role)
		pos++
	}
	if req.Status != nil {
		setClauses = append(setClauses, fmt.Sprintf("status = $%d", pos))
		args = append(args, *req.Status)
		pos++
	}
	if req.DepartmentID != nil {
		setClauses = append(setClauses, fmt.Sprintf("department_id = $%d", pos))
		args = append(args, *req.DepartmentID)
		pos++
	}
	if req.TeamID != nil {
		setClauses = append(setClauses, fmt.Sprintf("team_id = $%d", pos))
		args = append(args, *req.TeamID)
		pos++
	}
	if len(setClauses) == 0 {
		return nil
	}

	setClauses = append(setClauses, fmt.Sprintf("updated_at = $%d", pos))
	args = append(args, time.Now().UTC())
	pos++

	args = append(args, tenantID, id)
	query := fmt.Sprintf("UPDATE users SET %s WHERE tenant_id = $%d AND id = $%d AND deleted_at IS NULL",
		strings.Join(setClauses, ", "), pos, pos+1)
	return s.exec(ctx, query, args...)
}

// SetPassword stores a new password hash.
func (s *Store) SetPassword(ctx context.Context, tenantID, id int64, hash string) error {
	query := `UPDATE users SET password_hash = $1, updated_at = $2 WHERE tenant_id = $3 AND id = $4 AND deleted_at IS NULL`
	return s.exec(ctx, query, hash, time.Now().UTC(), tenantID, id)
}

// TouchLastLogin records a successful authentication.
func (s *Store) TouchLastLogin(ctx context.Context, tenantID, id int64, at time.Time) error {
	query := `UPDATE users SET last_login_at = $1 WHERE tenant_id = $2 AND id = $3`
	return s.exec(ctx, query, at, tenantID, id)
}

// AddPoints credits reward points to a user.
func (s *Store) AddPoints(ctx context.Context, tenantID, id int64, points int) error {
	query := `UPDATE users SET points = points + $1, updated_at = $2 WHERE tenant_id = $3 AND id = $4 AND deleted_at IS NULL`
	return s.exec(ctx, query, points, time.Now().UTC(), tenantID, id)
}

// SoftDelete disables the account and marks it deleted. The row stays
// intact for audit history.
func (s *Store) SoftDelete(ctx context.Context, tenantID, id int64) error {
	now := time.Now().UTC()
	query := `
		UPDATE users SET status = $1, deleted_at = $2, updated_at = $3
		WHERE tenant_id = $4 AND id = $5 AND deleted_at IS NULL
	`
	return s.exec(ctx, query, StatusDisabled, now, now, tenantID, id)
}

// HardDelete anonymizes the account: identifiers are replaced with a
// deleted-user placeholder and personal fields are cleared, while the
// row itself survives so foreign keys keep resolving.
func (s *Store) HardDelete(ctx context.Context, tenantID, id int64) error {
	now := time.Now().UTC()
	placeholder := fmt.Sprintf("deleted-user-%d", id)
	query := `
		UPDATE users
		SET username = $1, email = $2, first_name = '', last_name = '',
		    password_hash = '', status = $3, deleted_at = $4, updated_at = $5
		WHERE tenant_id = $6 AND id = $7
	`
	return s.exec(ctx, query, placeholder, placeholder+"@deleted.invalid", StatusDisabled, now, now, tenantID, id)
}

// CountActive returns active users in a tenant, for metrics.
func (s *Store) CountActive(ctx context.Context, tenantID int64) (int64, error) {
	query := `SELECT COUNT(*) FROM users WHERE tenant_id = $1 AND status = $2 AND deleted_at IS NULL`
	var n int64
	if err := s.db.QueryRowContext(ctx, query, tenantID, StatusActive).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return n, nil
}

// CountActiveAll returns active users across every tenant, for metrics.
func (s *Store) CountActiveAll(ctx context.Context) (int64, error) {
	query := `SELECT COUNT(*) FROM users WHERE status = $1 AND deleted_at IS NULL`
	var n int64
	if err := s.db.QueryRowContext(ctx, query, StatusActive).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return n, nil
}

func (s *Store) exec(ctx context.Context, query string, args ...interface{}) error {
	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
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
