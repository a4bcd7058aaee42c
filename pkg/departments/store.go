package departments

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/crewdesk/crewdesk/pkg/authz"
)

// ErrDepartmentHasTeams rejects deleting a department that still has
// active teams. The handler maps it to a validation error.
var ErrDepartmentHasTeams = errors.New("department has active teams")

// Store persists departments and teams, tenant-scoped throughout.
type Store struct {
	db *sql.DB
}

// NewStore creates a department store.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// CreateDepartment inserts a new department.
func (s *Store) CreateDepartment(ctx context.Context, d *Department) error {
	now := time.Now().UTC()
	d.CreatedAt = now
	d.UpdatedAt = now

	query := `
		INSERT INTO departments (tenant_id, name, description, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`
	err := s.db.QueryRowContext(ctx, query, d.TenantID, d.Name, d.Description, d.CreatedAt, d.UpdatedAt).Scan(&d.ID)
	if err != nil {
		return fmt.Errorf("failed to create department: %w", err)
	}
	return nil
}

// GetDepartment retrieves a department within the tenant.
func (s *Store) GetDepartment(ctx context.Context, tenantID, id int64) (*Department, error) {
	query := `
		SELECT id, tenant_id, name, description, deleted_at, created_at, updated_at
		FROM departments
		WHERE tenant_id = $1 AND id = $2 AND deleted_at IS NULL
	`
	d := &Department{}
	err := s.db.QueryRowContext(ctx, query, tenantID, id).Scan(
		&d.ID, &d.TenantID, &d.Name, &d.Description, &d.DeletedAt, &d.CreatedAt, &d.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, authz.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get department: %w", err)
	}
	return d, nil
}

// ListDepartments returns the tenant's departments.
func (s *Store) ListDepartments(ctx context.Context, tenantID int64) ([]*Department, error) {
	query := `
		SELECT id, tenant_id, name, description, deleted_at, created_at, updated_at
		FROM departments
		WHERE tenant_id = $1 AND deleted_at IS NULL
		ORDER BY name
	`
	rows, err := s.db.QueryContext(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list departments: %w", err)
	}
	defer rows.Close()

	var out []*Department
	for rows.Next() {
		d := &Department{}
		if err := rows.Scan(&d.ID, &d.TenantID, &d.Name, &d.Description, &d.DeletedAt, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan department: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// UpdateDepartment applies optional field updates.
func (s *Store) UpdateDepartment(ctx context.Context, tenantID, id int64, req *UpdateDepartmentRequest) error {
	setClauses := []string{}
	args := []interface{}{}
	pos := 1

	if req.Name != nil {
		setClauses = append(setClauses, fmt.Sprintf("name = $%d", pos))
		args = append(args, *req.Name)
		pos++
	}
	if req.Description != nil {
		setClauses = append(setClauses, fmt.Sprintf("description = $%d", pos))
		args = append(args, *req.Description)
		pos++
	}
	if len(setClauses) == 0 {
		return nil
	}

	setClauses = append(setClauses, fmt.Sprintf("updated_at = $%d", pos))
	args = append(args, time.Now().UTC())
	pos++

	args = append(args, tenantID, id)
	query := fmt.Sprintf("UPDATE departments SET %s WHERE tenant_id = $%d AND id = $%d AND deleted_at IS NULL",
		strings.Join(setClauses, ", "), pos, pos+1)
	return s.exec(ctx, query, args...)
}

// DeleteDepartment soft-deletes a department. A department that still
// has active teams cannot be deleted.
func (s *Store) DeleteDepartment(ctx context.Context, tenantID, id int64) error {
	var teamCount int64
	countQuery := `SELECT COUNT(*) FROM teams WHERE tenant_id = $1 AND department_id = $2 AND deleted_at IS NULL`
	if err := s.db.QueryRowContext(ctx, countQuery, tenantID, id).Scan(&teamCount); err != nil {
		return fmt.Errorf("failed to count teams: %w", err)
	}
	if teamCount > 0 {
		return ErrDepartmentHasTeams
	}

	now := time.Now().UTC()
	query := `UPDATE departments SET deleted_at = $1, updated_at = $2 WHERE tenant_id = $3 AND id = $4 AND deleted_at IS NULL`
	return s.exec(ctx, query, now, now, tenantID, id)
}

// CreateTeam inserts a new team. The department must exist in the same
// tenant.
func (s *Store) CreateTeam(ctx context.Context, t *Team) error {
	if _, err := s.GetDepartment(ctx, t.TenantID, t.DepartmentID); err != nil {
		return err
	}

	now := time.Now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now

	query := `
		INSERT INTO teams (tenant_id, department_id, name, description, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`
	err := s.db.QueryRowContext(ctx, query, t.TenantID, t.DepartmentID, t.Name, t.Description, t.CreatedAt, t.UpdatedAt).Scan(&t.ID)
	if err != nil {
		return fmt.Errorf("failed to create team: %w", err)
	}
	return nil
}

// GetTeam retrieves a team within the tenant.
func (s *Store) GetTeam(ctx context.Context, tenantID, id int64) (*Team, error) {
	query := `
		SELECT id, tenant_id, department_id, name, description, deleted_at, created_at, updated_at
		FROM teams
		WHERE tenant_id = $1 AND id = $2 AND deleted_at IS NULL
	`
	t := &Team{}
	err := s.db.QueryRowContext(ctx, query, tenantID, id).Scan(
		&t.ID, &t.TenantID, &t.DepartmentID, &t.Name, &t.Description, &t.DeletedAt, &t.CreatedAt, &t.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, authz.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get team: %w", err)
	}
	return t, nil
}

// ListTeams returns teams, optionally narrowed to one department.
func (s *Store) ListTeams(ctx context.Context, tenantID int64, departmentID *int64) ([]*Team, error) {
	query := `
		SELECT id, tenant_id, department_id, name, description, deleted_at, created_at, updated_at
		FROM teams
		WHERE tenant_id = $1 AND deleted_at IS NULL
	`
	args := []interface{}{tenantID}
	if departmentID != nil {
		query += " AND department_id = $2"
		args = append(args, *departmentID)
	}
	query += " ORDER BY name"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list teams: %w", err)
	}
	defer rows.Close()

	var out []*Team
	for rows.Next() {
		t := &Team{}
		if err := rows.Scan(&t.ID, &t.TenantID, &t.DepartmentID, &t.Name, &t.Description, &t.DeletedAt, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan team: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// UpdateTeam applies optional field updates.
func (s *Store) UpdateTeam(ctx context.Context, tenantID, id int64, req *UpdateTeamRequest) error {
	setClauses := []string{}
	args := []interface{}{}
	pos := 1

	if req.Name != nil {
		setClauses = append(setClauses, fmt.Sprintf("name = $%d", pos))
		args = append(args, *req.Name)
		pos++
	}
	if req.Description != nil {
		setClauses = append(setClauses, fmt.Sprintf("description = $%d", pos))
		args = append(args, *req.Description)
		pos++
	}
	if len(setClauses) == 0 {
		return nil
	}

	setClauses = append(setClauses, fmt.Sprintf("updated_at = $%d", pos))
	args = append(args, time.Now().UTC())
	pos++

	args = append(args, tenantID, id)
	query := fmt.Sprintf("UPDATE teams SET %s WHERE tenant_id = $%d AND id = $%d AND deleted_at IS NULL",
		strings.Join(setClauses, ", "), pos, pos+1)
	return s.exec(ctx, query, args...)
}

// DeleteTeam soft-deletes a team.
func (s *Store) DeleteTeam(ctx context.Context, tenantID, id int64) error {
	now := time.Now().UTC()
	query := `UPDATE teams SET deleted_at = $1, updated_at = $2 WHERE tenant_id = $3 AND id = $4 AND deleted_at IS NULL`
	return s.exec(ctx, query, now, now, tenantID, id)
}

func (s *Store) exec(ctx context.Context, query string, args ...interface{}) error {
	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to execute update: %w", err)
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
