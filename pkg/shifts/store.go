package shifts

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/crewdesk/crewdesk/pkg/authz"
)

// Store persists shift templates, plans, assignments, and swap
// requests, tenant-scoped throughout.
type Store struct {
	db *sql.DB
}

// NewStore creates a shift store.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
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

// --- Templates ---

func scanTemplate(row interface{ Scan(...interface{}) error }) (*Template, error) {
	tpl := &Template{}
	err := row.Scan(&tpl.ID, &tpl.TenantID, &tpl.Name, &tpl.StartTime, &tpl.EndTime, &tpl.Color,
		&tpl.CreatedAt, &tpl.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, authz.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan template: %w", err)
	}
	return tpl, nil
}

// CreateTemplate inserts a new shift template.
func (s *Store) CreateTemplate(ctx context.Context, tpl *Template) error {
	now := time.Now().UTC()
	tpl.CreatedAt = now
	tpl.UpdatedAt = now

	query := `
		INSERT INTO shift_templates (tenant_id, name, start_time, end_time, color, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`
	err := s.db.QueryRowContext(ctx, query,
		tpl.TenantID, tpl.Name, tpl.StartTime, tpl.EndTime, tpl.Color, tpl.CreatedAt, tpl.UpdatedAt,
	).Scan(&tpl.ID)
	if err != nil {
		return fmt.Errorf("failed to create template: %w", err)
	}
	return nil
}

// GetTemplate retrieves a template within the tenant.
func (s *Store) GetTemplate(ctx context.Context, tenantID, id int64) (*Template, error) {
	query := `
		SELECT id, tenant_id, name, start_time, end_time, color, created_at, updated_at
		FROM shift_templates WHERE tenant_id = $1 AND id = $2
	`
	return scanTemplate(s.db.QueryRowContext(ctx, query, tenantID, id))
}

// ListTemplates returns the tenant's templates by name.
func (s *Store) ListTemplates(ctx context.Context, tenantID int64) ([]*Template, error) {
	query := `
		SELECT id, tenant_id, name, start_time, end_time, color, created_at, updated_at
		FROM shift_templates WHERE tenant_id = $1 ORDER BY name
	`
	rows, err := s.db.QueryContext(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}
	defer rows.Close()

	var out []*Template
	for rows.Next() {
		tpl, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, tpl)
	}
	return out, rows.Err()
}

// UpdateTemplate applies optional field updates.
func (s *Store) UpdateTemplate(ctx context.Context, tenantID, id int64, req *UpdateTemplateRequest) error {
	setClauses := []string{}
	args := []interface{}{}
	pos := 1

	if req.Name != nil {
		setClauses = append(setClauses, fmt.Sprintf("name = $%d", pos))
		args = append(args, *req.Name)
		pos++
	}
	if req.StartTime != nil {
		setClauses = append(setClauses, fmt.Sprintf("start_time = $%d", pos))
		args = append(args, *req.StartTime)
		pos++
	}
	if req.EndTime != nil {
		setClauses = append(setClauses, fmt.Sprintf("end_time = $%d", pos))
		args = append(args, *req.EndTime)
		pos++
	}
	if req.Color != nil {
		setClauses = append(setClauses, fmt.Sprintf("color = $%d", pos))
		args = append(args, *req.Color)
		pos++
	}
	if len(setClauses) == 0 {
		return nil
	}

	setClauses = append(setClauses, fmt.Sprintf("updated_at = $%d", pos))
	args = append(args, time.Now().UTC())
	pos++

	args = append(args, tenantID, id)
	query := fmt.Sprintf("UPDATE shift_templates SET %s WHERE tenant_id = $%d AND id = $%d",
		strings.Join(setClauses, ", "), pos, pos+1)
	return s.exec(ctx, query, args...)
}

// DeleteTemplate removes a template. Existing assignments keep their
// template reference; the template just stops being offered.
func (s *Store) DeleteTemplate(ctx context.Context, tenantID, id int64) error {
	return s.exec(ctx, `DELETE FROM shift_templates WHERE tenant_id = $1 AND id = $2`, tenantID, id)
}

// --- Plans ---

func scanPlan(row interface{ Scan(...interface{}) error }) (*Plan, error) {
	p := &Plan{}
	err := row.Scan(&p.ID, &p.TenantID, &p.Name, &p.Status, &p.StartsOn, &p.EndsOn,
		&p.CreatedBy, &p.CreatedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, authz.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan plan: %w", err)
	}
	return p, nil
}

// CreatePlan inserts a new plan. Plans always start as drafts.
func (s *Store) CreatePlan(ctx context.Context, p *Plan) error {
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now
	p.Status = authz.PlanStatusDraft

	query := `
		INSERT INTO shift_plans (tenant_id, name, status, starts_on, ends_on, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`
	err := s.db.QueryRowContext(ctx, query,
		p.TenantID, p.Name, p.Status, p.StartsOn, p.EndsOn, p.CreatedBy, p.CreatedAt, p.UpdatedAt,
	).Scan(&p.ID)
	if err != nil {
		return fmt.Errorf("failed to create plan: %w", err)
	}
	return nil
}

// GetPlan retrieves a plan within the tenant.
func (s *Store) GetPlan(ctx context.Context, tenantID, id int64) (*Plan, error) {
	query := `
		SELECT id, tenant_id, name, status, starts_on, ends_on, created_by, created_at, updated_at
		FROM shift_plans WHERE tenant_id = $1 AND id = $2
	`
	return scanPlan(s.db.QueryRowContext(ctx, query, tenantID, id))
}

// ListPlans returns the tenant's plans, newest range first.
func (s *Store) ListPlans(ctx context.Context, tenantID int64, filter ListPlanFilter) ([]*Plan, error) {
	query := `
		SELECT id, tenant_id, name, status, starts_on, ends_on, created_by, created_at, updated_at
		FROM shift_plans WHERE tenant_id = $1
	`
	args := []interface{}{tenantID}
	if filter.Status != "" {
		query += " AND status = $2"
		args = append(args, filter.Status)
	}
	query += " ORDER BY starts_on DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list plans: %w", err)
	}
	defer rows.Close()

	var out []*Plan
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// UpdatePlan applies optional field updates.
func (s *Store) UpdatePlan(ctx context.Context, tenantID, id int64, req *UpdatePlanRequest) error {
	setClauses := []string{}
	args := []interface{}{}
	pos := 1

	if req.Name != nil {
		setClauses = append(setClauses, fmt.Sprintf("name = $%d", pos))
		args = append(args, *req.Name)
		pos++
	}
	if req.StartsOn != nil {
		setClauses = append(setClauses, fmt.Sprintf("starts_on = $%d", pos))
		args = append(args, *req.StartsOn)
		pos++
	}
	if req.EndsOn != nil {
		setClauses = append(setClauses, fmt.Sprintf("ends_on = $%d", pos))
		args = append(args, *req.EndsOn)
		pos++
	}
	if len(setClauses) == 0 {
		return nil
	}

	setClauses = append(setClauses, fmt.Sprintf("updated_at = $%d", pos))
	args = append(args, time.Now().UTC())
	pos++

	args = append(args, tenantID, id)
	query := fmt.Sprintf("UPDATE shift_plans SET %s WHERE tenant_id = $%d AND id = $%d",
		strings.Join(setClauses, ", "), pos, pos+1)
	return s.exec(ctx, query, args...)
}

// TransitionPlan moves a plan through its publish lifecycle. An
// out-of-table move fails with InvalidTransition and leaves the stored
// status unchanged.
func (s *Store) TransitionPlan(ctx context.Context, tenantID, id int64, newStatus string) (*Plan, error) {
	p, err := s.GetPlan(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if err := authz.PlanTransitions.Check(p.Status, newStatus); err != nil {
		return nil, err
	}

	p.Status = newStatus
	p.UpdatedAt = time.Now().UTC()
	err = s.exec(ctx, `UPDATE shift_plans SET status = $1, updated_at = $2 WHERE tenant_id = $3 AND id = $4`,
		p.Status, p.UpdatedAt, tenantID, id)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// DeletePlan removes a plan together with its assignments and their
// swap requests.
func (s *Store) DeletePlan(ctx context.Context, tenantID, id int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		DELETE FROM shift_swap_requests
		WHERE assignment_id IN (SELECT id FROM shift_assignments WHERE plan_id = $1)
	`, id)
	if err != nil {
		return fmt.Errorf("failed to delete swap requests: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM shift_assignments WHERE plan_id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete assignments: %w", err)
	}
	result, err := tx.ExecContext(ctx, `DELETE FROM shift_plans WHERE tenant_id = $1 AND id = $2`, tenantID, id)
	if err != nil {
		return fmt.Errorf("failed to delete plan: %w", err)
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

// --- Assignments ---

func scanAssignment(row interface{ Scan(...interface{}) error }) (*Assignment, error) {
	a := &Assignment{}
	err := row.Scan(&a.ID, &a.TenantID, &a.PlanID, &a.TemplateID, &a.UserID, &a.Day, &a.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, authz.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan assignment: %w", err)
	}
	return a, nil
}

// CreateAssignment puts a user on a shift for one day. The plan must
// exist in the same tenant.
func (s *Store) CreateAssignment(ctx context.Context, a *Assignment) error {
	if _, err := s.GetPlan(ctx, a.TenantID, a.PlanID); err != nil {
		return err
	}
	a.CreatedAt = time.Now().UTC()

	query := `
		INSERT INTO shift_assignments (tenant_id, plan_id, template_id, user_id, day, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`
	err := s.db.QueryRowContext(ctx, query,
		a.TenantID, a.PlanID, a.TemplateID, a.UserID, a.Day, a.CreatedAt,
	).Scan(&a.ID)
	if err != nil {
		return fmt.Errorf("failed to create assignment: %w", err)
	}
	return nil
}

// GetAssignment retrieves an assignment within the tenant.
func (s *Store) GetAssignment(ctx context.Context, tenantID, id int64) (*Assignment, error) {
	query := `
		SELECT id, tenant_id, plan_id, template_id, user_id, day, created_at
		FROM shift_assignments WHERE tenant_id = $1 AND id = $2
	`
	return scanAssignment(s.db.QueryRowContext(ctx, query, tenantID, id))
}

// ListAssignments returns a plan's assignments ordered by day.
func (s *Store) ListAssignments(ctx context.Context, tenantID, planID int64) ([]*Assignment, error) {
	query := `
		SELECT id, tenant_id, plan_id, template_id, user_id, day, created_at
		FROM shift_assignments WHERE tenant_id = $1 AND plan_id = $2
		ORDER BY day, user_id
	`
	return s.queryAssignments(ctx, query, tenantID, planID)
}

// ListUserAssignments returns one user's assignments across published
// plans in a date range. Employees see their own roster through this.
func (s *Store) ListUserAssignments(ctx context.Context, tenantID, userID int64, from, to string) ([]*Assignment, error) {
	query := `
		SELECT a.id, a.tenant_id, a.plan_id, a.template_id, a.user_id, a.day, a.created_at
		FROM shift_assignments a
		JOIN shift_plans p ON p.id = a.plan_id
		WHERE a.tenant_id = $1 AND a.user_id = $2 AND p.status = $3 AND a.day >= $4 AND a.day <= $5
		ORDER BY a.day
	`
	return s.queryAssignments(ctx, query, tenantID, userID, authz.PlanStatusPublished, from, to)
}

func (s *Store) queryAssignments(ctx context.Context, query string, args ...interface{}) ([]*Assignment, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list assignments: %w", err)
	}
	defer rows.Close()

	var out []*Assignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// DeleteAssignment removes an assignment and any swap requests on it.
func (s *Store) DeleteAssignment(ctx context.Context, tenantID, id int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM shift_swap_requests WHERE assignment_id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete swap requests: %w", err)
	}
	result, err := tx.ExecContext(ctx, `DELETE FROM shift_assignments WHERE tenant_id = $1 AND id = $2`, tenantID, id)
	if err != nil {
		return fmt.Errorf("failed to delete assignment: %w", err)
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

// --- Swap requests ---

func scanSwap(row interface{ Scan(...interface{}) error }) (*SwapRequest, error) {
	sr := &SwapRequest{}
	err := row.Scan(&sr.ID, &sr.TenantID, &sr.AssignmentID, &sr.RequesterID, &sr.AddresseeID,
		&sr.Status, &sr.Note, &sr.CreatedAt, &sr.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, authz.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan swap request: %w", err)
	}
	return sr, nil
}

// RequestSwap opens a swap request for an assignment the principal
// holds. An assignment held by someone else looks missing; addressing
// a swap to oneself is a self-action error.
func (s *Store) RequestSwap(ctx context.Context, p *authz.Principal, assignmentID, addresseeID int64, note string) (*SwapRequest, error) {
	a, err := s.GetAssignment(ctx, p.TenantID, assignmentID)
	if err != nil {
		return nil, err
	}
	if a.UserID != p.UserID {
		return nil, authz.ErrNotFound
	}
	if addresseeID == p.UserID {
		return nil, authz.ErrSelfAction
	}

	now := time.Now().UTC()
	sr := &SwapRequest{
		TenantID:     p.TenantID,
		AssignmentID: assignmentID,
		RequesterID:  p.UserID,
		AddresseeID:  addresseeID,
		Status:       authz.SwapStatusPending,
		Note:         note,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	query := `
		INSERT INTO shift_swap_requests (tenant_id, assignment_id, requester_id, addressee_id, status, note, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`
	err = s.db.QueryRowContext(ctx, query,
		sr.TenantID, sr.AssignmentID, sr.RequesterID, sr.AddresseeID, sr.Status, sr.Note, sr.CreatedAt, sr.UpdatedAt,
	).Scan(&sr.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to create swap request: %w", err)
	}
	return sr, nil
}

// GetSwap retrieves a swap request within the tenant.
func (s *Store) GetSwap(ctx context.Context, tenantID, id int64) (*SwapRequest, error) {
	query := `
		SELECT id, tenant_id, assignment_id, requester_id, addressee_id, status, note, created_at, updated_at
		FROM shift_swap_requests WHERE tenant_id = $1 AND id = $2
	`
	return scanSwap(s.db.QueryRowContext(ctx, query, tenantID, id))
}

// ListSwaps returns swap requests matching the filter, newest first.
func (s *Store) ListSwaps(ctx context.Context, tenantID int64, filter ListSwapFilter) ([]*SwapRequest, error) {
	query := `
		SELECT id, tenant_id, assignment_id, requester_id, addressee_id, status, note, created_at, updated_at
		FROM shift_swap_requests WHERE tenant_id = $1
	`
	args := []interface{}{tenantID}
	pos := 1

	if filter.RequesterID != nil {
		pos++
		query += fmt.Sprintf(" AND requester_id = $%d", pos)
		args = append(args, *filter.RequesterID)
	}
	if filter.AddresseeID != nil {
		pos++
		query += fmt.Sprintf(" AND addressee_id = $%d", pos)
		args = append(args, *filter.AddresseeID)
	}
	if filter.Status != "" {
		pos++
		query += fmt.Sprintf(" AND status = $%d", pos)
		args = append(args, filter.Status)
	}
	query += " ORDER BY created_at DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list swap requests: %w", err)
	}
	defer rows.Close()

	var out []*SwapRequest
	for rows.Next() {
		sr, err := scanSwap(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sr)
	}
	return out, rows.Err()
}

// ResolveSwap settles a pending swap request. Accepting hands the
// assignment to the addressee atomically; declining and cancelling
// only close the request. Who may resolve with which status is decided
// by the caller's policy check; this enforces the state machine.
func (s *Store) ResolveSwap(ctx context.Context, tenantID, id int64, newStatus string) (*SwapRequest, error) {
	sr, err := s.GetSwap(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if err := authz.SwapTransitions.Check(sr.Status, newStatus); err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	sr.Status = newStatus
	sr.UpdatedAt = time.Now().UTC()
	_, err = tx.ExecContext(ctx, `UPDATE shift_swap_requests SET status = $1, updated_at = $2 WHERE tenant_id = $3 AND id = $4`,
		sr.Status, sr.UpdatedAt, tenantID, id)
	if err != nil {
		return nil, fmt.Errorf("failed to update swap request: %w", err)
	}

	if newStatus == authz.SwapStatusAccepted {
		_, err = tx.ExecContext(ctx, `UPDATE shift_assignments SET user_id = $1 WHERE tenant_id = $2 AND id = $3`,
			sr.AddresseeID, tenantID, sr.AssignmentID)
		if err != nil {
			return nil, fmt.Errorf("failed to reassign shift: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit swap: %w", err)
	}
	return sr, nil
}
