package surveys

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/crewdesk/crewdesk/pkg/authz"
	"github.com/crewdesk/crewdesk/pkg/scope"
)

// ErrAlreadyResponded rejects a second response to the same survey.
// The handler maps it to a validation error.
var ErrAlreadyResponded = errors.New("survey already answered")

// ErrSurveyClosed rejects responses to a closed survey.
var ErrSurveyClosed = errors.New("survey is closed")

// Store persists surveys and responses, tenant-scoped throughout.
type Store struct {
	db *sql.DB
}

// NewStore creates a survey store.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

const surveyColumns = `id, tenant_id, creator_id, title, description, status, is_anonymous,
	visibility_scope, target_id, questions, closes_at, created_at, updated_at`

func scanSurvey(row interface{ Scan(...interface{}) error }) (*Survey, error) {
	s := &Survey{}
	var questionsJSON []byte
	err := row.Scan(
		&s.ID, &s.TenantID, &s.CreatorID, &s.Title, &s.Description, &s.Status, &s.IsAnonymous,
		&s.VisibilityScope, &s.TargetID, &questionsJSON, &s.ClosesAt, &s.CreatedAt, &s.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, authz.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan survey: %w", err)
	}
	if err := json.Unmarshal(questionsJSON, &s.Questions); err != nil {
		return nil, fmt.Errorf("failed to unmarshal questions: %w", err)
	}
	return s, nil
}

// Create inserts a new open survey.
func (s *Store) Create(ctx context.Context, sv *Survey) error {
	now := time.Now().UTC()
	sv.Status = authz.SurveyStatusOpen
	sv.CreatedAt = now
	sv.UpdatedAt = now
	if sv.VisibilityScope == "" {
		sv.VisibilityScope = scope.ScopeCompany
	}
	if sv.Questions == nil {
		sv.Questions = []Question{}
	}

	questionsJSON, err := json.Marshal(sv.Questions)
	if err != nil {
		return fmt.Errorf("failed to marshal questions: %w", err)
	}

	query := `
		INSERT INTO surveys (tenant_id, creator_id, title, description, status, is_anonymous,
		                     visibility_scope, target_id, questions, closes_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id
	`
	err = s.db.QueryRowContext(ctx, query,
		sv.TenantID, sv.CreatorID, sv.Title, sv.Description, sv.Status, sv.IsAnonymous,
		sv.VisibilityScope, sv.TargetID, questionsJSON, sv.ClosesAt, sv.CreatedAt, sv.UpdatedAt,
	).Scan(&sv.ID)
	if err != nil {
		return fmt.Errorf("failed to create survey: %w", err)
	}
	return nil
}

// Get retrieves a survey within the tenant, without a scope check.
func (s *Store) Get(ctx context.Context, tenantID, id int64) (*Survey, error) {
	query := fmt.Sprintf(`SELECT %s FROM surveys WHERE tenant_id = $1 AND id = $2`, surveyColumns)
	return scanSurvey(s.db.QueryRowContext(ctx, query, tenantID, id))
}

// GetVisible retrieves a survey the principal may see.
func (s *Store) GetVisible(ctx context.Context, p *authz.Principal, id int64) (*Survey, error) {
	sv, err := s.Get(ctx, p.TenantID, id)
	if err != nil {
		return nil, err
	}
	if !scope.IsVisible(p, sv.Visibility()) {
		return nil, authz.ErrNotFound
	}
	return sv, nil
}

// List returns the surveys the principal may see, newest first.
func (s *Store) List(ctx context.Context, p *authz.Principal) ([]*Survey, error) {
	query := fmt.Sprintf(`SELECT %s FROM surveys WHERE tenant_id = $1`, surveyColumns)
	args := []interface{}{p.TenantID}

	clause, scopeArgs := scope.Filter(p, "creator_id", 1)
	query += clause
	args = append(args, scopeArgs...)
	query += " ORDER BY created_at DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list surveys: %w", err)
	}
	defer rows.Close()

	var out []*Survey
	for rows.Next() {
		sv, err := scanSurvey(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sv)
	}
	return out, rows.Err()
}

// Close moves a survey to closed. Closing twice is an invalid
// transition.
func (s *Store) Close(ctx context.Context, tenantID, id int64) (*Survey, error) {
	sv, err := s.Get(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if err := authz.SurveyTransitions.Check(sv.Status, authz.SurveyStatusClosed); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	query := `UPDATE surveys SET status = $1, updated_at = $2 WHERE tenant_id = $3 AND id = $4`
	if _, err := s.db.ExecContext(ctx, query, authz.SurveyStatusClosed, now, tenantID, id); err != nil {
		return nil, fmt.Errorf("failed to close survey: %w", err)
	}
	sv.Status = authz.SurveyStatusClosed
	sv.UpdatedAt = now
	return sv, nil
}

// Delete removes a survey and its responses.
func (s *Store) Delete(ctx context.Context, tenantID, id int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM survey_responses WHERE tenant_id = $1 AND survey_id = $2`, tenantID, id); err != nil {
		return fmt.Errorf("failed to delete responses: %w", err)
	}
	result, err := tx.ExecContext(ctx, `DELETE FROM surveys WHERE tenant_id = $1 AND id = $2`, tenantID, id)
	if err != nil {
		return fmt.Errorf("failed to delete survey: %w", err)
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

// Respond records a user's answers. Each user responds once; the
// survey must be open and visible to them.
func (s *Store) Respond(ctx context.Context, p *authz.Principal, surveyID int64, req *RespondRequest) (*Response, error) {
	sv, err := s.GetVisible(ctx, p, surveyID)
	if err != nil {
		return nil, err
	}
	if !sv.Open() {
		return nil, ErrSurveyClosed
	}

	var existing int64
	dupQuery := `SELECT COUNT(*) FROM survey_responses WHERE tenant_id = $1 AND survey_id = $2 AND respondent_id = $3`
	if err := s.db.QueryRowContext(ctx, dupQuery, p.TenantID, surveyID, p.UserID).Scan(&existing); err != nil {
		return nil, fmt.Errorf("failed to check existing response: %w", err)
	}
	if existing > 0 {
		return nil, ErrAlreadyResponded
	}

	answersJSON, err := json.Marshal(req.Answers)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal answers: %w", err)
	}

	resp := &Response{
		TenantID:     p.TenantID,
		SurveyID:     surveyID,
		RespondentID: p.UserID,
		Answers:      req.Answers,
		CreatedAt:    time.Now().UTC(),
	}
	query := `
		INSERT INTO survey_responses (tenant_id, survey_id, respondent_id, answers, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`
	err = s.db.QueryRowContext(ctx, query, resp.TenantID, resp.SurveyID, resp.RespondentID, answersJSON, resp.CreatedAt).Scan(&resp.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to create response: %w", err)
	}
	return resp, nil
}

// Responses returns a survey's responses for results rendering. The
// caller applies the anonymity mask per response.
func (s *Store) Responses(ctx context.Context, tenantID, surveyID int64) ([]*Response, error) {
	query := `
		SELECT id, tenant_id, survey_id, respondent_id, answers, created_at
		FROM survey_responses
		WHERE tenant_id = $1 AND survey_id = $2
		ORDER BY created_at
	`
	rows, err := s.db.QueryContext(ctx, query, tenantID, surveyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list responses: %w", err)
	}
	defer rows.Close()

	var out []*Response
	for rows.Next() {
		r := &Response{}
		var answersJSON []byte
		if err := rows.Scan(&r.ID, &r.TenantID, &r.SurveyID, &r.RespondentID, &answersJSON, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan response: %w", err)
		}
		if err := json.Unmarshal(answersJSON, &r.Answers); err != nil {
			return nil, fmt.Errorf("failed to unmarshal answers: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
