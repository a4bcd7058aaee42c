package shifts

import (
	"context"
	"fmt"
	"time"
)

// GenerateRotation rolls a repeating template sequence over the users
// for every day in the range. Days where a user already has an
// assignment in the plan are skipped and reported as conflicts rather
// than failing the run. The template sequence keeps advancing across
// days and users so repeated runs stay deterministic.
func (s *Store) GenerateRotation(ctx context.Context, tenantID int64, req *RotationRequest) (*RotationResult, error) {
	if len(req.TemplateIDs) == 0 || len(req.UserIDs) == 0 {
		return nil, fmt.Errorf("rotation needs at least one template and one user")
	}
	plan, err := s.GetPlan(ctx, tenantID, req.PlanID)
	if err != nil {
		return nil, err
	}

	from, err := time.Parse(DateFormat, req.From)
	if err != nil {
		return nil, fmt.Errorf("invalid from date: %w", err)
	}
	to, err := time.Parse(DateFormat, req.To)
	if err != nil {
		return nil, fmt.Errorf("invalid to date: %w", err)
	}
	if to.Before(from) {
		return nil, fmt.Errorf("date range ends before it starts")
	}

	skip := make(map[string]bool, len(req.SkipDays))
	for _, d := range req.SkipDays {
		skip[d] = true
	}

	taken, err := s.takenDays(ctx, tenantID, plan.ID)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	result := &RotationResult{}
	now := time.Now().UTC()
	seq := 0
	for day := from; !day.After(to); day = day.AddDate(0, 0, 1) {
		if skip[day.Weekday().String()] {
			continue
		}
		dayStr := day.Format(DateFormat)
		for _, userID := range req.UserIDs {
			templateID := req.TemplateIDs[seq%len(req.TemplateIDs)]
			seq++

			key := fmt.Sprintf("%d/%s", userID, dayStr)
			if taken[key] {
				result.Conflicts = append(result.Conflicts, Conflict{UserID: userID, Day: dayStr})
				continue
			}

			_, err := tx.ExecContext(ctx, `
				INSERT INTO shift_assignments (tenant_id, plan_id, template_id, user_id, day, created_at)
				VALUES ($1, $2, $3, $4, $5, $6)
			`, tenantID, plan.ID, templateID, userID, dayStr, now)
			if err != nil {
				return nil, fmt.Errorf("failed to create rotation assignment: %w", err)
			}
			taken[key] = true
			result.Created++
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit rotation: %w", err)
	}
	return result, nil
}

// takenDays returns the user/day pairs already assigned in the plan.
func (s *Store) takenDays(ctx context.Context, tenantID, planID int64) (map[string]bool, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id, day FROM shift_assignments WHERE tenant_id = $1 AND plan_id = $2`,
		tenantID, planID)
	if err != nil {
		return nil, fmt.Errorf("failed to load existing assignments: %w", err)
	}
	defer rows.Close()

	taken := map[string]bool{}
	for rows.Next() {
		var userID int64
		var day string
		if err := rows.Scan(&userID, &day); err != nil {
			return nil, fmt.Errorf("failed to scan assignment: %w", err)
		}
		taken[fmt.Sprintf("%d/%s", userID, day)] = true
	}
	return taken, rows.Err()
}
