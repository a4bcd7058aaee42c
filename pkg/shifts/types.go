// Package shifts implements shift planning: reusable shift templates,
// plans with a publish lifecycle, per-day assignments, rotation
// generation, and swap requests between colleagues.
package shifts

import "time"

// DateFormat is the wire and storage format for plan days. Shift days
// are calendar dates, not instants; storing them as dates avoids
// timezone drift between writers.
const DateFormat = "2006-01-02"

// Template is a reusable shift definition (early, late, night...).
type Template struct {
	ID        int64     `json:"id"`
	TenantID  int64     `json:"tenantId"`
	Name      string    `json:"name"`
	StartTime string    `json:"startTime"` // HH:MM
	EndTime   string    `json:"endTime"`   // HH:MM
	Color     string    `json:"color,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Plan is a dated collection of assignments with a publish lifecycle.
// Employees only see published plans; drafts are admin-only.
type Plan struct {
	ID        int64     `json:"id"`
	TenantID  int64     `json:"tenantId"`
	Name      string    `json:"name"`
	Status    string    `json:"status"`
	StartsOn  string    `json:"startsOn"` // DateFormat
	EndsOn    string    `json:"endsOn"`   // DateFormat
	CreatedBy int64     `json:"createdBy"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Assignment puts one user on one template for one day of a plan.
type Assignment struct {
	ID         int64     `json:"id"`
	TenantID   int64     `json:"tenantId"`
	PlanID     int64     `json:"planId"`
	TemplateID int64     `json:"templateId"`
	UserID     int64     `json:"userId"`
	Day        string    `json:"day"` // DateFormat
	CreatedAt  time.Time `json:"createdAt"`
}

// SwapRequest asks a colleague to take over an assignment. Only the
// addressee may accept or decline; only the requester may cancel, and
// only while the request is still pending.
type SwapRequest struct {
	ID           int64     `json:"id"`
	TenantID     int64     `json:"tenantId"`
	AssignmentID int64     `json:"assignmentId"`
	RequesterID  int64     `json:"requesterId"`
	AddresseeID  int64     `json:"addresseeId"`
	Status       string    `json:"status"`
	Note         string    `json:"note,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// UpdateTemplateRequest carries optional template field updates.
type UpdateTemplateRequest struct {
	Name      *string `json:"name,omitempty"`
	StartTime *string `json:"startTime,omitempty"`
	EndTime   *string `json:"endTime,omitempty"`
	Color     *string `json:"color,omitempty"`
}

// UpdatePlanRequest carries optional plan field updates.
type UpdatePlanRequest struct {
	Name     *string `json:"name,omitempty"`
	StartsOn *string `json:"startsOn,omitempty"`
	EndsOn   *string `json:"endsOn,omitempty"`
}

// ListPlanFilter narrows plan listings.
type ListPlanFilter struct {
	Status string
}

// ListSwapFilter narrows swap request listings.
type ListSwapFilter struct {
	RequesterID *int64
	AddresseeID *int64
	Status      string
}

// RotationRequest describes a repeating template sequence to roll out
// over a date range of an existing plan.
type RotationRequest struct {
	PlanID      int64    `json:"planId"`
	TemplateIDs []int64  `json:"templateIds"`
	UserIDs     []int64  `json:"userIds"`
	From        string   `json:"from"` // DateFormat
	To          string   `json:"to"`   // DateFormat
	SkipDays    []string `json:"skipDays,omitempty"` // weekday names, e.g. "Saturday"
}

// Conflict reports a user/day the rotation skipped because an
// assignment already existed.
type Conflict struct {
	UserID int64  `json:"userId"`
	Day    string `json:"day"`
}

// RotationResult summarizes a rotation run.
type RotationResult struct {
	Created   int        `json:"created"`
	Conflicts []Conflict `json:"conflicts,omitempty"`
}
