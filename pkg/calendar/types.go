package calendar

import (
	"time"

	"github.com/crewdesk/crewdesk/pkg/scope"
)

// Event is a calendar entry with a visibility scope. Who may see it is
// decided by scope; who may change it is the creator or an admin.
type Event struct {
	ID              int64       `json:"id"`
	TenantID        int64       `json:"tenantId"`
	CreatorID       int64       `json:"creatorId"`
	Title           string      `json:"title"`
	Description     string      `json:"description"`
	Location        string      `json:"location,omitempty"`
	StartsAt        time.Time   `json:"startsAt"`
	EndsAt          time.Time   `json:"endsAt"`
	VisibilityScope scope.Scope `json:"visibilityScope"`
	TargetID        *int64      `json:"targetId,omitempty"`
	CreatedAt       time.Time   `json:"createdAt"`
	UpdatedAt       time.Time   `json:"updatedAt"`
}

// Visibility assembles the scope metadata for this event.
func (e *Event) Visibility() scope.Visibility {
	return scope.Visibility{
		Scope:    e.VisibilityScope,
		TargetID: e.TargetID,
		OwnerID:  e.CreatorID,
	}
}

// CreateEventRequest is the payload for a new event.
type CreateEventRequest struct {
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	Location        string    `json:"location"`
	StartsAt        time.Time `json:"startsAt"`
	EndsAt          time.Time `json:"endsAt"`
	VisibilityScope string    `json:"visibilityScope"`
	TargetID        *int64    `json:"targetId,omitempty"`
}

// UpdateEventRequest carries optional event updates.
type UpdateEventRequest struct {
	Title       *string    `json:"title,omitempty"`
	Description *string    `json:"description,omitempty"`
	Location    *string    `json:"location,omitempty"`
	StartsAt    *time.Time `json:"startsAt,omitempty"`
	EndsAt      *time.Time `json:"endsAt,omitempty"`
}

// ListFilter narrows event listings to a date range.
type ListFilter struct {
	From *time.Time
	To   *time.Time
}
