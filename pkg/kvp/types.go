package kvp

import (
	"time"

	"github.com/crewdesk/crewdesk/pkg/authz"
	"github.com/crewdesk/crewdesk/pkg/scope"
)

// Suggestion is a continuous-improvement proposal. Submitters may file
// anonymously; the submitter id stays on the row for point awarding
// but is masked in rendered views for everyone except the submitter
// and root.
type Suggestion struct {
	ID              int64       `json:"id"`
	TenantID        int64       `json:"tenantId"`
	SubmitterID     int64       `json:"submitterId,omitempty"`
	Title           string      `json:"title"`
	Description     string      `json:"description"`
	Category        string      `json:"category,omitempty"`
	Status          string      `json:"status"`
	VisibilityScope scope.Scope `json:"visibilityScope"`
	TargetID        *int64      `json:"targetId,omitempty"`
	IsAnonymous     bool        `json:"isAnonymous"`
	Points          int         `json:"points"`
	ReviewNote      string      `json:"reviewNote,omitempty"`
	CreatedAt       time.Time   `json:"createdAt"`
	UpdatedAt       time.Time   `json:"updatedAt"`
}

// Visibility assembles the scope metadata for this suggestion.
func (s *Suggestion) Visibility() scope.Visibility {
	return scope.Visibility{
		Scope:       s.VisibilityScope,
		TargetID:    s.TargetID,
		OwnerID:     s.SubmitterID,
		IsAnonymous: s.IsAnonymous,
	}
}

// View returns the suggestion as the principal is allowed to see it:
// anonymous submissions drop the submitter id unless the viewer is the
// submitter or root.
func (s *Suggestion) View(p *authz.Principal) *Suggestion {
	if scope.CanReveal(p, s.Visibility()) {
		return s
	}
	masked := *s
	masked.SubmitterID = 0
	return &masked
}

// CreateSuggestionRequest is the payload for filing a suggestion.
type CreateSuggestionRequest struct {
	Title           string `json:"title"`
	Description     string `json:"description"`
	Category        string `json:"category"`
	VisibilityScope string `json:"visibilityScope"`
	TargetID        *int64 `json:"targetId,omitempty"`
	IsAnonymous     bool   `json:"isAnonymous"`
}

// UpdateSuggestionRequest carries submitter edits, allowed only while
// the suggestion is still in submitted state.
type UpdateSuggestionRequest struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Category    *string `json:"category,omitempty"`
}

// TransitionRequest moves a suggestion through the review flow. Points
// are only meaningful for the implemented transition.
type TransitionRequest struct {
	Status     string `json:"status"`
	Points     int    `json:"points"`
	ReviewNote string `json:"reviewNote"`
}
