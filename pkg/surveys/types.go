package surveys

import (
	"time"

	"github.com/crewdesk/crewdesk/pkg/authz"
	"github.com/crewdesk/crewdesk/pkg/scope"
)

// Question is one survey prompt. Questions are stored as a JSON
// document on the survey row; they are written once at creation and
// never edited afterwards, so responses always line up.
type Question struct {
	ID   int    `json:"id"`
	Text string `json:"text"`
	Type string `json:"type"` // free_text, rating, yes_no
}

// Survey is a questionnaire sent to a slice of the tenant. Anonymous
// surveys keep the respondent id on the response row but mask it in
// results for everyone except the respondent and root.
type Survey struct {
	ID              int64       `json:"id"`
	TenantID        int64       `json:"tenantId"`
	CreatorID       int64       `json:"creatorId"`
	Title           string      `json:"title"`
	Description     string      `json:"description"`
	Status          string      `json:"status"`
	IsAnonymous     bool        `json:"isAnonymous"`
	VisibilityScope scope.Scope `json:"visibilityScope"`
	TargetID        *int64      `json:"targetId,omitempty"`
	Questions       []Question  `json:"questions"`
	ClosesAt        *time.Time  `json:"closesAt,omitempty"`
	CreatedAt       time.Time   `json:"createdAt"`
	UpdatedAt       time.Time   `json:"updatedAt"`
}

// Visibility assembles the scope metadata for this survey.
func (s *Survey) Visibility() scope.Visibility {
	return scope.Visibility{
		Scope:    s.VisibilityScope,
		TargetID: s.TargetID,
		OwnerID:  s.CreatorID,
	}
}

// Open reports whether the survey still accepts responses.
func (s *Survey) Open() bool {
	return s.Status == authz.SurveyStatusOpen
}

// Answer is one response value keyed by question id.
type Answer struct {
	QuestionID int    `json:"questionId"`
	Value      string `json:"value"`
}

// Response is one user's submission. A user responds at most once per
// survey.
type Response struct {
	ID           int64     `json:"id"`
	TenantID     int64     `json:"tenantId"`
	SurveyID     int64     `json:"surveyId"`
	RespondentID int64     `json:"respondentId,omitempty"`
	Answers      []Answer  `json:"answers"`
	CreatedAt    time.Time `json:"createdAt"`
}

// View returns the response as the principal may see it: respondent
// identity on an anonymous survey is dropped unless the viewer is the
// respondent or root.
func (r *Response) View(p *authz.Principal, anonymous bool) *Response {
	v := scope.Visibility{OwnerID: r.RespondentID, IsAnonymous: anonymous}
	if scope.CanReveal(p, v) {
		return r
	}
	masked := *r
	masked.RespondentID = 0
	return &masked
}

// CreateSurveyRequest is the admin payload for a new survey.
type CreateSurveyRequest struct {
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	IsAnonymous     bool       `json:"isAnonymous"`
	VisibilityScope string     `json:"visibilityScope"`
	TargetID        *int64     `json:"targetId,omitempty"`
	Questions       []Question `json:"questions"`
	ClosesAt        *time.Time `json:"closesAt,omitempty"`
}

// RespondRequest is a user's answer set.
type RespondRequest struct {
	Answers []Answer `json:"answers"`
}
