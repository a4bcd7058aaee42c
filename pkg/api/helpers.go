package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/crewdesk/crewdesk/pkg/audit"
	"github.com/crewdesk/crewdesk/pkg/authz"
	"github.com/crewdesk/crewdesk/pkg/contextkeys"
	"github.com/crewdesk/crewdesk/pkg/departments"
	"github.com/crewdesk/crewdesk/pkg/httputil"
	"github.com/crewdesk/crewdesk/pkg/middleware"
	"github.com/crewdesk/crewdesk/pkg/scope"
	"github.com/crewdesk/crewdesk/pkg/surveys"
)

// authorize runs the policy check and handles the denial path: the
// denial is audited and the reason written to the caller. Returns true
// when the request may proceed.
func (s *Server) authorize(w http.ResponseWriter, r *http.Request, req authz.Request, resourceID string) bool {
	p := middleware.Principal(r.Context())
	if err := authz.Authorize(p, req); err != nil {
		audit.Denial(r.Context(), s.deps.Audit, p, req, resourceID, err.Reason)
		httputil.WritePolicyError(w, err)
		return false
	}
	return true
}

// recordAudit notes a successful mutation on the audit trail.
func (s *Server) recordAudit(r *http.Request, typ audit.EventType, action string, kind authz.ResourceKind, resourceID string) {
	p := middleware.Principal(r.Context())
	e := &audit.Event{
		Type:         typ,
		Action:       action,
		ResourceKind: string(kind),
		ResourceID:   resourceID,
		RequestID:    contextkeys.GetRequestID(r.Context()),
		CreatedAt:    time.Now().UTC(),
	}
	if p != nil {
		e.PrincipalID = &p.UserID
		e.TenantID = &p.TenantID
	}
	s.deps.Audit.Log(r.Context(), e)
}

// writeError maps store and service errors onto the wire. Policy errors
// carry their own status; domain conflicts surface as field errors;
// anything else is a logged 500.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	var perr *authz.Error
	if errors.As(err, &perr) {
		httputil.WritePolicyError(w, perr)
		return
	}
	switch {
	case errors.Is(err, departments.ErrDepartmentHasTeams):
		httputil.WriteValidationErrors(w, httputil.FieldError{Path: "id", Message: "department still has active teams"})
	case errors.Is(err, surveys.ErrAlreadyResponded):
		httputil.WriteValidationErrors(w, httputil.FieldError{Path: "surveyId", Message: "you have already responded to this survey"})
	case errors.Is(err, surveys.ErrSurveyClosed):
		httputil.WriteValidationErrors(w, httputil.FieldError{Path: "surveyId", Message: "survey is closed"})
	default:
		s.log.WithError(err).Error("request failed")
		httputil.WriteInternalError(w)
	}
}

// parseScope validates a visibility scope from a request body,
// defaulting to company. Department and team scopes need a target.
func parseScope(w http.ResponseWriter, raw string, targetID *int64) (scope.Scope, bool) {
	if raw == "" {
		return scope.ScopeCompany, true
	}
	sc := scope.Scope(raw)
	if !sc.Valid() {
		httputil.WriteValidationErrors(w, httputil.FieldError{Path: "visibilityScope", Message: "unknown scope"})
		return "", false
	}
	if (sc == scope.ScopeDepartment || sc == scope.ScopeTeam) && targetID == nil {
		httputil.WriteValidationErrors(w, httputil.FieldError{Path: "targetId", Message: "is required for this scope"})
		return "", false
	}
	return sc, true
}

// effectiveTenantID resolves which tenant a listing should cover: the
// principal's own tenant, except for root who may select one with the
// tenant_id query parameter. Non-root filters are ignored outright so a
// crafted query cannot widen the view.
func effectiveTenantID(r *http.Request, p *authz.Principal) int64 {
	if p.IsRoot() {
		if id, err := httputil.ParseQueryInt64(r, "tenant_id", 0); err == nil && id > 0 {
			return id
		}
	}
	return p.TenantID
}
