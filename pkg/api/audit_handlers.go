package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/crewdesk/crewdesk/pkg/audit"
	"github.com/crewdesk/crewdesk/pkg/authz"
	"github.com/crewdesk/crewdesk/pkg/httputil"
	"github.com/crewdesk/crewdesk/pkg/middleware"
)

func (s *Server) registerAuditRoutes(r *mux.Router) {
	r.HandleFunc("/audit-events", s.handleListAuditEvents).Methods(http.MethodGet)
}

func (s *Server) handleListAuditEvents(w http.ResponseWriter, r *http.Request) {
	if !s.authorize(w, r, authz.Request{Kind: authz.KindAuditLog, Action: authz.ActionRead}, "") {
		return
	}

	p := middleware.Principal(r.Context())
	tenantID := effectiveTenantID(r, p)
	filter := audit.ListFilter{TenantID: &tenantID}

	if id, err := httputil.ParseQueryInt64(r, "principal_id", 0); err == nil && id > 0 {
		filter.PrincipalID = &id
	}
	filter.Type = audit.EventType(httputil.ParseQueryString(r, "type", ""))
	if limit, err := httputil.ParseQueryInt64(r, "limit", 100); err == nil && limit > 0 && limit <= 1000 {
		filter.Limit = int(limit)
	} else {
		filter.Limit = 100
	}

	list, err := s.deps.AuditLog.List(r.Context(), filter)
	if err != nil {
		s.writeError(w, err)
		return
	}
	httputil.WriteSuccess(w, list)
}
