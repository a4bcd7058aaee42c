package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/crewdesk/crewdesk/pkg/audit"
	"github.com/crewdesk/crewdesk/pkg/authz"
	"github.com/crewdesk/crewdesk/pkg/httputil"
	"github.com/crewdesk/crewdesk/pkg/tenants"
)

// Tenant administration is root-only end to end.
func (s *Server) registerTenantRoutes(r *mux.Router) {
	r.HandleFunc("/tenants", s.handleCreateTenant).Methods(http.MethodPost)
	r.HandleFunc("/tenants", s.handleListTenants).Methods(http.MethodGet)
	r.HandleFunc("/tenants/{id:[0-9]+}", s.handleGetTenant).Methods(http.MethodGet)
	r.HandleFunc("/tenants/{id:[0-9]+}", s.handleUpdateTenant).Methods(http.MethodPatch)
	r.HandleFunc("/tenants/{id:[0-9]+}/transition", s.handleTransitionTenant).Methods(http.MethodPost)
}

type createTenantRequest struct {
	Name      string `json:"name"`
	Subdomain string `json:"subdomain"`
}

func (s *Server) handleCreateTenant(w http.ResponseWriter, r *http.Request) {
	if !s.authorize(w, r, authz.Request{Kind: authz.KindTenant, Action: authz.ActionCreate}, "") {
		return
	}

	var req createTenantRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.Validate(w,
		httputil.Required("name", req.Name),
		httputil.Required("subdomain", req.Subdomain),
	) {
		return
	}
	if !tenants.ValidSubdomain(req.Subdomain) {
		httputil.WriteValidationErrors(w, httputil.FieldError{
			Path: "subdomain", Message: "must be lowercase letters, digits and hyphens",
		})
		return
	}

	ends := time.Now().UTC().AddDate(0, 0, s.cfg.Tenants.TrialDays)
	tenant := &tenants.Tenant{Name: req.Name, Subdomain: req.Subdomain, TrialEndsAt: &ends}
	if err := s.deps.Tenants.Create(r.Context(), tenant); err != nil {
		s.writeError(w, err)
		return
	}
	httputil.WriteCreated(w, tenant)
}

func (s *Server) handleListTenants(w http.ResponseWriter, r *http.Request) {
	if !s.authorize(w, r, authz.Request{Kind: authz.KindTenant, Action: authz.ActionRead}, "") {
		return
	}
	list, err := s.deps.Tenants.List(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	httputil.WriteSuccess(w, list)
}

func (s *Server) handleGetTenant(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	if !s.authorize(w, r, authz.Request{Kind: authz.KindTenant, Action: authz.ActionRead}, strconv.FormatInt(id, 10)) {
		return
	}
	tenant, err := s.deps.Tenants.GetByID(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	httputil.WriteSuccess(w, tenant)
}

func (s *Server) handleUpdateTenant(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	if !s.authorize(w, r, authz.Request{Kind: authz.KindTenant, Action: authz.ActionUpdate}, strconv.FormatInt(id, 10)) {
		return
	}

	var req tenants.UpdateTenantRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if err := s.deps.Tenants.Update(r.Context(), id, &req); err != nil {
		s.writeError(w, err)
		return
	}
	tenant, err := s.deps.Tenants.GetByID(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	httputil.WriteSuccess(w, tenant)
}

type transitionTenantRequest struct {
	Status string `json:"status"`
}

func (s *Server) handleTransitionTenant(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	if !s.authorize(w, r, authz.Request{Kind: authz.KindTenant, Action: authz.ActionTransition}, strconv.FormatInt(id, 10)) {
		return
	}

	var req transitionTenantRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	tenant, err := s.deps.Tenants.Transition(r.Context(), id, req.Status)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.recordAudit(r, audit.EventTypeAdminTenantChange, req.Status, authz.KindTenant, strconv.FormatInt(id, 10))
	httputil.WriteSuccess(w, tenant)
}
