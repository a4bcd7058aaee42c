package api

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/crewdesk/crewdesk/pkg/audit"
	"github.com/crewdesk/crewdesk/pkg/authz"
	"github.com/crewdesk/crewdesk/pkg/departments"
	"github.com/crewdesk/crewdesk/pkg/httputil"
	"github.com/crewdesk/crewdesk/pkg/middleware"
)

// Org structure. Reads are open to every member of the tenant, writes
// are admin-only through the policy table.
func (s *Server) registerDepartmentRoutes(r *mux.Router) {
	r.HandleFunc("/departments", s.handleCreateDepartment).Methods(http.MethodPost)
	r.HandleFunc("/departments", s.handleListDepartments).Methods(http.MethodGet)
	r.HandleFunc("/departments/{id:[0-9]+}", s.handleGetDepartment).Methods(http.MethodGet)
	r.HandleFunc("/departments/{id:[0-9]+}", s.handleUpdateDepartment).Methods(http.MethodPatch)
	r.HandleFunc("/departments/{id:[0-9]+}", s.handleDeleteDepartment).Methods(http.MethodDelete)

	r.HandleFunc("/teams", s.handleCreateTeam).Methods(http.MethodPost)
	r.HandleFunc("/teams", s.handleListTeams).Methods(http.MethodGet)
	r.HandleFunc("/teams/{id:[0-9]+}", s.handleGetTeam).Methods(http.MethodGet)
	r.HandleFunc("/teams/{id:[0-9]+}", s.handleUpdateTeam).Methods(http.MethodPatch)
	r.HandleFunc("/teams/{id:[0-9]+}", s.handleDeleteTeam).Methods(http.MethodDelete)
}

func (s *Server) handleCreateDepartment(w http.ResponseWriter, r *http.Request) {
	if !s.authorize(w, r, authz.Request{Kind: authz.KindDepartment, Action: authz.ActionCreate}, "") {
		return
	}

	var req departments.CreateDepartmentRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.Validate(w, httputil.Required("name", req.Name)) {
		return
	}

	p := middleware.Principal(r.Context())
	d := &departments.Department{
		TenantID:    effectiveTenantID(r, p),
		Name:        req.Name,
		Description: req.Description,
	}
	if err := s.deps.Departments.CreateDepartment(r.Context(), d); err != nil {
		s.writeError(w, err)
		return
	}
	s.recordAudit(r, audit.EventTypeDataCreate, "create", authz.KindDepartment, strconv.FormatInt(d.ID, 10))
	httputil.WriteCreated(w, d)
}

func (s *Server) handleListDepartments(w http.ResponseWriter, r *http.Request) {
	p := middleware.Principal(r.Context())
	list, err := s.deps.Departments.ListDepartments(r.Context(), effectiveTenantID(r, p))
	if err != nil {
		s.writeError(w, err)
		return
	}
	httputil.WriteSuccess(w, list)
}

func (s *Server) handleGetDepartment(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	p := middleware.Principal(r.Context())
	d, err := s.deps.Departments.GetDepartment(r.Context(), effectiveTenantID(r, p), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	httputil.WriteSuccess(w, d)
}

func (s *Server) handleUpdateDepartment(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	if !s.authorize(w, r, authz.Request{Kind: authz.KindDepartment, Action: authz.ActionUpdate}, strconv.FormatInt(id, 10)) {
		return
	}

	var req departments.UpdateDepartmentRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	p := middleware.Principal(r.Context())
	tenantID := effectiveTenantID(r, p)
	if err := s.deps.Departments.UpdateDepartment(r.Context(), tenantID, id, &req); err != nil {
		s.writeError(w, err)
		return
	}
	s.recordAudit(r, audit.EventTypeDataUpdate, "update", authz.KindDepartment, strconv.FormatInt(id, 10))
	d, err := s.deps.Departments.GetDepartment(r.Context(), tenantID, id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	httputil.WriteSuccess(w, d)
}

func (s *Server) handleDeleteDepartment(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	if !s.authorize(w, r, authz.Request{Kind: authz.KindDepartment, Action: authz.ActionDelete}, strconv.FormatInt(id, 10)) {
		return
	}

	p := middleware.Principal(r.Context())
	if err := s.deps.Departments.DeleteDepartment(r.Context(), effectiveTenantID(r, p), id); err != nil {
		s.writeError(w, err)
		return
	}
	s.recordAudit(r, audit.EventTypeDataDelete, "delete", authz.KindDepartment, strconv.FormatInt(id, 10))
	httputil.WriteNoContent(w)
}

func (s *Server) handleCreateTeam(w http.ResponseWriter, r *http.Request) {
	if !s.authorize(w, r, authz.Request{Kind: authz.KindTeam, Action: authz.ActionCreate}, "") {
		return
	}

	var req departments.CreateTeamRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.Validate(w,
		httputil.Required("name", req.Name),
		httputil.Positive("departmentId", req.DepartmentID),
	) {
		return
	}

	p := middleware.Principal(r.Context())
	tenantID := effectiveTenantID(r, p)
	// The parent department must exist in the caller's tenant.
	if _, err := s.deps.Departments.GetDepartment(r.Context(), tenantID, req.DepartmentID); err != nil {
		s.writeError(w, err)
		return
	}
	t := &departments.Team{
		TenantID:     tenantID,
		DepartmentID: req.DepartmentID,
		Name:         req.Name,
		Description:  req.Description,
	}
	if err := s.deps.Departments.CreateTeam(r.Context(), t); err != nil {
		s.writeError(w, err)
		return
	}
	s.recordAudit(r, audit.EventTypeDataCreate, "create", authz.KindTeam, strconv.FormatInt(t.ID, 10))
	httputil.WriteCreated(w, t)
}

func (s *Server) handleListTeams(w http.ResponseWriter, r *http.Request) {
	var departmentID *int64
	if id, err := httputil.ParseQueryInt64(r, "department_id", 0); err == nil && id > 0 {
		departmentID = &id
	}
	p := middleware.Principal(r.Context())
	list, err := s.deps.Departments.ListTeams(r.Context(), effectiveTenantID(r, p), departmentID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	httputil.WriteSuccess(w, list)
}

func (s *Server) handleGetTeam(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	p := middleware.Principal(r.Context())
	t, err := s.deps.Departments.GetTeam(r.Context(), effectiveTenantID(r, p), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	httputil.WriteSuccess(w, t)
}

func (s *Server) handleUpdateTeam(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	if !s.authorize(w, r, authz.Request{Kind: authz.KindTeam, Action: authz.ActionUpdate}, strconv.FormatInt(id, 10)) {
		return
	}

	var req departments.UpdateTeamRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	p := middleware.Principal(r.Context())
	tenantID := effectiveTenantID(r, p)
	if err := s.deps.Departments.UpdateTeam(r.Context(), tenantID, id, &req); err != nil {
		s.writeError(w, err)
		return
	}
	s.recordAudit(r, audit.EventTypeDataUpdate, "update", authz.KindTeam, strconv.FormatInt(id, 10))
	t, err := s.deps.Departments.GetTeam(r.Context(), tenantID, id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	httputil.WriteSuccess(w, t)
}

func (s *Server) handleDeleteTeam(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	if !s.authorize(w, r, authz.Request{Kind: authz.KindTeam, Action: authz.ActionDelete}, strconv.FormatInt(id, 10)) {
		return
	}

	p := middleware.Principal(r.Context())
	if err := s.deps.Departments.DeleteTeam(r.Context(), effectiveTenantID(r, p), id); err != nil {
		s.writeError(w, err)
		return
	}
	s.recordAudit(r, audit.EventTypeDataDelete, "delete", authz.KindTeam, strconv.FormatInt(id, 10))
	httputil.WriteNoContent(w)
}
