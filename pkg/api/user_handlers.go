package api

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/crewdesk/crewdesk/pkg/audit"
	"github.com/crewdesk/crewdesk/pkg/auth"
	"github.com/crewdesk/crewdesk/pkg/authz"
	"github.com/crewdesk/crewdesk/pkg/httputil"
	"github.com/crewdesk/crewdesk/pkg/middleware"
	"github.com/crewdesk/crewdesk/pkg/users"
)

func (s *Server) registerUserRoutes(r *mux.Router) {
	r.HandleFunc("/users/me", s.handleGetMe).Methods(http.MethodGet)
	r.HandleFunc("/users/me", s.handleUpdateMe).Methods(http.MethodPatch)
	r.HandleFunc("/users", s.handleCreateUser).Methods(http.MethodPost)
	r.HandleFunc("/users", s.handleListUsers).Methods(http.MethodGet)
	r.HandleFunc("/users/{id:[0-9]+}", s.handleGetUser).Methods(http.MethodGet)
	r.HandleFunc("/users/{id:[0-9]+}", s.handleAdminUpdateUser).Methods(http.MethodPatch)
	r.HandleFunc("/users/{id:[0-9]+}", s.handleDeleteUser).Methods(http.MethodDelete)
	r.HandleFunc("/users/{id:[0-9]+}/hard", s.handleHardDeleteUser).Methods(http.MethodDelete)
}

func (s *Server) handleGetMe(w http.ResponseWriter, r *http.Request) {
	p := middleware.Principal(r.Context())
	u, err := s.deps.Users.GetByID(r.Context(), p.TenantID, p.UserID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	httputil.WriteSuccess(w, u)
}

func (s *Server) handleUpdateMe(w http.ResponseWriter, r *http.Request) {
	p := middleware.Principal(r.Context())
	if !s.authorize(w, r, authz.Request{Kind: authz.KindUser, Action: authz.ActionUpdate, OwnerID: p.UserID}, "me") {
		return
	}

	var req users.UpdateProfileRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if err := s.deps.Users.UpdateProfile(r.Context(), p.TenantID, p.UserID, &req); err != nil {
		s.writeError(w, err)
		return
	}
	u, err := s.deps.Users.GetByID(r.Context(), p.TenantID, p.UserID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	httputil.WriteSuccess(w, u)
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req users.CreateUserRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.Validate(w,
		httputil.Required("username", req.Username),
		httputil.Required("email", req.Email),
		httputil.Required("password", req.Password),
		httputil.Required("firstName", req.FirstName),
		httputil.Required("lastName", req.LastName),
	) {
		return
	}

	role := authz.RoleEmployee
	if req.Role != "" {
		role = authz.Role(req.Role)
		if !role.Valid() {
			httputil.WriteValidationErrors(w, httputil.FieldError{Path: "role", Message: "unknown role"})
			return
		}
	}
	// The admin-grant gate and the root-role ban both live in the policy,
	// keyed off GrantRole.
	if !s.authorize(w, r, authz.Request{Kind: authz.KindUser, Action: authz.ActionCreate, GrantRole: role}, "") {
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		s.writeError(w, err)
		return
	}

	p := middleware.Principal(r.Context())
	u := &users.User{
		TenantID:     effectiveTenantID(r, p),
		Username:     req.Username,
		Email:        req.Email,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Role:         role,
		Status:       users.StatusActive,
		DepartmentID: req.DepartmentID,
		TeamID:       req.TeamID,
		PasswordHash: hash,
	}
	if err := s.deps.Users.Create(r.Context(), u); err != nil {
		s.writeError(w, err)
		return
	}
	s.recordAudit(r, audit.EventTypeDataCreate, "create", authz.KindUser, strconv.FormatInt(u.ID, 10))
	httputil.WriteCreated(w, u)
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	if !s.authorize(w, r, authz.Request{Kind: authz.KindUser, Action: authz.ActionRead}, "") {
		return
	}

	var filter users.ListFilter
	if id, err := httputil.ParseQueryInt64(r, "department_id", 0); err == nil && id > 0 {
		filter.DepartmentID = &id
	}
	if id, err := httputil.ParseQueryInt64(r, "team_id", 0); err == nil && id > 0 {
		filter.TeamID = &id
	}
	filter.IncludeDeleted = httputil.ParseQueryString(r, "include_deleted", "") == "true"

	p := middleware.Principal(r.Context())
	list, err := s.deps.Users.List(r.Context(), effectiveTenantID(r, p), filter)
	if err != nil {
		s.writeError(w, err)
		return
	}
	httputil.WriteSuccess(w, list)
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	// OwnerID lets a user fetch their own record by id; everyone else
	// needs the admin role.
	if !s.authorize(w, r, authz.Request{Kind: authz.KindUser, Action: authz.ActionRead, OwnerID: id}, strconv.FormatInt(id, 10)) {
		return
	}

	p := middleware.Principal(r.Context())
	u, err := s.deps.Users.GetByID(r.Context(), effectiveTenantID(r, p), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	httputil.WriteSuccess(w, u)
}

func (s *Server) handleAdminUpdateUser(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	var req users.AdminUpdateRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	var grant authz.Role
	if req.Role != nil {
		grant = authz.Role(*req.Role)
		if !grant.Valid() {
			httputil.WriteValidationErrors(w, httputil.FieldError{Path: "role", Message: "unknown role"})
			return
		}
	}
	if req.Status != nil && *req.Status != users.StatusActive && *req.Status != users.StatusDisabled {
		httputil.WriteValidationErrors(w, httputil.FieldError{Path: "status", Message: "unknown status"})
		return
	}
	// No OwnerID here: profile self-service goes through /users/me, the
	// admin fields stay admin-only even for one's own record.
	if !s.authorize(w, r, authz.Request{
		Kind:         authz.KindUser,
		Action:       authz.ActionUpdate,
		TargetUserID: id,
		GrantRole:    grant,
	}, strconv.FormatInt(id, 10)) {
		return
	}

	p := middleware.Principal(r.Context())
	tenantID := effectiveTenantID(r, p)
	if err := s.deps.Users.AdminUpdate(r.Context(), tenantID, id, &req); err != nil {
		s.writeError(w, err)
		return
	}
	if req.Role != nil {
		s.recordAudit(r, audit.EventTypeRoleChange, "role_change", authz.KindUser, strconv.FormatInt(id, 10))
	} else {
		s.recordAudit(r, audit.EventTypeDataUpdate, "update", authz.KindUser, strconv.FormatInt(id, 10))
	}
	u, err := s.deps.Users.GetByID(r.Context(), tenantID, id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	httputil.WriteSuccess(w, u)
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	if !s.authorize(w, r, authz.Request{Kind: authz.KindUser, Action: authz.ActionDelete, TargetUserID: id}, strconv.FormatInt(id, 10)) {
		return
	}

	p := middleware.Principal(r.Context())
	if err := s.deps.Users.SoftDelete(r.Context(), effectiveTenantID(r, p), id); err != nil {
		s.writeError(w, err)
		return
	}
	s.recordAudit(r, audit.EventTypeAdminUserDelete, "soft_delete", authz.KindUser, strconv.FormatInt(id, 10))
	httputil.WriteNoContent(w)
}

func (s *Server) handleHardDeleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	if !s.authorize(w, r, authz.Request{Kind: authz.KindUser, Action: authz.ActionHardDelete, TargetUserID: id}, strconv.FormatInt(id, 10)) {
		return
	}

	p := middleware.Principal(r.Context())
	if err := s.deps.Users.HardDelete(r.Context(), effectiveTenantID(r, p), id); err != nil {
		s.writeError(w, err)
		return
	}
	s.recordAudit(r, audit.EventTypeAdminUserDelete, "hard_delete", authz.KindUser, strconv.FormatInt(id, 10))
	httputil.WriteNoContent(w)
}
