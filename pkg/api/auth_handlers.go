package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/crewdesk/crewdesk/pkg/auth"
	"github.com/crewdesk/crewdesk/pkg/authz"
	"github.com/crewdesk/crewdesk/pkg/httputil"
	"github.com/crewdesk/crewdesk/pkg/middleware"
)

func (s *Server) registerAuthRoutes(r *mux.Router) {
	r.HandleFunc("/auth/logout", s.handleLogout).Methods(http.MethodPost)
	r.HandleFunc("/auth/password", s.handleChangePassword).Methods(http.MethodPost)
	r.HandleFunc("/auth/sessions", s.handleListSessions).Methods(http.MethodGet)
	r.HandleFunc("/auth/sessions/{id}", s.handleRevokeSession).Methods(http.MethodDelete)
}

type loginRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

type loginResponse struct {
	*auth.TokenPair
	UserID   int64      `json:"userId"`
	TenantID int64      `json:"tenantId"`
	Role     authz.Role `json:"role"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	tenant := middleware.Tenant(r.Context())
	if tenant == nil {
		httputil.WriteNotFound(w)
		return
	}

	var req loginRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.Validate(w,
		httputil.Required("identifier", req.Identifier),
		httputil.Required("password", req.Password),
	) {
		return
	}

	fingerprint := r.Header.Get("User-Agent")
	pair, p, err := s.deps.Auth.Authenticate(r.Context(), tenant.ID, req.Identifier, req.Password, fingerprint)
	if err != nil {
		s.writeError(w, err)
		return
	}

	httputil.WriteSuccess(w, loginResponse{
		TokenPair: pair,
		UserID:    p.UserID,
		TenantID:  p.TenantID,
		Role:      p.Role,
	})
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.Validate(w, httputil.Required("refreshToken", req.RefreshToken)) {
		return
	}

	access, err := s.deps.Auth.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		s.writeError(w, err)
		return
	}
	httputil.WriteSuccess(w, map[string]string{"accessToken": access})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	p := middleware.Principal(r.Context())
	if err := s.deps.Auth.Invalidate(r.Context(), p.SessionID); err != nil {
		s.writeError(w, err)
		return
	}
	httputil.WriteNoContent(w)
}

type changePasswordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	var req changePasswordRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.Validate(w,
		httputil.Required("oldPassword", req.OldPassword),
		httputil.Required("newPassword", req.NewPassword),
	) {
		return
	}

	p := middleware.Principal(r.Context())
	if err := s.deps.Auth.ChangePassword(r.Context(), p, req.OldPassword, req.NewPassword); err != nil {
		s.writeError(w, err)
		return
	}
	httputil.WriteNoContent(w)
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	p := middleware.Principal(r.Context())
	sessions, err := s.deps.Auth.ListSessions(r.Context(), p)
	if err != nil {
		s.writeError(w, err)
		return
	}
	httputil.WriteSuccess(w, sessions)
}

func (s *Server) handleRevokeSession(w http.ResponseWriter, r *http.Request) {
	p := middleware.Principal(r.Context())
	sessionID := mux.Vars(r)["id"]
	if err := s.deps.Auth.RevokeSession(r.Context(), p, sessionID); err != nil {
		s.writeError(w, err)
		return
	}
	httputil.WriteNoContent(w)
}
