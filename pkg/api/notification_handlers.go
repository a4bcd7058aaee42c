package api

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/crewdesk/crewdesk/pkg/audit"
	"github.com/crewdesk/crewdesk/pkg/authz"
	"github.com/crewdesk/crewdesk/pkg/httputil"
	"github.com/crewdesk/crewdesk/pkg/middleware"
	"github.com/crewdesk/crewdesk/pkg/notifications"
)

func (s *Server) registerNotificationRoutes(r *mux.Router) {
	r.HandleFunc("/notifications", s.handleBroadcast).Methods(http.MethodPost)
	r.HandleFunc("/notifications", s.handleListNotifications).Methods(http.MethodGet)
	r.HandleFunc("/notifications/{id:[0-9]+}/read", s.handleMarkRead).Methods(http.MethodPost)
	r.HandleFunc("/notifications/{id:[0-9]+}", s.handleDeleteNotification).Methods(http.MethodDelete)
	r.HandleFunc("/notifications/preferences", s.handleGetPreferences).Methods(http.MethodGet)
	r.HandleFunc("/notifications/preferences", s.handleUpdatePreferences).Methods(http.MethodPatch)
}

func (s *Server) handleBroadcast(w http.ResponseWriter, r *http.Request) {
	if !s.authorize(w, r, authz.Request{Kind: authz.KindNotification, Action: authz.ActionCreate}, "") {
		return
	}

	var req notifications.BroadcastRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.Validate(w,
		httputil.Required("title", req.Title),
		httputil.Required("body", req.Body),
	) {
		return
	}
	sc, ok := parseScope(w, req.VisibilityScope, req.TargetID)
	if !ok {
		return
	}

	p := middleware.Principal(r.Context())
	n := &notifications.Notification{
		TenantID:        p.TenantID,
		SenderID:        p.UserID,
		Title:           req.Title,
		Body:            req.Body,
		VisibilityScope: sc,
		TargetID:        req.TargetID,
	}
	if err := s.deps.Notifications.Broadcast(r.Context(), n); err != nil {
		s.writeError(w, err)
		return
	}
	s.recordAudit(r, audit.EventTypeDataCreate, "broadcast", authz.KindNotification, strconv.FormatInt(n.ID, 10))
	httputil.WriteCreated(w, n)
}

func (s *Server) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	p := middleware.Principal(r.Context())
	unreadOnly := httputil.ParseQueryString(r, "unread", "") == "true"
	list, err := s.deps.Notifications.List(r.Context(), p, unreadOnly)
	if err != nil {
		s.writeError(w, err)
		return
	}
	httputil.WriteSuccess(w, list)
}

func (s *Server) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	p := middleware.Principal(r.Context())
	if err := s.deps.Notifications.MarkRead(r.Context(), p, id); err != nil {
		s.writeError(w, err)
		return
	}
	httputil.WriteNoContent(w)
}

func (s *Server) handleDeleteNotification(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	if !s.authorize(w, r, authz.Request{Kind: authz.KindNotification, Action: authz.ActionDelete}, strconv.FormatInt(id, 10)) {
		return
	}

	p := middleware.Principal(r.Context())
	if err := s.deps.Notifications.Delete(r.Context(), p.TenantID, id); err != nil {
		s.writeError(w, err)
		return
	}
	s.recordAudit(r, audit.EventTypeDataDelete, "delete", authz.KindNotification, strconv.FormatInt(id, 10))
	httputil.WriteNoContent(w)
}

func (s *Server) handleGetPreferences(w http.ResponseWriter, r *http.Request) {
	p := middleware.Principal(r.Context())
	prefs, err := s.deps.Notifications.GetPreferences(r.Context(), p.TenantID, p.UserID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	httputil.WriteSuccess(w, prefs)
}

func (s *Server) handleUpdatePreferences(w http.ResponseWriter, r *http.Request) {
	p := middleware.Principal(r.Context())
	if !s.authorize(w, r, authz.Request{Kind: authz.KindPreference, Action: authz.ActionUpdate, OwnerID: p.UserID}, "") {
		return
	}

	var req notifications.UpdatePreferencesRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	prefs, err := s.deps.Notifications.UpdatePreferences(r.Context(), p.TenantID, p.UserID, &req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	httputil.WriteSuccess(w, prefs)
}
