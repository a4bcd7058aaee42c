package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/crewdesk/crewdesk/pkg/audit"
	"github.com/crewdesk/crewdesk/pkg/authz"
	"github.com/crewdesk/crewdesk/pkg/calendar"
	"github.com/crewdesk/crewdesk/pkg/httputil"
	"github.com/crewdesk/crewdesk/pkg/middleware"
)

func (s *Server) registerCalendarRoutes(r *mux.Router) {
	r.HandleFunc("/events", s.handleCreateEvent).Methods(http.MethodPost)
	r.HandleFunc("/events", s.handleListEvents).Methods(http.MethodGet)
	r.HandleFunc("/events/{id:[0-9]+}", s.handleGetEvent).Methods(http.MethodGet)
	r.HandleFunc("/events/{id:[0-9]+}", s.handleUpdateEvent).Methods(http.MethodPatch)
	r.HandleFunc("/events/{id:[0-9]+}", s.handleDeleteEvent).Methods(http.MethodDelete)
}

func (s *Server) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	if !s.authorize(w, r, authz.Request{Kind: authz.KindCalendar, Action: authz.ActionCreate}, "") {
		return
	}

	var req calendar.CreateEventRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.Validate(w, httputil.Required("title", req.Title)) {
		return
	}
	if req.StartsAt.IsZero() || req.EndsAt.IsZero() {
		httputil.WriteValidationErrors(w, httputil.FieldError{Path: "startsAt", Message: "start and end times are required"})
		return
	}
	if !req.EndsAt.After(req.StartsAt) {
		httputil.WriteValidationErrors(w, httputil.FieldError{Path: "endsAt", Message: "must be after startsAt"})
		return
	}
	sc, ok := parseScope(w, req.VisibilityScope, req.TargetID)
	if !ok {
		return
	}

	p := middleware.Principal(r.Context())
	e := &calendar.Event{
		TenantID:        p.TenantID,
		CreatorID:       p.UserID,
		Title:           req.Title,
		Description:     req.Description,
		Location:        req.Location,
		StartsAt:        req.StartsAt.UTC(),
		EndsAt:          req.EndsAt.UTC(),
		VisibilityScope: sc,
		TargetID:        req.TargetID,
	}
	if err := s.deps.Calendar.Create(r.Context(), e); err != nil {
		s.writeError(w, err)
		return
	}
	s.recordAudit(r, audit.EventTypeDataCreate, "create", authz.KindCalendar, strconv.FormatInt(e.ID, 10))
	httputil.WriteCreated(w, e)
}

func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	var filter calendar.ListFilter
	if raw := httputil.ParseQueryString(r, "from", ""); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			httputil.WriteValidationErrors(w, httputil.FieldError{Path: "from", Message: "must be an RFC 3339 timestamp"})
			return
		}
		filter.From = &t
	}
	if raw := httputil.ParseQueryString(r, "to", ""); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			httputil.WriteValidationErrors(w, httputil.FieldError{Path: "to", Message: "must be an RFC 3339 timestamp"})
			return
		}
		filter.To = &t
	}

	p := middleware.Principal(r.Context())
	list, err := s.deps.Calendar.List(r.Context(), p, filter)
	if err != nil {
		s.writeError(w, err)
		return
	}
	httputil.WriteSuccess(w, list)
}

func (s *Server) handleGetEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	p := middleware.Principal(r.Context())
	e, err := s.deps.Calendar.GetVisible(r.Context(), p, id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	httputil.WriteSuccess(w, e)
}

func (s *Server) handleUpdateEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	p := middleware.Principal(r.Context())
	e, err := s.deps.Calendar.GetVisible(r.Context(), p, id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if !s.authorize(w, r, authz.Request{
		Kind:    authz.KindCalendar,
		Action:  authz.ActionUpdate,
		OwnerID: e.CreatorID,
	}, strconv.FormatInt(id, 10)) {
		return
	}

	var req calendar.UpdateEventRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	// Validate the resulting range, mixing stored values with updates.
	starts, ends := e.StartsAt, e.EndsAt
	if req.StartsAt != nil {
		starts = *req.StartsAt
	}
	if req.EndsAt != nil {
		ends = *req.EndsAt
	}
	if !ends.After(starts) {
		httputil.WriteValidationErrors(w, httputil.FieldError{Path: "endsAt", Message: "must be after startsAt"})
		return
	}

	if err := s.deps.Calendar.Update(r.Context(), p.TenantID, id, &req); err != nil {
		s.writeError(w, err)
		return
	}
	s.recordAudit(r, audit.EventTypeDataUpdate, "update", authz.KindCalendar, strconv.FormatInt(id, 10))
	e, err = s.deps.Calendar.Get(r.Context(), p.TenantID, id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	httputil.WriteSuccess(w, e)
}

func (s *Server) handleDeleteEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	p := middleware.Principal(r.Context())
	e, err := s.deps.Calendar.GetVisible(r.Context(), p, id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if !s.authorize(w, r, authz.Request{
		Kind:    authz.KindCalendar,
		Action:  authz.ActionDelete,
		OwnerID: e.CreatorID,
	}, strconv.FormatInt(id, 10)) {
		return
	}

	if err := s.deps.Calendar.Delete(r.Context(), p.TenantID, id); err != nil {
		s.writeError(w, err)
		return
	}
	s.recordAudit(r, audit.EventTypeDataDelete, "delete", authz.KindCalendar, strconv.FormatInt(id, 10))
	httputil.WriteNoContent(w)
}
