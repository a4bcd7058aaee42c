package api

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/crewdesk/crewdesk/pkg/audit"
	"github.com/crewdesk/crewdesk/pkg/authz"
	"github.com/crewdesk/crewdesk/pkg/httputil"
	"github.com/crewdesk/crewdesk/pkg/kvp"
	"github.com/crewdesk/crewdesk/pkg/middleware"
)

func (s *Server) registerKVPRoutes(r *mux.Router) {
	r.HandleFunc("/suggestions", s.handleCreateSuggestion).Methods(http.MethodPost)
	r.HandleFunc("/suggestions", s.handleListSuggestions).Methods(http.MethodGet)
	r.HandleFunc("/suggestions/{id:[0-9]+}", s.handleGetSuggestion).Methods(http.MethodGet)
	r.HandleFunc("/suggestions/{id:[0-9]+}", s.handleUpdateSuggestion).Methods(http.MethodPatch)
	r.HandleFunc("/suggestions/{id:[0-9]+}", s.handleDeleteSuggestion).Methods(http.MethodDelete)
	r.HandleFunc("/suggestions/{id:[0-9]+}/transition", s.handleTransitionSuggestion).Methods(http.MethodPost)
}

func (s *Server) handleCreateSuggestion(w http.ResponseWriter, r *http.Request) {
	if !s.authorize(w, r, authz.Request{Kind: authz.KindKVP, Action: authz.ActionCreate}, "") {
		return
	}

	var req kvp.CreateSuggestionRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.Validate(w,
		httputil.Required("title", req.Title),
		httputil.Required("description", req.Description),
	) {
		return
	}
	sc, ok := parseScope(w, req.VisibilityScope, req.TargetID)
	if !ok {
		return
	}

	p := middleware.Principal(r.Context())
	sug := &kvp.Suggestion{
		TenantID:        p.TenantID,
		SubmitterID:     p.UserID,
		Title:           req.Title,
		Description:     req.Description,
		Category:        req.Category,
		VisibilityScope: sc,
		TargetID:        req.TargetID,
		IsAnonymous:     req.IsAnonymous,
	}
	if err := s.deps.KVP.Create(r.Context(), sug); err != nil {
		s.writeError(w, err)
		return
	}
	s.recordAudit(r, audit.EventTypeDataCreate, "create", authz.KindKVP, strconv.FormatInt(sug.ID, 10))
	httputil.WriteCreated(w, sug.View(p))
}

func (s *Server) handleListSuggestions(w http.ResponseWriter, r *http.Request) {
	p := middleware.Principal(r.Context())

	var filter kvp.ListFilter
	filter.Status = httputil.ParseQueryString(r, "status", "")
	if httputil.ParseQueryString(r, "mine", "") == "true" {
		filter.SubmitterID = &p.UserID
	}

	list, err := s.deps.KVP.List(r.Context(), p, filter)
	if err != nil {
		s.writeError(w, err)
		return
	}
	views := make([]*kvp.Suggestion, 0, len(list))
	for _, sug := range list {
		views = append(views, sug.View(p))
	}
	httputil.WriteSuccess(w, views)
}

func (s *Server) handleGetSuggestion(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	p := middleware.Principal(r.Context())
	sug, err := s.deps.KVP.GetVisible(r.Context(), p, id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	httputil.WriteSuccess(w, sug.View(p))
}

func (s *Server) handleUpdateSuggestion(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	p := middleware.Principal(r.Context())
	// Fetch first so out-of-scope rows read as missing; ownership and the
	// editable-state gate come from the stored row, not the payload.
	sug, err := s.deps.KVP.GetVisible(r.Context(), p, id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if !s.authorize(w, r, authz.Request{
		Kind:    authz.KindKVP,
		Action:  authz.ActionUpdate,
		OwnerID: sug.SubmitterID,
		State:   sug.Status,
	}, strconv.FormatInt(id, 10)) {
		return
	}

	var req kvp.UpdateSuggestionRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if err := s.deps.KVP.Update(r.Context(), p.TenantID, id, &req); err != nil {
		s.writeError(w, err)
		return
	}
	s.recordAudit(r, audit.EventTypeDataUpdate, "update", authz.KindKVP, strconv.FormatInt(id, 10))
	sug, err = s.deps.KVP.Get(r.Context(), p.TenantID, id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	httputil.WriteSuccess(w, sug.View(p))
}

func (s *Server) handleDeleteSuggestion(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	p := middleware.Principal(r.Context())
	sug, err := s.deps.KVP.GetVisible(r.Context(), p, id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if !s.authorize(w, r, authz.Request{
		Kind:    authz.KindKVP,
		Action:  authz.ActionDelete,
		OwnerID: sug.SubmitterID,
		State:   sug.Status,
	}, strconv.FormatInt(id, 10)) {
		return
	}

	if err := s.deps.KVP.Delete(r.Context(), p.TenantID, id); err != nil {
		s.writeError(w, err)
		return
	}
	s.recordAudit(r, audit.EventTypeDataDelete, "delete", authz.KindKVP, strconv.FormatInt(id, 10))
	httputil.WriteNoContent(w)
}

func (s *Server) handleTransitionSuggestion(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	if !s.authorize(w, r, authz.Request{Kind: authz.KindKVP, Action: authz.ActionTransition}, strconv.FormatInt(id, 10)) {
		return
	}

	var req kvp.TransitionRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.Validate(w, httputil.Required("status", req.Status)) {
		return
	}

	p := middleware.Principal(r.Context())
	sug, err := s.deps.KVP.Transition(r.Context(), p.TenantID, id, &req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	// Implemented suggestions credit the submitter's account.
	if sug.Status == authz.KVPStatusImplemented && sug.Points > 0 {
		if err := s.deps.Users.AddPoints(r.Context(), p.TenantID, sug.SubmitterID, sug.Points); err != nil {
			s.log.WithError(err).WithField("suggestion_id", id).Error("failed to credit suggestion points")
		}
	}
	s.recordAudit(r, audit.EventTypeDataTransition, req.Status, authz.KindKVP, strconv.FormatInt(id, 10))
	httputil.WriteSuccess(w, sug.View(p))
}
