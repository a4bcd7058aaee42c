package api

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/crewdesk/crewdesk/pkg/audit"
	"github.com/crewdesk/crewdesk/pkg/authz"
	"github.com/crewdesk/crewdesk/pkg/httputil"
	"github.com/crewdesk/crewdesk/pkg/middleware"
	"github.com/crewdesk/crewdesk/pkg/surveys"
)

func (s *Server) registerSurveyRoutes(r *mux.Router) {
	r.HandleFunc("/surveys", s.handleCreateSurvey).Methods(http.MethodPost)
	r.HandleFunc("/surveys", s.handleListSurveys).Methods(http.MethodGet)
	r.HandleFunc("/surveys/{id:[0-9]+}", s.handleGetSurvey).Methods(http.MethodGet)
	r.HandleFunc("/surveys/{id:[0-9]+}", s.handleDeleteSurvey).Methods(http.MethodDelete)
	r.HandleFunc("/surveys/{id:[0-9]+}/close", s.handleCloseSurvey).Methods(http.MethodPost)
	r.HandleFunc("/surveys/{id:[0-9]+}/responses", s.handleRespondSurvey).Methods(http.MethodPost)
	r.HandleFunc("/surveys/{id:[0-9]+}/responses", s.handleListResponses).Methods(http.MethodGet)
}

func (s *Server) handleCreateSurvey(w http.ResponseWriter, r *http.Request) {
	if !s.authorize(w, r, authz.Request{Kind: authz.KindSurvey, Action: authz.ActionCreate}, "") {
		return
	}

	var req surveys.CreateSurveyRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.Validate(w, httputil.Required("title", req.Title)) {
		return
	}
	if len(req.Questions) == 0 {
		httputil.WriteValidationErrors(w, httputil.FieldError{Path: "questions", Message: "at least one question is required"})
		return
	}
	for i, q := range req.Questions {
		if q.Text == "" {
			httputil.WriteValidationErrors(w, httputil.FieldError{
				Path: "questions[" + strconv.Itoa(i) + "].text", Message: "is required",
			})
			return
		}
	}
	sc, ok := parseScope(w, req.VisibilityScope, req.TargetID)
	if !ok {
		return
	}

	// Question ids are assigned server-side so answers key reliably.
	for i := range req.Questions {
		req.Questions[i].ID = i + 1
	}

	p := middleware.Principal(r.Context())
	sv := &surveys.Survey{
		TenantID:        p.TenantID,
		CreatorID:       p.UserID,
		Title:           req.Title,
		Description:     req.Description,
		IsAnonymous:     req.IsAnonymous,
		VisibilityScope: sc,
		TargetID:        req.TargetID,
		Questions:       req.Questions,
		ClosesAt:        req.ClosesAt,
	}
	if err := s.deps.Surveys.Create(r.Context(), sv); err != nil {
		s.writeError(w, err)
		return
	}
	s.recordAudit(r, audit.EventTypeDataCreate, "create", authz.KindSurvey, strconv.FormatInt(sv.ID, 10))
	httputil.WriteCreated(w, sv)
}

func (s *Server) handleListSurveys(w http.ResponseWriter, r *http.Request) {
	p := middleware.Principal(r.Context())
	list, err := s.deps.Surveys.List(r.Context(), p)
	if err != nil {
		s.writeError(w, err)
		return
	}
	httputil.WriteSuccess(w, list)
}

func (s *Server) handleGetSurvey(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	p := middleware.Principal(r.Context())
	sv, err := s.deps.Surveys.GetVisible(r.Context(), p, id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	httputil.WriteSuccess(w, sv)
}

func (s *Server) handleDeleteSurvey(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	if !s.authorize(w, r, authz.Request{Kind: authz.KindSurvey, Action: authz.ActionDelete}, strconv.FormatInt(id, 10)) {
		return
	}

	p := middleware.Principal(r.Context())
	if err := s.deps.Surveys.Delete(r.Context(), p.TenantID, id); err != nil {
		s.writeError(w, err)
		return
	}
	s.recordAudit(r, audit.EventTypeDataDelete, "delete", authz.KindSurvey, strconv.FormatInt(id, 10))
	httputil.WriteNoContent(w)
}

func (s *Server) handleCloseSurvey(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	if !s.authorize(w, r, authz.Request{Kind: authz.KindSurvey, Action: authz.ActionTransition}, strconv.FormatInt(id, 10)) {
		return
	}

	p := middleware.Principal(r.Context())
	sv, err := s.deps.Surveys.Close(r.Context(), p.TenantID, id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.recordAudit(r, audit.EventTypeDataTransition, "close", authz.KindSurvey, strconv.FormatInt(id, 10))
	httputil.WriteSuccess(w, sv)
}

func (s *Server) handleRespondSurvey(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	if !s.authorize(w, r, authz.Request{Kind: authz.KindSurvey, Action: authz.ActionRespond}, strconv.FormatInt(id, 10)) {
		return
	}

	var req surveys.RespondRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if len(req.Answers) == 0 {
		httputil.WriteValidationErrors(w, httputil.FieldError{Path: "answers", Message: "at least one answer is required"})
		return
	}

	p := middleware.Principal(r.Context())
	resp, err := s.deps.Surveys.Respond(r.Context(), p, id, &req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	httputil.WriteCreated(w, resp)
}

func (s *Server) handleListResponses(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	// Results are reserved for admins; respondent identity on anonymous
	// surveys is still masked in the rendered view.
	if !s.authorize(w, r, authz.Request{Kind: authz.KindSurvey, Action: authz.ActionUpdate}, strconv.FormatInt(id, 10)) {
		return
	}

	p := middleware.Principal(r.Context())
	sv, err := s.deps.Surveys.Get(r.Context(), p.TenantID, id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	list, err := s.deps.Surveys.Responses(r.Context(), p.TenantID, id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	views := make([]*surveys.Response, 0, len(list))
	for _, resp := range list {
		views = append(views, resp.View(p, sv.IsAnonymous))
	}
	httputil.WriteSuccess(w, views)
}
