package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/crewdesk/crewdesk/pkg/audit"
	"github.com/crewdesk/crewdesk/pkg/authz"
	"github.com/crewdesk/crewdesk/pkg/httputil"
	"github.com/crewdesk/crewdesk/pkg/middleware"
	"github.com/crewdesk/crewdesk/pkg/shifts"
)

func (s *Server) registerShiftRoutes(r *mux.Router) {
	r.HandleFunc("/shift-templates", s.handleCreateTemplate).Methods(http.MethodPost)
	r.HandleFunc("/shift-templates", s.handleListTemplates).Methods(http.MethodGet)
	r.HandleFunc("/shift-templates/{id:[0-9]+}", s.handleGetTemplate).Methods(http.MethodGet)
	r.HandleFunc("/shift-templates/{id:[0-9]+}", s.handleUpdateTemplate).Methods(http.MethodPatch)
	r.HandleFunc("/shift-templates/{id:[0-9]+}", s.handleDeleteTemplate).Methods(http.MethodDelete)

	r.HandleFunc("/shift-plans", s.handleCreatePlan).Methods(http.MethodPost)
	r.HandleFunc("/shift-plans", s.handleListPlans).Methods(http.MethodGet)
	r.HandleFunc("/shift-plans/{id:[0-9]+}", s.handleGetPlan).Methods(http.MethodGet)
	r.HandleFunc("/shift-plans/{id:[0-9]+}", s.handleUpdatePlan).Methods(http.MethodPatch)
	r.HandleFunc("/shift-plans/{id:[0-9]+}", s.handleDeletePlan).Methods(http.MethodDelete)
	r.HandleFunc("/shift-plans/{id:[0-9]+}/transition", s.handleTransitionPlan).Methods(http.MethodPost)
	r.HandleFunc("/shift-plans/{id:[0-9]+}/assignments", s.handleCreateAssignment).Methods(http.MethodPost)
	r.HandleFunc("/shift-plans/{id:[0-9]+}/assignments", s.handleListAssignments).Methods(http.MethodGet)
	r.HandleFunc("/shift-plans/{id:[0-9]+}/rotation", s.handleGenerateRotation).Methods(http.MethodPost)
	r.HandleFunc("/shift-assignments/{id:[0-9]+}", s.handleDeleteAssignment).Methods(http.MethodDelete)
	r.HandleFunc("/shifts/my", s.handleMyShifts).Methods(http.MethodGet)

	r.HandleFunc("/shift-swaps", s.handleCreateSwap).Methods(http.MethodPost)
	r.HandleFunc("/shift-swaps", s.handleListSwaps).Methods(http.MethodGet)
	r.HandleFunc("/shift-swaps/{id:[0-9]+}/respond", s.handleRespondSwap).Methods(http.MethodPost)
	r.HandleFunc("/shift-swaps/{id:[0-9]+}/cancel", s.handleCancelSwap).Methods(http.MethodPost)
}

func validShiftTime(v string) bool {
	_, err := time.Parse("15:04", v)
	return err == nil
}

type createTemplateRequest struct {
	Name      string `json:"name"`
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
	Color     string `json:"color"`
}

func (s *Server) handleCreateTemplate(w http.ResponseWriter, r *http.Request) {
	if !s.authorize(w, r, authz.Request{Kind: authz.KindShiftTmpl, Action: authz.ActionCreate}, "") {
		return
	}

	var req createTemplateRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.Validate(w, httputil.Required("name", req.Name)) {
		return
	}
	if !validShiftTime(req.StartTime) {
		httputil.WriteValidationErrors(w, httputil.FieldError{Path: "startTime", Message: "must be HH:MM"})
		return
	}
	if !validShiftTime(req.EndTime) {
		httputil.WriteValidationErrors(w, httputil.FieldError{Path: "endTime", Message: "must be HH:MM"})
		return
	}

	p := middleware.Principal(r.Context())
	tpl := &shifts.Template{
		TenantID:  p.TenantID,
		Name:      req.Name,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		Color:     req.Color,
	}
	if err := s.deps.Shifts.CreateTemplate(r.Context(), tpl); err != nil {
		s.writeError(w, err)
		return
	}
	s.recordAudit(r, audit.EventTypeDataCreate, "create", authz.KindShiftTmpl, strconv.FormatInt(tpl.ID, 10))
	httputil.WriteCreated(w, tpl)
}

func (s *Server) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	p := middleware.Principal(r.Context())
	list, err := s.deps.Shifts.ListTemplates(r.Context(), p.TenantID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	httputil.WriteSuccess(w, list)
}

func (s *Server) handleGetTemplate(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	p := middleware.Principal(r.Context())
	tpl, err := s.deps.Shifts.GetTemplate(r.Context(), p.TenantID, id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	httputil.WriteSuccess(w, tpl)
}

func (s *Server) handleUpdateTemplate(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	if !s.authorize(w, r, authz.Request{Kind: authz.KindShiftTmpl, Action: authz.ActionUpdate}, strconv.FormatInt(id, 10)) {
		return
	}

	var req shifts.UpdateTemplateRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if req.StartTime != nil && !validShiftTime(*req.StartTime) {
		httputil.WriteValidationErrors(w, httputil.FieldError{Path: "startTime", Message: "must be HH:MM"})
		return
	}
	if req.EndTime != nil && !validShiftTime(*req.EndTime) {
		httputil.WriteValidationErrors(w, httputil.FieldError{Path: "endTime", Message: "must be HH:MM"})
		return
	}

	p := middleware.Principal(r.Context())
	if err := s.deps.Shifts.UpdateTemplate(r.Context(), p.TenantID, id, &req); err != nil {
		s.writeError(w, err)
		return
	}
	tpl, err := s.deps.Shifts.GetTemplate(r.Context(), p.TenantID, id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	httputil.WriteSuccess(w, tpl)
}

func (s *Server) handleDeleteTemplate(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	if !s.authorize(w, r, authz.Request{Kind: authz.KindShiftTmpl, Action: authz.ActionDelete}, strconv.FormatInt(id, 10)) {
		return
	}

	p := middleware.Principal(r.Context())
	if err := s.deps.Shifts.DeleteTemplate(r.Context(), p.TenantID, id); err != nil {
		s.writeError(w, err)
		return
	}
	httputil.WriteNoContent(w)
}

type createPlanRequest struct {
	Name     string `json:"name"`
	StartsOn string `json:"startsOn"`
	EndsOn   string `json:"endsOn"`
}

func (s *Server) handleCreatePlan(w http.ResponseWriter, r *http.Request) {
	if !s.authorize(w, r, authz.Request{Kind: authz.KindShiftPlan, Action: authz.ActionCreate}, "") {
		return
	}

	var req createPlanRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.Validate(w, httputil.Required("name", req.Name)) {
		return
	}
	starts, err := time.Parse(shifts.DateFormat, req.StartsOn)
	if err != nil {
		httputil.WriteValidationErrors(w, httputil.FieldError{Path: "startsOn", Message: "must be YYYY-MM-DD"})
		return
	}
	ends, err := time.Parse(shifts.DateFormat, req.EndsOn)
	if err != nil {
		httputil.WriteValidationErrors(w, httputil.FieldError{Path: "endsOn", Message: "must be YYYY-MM-DD"})
		return
	}
	if ends.Before(starts) {
		httputil.WriteValidationErrors(w, httputil.FieldError{Path: "endsOn", Message: "must not be before startsOn"})
		return
	}

	p := middleware.Principal(r.Context())
	plan := &shifts.Plan{
		TenantID:  p.TenantID,
		Name:      req.Name,
		StartsOn:  req.StartsOn,
		EndsOn:    req.EndsOn,
		CreatedBy: p.UserID,
	}
	if err := s.deps.Shifts.CreatePlan(r.Context(), plan); err != nil {
		s.writeError(w, err)
		return
	}
	s.recordAudit(r, audit.EventTypeDataCreate, "create", authz.KindShiftPlan, strconv.FormatInt(plan.ID, 10))
	httputil.WriteCreated(w, plan)
}

func (s *Server) handleListPlans(w http.ResponseWriter, r *http.Request) {
	p := middleware.Principal(r.Context())
	filter := shifts.ListPlanFilter{Status: httputil.ParseQueryString(r, "status", "")}
	// Employees only ever see published plans.
	if !p.Role.IsElevated() {
		filter.Status = authz.PlanStatusPublished
	}
	list, err := s.deps.Shifts.ListPlans(r.Context(), p.TenantID, filter)
	if err != nil {
		s.writeError(w, err)
		return
	}
	httputil.WriteSuccess(w, list)
}

// getPlanForViewer loads a plan, hiding drafts from employees.
func (s *Server) getPlanForViewer(w http.ResponseWriter, r *http.Request, id int64) (*shifts.Plan, bool) {
	p := middleware.Principal(r.Context())
	plan, err := s.deps.Shifts.GetPlan(r.Context(), p.TenantID, id)
	if err != nil {
		s.writeError(w, err)
		return nil, false
	}
	if plan.Status != authz.PlanStatusPublished && !p.Role.IsElevated() {
		httputil.WriteNotFound(w)
		return nil, false
	}
	return plan, true
}

func (s *Server) handleGetPlan(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	plan, ok := s.getPlanForViewer(w, r, id)
	if !ok {
		return
	}
	httputil.WriteSuccess(w, plan)
}

func (s *Server) handleUpdatePlan(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	p := middleware.Principal(r.Context())
	plan, err := s.deps.Shifts.GetPlan(r.Context(), p.TenantID, id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	// The state gate rejects edits to published plans.
	if !s.authorize(w, r, authz.Request{
		Kind:   authz.KindShiftPlan,
		Action: authz.ActionUpdate,
		State:  plan.Status,
	}, strconv.FormatInt(id, 10)) {
		return
	}

	var req shifts.UpdatePlanRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if req.StartsOn != nil {
		if _, err := time.Parse(shifts.DateFormat, *req.StartsOn); err != nil {
			httputil.WriteValidationErrors(w, httputil.FieldError{Path: "startsOn", Message: "must be YYYY-MM-DD"})
			return
		}
	}
	if req.EndsOn != nil {
		if _, err := time.Parse(shifts.DateFormat, *req.EndsOn); err != nil {
			httputil.WriteValidationErrors(w, httputil.FieldError{Path: "endsOn", Message: "must be YYYY-MM-DD"})
			return
		}
	}

	if err := s.deps.Shifts.UpdatePlan(r.Context(), p.TenantID, id, &req); err != nil {
		s.writeError(w, err)
		return
	}
	s.recordAudit(r, audit.EventTypeDataUpdate, "update", authz.KindShiftPlan, strconv.FormatInt(id, 10))
	plan, err = s.deps.Shifts.GetPlan(r.Context(), p.TenantID, id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	httputil.WriteSuccess(w, plan)
}

func (s *Server) handleDeletePlan(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	p := middleware.Principal(r.Context())
	plan, err := s.deps.Shifts.GetPlan(r.Context(), p.TenantID, id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if !s.authorize(w, r, authz.Request{
		Kind:   authz.KindShiftPlan,
		Action: authz.ActionDelete,
		State:  plan.Status,
	}, strconv.FormatInt(id, 10)) {
		return
	}

	if err := s.deps.Shifts.DeletePlan(r.Context(), p.TenantID, id); err != nil {
		s.writeError(w, err)
		return
	}
	s.recordAudit(r, audit.EventTypeDataDelete, "delete", authz.KindShiftPlan, strconv.FormatInt(id, 10))
	httputil.WriteNoContent(w)
}

type transitionPlanRequest struct {
	Status string `json:"status"`
}

func (s *Server) handleTransitionPlan(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	if !s.authorize(w, r, authz.Request{Kind: authz.KindShiftPlan, Action: authz.ActionTransition}, strconv.FormatInt(id, 10)) {
		return
	}

	var req transitionPlanRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.Validate(w, httputil.Required("status", req.Status)) {
		return
	}

	p := middleware.Principal(r.Context())
	plan, err := s.deps.Shifts.TransitionPlan(r.Context(), p.TenantID, id, req.Status)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.recordAudit(r, audit.EventTypeDataTransition, req.Status, authz.KindShiftPlan, strconv.FormatInt(id, 10))
	httputil.WriteSuccess(w, plan)
}

type createAssignmentRequest struct {
	TemplateID int64  `json:"templateId"`
	UserID     int64  `json:"userId"`
	Day        string `json:"day"`
}

func (s *Server) handleCreateAssignment(w http.ResponseWriter, r *http.Request) {
	planID, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	if !s.authorize(w, r, authz.Request{Kind: authz.KindShiftPlan, Action: authz.ActionUpdate}, strconv.FormatInt(planID, 10)) {
		return
	}

	var req createAssignmentRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.Validate(w,
		httputil.Positive("templateId", req.TemplateID),
		httputil.Positive("userId", req.UserID),
	) {
		return
	}
	if _, err := time.Parse(shifts.DateFormat, req.Day); err != nil {
		httputil.WriteValidationErrors(w, httputil.FieldError{Path: "day", Message: "must be YYYY-MM-DD"})
		return
	}

	p := middleware.Principal(r.Context())
	a := &shifts.Assignment{
		TenantID:   p.TenantID,
		PlanID:     planID,
		TemplateID: req.TemplateID,
		UserID:     req.UserID,
		Day:        req.Day,
	}
	if err := s.deps.Shifts.CreateAssignment(r.Context(), a); err != nil {
		s.writeError(w, err)
		return
	}
	httputil.WriteCreated(w, a)
}

func (s *Server) handleListAssignments(w http.ResponseWriter, r *http.Request) {
	planID, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	if _, ok := s.getPlanForViewer(w, r, planID); !ok {
		return
	}
	p := middleware.Principal(r.Context())
	list, err := s.deps.Shifts.ListAssignments(r.Context(), p.TenantID, planID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	httputil.WriteSuccess(w, list)
}

func (s *Server) handleDeleteAssignment(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	p := middleware.Principal(r.Context())
	a, err := s.deps.Shifts.GetAssignment(r.Context(), p.TenantID, id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if !s.authorize(w, r, authz.Request{Kind: authz.KindShiftPlan, Action: authz.ActionUpdate}, strconv.FormatInt(a.PlanID, 10)) {
		return
	}

	if err := s.deps.Shifts.DeleteAssignment(r.Context(), p.TenantID, id); err != nil {
		s.writeError(w, err)
		return
	}
	httputil.WriteNoContent(w)
}

func (s *Server) handleGenerateRotation(w http.ResponseWriter, r *http.Request) {
	planID, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	if !s.authorize(w, r, authz.Request{Kind: authz.KindShiftPlan, Action: authz.ActionUpdate}, strconv.FormatInt(planID, 10)) {
		return
	}

	var req shifts.RotationRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	req.PlanID = planID
	if len(req.TemplateIDs) == 0 {
		httputil.WriteValidationErrors(w, httputil.FieldError{Path: "templateIds", Message: "at least one template is required"})
		return
	}
	if len(req.UserIDs) == 0 {
		httputil.WriteValidationErrors(w, httputil.FieldError{Path: "userIds", Message: "at least one user is required"})
		return
	}
	from, err := time.Parse(shifts.DateFormat, req.From)
	if err != nil {
		httputil.WriteValidationErrors(w, httputil.FieldError{Path: "from", Message: "must be YYYY-MM-DD"})
		return
	}
	to, err := time.Parse(shifts.DateFormat, req.To)
	if err != nil {
		httputil.WriteValidationErrors(w, httputil.FieldError{Path: "to", Message: "must be YYYY-MM-DD"})
		return
	}
	if to.Before(from) {
		httputil.WriteValidationErrors(w, httputil.FieldError{Path: "to", Message: "must not be before from"})
		return
	}

	p := middleware.Principal(r.Context())
	result, err := s.deps.Shifts.GenerateRotation(r.Context(), p.TenantID, &req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.recordAudit(r, audit.EventTypeDataUpdate, "rotation", authz.KindShiftPlan, strconv.FormatInt(planID, 10))
	httputil.WriteSuccess(w, result)
}

func (s *Server) handleMyShifts(w http.ResponseWriter, r *http.Request) {
	p := middleware.Principal(r.Context())
	now := time.Now().UTC()
	from := httputil.ParseQueryString(r, "from", now.Format(shifts.DateFormat))
	to := httputil.ParseQueryString(r, "to", now.AddDate(0, 1, 0).Format(shifts.DateFormat))
	if _, err := time.Parse(shifts.DateFormat, from); err != nil {
		httputil.WriteValidationErrors(w, httputil.FieldError{Path: "from", Message: "must be YYYY-MM-DD"})
		return
	}
	if _, err := time.Parse(shifts.DateFormat, to); err != nil {
		httputil.WriteValidationErrors(w, httputil.FieldError{Path: "to", Message: "must be YYYY-MM-DD"})
		return
	}

	list, err := s.deps.Shifts.ListUserAssignments(r.Context(), p.TenantID, p.UserID, from, to)
	if err != nil {
		s.writeError(w, err)
		return
	}
	httputil.WriteSuccess(w, list)
}

type createSwapRequest struct {
	AssignmentID int64  `json:"assignmentId"`
	AddresseeID  int64  `json:"addresseeId"`
	Note         string `json:"note"`
}

func (s *Server) handleCreateSwap(w http.ResponseWriter, r *http.Request) {
	if !s.authorize(w, r, authz.Request{Kind: authz.KindSwapRequest, Action: authz.ActionCreate}, "") {
		return
	}

	var req createSwapRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.Validate(w,
		httputil.Positive("assignmentId", req.AssignmentID),
		httputil.Positive("addresseeId", req.AddresseeID),
	) {
		return
	}

	p := middleware.Principal(r.Context())
	// The addressee must be a live account in the same tenant.
	addressee, err := s.deps.Users.GetByID(r.Context(), p.TenantID, req.AddresseeID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if !addressee.Active() {
		httputil.WriteValidationErrors(w, httputil.FieldError{Path: "addresseeId", Message: "account is not active"})
		return
	}

	sr, err := s.deps.Shifts.RequestSwap(r.Context(), p, req.AssignmentID, req.AddresseeID, req.Note)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.recordAudit(r, audit.EventTypeDataCreate, "create", authz.KindSwapRequest, strconv.FormatInt(sr.ID, 10))
	httputil.WriteCreated(w, sr)
}

func (s *Server) handleListSwaps(w http.ResponseWriter, r *http.Request) {
	p := middleware.Principal(r.Context())
	filter := shifts.ListSwapFilter{Status: httputil.ParseQueryString(r, "status", "")}
	box := httputil.ParseQueryString(r, "box", "")
	switch {
	case box == "outbox":
		filter.RequesterID = &p.UserID
	case box == "inbox" || !p.Role.IsElevated():
		// Employees without an explicit box see their inbox.
		filter.AddresseeID = &p.UserID
	}
	list, err := s.deps.Shifts.ListSwaps(r.Context(), p.TenantID, filter)
	if err != nil {
		s.writeError(w, err)
		return
	}
	httputil.WriteSuccess(w, list)
}

type respondSwapRequest struct {
	Status string `json:"status"`
}

func (s *Server) handleRespondSwap(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	p := middleware.Principal(r.Context())
	sr, err := s.deps.Shifts.GetSwap(r.Context(), p.TenantID, id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	// Only the addressee (or an admin) may answer, and only while pending.
	if !s.authorize(w, r, authz.Request{
		Kind:    authz.KindSwapRequest,
		Action:  authz.ActionRespond,
		OwnerID: sr.AddresseeID,
		State:   sr.Status,
	}, strconv.FormatInt(id, 10)) {
		return
	}

	var req respondSwapRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if req.Status != authz.SwapStatusAccepted && req.Status != authz.SwapStatusDeclined {
		httputil.WriteValidationErrors(w, httputil.FieldError{Path: "status", Message: "must be accepted or declined"})
		return
	}

	sr, err = s.deps.Shifts.ResolveSwap(r.Context(), p.TenantID, id, req.Status)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.recordAudit(r, audit.EventTypeDataTransition, req.Status, authz.KindSwapRequest, strconv.FormatInt(id, 10))
	httputil.WriteSuccess(w, sr)
}

func (s *Server) handleCancelSwap(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	p := middleware.Principal(r.Context())
	sr, err := s.deps.Shifts.GetSwap(r.Context(), p.TenantID, id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	// Cancelling belongs to the requester.
	if !s.authorize(w, r, authz.Request{
		Kind:    authz.KindSwapRequest,
		Action:  authz.ActionRespond,
		OwnerID: sr.RequesterID,
		State:   sr.Status,
	}, strconv.FormatInt(id, 10)) {
		return
	}

	sr, err = s.deps.Shifts.ResolveSwap(r.Context(), p.TenantID, id, authz.SwapStatusCancelled)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.recordAudit(r, audit.EventTypeDataTransition, authz.SwapStatusCancelled, authz.KindSwapRequest, strconv.FormatInt(id, 10))
	httputil.WriteSuccess(w, sr)
}
