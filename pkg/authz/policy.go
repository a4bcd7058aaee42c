package authz

// Request describes a single authorization decision. All fields originate
// from the verified principal and from the resource snapshot fetched by the
// caller, never from the request body.
type Request struct {
	Kind   ResourceKind
	Action Action

	// OwnerID is the resource instance's owner (created_by / submitted_by /
	// swap addressee). Zero when the resource kind has no owner.
	OwnerID int64

	// TargetUserID is the user a user-management action targets. Used for
	// the self-protection rule.
	TargetUserID int64

	// State is the resource's current status for state-gated edits.
	State string

	// GrantRole is the role being assigned on user create/update. Empty when
	// no role assignment is involved.
	GrantRole Role
}

// Rule is one row of the declarative access table. A request is allowed when
// the principal's role is listed in Roles, or when AllowOwner is set and the
// principal owns the resource instance. EditableStates, when non-empty,
// additionally restricts the action to resources in one of those states,
// regardless of role.
type Rule struct {
	Kind           ResourceKind
	Action         Action
	Roles          []Role
	AllowOwner     bool
	EditableStates []string
	StateReason    string
}

// rules is the single access table consulted by Authorize. Every endpoint
// goes through this table instead of reimplementing per-route checks.
var rules = []Rule{
	// Tenant administration is root-only.
	{Kind: KindTenant, Action: ActionCreate, Roles: []Role{RoleRoot}},
	{Kind: KindTenant, Action: ActionRead, Roles: []Role{RoleRoot}},
	{Kind: KindTenant, Action: ActionUpdate, Roles: []Role{RoleRoot}},
	{Kind: KindTenant, Action: ActionTransition, Roles: []Role{RoleRoot}},

	// User management. Read of own profile is handled by AllowOwner; the
	// admin-role escalation gate is a dedicated check in Authorize.
	{Kind: KindUser, Action: ActionCreate, Roles: []Role{RoleRoot, RoleAdmin}},
	{Kind: KindUser, Action: ActionRead, Roles: []Role{RoleRoot, RoleAdmin}, AllowOwner: true},
	{Kind: KindUser, Action: ActionUpdate, Roles: []Role{RoleRoot, RoleAdmin}, AllowOwner: true},
	{Kind: KindUser, Action: ActionDelete, Roles: []Role{RoleRoot, RoleAdmin}},
	{Kind: KindUser, Action: ActionHardDelete, Roles: []Role{RoleRoot, RoleAdmin}},

	// Org structure is admin-only.
	{Kind: KindDepartment, Action: ActionCreate, Roles: []Role{RoleRoot, RoleAdmin}},
	{Kind: KindDepartment, Action: ActionUpdate, Roles: []Role{RoleRoot, RoleAdmin}},
	{Kind: KindDepartment, Action: ActionDelete, Roles: []Role{RoleRoot, RoleAdmin}},
	{Kind: KindTeam, Action: ActionCreate, Roles: []Role{RoleRoot, RoleAdmin}},
	{Kind: KindTeam, Action: ActionUpdate, Roles: []Role{RoleRoot, RoleAdmin}},
	{Kind: KindTeam, Action: ActionDelete, Roles: []Role{RoleRoot, RoleAdmin}},

	// KVP suggestions: anyone may submit; content edits belong to the
	// submitter (or an admin) and only while the suggestion is still
	// editable. Status changes go through ActionTransition, admin-only.
	{Kind: KindKVP, Action: ActionCreate, Roles: []Role{RoleRoot, RoleAdmin, RoleEmployee}},
	{Kind: KindKVP, Action: ActionUpdate, Roles: []Role{RoleRoot, RoleAdmin}, AllowOwner: true,
		EditableStates: []string{"submitted"}, StateReason: "already under review"},
	{Kind: KindKVP, Action: ActionDelete, Roles: []Role{RoleRoot, RoleAdmin}, AllowOwner: true,
		EditableStates: []string{"submitted"}, StateReason: "already under review"},
	{Kind: KindKVP, Action: ActionTransition, Roles: []Role{RoleRoot, RoleAdmin}},

	// Calendar events: admins, plus the creator for their own events.
	{Kind: KindCalendar, Action: ActionCreate, Roles: []Role{RoleRoot, RoleAdmin, RoleEmployee}},
	{Kind: KindCalendar, Action: ActionUpdate, Roles: []Role{RoleRoot, RoleAdmin}, AllowOwner: true},
	{Kind: KindCalendar, Action: ActionDelete, Roles: []Role{RoleRoot, RoleAdmin}, AllowOwner: true},

	// Surveys: creation and closing are admin-only; responding is
	// self-service for any active user.
	{Kind: KindSurvey, Action: ActionCreate, Roles: []Role{RoleRoot, RoleAdmin}},
	{Kind: KindSurvey, Action: ActionUpdate, Roles: []Role{RoleRoot, RoleAdmin}},
	{Kind: KindSurvey, Action: ActionDelete, Roles: []Role{RoleRoot, RoleAdmin}},
	{Kind: KindSurvey, Action: ActionTransition, Roles: []Role{RoleRoot, RoleAdmin}},
	{Kind: KindSurvey, Action: ActionRespond, Roles: []Role{RoleRoot, RoleAdmin, RoleEmployee}},
	{Kind: KindSurveyAnswer, Action: ActionUpdate, Roles: []Role{RoleRoot, RoleAdmin}, AllowOwner: true},

	// Broadcast notifications are admin-only; preferences are per-user.
	{Kind: KindNotification, Action: ActionCreate, Roles: []Role{RoleRoot, RoleAdmin}},
	{Kind: KindNotification, Action: ActionDelete, Roles: []Role{RoleRoot, RoleAdmin}},
	{Kind: KindPreference, Action: ActionUpdate, Roles: []Role{RoleRoot, RoleAdmin}, AllowOwner: true},

	// Shift planning is admin-only except swap responses.
	{Kind: KindShiftTmpl, Action: ActionCreate, Roles: []Role{RoleRoot, RoleAdmin}},
	{Kind: KindShiftTmpl, Action: ActionUpdate, Roles: []Role{RoleRoot, RoleAdmin}},
	{Kind: KindShiftTmpl, Action: ActionDelete, Roles: []Role{RoleRoot, RoleAdmin}},
	{Kind: KindShiftPlan, Action: ActionCreate, Roles: []Role{RoleRoot, RoleAdmin}},
	{Kind: KindShiftPlan, Action: ActionUpdate, Roles: []Role{RoleRoot, RoleAdmin},
		EditableStates: []string{"draft"}, StateReason: "plan is published; unpublish it first"},
	{Kind: KindShiftPlan, Action: ActionDelete, Roles: []Role{RoleRoot, RoleAdmin},
		EditableStates: []string{"draft", "archived"}, StateReason: "published plans cannot be deleted"},
	{Kind: KindShiftPlan, Action: ActionTransition, Roles: []Role{RoleRoot, RoleAdmin}},
	{Kind: KindSwapRequest, Action: ActionCreate, Roles: []Role{RoleRoot, RoleAdmin, RoleEmployee}},
	// Responding is reserved for the addressee (the swap request's OwnerID
	// from the responder's perspective); cancelling is the requester's and
	// is checked by the handler with OwnerID = requester.
	{Kind: KindSwapRequest, Action: ActionRespond, Roles: []Role{RoleRoot, RoleAdmin}, AllowOwner: true,
		EditableStates: []string{"pending"}, StateReason: "swap request is no longer pending"},

	// Sessions: users manage their own, admins may revoke any in-tenant.
	{Kind: KindSession, Action: ActionRead, Roles: []Role{RoleRoot, RoleAdmin}, AllowOwner: true},
	{Kind: KindSession, Action: ActionDelete, Roles: []Role{RoleRoot, RoleAdmin}, AllowOwner: true},

	// The audit trail is readable by admins, never writable over the API.
	{Kind: KindAuditLog, Action: ActionRead, Roles: []Role{RoleRoot, RoleAdmin}},
}

func findRule(kind ResourceKind, action Action) *Rule {
	for i := range rules {
		if rules[i].Kind == kind && rules[i].Action == action {
			return &rules[i]
		}
	}
	return nil
}

// Authorize is the single decision entry point. It returns nil when the
// principal may perform the action, or an *Error carrying the denial reason.
// Authentication, tenant scoping and visibility are separate gates; Authorize
// only decides role, ownership, self-protection and state questions.
func Authorize(p *Principal, req Request) *Error {
	if p == nil {
		return Errf(KindForbidden, "authentication required")
	}

	// Self-protection: nobody deletes or demotes their own account, not
	// even root.
	if req.Kind == KindUser && req.TargetUserID == p.UserID {
		switch req.Action {
		case ActionDelete, ActionHardDelete:
			return ErrSelfAction
		case ActionUpdate:
			if req.GrantRole != "" && req.GrantRole != p.Role {
				return ErrSelfAction
			}
		}
	}

	// Granting the admin role is reserved for root. The reason is deliberately
	// distinct from the generic denial so an admin understands the boundary.
	if req.Kind == KindUser && req.GrantRole == RoleAdmin && !p.IsRoot() {
		switch req.Action {
		case ActionCreate, ActionUpdate:
			return Errf(KindForbidden, "only root may grant the admin role")
		}
	}
	// The root role is never grantable through the API.
	if req.Kind == KindUser && req.GrantRole == RoleRoot {
		return Errf(KindForbidden, "the root role cannot be assigned")
	}

	rule := findRule(req.Kind, req.Action)
	if rule == nil {
		return Errf(KindForbidden, "operation not permitted")
	}

	allowed := false
	for _, role := range rule.Roles {
		if p.Role == role {
			allowed = true
			break
		}
	}
	if !allowed && rule.AllowOwner && req.OwnerID != 0 && req.OwnerID == p.UserID {
		allowed = true
	}
	if !allowed {
		return Errf(KindForbidden, denialReason(req))
	}

	// State gate: binds every role alike. Admins change states through the
	// transition endpoints, not by editing around them.
	if len(rule.EditableStates) > 0 && req.State != "" {
		ok := false
		for _, s := range rule.EditableStates {
			if req.State == s {
				ok = true
				break
			}
		}
		if !ok {
			reason := rule.StateReason
			if reason == "" {
				reason = "resource is not in an editable state"
			}
			return Errf(KindForbidden, reason)
		}
	}

	return nil
}

func denialReason(req Request) string {
	switch req.Action {
	case ActionCreate:
		return "you are not allowed to create this resource"
	case ActionUpdate:
		return "you are not allowed to modify this resource"
	case ActionDelete, ActionHardDelete:
		return "you are not allowed to delete this resource"
	case ActionTransition:
		return "you are not allowed to change the status of this resource"
	case ActionRespond:
		return "you are not allowed to respond to this resource"
	default:
		return "you are not allowed to access this resource"
	}
}
