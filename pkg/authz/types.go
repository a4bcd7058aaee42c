package authz

// Role represents tenant-level roles
type Role string

const (
	// RoleRoot is tenant-transcendent: it belongs to the reserved system
	// tenant and may administer resources across tenants with an explicit
	// tenant filter. It is orthogonal to admin rather than a superset of it.
	RoleRoot Role = "root"
	// RoleAdmin has full access within its own tenant
	RoleAdmin Role = "admin"
	// RoleEmployee has self-service access within its own tenant
	RoleEmployee Role = "employee"
)

// Valid reports whether the role is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleRoot, RoleAdmin, RoleEmployee:
		return true
	}
	return false
}

// IsElevated reports whether the role bypasses visibility scope checks.
// Elevated roles still never cross the tenant boundary (except root with an
// explicit tenant filter on list endpoints).
func (r Role) IsElevated() bool {
	return r == RoleRoot || r == RoleAdmin
}

// SystemTenantID is the reserved tenant that root accounts belong to.
// It never holds business data and does not scope root's queries.
const SystemTenantID int64 = 1

// Principal is the authenticated caller's identity for the duration of one
// request. It is constructed from a verified token at request entry and
// passed explicitly into every policy function; there is no ambient
// "current user" state.
type Principal struct {
	UserID       int64  `json:"user_id"`
	TenantID     int64  `json:"tenant_id"`
	Role         Role   `json:"role"`
	SessionID    string `json:"session_id"`
	DepartmentID *int64 `json:"department_id,omitempty"`
	TeamID       *int64 `json:"team_id,omitempty"`
}

// IsRoot reports whether the principal carries the root role.
func (p *Principal) IsRoot() bool { return p.Role == RoleRoot }

// IsAdmin reports whether the principal carries the admin role.
func (p *Principal) IsAdmin() bool { return p.Role == RoleAdmin }

// InDepartment reports whether the principal belongs to the given department.
func (p *Principal) InDepartment(departmentID int64) bool {
	return p.DepartmentID != nil && *p.DepartmentID == departmentID
}

// InTeam reports whether the principal belongs to the given team.
func (p *Principal) InTeam(teamID int64) bool {
	return p.TeamID != nil && *p.TeamID == teamID
}

// ResourceKind identifies the kind of resource an action targets
type ResourceKind string

const (
	KindTenant       ResourceKind = "tenant"
	KindUser         ResourceKind = "user"
	KindDepartment   ResourceKind = "department"
	KindTeam         ResourceKind = "team"
	KindKVP          ResourceKind = "kvp_suggestion"
	KindCalendar     ResourceKind = "calendar_event"
	KindSurvey       ResourceKind = "survey"
	KindSurveyAnswer ResourceKind = "survey_response"
	KindNotification ResourceKind = "notification"
	KindPreference   ResourceKind = "notification_preference"
	KindShiftTmpl    ResourceKind = "shift_template"
	KindShiftPlan    ResourceKind = "shift_plan"
	KindSwapRequest  ResourceKind = "swap_request"
	KindSession      ResourceKind = "session"
	KindAuditLog     ResourceKind = "audit_log"
)

// Action identifies an operation on a resource
type Action string

const (
	ActionCreate     Action = "create"
	ActionRead       Action = "read"
	ActionUpdate     Action = "update"
	ActionDelete     Action = "delete"
	ActionHardDelete Action = "hard_delete"
	ActionTransition Action = "transition"
	ActionRespond    Action = "respond"
)
