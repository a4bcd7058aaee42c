package audit

import "time"

// EventType categorizes audit events.
type EventType string

const (
	EventTypeAuthLogin          EventType = "auth.login"
	EventTypeAuthLoginFailed    EventType = "auth.login_failed"
	EventTypeAuthLogout         EventType = "auth.logout"
	EventTypeAuthRateLimited    EventType = "auth.rate_limited"
	EventTypeAuthTokenRejected  EventType = "auth.token_rejected"
	EventTypeAuthPasswordChange EventType = "auth.password_change"

	EventTypeAccessDenied EventType = "authz.access_denied"
	EventTypeRoleChange   EventType = "authz.role_change"

	EventTypeDataCreate     EventType = "data.create"
	EventTypeDataUpdate     EventType = "data.update"
	EventTypeDataDelete     EventType = "data.delete"
	EventTypeDataTransition EventType = "data.transition"

	EventTypeAdminTenantChange EventType = "admin.tenant_change"
	EventTypeAdminUserDelete   EventType = "admin.user_delete"
)

// Event is one audit record. PrincipalID and TenantID are pointers
// because pre-authentication failures have neither.
type Event struct {
	ID           int64     `json:"id,omitempty"`
	PrincipalID  *int64    `json:"principalId,omitempty"`
	TenantID     *int64    `json:"tenantId,omitempty"`
	Type         EventType `json:"type"`
	Action       string    `json:"action"`
	ResourceKind string    `json:"resourceKind,omitempty"`
	ResourceID   string    `json:"resourceId,omitempty"`
	Reason       string    `json:"reason,omitempty"`
	RequestID    string    `json:"requestId,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}
