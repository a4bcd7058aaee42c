package users

import (
	"time"

	"github.com/crewdesk/crewdesk/pkg/authz"
)

// User statuses.
const (
	StatusActive   = "active"
	StatusDisabled = "disabled"
)

// User is a tenant-scoped account. PasswordHash never leaves the
// server; the json tag drops it from every response.
type User struct {
	ID           int64      `json:"id"`
	TenantID     int64      `json:"tenantId"`
	Username     string     `json:"username"`
	Email        string     `json:"email"`
	FirstName    string     `json:"firstName"`
	LastName     string     `json:"lastName"`
	Role         authz.Role `json:"role"`
	Status       string     `json:"status"`
	DepartmentID *int64     `json:"departmentId,omitempty"`
	TeamID       *int64     `json:"teamId,omitempty"`
	Points       int        `json:"points"`
	PasswordHash string     `json:"-"`
	LastLoginAt  *time.Time `json:"lastLoginAt,omitempty"`
	DeletedAt    *time.Time `json:"deletedAt,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// Active reports whether this account may authenticate.
func (u *User) Active() bool {
	return u.Status == StatusActive && u.DeletedAt == nil
}

// Principal builds the request principal for this user.
func (u *User) Principal(sessionID string) *authz.Principal {
	return &authz.Principal{
		UserID:       u.ID,
		TenantID:     u.TenantID,
		Role:         u.Role,
		SessionID:    sessionID,
		DepartmentID: u.DepartmentID,
		TeamID:       u.TeamID,
	}
}

// CreateUserRequest is the admin payload for creating an account.
// There is deliberately no tenant field; the tenant always comes from
// the authenticated caller.
type CreateUserRequest struct {
	Username     string `json:"username"`
	Email        string `json:"email"`
	Password     string `json:"password"`
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	Role         string `json:"role"`
	DepartmentID *int64 `json:"departmentId,omitempty"`
	TeamID       *int64 `json:"teamId,omitempty"`
}

// UpdateProfileRequest carries the self-service profile fields.
type UpdateProfileRequest struct {
	Email     *string `json:"email,omitempty"`
	FirstName *string `json:"firstName,omitempty"`
	LastName  *string `json:"lastName,omitempty"`
}

// AdminUpdateRequest carries the fields only admins may change.
type AdminUpdateRequest struct {
	Role         *string `json:"role,omitempty"`
	Status       *string `json:"status,omitempty"`
	DepartmentID *int64  `json:"departmentId,omitempty"`
	TeamID       *int64  `json:"teamId,omitempty"`
}

// ListFilter narrows user listings.
type ListFilter struct {
	DepartmentID   *int64
	TeamID         *int64
	IncludeDeleted bool
}
