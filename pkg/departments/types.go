package departments

import "time"

// Department is an organizational unit inside a tenant. Teams nest
// under departments; users reference both.
type Department struct {
	ID          int64      `json:"id"`
	TenantID    int64      `json:"tenantId"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	DeletedAt   *time.Time `json:"deletedAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// Team belongs to a department.
type Team struct {
	ID           int64      `json:"id"`
	TenantID     int64      `json:"tenantId"`
	DepartmentID int64      `json:"departmentId"`
	Name         string     `json:"name"`
	Description  string     `json:"description"`
	DeletedAt    *time.Time `json:"deletedAt,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// CreateDepartmentRequest is the admin payload for a new department.
type CreateDepartmentRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// UpdateDepartmentRequest carries optional department updates.
type UpdateDepartmentRequest struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
}

// CreateTeamRequest is the admin payload for a new team.
type CreateTeamRequest struct {
	DepartmentID int64  `json:"departmentId"`
	Name         string `json:"name"`
	Description  string `json:"description"`
}

// UpdateTeamRequest carries optional team updates.
type UpdateTeamRequest struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
}
