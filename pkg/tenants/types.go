package tenants

import (
	"regexp"
	"time"
)

// Tenant statuses. Transitions are enforced by the authz transition
// table: trial and active move freely between each other and into
// suspended; cancelled is terminal.
const (
	StatusTrial     = "trial"
	StatusActive    = "active"
	StatusSuspended = "suspended"
	StatusCancelled = "cancelled"
)

// Tenant is a company account. All resource rows in the system hang off
// a tenant id; tenant 1 is reserved for the system (root users live
// there).
type Tenant struct {
	ID          int64      `json:"id"`
	Name        string     `json:"name"`
	Subdomain   string     `json:"subdomain"`
	Status      string     `json:"status"`
	TrialEndsAt *time.Time `json:"trialEndsAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// Accessible reports whether requests for this tenant should be served
// at all. Suspended and cancelled tenants are refused at the edge.
func (t *Tenant) Accessible() bool {
	return t.Status == StatusTrial || t.Status == StatusActive
}

var subdomainPattern = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?$`)

// ValidSubdomain reports whether s is usable as a tenant subdomain:
// lowercase alphanumerics and hyphens, no leading or trailing hyphen,
// at most 63 characters.
func ValidSubdomain(s string) bool {
	return subdomainPattern.MatchString(s)
}

// CreateTenantRequest is the root-only payload for provisioning a new
// tenant.
type CreateTenantRequest struct {
	Name      string `json:"name"`
	Subdomain string `json:"subdomain"`
}

// UpdateTenantRequest carries optional tenant field updates.
type UpdateTenantRequest struct {
	Name *string `json:"name,omitempty"`
}
