// Package scope resolves visibility of tenant resources: whether one
// principal may see one resource instance, and the SQL predicate that
// narrows collection listings to what the principal may see.
package scope

import (
	"fmt"

	"github.com/crewdesk/crewdesk/pkg/authz"
)

// Scope is the breadth at which a resource is visible.
type Scope string

const (
	ScopeCompany    Scope = "company"
	ScopeDepartment Scope = "department"
	ScopeTeam       Scope = "team"
	ScopePrivate    Scope = "private"
)

// Valid reports whether s is a known scope.
func (s Scope) Valid() bool {
	switch s {
	case ScopeCompany, ScopeDepartment, ScopeTeam, ScopePrivate:
		return true
	}
	return false
}

// Visibility is the scope metadata carried by every scoped resource row.
type Visibility struct {
	Scope       Scope  `json:"visibility_scope"`
	TargetID    *int64 `json:"target_id,omitempty"`
	OwnerID     int64  `json:"-"`
	IsAnonymous bool   `json:"is_anonymous,omitempty"`
}

// IsVisible decides whether the principal may see a single resource
// instance. Tenant isolation is assumed to have been applied already by the
// store query; this function only evaluates scope. Admin and root bypass
// scope (never tenant).
func IsVisible(p *authz.Principal, v Visibility) bool {
	if p == nil {
		return false
	}
	if p.Role.IsElevated() {
		return true
	}
	switch v.Scope {
	case ScopeCompany:
		return true
	case ScopeDepartment:
		return v.TargetID != nil && p.InDepartment(*v.TargetID)
	case ScopeTeam:
		return v.TargetID != nil && p.InTeam(*v.TargetID)
	case ScopePrivate:
		return v.OwnerID == p.UserID
	default:
		return false
	}
}

// Filter builds the SQL predicate fragment that restricts a listing to the
// rows the principal may see. Placeholders are numbered starting at
// argOffset+1 so the fragment can be appended to an existing WHERE clause.
// Elevated roles receive the full in-tenant set: the fragment is empty.
//
// The owner column parameter names the created_by / submitted_by column of
// the listed table so private and own-anonymous rows remain listable by
// their owner.
func Filter(p *authz.Principal, ownerColumn string, argOffset int) (string, []interface{}) {
	if p == nil {
		return " AND 1=0", nil
	}
	if p.Role.IsElevated() {
		return "", nil
	}

	clause := fmt.Sprintf(" AND (visibility_scope = $%d", argOffset+1)
	args := []interface{}{string(ScopeCompany)}
	n := argOffset + 1

	if p.DepartmentID != nil {
		n++
		clause += fmt.Sprintf(" OR (visibility_scope = $%d AND target_id = $%d)", n, n+1)
		args = append(args, string(ScopeDepartment), *p.DepartmentID)
		n++
	}
	if p.TeamID != nil {
		n++
		clause += fmt.Sprintf(" OR (visibility_scope = $%d AND target_id = $%d)", n, n+1)
		args = append(args, string(ScopeTeam), *p.TeamID)
		n++
	}
	n++
	clause += fmt.Sprintf(" OR %s = $%d)", ownerColumn, n)
	args = append(args, p.UserID)

	return clause, args
}

// CanReveal reports whether the submitter identity of an anonymous resource
// may appear in a rendered view for the given principal. The stored owner is
// retained internally for point awarding and audit; it is revealed only to
// the submitter themself and to root-level audit tooling.
func CanReveal(p *authz.Principal, v Visibility) bool {
	if !v.IsAnonymous {
		return true
	}
	if p == nil {
		return false
	}
	return p.IsRoot() || p.UserID == v.OwnerID
}
