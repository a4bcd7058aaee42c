// Package authz implements the role-based access policy that every route
// handler consults before touching the data store.
//
// # Overview
//
// Four gates run in order on every request: authentication (pkg/auth),
// tenant scoping (store queries, pkg/tenants), the role/ownership/state
// decision (this package), and visibility resolution (pkg/scope). The first
// failing gate short-circuits the rest; no partial writes happen before all
// gates pass.
//
// # Decision entry point
//
// All endpoints go through the same declarative table and one function:
//
//	err := authz.Authorize(principal, authz.Request{
//		Kind:    authz.KindKVP,
//		Action:  authz.ActionUpdate,
//		OwnerID: suggestion.SubmittedBy,
//		State:   suggestion.Status,
//	})
//	if err != nil {
//		httputil.WritePolicyError(w, err)
//		return
//	}
//
// # Roles
//
// Three roles exist: root, admin, employee. Admin and employee are scoped to
// their tenant. Root belongs to the reserved system tenant and administers
// across tenants with explicit tenant filters; it is orthogonal to admin
// rather than strictly "more privileged within a tenant".
//
// # State machines
//
// Status changes are validated against explicit transition tables
// (KVPTransitions, PlanTransitions, SwapTransitions, SurveyTransitions,
// TenantTransitions). An out-of-table move fails with InvalidTransition
// regardless of role and leaves the stored status unchanged.
//
// # Error taxonomy
//
// Policy failures are *Error values with a Kind and a human-readable reason.
// HTTPStatus maps kinds onto the wire: token problems collapse to 401,
// forbidden and self-action to 403, invalid transitions to 400, rate limits
// to 429, and anything absent, cross-tenant or out of scope to a plain 404
// so existence never leaks across tenants.
package authz
