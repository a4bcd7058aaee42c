package authz

import "fmt"

// TransitionTable is an explicit finite-state machine: for each current
// state, the set of states it may move to. Out-of-table moves are rejected
// with InvalidTransition independent of the caller's role.
type TransitionTable map[string][]string

// Allowed reports whether from -> to is in the table.
func (t TransitionTable) Allowed(from, to string) bool {
	for _, next := range t[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Check returns an InvalidTransition error when from -> to is not allowed.
func (t TransitionTable) Check(from, to string) *Error {
	if !t.Allowed(from, to) {
		return Errf(KindInvalidTransition,
			fmt.Sprintf("invalid status transition %q -> %q", from, to))
	}
	return nil
}

// KVP suggestion lifecycle. A suggestion must pass review before it can be
// approved or rejected; implementation only follows approval.
const (
	KVPStatusSubmitted   = "submitted"
	KVPStatusInReview    = "in_review"
	KVPStatusApproved    = "approved"
	KVPStatusRejected    = "rejected"
	KVPStatusImplemented = "implemented"
)

// KVPTransitions is the allowed-transition table for KVP suggestions.
var KVPTransitions = TransitionTable{
	KVPStatusSubmitted: {KVPStatusInReview},
	KVPStatusInReview:  {KVPStatusApproved, KVPStatusRejected},
	KVPStatusApproved:  {KVPStatusImplemented},
}

// Shift plan lifecycle. Published plans can be pulled back to draft.
const (
	PlanStatusDraft     = "draft"
	PlanStatusPublished = "published"
	PlanStatusArchived  = "archived"
)

// PlanTransitions is the allowed-transition table for shift plans.
var PlanTransitions = TransitionTable{
	PlanStatusDraft:     {PlanStatusPublished},
	PlanStatusPublished: {PlanStatusDraft, PlanStatusArchived},
}

// Swap request lifecycle. Pending is the only live state.
const (
	SwapStatusPending   = "pending"
	SwapStatusAccepted  = "accepted"
	SwapStatusDeclined  = "declined"
	SwapStatusCancelled = "cancelled"
)

// SwapTransitions is the allowed-transition table for swap requests.
var SwapTransitions = TransitionTable{
	SwapStatusPending: {SwapStatusAccepted, SwapStatusDeclined, SwapStatusCancelled},
}

// Survey lifecycle.
const (
	SurveyStatusOpen   = "open"
	SurveyStatusClosed = "closed"
)

// SurveyTransitions is the allowed-transition table for surveys.
var SurveyTransitions = TransitionTable{
	SurveyStatusOpen: {SurveyStatusClosed},
}

// Tenant lifecycle. Suspended tenants can be reactivated; cancellation is
// terminal.
const (
	TenantStatusTrial     = "trial"
	TenantStatusActive    = "active"
	TenantStatusSuspended = "suspended"
	TenantStatusCancelled = "cancelled"
)

// TenantTransitions is the allowed-transition table for tenants.
var TenantTransitions = TransitionTable{
	TenantStatusTrial:     {TenantStatusActive, TenantStatusSuspended, TenantStatusCancelled},
	TenantStatusActive:    {TenantStatusSuspended, TenantStatusCancelled},
	TenantStatusSuspended: {TenantStatusActive, TenantStatusCancelled},
}
