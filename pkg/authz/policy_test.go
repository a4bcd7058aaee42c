package authz

import (
	"net/http"
	"testing"
)

func intPtr(v int64) *int64 { return &v }

func employee(userID int64) *Principal {
	return &Principal{UserID: userID, TenantID: 2, Role: RoleEmployee}
}

func admin(userID int64) *Principal {
	return &Principal{UserID: userID, TenantID: 2, Role: RoleAdmin}
}

func root(userID int64) *Principal {
	return &Principal{UserID: userID, TenantID: SystemTenantID, Role: RoleRoot}
}

func TestAuthorize_AdminOnlyMutations(t *testing.T) {
	adminKinds := []ResourceKind{
		KindDepartment, KindTeam, KindShiftTmpl, KindShiftPlan,
		KindNotification, KindSurvey,
	}

	for _, kind := range adminKinds {
		if err := Authorize(employee(7), Request{Kind: kind, Action: ActionCreate}); err == nil {
			t.Errorf("employee create on %s: expected denial", kind)
		} else if err.Kind != KindForbidden {
			t.Errorf("employee create on %s: kind = %s, want forbidden", kind, err.Kind)
		}

		if err := Authorize(admin(3), Request{Kind: kind, Action: ActionCreate}); err != nil {
			t.Errorf("admin create on %s: unexpected denial: %v", kind, err)
		}
		if err := Authorize(root(1), Request{Kind: kind, Action: ActionCreate}); err != nil {
			t.Errorf("root create on %s: unexpected denial: %v", kind, err)
		}
	}
}

func TestAuthorize_EmployeeDeleteDepartmentAlwaysForbidden(t *testing.T) {
	// The denial must not depend on whether the department exists or is
	// empty; the role gate fires before any lookup.
	err := Authorize(employee(7), Request{Kind: KindDepartment, Action: ActionDelete})
	if err == nil {
		t.Fatal("expected denial")
	}
	if err.HTTPStatus() != http.StatusForbidden {
		t.Errorf("status = %d, want 403", err.HTTPStatus())
	}
	if err.Reason == "" {
		t.Error("denial must carry a human-readable reason")
	}
}

func TestAuthorize_KVPOwnership(t *testing.T) {
	tests := []struct {
		name    string
		p       *Principal
		req     Request
		allowed bool
		reason  string
	}{
		{
			name:    "submitter edits own submitted suggestion",
			p:       employee(7),
			req:     Request{Kind: KindKVP, Action: ActionUpdate, OwnerID: 7, State: KVPStatusSubmitted},
			allowed: true,
		},
		{
			name:    "other employee cannot edit",
			p:       employee(8),
			req:     Request{Kind: KindKVP, Action: ActionUpdate, OwnerID: 7, State: KVPStatusSubmitted},
			allowed: false,
		},
		{
			name:    "submitter denied once in review",
			p:       employee(7),
			req:     Request{Kind: KindKVP, Action: ActionUpdate, OwnerID: 7, State: KVPStatusInReview},
			allowed: false,
			reason:  "already under review",
		},
		{
			name:    "admin bound by the same state gate",
			p:       admin(3),
			req:     Request{Kind: KindKVP, Action: ActionUpdate, OwnerID: 7, State: KVPStatusInReview},
			allowed: false,
			reason:  "already under review",
		},
		{
			name:    "delete follows the same rule",
			p:       employee(7),
			req:     Request{Kind: KindKVP, Action: ActionDelete, OwnerID: 7, State: KVPStatusApproved},
			allowed: false,
		},
		{
			name:    "employee cannot transition",
			p:       employee(7),
			req:     Request{Kind: KindKVP, Action: ActionTransition, OwnerID: 7},
			allowed: false,
		},
		{
			name:    "admin transitions",
			p:       admin(3),
			req:     Request{Kind: KindKVP, Action: ActionTransition},
			allowed: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Authorize(tt.p, tt.req)
			if tt.allowed && err != nil {
				t.Fatalf("unexpected denial: %v", err)
			}
			if !tt.allowed {
				if err == nil {
					t.Fatal("expected denial")
				}
				if tt.reason != "" && err.Reason != tt.reason {
					t.Errorf("reason = %q, want %q", err.Reason, tt.reason)
				}
			}
		})
	}
}

func TestAuthorize_SelfProtection(t *testing.T) {
	for _, p := range []*Principal{employee(7), admin(7), root(7)} {
		err := Authorize(p, Request{Kind: KindUser, Action: ActionDelete, TargetUserID: 7})
		if err == nil {
			t.Fatalf("%s deleting own account: expected denial", p.Role)
		}
		if err.Kind != KindSelfActionForbidden {
			t.Errorf("%s: kind = %s, want self_action_forbidden", p.Role, err.Kind)
		}

		err = Authorize(p, Request{Kind: KindUser, Action: ActionHardDelete, TargetUserID: 7})
		if err == nil || err.Kind != KindSelfActionForbidden {
			t.Errorf("%s hard-deleting own account: got %v, want self_action_forbidden", p.Role, err)
		}
	}

	// Demoting yourself is the same violation.
	err := Authorize(admin(3), Request{
		Kind: KindUser, Action: ActionUpdate, TargetUserID: 3, GrantRole: RoleEmployee,
	})
	if err == nil || err.Kind != KindSelfActionForbidden {
		t.Errorf("self-demotion: got %v, want self_action_forbidden", err)
	}

	// Updating your own profile without a role change stays allowed.
	if err := Authorize(employee(7), Request{Kind: KindUser, Action: ActionUpdate, TargetUserID: 7, OwnerID: 7}); err != nil {
		t.Errorf("own profile update denied: %v", err)
	}
}

func TestAuthorize_AdminRoleGrantRootOnly(t *testing.T) {
	err := Authorize(admin(3), Request{Kind: KindUser, Action: ActionCreate, GrantRole: RoleAdmin})
	if err == nil {
		t.Fatal("admin granting admin role: expected denial")
	}
	if err.Reason != "only root may grant the admin role" {
		t.Errorf("reason = %q, want the dedicated escalation message", err.Reason)
	}

	if err := Authorize(root(1), Request{Kind: KindUser, Action: ActionCreate, GrantRole: RoleAdmin}); err != nil {
		t.Errorf("root granting admin role denied: %v", err)
	}

	// Root role is never assignable, not even by root.
	if err := Authorize(root(1), Request{Kind: KindUser, Action: ActionCreate, GrantRole: RoleRoot}); err == nil {
		t.Error("root role assignment must be rejected")
	}
}

func TestAuthorize_SwapResponse(t *testing.T) {
	// OwnerID is the addressee when checking a response.
	if err := Authorize(employee(9), Request{
		Kind: KindSwapRequest, Action: ActionRespond, OwnerID: 9, State: SwapStatusPending,
	}); err != nil {
		t.Errorf("addressee response denied: %v", err)
	}

	if err := Authorize(employee(8), Request{
		Kind: KindSwapRequest, Action: ActionRespond, OwnerID: 9, State: SwapStatusPending,
	}); err == nil {
		t.Error("non-addressee response must be denied")
	}

	if err := Authorize(employee(9), Request{
		Kind: KindSwapRequest, Action: ActionRespond, OwnerID: 9, State: SwapStatusAccepted,
	}); err == nil {
		t.Error("responding to a settled swap request must be denied")
	}
}

func TestAuthorize_NilPrincipal(t *testing.T) {
	if err := Authorize(nil, Request{Kind: KindUser, Action: ActionRead}); err == nil {
		t.Fatal("nil principal must be denied")
	}
}

func TestAuthorize_UnknownOperation(t *testing.T) {
	err := Authorize(admin(3), Request{Kind: KindSession, Action: ActionCreate})
	if err == nil {
		t.Fatal("operation outside the table must be denied")
	}
}
