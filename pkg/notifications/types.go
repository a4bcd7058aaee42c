package notifications

import (
	"time"

	"github.com/crewdesk/crewdesk/pkg/scope"
)

// Notification is a broadcast message addressed by visibility scope.
// Read state is tracked per user in a separate table.
type Notification struct {
	ID              int64       `json:"id"`
	TenantID        int64       `json:"tenantId"`
	SenderID        int64       `json:"senderId"`
	Title           string      `json:"title"`
	Body            string      `json:"body"`
	VisibilityScope scope.Scope `json:"visibilityScope"`
	TargetID        *int64      `json:"targetId,omitempty"`
	CreatedAt       time.Time   `json:"createdAt"`
	// Read is filled per viewer on listing.
	Read bool `json:"read"`
}

// Visibility assembles the scope metadata for this notification.
func (n *Notification) Visibility() scope.Visibility {
	return scope.Visibility{
		Scope:    n.VisibilityScope,
		TargetID: n.TargetID,
		OwnerID:  n.SenderID,
	}
}

// Preferences are per-user delivery settings, self-service only.
type Preferences struct {
	UserID       int64     `json:"userId"`
	TenantID     int64     `json:"tenantId"`
	EmailEnabled bool      `json:"emailEnabled"`
	PushEnabled  bool      `json:"pushEnabled"`
	ShiftAlerts  bool      `json:"shiftAlerts"`
	KVPUpdates   bool      `json:"kvpUpdates"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// DefaultPreferences returns the settings a user starts with.
func DefaultPreferences(tenantID, userID int64) *Preferences {
	return &Preferences{
		UserID:       userID,
		TenantID:     tenantID,
		EmailEnabled: true,
		PushEnabled:  true,
		ShiftAlerts:  true,
		KVPUpdates:   true,
	}
}

// BroadcastRequest is the admin payload for a new notification.
type BroadcastRequest struct {
	Title           string `json:"title"`
	Body            string `json:"body"`
	VisibilityScope string `json:"visibilityScope"`
	TargetID        *int64 `json:"targetId,omitempty"`
}

// UpdatePreferencesRequest carries optional preference toggles.
type UpdatePreferencesRequest struct {
	EmailEnabled *bool `json:"emailEnabled,omitempty"`
	PushEnabled  *bool `json:"pushEnabled,omitempty"`
	ShiftAlerts  *bool `json:"shiftAlerts,omitempty"`
	KVPUpdates   *bool `json:"kvpUpdates,omitempty"`
}
