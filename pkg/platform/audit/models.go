package audit

import (
	"context"
	"time"
)

// EventCategory classifies audit events by their primary purpose.
type EventCategory string

const (
	// CategoryCompliance covers changes to the roster itself.
	CategoryCompliance EventCategory = "compliance"
	// CategorySecurity covers admin sign-in activity.
	CategorySecurity EventCategory = "security"
	// CategoryOperations covers everything else.
	CategoryOperations EventCategory = "operations"
)

type AuditEvent string

const (
	EventParticipantConfirmed AuditEvent = "participant_confirmed"
	EventConfirmationFailed   AuditEvent = "confirmation_failed"

	EventAdminSignedIn     AuditEvent = "admin_signed_in"
	EventAdminSignInFailed AuditEvent = "admin_sign_in_failed"
	EventAdminSignedOut    AuditEvent = "admin_signed_out"
)

var eventCategories = map[AuditEvent]EventCategory{
	EventParticipantConfirmed: CategoryCompliance,
	EventConfirmationFailed:   CategoryCompliance,
	EventAdminSignedIn:        CategorySecurity,
	EventAdminSignInFailed:    CategorySecurity,
	EventAdminSignedOut:       CategorySecurity,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}

// Event is emitted from services and handlers to capture key actions.
type Event struct {
	Category  EventCategory `json:"category"`
	Timestamp time.Time     `json:"timestamp"`
	Action    AuditEvent    `json:"action"`
	// Subject is the record the action applied to, e.g. "national_wk:4".
	Subject   string `json:"subject,omitempty"`
	ActorID   string `json:"actor_id,omitempty"`
	IP        string `json:"ip,omitempty"`
	Reason    string `json:"reason,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// Store persists audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListRecent(ctx context.Context, limit int) ([]Event, error)
}
