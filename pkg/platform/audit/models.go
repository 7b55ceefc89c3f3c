package audit

import (
	"context"
	"time"
)

// EventCategory drives retention and routing of audit events.
type EventCategory string

const (
	// CategoryCompliance covers actions with legal significance for the
	// citizen: account creation, identity binding, grievance transitions.
	CategoryCompliance EventCategory = "compliance"
	// CategorySecurity covers authentication failures and operator sessions.
	CategorySecurity   EventCategory = "security"
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key actions. It stays
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Category  EventCategory
	Timestamp time.Time
	Action    string
	// Subject is the entity acted on: an account id, a grievance id or an
	// operator email.
	Subject   string
	ActorID   string
	Reason    string
	RequestID string
	IP        string
}

type AuditEvent string

const (
	EventAccountRegistered AuditEvent = "account_registered"
	EventIdentityBound     AuditEvent = "identity_bound"
	EventAuthFailed        AuditEvent = "auth_failed"
	EventLoggedIn          AuditEvent = "logged_in"

	EventAdminSessionCreated  AuditEvent = "admin_session_created"
	EventAdminSessionExtended AuditEvent = "admin_session_extended"
	EventAdminSessionRevoked  AuditEvent = "admin_session_revoked"
	EventAdminLoginFailed     AuditEvent = "admin_login_failed"
	EventAdminLockout         AuditEvent = "admin_lockout_triggered"

	EventGrievanceRaised        AuditEvent = "grievance_raised"
	EventGrievanceStatusChanged AuditEvent = "grievance_status_changed"
)

var eventCategories = map[AuditEvent]EventCategory{
	EventAccountRegistered:      CategoryCompliance,
	EventIdentityBound:          CategoryCompliance,
	EventGrievanceRaised:        CategoryCompliance,
	EventGrievanceStatusChanged: CategoryCompliance,

	EventAuthFailed:           CategorySecurity,
	EventAdminLoginFailed:     CategorySecurity,
	EventAdminLockout:         CategorySecurity,
	EventAdminSessionCreated:  CategorySecurity,
	EventAdminSessionRevoked:  CategorySecurity,
	EventAdminSessionExtended: CategoryOperations,
	EventLoggedIn:             CategoryOperations,
}

// Category returns the category for e; unknown events are operational.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}

// Store persists audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListBySubject(ctx context.Context, subject string) ([]Event, error)
}

// Emitter is the port services depend on.
type Emitter interface {
	Emit(ctx context.Context, event Event) error
}
