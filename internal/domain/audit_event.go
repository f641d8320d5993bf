package domain

import "time"

// EventType is the closed enumeration of auditable actions.
type EventType string

const (
	EventNoteAdded              EventType = "NOTE_ADDED"
	EventNoteUpdated            EventType = "NOTE_UPDATED"
	EventNoteDeleted            EventType = "NOTE_DELETED"
	EventSummaryDraftCreated    EventType = "SUMMARY_DRAFT_CREATED"
	EventSummaryDraftSuperseded EventType = "SUMMARY_DRAFT_SUPERSEDED"
	EventSummaryDraftExpired    EventType = "SUMMARY_DRAFT_EXPIRED"
	EventSummaryAccepted        EventType = "SUMMARY_ACCEPTED"
	EventSummaryRejected        EventType = "SUMMARY_REJECTED"
)

// ActorType distinguishes human and service attribution.
type ActorType string

const (
	ActorTypeUser   ActorType = "USER"
	ActorTypeSystem ActorType = "SYSTEM"
)

// Actor is the already-resolved identity an audit event is attributed to.
type Actor struct {
	Type ActorType
	ID   string
	Role *string
}

// SystemActor attributes an event to a service identity.
func SystemActor(serviceID string) Actor {
	return Actor{Type: ActorTypeSystem, ID: serviceID}
}

// UserActor attributes an event to a human principal.
func UserActor(userID, role string) Actor {
	a := Actor{Type: ActorTypeUser, ID: userID}
	if role != "" {
		a.Role = &role
	}
	return a
}

// AuditEvent is one immutable entry in a case's hash chain. ID is assigned by
// the store in monotonically increasing order; chain order is assignment
// order, not timestamp order. PrevHash is nil only for the first event of a
// case. Hash commits to the event's entire canonical content including
// PrevHash and CreatedAt.
type AuditEvent struct {
	ID            int64
	CaseID        string
	Type          EventType
	Message       string
	Payload       *string
	ActorType     ActorType
	ActorID       string
	ActorRole     *string
	CorrelationID *string
	PrevHash      *string
	Hash          string
	CreatedAt     time.Time
}
