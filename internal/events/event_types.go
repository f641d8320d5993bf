package events

import (
	"time"

	"github.com/spec-kit/case-service/internal/domain"
)

// EventType enumerates dispatcher event identifiers. Audit mirror events map
// one-to-one onto the audit chain's event types.
type EventType string

const (
	EventNoteAdded              EventType = "note_added"
	EventNoteUpdated            EventType = "note_updated"
	EventNoteDeleted            EventType = "note_deleted"
	EventSummaryDraftCreated    EventType = "summary_draft_created"
	EventSummaryDraftSuperseded EventType = "summary_draft_superseded"
	EventSummaryDraftExpired    EventType = "summary_draft_expired"
	EventSummaryAccepted        EventType = "summary_accepted"
	EventSummaryRejected        EventType = "summary_rejected"
)

var auditToDispatch = map[domain.EventType]EventType{
	domain.EventNoteAdded:              EventNoteAdded,
	domain.EventNoteUpdated:            EventNoteUpdated,
	domain.EventNoteDeleted:            EventNoteDeleted,
	domain.EventSummaryDraftCreated:    EventSummaryDraftCreated,
	domain.EventSummaryDraftSuperseded: EventSummaryDraftSuperseded,
	domain.EventSummaryDraftExpired:    EventSummaryDraftExpired,
	domain.EventSummaryAccepted:        EventSummaryAccepted,
	domain.EventSummaryRejected:        EventSummaryRejected,
}

// Actor mirrors the audit attribution for subscribers.
type Actor struct {
	Type domain.ActorType `json:"type"`
	ID   string           `json:"id"`
	Role *string          `json:"role,omitempty"`
}

// AuditMirror carries the committed audit event's content.
type AuditMirror struct {
	EventID       int64            `json:"event_id"`
	EventType     domain.EventType `json:"event_type"`
	Message       string           `json:"message"`
	Payload       *string          `json:"payload,omitempty"`
	CorrelationID *string          `json:"correlation_id,omitempty"`
	Hash          string           `json:"hash"`
	PrevHash      *string          `json:"prev_hash,omitempty"`
}

// Event is published after the audit append it mirrors has committed.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	CaseID    string      `json:"case_id"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   AuditMirror `json:"payload"`
}

// FromAuditEvent builds the dispatcher mirror of a committed audit event.
func FromAuditEvent(ev *domain.AuditEvent) Event {
	return Event{
		Type:   auditToDispatch[ev.Type],
		CaseID: ev.CaseID,
		Actor: Actor{
			Type: ev.ActorType,
			ID:   ev.ActorID,
			Role: ev.ActorRole,
		},
		Timestamp: ev.CreatedAt,
		Payload: AuditMirror{
			EventID:       ev.ID,
			EventType:     ev.Type,
			Message:       ev.Message,
			Payload:       ev.Payload,
			CorrelationID: ev.CorrelationID,
			Hash:          ev.Hash,
			PrevHash:      ev.PrevHash,
		},
	}
}

// AllTypes lists every dispatcher event type, for subscribers that mirror the
// whole chain.
func AllTypes() []EventType {
	return []EventType{
		EventNoteAdded,
		EventNoteUpdated,
		EventNoteDeleted,
		EventSummaryDraftCreated,
		EventSummaryDraftSuperseded,
		EventSummaryDraftExpired,
		EventSummaryAccepted,
		EventSummaryRejected,
	}
}
