package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/case-service/internal/domain"
)

func TestFromAuditEventMapsAllFields(t *testing.T) {
	role := "REVIEWER"
	prev := "aaaa"
	payload := `{"noteId":"n-1"}`
	ev := &domain.AuditEvent{
		ID:        7,
		CaseID:    "case-1",
		Type:      domain.EventSummaryAccepted,
		Message:   "Summary accepted",
		Payload:   &payload,
		ActorType: domain.ActorTypeUser,
		ActorID:   "reviewer-1",
		ActorRole: &role,
		PrevHash:  &prev,
		Hash:      "bbbb",
		CreatedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}

	mirror := FromAuditEvent(ev)
	assert.Equal(t, EventSummaryAccepted, mirror.Type)
	assert.Equal(t, "case-1", mirror.CaseID)
	assert.Equal(t, "reviewer-1", mirror.Actor.ID)
	assert.Equal(t, int64(7), mirror.Payload.EventID)
	assert.Equal(t, "bbbb", mirror.Payload.Hash)
	require.NotNil(t, mirror.Payload.PrevHash)
	assert.Equal(t, "aaaa", *mirror.Payload.PrevHash)
	assert.Equal(t, ev.CreatedAt, mirror.Timestamp)
}

func TestEveryAuditTypeHasAMirror(t *testing.T) {
	auditTypes := []domain.EventType{
		domain.EventNoteAdded,
		domain.EventNoteUpdated,
		domain.EventNoteDeleted,
		domain.EventSummaryDraftCreated,
		domain.EventSummaryDraftSuperseded,
		domain.EventSummaryDraftExpired,
		domain.EventSummaryAccepted,
		domain.EventSummaryRejected,
	}
	require.Len(t, AllTypes(), len(auditTypes))
	for _, typ := range auditTypes {
		mirror := FromAuditEvent(&domain.AuditEvent{Type: typ})
		assert.NotEmpty(t, mirror.Type, "audit type %s has no dispatcher mapping", typ)
	}
}

func TestDispatcherDeliversToSubscribers(t *testing.T) {
	dispatcher := NewInMemoryDispatcher()

	var seen []string
	dispatcher.Subscribe(EventNoteAdded, func(_ context.Context, event Event) error {
		seen = append(seen, event.CaseID)
		return nil
	})
	dispatcher.Subscribe(EventNoteAdded, func(_ context.Context, _ Event) error {
		return errors.New("handler failure must not stop delivery")
	})
	dispatcher.Subscribe(EventNoteAdded, func(_ context.Context, event Event) error {
		seen = append(seen, event.CaseID+"-second")
		return nil
	})

	err := dispatcher.Publish(context.Background(), Event{Type: EventNoteAdded, CaseID: "case-1"})
	require.ErrorContains(t, err, "handler failure must not stop delivery")
	assert.Equal(t, []string{"case-1", "case-1-second"}, seen)

	// unrelated types are not delivered
	err = dispatcher.Publish(context.Background(), Event{Type: EventNoteDeleted, CaseID: "case-2"})
	require.NoError(t, err)
	assert.Len(t, seen, 2)
}
