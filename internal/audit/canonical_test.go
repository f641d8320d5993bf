package audit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/case-service/internal/domain"
)

func sampleEvent() *domain.AuditEvent {
	role := "REVIEWER"
	payload := `{"noteId":"n-1"}`
	return &domain.AuditEvent{
		CaseID:    "case-1",
		Type:      domain.EventNoteAdded,
		Message:   "Note added",
		Payload:   &payload,
		ActorType: domain.ActorTypeUser,
		ActorID:   "user",
		ActorRole: &role,
		CreatedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestCanonicalEventIsDeterministic(t *testing.T) {
	ev := sampleEvent()
	assert.Equal(t, CanonicalEvent(ev), CanonicalEvent(ev))
	assert.Equal(t, EventHash(ev), EventHash(ev))
}

func TestCanonicalEventLengthPrefixesFields(t *testing.T) {
	ev := sampleEvent()
	canonical := CanonicalEvent(ev)

	require.True(t, len(canonical) > 0)
	assert.Contains(t, canonical, "v2|")
	assert.Contains(t, canonical, "6:case-1")
	assert.Contains(t, canonical, "10:NOTE_ADDED")
	// absent optional fields encode as zero-length
	ev.CorrelationID = nil
	assert.Contains(t, CanonicalEvent(ev), "|0:|")
}

// Free text containing the separator must not collide with a different
// logical split of the same bytes.
func TestCanonicalEventSeparatorInContent(t *testing.T) {
	a := sampleEvent()
	a.Message = "x|y"
	a.Payload = nil

	b := sampleEvent()
	b.Message = "x"
	payload := "y"
	b.Payload = &payload

	assert.NotEqual(t, CanonicalEvent(a), CanonicalEvent(b))
	assert.NotEqual(t, EventHash(a), EventHash(b))
}

func TestEventHashCommitsToEveryField(t *testing.T) {
	base := EventHash(sampleEvent())

	mutations := []func(*domain.AuditEvent){
		func(ev *domain.AuditEvent) { ev.Message = "changed" },
		func(ev *domain.AuditEvent) { ev.CaseID = "case-2" },
		func(ev *domain.AuditEvent) { ev.Type = domain.EventNoteDeleted },
		func(ev *domain.AuditEvent) { ev.ActorID = "someone-else" },
		func(ev *domain.AuditEvent) { ev.ActorRole = nil },
		func(ev *domain.AuditEvent) { ev.Payload = nil },
		func(ev *domain.AuditEvent) { ev.CreatedAt = ev.CreatedAt.Add(time.Nanosecond) },
		func(ev *domain.AuditEvent) {
			prev := "deadbeef"
			ev.PrevHash = &prev
		},
	}
	for _, mutate := range mutations {
		ev := sampleEvent()
		mutate(ev)
		assert.NotEqual(t, base, EventHash(ev))
	}
}

func TestDigestString(t *testing.T) {
	// sha256("") is a fixed vector
	assert.Equal(t,
		"e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855",
		DigestString(""))
	assert.Len(t, DigestString("abc"), 64)
}
