package audit

import (
	"strconv"
	"strings"
	"time"

	"github.com/spec-kit/case-service/internal/domain"
)

// FormatVersion tags the canonical serialization. Changing the field set or
// encoding is a breaking change and requires a new version tag; a verifier
// must know which version produced a chain segment.
const FormatVersion = "v2"

// CanonicalEvent builds the deterministic hash input for an audit event.
// Every field is length-prefixed (<len>:<value>) so free text containing the
// separator cannot collide with a different logical split of the same bytes.
// Absent optional fields encode as the empty string. CreatedAt must be fixed
// before calling; the digest commits to it.
func CanonicalEvent(ev *domain.AuditEvent) string {
	fields := []string{
		deref(ev.PrevHash),
		ev.CaseID,
		string(ev.Type),
		string(ev.ActorType),
		ev.ActorID,
		deref(ev.ActorRole),
		deref(ev.CorrelationID),
		ev.CreatedAt.UTC().Format(time.RFC3339Nano),
		ev.Message,
		deref(ev.Payload),
	}

	var b strings.Builder
	b.WriteString(FormatVersion)
	for _, f := range fields {
		b.WriteByte('|')
		b.WriteString(strconv.Itoa(len(f)))
		b.WriteByte(':')
		b.WriteString(f)
	}
	return b.String()
}

// EventHash computes the digest an event's Hash field must hold.
func EventHash(ev *domain.AuditEvent) string {
	return DigestString(CanonicalEvent(ev))
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
