package audit

import (
	"fmt"

	"github.com/spec-kit/case-service/internal/domain"
)

// ChainReport is the result of verifying one case's event chain.
type ChainReport struct {
	CaseID string `json:"case_id"`
	Length int    `json:"length"`
	Valid  bool   `json:"valid"`
	// FirstInvalid is the zero-based position of the first mismatch. Events
	// before it remain trusted. -1 when the chain is valid.
	FirstInvalid int    `json:"first_invalid"`
	Reason       string `json:"reason,omitempty"`
}

// VerifyChain recomputes every event's canonical digest and prev-link over
// the ordered (assignment order, ascending) event sequence of a single case.
// A mismatch at position k proves tampering or corruption at or before k.
func VerifyChain(caseID string, events []domain.AuditEvent) ChainReport {
	report := ChainReport{CaseID: caseID, Length: len(events), Valid: true, FirstInvalid: -1}

	var prevHash *string
	for i := range events {
		ev := &events[i]

		if ev.CaseID != caseID {
			return invalid(report, i, fmt.Sprintf("event %d belongs to case %s", ev.ID, ev.CaseID))
		}

		switch {
		case i == 0 && ev.PrevHash != nil:
			return invalid(report, i, "first event carries a prev hash")
		case i > 0 && ev.PrevHash == nil:
			return invalid(report, i, "missing prev hash")
		case i > 0 && *ev.PrevHash != *prevHash:
			return invalid(report, i, "prev hash does not match previous event")
		}

		if EventHash(ev) != ev.Hash {
			return invalid(report, i, "stored hash does not match recomputed digest")
		}
		prevHash = &events[i].Hash
	}
	return report
}

func invalid(report ChainReport, position int, reason string) ChainReport {
	report.Valid = false
	report.FirstInvalid = position
	report.Reason = reason
	return report
}
