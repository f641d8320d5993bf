package domain

import "time"

// DraftStatus enumerates lifecycle states for summary drafts. DRAFT is the
// only non-terminal state.
type DraftStatus string

const (
	DraftStatusDraft      DraftStatus = "DRAFT"
	DraftStatusSuperseded DraftStatus = "SUPERSEDED"
	DraftStatusAccepted   DraftStatus = "ACCEPTED"
	DraftStatusRejected   DraftStatus = "REJECTED"
	DraftStatusExpired    DraftStatus = "EXPIRED"
)

// GenerationStatus reports the state of the generation call behind a draft.
type GenerationStatus string

const (
	GenerationStatusPending   GenerationStatus = "PENDING"
	GenerationStatusCompleted GenerationStatus = "COMPLETED"
	GenerationStatusFailed    GenerationStatus = "FAILED"
)

// SummaryPurpose enumerates the use cases a summary may be generated for.
type SummaryPurpose string

const (
	PurposeInternalCaseOverview SummaryPurpose = "INTERNAL_CASE_OVERVIEW"
)

var allowedDraftTransitions = map[DraftStatus][]DraftStatus{
	DraftStatusDraft: {
		DraftStatusSuperseded,
		DraftStatusAccepted,
		DraftStatusRejected,
		DraftStatusExpired,
	},
	DraftStatusSuperseded: {},
	DraftStatusAccepted:   {},
	DraftStatusRejected:   {},
	DraftStatusExpired:    {},
}

// IsValidDraftTransition reports whether current may move to next. Terminal
// states have no outgoing transitions.
func IsValidDraftTransition(current, next DraftStatus) bool {
	for _, candidate := range allowedDraftTransitions[current] {
		if candidate == next {
			return true
		}
	}
	return false
}

// Provenance records exactly which template, model and policy produced a
// draft's content. Immutable once set.
type Provenance struct {
	PromptTemplateID      string
	PromptTemplateVersion int
	PromptHash            string
	ModelProvider         string
	ModelID               string
	ModelConfig           string
	PolicyVersion         string
	OutputHash            string
	CreatedBy             string
	CorrelationID         *string
}

// SummaryDraft is a proposed AI-generated case summary pending human review.
// SourceUpdatedAt snapshots the case's UpdatedAt at generation time; the
// draft is stale when the case has changed since.
type SummaryDraft struct {
	ID               string
	CaseID           string
	Purpose          SummaryPurpose
	Status           DraftStatus
	GenerationStatus GenerationStatus
	SourceUpdatedAt  time.Time
	InputFingerprint string
	Provenance       Provenance
	ContentText      string
	CreatedAt        time.Time
	ExpiresAt        time.Time
	ReviewedAt       *time.Time
	ReviewedBy       *string
}

// Stale reports whether the case changed after this draft's input snapshot.
func (d *SummaryDraft) Stale(caseUpdatedAt time.Time) bool {
	return caseUpdatedAt.After(d.SourceUpdatedAt)
}

// Expired reports whether the draft's TTL elapsed at the given instant.
func (d *SummaryDraft) Expired(now time.Time) bool {
	return now.After(d.ExpiresAt)
}
