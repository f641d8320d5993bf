package domain

import "time"

// Case default statuses. Status is free-form text; these are the values the
// seeder and UI conventionally use.
const (
	CaseStatusOpen     = "Open"
	CaseStatusInReview = "In Review"
	CaseStatusClosed   = "Closed"
)

// Case is the aggregate for regulated case records. UpdatedAt doubles as the
// staleness anchor for summary drafts: any mutation of the case or its notes
// bumps it.
type Case struct {
	ID          string
	Title       string
	Status      string
	SummaryText *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
