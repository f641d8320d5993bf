package domain

import "time"

// CaseNote is a free-text note attached to a case. Notes are mutable; every
// mutation is recorded through the audit chain.
type CaseNote struct {
	ID        string
	CaseID    string
	Body      string
	CreatedAt time.Time
	UpdatedAt time.Time
}
