package dto

import (
	"time"

	"github.com/spec-kit/case-service/internal/domain"
	"github.com/spec-kit/case-service/internal/service"
)

// CreateCaseRequest payload.
type CreateCaseRequest struct {
	Title  string `json:"title"`
	Status string `json:"status"`
}

// UpdateCaseRequest payload. Omitted fields stay unchanged.
type UpdateCaseRequest struct {
	Title  *string `json:"title"`
	Status *string `json:"status"`
}

// CaseResponse represents a case record.
type CaseResponse struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Status      string    `json:"status"`
	SummaryText *string   `json:"summary_text"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NoteRequest payload for creating or updating a note.
type NoteRequest struct {
	Body string `json:"body"`
}

// NoteResponse represents a case note.
type NoteResponse struct {
	ID        string    `json:"id"`
	CaseID    string    `json:"case_id"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ActivityItemResponse is one entry of the merged notes and audit feed.
type ActivityItemResponse struct {
	Kind      string    `json:"kind"`
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	EventType string    `json:"event_type,omitempty"`
	Message   string    `json:"message,omitempty"`
	Payload   *string   `json:"payload,omitempty"`
	Body      string    `json:"body,omitempty"`
}

// NewCaseResponse maps a domain case.
func NewCaseResponse(c *domain.Case) CaseResponse {
	return CaseResponse{
		ID:          c.ID,
		Title:       c.Title,
		Status:      c.Status,
		SummaryText: c.SummaryText,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}

// NewNoteResponse maps a domain note.
func NewNoteResponse(n *domain.CaseNote) NoteResponse {
	return NoteResponse{
		ID:        n.ID,
		CaseID:    n.CaseID,
		Body:      n.Body,
		CreatedAt: n.CreatedAt,
		UpdatedAt: n.UpdatedAt,
	}
}

// NewActivityResponse maps the merged feed.
func NewActivityResponse(items []service.ActivityItem) []ActivityItemResponse {
	out := make([]ActivityItemResponse, 0, len(items))
	for _, item := range items {
		out = append(out, ActivityItemResponse{
			Kind:      item.Kind,
			ID:        item.ID,
			CreatedAt: item.CreatedAt,
			EventType: string(item.EventType),
			Message:   item.Message,
			Payload:   item.Payload,
			Body:      item.Body,
		})
	}
	return out
}
