package dto

import (
	"time"

	"github.com/spec-kit/case-service/internal/domain"
	"github.com/spec-kit/case-service/internal/service"
)

// CreateDraftRequest payload. Purpose defaults to INTERNAL_CASE_OVERVIEW.
type CreateDraftRequest struct {
	Purpose *string `json:"purpose"`
}

// CreateDraftResponse is the accepted-for-review response.
type CreateDraftResponse struct {
	DraftID          string `json:"draft_id"`
	Status           string `json:"status"`
	GenerationStatus string `json:"generation_status"`
	PollURL          string `json:"poll_url"`
}

// AcceptDraftRequest payload.
type AcceptDraftRequest struct {
	AcknowledgeStale bool `json:"acknowledge_stale"`
}

// RejectDraftRequest payload. ReasonCode is required.
type RejectDraftRequest struct {
	ReasonCode string  `json:"reason_code"`
	Comment    *string `json:"comment"`
}

// ProvenanceResponse mirrors a draft's immutable generation metadata.
type ProvenanceResponse struct {
	PromptTemplateID      string  `json:"prompt_template_id"`
	PromptTemplateVersion int     `json:"prompt_template_version"`
	PromptHash            string  `json:"prompt_hash"`
	ModelProvider         string  `json:"model_provider"`
	ModelID               string  `json:"model_id"`
	ModelConfig           string  `json:"model_config"`
	PolicyVersion         string  `json:"policy_version"`
	OutputHash            string  `json:"output_hash"`
	CreatedBy             string  `json:"created_by"`
	CorrelationID         *string `json:"correlation_id"`
}

// DraftResponse represents a summary draft with read-time freshness.
type DraftResponse struct {
	ID               string             `json:"id"`
	CaseID           string             `json:"case_id"`
	Purpose          string             `json:"purpose"`
	Status           string             `json:"status"`
	GenerationStatus string             `json:"generation_status"`
	ContentText      string             `json:"content_text"`
	SourceUpdatedAt  time.Time          `json:"source_updated_at"`
	InputFingerprint string             `json:"input_fingerprint"`
	Stale            bool               `json:"stale"`
	CaseUpdatedAt    time.Time          `json:"case_updated_at"`
	Provenance       ProvenanceResponse `json:"provenance"`
	CreatedAt        time.Time          `json:"created_at"`
	ExpiresAt        time.Time          `json:"expires_at"`
	ReviewedAt       *time.Time         `json:"reviewed_at"`
	ReviewedBy       *string            `json:"reviewed_by"`
}

// NewCreateDraftResponse maps the service result.
func NewCreateDraftResponse(res *service.CreateDraftResult) CreateDraftResponse {
	return CreateDraftResponse{
		DraftID:          res.DraftID,
		Status:           string(res.Status),
		GenerationStatus: string(res.GenerationStatus),
		PollURL:          res.PollURL,
	}
}

// NewDraftResponse maps a draft view.
func NewDraftResponse(view *service.DraftView) DraftResponse {
	d := view.Draft
	return DraftResponse{
		ID:               d.ID,
		CaseID:           d.CaseID,
		Purpose:          string(d.Purpose),
		Status:           string(d.Status),
		GenerationStatus: string(d.GenerationStatus),
		ContentText:      d.ContentText,
		SourceUpdatedAt:  d.SourceUpdatedAt,
		InputFingerprint: d.InputFingerprint,
		Stale:            view.Stale,
		CaseUpdatedAt:    view.CaseUpdatedAt,
		Provenance:       newProvenanceResponse(d.Provenance),
		CreatedAt:        d.CreatedAt,
		ExpiresAt:        d.ExpiresAt,
		ReviewedAt:       d.ReviewedAt,
		ReviewedBy:       d.ReviewedBy,
	}
}

func newProvenanceResponse(p domain.Provenance) ProvenanceResponse {
	return ProvenanceResponse{
		PromptTemplateID:      p.PromptTemplateID,
		PromptTemplateVersion: p.PromptTemplateVersion,
		PromptHash:            p.PromptHash,
		ModelProvider:         p.ModelProvider,
		ModelID:               p.ModelID,
		ModelConfig:           p.ModelConfig,
		PolicyVersion:         p.PolicyVersion,
		OutputHash:            p.OutputHash,
		CreatedBy:             p.CreatedBy,
		CorrelationID:         p.CorrelationID,
	}
}
