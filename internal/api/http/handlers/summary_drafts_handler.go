package handlers

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/case-service/internal/api/dto"
	"github.com/spec-kit/case-service/internal/auth"
	"github.com/spec-kit/case-service/internal/domain"
	"github.com/spec-kit/case-service/internal/service"
	apperrors "github.com/spec-kit/case-service/pkg/util"
)

// SummaryDraftsHandler manages the summary-draft review endpoints.
type SummaryDraftsHandler struct {
	service *service.SummaryDraftService
}

// NewSummaryDraftsHandler constructs handler.
func NewSummaryDraftsHandler(draftService *service.SummaryDraftService) *SummaryDraftsHandler {
	return &SummaryDraftsHandler{service: draftService}
}

// CreateDraft POST /api/cases/:id/summary-drafts. Responds 202: the draft is
// accepted for human review, never published directly.
func (h *SummaryDraftsHandler) CreateDraft(c *fiber.Ctx) error {
	var req dto.CreateDraftRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return apperrors.NewValidationError("invalid payload", nil)
		}
	}
	purpose := domain.PurposeInternalCaseOverview
	if req.Purpose != nil && strings.TrimSpace(*req.Purpose) != "" {
		purpose = domain.SummaryPurpose(strings.TrimSpace(*req.Purpose))
		if purpose != domain.PurposeInternalCaseOverview {
			return apperrors.NewValidationError("unknown purpose", map[string]any{"purpose": string(purpose)})
		}
	}

	result, err := h.service.CreateDraft(c.UserContext(), c.Params("id"), purpose, correlationID(c))
	if err != nil {
		return err
	}
	return c.Status(http.StatusAccepted).JSON(fiber.Map{"data": dto.NewCreateDraftResponse(result)})
}

// GetDraft GET /api/cases/:id/summary-drafts/:draftId.
func (h *SummaryDraftsHandler) GetDraft(c *fiber.Ctx) error {
	view, err := h.service.GetDraft(c.UserContext(), c.Params("id"), c.Params("draftId"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewDraftResponse(view)})
}

// AcceptDraft POST /api/cases/:id/summary-drafts/:draftId/accept.
func (h *SummaryDraftsHandler) AcceptDraft(c *fiber.Ctx) error {
	var req dto.AcceptDraftRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return apperrors.NewValidationError("invalid payload", nil)
		}
	}
	updated, err := h.service.AcceptDraft(c.UserContext(), c.Params("id"), c.Params("draftId"), req.AcknowledgeStale, auth.ActorFromContext(c), correlationID(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewCaseResponse(updated)})
}

// RejectDraft POST /api/cases/:id/summary-drafts/:draftId/reject.
func (h *SummaryDraftsHandler) RejectDraft(c *fiber.Ctx) error {
	var req dto.RejectDraftRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	view, err := h.service.RejectDraft(c.UserContext(), c.Params("id"), c.Params("draftId"), req.ReasonCode, req.Comment, auth.ActorFromContext(c), correlationID(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewDraftResponse(view)})
}
