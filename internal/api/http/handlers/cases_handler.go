package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/case-service/internal/api/dto"
	"github.com/spec-kit/case-service/internal/auth"
	"github.com/spec-kit/case-service/internal/service"
	apperrors "github.com/spec-kit/case-service/pkg/util"
)

const (
	defaultPageSize = 20
	maxPageSize     = 50
)

// CasesHandler manages case and note endpoints.
type CasesHandler struct {
	service *service.CaseService
}

// NewCasesHandler constructs handler.
func NewCasesHandler(caseService *service.CaseService) *CasesHandler {
	return &CasesHandler{service: caseService}
}

// CreateCase POST /api/cases.
func (h *CasesHandler) CreateCase(c *fiber.Ctx) error {
	var req dto.CreateCaseRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	created, err := h.service.CreateCase(c.UserContext(), service.CaseCreateInput{
		Title:  req.Title,
		Status: req.Status,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewCaseResponse(created)})
}

// ListCases GET /api/cases.
func (h *CasesHandler) ListCases(c *fiber.Ctx) error {
	filter := service.CaseListFilter{}
	if search := strings.TrimSpace(c.Query("search")); search != "" {
		filter.Search = &search
	}
	if status := strings.TrimSpace(c.Query("status")); status != "" {
		filter.Status = &status
	}
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), defaultPageSize)
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	filter.Offset = (page - 1) * pageSize
	filter.Limit = pageSize

	cases, err := h.service.ListCases(c.UserContext(), filter)
	if err != nil {
		return err
	}
	items := make([]dto.CaseResponse, 0, len(cases))
	for i := range cases {
		items = append(items, dto.NewCaseResponse(&cases[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetCase GET /api/cases/:id.
func (h *CasesHandler) GetCase(c *fiber.Ctx) error {
	found, err := h.service.GetCase(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewCaseResponse(found)})
}

// UpdateCase PUT /api/cases/:id.
func (h *CasesHandler) UpdateCase(c *fiber.Ctx) error {
	var req dto.UpdateCaseRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	updated, err := h.service.UpdateCase(c.UserContext(), c.Params("id"), service.CaseUpdateInput{
		Title:  req.Title,
		Status: req.Status,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewCaseResponse(updated)})
}

// DeleteCase DELETE /api/cases/:id.
func (h *CasesHandler) DeleteCase(c *fiber.Ctx) error {
	if err := h.service.DeleteCase(c.UserContext(), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// AddNote POST /api/cases/:id/notes.
func (h *CasesHandler) AddNote(c *fiber.Ctx) error {
	var req dto.NoteRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	note, err := h.service.AddNote(c.UserContext(), c.Params("id"), req.Body, auth.ActorFromContext(c), correlationID(c))
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewNoteResponse(note)})
}

// UpdateNote PUT /api/cases/:id/notes/:noteId.
func (h *CasesHandler) UpdateNote(c *fiber.Ctx) error {
	var req dto.NoteRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	note, err := h.service.UpdateNote(c.UserContext(), c.Params("id"), c.Params("noteId"), req.Body, auth.ActorFromContext(c), correlationID(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewNoteResponse(note)})
}

// DeleteNote DELETE /api/cases/:id/notes/:noteId.
func (h *CasesHandler) DeleteNote(c *fiber.Ctx) error {
	if err := h.service.DeleteNote(c.UserContext(), c.Params("id"), c.Params("noteId"), auth.ActorFromContext(c), correlationID(c)); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// Activity GET /api/cases/:id/activity.
func (h *CasesHandler) Activity(c *fiber.Ctx) error {
	items, err := h.service.Activity(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewActivityResponse(items)})
}

// VerifyAudit GET /api/cases/:id/audit/verify.
func (h *CasesHandler) VerifyAudit(c *fiber.Ctx) error {
	report, err := h.service.VerifyAudit(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": report})
}

func correlationID(c *fiber.Ctx) *string {
	if val := strings.TrimSpace(c.Get("X-Correlation-Id")); val != "" {
		return &val
	}
	return nil
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}
