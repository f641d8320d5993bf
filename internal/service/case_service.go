package service

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/case-service/internal/audit"
	"github.com/spec-kit/case-service/internal/domain"
	"github.com/spec-kit/case-service/internal/events"
	"github.com/spec-kit/case-service/internal/repository"
	"github.com/spec-kit/case-service/pkg/util"
)

// ServiceActorID is the system identity attributed to events the service
// emits on its own behalf.
const ServiceActorID = "case-service"

// CaseService coordinates case records, notes and the activity feed. Every
// note mutation is committed atomically with its audit event and bumps the
// case's UpdatedAt (the staleness anchor for summary drafts).
type CaseService struct {
	cases      repository.CaseRepository
	notes      repository.NoteRepository
	eventsRepo repository.EventRepository
	audit      *AuditService
	uow        repository.UnitOfWork
	dispatcher events.Dispatcher
	clock      func() time.Time
}

// CaseDependencies bundles collaborators for the case service.
type CaseDependencies struct {
	CaseRepo   repository.CaseRepository
	NoteRepo   repository.NoteRepository
	EventRepo  repository.EventRepository
	Audit      *AuditService
	UnitOfWork repository.UnitOfWork
	Dispatcher events.Dispatcher
	Clock      func() time.Time
}

// CaseCreateInput describes case creation payload.
type CaseCreateInput struct {
	Title  string
	Status string
}

// CaseUpdateInput describes a partial case update.
type CaseUpdateInput struct {
	Title  *string
	Status *string
}

// CaseListFilter describes listing parameters.
type CaseListFilter struct {
	Search *string
	Status *string
	Limit  int
	Offset int
}

// ActivityItem is one entry of the merged notes+events feed.
type ActivityItem struct {
	Kind      string // "EVENT" or "NOTE"
	ID        string
	CreatedAt time.Time
	EventType domain.EventType
	Message   string
	Payload   *string
	Body      string
}

// NewCaseService constructs the service.
func NewCaseService(deps CaseDependencies) *CaseService {
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	return &CaseService{
		cases:      deps.CaseRepo,
		notes:      deps.NoteRepo,
		eventsRepo: deps.EventRepo,
		audit:      deps.Audit,
		uow:        deps.UnitOfWork,
		dispatcher: deps.Dispatcher,
		clock:      clock,
	}
}

// CreateCase creates a case record, defaulting status to Open.
func (s *CaseService) CreateCase(ctx context.Context, input CaseCreateInput) (*domain.Case, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, util.NewValidationError("title is required", nil)
	}
	status := strings.TrimSpace(input.Status)
	if status == "" {
		status = domain.CaseStatusOpen
	}
	now := s.clock()
	c := &domain.Case{
		ID:        uuid.NewString(),
		Title:     title,
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.cases.Create(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// GetCase fetches one case.
func (s *CaseService) GetCase(ctx context.Context, caseID string) (*domain.Case, error) {
	c, err := s.cases.GetByID(ctx, caseID)
	if err != nil {
		return nil, mapNotFound(err, "case")
	}
	return c, nil
}

// ListCases returns cases matching the filter, newest first.
func (s *CaseService) ListCases(ctx context.Context, filter CaseListFilter) ([]domain.Case, error) {
	return s.cases.List(ctx, repository.CaseFilter{
		Search: filter.Search,
		Status: filter.Status,
		Limit:  filter.Limit,
		Offset: filter.Offset,
	})
}

// UpdateCase applies a partial update and bumps UpdatedAt. The read and
// write run inside the per-case unit of work so a concurrent summary accept
// cannot be overwritten with a stale snapshot of the case.
func (s *CaseService) UpdateCase(ctx context.Context, caseID string, input CaseUpdateInput) (*domain.Case, error) {
	if input.Title != nil && strings.TrimSpace(*input.Title) == "" {
		return nil, util.NewValidationError("title is required", nil)
	}
	if input.Status != nil && strings.TrimSpace(*input.Status) == "" {
		return nil, util.NewValidationError("status is required", nil)
	}

	var updated *domain.Case
	err := s.uow.InCase(ctx, caseID, func(ctx context.Context) error {
		c, err := s.cases.GetByID(ctx, caseID)
		if err != nil {
			return mapNotFound(err, "case")
		}
		if input.Title != nil {
			c.Title = strings.TrimSpace(*input.Title)
		}
		if input.Status != nil {
			c.Status = strings.TrimSpace(*input.Status)
		}
		c.UpdatedAt = s.clock()
		if err := s.cases.Update(ctx, c); err != nil {
			return mapNotFound(err, "case")
		}
		updated = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteCase removes a case; owned notes, events and drafts cascade with it.
// It takes the per-case lock so the delete does not interleave with an
// in-flight note or draft mutation.
func (s *CaseService) DeleteCase(ctx context.Context, caseID string) error {
	return s.uow.InCase(ctx, caseID, func(ctx context.Context) error {
		if err := s.cases.Delete(ctx, caseID); err != nil {
			return mapNotFound(err, "case")
		}
		return nil
	})
}

// AddNote appends a note and records NOTE_ADDED, atomically.
func (s *CaseService) AddNote(ctx context.Context, caseID, body string, actor domain.Actor, correlationID *string) (*domain.CaseNote, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, util.NewValidationError("body is required", nil)
	}
	note := &domain.CaseNote{
		ID:     uuid.NewString(),
		CaseID: caseID,
		Body:   body,
	}

	var recorded *domain.AuditEvent
	err := s.uow.InCase(ctx, caseID, func(ctx context.Context) error {
		c, err := s.cases.GetByID(ctx, caseID)
		if err != nil {
			return mapNotFound(err, "case")
		}
		now := s.clock()
		note.CreatedAt = now
		note.UpdatedAt = now
		if err := s.notes.Create(ctx, note); err != nil {
			return err
		}
		recorded, err = s.audit.Record(ctx, caseID, domain.EventNoteAdded, "Note added",
			map[string]any{"noteId": note.ID}, actor, correlationID)
		if err != nil {
			return err
		}
		return s.touchCase(ctx, c)
	})
	if err != nil {
		return nil, err
	}
	s.publishAudit(ctx, recorded)
	return note, nil
}

// UpdateNote edits a note's body and records NOTE_UPDATED, atomically.
func (s *CaseService) UpdateNote(ctx context.Context, caseID, noteID, body string, actor domain.Actor, correlationID *string) (*domain.CaseNote, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, util.NewValidationError("body is required", nil)
	}
	var note *domain.CaseNote
	var recorded *domain.AuditEvent
	err := s.uow.InCase(ctx, caseID, func(ctx context.Context) error {
		c, err := s.cases.GetByID(ctx, caseID)
		if err != nil {
			return mapNotFound(err, "case")
		}
		note, err = s.notes.GetByIDForCase(ctx, noteID, caseID)
		if err != nil {
			return mapNotFound(err, "note")
		}
		note.Body = body
		note.UpdatedAt = s.clock()
		if err := s.notes.Update(ctx, note); err != nil {
			return mapNotFound(err, "note")
		}
		recorded, err = s.audit.Record(ctx, caseID, domain.EventNoteUpdated, "Note updated",
			map[string]any{"noteId": noteID}, actor, correlationID)
		if err != nil {
			return err
		}
		return s.touchCase(ctx, c)
	})
	if err != nil {
		return nil, err
	}
	s.publishAudit(ctx, recorded)
	return note, nil
}

// DeleteNote removes a note and records NOTE_DELETED, atomically.
func (s *CaseService) DeleteNote(ctx context.Context, caseID, noteID string, actor domain.Actor, correlationID *string) error {
	var recorded *domain.AuditEvent
	err := s.uow.InCase(ctx, caseID, func(ctx context.Context) error {
		c, err := s.cases.GetByID(ctx, caseID)
		if err != nil {
			return mapNotFound(err, "case")
		}
		if err := s.notes.Delete(ctx, noteID, caseID); err != nil {
			return mapNotFound(err, "note")
		}
		recorded, err = s.audit.Record(ctx, caseID, domain.EventNoteDeleted, "Note deleted",
			map[string]any{"noteId": noteID}, actor, correlationID)
		if err != nil {
			return err
		}
		return s.touchCase(ctx, c)
	})
	if err != nil {
		return err
	}
	s.publishAudit(ctx, recorded)
	return nil
}

// Activity returns the merged notes+events feed, newest first.
func (s *CaseService) Activity(ctx context.Context, caseID string) ([]ActivityItem, error) {
	if _, err := s.cases.GetByID(ctx, caseID); err != nil {
		return nil, mapNotFound(err, "case")
	}

	notes, err := s.notes.ListByCase(ctx, caseID, 0)
	if err != nil {
		return nil, err
	}
	evs, err := s.eventsRepo.ListByCase(ctx, caseID, 0)
	if err != nil {
		return nil, err
	}

	items := make([]ActivityItem, 0, len(notes)+len(evs))
	for _, ev := range evs {
		items = append(items, ActivityItem{
			Kind:      "EVENT",
			ID:        eventItemID(ev.ID),
			CreatedAt: ev.CreatedAt,
			EventType: ev.Type,
			Message:   ev.Message,
			Payload:   ev.Payload,
		})
	}
	for _, note := range notes {
		items = append(items, ActivityItem{
			Kind:      "NOTE",
			ID:        note.ID,
			CreatedAt: note.CreatedAt,
			Body:      note.Body,
		})
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
	return items, nil
}

// VerifyAudit recomputes the case's audit chain.
func (s *CaseService) VerifyAudit(ctx context.Context, caseID string) (audit.ChainReport, error) {
	if _, err := s.cases.GetByID(ctx, caseID); err != nil {
		return audit.ChainReport{}, mapNotFound(err, "case")
	}
	return s.audit.VerifyChain(ctx, caseID)
}

func (s *CaseService) touchCase(ctx context.Context, c *domain.Case) error {
	c.UpdatedAt = s.clock()
	return s.cases.Update(ctx, c)
}

func (s *CaseService) publishAudit(ctx context.Context, recorded *domain.AuditEvent) {
	if s.dispatcher == nil || recorded == nil {
		return
	}
	event := events.FromAuditEvent(recorded)
	event.ID = uuid.NewString()
	_ = s.dispatcher.Publish(ctx, event)
}

func eventItemID(id int64) string {
	return "evt-" + strconv.FormatInt(id, 10)
}

func mapNotFound(err error, resource string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return util.NewNotFound(resource, nil)
	}
	return err
}
