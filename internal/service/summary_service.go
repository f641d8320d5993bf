package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/case-service/internal/ai"
	"github.com/spec-kit/case-service/internal/audit"
	"github.com/spec-kit/case-service/internal/domain"
	"github.com/spec-kit/case-service/internal/events"
	"github.com/spec-kit/case-service/internal/repository"
	"github.com/spec-kit/case-service/pkg/util"
)

const (
	snapshotNotesLimit  = 20
	snapshotEventsLimit = 50
)

// DefaultDraftTTL is how long a draft stays reviewable.
const DefaultDraftTTL = 7 * 24 * time.Hour

// SummaryDraftService governs the draft lifecycle: creation with input
// snapshotting and supersession, review (accept/reject) and expiry. Every
// transition commits atomically with its audit event under the per-case unit
// of work. The generation call runs before the write transaction so a
// provider failure or cancellation persists nothing.
type SummaryDraftService struct {
	cases      repository.CaseRepository
	notes      repository.NoteRepository
	eventsRepo repository.EventRepository
	drafts     repository.DraftRepository
	audit      *AuditService
	uow        repository.UnitOfWork
	generator  ai.Generator
	dispatcher events.Dispatcher
	clock      func() time.Time
	ttl        time.Duration
}

// SummaryDraftDependencies bundles collaborators for the draft service.
type SummaryDraftDependencies struct {
	CaseRepo   repository.CaseRepository
	NoteRepo   repository.NoteRepository
	EventRepo  repository.EventRepository
	DraftRepo  repository.DraftRepository
	Audit      *AuditService
	UnitOfWork repository.UnitOfWork
	Generator  ai.Generator
	Dispatcher events.Dispatcher
	Clock      func() time.Time
	TTL        time.Duration
}

// CreateDraftResult is returned by CreateDraft for the 202 response.
type CreateDraftResult struct {
	DraftID          string
	Status           domain.DraftStatus
	GenerationStatus domain.GenerationStatus
	PollURL          string
}

// DraftView is a draft plus read-time freshness data. Stale is computed, not
// stored.
type DraftView struct {
	Draft         *domain.SummaryDraft
	Stale         bool
	CaseUpdatedAt time.Time
}

// NewSummaryDraftService constructs the service.
func NewSummaryDraftService(deps SummaryDraftDependencies) *SummaryDraftService {
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	ttl := deps.TTL
	if ttl <= 0 {
		ttl = DefaultDraftTTL
	}
	return &SummaryDraftService{
		cases:      deps.CaseRepo,
		notes:      deps.NoteRepo,
		eventsRepo: deps.EventRepo,
		drafts:     deps.DraftRepo,
		audit:      deps.Audit,
		uow:        deps.UnitOfWork,
		generator:  deps.Generator,
		dispatcher: deps.Dispatcher,
		clock:      clock,
		ttl:        ttl,
	}
}

// CreateDraft snapshots the case inputs, invokes the generation collaborator,
// then atomically supersedes any active drafts for (case, purpose) and
// persists the new draft with its full provenance block.
func (s *SummaryDraftService) CreateDraft(ctx context.Context, caseID string, purpose domain.SummaryPurpose, correlationID *string) (*CreateDraftResult, error) {
	if purpose == "" {
		purpose = domain.PurposeInternalCaseOverview
	}

	c, err := s.cases.GetByID(ctx, caseID)
	if err != nil {
		return nil, mapNotFound(err, "case")
	}

	recentNotes, err := s.notes.ListByCase(ctx, caseID, snapshotNotesLimit)
	if err != nil {
		return nil, err
	}
	recentEvents, err := s.eventsRepo.ListByCase(ctx, caseID, snapshotEventsLimit)
	if err != nil {
		return nil, err
	}

	snapshot := snapshotText(c, len(recentNotes), len(recentEvents))
	inputFingerprint := audit.DigestString(snapshot)

	template, err := ai.ResolveTemplate(ai.TemplateCaseSummaryInternal)
	if err != nil {
		return nil, err
	}
	renderedPrompt := ai.RenderTemplate(template, map[string]string{
		"caseId":    c.ID,
		"title":     c.Title,
		"status":    c.Status,
		"updatedAt": c.UpdatedAt.UTC().Format(time.RFC3339),
		"notes":     formatNotes(recentNotes),
		"events":    formatEvents(recentEvents),
	})
	promptHash := audit.DigestString(renderedPrompt)

	profile := ai.ProfileLocalFakeSummarizer
	gen, err := s.generator.Generate(ctx, ai.Request{
		Purpose:               string(purpose),
		PromptTemplateID:      template.ID,
		PromptTemplateVersion: template.Version,
		RenderedPrompt:        renderedPrompt,
		ModelProfile:          profile,
		PolicyVersion:         ai.PolicyVersion,
		CorrelationID:         correlationID,
		Tags:                  map[string]string{"caseId": caseID},
	})
	if err != nil {
		// nothing has been written; the whole create is retryable
		return nil, util.NewGenerationFailed(err)
	}

	now := s.clock()
	draft := &domain.SummaryDraft{
		ID:               uuid.NewString(),
		CaseID:           caseID,
		Purpose:          purpose,
		Status:           domain.DraftStatusDraft,
		GenerationStatus: domain.GenerationStatusCompleted,
		SourceUpdatedAt:  c.UpdatedAt,
		InputFingerprint: inputFingerprint,
		Provenance: domain.Provenance{
			PromptTemplateID:      template.ID,
			PromptTemplateVersion: template.Version,
			PromptHash:            promptHash,
			ModelProvider:         gen.ProviderID,
			ModelID:               gen.ModelID,
			ModelConfig:           fmt.Sprintf(`{"profile":%q}`, profile),
			PolicyVersion:         ai.PolicyVersion,
			OutputHash:            audit.DigestString(gen.Text),
			CreatedBy:             ServiceActorID,
			CorrelationID:         correlationID,
		},
		ContentText: gen.Text,
		CreatedAt:   now,
		ExpiresAt:   now.Add(s.ttl),
	}

	var recorded []*domain.AuditEvent
	err = s.uow.InCase(ctx, caseID, func(ctx context.Context) error {
		active, err := s.drafts.ListActive(ctx, caseID, purpose)
		if err != nil {
			return err
		}
		for i := range active {
			superseded := &active[i]
			if err := s.transition(ctx, superseded, domain.DraftStatusSuperseded, nil, nil); err != nil {
				return err
			}
			ev, err := s.audit.Record(ctx, caseID, domain.EventSummaryDraftSuperseded,
				"Summary draft superseded", map[string]any{"draftId": superseded.ID},
				domain.SystemActor(ServiceActorID), correlationID)
			if err != nil {
				return err
			}
			recorded = append(recorded, ev)
		}

		if err := s.drafts.Create(ctx, draft); err != nil {
			return err
		}
		ev, err := s.audit.Record(ctx, caseID, domain.EventSummaryDraftCreated,
			"Summary draft created",
			map[string]any{"draftId": draft.ID, "purpose": purpose},
			domain.SystemActor(ServiceActorID), correlationID)
		if err != nil {
			return err
		}
		recorded = append(recorded, ev)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publishAll(ctx, recorded)

	return &CreateDraftResult{
		DraftID:          draft.ID,
		Status:           draft.Status,
		GenerationStatus: draft.GenerationStatus,
		PollURL:          fmt.Sprintf("/api/cases/%s/summary-drafts/%s", caseID, draft.ID),
	}, nil
}

// GetDraft loads a draft with its computed staleness.
func (s *SummaryDraftService) GetDraft(ctx context.Context, caseID, draftID string) (*DraftView, error) {
	c, err := s.cases.GetByID(ctx, caseID)
	if err != nil {
		return nil, mapNotFound(err, "case")
	}
	draft, err := s.drafts.GetByIDForCase(ctx, draftID, caseID)
	if err != nil {
		return nil, mapNotFound(err, "draft")
	}
	return &DraftView{
		Draft:         draft,
		Stale:         draft.Stale(c.UpdatedAt),
		CaseUpdatedAt: c.UpdatedAt,
	}, nil
}

// AcceptDraft writes the draft's content into the case record. The expiry
// self-transition commits even though the request then fails with a
// conflict; staleness conflicts leave everything untouched.
func (s *SummaryDraftService) AcceptDraft(ctx context.Context, caseID, draftID string, acknowledgeStale bool, reviewer domain.Actor, correlationID *string) (*domain.Case, error) {
	var (
		updated  *domain.Case
		expired  bool
		recorded []*domain.AuditEvent
	)

	err := s.uow.InCase(ctx, caseID, func(ctx context.Context) error {
		c, err := s.cases.GetByID(ctx, caseID)
		if err != nil {
			return mapNotFound(err, "case")
		}
		draft, err := s.drafts.GetByIDForCase(ctx, draftID, caseID)
		if err != nil {
			return mapNotFound(err, "draft")
		}

		if draft.Status != domain.DraftStatusDraft {
			return util.NewInvalidState("draft not reviewable",
				map[string]any{"status": draft.Status})
		}
		if draft.GenerationStatus != domain.GenerationStatusCompleted {
			return util.NewInvalidState("draft not ready",
				map[string]any{"generation_status": draft.GenerationStatus})
		}

		now := s.clock()
		if draft.Expired(now) {
			// the transition must commit even though the accept fails
			if err := s.transition(ctx, draft, domain.DraftStatusExpired, nil, nil); err != nil {
				return err
			}
			ev, err := s.audit.Record(ctx, caseID, domain.EventSummaryDraftExpired,
				"Summary draft expired", map[string]any{"draftId": draft.ID},
				domain.SystemActor(ServiceActorID), correlationID)
			if err != nil {
				return err
			}
			recorded = append(recorded, ev)
			expired = true
			return nil
		}

		if draft.Stale(c.UpdatedAt) && !acknowledgeStale {
			return util.NewConflict(
				"case changed since draft generation; set acknowledgeStale=true or regenerate",
				map[string]any{"case_updated_at": c.UpdatedAt, "source_updated_at": draft.SourceUpdatedAt})
		}

		content := draft.ContentText
		c.SummaryText = &content
		c.UpdatedAt = now
		if err := s.cases.Update(ctx, c); err != nil {
			return err
		}

		if err := s.transition(ctx, draft, domain.DraftStatusAccepted, &now, &reviewer.ID); err != nil {
			return err
		}
		ev, err := s.audit.Record(ctx, caseID, domain.EventSummaryAccepted,
			"Summary accepted",
			map[string]any{"draftId": draft.ID, "acknowledgeStale": acknowledgeStale},
			reviewer, correlationID)
		if err != nil {
			return err
		}
		recorded = append(recorded, ev)
		updated = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publishAll(ctx, recorded)

	if expired {
		return nil, util.NewConflict("draft expired", map[string]any{"draft_id": draftID})
	}
	return updated, nil
}

// RejectDraft retires a draft with a reviewer-supplied reason code.
func (s *SummaryDraftService) RejectDraft(ctx context.Context, caseID, draftID, reasonCode string, comment *string, reviewer domain.Actor, correlationID *string) (*DraftView, error) {
	if strings.TrimSpace(reasonCode) == "" {
		return nil, util.NewValidationError("reasonCode is required", nil)
	}

	var recorded []*domain.AuditEvent
	err := s.uow.InCase(ctx, caseID, func(ctx context.Context) error {
		if _, err := s.cases.GetByID(ctx, caseID); err != nil {
			return mapNotFound(err, "case")
		}
		draft, err := s.drafts.GetByIDForCase(ctx, draftID, caseID)
		if err != nil {
			return mapNotFound(err, "draft")
		}
		if draft.Status != domain.DraftStatusDraft {
			return util.NewInvalidState("draft not reviewable",
				map[string]any{"status": draft.Status})
		}

		now := s.clock()
		if err := s.transition(ctx, draft, domain.DraftStatusRejected, &now, &reviewer.ID); err != nil {
			return err
		}

		payload := map[string]any{"draftId": draft.ID, "reasonCode": reasonCode}
		if comment != nil && strings.TrimSpace(*comment) != "" {
			payload["comment"] = strings.TrimSpace(*comment)
		}
		ev, err := s.audit.Record(ctx, caseID, domain.EventSummaryRejected,
			"Summary rejected", payload, reviewer, correlationID)
		if err != nil {
			return err
		}
		recorded = append(recorded, ev)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publishAll(ctx, recorded)

	return s.GetDraft(ctx, caseID, draftID)
}

// ExpireOverdue transitions one overdue draft to EXPIRED if it is still in
// DRAFT status. Used by the background sweeper; returns false when another
// request already retired the draft.
func (s *SummaryDraftService) ExpireOverdue(ctx context.Context, caseID, draftID string) (bool, error) {
	var (
		expired  bool
		recorded []*domain.AuditEvent
	)
	err := s.uow.InCase(ctx, caseID, func(ctx context.Context) error {
		draft, err := s.drafts.GetByIDForCase(ctx, draftID, caseID)
		if err != nil {
			return mapNotFound(err, "draft")
		}
		if draft.Status != domain.DraftStatusDraft || !draft.Expired(s.clock()) {
			return nil
		}
		if err := s.transition(ctx, draft, domain.DraftStatusExpired, nil, nil); err != nil {
			return err
		}
		ev, err := s.audit.Record(ctx, caseID, domain.EventSummaryDraftExpired,
			"Summary draft expired", map[string]any{"draftId": draft.ID},
			domain.SystemActor(ServiceActorID), nil)
		if err != nil {
			return err
		}
		recorded = append(recorded, ev)
		expired = true
		return nil
	})
	if err != nil {
		return false, err
	}
	s.publishAll(ctx, recorded)
	return expired, nil
}

// ListOverdue exposes overdue drafts for the sweeper.
func (s *SummaryDraftService) ListOverdue(ctx context.Context, limit int) ([]domain.SummaryDraft, error) {
	return s.drafts.ListOverdue(ctx, s.clock(), limit)
}

func (s *SummaryDraftService) transition(ctx context.Context, draft *domain.SummaryDraft, next domain.DraftStatus, reviewedAt *time.Time, reviewedBy *string) error {
	if !domain.IsValidDraftTransition(draft.Status, next) {
		return util.NewInvalidState(
			fmt.Sprintf("cannot transition draft from %s to %s", draft.Status, next), nil)
	}
	draft.Status = next
	if reviewedAt != nil {
		draft.ReviewedAt = reviewedAt
	}
	if reviewedBy != nil {
		draft.ReviewedBy = reviewedBy
	}
	return s.drafts.Update(ctx, draft)
}

func (s *SummaryDraftService) publishAll(ctx context.Context, recorded []*domain.AuditEvent) {
	if s.dispatcher == nil {
		return
	}
	for _, ev := range recorded {
		event := events.FromAuditEvent(ev)
		event.ID = uuid.NewString()
		_ = s.dispatcher.Publish(ctx, event)
	}
}

func snapshotText(c *domain.Case, noteCount, eventCount int) string {
	return "caseId=" + c.ID +
		"|title=" + c.Title +
		"|status=" + c.Status +
		"|updatedAt=" + c.UpdatedAt.UTC().Format(time.RFC3339Nano) +
		"|notes=" + strconv.Itoa(noteCount) +
		"|events=" + strconv.Itoa(eventCount)
}

func formatNotes(notes []domain.CaseNote) string {
	if len(notes) == 0 {
		return "(none)"
	}
	var b strings.Builder
	for _, note := range notes {
		b.WriteString("- [")
		b.WriteString(note.CreatedAt.UTC().Format(time.RFC3339))
		b.WriteString("] ")
		b.WriteString(note.Body)
		b.WriteByte('\n')
	}
	return b.String()
}

func formatEvents(evs []domain.AuditEvent) string {
	if len(evs) == 0 {
		return "(none)"
	}
	var b strings.Builder
	for _, ev := range evs {
		b.WriteString("- [")
		b.WriteString(ev.CreatedAt.UTC().Format(time.RFC3339))
		b.WriteString("] ")
		b.WriteString(string(ev.Type))
		b.WriteString(": ")
		b.WriteString(ev.Message)
		b.WriteByte('\n')
	}
	return b.String()
}
