package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/case-service/internal/ai"
	"github.com/spec-kit/case-service/internal/domain"
	"github.com/spec-kit/case-service/internal/repository"
	"github.com/spec-kit/case-service/pkg/util"
)

type failingGenerator struct{}

func (failingGenerator) Generate(context.Context, ai.Request) (*ai.Result, error) {
	return nil, errors.New("provider unavailable")
}

type draftEnv struct {
	store  *repository.MemoryStore
	clock  *fakeClock
	cases  *CaseService
	drafts *SummaryDraftService
}

func newDraftEnv(t *testing.T, generator ai.Generator) *draftEnv {
	t.Helper()
	if generator == nil {
		generator = ai.NewFakeGenerator()
	}
	store := repository.NewMemoryStore()
	clock := newFakeClock()
	uow := repository.NewMemoryUnitOfWork()
	auditService := NewAuditService(store.Events(), clock.Now)
	caseService := NewCaseService(CaseDependencies{
		CaseRepo:   store.Cases(),
		NoteRepo:   store.Notes(),
		EventRepo:  store.Events(),
		Audit:      auditService,
		UnitOfWork: uow,
		Clock:      clock.Now,
	})
	draftService := NewSummaryDraftService(SummaryDraftDependencies{
		CaseRepo:   store.Cases(),
		NoteRepo:   store.Notes(),
		EventRepo:  store.Events(),
		DraftRepo:  store.Drafts(),
		Audit:      auditService,
		UnitOfWork: uow,
		Generator:  generator,
		Clock:      clock.Now,
	})
	return &draftEnv{store: store, clock: clock, cases: caseService, drafts: draftService}
}

func (e *draftEnv) mustCreateCaseWithNote(t *testing.T) *domain.Case {
	t.Helper()
	c, err := e.cases.CreateCase(context.Background(), CaseCreateInput{Title: "Quarterly compliance audit"})
	require.NoError(t, err)
	e.clock.Advance(time.Minute)
	_, err = e.cases.AddNote(context.Background(), c.ID, "Checklist distributed.", domain.UserActor("user", "REVIEWER"), nil)
	require.NoError(t, err)
	got, err := e.cases.GetCase(context.Background(), c.ID)
	require.NoError(t, err)
	return got
}

func (e *draftEnv) mustCreateDraft(t *testing.T, caseID string) *CreateDraftResult {
	t.Helper()
	result, err := e.drafts.CreateDraft(context.Background(), caseID, domain.PurposeInternalCaseOverview, nil)
	require.NoError(t, err)
	return result
}

func domainErrCode(t *testing.T, err error) string {
	t.Helper()
	var domainErr *util.DomainError
	require.ErrorAs(t, err, &domainErr)
	return domainErr.Code
}

func TestCreateDraftRecordsProvenance(t *testing.T) {
	env := newDraftEnv(t, nil)
	c := env.mustCreateCaseWithNote(t)

	correlation := "corr-1"
	result, err := env.drafts.CreateDraft(context.Background(), c.ID, domain.PurposeInternalCaseOverview, &correlation)
	require.NoError(t, err)

	assert.Equal(t, domain.DraftStatusDraft, result.Status)
	assert.Equal(t, domain.GenerationStatusCompleted, result.GenerationStatus)
	assert.Equal(t, "/api/cases/"+c.ID+"/summary-drafts/"+result.DraftID, result.PollURL)

	view, err := env.drafts.GetDraft(context.Background(), c.ID, result.DraftID)
	require.NoError(t, err)
	draft := view.Draft

	assert.False(t, view.Stale)
	assert.Equal(t, c.UpdatedAt, draft.SourceUpdatedAt)
	assert.NotEmpty(t, draft.ContentText)
	assert.NotEmpty(t, draft.InputFingerprint)
	assert.Equal(t, env.clock.Now().Add(DefaultDraftTTL), draft.ExpiresAt)

	prov := draft.Provenance
	assert.Equal(t, "case-summary-internal", prov.PromptTemplateID)
	assert.Equal(t, 1, prov.PromptTemplateVersion)
	assert.Equal(t, "FAKE", prov.ModelProvider)
	assert.Equal(t, "local-fake-v1", prov.ModelID)
	assert.Equal(t, "policy-v1", prov.PolicyVersion)
	assert.Equal(t, ServiceActorID, prov.CreatedBy)
	require.NotNil(t, prov.CorrelationID)
	assert.Equal(t, "corr-1", *prov.CorrelationID)
	assert.NotEmpty(t, prov.PromptHash)
	assert.NotEmpty(t, prov.OutputHash)

	chain, err := env.store.Events().ListChain(context.Background(), c.ID)
	require.NoError(t, err)
	last := chain[len(chain)-1]
	assert.Equal(t, domain.EventSummaryDraftCreated, last.Type)
	assert.Equal(t, domain.ActorTypeSystem, last.ActorType)
	assert.Equal(t, ServiceActorID, last.ActorID)
}

func TestCreateDraftSupersedesActiveDraft(t *testing.T) {
	env := newDraftEnv(t, nil)
	c := env.mustCreateCaseWithNote(t)

	first := env.mustCreateDraft(t, c.ID)
	env.clock.Advance(time.Minute)
	second := env.mustCreateDraft(t, c.ID)

	firstView, err := env.drafts.GetDraft(context.Background(), c.ID, first.DraftID)
	require.NoError(t, err)
	assert.Equal(t, domain.DraftStatusSuperseded, firstView.Draft.Status)

	secondView, err := env.drafts.GetDraft(context.Background(), c.ID, second.DraftID)
	require.NoError(t, err)
	assert.Equal(t, domain.DraftStatusDraft, secondView.Draft.Status)

	active, err := env.store.Drafts().ListActive(context.Background(), c.ID, domain.PurposeInternalCaseOverview)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, second.DraftID, active[0].ID)

	// exactly one superseded event for the one superseded draft
	chain, err := env.store.Events().ListChain(context.Background(), c.ID)
	require.NoError(t, err)
	superseded := 0
	for _, ev := range chain {
		if ev.Type == domain.EventSummaryDraftSuperseded {
			superseded++
		}
	}
	assert.Equal(t, 1, superseded)
}

func TestCreateDraftGenerationFailurePersistsNothing(t *testing.T) {
	env := newDraftEnv(t, failingGenerator{})
	c := env.mustCreateCaseWithNote(t)
	before, err := env.store.Events().ListChain(context.Background(), c.ID)
	require.NoError(t, err)

	_, err = env.drafts.CreateDraft(context.Background(), c.ID, domain.PurposeInternalCaseOverview, nil)
	require.Error(t, err)
	assert.Equal(t, "GENERATION_FAILED", domainErrCode(t, err))

	after, err := env.store.Events().ListChain(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Equal(t, len(before), len(after), "a failed generation must not append audit events")

	overdue, err := env.store.Drafts().ListActive(context.Background(), c.ID, domain.PurposeInternalCaseOverview)
	require.NoError(t, err)
	assert.Empty(t, overdue, "a failed generation must not persist a draft")
}

func TestGetDraftComputesStalenessAtReadTime(t *testing.T) {
	env := newDraftEnv(t, nil)
	c := env.mustCreateCaseWithNote(t)
	result := env.mustCreateDraft(t, c.ID)

	view, err := env.drafts.GetDraft(context.Background(), c.ID, result.DraftID)
	require.NoError(t, err)
	assert.False(t, view.Stale)

	env.clock.Advance(time.Minute)
	_, err = env.cases.AddNote(context.Background(), c.ID, "New development.", domain.UserActor("user", "REVIEWER"), nil)
	require.NoError(t, err)

	view, err = env.drafts.GetDraft(context.Background(), c.ID, result.DraftID)
	require.NoError(t, err)
	assert.True(t, view.Stale, "a case change after generation makes the draft stale")
	assert.True(t, view.CaseUpdatedAt.After(view.Draft.SourceUpdatedAt))
}

func TestAcceptDraftWritesSummaryIntoCase(t *testing.T) {
	env := newDraftEnv(t, nil)
	c := env.mustCreateCaseWithNote(t)
	result := env.mustCreateDraft(t, c.ID)
	reviewer := domain.UserActor("reviewer-7", "REVIEWER")

	env.clock.Advance(time.Minute)
	updated, err := env.drafts.AcceptDraft(context.Background(), c.ID, result.DraftID, false, reviewer, nil)
	require.NoError(t, err)

	require.NotNil(t, updated.SummaryText)
	view, err := env.drafts.GetDraft(context.Background(), c.ID, result.DraftID)
	require.NoError(t, err)
	assert.Equal(t, view.Draft.ContentText, *updated.SummaryText)
	assert.Equal(t, domain.DraftStatusAccepted, view.Draft.Status)
	require.NotNil(t, view.Draft.ReviewedBy)
	assert.Equal(t, "reviewer-7", *view.Draft.ReviewedBy)
	require.NotNil(t, view.Draft.ReviewedAt)

	chain, err := env.store.Events().ListChain(context.Background(), c.ID)
	require.NoError(t, err)
	last := chain[len(chain)-1]
	assert.Equal(t, domain.EventSummaryAccepted, last.Type)
	assert.Equal(t, "reviewer-7", last.ActorID)

	report, err := env.cases.VerifyAudit(context.Background(), c.ID)
	require.NoError(t, err)
	assert.True(t, report.Valid)
}

func TestAcceptStaleDraftRequiresAcknowledgement(t *testing.T) {
	env := newDraftEnv(t, nil)
	c := env.mustCreateCaseWithNote(t)
	result := env.mustCreateDraft(t, c.ID)
	reviewer := domain.UserActor("user", "REVIEWER")

	env.clock.Advance(time.Minute)
	_, err := env.cases.AddNote(context.Background(), c.ID, "Late-breaking note.", reviewer, nil)
	require.NoError(t, err)

	_, err = env.drafts.AcceptDraft(context.Background(), c.ID, result.DraftID, false, reviewer, nil)
	require.Error(t, err)
	assert.Equal(t, "CONFLICT", domainErrCode(t, err))

	// the refused accept left everything untouched
	view, err := env.drafts.GetDraft(context.Background(), c.ID, result.DraftID)
	require.NoError(t, err)
	assert.Equal(t, domain.DraftStatusDraft, view.Draft.Status)
	got, err := env.cases.GetCase(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Nil(t, got.SummaryText)

	// explicit acknowledgement lets the accept through
	updated, err := env.drafts.AcceptDraft(context.Background(), c.ID, result.DraftID, true, reviewer, nil)
	require.NoError(t, err)
	assert.NotNil(t, updated.SummaryText)
}

func TestAcceptExpiredDraftCommitsExpiryThenConflicts(t *testing.T) {
	env := newDraftEnv(t, nil)
	c := env.mustCreateCaseWithNote(t)
	result := env.mustCreateDraft(t, c.ID)
	reviewer := domain.UserActor("user", "REVIEWER")

	env.clock.Advance(DefaultDraftTTL + time.Hour)
	_, err := env.drafts.AcceptDraft(context.Background(), c.ID, result.DraftID, false, reviewer, nil)
	require.Error(t, err)
	assert.Equal(t, "CONFLICT", domainErrCode(t, err))

	// the lazy expiry transition committed despite the failed accept
	view, err := env.drafts.GetDraft(context.Background(), c.ID, result.DraftID)
	require.NoError(t, err)
	assert.Equal(t, domain.DraftStatusExpired, view.Draft.Status)

	chain, err := env.store.Events().ListChain(context.Background(), c.ID)
	require.NoError(t, err)
	last := chain[len(chain)-1]
	assert.Equal(t, domain.EventSummaryDraftExpired, last.Type)

	// a second accept hits the terminal state, not another expiry
	_, err = env.drafts.AcceptDraft(context.Background(), c.ID, result.DraftID, false, reviewer, nil)
	require.Error(t, err)
	assert.Equal(t, "INVALID_STATE", domainErrCode(t, err))
}

func TestRejectDraft(t *testing.T) {
	env := newDraftEnv(t, nil)
	c := env.mustCreateCaseWithNote(t)
	result := env.mustCreateDraft(t, c.ID)
	reviewer := domain.UserActor("reviewer-2", "REVIEWER")

	_, err := env.drafts.RejectDraft(context.Background(), c.ID, result.DraftID, "  ", nil, reviewer, nil)
	require.Error(t, err)
	assert.Equal(t, "VALIDATION_FAILED", domainErrCode(t, err))

	comment := "Too vague."
	view, err := env.drafts.RejectDraft(context.Background(), c.ID, result.DraftID, "INACCURATE", &comment, reviewer, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.DraftStatusRejected, view.Draft.Status)
	require.NotNil(t, view.Draft.ReviewedBy)
	assert.Equal(t, "reviewer-2", *view.Draft.ReviewedBy)

	chain, err := env.store.Events().ListChain(context.Background(), c.ID)
	require.NoError(t, err)
	last := chain[len(chain)-1]
	assert.Equal(t, domain.EventSummaryRejected, last.Type)
	require.NotNil(t, last.Payload)
	assert.Contains(t, *last.Payload, "INACCURATE")
	assert.Contains(t, *last.Payload, "Too vague.")

	// rejection is terminal
	_, err = env.drafts.RejectDraft(context.Background(), c.ID, result.DraftID, "INACCURATE", nil, reviewer, nil)
	require.Error(t, err)
	assert.Equal(t, "INVALID_STATE", domainErrCode(t, err))

	got, err := env.cases.GetCase(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Nil(t, got.SummaryText, "rejection must not touch the case summary")
}

func TestExpireOverdueIsIdempotent(t *testing.T) {
	env := newDraftEnv(t, nil)
	c := env.mustCreateCaseWithNote(t)
	result := env.mustCreateDraft(t, c.ID)

	env.clock.Advance(DefaultDraftTTL + time.Hour)

	overdue, err := env.drafts.ListOverdue(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, overdue, 1)
	assert.Equal(t, result.DraftID, overdue[0].ID)

	expired, err := env.drafts.ExpireOverdue(context.Background(), c.ID, result.DraftID)
	require.NoError(t, err)
	assert.True(t, expired)

	expired, err = env.drafts.ExpireOverdue(context.Background(), c.ID, result.DraftID)
	require.NoError(t, err)
	assert.False(t, expired, "a retired draft must not expire twice")

	chain, err := env.store.Events().ListChain(context.Background(), c.ID)
	require.NoError(t, err)
	count := 0
	for _, ev := range chain {
		if ev.Type == domain.EventSummaryDraftExpired {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestAcceptedSummaryMakesChainVerifiableEndToEnd(t *testing.T) {
	env := newDraftEnv(t, nil)
	c := env.mustCreateCaseWithNote(t)
	reviewer := domain.UserActor("user", "REVIEWER")

	first := env.mustCreateDraft(t, c.ID)
	env.clock.Advance(time.Minute)
	second := env.mustCreateDraft(t, c.ID)
	env.clock.Advance(time.Minute)

	_, err := env.drafts.AcceptDraft(context.Background(), c.ID, second.DraftID, false, reviewer, nil)
	require.NoError(t, err)

	// accepting bumped the case; the superseded draft is terminal either way
	firstView, err := env.drafts.GetDraft(context.Background(), c.ID, first.DraftID)
	require.NoError(t, err)
	assert.Equal(t, domain.DraftStatusSuperseded, firstView.Draft.Status)

	report, err := env.cases.VerifyAudit(context.Background(), c.ID)
	require.NoError(t, err)
	assert.True(t, report.Valid)
	assert.Equal(t, 5, report.Length) // note + created + superseded + created + accepted
}
