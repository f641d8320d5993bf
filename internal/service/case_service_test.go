package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/case-service/internal/domain"
	"github.com/spec-kit/case-service/internal/repository"
)

type fakeClock struct {
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

type caseEnv struct {
	store *repository.MemoryStore
	clock *fakeClock
	audit *AuditService
	cases *CaseService
	uow   repository.UnitOfWork
}

func newCaseEnv(t *testing.T) *caseEnv {
	t.Helper()
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
	return &caseEnv{store: store, clock: clock, audit: auditService, cases: caseService, uow: uow}
}

func (e *caseEnv) mustCreateCase(t *testing.T, title string) *domain.Case {
	t.Helper()
	c, err := e.cases.CreateCase(context.Background(), CaseCreateInput{Title: title})
	require.NoError(t, err)
	return c
}

func TestCreateCaseDefaultsStatusToOpen(t *testing.T) {
	env := newCaseEnv(t)
	c := env.mustCreateCase(t, "Onboarding review")

	assert.Equal(t, domain.CaseStatusOpen, c.Status)
	assert.NotEmpty(t, c.ID)
	assert.Equal(t, env.clock.Now(), c.CreatedAt)
	assert.Nil(t, c.SummaryText)
}

func TestCreateCaseRequiresTitle(t *testing.T) {
	env := newCaseEnv(t)
	_, err := env.cases.CreateCase(context.Background(), CaseCreateInput{Title: "   "})
	require.Error(t, err)
}

func TestUpdateCaseBumpsUpdatedAt(t *testing.T) {
	env := newCaseEnv(t)
	c := env.mustCreateCase(t, "Quarterly audit")

	env.clock.Advance(time.Minute)
	status := domain.CaseStatusInReview
	updated, err := env.cases.UpdateCase(context.Background(), c.ID, CaseUpdateInput{Status: &status})
	require.NoError(t, err)

	assert.Equal(t, domain.CaseStatusInReview, updated.Status)
	assert.True(t, updated.UpdatedAt.After(c.CreatedAt))
}

// A partial update started while another writer holds the per-case lock must
// re-read the case after that writer commits. Here the lock holder writes
// summary_text the way a summary accept does; an update that snapshots the
// case before the lock would persist summary_text back to nil.
func TestUpdateCaseDoesNotOverwriteConcurrentSummaryWrite(t *testing.T) {
	env := newCaseEnv(t)
	c := env.mustCreateCase(t, "Concurrent review")
	ctx := context.Background()

	entered := make(chan struct{})
	release := make(chan struct{})
	holderDone := make(chan error, 1)
	go func() {
		holderDone <- env.uow.InCase(ctx, c.ID, func(ctx context.Context) error {
			close(entered)
			<-release
			held, err := env.store.Cases().GetByID(ctx, c.ID)
			if err != nil {
				return err
			}
			summary := "Accepted summary text."
			held.SummaryText = &summary
			return env.store.Cases().Update(ctx, held)
		})
	}()
	<-entered

	updatedCh := make(chan *domain.Case, 1)
	errCh := make(chan error, 1)
	go func() {
		title := "Concurrent review (renamed)"
		updated, err := env.cases.UpdateCase(ctx, c.ID, CaseUpdateInput{Title: &title})
		updatedCh <- updated
		errCh <- err
	}()

	time.Sleep(10 * time.Millisecond)
	close(release)
	require.NoError(t, <-holderDone)

	updated := <-updatedCh
	require.NoError(t, <-errCh)
	assert.Equal(t, "Concurrent review (renamed)", updated.Title)
	require.NotNil(t, updated.SummaryText)
	assert.Equal(t, "Accepted summary text.", *updated.SummaryText)

	final, err := env.store.Cases().GetByID(ctx, c.ID)
	require.NoError(t, err)
	require.NotNil(t, final.SummaryText)
	assert.Equal(t, "Accepted summary text.", *final.SummaryText)
}

func TestAddNoteRecordsChainedAuditEvent(t *testing.T) {
	env := newCaseEnv(t)
	c := env.mustCreateCase(t, "Incident follow-up")
	actor := domain.UserActor("reviewer-7", "REVIEWER")

	env.clock.Advance(time.Minute)
	note, err := env.cases.AddNote(context.Background(), c.ID, "Initial intake completed.", actor, nil)
	require.NoError(t, err)
	assert.Equal(t, "Initial intake completed.", note.Body)

	env.clock.Advance(time.Minute)
	_, err = env.cases.AddNote(context.Background(), c.ID, "Second note.", actor, nil)
	require.NoError(t, err)

	chain, err := env.store.Events().ListChain(context.Background(), c.ID)
	require.NoError(t, err)
	require.Len(t, chain, 2)

	first, second := chain[0], chain[1]
	assert.Equal(t, domain.EventNoteAdded, first.Type)
	assert.Nil(t, first.PrevHash)
	require.NotNil(t, second.PrevHash)
	assert.Equal(t, first.Hash, *second.PrevHash)
	assert.Equal(t, domain.ActorTypeUser, first.ActorType)
	assert.Equal(t, "reviewer-7", first.ActorID)
	require.NotNil(t, first.Payload)
	assert.Contains(t, *first.Payload, note.ID)

	// note mutations move the staleness anchor
	got, err := env.cases.GetCase(context.Background(), c.ID)
	require.NoError(t, err)
	assert.True(t, got.UpdatedAt.After(c.CreatedAt))
}

func TestAddNoteRequiresBody(t *testing.T) {
	env := newCaseEnv(t)
	c := env.mustCreateCase(t, "Case")
	_, err := env.cases.AddNote(context.Background(), c.ID, "  ", domain.UserActor("user", "REVIEWER"), nil)
	require.Error(t, err)

	chain, err := env.store.Events().ListChain(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Empty(t, chain)
}

func TestUpdateAndDeleteNote(t *testing.T) {
	env := newCaseEnv(t)
	c := env.mustCreateCase(t, "Case")
	actor := domain.UserActor("user", "REVIEWER")

	note, err := env.cases.AddNote(context.Background(), c.ID, "draft text", actor, nil)
	require.NoError(t, err)

	env.clock.Advance(time.Minute)
	updated, err := env.cases.UpdateNote(context.Background(), c.ID, note.ID, "final text", actor, nil)
	require.NoError(t, err)
	assert.Equal(t, "final text", updated.Body)

	env.clock.Advance(time.Minute)
	require.NoError(t, env.cases.DeleteNote(context.Background(), c.ID, note.ID, actor, nil))

	_, err = env.cases.UpdateNote(context.Background(), c.ID, note.ID, "too late", actor, nil)
	require.Error(t, err)

	chain, err := env.store.Events().ListChain(context.Background(), c.ID)
	require.NoError(t, err)
	require.Len(t, chain, 3)
	assert.Equal(t, domain.EventNoteAdded, chain[0].Type)
	assert.Equal(t, domain.EventNoteUpdated, chain[1].Type)
	assert.Equal(t, domain.EventNoteDeleted, chain[2].Type)
}

func TestActivityMergesNotesAndEvents(t *testing.T) {
	env := newCaseEnv(t)
	c := env.mustCreateCase(t, "Case")
	actor := domain.UserActor("user", "REVIEWER")

	env.clock.Advance(time.Minute)
	note, err := env.cases.AddNote(context.Background(), c.ID, "first note", actor, nil)
	require.NoError(t, err)

	env.clock.Advance(time.Minute)
	_, err = env.cases.AddNote(context.Background(), c.ID, "second note", actor, nil)
	require.NoError(t, err)

	items, err := env.cases.Activity(context.Background(), c.ID)
	require.NoError(t, err)
	require.Len(t, items, 4) // 2 notes + 2 audit events

	for i := 1; i < len(items); i++ {
		assert.False(t, items[i].CreatedAt.After(items[i-1].CreatedAt), "feed must be newest first")
	}

	kinds := map[string]int{}
	ids := map[string]bool{}
	for _, item := range items {
		kinds[item.Kind]++
		ids[item.ID] = true
	}
	assert.Equal(t, 2, kinds["NOTE"])
	assert.Equal(t, 2, kinds["EVENT"])
	assert.True(t, ids[note.ID])
	assert.True(t, ids["evt-1"])
}

func TestVerifyAuditReportsValidChain(t *testing.T) {
	env := newCaseEnv(t)
	c := env.mustCreateCase(t, "Case")
	actor := domain.UserActor("user", "REVIEWER")

	for _, body := range []string{"one", "two", "three"} {
		env.clock.Advance(time.Second)
		_, err := env.cases.AddNote(context.Background(), c.ID, body, actor, nil)
		require.NoError(t, err)
	}

	report, err := env.cases.VerifyAudit(context.Background(), c.ID)
	require.NoError(t, err)
	assert.True(t, report.Valid)
	assert.Equal(t, 3, report.Length)
}

func TestDeleteCaseCascades(t *testing.T) {
	env := newCaseEnv(t)
	c := env.mustCreateCase(t, "Case")
	_, err := env.cases.AddNote(context.Background(), c.ID, "note", domain.UserActor("user", "REVIEWER"), nil)
	require.NoError(t, err)

	require.NoError(t, env.cases.DeleteCase(context.Background(), c.ID))

	_, err = env.cases.GetCase(context.Background(), c.ID)
	require.Error(t, err)
	chain, err := env.store.Events().ListChain(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Empty(t, chain)
}
