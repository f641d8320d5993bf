package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/spec-kit/case-service/internal/domain"
)

// MemoryStore backs all repositories with in-process maps. It serves tests
// and DSN-less development mode, so the service still runs when no postgres
// DSN is configured.
// Writes apply immediately; atomicity comes from the per-case lock in
// MemoryUnitOfWork serializing every mutating flow.
type MemoryStore struct {
	mu      sync.RWMutex
	cases   map[string]domain.Case
	notes   map[string]domain.CaseNote
	drafts  map[string]domain.SummaryDraft
	events  []domain.AuditEvent
	eventID int64
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		cases:  make(map[string]domain.Case),
		notes:  make(map[string]domain.CaseNote),
		drafts: make(map[string]domain.SummaryDraft),
	}
}

// Cases returns the case repository view of the store.
func (s *MemoryStore) Cases() CaseRepository { return &memoryCaseRepo{store: s} }

// Notes returns the note repository view of the store.
func (s *MemoryStore) Notes() NoteRepository { return &memoryNoteRepo{store: s} }

// Events returns the event repository view of the store.
func (s *MemoryStore) Events() EventRepository { return &memoryEventRepo{store: s} }

// Drafts returns the draft repository view of the store.
func (s *MemoryStore) Drafts() DraftRepository { return &memoryDraftRepo{store: s} }

// memoryUnitOfWork serializes same-case work with a keyed mutex. There is no
// rollback; callers order reads and external calls before writes so a failed
// flow leaves no partial state.
type memoryUnitOfWork struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewMemoryUnitOfWork builds the in-process unit of work.
func NewMemoryUnitOfWork() UnitOfWork {
	return &memoryUnitOfWork{locks: make(map[string]*sync.Mutex)}
}

func (u *memoryUnitOfWork) InCase(ctx context.Context, caseID string, fn func(ctx context.Context) error) error {
	u.mu.Lock()
	lock, ok := u.locks[caseID]
	if !ok {
		lock = &sync.Mutex{}
		u.locks[caseID] = lock
	}
	u.mu.Unlock()

	lock.Lock()
	defer lock.Unlock()
	return fn(ctx)
}

type memoryCaseRepo struct {
	store *MemoryStore
}

func (r *memoryCaseRepo) Create(_ context.Context, c *domain.Case) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	now := time.Now()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = c.CreatedAt
	}
	r.store.cases[c.ID] = *c
	return nil
}

func (r *memoryCaseRepo) Update(_ context.Context, c *domain.Case) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.cases[c.ID]; !ok {
		return ErrNotFound
	}
	r.store.cases[c.ID] = *c
	return nil
}

func (r *memoryCaseRepo) GetByID(_ context.Context, id string) (*domain.Case, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	c, ok := r.store.cases[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &c, nil
}

func (r *memoryCaseRepo) Delete(_ context.Context, id string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.cases[id]; !ok {
		return ErrNotFound
	}
	delete(r.store.cases, id)
	for noteID, note := range r.store.notes {
		if note.CaseID == id {
			delete(r.store.notes, noteID)
		}
	}
	for draftID, draft := range r.store.drafts {
		if draft.CaseID == id {
			delete(r.store.drafts, draftID)
		}
	}
	kept := r.store.events[:0]
	for _, ev := range r.store.events {
		if ev.CaseID != id {
			kept = append(kept, ev)
		}
	}
	r.store.events = kept
	return nil
}

func (r *memoryCaseRepo) List(_ context.Context, filter CaseFilter) ([]domain.Case, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var result []domain.Case
	for _, c := range r.store.cases {
		if filter.Search != nil && !containsFold(c.Title, *filter.Search) {
			continue
		}
		if filter.Status != nil && !containsFold(c.Status, *filter.Status) {
			continue
		}
		result = append(result, c)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return paginate(result, filter.Limit, filter.Offset), nil
}

func (r *memoryCaseRepo) Count(_ context.Context) (int64, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	return int64(len(r.store.cases)), nil
}

type memoryNoteRepo struct {
	store *MemoryStore
}

func (r *memoryNoteRepo) Create(_ context.Context, note *domain.CaseNote) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	now := time.Now()
	if note.CreatedAt.IsZero() {
		note.CreatedAt = now
	}
	if note.UpdatedAt.IsZero() {
		note.UpdatedAt = note.CreatedAt
	}
	r.store.notes[note.ID] = *note
	return nil
}

func (r *memoryNoteRepo) Update(_ context.Context, note *domain.CaseNote) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	existing, ok := r.store.notes[note.ID]
	if !ok || existing.CaseID != note.CaseID {
		return ErrNotFound
	}
	r.store.notes[note.ID] = *note
	return nil
}

func (r *memoryNoteRepo) GetByIDForCase(_ context.Context, noteID, caseID string) (*domain.CaseNote, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	note, ok := r.store.notes[noteID]
	if !ok || note.CaseID != caseID {
		return nil, ErrNotFound
	}
	return &note, nil
}

func (r *memoryNoteRepo) Delete(_ context.Context, noteID, caseID string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	note, ok := r.store.notes[noteID]
	if !ok || note.CaseID != caseID {
		return ErrNotFound
	}
	delete(r.store.notes, noteID)
	return nil
}

func (r *memoryNoteRepo) ListByCase(_ context.Context, caseID string, limit int) ([]domain.CaseNote, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var result []domain.CaseNote
	for _, note := range r.store.notes {
		if note.CaseID == caseID {
			result = append(result, note)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

type memoryEventRepo struct {
	store *MemoryStore
}

func (r *memoryEventRepo) Append(_ context.Context, ev *domain.AuditEvent) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.eventID++
	ev.ID = r.store.eventID
	r.store.events = append(r.store.events, *ev)
	return nil
}

func (r *memoryEventRepo) LatestByCase(_ context.Context, caseID string) (*domain.AuditEvent, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	for i := len(r.store.events) - 1; i >= 0; i-- {
		if r.store.events[i].CaseID == caseID {
			ev := r.store.events[i]
			return &ev, nil
		}
	}
	return nil, ErrNotFound
}

func (r *memoryEventRepo) ListByCase(_ context.Context, caseID string, limit int) ([]domain.AuditEvent, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	var result []domain.AuditEvent
	for i := len(r.store.events) - 1; i >= 0; i-- {
		if r.store.events[i].CaseID == caseID {
			result = append(result, r.store.events[i])
			if limit > 0 && len(result) == limit {
				break
			}
		}
	}
	return result, nil
}

func (r *memoryEventRepo) ListChain(_ context.Context, caseID string) ([]domain.AuditEvent, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	var result []domain.AuditEvent
	for _, ev := range r.store.events {
		if ev.CaseID == caseID {
			result = append(result, ev)
		}
	}
	return result, nil
}

type memoryDraftRepo struct {
	store *MemoryStore
}

func (r *memoryDraftRepo) Create(_ context.Context, draft *domain.SummaryDraft) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.drafts[draft.ID] = *draft
	return nil
}

func (r *memoryDraftRepo) Update(_ context.Context, draft *domain.SummaryDraft) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	existing, ok := r.store.drafts[draft.ID]
	if !ok || existing.CaseID != draft.CaseID {
		return ErrNotFound
	}
	r.store.drafts[draft.ID] = *draft
	return nil
}

func (r *memoryDraftRepo) GetByIDForCase(_ context.Context, draftID, caseID string) (*domain.SummaryDraft, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	draft, ok := r.store.drafts[draftID]
	if !ok || draft.CaseID != caseID {
		return nil, ErrNotFound
	}
	return &draft, nil
}

func (r *memoryDraftRepo) ListActive(_ context.Context, caseID string, purpose domain.SummaryPurpose) ([]domain.SummaryDraft, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	var result []domain.SummaryDraft
	for _, draft := range r.store.drafts {
		if draft.CaseID == caseID && draft.Purpose == purpose && draft.Status == domain.DraftStatusDraft {
			result = append(result, draft)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

func (r *memoryDraftRepo) ListOverdue(_ context.Context, now time.Time, limit int) ([]domain.SummaryDraft, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	var result []domain.SummaryDraft
	for _, draft := range r.store.drafts {
		if draft.Status == domain.DraftStatusDraft && now.After(draft.ExpiresAt) {
			result = append(result, draft)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].ExpiresAt.Before(result[j].ExpiresAt)
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func containsFold(haystack, needle string) bool {
	needle = strings.TrimSpace(needle)
	if needle == "" {
		return true
	}
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

func paginate[T any](items []T, limit, offset int) []T {
	if limit <= 0 {
		limit = 10
	}
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return nil
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}
