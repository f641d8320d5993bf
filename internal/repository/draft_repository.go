package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/case-service/internal/domain"
)

// DraftRepository encapsulates summary-draft persistence.
type DraftRepository interface {
	Create(ctx context.Context, draft *domain.SummaryDraft) error
	Update(ctx context.Context, draft *domain.SummaryDraft) error
	GetByIDForCase(ctx context.Context, draftID, caseID string) (*domain.SummaryDraft, error)
	// ListActive returns all DRAFT-status drafts for (caseID, purpose).
	ListActive(ctx context.Context, caseID string, purpose domain.SummaryPurpose) ([]domain.SummaryDraft, error)
	// ListOverdue returns DRAFT-status drafts whose TTL elapsed before now,
	// capped at limit, for the expiry sweeper.
	ListOverdue(ctx context.Context, now time.Time, limit int) ([]domain.SummaryDraft, error)
}

type draftRepository struct {
	pool *pgxpool.Pool
}

// NewDraftRepository instantiates the postgres repository.
func NewDraftRepository(pool *pgxpool.Pool) DraftRepository {
	return &draftRepository{pool: pool}
}

const draftColumns = `id, case_id, purpose, status, generation_status, source_updated_at,
               input_fingerprint, prompt_template_id, prompt_template_version, prompt_hash,
               model_provider, model_id, model_config, policy_version, output_hash,
               content_text, created_by, correlation_id, created_at, expires_at,
               reviewed_at, reviewed_by`

func (r *draftRepository) Create(ctx context.Context, draft *domain.SummaryDraft) error {
	const query = `
        INSERT INTO case_summary_drafts (id, case_id, purpose, status, generation_status,
            source_updated_at, input_fingerprint, prompt_template_id, prompt_template_version,
            prompt_hash, model_provider, model_id, model_config, policy_version, output_hash,
            content_text, created_by, correlation_id, created_at, expires_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20)`
	_, err := executor(ctx, r.pool).Exec(ctx, query,
		draft.ID,
		draft.CaseID,
		draft.Purpose,
		draft.Status,
		draft.GenerationStatus,
		draft.SourceUpdatedAt,
		draft.InputFingerprint,
		draft.Provenance.PromptTemplateID,
		draft.Provenance.PromptTemplateVersion,
		draft.Provenance.PromptHash,
		draft.Provenance.ModelProvider,
		draft.Provenance.ModelID,
		draft.Provenance.ModelConfig,
		draft.Provenance.PolicyVersion,
		draft.Provenance.OutputHash,
		draft.ContentText,
		draft.Provenance.CreatedBy,
		draft.Provenance.CorrelationID,
		draft.CreatedAt,
		draft.ExpiresAt,
	)
	return err
}

// Update persists the mutable review fields only; content and provenance are
// immutable after creation.
func (r *draftRepository) Update(ctx context.Context, draft *domain.SummaryDraft) error {
	const query = `
        UPDATE case_summary_drafts SET status=$1, generation_status=$2, reviewed_at=$3, reviewed_by=$4
        WHERE id=$5 AND case_id=$6`
	cmd, err := executor(ctx, r.pool).Exec(ctx, query,
		draft.Status,
		draft.GenerationStatus,
		draft.ReviewedAt,
		draft.ReviewedBy,
		draft.ID,
		draft.CaseID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *draftRepository) GetByIDForCase(ctx context.Context, draftID, caseID string) (*domain.SummaryDraft, error) {
	query := `SELECT ` + draftColumns + ` FROM case_summary_drafts WHERE id=$1 AND case_id=$2`
	draft, err := scanDraft(executor(ctx, r.pool).QueryRow(ctx, query, draftID, caseID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return draft, nil
}

func (r *draftRepository) ListActive(ctx context.Context, caseID string, purpose domain.SummaryPurpose) ([]domain.SummaryDraft, error) {
	query := `SELECT ` + draftColumns + `
        FROM case_summary_drafts
        WHERE case_id=$1 AND purpose=$2 AND status=$3
        ORDER BY created_at ASC`
	return r.queryDrafts(ctx, query, caseID, purpose, domain.DraftStatusDraft)
}

func (r *draftRepository) ListOverdue(ctx context.Context, now time.Time, limit int) ([]domain.SummaryDraft, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT ` + draftColumns + `
        FROM case_summary_drafts
        WHERE status=$1 AND expires_at < $2
        ORDER BY expires_at ASC LIMIT $3`
	return r.queryDrafts(ctx, query, domain.DraftStatusDraft, now, limit)
}

func (r *draftRepository) queryDrafts(ctx context.Context, query string, args ...any) ([]domain.SummaryDraft, error) {
	rows, err := executor(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.SummaryDraft
	for rows.Next() {
		draft, err := scanDraft(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *draft)
	}
	return result, rows.Err()
}

func scanDraft(row pgx.Row) (*domain.SummaryDraft, error) {
	var draft domain.SummaryDraft
	if err := row.Scan(
		&draft.ID,
		&draft.CaseID,
		&draft.Purpose,
		&draft.Status,
		&draft.GenerationStatus,
		&draft.SourceUpdatedAt,
		&draft.InputFingerprint,
		&draft.Provenance.PromptTemplateID,
		&draft.Provenance.PromptTemplateVersion,
		&draft.Provenance.PromptHash,
		&draft.Provenance.ModelProvider,
		&draft.Provenance.ModelID,
		&draft.Provenance.ModelConfig,
		&draft.Provenance.PolicyVersion,
		&draft.Provenance.OutputHash,
		&draft.ContentText,
		&draft.Provenance.CreatedBy,
		&draft.Provenance.CorrelationID,
		&draft.CreatedAt,
		&draft.ExpiresAt,
		&draft.ReviewedAt,
		&draft.ReviewedBy,
	); err != nil {
		return nil, err
	}
	return &draft, nil
}
