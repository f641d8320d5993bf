package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/case-service/internal/domain"
)

// NoteRepository encapsulates case-note persistence.
type NoteRepository interface {
	Create(ctx context.Context, note *domain.CaseNote) error
	Update(ctx context.Context, note *domain.CaseNote) error
	GetByIDForCase(ctx context.Context, noteID, caseID string) (*domain.CaseNote, error)
	Delete(ctx context.Context, noteID, caseID string) error
	// ListByCase returns notes most-recent-first, capped at limit (no cap
	// when limit <= 0).
	ListByCase(ctx context.Context, caseID string, limit int) ([]domain.CaseNote, error)
}

type noteRepository struct {
	pool *pgxpool.Pool
}

// NewNoteRepository instantiates the postgres repository.
func NewNoteRepository(pool *pgxpool.Pool) NoteRepository {
	return &noteRepository{pool: pool}
}

func (r *noteRepository) Create(ctx context.Context, note *domain.CaseNote) error {
	const query = `
        INSERT INTO case_notes (id, case_id, body)
        VALUES ($1,$2,$3)
        RETURNING created_at, updated_at`
	return executor(ctx, r.pool).QueryRow(ctx, query,
		note.ID,
		note.CaseID,
		note.Body,
	).Scan(&note.CreatedAt, &note.UpdatedAt)
}

func (r *noteRepository) Update(ctx context.Context, note *domain.CaseNote) error {
	const query = `
        UPDATE case_notes SET body=$1, updated_at=$2
        WHERE id=$3 AND case_id=$4`
	cmd, err := executor(ctx, r.pool).Exec(ctx, query, note.Body, note.UpdatedAt, note.ID, note.CaseID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *noteRepository) GetByIDForCase(ctx context.Context, noteID, caseID string) (*domain.CaseNote, error) {
	const query = `
        SELECT id, case_id, body, created_at, updated_at
        FROM case_notes WHERE id=$1 AND case_id=$2`
	var note domain.CaseNote
	if err := executor(ctx, r.pool).QueryRow(ctx, query, noteID, caseID).Scan(
		&note.ID,
		&note.CaseID,
		&note.Body,
		&note.CreatedAt,
		&note.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &note, nil
}

func (r *noteRepository) Delete(ctx context.Context, noteID, caseID string) error {
	cmd, err := executor(ctx, r.pool).Exec(ctx,
		`DELETE FROM case_notes WHERE id=$1 AND case_id=$2`, noteID, caseID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *noteRepository) ListByCase(ctx context.Context, caseID string, limit int) ([]domain.CaseNote, error) {
	query := `
        SELECT id, case_id, body, created_at, updated_at
        FROM case_notes WHERE case_id=$1 ORDER BY created_at DESC`
	args := []any{caseID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := executor(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.CaseNote
	for rows.Next() {
		var note domain.CaseNote
		if err := rows.Scan(
			&note.ID,
			&note.CaseID,
			&note.Body,
			&note.CreatedAt,
			&note.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, note)
	}
	return result, rows.Err()
}
