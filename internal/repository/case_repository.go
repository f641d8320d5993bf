package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/case-service/internal/domain"
)

// CaseFilter captures listing parameters.
type CaseFilter struct {
	Search *string
	Status *string
	Limit  int
	Offset int
}

// CaseRepository encapsulates case persistence.
type CaseRepository interface {
	Create(ctx context.Context, c *domain.Case) error
	Update(ctx context.Context, c *domain.Case) error
	GetByID(ctx context.Context, id string) (*domain.Case, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filter CaseFilter) ([]domain.Case, error)
	Count(ctx context.Context) (int64, error)
}

type caseRepository struct {
	pool *pgxpool.Pool
}

// NewCaseRepository instantiates the postgres repository.
func NewCaseRepository(pool *pgxpool.Pool) CaseRepository {
	return &caseRepository{pool: pool}
}

func (r *caseRepository) Create(ctx context.Context, c *domain.Case) error {
	const query = `
        INSERT INTO cases (id, title, status, summary_text)
        VALUES ($1,$2,$3,$4)
        RETURNING created_at, updated_at`
	return executor(ctx, r.pool).QueryRow(ctx, query,
		c.ID,
		c.Title,
		c.Status,
		c.SummaryText,
	).Scan(&c.CreatedAt, &c.UpdatedAt)
}

func (r *caseRepository) Update(ctx context.Context, c *domain.Case) error {
	const query = `
        UPDATE cases SET title=$1, status=$2, summary_text=$3, updated_at=$4
        WHERE id=$5`
	cmd, err := executor(ctx, r.pool).Exec(ctx, query,
		c.Title,
		c.Status,
		c.SummaryText,
		c.UpdatedAt,
		c.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *caseRepository) GetByID(ctx context.Context, id string) (*domain.Case, error) {
	const query = `
        SELECT id, title, status, summary_text, created_at, updated_at
        FROM cases WHERE id=$1`
	var c domain.Case
	if err := executor(ctx, r.pool).QueryRow(ctx, query, id).Scan(
		&c.ID,
		&c.Title,
		&c.Status,
		&c.SummaryText,
		&c.CreatedAt,
		&c.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (r *caseRepository) Delete(ctx context.Context, id string) error {
	cmd, err := executor(ctx, r.pool).Exec(ctx, `DELETE FROM cases WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *caseRepository) List(ctx context.Context, filter CaseFilter) ([]domain.Case, error) {
	base := `SELECT id, title, status, summary_text, created_at, updated_at FROM cases`
	clauses := []string{"1=1"}
	args := []any{}

	if filter.Search != nil && strings.TrimSpace(*filter.Search) != "" {
		args = append(args, "%"+strings.ToLower(strings.TrimSpace(*filter.Search))+"%")
		clauses = append(clauses, fmt.Sprintf("LOWER(title) LIKE $%d", len(args)))
	}
	if filter.Status != nil && strings.TrimSpace(*filter.Status) != "" {
		args = append(args, "%"+strings.ToLower(strings.TrimSpace(*filter.Status))+"%")
		clauses = append(clauses, fmt.Sprintf("LOWER(status) LIKE $%d", len(args)))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 10
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`%s WHERE %s ORDER BY created_at DESC LIMIT %d OFFSET %d`,
		base, strings.Join(clauses, " AND "), limit, offset)

	rows, err := executor(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Case
	for rows.Next() {
		var c domain.Case
		if err := rows.Scan(
			&c.ID,
			&c.Title,
			&c.Status,
			&c.SummaryText,
			&c.CreatedAt,
			&c.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	return result, rows.Err()
}

func (r *caseRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := executor(ctx, r.pool).QueryRow(ctx, `SELECT COUNT(*) FROM cases`).Scan(&count)
	return count, err
}
