package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/case-service/internal/domain"
)

// EventRepository encapsulates audit-event persistence. Events are immutable;
// the repository only appends and reads. The BIGSERIAL id is the assignment
// order the chain is defined over.
type EventRepository interface {
	Append(ctx context.Context, ev *domain.AuditEvent) error
	// LatestByCase returns the chain tip (highest id) or ErrNotFound when no
	// events exist for the case.
	LatestByCase(ctx context.Context, caseID string) (*domain.AuditEvent, error)
	// ListByCase returns events most-recent-first, capped at limit (no cap
	// when limit <= 0).
	ListByCase(ctx context.Context, caseID string, limit int) ([]domain.AuditEvent, error)
	// ListChain returns the full event sequence in assignment order
	// (ascending id) for verification.
	ListChain(ctx context.Context, caseID string) ([]domain.AuditEvent, error)
}

type eventRepository struct {
	pool *pgxpool.Pool
}

// NewEventRepository instantiates the postgres repository.
func NewEventRepository(pool *pgxpool.Pool) EventRepository {
	return &eventRepository{pool: pool}
}

const eventColumns = `id, case_id, type, message, payload, actor_type, actor_id, actor_role,
               correlation_id, prev_hash, event_hash, created_at`

func (r *eventRepository) Append(ctx context.Context, ev *domain.AuditEvent) error {
	const query = `
        INSERT INTO case_events (case_id, type, message, payload, actor_type, actor_id, actor_role,
                                 correlation_id, prev_hash, event_hash, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
        RETURNING id`
	return executor(ctx, r.pool).QueryRow(ctx, query,
		ev.CaseID,
		ev.Type,
		ev.Message,
		ev.Payload,
		ev.ActorType,
		ev.ActorID,
		ev.ActorRole,
		ev.CorrelationID,
		ev.PrevHash,
		ev.Hash,
		ev.CreatedAt,
	).Scan(&ev.ID)
}

func (r *eventRepository) LatestByCase(ctx context.Context, caseID string) (*domain.AuditEvent, error) {
	query := `SELECT ` + eventColumns + ` FROM case_events WHERE case_id=$1 ORDER BY id DESC LIMIT 1`
	ev, err := scanEvent(executor(ctx, r.pool).QueryRow(ctx, query, caseID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return ev, nil
}

func (r *eventRepository) ListByCase(ctx context.Context, caseID string, limit int) ([]domain.AuditEvent, error) {
	query := `SELECT ` + eventColumns + ` FROM case_events WHERE case_id=$1 ORDER BY id DESC`
	args := []any{caseID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}
	return r.queryEvents(ctx, query, args...)
}

func (r *eventRepository) ListChain(ctx context.Context, caseID string) ([]domain.AuditEvent, error) {
	query := `SELECT ` + eventColumns + ` FROM case_events WHERE case_id=$1 ORDER BY id ASC`
	return r.queryEvents(ctx, query, caseID)
}

func (r *eventRepository) queryEvents(ctx context.Context, query string, args ...any) ([]domain.AuditEvent, error) {
	rows, err := executor(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.AuditEvent
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *ev)
	}
	return result, rows.Err()
}

func scanEvent(row pgx.Row) (*domain.AuditEvent, error) {
	var ev domain.AuditEvent
	if err := row.Scan(
		&ev.ID,
		&ev.CaseID,
		&ev.Type,
		&ev.Message,
		&ev.Payload,
		&ev.ActorType,
		&ev.ActorID,
		&ev.ActorRole,
		&ev.CorrelationID,
		&ev.PrevHash,
		&ev.Hash,
		&ev.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &ev, nil
}
