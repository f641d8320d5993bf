package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/spec-kit/case-service/internal/audit"
	"github.com/spec-kit/case-service/internal/domain"
	"github.com/spec-kit/case-service/internal/repository"
)

// AuditService appends to and verifies per-case hash chains.
type AuditService struct {
	events repository.EventRepository
	clock  func() time.Time
}

// NewAuditService constructs the service. clock may be nil (defaults to
// time.Now) and exists so tests control timestamps deterministically.
func NewAuditService(events repository.EventRepository, clock func() time.Time) *AuditService {
	if clock == nil {
		clock = time.Now
	}
	return &AuditService{events: events, clock: clock}
}

// Record appends one hash-chained audit event for caseID. It must run inside
// the same unit of work as the domain mutation it documents: the chain-tip
// read and the append only serialize correctly under the per-case lock that
// UnitOfWork.InCase holds. payload, when non-nil, is JSON-serialized and
// participates in the hash.
func (s *AuditService) Record(
	ctx context.Context,
	caseID string,
	typ domain.EventType,
	message string,
	payload any,
	actor domain.Actor,
	correlationID *string,
) (*domain.AuditEvent, error) {
	var payloadJSON *string
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal audit payload: %w", err)
		}
		str := string(raw)
		payloadJSON = &str
	}

	var prevHash *string
	latest, err := s.events.LatestByCase(ctx, caseID)
	switch {
	case err == nil:
		prevHash = &latest.Hash
	case errors.Is(err, repository.ErrNotFound):
		// first event of the chain
	default:
		return nil, fmt.Errorf("load chain tip: %w", err)
	}

	ev := &domain.AuditEvent{
		CaseID:        caseID,
		Type:          typ,
		Message:       message,
		Payload:       payloadJSON,
		ActorType:     actor.Type,
		ActorID:       actor.ID,
		ActorRole:     actor.Role,
		CorrelationID: correlationID,
		PrevHash:      prevHash,
		// fixed before hashing so the digest commits to it
		CreatedAt: s.clock(),
	}
	ev.Hash = audit.EventHash(ev)

	if err := s.events.Append(ctx, ev); err != nil {
		return nil, fmt.Errorf("append audit event: %w", err)
	}
	return ev, nil
}

// VerifyChain recomputes the full chain for a case and reports the first
// mismatch, if any.
func (s *AuditService) VerifyChain(ctx context.Context, caseID string) (audit.ChainReport, error) {
	chain, err := s.events.ListChain(ctx, caseID)
	if err != nil {
		return audit.ChainReport{}, fmt.Errorf("load chain: %w", err)
	}
	return audit.VerifyChain(caseID, chain), nil
}
