package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/case-service/internal/observability"
	"github.com/spec-kit/case-service/internal/service"
)

const expiryBatchSize = 100

// ExpiryWorker sweeps overdue summary drafts in the background. Expiry is
// also applied lazily on accept; the sweeper keeps listings truthful for
// drafts nobody touches.
type ExpiryWorker struct {
	drafts   *service.SummaryDraftService
	logger   *zap.Logger
	metrics  *observability.Metrics
	interval time.Duration
}

// NewExpiryWorker constructs the worker.
func NewExpiryWorker(drafts *service.SummaryDraftService, logger *zap.Logger, metrics *observability.Metrics, interval time.Duration) *ExpiryWorker {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &ExpiryWorker{drafts: drafts, logger: logger, metrics: metrics, interval: interval}
}

// Start runs the sweep loop until ctx is cancelled.
func (w *ExpiryWorker) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				w.sweep(ctx)
			}
		}
	}()
}

func (w *ExpiryWorker) sweep(ctx context.Context) {
	overdue, err := w.drafts.ListOverdue(ctx, expiryBatchSize)
	if err != nil {
		w.logger.Error("expiry sweep: list overdue drafts", zap.Error(err))
		return
	}

	expired := 0
	for i := range overdue {
		draft := &overdue[i]
		ok, err := w.drafts.ExpireOverdue(ctx, draft.CaseID, draft.ID)
		if err != nil {
			w.logger.Error("expiry sweep: expire draft",
				zap.String("case_id", draft.CaseID),
				zap.String("draft_id", draft.ID),
				zap.Error(err))
			continue
		}
		if ok {
			expired++
			w.metrics.RecordDraftExpired()
		}
	}

	if expired > 0 {
		w.logger.Info("expiry sweep completed", zap.Int("expired", expired))
	}
}
