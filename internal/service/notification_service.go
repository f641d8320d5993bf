package service

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/spec-kit/case-service/internal/config"
	"github.com/spec-kit/case-service/internal/events"
	"github.com/spec-kit/case-service/internal/persistence"
)

// NotificationService mirrors committed audit events to subscribers: it logs
// each one and, when redis is reachable, publishes the mirror JSON on a
// pub/sub channel for downstream consumers.
type NotificationService struct {
	dispatcher events.Dispatcher
	redis      *persistence.Redis
	logger     *zap.Logger
	cfg        config.NotifyConfig
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, redis *persistence.Redis, logger *zap.Logger, cfg config.NotifyConfig) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		redis:      redis,
		logger:     logger,
		cfg:        cfg,
	}
}

// RegisterHandlers subscribes to every audit mirror event type.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	for _, eventType := range events.AllTypes() {
		n.dispatcher.Subscribe(eventType, n.handleAuditMirror)
	}
}

func (n *NotificationService) handleAuditMirror(ctx context.Context, event events.Event) error {
	n.logger.Info("audit event committed",
		zap.String("event_type", string(event.Type)),
		zap.String("case_id", event.CaseID),
		zap.Int64("audit_event_id", event.Payload.EventID),
		zap.String("actor_id", event.Actor.ID))

	n.publishToRedis(ctx, event)
	return nil
}

func (n *NotificationService) publishToRedis(ctx context.Context, event events.Event) {
	if n.redis == nil || n.redis.Client == nil || n.cfg.Channel == "" {
		return
	}
	raw, err := json.Marshal(event)
	if err != nil {
		n.logger.Warn("marshal notification", zap.Error(err))
		return
	}
	if err := n.redis.Client.Publish(ctx, n.cfg.Channel, raw).Err(); err != nil {
		n.logger.Warn("publish notification",
			zap.String("channel", n.cfg.Channel),
			zap.Error(err))
	}
}
