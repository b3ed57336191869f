package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/ticketmanager/internal/config"
	"github.com/spec-kit/ticketmanager/internal/events"
	"github.com/spec-kit/ticketmanager/internal/notify"
)

// NotificationService forwards ticket change events to the publisher.
type NotificationService struct {
	dispatcher events.Dispatcher
	publisher  notify.Publisher
	logger     *zap.Logger
	cfg        config.NotificationConfig
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, publisher notify.Publisher, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		dispatcher: dispatcher,
		publisher:  publisher,
		logger:     logger,
		cfg:        cfg,
	}
}

// RegisterHandlers subscribes to every ticket event.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil || !n.cfg.Enabled {
		return
	}
	for _, eventType := range events.AllEventTypes {
		n.dispatcher.Subscribe(eventType, n.forward)
	}
}

func (n *NotificationService) forward(ctx context.Context, event events.Event) error {
	n.logger.Debug("forwarding event",
		zap.String("event_type", string(event.Type)),
		zap.Int("ticket_id", event.TicketID))
	if n.publisher == nil {
		return nil
	}
	return n.publisher.Publish(ctx, notify.TopicEvents, event)
}
