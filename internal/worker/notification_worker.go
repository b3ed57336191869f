package worker

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/spec-kit/ticketmanager/internal/config"
	"github.com/spec-kit/ticketmanager/internal/domain"
	"github.com/spec-kit/ticketmanager/internal/notify"
	"github.com/spec-kit/ticketmanager/internal/observability"
	"github.com/spec-kit/ticketmanager/internal/repository"
	"github.com/spec-kit/ticketmanager/internal/service"
)

// sweepTimeout bounds a single sweep run.
const sweepTimeout = time.Minute

// NotificationSweeper periodically tells creators about their unread
// tickets and publishes open-ticket counts for staff.
type NotificationSweeper struct {
	store     repository.TicketStore
	publisher notify.Publisher
	gate      *service.Gate
	metrics   *observability.Metrics
	logger    *zap.Logger
	cron      *cron.Cron
}

// NewNotificationSweeper creates a sweeper. gate may be nil.
func NewNotificationSweeper(store repository.TicketStore, publisher notify.Publisher, gate *service.Gate, metrics *observability.Metrics, logger *zap.Logger) *NotificationSweeper {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationSweeper{
		store:     store,
		publisher: publisher,
		gate:      gate,
		metrics:   metrics,
		logger:    logger,
		cron:      cron.New(),
	}
}

// StartNotificationWorker registers event forwarding and schedules the sweep.
func StartNotificationWorker(notificationService *service.NotificationService, sweeper *NotificationSweeper, cfg config.NotificationConfig) error {
	if notificationService != nil {
		notificationService.RegisterHandlers()
	}
	if sweeper == nil || !cfg.Enabled {
		return nil
	}
	return sweeper.Start(cfg.SweepSchedule)
}

// Start schedules the sweep with a cron spec such as "@every 10m".
func (s *NotificationSweeper) Start(schedule string) error {
	if _, err := s.cron.AddFunc(schedule, s.tick); err != nil {
		return err
	}
	s.cron.Start()
	s.logger.Info("notification sweep scheduled", zap.String("schedule", schedule))
	return nil
}

// Stop halts the schedule and waits for a running sweep to finish.
func (s *NotificationSweeper) Stop() {
	<-s.cron.Stop().Done()
}

// tick runs one sweep and logs any failure. The next tick retries.
func (s *NotificationSweeper) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()
	if err := s.Sweep(ctx); err != nil {
		s.logger.Error("notification sweep failed", zap.Error(err))
	}
}

// Sweep publishes one UnreadNotice per creator with unread tickets and one
// OpenSummary. It does nothing while the store is being converted. A panic
// during the run is returned as an error.
func (s *NotificationSweeper) Sweep(ctx context.Context) (err error) {
	if s.gate != nil {
		release, gateErr := s.gate.Enter()
		if gateErr != nil {
			s.logger.Debug("notification sweep skipped", zap.Error(gateErr))
			return nil
		}
		defer release()
	}
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("notification sweep panicked", zap.Any("panic", r), zap.Stack("stack"))
			err = fmt.Errorf("notification sweep panicked: %v", r)
		}
		s.metrics.RecordSweep(err)
	}()

	unread, err := s.store.ListUnreadTickets(ctx)
	if err != nil {
		return err
	}
	for _, notice := range groupUnread(unread) {
		if err := s.publisher.Publish(ctx, notify.TopicUnread, notice); err != nil {
			return err
		}
	}

	open, err := s.store.ListOpenTickets(ctx)
	if err != nil {
		return err
	}
	summary := notify.OpenSummary{Open: len(open), ByAssignee: map[string]int{}}
	for _, t := range open {
		if !t.IsAssigned() {
			summary.Unassigned++
			continue
		}
		summary.ByAssignee[t.Assignment]++
	}
	if err := s.publisher.Publish(ctx, notify.TopicOpenSums, summary); err != nil {
		return err
	}

	s.logger.Debug("notification sweep finished",
		zap.Int("unread", len(unread)),
		zap.Int("open", len(open)))
	return nil
}

func groupUnread(tickets []*domain.Ticket) []notify.UnreadNotice {
	byKey := map[uuid.UUID]*notify.UnreadNotice{}
	var keys []uuid.UUID
	for _, t := range tickets {
		if t.ActorKey == uuid.Nil {
			continue
		}
		n, ok := byKey[t.ActorKey]
		if !ok {
			n = &notify.UnreadNotice{ActorKey: t.ActorKey.String(), Creator: t.Creator}
			byKey[t.ActorKey] = n
			keys = append(keys, t.ActorKey)
		}
		n.TicketIDs = append(n.TicketIDs, t.ID)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })

	out := make([]notify.UnreadNotice, 0, len(keys))
	for _, k := range keys {
		n := byKey[k]
		sort.Ints(n.TicketIDs)
		out = append(out, *n)
	}
	return out
}
