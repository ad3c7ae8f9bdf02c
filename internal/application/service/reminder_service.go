package service

import (
	"context"
	"fmt"

	"github.com/corporatepay/approval-engine/internal/application/port"
	"github.com/corporatepay/approval-engine/internal/domain/entity"
	"github.com/corporatepay/approval-engine/internal/domain/policy"
	"github.com/corporatepay/approval-engine/internal/domain/workflow"
)

// ReminderService dispatches reminder events on an allowed channel set and
// tracks delivery status. Delivery itself runs asynchronously off a queue so
// no request lock is held while a send is in flight.
type ReminderService interface {
	// SendReminder validates the channel and request state, then records a
	// QUEUED reminder and enqueues it for delivery
	SendReminder(ctx context.Context, requestID, channel, targetRole string) (*entity.ReminderLog, error)

	// Deliver resolves one queued reminder to DELIVERED or FAILED via the
	// channel's provider. Called by the delivery worker.
	Deliver(ctx context.Context, reminderID int64) error

	// Queue exposes the pending reminder ids for the delivery worker
	Queue() <-chan int64

	ListReminders(ctx context.Context, requestID string) ([]entity.ReminderLog, error)
}

type reminderServiceImpl struct {
	requestRepo  port.RequestRepository
	reminderRepo port.ReminderRepository
	config       *policy.OrganizationPolicyConfig
	providers    map[string]port.NotificationProvider
	clock        port.Clock
	queue        chan int64
	logger       Logger
}

// NewReminderService creates a new ReminderService
func NewReminderService(
	requestRepo port.RequestRepository,
	reminderRepo port.ReminderRepository,
	config *policy.OrganizationPolicyConfig,
	providers []port.NotificationProvider,
	clock port.Clock,
	logger Logger,
) ReminderService {
	byChannel := make(map[string]port.NotificationProvider, len(providers))
	for _, p := range providers {
		byChannel[p.Channel()] = p
	}

	return &reminderServiceImpl{
		requestRepo:  requestRepo,
		reminderRepo: reminderRepo,
		config:       config,
		providers:    byChannel,
		clock:        clock,
		queue:        make(chan int64, 128),
		logger:       logger,
	}
}

// SendReminder validates and queues one reminder send attempt
func (s *reminderServiceImpl) SendReminder(ctx context.Context, requestID, channel, targetRole string) (*entity.ReminderLog, error) {
	if !s.config.ChannelAllowed(channel) {
		return nil, &entity.ChannelNotAllowedError{Channel: channel}
	}

	req, err := s.requestRepo.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}

	// Reminders only make sense while a decision is still outstanding
	if workflow.State(req.Status) != workflow.StatePending {
		return nil, &entity.InvalidTransitionError{RequestID: requestID, From: req.Status, Action: entity.ActionRemind}
	}

	now := s.clock.Now()
	log := &entity.ReminderLog{
		RequestID:  requestID,
		Channel:    channel,
		TargetRole: targetRole,
		Status:     entity.ReminderStatusQueued,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.reminderRepo.Create(ctx, log); err != nil {
		return nil, fmt.Errorf("create reminder log: %w", err)
	}

	select {
	case s.queue <- log.ID:
	default:
		// Queue full; the reminder stays QUEUED and is visible in the log.
		s.logger.Error("Reminder delivery queue full", "reminder_id", log.ID, "request_id", requestID)
	}

	s.logger.Info("Reminder queued", "reminder_id", log.ID, "request_id", requestID, "channel", channel)
	return log, nil
}

// Deliver resolves one reminder: QUEUED -> SENT -> DELIVERED|FAILED
func (s *reminderServiceImpl) Deliver(ctx context.Context, reminderID int64) error {
	log, err := s.reminderRepo.GetByID(ctx, reminderID)
	if err != nil {
		return err
	}
	if log.Status != entity.ReminderStatusQueued {
		return nil
	}

	req, err := s.requestRepo.GetByID(ctx, log.RequestID)
	if err != nil {
		return err
	}

	if err := s.reminderRepo.UpdateStatus(ctx, log.ID, entity.ReminderStatusSent, ""); err != nil {
		return fmt.Errorf("mark sent: %w", err)
	}

	provider, ok := s.providers[log.Channel]
	if !ok {
		return s.reminderRepo.UpdateStatus(ctx, log.ID, entity.ReminderStatusFailed,
			fmt.Sprintf("no provider configured for channel %s", log.Channel))
	}

	receipt, err := provider.Send(ctx, log, req)
	if err != nil {
		s.logger.Error("Reminder delivery failed", "error", err, "reminder_id", log.ID, "channel", log.Channel)
		return s.reminderRepo.UpdateStatus(ctx, log.ID, entity.ReminderStatusFailed, err.Error())
	}

	status := entity.ReminderStatusDelivered
	if !receipt.Delivered {
		status = entity.ReminderStatusFailed
	}
	if err := s.reminderRepo.UpdateStatus(ctx, log.ID, status, receipt.Detail); err != nil {
		return fmt.Errorf("record delivery outcome: %w", err)
	}

	s.logger.Info("Reminder resolved", "reminder_id", log.ID, "status", status)
	return nil
}

// Queue exposes pending reminder ids to the delivery worker
func (s *reminderServiceImpl) Queue() <-chan int64 {
	return s.queue
}

// ListReminders returns the reminder log of a request, oldest first
func (s *reminderServiceImpl) ListReminders(ctx context.Context, requestID string) ([]entity.ReminderLog, error) {
	if _, err := s.requestRepo.GetByID(ctx, requestID); err != nil {
		return nil, err
	}
	return s.reminderRepo.GetByRequestID(ctx, requestID)
}
