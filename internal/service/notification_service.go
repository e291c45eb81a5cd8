package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/dihanio/NesaVent-sub001/internal/model"
	"github.com/dihanio/NesaVent-sub001/internal/queue"
	"github.com/dihanio/NesaVent-sub001/internal/repository"
)

const notificationListLimit = 50

// NotificationService stores notifications and fans them out to the broker.
type NotificationService struct {
	repo      *repository.NotificationRepo
	publisher Publisher
	logger    *zap.Logger
	now       Clock
}

func NewNotificationService(repo *repository.NotificationRepo, publisher Publisher, logger *zap.Logger) *NotificationService {
	return &NotificationService{repo: repo, publisher: publisher, logger: logger, now: systemClock}
}

// Notify persists n and publishes a notification.created message. A publish
// failure is logged; the stored row is the source of truth.
func (s *NotificationService) Notify(ctx context.Context, n model.Notification) error {
	if n.CreatedAt.IsZero() {
		n.CreatedAt = s.now()
	}
	if err := s.repo.Create(ctx, &n); err != nil {
		return err
	}
	if s.publisher != nil {
		ev := queue.NotificationCreatedEvent{
			NotificationID: n.ID, UserID: n.UserID, Type: n.Type,
			Title: n.Title, Message: n.Message, CreatedAt: n.CreatedAt,
		}
		if err := s.publisher.Publish(ctx, queue.NotificationCreatedQueue, ev); err != nil {
			s.logger.Warn("publish notification failed", zap.Uint64("notification_id", n.ID), zap.Error(err))
		}
	}
	return nil
}

func (s *NotificationService) List(ctx context.Context, userID uint64, unreadOnly bool) ([]model.Notification, error) {
	return s.repo.ListByUser(ctx, userID, unreadOnly, notificationListLimit)
}

func (s *NotificationService) UnreadCount(ctx context.Context, userID uint64) (int, error) {
	return s.repo.CountUnread(ctx, userID)
}

func (s *NotificationService) MarkRead(ctx context.Context, userID, id uint64) error {
	err := s.repo.MarkRead(ctx, id, userID, s.now())
	if errors.Is(err, sql.ErrNoRows) {
		return notFound("notification not found")
	}
	return err
}

func (s *NotificationService) MarkAllRead(ctx context.Context, userID uint64) (int64, error) {
	return s.repo.MarkAllRead(ctx, userID, s.now())
}
