package services

import (
	"context"
	"errors"
	"log/slog"

	"campus-events-api/models"
	"campus-events-api/realtime"
	"campus-events-api/repositories"
)

// NotificationPusher delivers realtime messages; satisfied by *realtime.Hub.
type NotificationPusher interface {
	SendToUser(userID int, msg realtime.Message)
}

type NotificationService struct {
	repo   repositories.NotificationRepository
	hub    NotificationPusher
	logger *slog.Logger
}

func NewNotificationService(repo repositories.NotificationRepository, hub NotificationPusher, logger *slog.Logger) *NotificationService {
	return &NotificationService{repo: repo, hub: hub, logger: logger}
}

// Push persists a notification and fans it out over the websocket hub.
// Storage failure is returned; a hub without listeners is not an error.
func (s *NotificationService) Push(ctx context.Context, n *models.Notification) error {
	if err := s.repo.Create(ctx, n); err != nil {
		return err
	}
	if s.hub != nil {
		s.hub.SendToUser(n.UserID, realtime.Message{
			Type:    "NOTIFICATION_CREATED",
			Payload: n,
		})
	}
	return nil
}

func (s *NotificationService) List(ctx context.Context, userID int, unreadOnly bool, limit, offset int) ([]models.Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.repo.ListByUser(ctx, userID, unreadOnly, limit, offset)
}

func (s *NotificationService) UnreadCount(ctx context.Context, userID int) (int, error) {
	return s.repo.CountUnread(ctx, userID)
}

func (s *NotificationService) MarkRead(ctx context.Context, id, userID int) error {
	err := s.repo.MarkRead(ctx, id, userID)
	if errors.Is(err, repositories.ErrNotificationNotFound) {
		return ErrNotificationNotFound
	}
	return err
}

func (s *NotificationService) MarkAllRead(ctx context.Context, userID int) error {
	return s.repo.MarkAllRead(ctx, userID)
}

func (s *NotificationService) Delete(ctx context.Context, id, userID int) error {
	err := s.repo.Delete(ctx, id, userID)
	if errors.Is(err, repositories.ErrNotificationNotFound) {
		return ErrNotificationNotFound
	}
	return err
}
