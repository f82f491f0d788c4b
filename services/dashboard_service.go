package services

import (
	"context"
	"errors"

	"campus-events-api/models"
	"campus-events-api/repositories"
	"campus-events-api/storage"
	"golang.org/x/sync/errgroup"
)

type DashboardService struct {
	userRepo         repositories.UserRepository
	eventRepo        repositories.EventRepository
	notificationRepo repositories.NotificationRepository
	uploader         storage.FileUploader
}

func NewDashboardService(
	userRepo repositories.UserRepository,
	eventRepo repositories.EventRepository,
	notificationRepo repositories.NotificationRepository,
	uploader storage.FileUploader,
) *DashboardService {
	return &DashboardService{
		userRepo:         userRepo,
		eventRepo:        eventRepo,
		notificationRepo: notificationRepo,
		uploader:         uploader,
	}
}

// Summary gathers everything the landing page needs in parallel.
func (s *DashboardService) Summary(ctx context.Context, userID int) (*models.DashboardSummary, error) {
	summary := &models.DashboardSummary{}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		user, err := s.userRepo.GetByID(ctx, userID)
		if err != nil {
			if errors.Is(err, repositories.ErrUserNotFound) {
				return ErrUserNotFound
			}
			return err
		}
		sanitizeUser(user)
		summary.User = user
		return nil
	})
	g.Go(func() error {
		events, err := s.eventRepo.ListByAttendee(ctx, userID)
		if err != nil {
			return err
		}
		upcoming := make([]models.Event, 0, len(events))
		for i := range events {
			if events[i].Status == models.EventStatusUpcoming {
				populateEventBannerURL(&events[i], s.uploader)
				upcoming = append(upcoming, events[i])
			}
		}
		summary.UpcomingEvents = upcoming
		return nil
	})
	g.Go(func() error {
		count, err := s.notificationRepo.CountUnread(ctx, userID)
		if err != nil {
			return err
		}
		summary.UnreadNotifications = count
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return summary, nil
}
