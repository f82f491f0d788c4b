package services

import (
	"context"
	"log/slog"

	"campus-events-api/models"
	"campus-events-api/repositories"
)

// AdminService covers the organizer-approval workflow.
type AdminService struct {
	userRepo      repositories.UserRepository
	notifications *NotificationService
	emailService  *EmailService
	logger        *slog.Logger
}

func NewAdminService(
	userRepo repositories.UserRepository,
	notifications *NotificationService,
	emailService *EmailService,
	logger *slog.Logger,
) *AdminService {
	return &AdminService{
		userRepo:      userRepo,
		notifications: notifications,
		emailService:  emailService,
		logger:        logger,
	}
}

func (s *AdminService) ListOrganizerRequests(ctx context.Context) ([]models.User, error) {
	users, err := s.userRepo.ListOrganizerRequests(ctx)
	if err != nil {
		return nil, err
	}
	for i := range users {
		sanitizeUser(&users[i])
	}
	return users, nil
}

func (s *AdminService) ListOrganizers(ctx context.Context) ([]models.User, error) {
	users, err := s.userRepo.ListByRole(ctx, models.RoleOrganizer)
	if err != nil {
		return nil, err
	}
	for i := range users {
		sanitizeUser(&users[i])
	}
	return users, nil
}

func (s *AdminService) ApproveOrganizer(ctx context.Context, userID int) error {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return mapRepoUserError(err)
	}
	if user.Role == models.RoleOrganizer {
		return ErrAlreadyOrganizer
	}
	if !user.RequestOrganizer {
		return ErrOrganizerRequestMissing
	}

	if err := s.userRepo.UpdateRole(ctx, userID, models.RoleOrganizer, false); err != nil {
		return mapRepoUserError(err)
	}

	s.notifyReviewOutcome(ctx, user, true)
	return nil
}

func (s *AdminService) DenyOrganizerRequest(ctx context.Context, userID int) error {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return mapRepoUserError(err)
	}
	if !user.RequestOrganizer {
		return ErrOrganizerRequestMissing
	}

	if err := s.userRepo.SetRequestOrganizer(ctx, userID, false); err != nil {
		return mapRepoUserError(err)
	}

	s.notifyReviewOutcome(ctx, user, false)
	return nil
}

func (s *AdminService) RevokeOrganizer(ctx context.Context, userID int) error {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return mapRepoUserError(err)
	}
	if user.Role != models.RoleOrganizer {
		return ErrNotOrganizer
	}

	if err := s.userRepo.UpdateRole(ctx, userID, models.RoleGeneral, false); err != nil {
		return mapRepoUserError(err)
	}

	if err := s.notifications.Push(ctx, &models.Notification{
		UserID:  user.ID,
		Type:    models.NotificationOrganizerRevoked,
		Message: "Your organizer access has been revoked.",
	}); err != nil {
		s.logger.Error("failed to create revoke notification",
			slog.Int("user_id", user.ID), slog.Any("error", err))
	}
	return nil
}

// notifyReviewOutcome records a notification and sends the status email.
// Both are best effort; a review decision is already committed by now.
func (s *AdminService) notifyReviewOutcome(ctx context.Context, user *models.User, approved bool) {
	notifType := models.NotificationOrganizerDenied
	message := "Your organizer request was denied."
	if approved {
		notifType = models.NotificationOrganizerApproved
		message = "Your organizer request was approved. You can now create events."
	}

	if err := s.notifications.Push(ctx, &models.Notification{
		UserID:  user.ID,
		Type:    notifType,
		Message: message,
	}); err != nil {
		s.logger.Error("failed to create organizer review notification",
			slog.Int("user_id", user.ID), slog.Any("error", err))
	}

	if s.emailService != nil {
		go func(email string) {
			if err := s.emailService.SendOrganizerStatusEmail(email, approved); err != nil {
				s.logger.Error("failed to send organizer status email",
					slog.String("email", email), slog.Any("error", err))
			}
		}(user.Email)
	}
}
