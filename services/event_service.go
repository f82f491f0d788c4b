package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"campus-events-api/models"
	"campus-events-api/repositories"
	"campus-events-api/storage"
	"github.com/google/uuid"
)

type CreateEventInput struct {
	Title                string                  `json:"title"`
	Description          *string                 `json:"description"`
	Location             string                  `json:"location"`
	Category             string                  `json:"category"`
	StartsAt             time.Time               `json:"starts_at"`
	RegistrationDeadline *time.Time              `json:"registration_deadline"`
	RegistrationType     models.RegistrationType `json:"registration_type"`
	FormURL              *string                 `json:"form_url"`
	IsTeamEvent          bool                    `json:"is_team_event"`
	TeamConfig           *models.TeamConfig      `json:"team_config"`
	Capacity             int                     `json:"capacity"`
	Questions            []models.FormQuestion   `json:"questions"`
}

var formQuestionTypes = map[string]bool{
	"text":     true,
	"textarea": true,
	"number":   true,
	"date":     true,
	"time":     true,
}

type EventService struct {
	txManager        repositories.TxManager
	eventRepo        repositories.EventRepository
	userRepo         repositories.UserRepository
	registrationRepo repositories.RegistrationRepository
	notifications    *NotificationService
	emailService     *EmailService
	uploader         storage.FileUploader
	logger           *slog.Logger
}

func NewEventService(
	txManager repositories.TxManager,
	eventRepo repositories.EventRepository,
	userRepo repositories.UserRepository,
	registrationRepo repositories.RegistrationRepository,
	notifications *NotificationService,
	emailService *EmailService,
	uploader storage.FileUploader,
	logger *slog.Logger,
) *EventService {
	return &EventService{
		txManager:        txManager,
		eventRepo:        eventRepo,
		userRepo:         userRepo,
		registrationRepo: registrationRepo,
		notifications:    notifications,
		emailService:     emailService,
		uploader:         uploader,
		logger:           logger,
	}
}

func (s *EventService) CreateEvent(ctx context.Context, organizerID int, input CreateEventInput) (*models.Event, error) {
	event := &models.Event{
		Title:                input.Title,
		Description:          input.Description,
		Location:             input.Location,
		Category:             input.Category,
		OrganizerID:          organizerID,
		StartsAt:             input.StartsAt,
		RegistrationDeadline: input.RegistrationDeadline,
		RegistrationType:     input.RegistrationType,
		FormURL:              input.FormURL,
		IsTeamEvent:          input.IsTeamEvent,
		TeamConfig:           input.TeamConfig,
		Capacity:             input.Capacity,
		Status:               models.EventStatusUpcoming,
		Questions:            input.Questions,
	}

	if err := validateEvent(event); err != nil {
		return nil, err
	}

	if err := s.eventRepo.Create(ctx, event); err != nil {
		if errors.Is(err, repositories.ErrEventInvalidOrganizer) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return event, nil
}

func (s *EventService) GetEvent(ctx context.Context, eventID int) (*models.Event, error) {
	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, repositories.ErrEventNotFound) {
			return nil, ErrEventNotFound
		}
		return nil, err
	}

	count, err := s.eventRepo.CountAttendees(ctx, nil, eventID)
	if err != nil {
		return nil, err
	}
	event.AttendeeCount = count

	if organizer, err := s.userRepo.GetByID(ctx, event.OrganizerID); err == nil {
		sanitizeUser(organizer)
		event.Organizer = organizer
	} else {
		s.logger.Warn("failed to populate event organizer",
			slog.Int("event_id", event.ID), slog.Any("error", err))
	}

	populateEventBannerURL(event, s.uploader)
	return event, nil
}

func (s *EventService) ListEvents(ctx context.Context, filter repositories.ListEventsFilter) ([]models.Event, error) {
	events, err := s.eventRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	for i := range events {
		populateEventBannerURL(&events[i], s.uploader)
	}
	return events, nil
}

// ListRegisteredEvents returns the events the user appears on as an attendee.
func (s *EventService) ListRegisteredEvents(ctx context.Context, userID int) ([]models.Event, error) {
	events, err := s.eventRepo.ListByAttendee(ctx, userID)
	if err != nil {
		return nil, err
	}
	for i := range events {
		populateEventBannerURL(&events[i], s.uploader)
	}
	return events, nil
}

func (s *EventService) UpdateEvent(ctx context.Context, callerID int, callerRole models.UserRole, eventID int, input CreateEventInput) (*models.Event, error) {
	event, err := s.getManagedEvent(ctx, callerID, callerRole, eventID)
	if err != nil {
		return nil, err
	}

	event.Title = input.Title
	event.Description = input.Description
	event.Location = input.Location
	event.Category = input.Category
	event.StartsAt = input.StartsAt
	event.RegistrationDeadline = input.RegistrationDeadline
	event.RegistrationType = input.RegistrationType
	event.FormURL = input.FormURL
	event.IsTeamEvent = input.IsTeamEvent
	event.TeamConfig = input.TeamConfig
	event.Capacity = input.Capacity
	event.Questions = input.Questions

	if err := validateEvent(event); err != nil {
		return nil, err
	}

	if err := s.eventRepo.Update(ctx, event); err != nil {
		if errors.Is(err, repositories.ErrEventNotFound) {
			return nil, ErrEventNotFound
		}
		return nil, err
	}
	populateEventBannerURL(event, s.uploader)
	return event, nil
}

// CancelEvent marks the event canceled and tells every attendee.
func (s *EventService) CancelEvent(ctx context.Context, callerID int, callerRole models.UserRole, eventID int) error {
	event, err := s.getManagedEvent(ctx, callerID, callerRole, eventID)
	if err != nil {
		return err
	}
	if event.Status != models.EventStatusUpcoming {
		return ErrEventNotOpen
	}

	var attendeeIDs []int
	err = s.txManager.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		if err := s.eventRepo.UpdateStatus(ctx, exec, eventID, models.EventStatusCanceled); err != nil {
			return err
		}
		ids, err := s.registrationRepo.ListUserIDsByEvent(ctx, exec, eventID)
		if err != nil {
			return err
		}
		attendeeIDs = ids
		return nil
	})
	if err != nil {
		return err
	}

	details := fmt.Sprintf("%q scheduled for %s was canceled by the organizer.",
		event.Title, event.StartsAt.Format("2 Jan 2006 15:04"))
	emails := make([]string, 0, len(attendeeIDs))
	for _, userID := range attendeeIDs {
		eid := event.ID
		if err := s.notifications.Push(ctx, &models.Notification{
			UserID:  userID,
			Type:    models.NotificationEventCanceled,
			Message: fmt.Sprintf("Event canceled: %s", event.Title),
			Details: &details,
			EventID: &eid,
		}); err != nil {
			s.logger.Error("failed to create cancellation notification",
				slog.Int("user_id", userID), slog.Int("event_id", event.ID), slog.Any("error", err))
		}
		if user, err := s.userRepo.GetByID(ctx, userID); err == nil {
			emails = append(emails, user.Email)
		}
	}

	if s.emailService != nil && len(emails) > 0 {
		go func() {
			if err := s.emailService.SendEventCanceledEmail(emails, event.Title); err != nil {
				s.logger.Error("failed to send cancellation emails",
					slog.Int("event_id", event.ID), slog.Any("error", err))
			}
		}()
	}
	return nil
}

func (s *EventService) DeleteEvent(ctx context.Context, callerID int, callerRole models.UserRole, eventID int) error {
	event, err := s.getManagedEvent(ctx, callerID, callerRole, eventID)
	if err != nil {
		return err
	}

	if err := s.eventRepo.Delete(ctx, eventID); err != nil {
		if errors.Is(err, repositories.ErrEventNotFound) {
			return ErrEventNotFound
		}
		return err
	}

	if event.BannerKey != nil && s.uploader != nil {
		if err := s.uploader.Delete(ctx, *event.BannerKey); err != nil {
			s.logger.Warn("failed to delete event banner from storage",
				slog.Int("event_id", eventID), slog.Any("error", err))
		}
	}
	return nil
}

func (s *EventService) UploadBanner(ctx context.Context, callerID int, callerRole models.UserRole, eventID int, contentType string, reader io.Reader) (*models.Event, error) {
	event, err := s.getManagedEvent(ctx, callerID, callerRole, eventID)
	if err != nil {
		return nil, err
	}
	if s.uploader == nil {
		return nil, fmt.Errorf("banner storage is not configured")
	}

	ext, err := GetExtensionFromContentType(contentType)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}

	key := fmt.Sprintf("events/%d/banner_%s%s", eventID, uuid.NewString(), ext)
	if _, err := s.uploader.Upload(ctx, key, contentType, reader); err != nil {
		return nil, fmt.Errorf("failed to upload banner: %w", err)
	}

	oldKey := event.BannerKey
	if err := s.eventRepo.UpdateBannerKey(ctx, eventID, &key); err != nil {
		return nil, err
	}
	event.BannerKey = &key

	if oldKey != nil && *oldKey != "" {
		if err := s.uploader.Delete(ctx, *oldKey); err != nil {
			s.logger.Warn("failed to delete previous banner",
				slog.Int("event_id", eventID), slog.String("key", *oldKey), slog.Any("error", err))
		}
	}

	populateEventBannerURL(event, s.uploader)
	return event, nil
}

// AutoCompleteFinishedEvents marks started events completed and moves each
// attendee's upcoming counter over to completed. Run periodically by the
// scheduler in main.
func (s *EventService) AutoCompleteFinishedEvents(ctx context.Context) error {
	return s.txManager.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		events, err := s.eventRepo.ListEndedBefore(ctx, exec, time.Now())
		if err != nil {
			return fmt.Errorf("failed to list finished events: %w", err)
		}
		for _, event := range events {
			if err := s.eventRepo.UpdateStatus(ctx, exec, event.ID, models.EventStatusCompleted); err != nil {
				return fmt.Errorf("failed to complete event %d: %w", event.ID, err)
			}
			attendeeIDs, err := s.registrationRepo.ListUserIDsByEvent(ctx, exec, event.ID)
			if err != nil {
				return fmt.Errorf("failed to list attendees of event %d: %w", event.ID, err)
			}
			for _, userID := range attendeeIDs {
				if err := s.userRepo.AdjustCounters(ctx, exec, userID, 0, -1, 1); err != nil {
					return fmt.Errorf("failed to update counters for user %d: %w", userID, err)
				}
			}
			s.logger.Info("event completed",
				slog.Int("event_id", event.ID), slog.Int("attendees", len(attendeeIDs)))
		}
		return nil
	})
}

func (s *EventService) getManagedEvent(ctx context.Context, callerID int, callerRole models.UserRole, eventID int) (*models.Event, error) {
	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, repositories.ErrEventNotFound) {
			return nil, ErrEventNotFound
		}
		return nil, err
	}
	if event.OrganizerID != callerID && callerRole != models.RoleAdmin {
		return nil, ErrForbiddenOperation
	}
	return event, nil
}

func validateEvent(e *models.Event) error {
	if e.Title == "" {
		return ErrEventTitleRequired
	}
	if e.StartsAt.IsZero() {
		return ErrEventDateRequired
	}
	if e.Location == "" {
		return fmt.Errorf("%w: location is required", ErrValidationFailed)
	}
	if e.Capacity < 0 {
		return ErrEventInvalidCapacity
	}
	if e.RegistrationDeadline != nil && e.RegistrationDeadline.After(e.StartsAt) {
		return ErrEventInvalidDeadline
	}

	switch e.RegistrationType {
	case models.RegistrationOneClick:
		// nothing extra
	case models.RegistrationForm:
		if len(e.Questions) == 0 {
			return fmt.Errorf("%w: at least one question is required", ErrEventQuestionsInvalid)
		}
		for _, q := range e.Questions {
			if q.Label == "" || !formQuestionTypes[q.Type] {
				return ErrEventQuestionsInvalid
			}
		}
	case models.RegistrationGoogleForm:
		if derefString(e.FormURL) == "" {
			return ErrEventFormURLRequired
		}
	default:
		return fmt.Errorf("%w: unknown registration type %q", ErrValidationFailed, e.RegistrationType)
	}

	if e.IsTeamEvent {
		if e.TeamConfig == nil {
			return fmt.Errorf("%w: team config is required for team events", ErrValidationFailed)
		}
		if e.TeamConfig.MinMembers < 1 || e.TeamConfig.MaxMembers < e.TeamConfig.MinMembers {
			return ErrEventInvalidTeamRange
		}
	}
	return nil
}
