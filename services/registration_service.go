package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"campus-events-api/models"
	"campus-events-api/repositories"
	"campus-events-api/utils"
)

// EventRegistrationInput carries the optional parts of a registration
// request. Members is set for team events (first member is the leader),
// Responses answers the organizer's custom form questions.
type EventRegistrationInput struct {
	Members   []models.TeamMember `json:"members"`
	Responses map[string]string   `json:"responses"`
}

// RegistrationOutcome is what a successful Register call produced. For
// google-form events nothing is written locally and only ExternalFormURL
// is set.
type RegistrationOutcome struct {
	Registration    *models.Registration `json:"registration,omitempty"`
	Team            *models.Team         `json:"team,omitempty"`
	ExternalFormURL *string              `json:"external_form_url,omitempty"`
}

type RegistrationService struct {
	txManager        repositories.TxManager
	eventRepo        repositories.EventRepository
	userRepo         repositories.UserRepository
	registrationRepo repositories.RegistrationRepository
	teamRepo         repositories.TeamRepository
	notifications    *NotificationService
	emailService     *EmailService
	orgEmailDomain   string
	studentIDPattern *regexp.Regexp
	logger           *slog.Logger
}

func NewRegistrationService(
	txManager repositories.TxManager,
	eventRepo repositories.EventRepository,
	userRepo repositories.UserRepository,
	registrationRepo repositories.RegistrationRepository,
	teamRepo repositories.TeamRepository,
	notifications *NotificationService,
	emailService *EmailService,
	orgEmailDomain string,
	studentIDPattern *regexp.Regexp,
	logger *slog.Logger,
) *RegistrationService {
	return &RegistrationService{
		txManager:        txManager,
		eventRepo:        eventRepo,
		userRepo:         userRepo,
		registrationRepo: registrationRepo,
		teamRepo:         teamRepo,
		notifications:    notifications,
		emailService:     emailService,
		orgEmailDomain:   orgEmailDomain,
		studentIDPattern: studentIDPattern,
		logger:           logger,
	}
}

// Register signs the user up for an event. Google-form events short-circuit
// with the external URL and write nothing. Everything else happens in one
// transaction holding a row lock on the event, so the capacity and duplicate
// checks cannot race with a concurrent registration.
func (s *RegistrationService) Register(ctx context.Context, userID, eventID int, input EventRegistrationInput) (*RegistrationOutcome, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, repositories.ErrEventNotFound) {
			return nil, ErrEventNotFound
		}
		return nil, err
	}

	if event.RegistrationType == models.RegistrationGoogleForm {
		if event.Status != models.EventStatusUpcoming {
			return nil, ErrEventNotOpen
		}
		return &RegistrationOutcome{ExternalFormURL: event.FormURL}, nil
	}

	outcome := &RegistrationOutcome{}
	err = s.txManager.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		locked, err := s.eventRepo.GetByIDForUpdate(ctx, exec, eventID)
		if err != nil {
			if errors.Is(err, repositories.ErrEventNotFound) {
				return ErrEventNotFound
			}
			return err
		}

		if locked.Status != models.EventStatusUpcoming {
			return ErrEventNotOpen
		}
		deadline := locked.StartsAt
		if locked.RegistrationDeadline != nil {
			deadline = *locked.RegistrationDeadline
		}
		if time.Now().After(deadline) {
			return ErrRegistrationClosed
		}

		if _, err := s.registrationRepo.FindByUserAndEvent(ctx, exec, userID, eventID); err == nil {
			return ErrAlreadyRegistered
		} else if !errors.Is(err, repositories.ErrRegistrationNotFound) {
			return err
		}

		if locked.Capacity > 0 {
			count, err := s.eventRepo.CountAttendees(ctx, exec, eventID)
			if err != nil {
				return err
			}
			if count >= locked.Capacity {
				return ErrEventFull
			}
		}

		reg := &models.Registration{EventID: eventID, UserID: userID}

		if locked.IsTeamEvent {
			team, err := s.buildTeam(locked, user, input.Members)
			if err != nil {
				return err
			}
			if err := s.teamRepo.Create(ctx, exec, team); err != nil {
				return err
			}
			outcome.Team = team
			reg.TeamID = &team.ID
		} else if len(input.Members) > 0 {
			return ErrTeamNotAllowed
		}

		if locked.RegistrationType == models.RegistrationForm {
			responses, err := collectFormResponses(locked.Questions, input.Responses)
			if err != nil {
				return err
			}
			reg.Responses = responses
		}

		if err := s.registrationRepo.Create(ctx, exec, reg); err != nil {
			if errors.Is(err, repositories.ErrRegistrationConflict) {
				return ErrAlreadyRegistered
			}
			return err
		}
		if err := s.userRepo.AdjustCounters(ctx, exec, userID, 1, 1, 0); err != nil {
			return err
		}

		outcome.Registration = reg
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifyRegistered(ctx, user, event)
	return outcome, nil
}

// Unregister removes the caller's registration while the event has not
// started. The leader unregistering a team event takes the whole team with
// them.
func (s *RegistrationService) Unregister(ctx context.Context, userID, eventID int) error {
	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, repositories.ErrEventNotFound) {
			return ErrEventNotFound
		}
		return err
	}
	if event.RegistrationType == models.RegistrationGoogleForm {
		return ErrUnregisterNotSupported
	}
	if event.Status != models.EventStatusUpcoming {
		return ErrEventNotOpen
	}
	if time.Now().After(event.StartsAt) {
		return ErrEventAlreadyStarted
	}

	return s.txManager.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		reg, err := s.registrationRepo.FindByUserAndEvent(ctx, exec, userID, eventID)
		if err != nil {
			if errors.Is(err, repositories.ErrRegistrationNotFound) {
				return ErrNotRegistered
			}
			return err
		}

		if err := s.registrationRepo.Delete(ctx, exec, reg.ID); err != nil {
			return err
		}
		if reg.TeamID != nil {
			if err := s.teamRepo.Delete(ctx, exec, *reg.TeamID); err != nil &&
				!errors.Is(err, repositories.ErrTeamNotFound) {
				return err
			}
		}
		return s.userRepo.AdjustCounters(ctx, exec, userID, -1, -1, 0)
	})
}

// GetRegistration returns the caller's registration for an event, if any.
func (s *RegistrationService) GetRegistration(ctx context.Context, userID, eventID int) (*models.Registration, error) {
	reg, err := s.registrationRepo.FindByUserAndEvent(ctx, nil, userID, eventID)
	if err != nil {
		if errors.Is(err, repositories.ErrRegistrationNotFound) {
			return nil, ErrNotRegistered
		}
		return nil, err
	}
	return reg, nil
}

// ListEventAttendees returns an event's registrations with users and teams
// joined in. Only the organizer of the event or an admin may see it.
func (s *RegistrationService) ListEventAttendees(ctx context.Context, callerID int, callerRole models.UserRole, eventID int) ([]*models.Registration, error) {
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

	regs, err := s.registrationRepo.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	for _, reg := range regs {
		sanitizeUser(reg.User)
	}

	if event.IsTeamEvent {
		teams, err := s.teamRepo.ListByEvent(ctx, eventID)
		if err != nil {
			return nil, err
		}
		byID := make(map[int]*models.Team, len(teams))
		for _, team := range teams {
			sanitizeUser(team.Leader)
			byID[team.ID] = team
		}
		for _, reg := range regs {
			if reg.TeamID != nil {
				reg.Team = byID[*reg.TeamID]
			}
		}
	}
	return regs, nil
}

func (s *RegistrationService) buildTeam(event *models.Event, leader *models.User, members []models.TeamMember) (*models.Team, error) {
	if len(members) == 0 {
		return nil, ErrTeamRequired
	}
	cfg := event.TeamConfig
	if cfg != nil && (len(members) < cfg.MinMembers || len(members) > cfg.MaxMembers) {
		return nil, ErrTeamSizeInvalid
	}

	for i := range members {
		m := &members[i]
		m.Name = strings.TrimSpace(m.Name)
		m.Email = strings.ToLower(strings.TrimSpace(m.Email))
		m.IDNumber = utils.NormalizeIDNumber(m.IDNumber)

		if m.Name == "" {
			return nil, fmt.Errorf("%w: member %d has no name", ErrTeamMemberInvalid, i+1)
		}
		if !utils.IsValidEmail(m.Email) || !strings.HasSuffix(m.Email, "@"+s.orgEmailDomain) {
			return nil, fmt.Errorf("%w: member %d must use a %s address", ErrTeamMemberInvalid, i+1, s.orgEmailDomain)
		}
		if !s.studentIDPattern.MatchString(m.IDNumber) {
			return nil, fmt.Errorf("%w: member %d has an invalid id number", ErrTeamMemberInvalid, i+1)
		}
		if !utils.IsValidBranch(m.Branch) {
			return nil, fmt.Errorf("%w: member %d has an unknown branch", ErrTeamMemberInvalid, i+1)
		}
	}

	return &models.Team{
		EventID:  event.ID,
		LeaderID: leader.ID,
		Members:  members,
	}, nil
}

func collectFormResponses(questions []models.FormQuestion, responses map[string]string) (map[string]string, error) {
	collected := make(map[string]string, len(questions))
	for _, q := range questions {
		answer := strings.TrimSpace(responses[q.Label])
		if answer == "" {
			return nil, fmt.Errorf("%w: %q is unanswered", ErrFormResponsesRequired, q.Label)
		}
		collected[q.Label] = answer
	}
	return collected, nil
}

func (s *RegistrationService) notifyRegistered(ctx context.Context, user *models.User, event *models.Event) {
	details := fmt.Sprintf("See you at %s on %s.", event.Location, event.StartsAt.Format("2 Jan 2006 15:04"))
	eid := event.ID
	if err := s.notifications.Push(ctx, &models.Notification{
		UserID:  user.ID,
		Type:    models.NotificationEventRegistration,
		Message: fmt.Sprintf("You are registered for %s", event.Title),
		Details: &details,
		EventID: &eid,
	}); err != nil {
		s.logger.Error("failed to create registration notification",
			slog.Int("user_id", user.ID), slog.Int("event_id", event.ID), slog.Any("error", err))
	}

	if s.emailService != nil {
		email, title, location, startsAt := user.Email, event.Title, event.Location, event.StartsAt
		go func() {
			if err := s.emailService.SendRegistrationConfirmationEmail(email, title, location, startsAt); err != nil {
				s.logger.Error("failed to send registration confirmation email",
					slog.String("email", email), slog.Any("error", err))
			}
		}()
	}
}
