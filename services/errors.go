package services

import "errors"

// Shared sentinel errors used across services and the HTTP error mapping.
var (
	ErrNotFound = errors.New("requested resource not found")

	// Validation and business rules
	ErrValidationFailed      = errors.New("validation failed")
	ErrPasswordTooShort      = errors.New("password is too short")
	ErrEventTitleRequired    = errors.New("event title is required")
	ErrEventDateRequired     = errors.New("event date is required")
	ErrEventInvalidDeadline  = errors.New("registration deadline must be before the event start")
	ErrEventInvalidCapacity  = errors.New("event capacity cannot be negative")
	ErrEventInvalidTeamRange = errors.New("team size range is invalid")
	ErrEventFormURLRequired  = errors.New("external form URL is required for google form events")
	ErrEventQuestionsInvalid = errors.New("custom form questions are invalid")
	ErrEventAlreadyStarted   = errors.New("event has already started")

	// Registration workflow
	ErrRegistrationClosed     = errors.New("registration for this event has closed")
	ErrEventNotOpen           = errors.New("event is not open for registration")
	ErrEventFull              = errors.New("event has reached its capacity")
	ErrAlreadyRegistered      = errors.New("user is already registered for this event")
	ErrNotRegistered          = errors.New("user is not registered for this event")
	ErrTeamRequired           = errors.New("team members are required for a team event")
	ErrTeamNotAllowed         = errors.New("team submission is not allowed for a solo event")
	ErrTeamSizeInvalid        = errors.New("team size is outside the allowed range")
	ErrTeamMemberInvalid      = errors.New("one or more team members have invalid details")
	ErrFormResponsesRequired  = errors.New("answers to all registration questions are required")
	ErrExternalRegistration   = errors.New("registration is handled by an external form")
	ErrUnregisterNotSupported = errors.New("externally registered events cannot be unregistered here")

	// Conflicts
	ErrUserEmailConflict    = errors.New("email address is already in use")
	ErrUserIDNumberConflict = errors.New("id number is already in use")

	// Authentication and authorization
	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrForbiddenOperation   = errors.New("operation not allowed for the current user")
	ErrEmailNotConfirmed    = errors.New("email address has not been confirmed")
	ErrTokenInvalid         = errors.New("invalid or expired token")
	ErrEmailAlreadyConfirmed = errors.New("email is already confirmed")

	// Entity-specific lookups
	ErrUserNotFound         = errors.New("user not found")
	ErrEventNotFound        = errors.New("event not found")
	ErrTeamNotFound         = errors.New("team not found")
	ErrNotificationNotFound = errors.New("notification not found")

	// Organizer workflow
	ErrOrganizerRequestMissing = errors.New("user has no pending organizer request")
	ErrAlreadyOrganizer        = errors.New("user is already an organizer")
	ErrNotOrganizer            = errors.New("user is not an organizer")
)
