package models

import "time"

type NotificationType string

const (
	NotificationEventRegistration NotificationType = "event_registration"
	NotificationEventCanceled     NotificationType = "event_canceled"
	NotificationOrganizerApproved NotificationType = "organizer_approved"
	NotificationOrganizerDenied   NotificationType = "organizer_denied"
	NotificationOrganizerRevoked  NotificationType = "organizer_revoked"
)

type Notification struct {
	ID        int              `json:"id" db:"id"`
	UserID    int              `json:"user_id" db:"user_id"`
	Type      NotificationType `json:"type" db:"type"`
	Message   string           `json:"message" db:"message"`
	Details   *string          `json:"details,omitempty" db:"details"`
	EventID   *int             `json:"event_id,omitempty" db:"event_id"`
	Read      bool             `json:"read" db:"read"`
	CreatedAt time.Time        `json:"created_at" db:"created_at"`
}
