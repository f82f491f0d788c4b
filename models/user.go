package models

import "time"

// UserRole enumerates the access levels, matching the ENUM in the database.
type UserRole string

const (
	RoleGeneral   UserRole = "general"
	RoleOrganizer UserRole = "organizer"
	RoleAdmin     UserRole = "admin"
)

type User struct {
	ID               int      `json:"id" db:"id"`
	Name             string   `json:"name" db:"name"`
	Email            string   `json:"email" db:"email"`
	IDNumber         string   `json:"id_number" db:"id_number"`
	Branch           string   `json:"branch" db:"branch"`
	Role             UserRole `json:"role" db:"role"`
	RequestOrganizer bool     `json:"request_organizer" db:"request_organizer"`

	EventsRegistered int `json:"events_registered" db:"events_registered"`
	UpcomingEvents   int `json:"upcoming_events" db:"upcoming_events"`
	CompletedEvents  int `json:"completed_events" db:"completed_events"`

	PasswordHash           string     `json:"-" db:"password_hash"`
	EmailConfirmed         bool       `json:"email_confirmed" db:"email_confirmed"`
	EmailConfirmationToken *string    `json:"-" db:"email_confirmation_token"`
	PasswordResetToken     *string    `json:"-" db:"password_reset_token"`
	PasswordResetExpiresAt *time.Time `json:"-" db:"password_reset_expires_at"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
