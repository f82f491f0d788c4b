package models

import (
	"encoding/json"
	"time"
)

// EventStatus represents event lifecycle states, matching the ENUM in the database.
type EventStatus string

const (
	EventStatusUpcoming  EventStatus = "upcoming"
	EventStatusCompleted EventStatus = "completed"
	EventStatusCanceled  EventStatus = "canceled"
)

// RegistrationType selects how attendees sign up for an event.
type RegistrationType string

const (
	// RegistrationOneClick registers the caller directly, no extra input.
	RegistrationOneClick RegistrationType = "one_click"
	// RegistrationForm captures answers to the organizer's custom questions.
	RegistrationForm RegistrationType = "form"
	// RegistrationGoogleForm delegates sign-up to an external form URL;
	// the system records nothing locally for these events.
	RegistrationGoogleForm RegistrationType = "google_form"
)

// TeamConfig bounds the allowed team size, leader included.
type TeamConfig struct {
	MinMembers int `json:"min_members"`
	MaxMembers int `json:"max_members"`
}

// FormQuestion is a single question of a custom registration form.
// Type is one of: text, textarea, number, date, time.
type FormQuestion struct {
	Label string `json:"label"`
	Type  string `json:"type"`
}

type Event struct {
	ID                   int              `json:"id" db:"id"`
	Title                string           `json:"title" db:"title"`
	Description          *string          `json:"description,omitempty" db:"description"`
	Location             string           `json:"location" db:"location"`
	Category             string           `json:"category" db:"category"`
	OrganizerID          int              `json:"organizer_id" db:"organizer_id"`
	StartsAt             time.Time        `json:"starts_at" db:"starts_at"`
	RegistrationDeadline *time.Time       `json:"registration_deadline,omitempty" db:"registration_deadline"`
	RegistrationType     RegistrationType `json:"registration_type" db:"registration_type"`
	FormURL              *string          `json:"form_url,omitempty" db:"form_url"`
	IsTeamEvent          bool             `json:"is_team_event" db:"is_team_event"`
	MinTeamMembers       *int             `json:"-" db:"min_team_members"`
	MaxTeamMembers       *int             `json:"-" db:"max_team_members"`
	Capacity             int              `json:"capacity" db:"capacity"` // 0 = unlimited
	Status               EventStatus      `json:"status" db:"status"`
	QuestionsJSON        *string          `json:"-" db:"questions_json"` // raw JSON string from DB
	CreatedAt            time.Time        `json:"created_at" db:"created_at"`
	BannerKey            *string          `json:"-" db:"banner_key"`
	BannerURL            *string          `json:"banner_url,omitempty" db:"-"`

	TeamConfig    *TeamConfig    `json:"team_config,omitempty" db:"-"`
	Questions     []FormQuestion `json:"questions,omitempty" db:"-"`
	Organizer     *User          `json:"organizer,omitempty" db:"-"`
	AttendeeCount int            `json:"attendee_count" db:"-"`
}

// DecodeQuestions populates Questions from the raw JSON column.
func (e *Event) DecodeQuestions() error {
	if e.QuestionsJSON == nil || *e.QuestionsJSON == "" {
		e.Questions = nil
		return nil
	}
	return json.Unmarshal([]byte(*e.QuestionsJSON), &e.Questions)
}

// EncodeQuestions serializes Questions into the raw JSON column.
func (e *Event) EncodeQuestions() error {
	if len(e.Questions) == 0 {
		e.QuestionsJSON = nil
		return nil
	}
	raw, err := json.Marshal(e.Questions)
	if err != nil {
		return err
	}
	s := string(raw)
	e.QuestionsJSON = &s
	return nil
}

// DecodeTeamConfig populates TeamConfig from the nullable columns.
func (e *Event) DecodeTeamConfig() {
	if e.MinTeamMembers != nil && e.MaxTeamMembers != nil {
		e.TeamConfig = &TeamConfig{MinMembers: *e.MinTeamMembers, MaxMembers: *e.MaxTeamMembers}
	}
}

// EncodeTeamConfig mirrors TeamConfig back into the nullable columns.
func (e *Event) EncodeTeamConfig() {
	if e.TeamConfig != nil {
		minM, maxM := e.TeamConfig.MinMembers, e.TeamConfig.MaxMembers
		e.MinTeamMembers = &minM
		e.MaxTeamMembers = &maxM
	} else {
		e.MinTeamMembers = nil
		e.MaxTeamMembers = nil
	}
}
