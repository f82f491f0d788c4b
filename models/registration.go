package models

import (
	"encoding/json"
	"time"
)

// Registration records one attendee-list entry for an event. For team events
// the row belongs to the team leader and TeamID points at the team record.
type Registration struct {
	ID            int       `json:"id" db:"id"`
	EventID       int       `json:"event_id" db:"event_id"`
	UserID        int       `json:"user_id" db:"user_id"`
	TeamID        *int      `json:"team_id,omitempty" db:"team_id"`
	ResponsesJSON *string   `json:"-" db:"responses_json"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`

	Responses map[string]string `json:"responses,omitempty" db:"-"`
	User      *User             `json:"user,omitempty" db:"-"`
	Team      *Team             `json:"team,omitempty" db:"-"`
	Event     *Event            `json:"event,omitempty" db:"-"`
}

func (r *Registration) DecodeResponses() error {
	if r.ResponsesJSON == nil || *r.ResponsesJSON == "" {
		r.Responses = nil
		return nil
	}
	return json.Unmarshal([]byte(*r.ResponsesJSON), &r.Responses)
}

func (r *Registration) EncodeResponses() error {
	if len(r.Responses) == 0 {
		r.ResponsesJSON = nil
		return nil
	}
	raw, err := json.Marshal(r.Responses)
	if err != nil {
		return err
	}
	s := string(raw)
	r.ResponsesJSON = &s
	return nil
}
