package models

import (
	"encoding/json"
	"time"
)

// TeamMember holds the details collected for each member at registration time.
// The first member of a submission is the team leader.
type TeamMember struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	IDNumber string `json:"id_number"`
	Branch   string `json:"branch"`
}

type Team struct {
	ID          int       `json:"id" db:"id"`
	EventID     int       `json:"event_id" db:"event_id"`
	LeaderID    int       `json:"leader_id" db:"leader_id"`
	MembersJSON string    `json:"-" db:"members_json"`
	CreatedAt   time.Time `json:"registered_at" db:"created_at"`

	Members []TeamMember `json:"members" db:"-"`
	Leader  *User        `json:"leader,omitempty" db:"-"`
}

func (t *Team) DecodeMembers() error {
	if t.MembersJSON == "" {
		t.Members = nil
		return nil
	}
	return json.Unmarshal([]byte(t.MembersJSON), &t.Members)
}

func (t *Team) EncodeMembers() error {
	raw, err := json.Marshal(t.Members)
	if err != nil {
		return err
	}
	t.MembersJSON = string(raw)
	return nil
}
