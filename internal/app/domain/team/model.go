// Package team defines teams and their rosters.
package team

import "time"

// Team is a squad within a season.
type Team struct {
	ID          string    `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	AgeGroup    string    `json:"age_group,omitempty" db:"age_group"`
	Division    string    `json:"division,omitempty" db:"division"`
	Season      string    `json:"season,omitempty" db:"season"`
	HeadCoachID string    `json:"head_coach_id,omitempty" db:"head_coach_id"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// Jersey number bounds.
const (
	MinJersey = 1
	MaxJersey = 99
)

// RosterEntry places an approved applicant on a team.
type RosterEntry struct {
	TeamID        string    `json:"team_id" db:"team_id"`
	ApplicationID string    `json:"application_id" db:"application_id"`
	PlayerName    string    `json:"player_name" db:"player_name"`
	Position      string    `json:"position,omitempty" db:"position"`
	JerseyNumber  int       `json:"jersey_number" db:"jersey_number"`
	JoinedAt      time.Time `json:"joined_at" db:"joined_at"`
}
