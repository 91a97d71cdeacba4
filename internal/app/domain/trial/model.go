// Package trial defines coach evaluations of an application.
package trial

import (
	"time"

	"github.com/clubhouse-sports/clubhouse/internal/app/domain/application"
)

// Status is the trial lifecycle state.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusCompleted Status = "COMPLETED"
	StatusCancelled Status = "CANCELLED"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Outcome is the coach's recommendation.
type Outcome string

const (
	OutcomeRecommended    Outcome = "RECOMMENDED"
	OutcomeNotRecommended Outcome = "NOT_RECOMMENDED"
	OutcomeNeedsRetest    Outcome = "NEEDS_RETEST"
)

// Valid reports whether o is a known outcome.
func (o Outcome) Valid() bool {
	switch o {
	case OutcomeRecommended, OutcomeNotRecommended, OutcomeNeedsRetest:
		return true
	}
	return false
}

// ApplicationStatus maps an outcome onto the application status it drives.
func (o Outcome) ApplicationStatus() application.Status {
	switch o {
	case OutcomeRecommended:
		return application.StatusApproved
	case OutcomeNotRecommended:
		return application.StatusRejected
	default:
		return application.StatusHold
	}
}

// Score bounds for each evaluated skill.
const (
	MinScore = 1
	MaxScore = 10
)

// Trial is a scheduled evaluation.
type Trial struct {
	ID            string         `json:"id" db:"id"`
	ApplicationID string         `json:"application_id" db:"application_id"`
	CoachID       string         `json:"coach_id" db:"coach_id"`
	ScheduledAt   time.Time      `json:"scheduled_at" db:"scheduled_at"`
	Location      string         `json:"location,omitempty" db:"location"`
	Status        Status         `json:"status" db:"status"`
	Outcome       Outcome        `json:"outcome,omitempty" db:"outcome"`
	Scores        map[string]int `json:"scores,omitempty" db:"-"`
	Notes         string         `json:"notes,omitempty" db:"notes"`
	CompletedAt   *time.Time     `json:"completed_at,omitempty" db:"completed_at"`
	CreatedAt     time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at" db:"updated_at"`
}
