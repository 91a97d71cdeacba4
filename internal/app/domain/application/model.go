// Package application defines player applications and their review lifecycle.
package application

import "time"

// Status is the review state of an application.
type Status string

const (
	StatusDraft       Status = "DRAFT"
	StatusSubmitted   Status = "SUBMITTED"
	StatusUnderReview Status = "UNDER_REVIEW"
	StatusApproved    Status = "APPROVED"
	StatusRejected    Status = "REJECTED"
	StatusHold        Status = "HOLD"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusSubmitted, StatusUnderReview, StatusApproved, StatusRejected, StatusHold:
		return true
	}
	return false
}

// Open reports whether the application is still in flight.
func (s Status) Open() bool {
	switch s {
	case StatusDraft, StatusSubmitted, StatusUnderReview, StatusHold:
		return true
	}
	return false
}

// Terminal reports whether no further transitions are possible.
func (s Status) Terminal() bool {
	return s == StatusApproved || s == StatusRejected
}

var transitions = map[Status][]Status{
	StatusDraft:       {StatusSubmitted},
	StatusSubmitted:   {StatusUnderReview},
	StatusUnderReview: {StatusApproved, StatusRejected, StatusHold},
	StatusHold:        {StatusUnderReview, StatusApproved, StatusRejected},
}

// CanTransition reports whether an application may move from one status to another.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Application is a player's registration submission.
type Application struct {
	ID              string     `json:"id" db:"id"`
	ApplicantID     string     `json:"applicant_id" db:"applicant_id"`
	FirstName       string     `json:"first_name" db:"first_name"`
	LastName        string     `json:"last_name" db:"last_name"`
	DateOfBirth     *time.Time `json:"date_of_birth,omitempty" db:"date_of_birth"`
	Gender          string     `json:"gender,omitempty" db:"gender"`
	Phone           string     `json:"phone,omitempty" db:"phone"`
	Email           string     `json:"email,omitempty" db:"email"`
	Address         string     `json:"address,omitempty" db:"address"`
	Position        string     `json:"position,omitempty" db:"position"`
	DominantFoot    string     `json:"dominant_foot,omitempty" db:"dominant_foot"`
	PreviousClub    string     `json:"previous_club,omitempty" db:"previous_club"`
	GuardianName    string     `json:"guardian_name,omitempty" db:"guardian_name"`
	GuardianPhone   string     `json:"guardian_phone,omitempty" db:"guardian_phone"`
	PreferredTeamID string     `json:"preferred_team_id,omitempty" db:"preferred_team_id"`
	Notes           string     `json:"notes,omitempty" db:"notes"`
	Status          Status     `json:"status" db:"status"`
	ReviewerID      string     `json:"reviewer_id,omitempty" db:"reviewer_id"`
	DecisionReason  string     `json:"decision_reason,omitempty" db:"decision_reason"`
	SubmittedAt     *time.Time `json:"submitted_at,omitempty" db:"submitted_at"`
	DecidedAt       *time.Time `json:"decided_at,omitempty" db:"decided_at"`
	CreatedAt       time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at" db:"updated_at"`
}

// FullName returns "First Last".
func (a Application) FullName() string {
	switch {
	case a.FirstName == "":
		return a.LastName
	case a.LastName == "":
		return a.FirstName
	}
	return a.FirstName + " " + a.LastName
}

// AgeAt returns the applicant's age in whole years at t, or -1 when the date
// of birth is unknown.
func (a Application) AgeAt(t time.Time) int {
	if a.DateOfBirth == nil {
		return -1
	}
	dob := a.DateOfBirth.UTC()
	t = t.UTC()
	age := t.Year() - dob.Year()
	if t.Month() < dob.Month() || (t.Month() == dob.Month() && t.Day() < dob.Day()) {
		age--
	}
	return age
}

// Event records one status change.
type Event struct {
	ID            string    `json:"id" db:"id"`
	ApplicationID string    `json:"application_id" db:"application_id"`
	From          Status    `json:"from" db:"from_status"`
	To            Status    `json:"to" db:"to_status"`
	ActorID       string    `json:"actor_id,omitempty" db:"actor_id"`
	Note          string    `json:"note,omitempty" db:"note"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}

// Age bounds checked on submission.
const (
	MinAge   = 5
	MaxAge   = 40
	AdultAge = 18
)

// SubmissionProblems lists fields that block submission at now, keyed by
// JSON field name. An empty map means the application can be submitted.
func (a Application) SubmissionProblems(now time.Time) map[string]string {
	problems := make(map[string]string)
	if a.FirstName == "" {
		problems["first_name"] = "is required"
	}
	if a.LastName == "" {
		problems["last_name"] = "is required"
	}
	if a.Position == "" {
		problems["position"] = "is required"
	}
	switch {
	case a.DateOfBirth == nil:
		problems["date_of_birth"] = "is required"
	case !a.DateOfBirth.Before(now):
		problems["date_of_birth"] = "must be in the past"
	default:
		age := a.AgeAt(now)
		if age < MinAge || age > MaxAge {
			problems["date_of_birth"] = "applicant must be between 5 and 40 years old"
		}
		if age < AdultAge {
			if a.GuardianName == "" {
				problems["guardian_name"] = "is required for applicants under 18"
			}
			if a.GuardianPhone == "" {
				problems["guardian_phone"] = "is required for applicants under 18"
			}
		}
	}
	return problems
}
