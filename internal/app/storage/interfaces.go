package storage

import (
	"context"
	"errors"
	"time"

	"github.com/clubhouse-sports/clubhouse/internal/app/domain/application"
	"github.com/clubhouse-sports/clubhouse/internal/app/domain/coach"
	"github.com/clubhouse-sports/clubhouse/internal/app/domain/document"
	"github.com/clubhouse-sports/clubhouse/internal/app/domain/team"
	"github.com/clubhouse-sports/clubhouse/internal/app/domain/trial"
	"github.com/clubhouse-sports/clubhouse/internal/app/domain/user"
)

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("storage: not found")
	// ErrConflict is returned when a write violates a uniqueness rule.
	ErrConflict = errors.New("storage: conflict")
)

// Pagination bounds.
const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// ListParams carries LIMIT/OFFSET pagination.
type ListParams struct {
	Limit  int
	Offset int
}

// Normalize clamps the params to the allowed window.
func (p ListParams) Normalize() ListParams {
	if p.Limit <= 0 {
		p.Limit = DefaultLimit
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}

// Page is one window of a listing plus the unpaged total.
type Page[T any] struct {
	Items  []T `json:"items"`
	Total  int `json:"total"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// NewPage builds a page, never returning a nil item slice.
func NewPage[T any](items []T, total int, params ListParams) Page[T] {
	if items == nil {
		items = []T{}
	}
	return Page[T]{Items: items, Total: total, Limit: params.Limit, Offset: params.Offset}
}

// UserFilter narrows ListUsers.
type UserFilter struct {
	Role   user.Role
	Status user.Status
	Query  string
	ListParams
}

// UserStore persists accounts.
type UserStore interface {
	CreateUser(ctx context.Context, u user.User) (user.User, error)
	UpdateUser(ctx context.Context, u user.User) (user.User, error)
	GetUser(ctx context.Context, id string) (user.User, error)
	GetUserByPhone(ctx context.Context, phone string) (user.User, error)
	ListUsers(ctx context.Context, filter UserFilter) ([]user.User, int, error)
	CountUsersByStatus(ctx context.Context) (map[user.Status]int, error)
	// RecordFailedLogin atomically counts a failed login. When the count
	// reaches max the account is locked until now+lockFor and the counter
	// resets. An account that is already locked is returned unchanged.
	RecordFailedLogin(ctx context.Context, id string, max int, lockFor time.Duration, now time.Time) (user.User, error)
	// RecordLogin clears the failure counter and lock and stamps the login time.
	RecordLogin(ctx context.Context, id string, at time.Time) (user.User, error)
}

// SessionStore persists issued access sessions.
type SessionStore interface {
	CreateSession(ctx context.Context, sess user.Session) (user.Session, error)
	GetSessionByTokenHash(ctx context.Context, hash string) (user.Session, error)
	TouchSession(ctx context.Context, id string, at time.Time) error
	DeleteSession(ctx context.Context, id string) error
	DeleteUserSessions(ctx context.Context, userID string) (int, error)
	DeleteExpiredSessions(ctx context.Context, before time.Time) (int, error)
}

// ApplicationFilter narrows ListApplications.
type ApplicationFilter struct {
	ApplicantID string
	CoachID     string
	TeamID      string
	Statuses    []application.Status
	Query       string
	ListParams
}

// ApplicationStore persists applications and their status history.
type ApplicationStore interface {
	CreateApplication(ctx context.Context, app application.Application) (application.Application, error)
	UpdateApplication(ctx context.Context, app application.Application) (application.Application, error)
	GetApplication(ctx context.Context, id string) (application.Application, error)
	DeleteApplication(ctx context.Context, id string) error
	ListApplications(ctx context.Context, filter ApplicationFilter) ([]application.Application, int, error)
	CountApplicationsByStatus(ctx context.Context) (map[application.Status]int, error)

	AppendApplicationEvent(ctx context.Context, evt application.Event) (application.Event, error)
	ListApplicationEvents(ctx context.Context, applicationID string) ([]application.Event, error)
}

// TrialFilter narrows ListTrials.
type TrialFilter struct {
	ApplicationID string
	ApplicantID   string
	CoachID       string
	Status        trial.Status
	ListParams
}

// TrialStore persists trials.
type TrialStore interface {
	CreateTrial(ctx context.Context, t trial.Trial) (trial.Trial, error)
	UpdateTrial(ctx context.Context, t trial.Trial) (trial.Trial, error)
	DeleteTrial(ctx context.Context, id string) error
	GetTrial(ctx context.Context, id string) (trial.Trial, error)
	ListTrials(ctx context.Context, filter TrialFilter) ([]trial.Trial, int, error)
	CountTrialsByStatus(ctx context.Context) (map[trial.Status]int, error)
	CountTrialsByOutcome(ctx context.Context) (map[trial.Outcome]int, error)
}

// CoachFilter narrows ListCoaches.
type CoachFilter struct {
	Active *bool
	Query  string
	ListParams
}

// CoachStore persists coach profiles.
type CoachStore interface {
	CreateCoach(ctx context.Context, c coach.Coach) (coach.Coach, error)
	UpdateCoach(ctx context.Context, c coach.Coach) (coach.Coach, error)
	GetCoach(ctx context.Context, id string) (coach.Coach, error)
	GetCoachByUserID(ctx context.Context, userID string) (coach.Coach, error)
	ListCoaches(ctx context.Context, filter CoachFilter) ([]coach.Coach, int, error)
}

// TeamFilter narrows ListTeams.
type TeamFilter struct {
	HeadCoachID string
	Query       string
	ListParams
}

// TeamStore persists teams and rosters.
type TeamStore interface {
	CreateTeam(ctx context.Context, t team.Team) (team.Team, error)
	UpdateTeam(ctx context.Context, t team.Team) (team.Team, error)
	GetTeam(ctx context.Context, id string) (team.Team, error)
	DeleteTeam(ctx context.Context, id string) error
	ListTeams(ctx context.Context, filter TeamFilter) ([]team.Team, int, error)

	AddRosterEntry(ctx context.Context, entry team.RosterEntry) (team.RosterEntry, error)
	RemoveRosterEntry(ctx context.Context, teamID, applicationID string) error
	ListRoster(ctx context.Context, teamID string) ([]team.RosterEntry, error)
	GetRosterEntryByApplication(ctx context.Context, applicationID string) (team.RosterEntry, error)
}

// DocumentStore persists upload metadata.
type DocumentStore interface {
	CreateDocument(ctx context.Context, doc document.Document) (document.Document, error)
	GetDocument(ctx context.Context, id string) (document.Document, error)
	ListDocuments(ctx context.Context, applicationID string) ([]document.Document, error)
	DeleteDocument(ctx context.Context, id string) error
}
