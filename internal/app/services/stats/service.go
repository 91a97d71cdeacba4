// Package stats builds the admin dashboard and host status views.
package stats

import (
	"context"
	"time"

	"github.com/clubhouse-sports/clubhouse/internal/app/core/service"
	"github.com/clubhouse-sports/clubhouse/internal/app/domain/application"
	"github.com/clubhouse-sports/clubhouse/internal/app/domain/trial"
	"github.com/clubhouse-sports/clubhouse/internal/app/domain/user"
	"github.com/clubhouse-sports/clubhouse/internal/app/storage"
	"github.com/clubhouse-sports/clubhouse/pkg/logger"
)

// Dashboard is the admin overview.
type Dashboard struct {
	UsersByStatus        map[user.Status]int        `json:"users_by_status"`
	ApplicationsByStatus map[application.Status]int `json:"applications_by_status"`
	TrialsByStatus       map[trial.Status]int       `json:"trials_by_status"`
	TrialOutcomes        map[trial.Outcome]int      `json:"trial_outcomes"`
	Teams                int                        `json:"teams"`
	Coaches              int                        `json:"coaches"`
	ActiveCoaches        int                        `json:"active_coaches"`
	GeneratedAt          time.Time                  `json:"generated_at"`
}

// Service aggregates counts across the stores.
type Service struct {
	users       storage.UserStore
	apps        storage.ApplicationStore
	trials      storage.TrialStore
	coaches     storage.CoachStore
	teams       storage.TeamStore
	descriptors []service.Descriptor
	started     time.Time
	log         *logger.Logger
	now         func() time.Time
}

// New constructs the stats service.
func New(users storage.UserStore, apps storage.ApplicationStore, trials storage.TrialStore, coaches storage.CoachStore, teams storage.TeamStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("stats")
	}
	return &Service{
		users:   users,
		apps:    apps,
		trials:  trials,
		coaches: coaches,
		teams:   teams,
		started: time.Now(),
		log:     log,
		now:     time.Now,
	}
}

// Describe records the descriptors listed by the system view.
func (s *Service) Describe(descriptors ...service.Descriptor) {
	s.descriptors = append(s.descriptors, descriptors...)
}

// Descriptor advertises the service.
func (s *Service) Descriptor() service.Descriptor {
	return service.Descriptor{Name: "stats", Domain: "admin", Capabilities: []string{"dashboard", "system"}}
}

// Dashboard counts users, applications, trials, teams and coaches. Every
// known status appears in the maps, zero when absent.
func (s *Service) Dashboard(ctx context.Context) (Dashboard, error) {
	d := Dashboard{
		UsersByStatus:        make(map[user.Status]int),
		ApplicationsByStatus: make(map[application.Status]int),
		TrialsByStatus:       make(map[trial.Status]int),
		TrialOutcomes:        make(map[trial.Outcome]int),
		GeneratedAt:          s.now().UTC(),
	}
	for _, st := range []user.Status{user.StatusInvited, user.StatusVerified, user.StatusActive, user.StatusSuspended} {
		d.UsersByStatus[st] = 0
	}
	for _, st := range []application.Status{
		application.StatusDraft, application.StatusSubmitted, application.StatusUnderReview,
		application.StatusApproved, application.StatusRejected, application.StatusHold,
	} {
		d.ApplicationsByStatus[st] = 0
	}
	for _, st := range []trial.Status{trial.StatusPending, trial.StatusCompleted, trial.StatusCancelled} {
		d.TrialsByStatus[st] = 0
	}
	for _, o := range []trial.Outcome{trial.OutcomeRecommended, trial.OutcomeNotRecommended, trial.OutcomeNeedsRetest} {
		d.TrialOutcomes[o] = 0
	}

	users, err := s.users.CountUsersByStatus(ctx)
	if err != nil {
		return Dashboard{}, service.StoreError("user", "", err)
	}
	for k, v := range users {
		d.UsersByStatus[k] = v
	}
	apps, err := s.apps.CountApplicationsByStatus(ctx)
	if err != nil {
		return Dashboard{}, service.StoreError("application", "", err)
	}
	for k, v := range apps {
		d.ApplicationsByStatus[k] = v
	}
	trials, err := s.trials.CountTrialsByStatus(ctx)
	if err != nil {
		return Dashboard{}, service.StoreError("trial", "", err)
	}
	for k, v := range trials {
		d.TrialsByStatus[k] = v
	}
	outcomes, err := s.trials.CountTrialsByOutcome(ctx)
	if err != nil {
		return Dashboard{}, service.StoreError("trial", "", err)
	}
	for k, v := range outcomes {
		d.TrialOutcomes[k] = v
	}

	one := storage.ListParams{Limit: 1}
	if _, d.Teams, err = s.teams.ListTeams(ctx, storage.TeamFilter{ListParams: one}); err != nil {
		return Dashboard{}, service.StoreError("team", "", err)
	}
	if _, d.Coaches, err = s.coaches.ListCoaches(ctx, storage.CoachFilter{ListParams: one}); err != nil {
		return Dashboard{}, service.StoreError("coach", "", err)
	}
	active := true
	if _, d.ActiveCoaches, err = s.coaches.ListCoaches(ctx, storage.CoachFilter{Active: &active, ListParams: one}); err != nil {
		return Dashboard{}, service.StoreError("coach", "", err)
	}
	return d, nil
}
