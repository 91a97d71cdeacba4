// Package coaches manages coach profiles and their COACH accounts.
package coaches

import (
	"context"
	"strings"

	"github.com/clubhouse-sports/clubhouse/internal/app/core/service"
	"github.com/clubhouse-sports/clubhouse/internal/app/domain/coach"
	"github.com/clubhouse-sports/clubhouse/internal/app/domain/trial"
	"github.com/clubhouse-sports/clubhouse/internal/app/domain/user"
	"github.com/clubhouse-sports/clubhouse/internal/app/services/auth"
	"github.com/clubhouse-sports/clubhouse/internal/app/storage"
	svcerrors "github.com/clubhouse-sports/clubhouse/internal/errors"
	"github.com/clubhouse-sports/clubhouse/pkg/logger"
)

// CreateInput registers a coach.
type CreateInput struct {
	FullName      string `json:"full_name"`
	Phone         string `json:"phone"`
	Email         string `json:"email"`
	Specialty     string `json:"specialty"`
	Certification string `json:"certification"`
}

// UpdateInput edits a coach profile. Nil fields are left untouched.
type UpdateInput struct {
	FullName      *string `json:"full_name"`
	Email         *string `json:"email"`
	Specialty     *string `json:"specialty"`
	Certification *string `json:"certification"`
}

// Service manages coaches.
type Service struct {
	coaches storage.CoachStore
	users   storage.UserStore
	trials  storage.TrialStore
	teams   storage.TeamStore
	auth    *auth.Service
	log     *logger.Logger
}

// New constructs the coaches service.
func New(coaches storage.CoachStore, users storage.UserStore, trials storage.TrialStore, teams storage.TeamStore, authService *auth.Service, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("coaches")
	}
	return &Service{coaches: coaches, users: users, trials: trials, teams: teams, auth: authService, log: log}
}

// Descriptor advertises the service.
func (s *Service) Descriptor() service.Descriptor {
	return service.Descriptor{Name: "coaches", Domain: "coach", Capabilities: []string{"invite", "activation"}}
}

// Create invites a COACH account and creates its active profile.
func (s *Service) Create(ctx context.Context, in CreateInput) (coach.Coach, error) {
	u, err := s.auth.Invite(ctx, auth.InviteInput{
		Phone:    in.Phone,
		Email:    in.Email,
		FullName: in.FullName,
		Role:     user.RoleCoach,
	})
	if err != nil {
		return coach.Coach{}, err
	}
	created, err := s.coaches.CreateCoach(ctx, coach.Coach{
		UserID:        u.ID,
		FullName:      u.FullName,
		Phone:         u.Phone,
		Email:         u.Email,
		Specialty:     strings.TrimSpace(in.Specialty),
		Certification: strings.TrimSpace(in.Certification),
		Active:        true,
	})
	if err != nil {
		return coach.Coach{}, service.StoreError("coach", "", err)
	}
	s.log.WithField("coach_id", created.ID).WithField("user_id", u.ID).Info("coach created")
	return created, nil
}

// Get returns a coach profile.
func (s *Service) Get(ctx context.Context, id string) (coach.Coach, error) {
	c, err := s.coaches.GetCoach(ctx, id)
	if err != nil {
		return coach.Coach{}, service.StoreError("coach", id, err)
	}
	return c, nil
}

// List returns coach profiles.
func (s *Service) List(ctx context.Context, filter storage.CoachFilter) (storage.Page[coach.Coach], error) {
	filter.ListParams = filter.ListParams.Normalize()
	items, total, err := s.coaches.ListCoaches(ctx, filter)
	if err != nil {
		return storage.Page[coach.Coach]{}, service.StoreError("coach", "", err)
	}
	return storage.NewPage(items, total, filter.ListParams), nil
}

// Update edits a profile and mirrors name and email onto the account.
func (s *Service) Update(ctx context.Context, id string, in UpdateInput) (coach.Coach, error) {
	c, err := s.Get(ctx, id)
	if err != nil {
		return coach.Coach{}, err
	}
	if in.FullName != nil {
		name := strings.TrimSpace(*in.FullName)
		if name == "" {
			return coach.Coach{}, svcerrors.Validation("full_name", "must not be empty")
		}
		c.FullName = name
	}
	if in.Email != nil {
		c.Email = strings.TrimSpace(*in.Email)
	}
	if in.Specialty != nil {
		c.Specialty = strings.TrimSpace(*in.Specialty)
	}
	if in.Certification != nil {
		c.Certification = strings.TrimSpace(*in.Certification)
	}
	updated, err := s.coaches.UpdateCoach(ctx, c)
	if err != nil {
		return coach.Coach{}, service.StoreError("coach", id, err)
	}

	if in.FullName != nil || in.Email != nil {
		u, err := s.users.GetUser(ctx, c.UserID)
		if err != nil {
			return coach.Coach{}, service.StoreError("user", c.UserID, err)
		}
		u.FullName = updated.FullName
		u.Email = updated.Email
		if _, err := s.users.UpdateUser(ctx, u); err != nil {
			return coach.Coach{}, service.StoreError("user", c.UserID, err)
		}
	}
	return updated, nil
}

// Deactivate retires a coach. It fails while the coach has pending trials
// or heads a team.
func (s *Service) Deactivate(ctx context.Context, id string) (coach.Coach, error) {
	c, err := s.Get(ctx, id)
	if err != nil {
		return coach.Coach{}, err
	}
	_, pending, err := s.trials.ListTrials(ctx, storage.TrialFilter{
		CoachID:    id,
		Status:     trial.StatusPending,
		ListParams: storage.ListParams{Limit: 1},
	})
	if err != nil {
		return coach.Coach{}, service.StoreError("trial", "", err)
	}
	if pending > 0 {
		return coach.Coach{}, svcerrors.Conflict("coach has pending trials").WithDetails("pending_trials", pending)
	}
	_, headed, err := s.teams.ListTeams(ctx, storage.TeamFilter{
		HeadCoachID: id,
		ListParams:  storage.ListParams{Limit: 1},
	})
	if err != nil {
		return coach.Coach{}, service.StoreError("team", "", err)
	}
	if headed > 0 {
		return coach.Coach{}, svcerrors.Conflict("coach heads a team").WithDetails("teams", headed)
	}
	return s.setActive(ctx, c, false)
}

// Activate re-enables a coach.
func (s *Service) Activate(ctx context.Context, id string) (coach.Coach, error) {
	c, err := s.Get(ctx, id)
	if err != nil {
		return coach.Coach{}, err
	}
	return s.setActive(ctx, c, true)
}

func (s *Service) setActive(ctx context.Context, c coach.Coach, active bool) (coach.Coach, error) {
	if c.Active == active {
		return c, nil
	}
	c.Active = active
	updated, err := s.coaches.UpdateCoach(ctx, c)
	if err != nil {
		return coach.Coach{}, service.StoreError("coach", c.ID, err)
	}
	s.log.WithField("coach_id", c.ID).WithField("active", active).Info("coach activation changed")
	return updated, nil
}
