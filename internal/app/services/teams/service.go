// Package teams manages teams and their rosters.
package teams

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/clubhouse-sports/clubhouse/internal/app/core/service"
	"github.com/clubhouse-sports/clubhouse/internal/app/domain/application"
	"github.com/clubhouse-sports/clubhouse/internal/app/domain/team"
	"github.com/clubhouse-sports/clubhouse/internal/app/storage"
	svcerrors "github.com/clubhouse-sports/clubhouse/internal/errors"
	"github.com/clubhouse-sports/clubhouse/pkg/logger"
)

// Input carries team fields. Nil pointers are left untouched on update.
type Input struct {
	Name        *string `json:"name"`
	AgeGroup    *string `json:"age_group"`
	Division    *string `json:"division"`
	Season      *string `json:"season"`
	HeadCoachID *string `json:"head_coach_id"`
}

// RosterInput places an approved applicant on a team.
type RosterInput struct {
	ApplicationID string `json:"application_id"`
	JerseyNumber  int    `json:"jersey_number"`
}

// Service manages teams.
type Service struct {
	teams   storage.TeamStore
	apps    storage.ApplicationStore
	coaches storage.CoachStore
	log     *logger.Logger
}

// New constructs the teams service.
func New(teams storage.TeamStore, apps storage.ApplicationStore, coaches storage.CoachStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("teams")
	}
	return &Service{teams: teams, apps: apps, coaches: coaches, log: log}
}

// Descriptor advertises the service.
func (s *Service) Descriptor() service.Descriptor {
	return service.Descriptor{Name: "teams", Domain: "team", Capabilities: []string{"crud", "roster"}}
}

// Create adds a team. Names are unique ignoring case.
func (s *Service) Create(ctx context.Context, in Input) (team.Team, error) {
	var t team.Team
	if err := s.apply(ctx, &t, in); err != nil {
		return team.Team{}, err
	}
	if t.Name == "" {
		return team.Team{}, svcerrors.Validation("name", "is required")
	}
	created, err := s.teams.CreateTeam(ctx, t)
	if errors.Is(err, storage.ErrConflict) {
		return team.Team{}, svcerrors.Conflict(fmt.Sprintf("team %q already exists", t.Name))
	}
	if err != nil {
		return team.Team{}, service.StoreError("team", "", err)
	}
	s.log.WithField("team_id", created.ID).WithField("name", created.Name).Info("team created")
	return created, nil
}

// Update edits a team.
func (s *Service) Update(ctx context.Context, id string, in Input) (team.Team, error) {
	t, err := s.Get(ctx, id)
	if err != nil {
		return team.Team{}, err
	}
	if err := s.apply(ctx, &t, in); err != nil {
		return team.Team{}, err
	}
	if t.Name == "" {
		return team.Team{}, svcerrors.Validation("name", "must not be empty")
	}
	updated, err := s.teams.UpdateTeam(ctx, t)
	if errors.Is(err, storage.ErrConflict) {
		return team.Team{}, svcerrors.Conflict(fmt.Sprintf("team %q already exists", t.Name))
	}
	if err != nil {
		return team.Team{}, service.StoreError("team", id, err)
	}
	return updated, nil
}

func (s *Service) apply(ctx context.Context, t *team.Team, in Input) error {
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = strings.TrimSpace(*src)
		}
	}
	set(&t.Name, in.Name)
	set(&t.AgeGroup, in.AgeGroup)
	set(&t.Division, in.Division)
	set(&t.Season, in.Season)
	if in.HeadCoachID != nil {
		coachID := strings.TrimSpace(*in.HeadCoachID)
		if coachID != "" {
			c, err := s.coaches.GetCoach(ctx, coachID)
			if errors.Is(err, storage.ErrNotFound) {
				return svcerrors.Validation("head_coach_id", "unknown coach")
			}
			if err != nil {
				return service.StoreError("coach", coachID, err)
			}
			if !c.Active {
				return svcerrors.Validation("head_coach_id", "coach is not active")
			}
		}
		t.HeadCoachID = coachID
	}
	return nil
}

// Delete removes a team without roster entries.
func (s *Service) Delete(ctx context.Context, id string) error {
	roster, err := s.Roster(ctx, id)
	if err != nil {
		return err
	}
	if len(roster) > 0 {
		return svcerrors.Conflict("team still has players on its roster").WithDetails("roster_size", len(roster))
	}
	if err := s.teams.DeleteTeam(ctx, id); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			return svcerrors.Conflict("team still has players on its roster")
		}
		return service.StoreError("team", id, err)
	}
	s.log.WithField("team_id", id).Info("team deleted")
	return nil
}

// Get returns a team.
func (s *Service) Get(ctx context.Context, id string) (team.Team, error) {
	t, err := s.teams.GetTeam(ctx, id)
	if err != nil {
		return team.Team{}, service.StoreError("team", id, err)
	}
	return t, nil
}

// List returns teams.
func (s *Service) List(ctx context.Context, filter storage.TeamFilter) (storage.Page[team.Team], error) {
	filter.ListParams = filter.ListParams.Normalize()
	items, total, err := s.teams.ListTeams(ctx, filter)
	if err != nil {
		return storage.Page[team.Team]{}, service.StoreError("team", "", err)
	}
	return storage.NewPage(items, total, filter.ListParams), nil
}

// Roster returns the players of a team.
func (s *Service) Roster(ctx context.Context, id string) ([]team.RosterEntry, error) {
	roster, err := s.teams.ListRoster(ctx, id)
	if err != nil {
		return nil, service.StoreError("team", id, err)
	}
	if roster == nil {
		roster = []team.RosterEntry{}
	}
	return roster, nil
}

// AddToRoster places an APPROVED application on a team under a jersey
// number unique within the team.
func (s *Service) AddToRoster(ctx context.Context, teamID string, in RosterInput) (team.RosterEntry, error) {
	if in.JerseyNumber < team.MinJersey || in.JerseyNumber > team.MaxJersey {
		return team.RosterEntry{}, svcerrors.Validation("jersey_number", fmt.Sprintf("must be between %d and %d", team.MinJersey, team.MaxJersey))
	}
	roster, err := s.Roster(ctx, teamID)
	if err != nil {
		return team.RosterEntry{}, err
	}
	app, err := s.apps.GetApplication(ctx, in.ApplicationID)
	if errors.Is(err, storage.ErrNotFound) {
		return team.RosterEntry{}, svcerrors.Validation("application_id", "unknown application")
	}
	if err != nil {
		return team.RosterEntry{}, service.StoreError("application", in.ApplicationID, err)
	}
	if app.Status != application.StatusApproved {
		return team.RosterEntry{}, svcerrors.Conflict("only APPROVED applications can join a roster").WithDetails("status", app.Status)
	}
	if existing, err := s.teams.GetRosterEntryByApplication(ctx, app.ID); err == nil {
		return team.RosterEntry{}, svcerrors.Conflict("player is already on a roster").WithDetails("team_id", existing.TeamID)
	} else if !errors.Is(err, storage.ErrNotFound) {
		return team.RosterEntry{}, service.StoreError("roster", "", err)
	}
	for _, entry := range roster {
		if entry.JerseyNumber == in.JerseyNumber {
			return team.RosterEntry{}, svcerrors.Conflict(fmt.Sprintf("jersey number %d is taken", in.JerseyNumber))
		}
	}

	entry, err := s.teams.AddRosterEntry(ctx, team.RosterEntry{
		TeamID:        teamID,
		ApplicationID: app.ID,
		PlayerName:    app.FullName(),
		Position:      app.Position,
		JerseyNumber:  in.JerseyNumber,
	})
	if errors.Is(err, storage.ErrConflict) {
		return team.RosterEntry{}, svcerrors.Conflict("player or jersey number already on a roster")
	}
	if err != nil {
		return team.RosterEntry{}, service.StoreError("roster", "", err)
	}
	s.log.WithField("team_id", teamID).WithField("application_id", app.ID).Info("player added to roster")
	return entry, nil
}

// RemoveFromRoster takes a player off a team.
func (s *Service) RemoveFromRoster(ctx context.Context, teamID, applicationID string) error {
	if err := s.teams.RemoveRosterEntry(ctx, teamID, applicationID); err != nil {
		return service.StoreError("roster entry", applicationID, err)
	}
	s.log.WithField("team_id", teamID).WithField("application_id", applicationID).Info("player removed from roster")
	return nil
}
