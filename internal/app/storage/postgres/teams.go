package postgres

import (
	"context"
	"time"

	"github.com/clubhouse-sports/clubhouse/internal/app/domain/team"
	"github.com/clubhouse-sports/clubhouse/internal/app/storage"
	"github.com/google/uuid"
)

const teamColumns = `id, name, age_group, division, season, head_coach_id, created_at, updated_at`

// --- TeamStore --------------------------------------------------------------

func (s *Store) CreateTeam(ctx context.Context, t team.Team) (team.Team, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now

	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO teams (`+teamColumns+`)
		VALUES (:id, :name, :age_group, :division, :season, :head_coach_id, :created_at, :updated_at)
	`, t)
	if err != nil {
		return team.Team{}, mapErr(err)
	}
	return t, nil
}

func (s *Store) UpdateTeam(ctx context.Context, t team.Team) (team.Team, error) {
	existing, err := s.GetTeam(ctx, t.ID)
	if err != nil {
		return team.Team{}, err
	}
	t.CreatedAt = existing.CreatedAt
	t.UpdatedAt = time.Now().UTC()

	res, err := s.db.NamedExecContext(ctx, `
		UPDATE teams
		SET name = :name, age_group = :age_group, division = :division, season = :season,
			head_coach_id = :head_coach_id, updated_at = :updated_at
		WHERE id = :id
	`, t)
	if err := requireRow(res, err); err != nil {
		return team.Team{}, err
	}
	return t, nil
}

func (s *Store) GetTeam(ctx context.Context, id string) (team.Team, error) {
	var t team.Team
	err := s.db.GetContext(ctx, &t, `SELECT `+teamColumns+` FROM teams WHERE id = $1`, id)
	return t, mapErr(err)
}

// DeleteTeam refuses while roster entries reference the team.
func (s *Store) DeleteTeam(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM teams WHERE id = $1`, id)
	return requireRow(res, err)
}

func (s *Store) ListTeams(ctx context.Context, filter storage.TeamFilter) ([]team.Team, int, error) {
	w := &where{}
	if filter.HeadCoachID != "" {
		w.add("head_coach_id = %[1]s", filter.HeadCoachID)
	}
	if filter.Query != "" {
		w.add("(name ILIKE %[1]s OR age_group ILIKE %[1]s OR division ILIKE %[1]s OR season ILIKE %[1]s)", likePattern(filter.Query))
	}
	return page[team.Team](ctx, s.db, teamColumns, "teams", "created_at DESC, id", w, filter.ListParams)
}

const rosterColumns = `team_id, application_id, player_name, position, jersey_number, joined_at`

func (s *Store) AddRosterEntry(ctx context.Context, entry team.RosterEntry) (team.RosterEntry, error) {
	if _, err := s.GetTeam(ctx, entry.TeamID); err != nil {
		return team.RosterEntry{}, err
	}
	entry.JoinedAt = time.Now().UTC()
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO roster_entries (`+rosterColumns+`)
		VALUES (:team_id, :application_id, :player_name, :position, :jersey_number, :joined_at)
	`, entry)
	if err != nil {
		return team.RosterEntry{}, mapErr(err)
	}
	return entry, nil
}

func (s *Store) RemoveRosterEntry(ctx context.Context, teamID, applicationID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM roster_entries WHERE team_id = $1 AND application_id = $2`, teamID, applicationID)
	return requireRow(res, err)
}

func (s *Store) ListRoster(ctx context.Context, teamID string) ([]team.RosterEntry, error) {
	if _, err := s.GetTeam(ctx, teamID); err != nil {
		return nil, err
	}
	entries := []team.RosterEntry{}
	err := s.db.SelectContext(ctx, &entries, `
		SELECT `+rosterColumns+` FROM roster_entries
		WHERE team_id = $1
		ORDER BY jersey_number
	`, teamID)
	return entries, mapErr(err)
}

func (s *Store) GetRosterEntryByApplication(ctx context.Context, applicationID string) (team.RosterEntry, error) {
	var entry team.RosterEntry
	err := s.db.GetContext(ctx, &entry, `SELECT `+rosterColumns+` FROM roster_entries WHERE application_id = $1`, applicationID)
	return entry, mapErr(err)
}
