package memory

import (
	"context"
	"strings"
	"time"

	"github.com/clubhouse-sports/clubhouse/internal/app/domain/team"
	"github.com/clubhouse-sports/clubhouse/internal/app/storage"
	"github.com/google/uuid"
)

// TeamStore implementation ----------------------------------------------------

func (s *Store) teamNameTakenLocked(name, exceptID string) bool {
	for id, t := range s.teams {
		if id != exceptID && strings.EqualFold(t.Name, name) {
			return true
		}
	}
	return false
}

func (s *Store) CreateTeam(_ context.Context, t team.Team) (team.Team, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.teamNameTakenLocked(t.Name, "") {
		return team.Team{}, storage.ErrConflict
	}
	if t.ID == "" {
		t.ID = uuid.NewString()
	} else if _, exists := s.teams[t.ID]; exists {
		return team.Team{}, storage.ErrConflict
	}
	now := time.Now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now

	s.teams[t.ID] = t
	s.teamOrder = append(s.teamOrder, t.ID)
	return t, nil
}

func (s *Store) UpdateTeam(_ context.Context, t team.Team) (team.Team, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.teams[t.ID]
	if !ok {
		return team.Team{}, storage.ErrNotFound
	}
	if s.teamNameTakenLocked(t.Name, t.ID) {
		return team.Team{}, storage.ErrConflict
	}
	t.CreatedAt = original.CreatedAt
	t.UpdatedAt = time.Now().UTC()
	s.teams[t.ID] = t
	return t, nil
}

func (s *Store) GetTeam(_ context.Context, id string) (team.Team, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.teams[id]
	if !ok {
		return team.Team{}, storage.ErrNotFound
	}
	return t, nil
}

func (s *Store) DeleteTeam(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.teams[id]; !ok {
		return storage.ErrNotFound
	}
	if len(s.rosters[id]) > 0 {
		return storage.ErrConflict
	}
	delete(s.teams, id)
	delete(s.rosters, id)
	s.teamOrder = removeID(s.teamOrder, id)
	return nil
}

func (s *Store) ListTeams(_ context.Context, filter storage.TeamFilter) ([]team.Team, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []team.Team
	newestFirst(s.teamOrder, func(id string) {
		t := s.teams[id]
		if filter.HeadCoachID != "" && t.HeadCoachID != filter.HeadCoachID {
			return
		}
		if !matches(filter.Query, t.Name, t.AgeGroup, t.Division, t.Season) {
			return
		}
		out = append(out, t)
	})
	items, total := paginate(out, filter.ListParams)
	return items, total, nil
}

func (s *Store) AddRosterEntry(_ context.Context, entry team.RosterEntry) (team.RosterEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.teams[entry.TeamID]; !ok {
		return team.RosterEntry{}, storage.ErrNotFound
	}
	for teamID, roster := range s.rosters {
		for _, existing := range roster {
			if existing.ApplicationID == entry.ApplicationID {
				return team.RosterEntry{}, storage.ErrConflict
			}
			if teamID == entry.TeamID && existing.JerseyNumber == entry.JerseyNumber {
				return team.RosterEntry{}, storage.ErrConflict
			}
		}
	}
	entry.JoinedAt = time.Now().UTC()
	s.rosters[entry.TeamID] = append(s.rosters[entry.TeamID], entry)
	return entry, nil
}

func (s *Store) RemoveRosterEntry(_ context.Context, teamID, applicationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	roster := s.rosters[teamID]
	for i, entry := range roster {
		if entry.ApplicationID == applicationID {
			s.rosters[teamID] = append(roster[:i], roster[i+1:]...)
			return nil
		}
	}
	return storage.ErrNotFound
}

func (s *Store) ListRoster(_ context.Context, teamID string) ([]team.RosterEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.teams[teamID]; !ok {
		return nil, storage.ErrNotFound
	}
	roster := s.rosters[teamID]
	out := make([]team.RosterEntry, len(roster))
	copy(out, roster)
	return out, nil
}

func (s *Store) GetRosterEntryByApplication(_ context.Context, applicationID string) (team.RosterEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, roster := range s.rosters {
		for _, entry := range roster {
			if entry.ApplicationID == applicationID {
				return entry, nil
			}
		}
	}
	return team.RosterEntry{}, storage.ErrNotFound
}
