package memory

import (
	"context"
	"time"

	"github.com/clubhouse-sports/clubhouse/internal/app/domain/trial"
	"github.com/clubhouse-sports/clubhouse/internal/app/storage"
	"github.com/google/uuid"
)

// TrialStore implementation ---------------------------------------------------

func (s *Store) CreateTrial(_ context.Context, t trial.Trial) (trial.Trial, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t.ID == "" {
		t.ID = uuid.NewString()
	} else if _, exists := s.trials[t.ID]; exists {
		return trial.Trial{}, storage.ErrConflict
	}
	if t.Status == trial.StatusPending {
		for _, existing := range s.trials {
			if existing.ApplicationID == t.ApplicationID && existing.Status == trial.StatusPending {
				return trial.Trial{}, storage.ErrConflict
			}
		}
	}
	now := time.Now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now
	t.Scores = cloneScores(t.Scores)

	s.trials[t.ID] = t
	s.trialOrder = append(s.trialOrder, t.ID)
	return cloneTrial(t), nil
}

func (s *Store) UpdateTrial(_ context.Context, t trial.Trial) (trial.Trial, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.trials[t.ID]
	if !ok {
		return trial.Trial{}, storage.ErrNotFound
	}
	t.CreatedAt = original.CreatedAt
	t.UpdatedAt = time.Now().UTC()
	t.Scores = cloneScores(t.Scores)
	s.trials[t.ID] = t
	return cloneTrial(t), nil
}

func (s *Store) DeleteTrial(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.trials[id]; !ok {
		return storage.ErrNotFound
	}
	delete(s.trials, id)
	s.trialOrder = removeID(s.trialOrder, id)
	return nil
}

func (s *Store) GetTrial(_ context.Context, id string) (trial.Trial, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.trials[id]
	if !ok {
		return trial.Trial{}, storage.ErrNotFound
	}
	return cloneTrial(t), nil
}

func (s *Store) ListTrials(_ context.Context, filter storage.TrialFilter) ([]trial.Trial, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []trial.Trial
	newestFirst(s.trialOrder, func(id string) {
		t := s.trials[id]
		if filter.ApplicationID != "" && t.ApplicationID != filter.ApplicationID {
			return
		}
		if filter.CoachID != "" && t.CoachID != filter.CoachID {
			return
		}
		if filter.ApplicantID != "" && s.applications[t.ApplicationID].ApplicantID != filter.ApplicantID {
			return
		}
		if filter.Status != "" && t.Status != filter.Status {
			return
		}
		out = append(out, cloneTrial(t))
	})
	items, total := paginate(out, filter.ListParams)
	return items, total, nil
}

func (s *Store) CountTrialsByStatus(_ context.Context) (map[trial.Status]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[trial.Status]int)
	for _, t := range s.trials {
		counts[t.Status]++
	}
	return counts, nil
}

func (s *Store) CountTrialsByOutcome(_ context.Context) (map[trial.Outcome]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[trial.Outcome]int)
	for _, t := range s.trials {
		if t.Outcome != "" {
			counts[t.Outcome]++
		}
	}
	return counts, nil
}

func cloneTrial(t trial.Trial) trial.Trial {
	t.Scores = cloneScores(t.Scores)
	return t
}

func cloneScores(in map[string]int) map[string]int {
	if in == nil {
		return nil
	}
	out := make(map[string]int, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
