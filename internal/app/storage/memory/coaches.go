package memory

import (
	"context"
	"time"

	"github.com/clubhouse-sports/clubhouse/internal/app/domain/coach"
	"github.com/clubhouse-sports/clubhouse/internal/app/storage"
	"github.com/google/uuid"
)

// CoachStore implementation ---------------------------------------------------

func (s *Store) CreateCoach(_ context.Context, c coach.Coach) (coach.Coach, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.coaches {
		if c.UserID != "" && existing.UserID == c.UserID {
			return coach.Coach{}, storage.ErrConflict
		}
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	} else if _, exists := s.coaches[c.ID]; exists {
		return coach.Coach{}, storage.ErrConflict
	}
	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now

	s.coaches[c.ID] = c
	s.coachOrder = append(s.coachOrder, c.ID)
	return c, nil
}

func (s *Store) UpdateCoach(_ context.Context, c coach.Coach) (coach.Coach, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.coaches[c.ID]
	if !ok {
		return coach.Coach{}, storage.ErrNotFound
	}
	c.CreatedAt = original.CreatedAt
	c.UpdatedAt = time.Now().UTC()
	s.coaches[c.ID] = c
	return c, nil
}

func (s *Store) GetCoach(_ context.Context, id string) (coach.Coach, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.coaches[id]
	if !ok {
		return coach.Coach{}, storage.ErrNotFound
	}
	return c, nil
}

func (s *Store) GetCoachByUserID(_ context.Context, userID string) (coach.Coach, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, c := range s.coaches {
		if c.UserID == userID {
			return c, nil
		}
	}
	return coach.Coach{}, storage.ErrNotFound
}

func (s *Store) ListCoaches(_ context.Context, filter storage.CoachFilter) ([]coach.Coach, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []coach.Coach
	newestFirst(s.coachOrder, func(id string) {
		c := s.coaches[id]
		if filter.Active != nil && c.Active != *filter.Active {
			return
		}
		if !matches(filter.Query, c.FullName, c.Phone, c.Email, c.Specialty) {
			return
		}
		out = append(out, c)
	})
	items, total := paginate(out, filter.ListParams)
	return items, total, nil
}
