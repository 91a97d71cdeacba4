package memory

import (
	"context"
	"time"

	"github.com/clubhouse-sports/clubhouse/internal/app/domain/application"
	"github.com/clubhouse-sports/clubhouse/internal/app/storage"
	"github.com/google/uuid"
)

// ApplicationStore implementation ---------------------------------------------

func (s *Store) CreateApplication(_ context.Context, app application.Application) (application.Application, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if app.ID == "" {
		app.ID = uuid.NewString()
	} else if _, exists := s.applications[app.ID]; exists {
		return application.Application{}, storage.ErrConflict
	}
	if app.Status.Open() {
		for _, existing := range s.applications {
			if existing.ApplicantID == app.ApplicantID && existing.Status.Open() {
				return application.Application{}, storage.ErrConflict
			}
		}
	}

	now := time.Now().UTC()
	app.CreatedAt = now
	app.UpdatedAt = now

	s.applications[app.ID] = app
	s.appOrder = append(s.appOrder, app.ID)
	return app, nil
}

func (s *Store) UpdateApplication(_ context.Context, app application.Application) (application.Application, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.applications[app.ID]
	if !ok {
		return application.Application{}, storage.ErrNotFound
	}
	app.CreatedAt = original.CreatedAt
	app.UpdatedAt = time.Now().UTC()
	s.applications[app.ID] = app
	return app, nil
}

func (s *Store) GetApplication(_ context.Context, id string) (application.Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	app, ok := s.applications[id]
	if !ok {
		return application.Application{}, storage.ErrNotFound
	}
	return app, nil
}

func (s *Store) DeleteApplication(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.applications[id]; !ok {
		return storage.ErrNotFound
	}
	delete(s.applications, id)
	delete(s.events, id)
	s.appOrder = removeID(s.appOrder, id)
	return nil
}

func (s *Store) ListApplications(_ context.Context, filter storage.ApplicationFilter) ([]application.Application, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var coached map[string]bool
	if filter.CoachID != "" {
		coached = make(map[string]bool)
		for _, t := range s.trials {
			if t.CoachID == filter.CoachID {
				coached[t.ApplicationID] = true
			}
		}
	}

	var out []application.Application
	newestFirst(s.appOrder, func(id string) {
		app := s.applications[id]
		if filter.ApplicantID != "" && app.ApplicantID != filter.ApplicantID {
			return
		}
		if coached != nil && !coached[app.ID] {
			return
		}
		if filter.TeamID != "" && app.PreferredTeamID != filter.TeamID {
			return
		}
		if len(filter.Statuses) > 0 && !hasStatus(filter.Statuses, app.Status) {
			return
		}
		if !matches(filter.Query, app.FirstName, app.LastName, app.FullName(), app.Phone) {
			return
		}
		out = append(out, app)
	})
	items, total := paginate(out, filter.ListParams)
	return items, total, nil
}

func hasStatus(statuses []application.Status, st application.Status) bool {
	for _, s := range statuses {
		if s == st {
			return true
		}
	}
	return false
}

func (s *Store) CountApplicationsByStatus(_ context.Context) (map[application.Status]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[application.Status]int)
	for _, app := range s.applications {
		counts[app.Status]++
	}
	return counts, nil
}

func (s *Store) AppendApplicationEvent(_ context.Context, evt application.Event) (application.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.applications[evt.ApplicationID]; !ok {
		return application.Event{}, storage.ErrNotFound
	}
	if evt.ID == "" {
		evt.ID = uuid.NewString()
	}
	if evt.CreatedAt.IsZero() {
		evt.CreatedAt = time.Now().UTC()
	}
	s.events[evt.ApplicationID] = append(s.events[evt.ApplicationID], evt)
	return evt, nil
}

func (s *Store) ListApplicationEvents(_ context.Context, applicationID string) ([]application.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	events := s.events[applicationID]
	out := make([]application.Event, len(events))
	copy(out, events)
	return out, nil
}
