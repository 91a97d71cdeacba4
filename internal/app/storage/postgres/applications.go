package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/clubhouse-sports/clubhouse/internal/app/domain/application"
	"github.com/clubhouse-sports/clubhouse/internal/app/storage"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

const applicationColumns = `id, applicant_id, first_name, last_name, date_of_birth, gender, phone, email,
	address, position, dominant_foot, previous_club, guardian_name, guardian_phone, preferred_team_id,
	notes, status, reviewer_id, decision_reason, submitted_at, decided_at, created_at, updated_at`

// --- ApplicationStore -------------------------------------------------------

func (s *Store) CreateApplication(ctx context.Context, app application.Application) (application.Application, error) {
	if app.ID == "" {
		app.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	app.CreatedAt = now
	app.UpdatedAt = now

	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO applications (`+applicationColumns+`)
		VALUES (:id, :applicant_id, :first_name, :last_name, :date_of_birth, :gender, :phone, :email,
			:address, :position, :dominant_foot, :previous_club, :guardian_name, :guardian_phone,
			:preferred_team_id, :notes, :status, :reviewer_id, :decision_reason, :submitted_at,
			:decided_at, :created_at, :updated_at)
	`, app)
	if err != nil {
		return application.Application{}, mapErr(err)
	}
	return app, nil
}

func (s *Store) UpdateApplication(ctx context.Context, app application.Application) (application.Application, error) {
	existing, err := s.GetApplication(ctx, app.ID)
	if err != nil {
		return application.Application{}, err
	}
	app.CreatedAt = existing.CreatedAt
	app.UpdatedAt = time.Now().UTC()

	res, err := s.db.NamedExecContext(ctx, `
		UPDATE applications
		SET first_name = :first_name, last_name = :last_name, date_of_birth = :date_of_birth,
			gender = :gender, phone = :phone, email = :email, address = :address, position = :position,
			dominant_foot = :dominant_foot, previous_club = :previous_club, guardian_name = :guardian_name,
			guardian_phone = :guardian_phone, preferred_team_id = :preferred_team_id, notes = :notes,
			status = :status, reviewer_id = :reviewer_id, decision_reason = :decision_reason,
			submitted_at = :submitted_at, decided_at = :decided_at, updated_at = :updated_at
		WHERE id = :id
	`, app)
	if err := requireRow(res, err); err != nil {
		return application.Application{}, err
	}
	return app, nil
}

func (s *Store) GetApplication(ctx context.Context, id string) (application.Application, error) {
	var app application.Application
	err := s.db.GetContext(ctx, &app, `SELECT `+applicationColumns+` FROM applications WHERE id = $1`, id)
	return app, mapErr(err)
}

func (s *Store) DeleteApplication(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM applications WHERE id = $1`, id)
	return requireRow(res, err)
}

func (s *Store) ListApplications(ctx context.Context, filter storage.ApplicationFilter) ([]application.Application, int, error) {
	w := &where{}
	if filter.ApplicantID != "" {
		w.add("applicant_id = %[1]s", filter.ApplicantID)
	}
	if filter.CoachID != "" {
		w.add("id IN (SELECT application_id FROM trials WHERE coach_id = %[1]s)", filter.CoachID)
	}
	if filter.TeamID != "" {
		w.add("preferred_team_id = %[1]s", filter.TeamID)
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, st := range filter.Statuses {
			statuses[i] = string(st)
		}
		w.add("status = ANY(%[1]s)", pq.Array(statuses))
	}
	if filter.Query != "" {
		w.add("(first_name || ' ' || last_name ILIKE %[1]s OR phone ILIKE %[1]s)", likePattern(filter.Query))
	}
	return page[application.Application](ctx, s.db, applicationColumns, "applications", "created_at DESC, id", w, filter.ListParams)
}

func (s *Store) CountApplicationsByStatus(ctx context.Context) (map[application.Status]int, error) {
	rows, err := s.countBy(ctx, `SELECT status AS key, COUNT(*) AS count FROM applications GROUP BY status`)
	if err != nil {
		return nil, err
	}
	out := make(map[application.Status]int, len(rows))
	for _, r := range rows {
		out[application.Status(r.Key)] = r.Count
	}
	return out, nil
}

const eventColumns = `id, application_id, from_status, to_status, actor_id, note, created_at`

func (s *Store) AppendApplicationEvent(ctx context.Context, evt application.Event) (application.Event, error) {
	if evt.ID == "" {
		evt.ID = uuid.NewString()
	}
	if evt.CreatedAt.IsZero() {
		evt.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO application_events (`+eventColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, evt.ID, evt.ApplicationID, string(evt.From), string(evt.To), evt.ActorID, evt.Note, evt.CreatedAt)
	if err != nil {
		err = mapErr(err)
		if errors.Is(err, storage.ErrConflict) {
			return application.Event{}, storage.ErrNotFound
		}
		return application.Event{}, err
	}
	return evt, nil
}

func (s *Store) ListApplicationEvents(ctx context.Context, applicationID string) ([]application.Event, error) {
	events := []application.Event{}
	err := s.db.SelectContext(ctx, &events, `
		SELECT `+eventColumns+` FROM application_events
		WHERE application_id = $1
		ORDER BY created_at, id
	`, applicationID)
	return events, mapErr(err)
}
