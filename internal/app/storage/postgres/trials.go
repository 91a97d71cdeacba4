package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/clubhouse-sports/clubhouse/internal/app/domain/trial"
	"github.com/clubhouse-sports/clubhouse/internal/app/storage"
	"github.com/google/uuid"
)

const trialColumns = `id, application_id, coach_id, scheduled_at, location, status, outcome, scores,
	notes, completed_at, created_at, updated_at`

// trialRow carries the JSONB scores column alongside the domain struct.
type trialRow struct {
	trial.Trial
	ScoresRaw []byte `db:"scores"`
}

func (r trialRow) toDomain() (trial.Trial, error) {
	t := r.Trial
	if len(r.ScoresRaw) > 0 {
		if err := json.Unmarshal(r.ScoresRaw, &t.Scores); err != nil {
			return trial.Trial{}, fmt.Errorf("trial %s: decode scores: %w", t.ID, err)
		}
	}
	return t, nil
}

func marshalScores(scores map[string]int) ([]byte, error) {
	if len(scores) == 0 {
		return nil, nil
	}
	return json.Marshal(scores)
}

// --- TrialStore -------------------------------------------------------------

func (s *Store) CreateTrial(ctx context.Context, t trial.Trial) (trial.Trial, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now

	scores, err := marshalScores(t.Scores)
	if err != nil {
		return trial.Trial{}, err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO trials (`+trialColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, t.ID, t.ApplicationID, t.CoachID, t.ScheduledAt, t.Location, string(t.Status), string(t.Outcome),
		scores, t.Notes, t.CompletedAt, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return trial.Trial{}, mapErr(err)
	}
	return t, nil
}

func (s *Store) UpdateTrial(ctx context.Context, t trial.Trial) (trial.Trial, error) {
	existing, err := s.GetTrial(ctx, t.ID)
	if err != nil {
		return trial.Trial{}, err
	}
	t.CreatedAt = existing.CreatedAt
	t.UpdatedAt = time.Now().UTC()

	scores, err := marshalScores(t.Scores)
	if err != nil {
		return trial.Trial{}, err
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE trials
		SET coach_id = $2, scheduled_at = $3, location = $4, status = $5, outcome = $6,
			scores = $7, notes = $8, completed_at = $9, updated_at = $10
		WHERE id = $1
	`, t.ID, t.CoachID, t.ScheduledAt, t.Location, string(t.Status), string(t.Outcome),
		scores, t.Notes, t.CompletedAt, t.UpdatedAt)
	if err := requireRow(res, err); err != nil {
		return trial.Trial{}, err
	}
	return t, nil
}

func (s *Store) GetTrial(ctx context.Context, id string) (trial.Trial, error) {
	var row trialRow
	if err := s.db.GetContext(ctx, &row, `SELECT `+trialColumns+` FROM trials WHERE id = $1`, id); err != nil {
		return trial.Trial{}, mapErr(err)
	}
	return row.toDomain()
}

func (s *Store) DeleteTrial(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM trials WHERE id = $1`, id)
	return requireRow(res, err)
}

func (s *Store) ListTrials(ctx context.Context, filter storage.TrialFilter) ([]trial.Trial, int, error) {
	w := &where{}
	if filter.ApplicationID != "" {
		w.add("application_id = %[1]s", filter.ApplicationID)
	}
	if filter.CoachID != "" {
		w.add("coach_id = %[1]s", filter.CoachID)
	}
	if filter.ApplicantID != "" {
		w.add("application_id IN (SELECT id FROM applications WHERE applicant_id = %[1]s)", filter.ApplicantID)
	}
	if filter.Status != "" {
		w.add("status = %[1]s", string(filter.Status))
	}
	rows, total, err := page[trialRow](ctx, s.db, trialColumns, "trials", "created_at DESC, id", w, filter.ListParams)
	if err != nil {
		return nil, 0, err
	}
	out := make([]trial.Trial, len(rows))
	for i, r := range rows {
		if out[i], err = r.toDomain(); err != nil {
			return nil, 0, err
		}
	}
	return out, total, nil
}

func (s *Store) CountTrialsByStatus(ctx context.Context) (map[trial.Status]int, error) {
	rows, err := s.countBy(ctx, `SELECT status AS key, COUNT(*) AS count FROM trials GROUP BY status`)
	if err != nil {
		return nil, err
	}
	out := make(map[trial.Status]int, len(rows))
	for _, r := range rows {
		out[trial.Status(r.Key)] = r.Count
	}
	return out, nil
}

func (s *Store) CountTrialsByOutcome(ctx context.Context) (map[trial.Outcome]int, error) {
	rows, err := s.countBy(ctx, `SELECT outcome AS key, COUNT(*) AS count FROM trials WHERE outcome <> '' GROUP BY outcome`)
	if err != nil {
		return nil, err
	}
	out := make(map[trial.Outcome]int, len(rows))
	for _, r := range rows {
		out[trial.Outcome(r.Key)] = r.Count
	}
	return out, nil
}
