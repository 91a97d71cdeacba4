package postgres

import (
	"context"
	"time"

	"github.com/clubhouse-sports/clubhouse/internal/app/domain/coach"
	"github.com/clubhouse-sports/clubhouse/internal/app/storage"
	"github.com/google/uuid"
)

const coachColumns = `id, user_id, full_name, phone, email, specialty, certification, active, created_at, updated_at`

// --- CoachStore -------------------------------------------------------------

func (s *Store) CreateCoach(ctx context.Context, c coach.Coach) (coach.Coach, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now

	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO coaches (`+coachColumns+`)
		VALUES (:id, :user_id, :full_name, :phone, :email, :specialty, :certification, :active,
			:created_at, :updated_at)
	`, c)
	if err != nil {
		return coach.Coach{}, mapErr(err)
	}
	return c, nil
}

func (s *Store) UpdateCoach(ctx context.Context, c coach.Coach) (coach.Coach, error) {
	existing, err := s.GetCoach(ctx, c.ID)
	if err != nil {
		return coach.Coach{}, err
	}
	c.CreatedAt = existing.CreatedAt
	c.UpdatedAt = time.Now().UTC()

	res, err := s.db.NamedExecContext(ctx, `
		UPDATE coaches
		SET full_name = :full_name, phone = :phone, email = :email, specialty = :specialty,
			certification = :certification, active = :active, updated_at = :updated_at
		WHERE id = :id
	`, c)
	if err := requireRow(res, err); err != nil {
		return coach.Coach{}, err
	}
	return c, nil
}

func (s *Store) GetCoach(ctx context.Context, id string) (coach.Coach, error) {
	var c coach.Coach
	err := s.db.GetContext(ctx, &c, `SELECT `+coachColumns+` FROM coaches WHERE id = $1`, id)
	return c, mapErr(err)
}

func (s *Store) GetCoachByUserID(ctx context.Context, userID string) (coach.Coach, error) {
	var c coach.Coach
	err := s.db.GetContext(ctx, &c, `SELECT `+coachColumns+` FROM coaches WHERE user_id = $1`, userID)
	return c, mapErr(err)
}

func (s *Store) ListCoaches(ctx context.Context, filter storage.CoachFilter) ([]coach.Coach, int, error) {
	w := &where{}
	if filter.Active != nil {
		w.add("active = %[1]s", *filter.Active)
	}
	if filter.Query != "" {
		w.add("(full_name ILIKE %[1]s OR phone ILIKE %[1]s OR email ILIKE %[1]s OR specialty ILIKE %[1]s)", likePattern(filter.Query))
	}
	return page[coach.Coach](ctx, s.db, coachColumns, "coaches", "created_at DESC, id", w, filter.ListParams)
}
