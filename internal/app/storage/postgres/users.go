package postgres

import (
	"context"
	"time"

	"github.com/clubhouse-sports/clubhouse/internal/app/domain/user"
	"github.com/clubhouse-sports/clubhouse/internal/app/storage"
	"github.com/google/uuid"
)

const userColumns = `id, phone, email, full_name, role, status, mpin_hash, failed_logins,
	locked_until, last_login_at, created_at, updated_at`

// --- UserStore --------------------------------------------------------------

func (s *Store) CreateUser(ctx context.Context, u user.User) (user.User, error) {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now

	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES (:id, :phone, :email, :full_name, :role, :status, :mpin_hash, :failed_logins,
			:locked_until, :last_login_at, :created_at, :updated_at)
	`, u)
	if err != nil {
		return user.User{}, mapErr(err)
	}
	return u, nil
}

func (s *Store) UpdateUser(ctx context.Context, u user.User) (user.User, error) {
	existing, err := s.GetUser(ctx, u.ID)
	if err != nil {
		return user.User{}, err
	}
	u.CreatedAt = existing.CreatedAt
	u.UpdatedAt = time.Now().UTC()

	res, err := s.db.NamedExecContext(ctx, `
		UPDATE users
		SET phone = :phone, email = :email, full_name = :full_name, role = :role, status = :status,
			mpin_hash = :mpin_hash, failed_logins = :failed_logins, locked_until = :locked_until,
			last_login_at = :last_login_at, updated_at = :updated_at
		WHERE id = :id
	`, u)
	if err := requireRow(res, err); err != nil {
		return user.User{}, err
	}
	return u, nil
}

func (s *Store) RecordFailedLogin(ctx context.Context, id string, max int, lockFor time.Duration, now time.Time) (user.User, error) {
	var u user.User
	err := s.db.GetContext(ctx, &u, `
		UPDATE users
		SET failed_logins = CASE
				WHEN locked_until > $2 THEN failed_logins
				WHEN failed_logins + 1 >= $3 THEN 0
				ELSE failed_logins + 1
			END,
			locked_until = CASE
				WHEN locked_until > $2 THEN locked_until
				WHEN failed_logins + 1 >= $3 THEN $4::timestamptz
				ELSE locked_until
			END,
			updated_at = $2
		WHERE id = $1
		RETURNING `+userColumns, id, now, max, now.Add(lockFor))
	return u, mapErr(err)
}

func (s *Store) RecordLogin(ctx context.Context, id string, at time.Time) (user.User, error) {
	var u user.User
	err := s.db.GetContext(ctx, &u, `
		UPDATE users
		SET failed_logins = 0, locked_until = NULL, last_login_at = $2, updated_at = $2
		WHERE id = $1
		RETURNING `+userColumns, id, at)
	return u, mapErr(err)
}

func (s *Store) GetUser(ctx context.Context, id string) (user.User, error) {
	var u user.User
	err := s.db.GetContext(ctx, &u, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return u, mapErr(err)
}

func (s *Store) GetUserByPhone(ctx context.Context, phone string) (user.User, error) {
	var u user.User
	err := s.db.GetContext(ctx, &u, `SELECT `+userColumns+` FROM users WHERE phone = $1`, phone)
	return u, mapErr(err)
}

func (s *Store) ListUsers(ctx context.Context, filter storage.UserFilter) ([]user.User, int, error) {
	w := &where{}
	if filter.Role != "" {
		w.add("role = %[1]s", string(filter.Role))
	}
	if filter.Status != "" {
		w.add("status = %[1]s", string(filter.Status))
	}
	if filter.Query != "" {
		w.add("(full_name ILIKE %[1]s OR phone ILIKE %[1]s OR email ILIKE %[1]s)", likePattern(filter.Query))
	}
	return page[user.User](ctx, s.db, userColumns, "users", "created_at DESC, id", w, filter.ListParams)
}

func (s *Store) CountUsersByStatus(ctx context.Context) (map[user.Status]int, error) {
	rows, err := s.countBy(ctx, `SELECT status AS key, COUNT(*) AS count FROM users GROUP BY status`)
	if err != nil {
		return nil, err
	}
	out := make(map[user.Status]int, len(rows))
	for _, r := range rows {
		out[user.Status(r.Key)] = r.Count
	}
	return out, nil
}

// --- SessionStore -----------------------------------------------------------

const sessionColumns = `id, user_id, token_hash, expires_at, created_at, last_seen_at`

func (s *Store) CreateSession(ctx context.Context, sess user.Session) (user.Session, error) {
	if sess.ID == "" {
		sess.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	sess.CreatedAt = now
	sess.LastSeenAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (`+sessionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, sess.ID, sess.UserID, sess.TokenHash, sess.ExpiresAt, sess.CreatedAt, sess.LastSeenAt)
	if err != nil {
		return user.Session{}, mapErr(err)
	}
	return sess, nil
}

func (s *Store) GetSessionByTokenHash(ctx context.Context, hash string) (user.Session, error) {
	var sess user.Session
	err := s.db.GetContext(ctx, &sess, `SELECT `+sessionColumns+` FROM sessions WHERE token_hash = $1`, hash)
	return sess, mapErr(err)
}

func (s *Store) TouchSession(ctx context.Context, id string, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `UPDATE sessions SET last_seen_at = $2 WHERE id = $1`, id, at.UTC())
	return requireRow(res, err)
}

func (s *Store) DeleteSession(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	return requireRow(res, err)
}

func (s *Store) DeleteUserSessions(ctx context.Context, userID string) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE user_id = $1`, userID)
	if err != nil {
		return 0, mapErr(err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func (s *Store) DeleteExpiredSessions(ctx context.Context, before time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= $1`, before.UTC())
	if err != nil {
		return 0, mapErr(err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}
