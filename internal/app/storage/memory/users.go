package memory

import (
	"context"
	"time"

	"github.com/clubhouse-sports/clubhouse/internal/app/domain/user"
	"github.com/clubhouse-sports/clubhouse/internal/app/storage"
	"github.com/google/uuid"
)

// UserStore implementation ----------------------------------------------------

func (s *Store) CreateUser(_ context.Context, u user.User) (user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.usersByPhone[u.Phone]; exists {
		return user.User{}, storage.ErrConflict
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	} else if _, exists := s.users[u.ID]; exists {
		return user.User{}, storage.ErrConflict
	}

	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now

	s.users[u.ID] = u
	s.usersByPhone[u.Phone] = u.ID
	s.userOrder = append(s.userOrder, u.ID)
	return u, nil
}

func (s *Store) UpdateUser(_ context.Context, u user.User) (user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.users[u.ID]
	if !ok {
		return user.User{}, storage.ErrNotFound
	}
	if u.Phone != original.Phone {
		if _, taken := s.usersByPhone[u.Phone]; taken {
			return user.User{}, storage.ErrConflict
		}
		delete(s.usersByPhone, original.Phone)
		s.usersByPhone[u.Phone] = u.ID
	}

	u.CreatedAt = original.CreatedAt
	u.UpdatedAt = time.Now().UTC()
	s.users[u.ID] = u
	return u, nil
}

func (s *Store) RecordFailedLogin(_ context.Context, id string, max int, lockFor time.Duration, now time.Time) (user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return user.User{}, storage.ErrNotFound
	}
	if u.IsLocked(now) {
		return u, nil
	}
	u.FailedLogins++
	if u.FailedLogins >= max {
		until := now.Add(lockFor)
		u.LockedUntil = &until
		u.FailedLogins = 0
	}
	u.UpdatedAt = now
	s.users[id] = u
	return u, nil
}

func (s *Store) RecordLogin(_ context.Context, id string, at time.Time) (user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return user.User{}, storage.ErrNotFound
	}
	u.FailedLogins = 0
	u.LockedUntil = nil
	u.LastLoginAt = &at
	u.UpdatedAt = at
	s.users[id] = u
	return u, nil
}

func (s *Store) GetUser(_ context.Context, id string) (user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return user.User{}, storage.ErrNotFound
	}
	return u, nil
}

func (s *Store) GetUserByPhone(_ context.Context, phone string) (user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.usersByPhone[phone]
	if !ok {
		return user.User{}, storage.ErrNotFound
	}
	return s.users[id], nil
}

func (s *Store) ListUsers(_ context.Context, filter storage.UserFilter) ([]user.User, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []user.User
	newestFirst(s.userOrder, func(id string) {
		u := s.users[id]
		if filter.Role != "" && u.Role != filter.Role {
			return
		}
		if filter.Status != "" && u.Status != filter.Status {
			return
		}
		if !matches(filter.Query, u.FullName, u.Phone, u.Email) {
			return
		}
		out = append(out, u)
	})
	items, total := paginate(out, filter.ListParams)
	return items, total, nil
}

func (s *Store) CountUsersByStatus(_ context.Context) (map[user.Status]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[user.Status]int)
	for _, u := range s.users {
		counts[u.Status]++
	}
	return counts, nil
}

// SessionStore implementation -------------------------------------------------

func (s *Store) CreateSession(_ context.Context, sess user.Session) (user.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sessionsByHash[sess.TokenHash]; exists {
		return user.Session{}, storage.ErrConflict
	}
	if sess.ID == "" {
		sess.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	sess.CreatedAt = now
	sess.LastSeenAt = now

	s.sessions[sess.ID] = sess
	s.sessionsByHash[sess.TokenHash] = sess.ID
	return sess, nil
}

func (s *Store) GetSessionByTokenHash(_ context.Context, hash string) (user.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.sessionsByHash[hash]
	if !ok {
		return user.Session{}, storage.ErrNotFound
	}
	return s.sessions[id], nil
}

func (s *Store) TouchSession(_ context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return storage.ErrNotFound
	}
	sess.LastSeenAt = at.UTC()
	s.sessions[id] = sess
	return nil
}

func (s *Store) DeleteSession(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return storage.ErrNotFound
	}
	delete(s.sessions, id)
	delete(s.sessionsByHash, sess.TokenHash)
	return nil
}

func (s *Store) DeleteUserSessions(_ context.Context, userID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.deleteSessionsLocked(func(sess user.Session) bool { return sess.UserID == userID }), nil
}

func (s *Store) DeleteExpiredSessions(_ context.Context, before time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.deleteSessionsLocked(func(sess user.Session) bool { return sess.Expired(before) }), nil
}

func (s *Store) deleteSessionsLocked(match func(user.Session) bool) int {
	removed := 0
	for id, sess := range s.sessions {
		if match(sess) {
			delete(s.sessions, id)
			delete(s.sessionsByHash, sess.TokenHash)
			removed++
		}
	}
	return removed
}
