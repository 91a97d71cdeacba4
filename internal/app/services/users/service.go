// Package users implements administrative account management.
package users

import (
	"context"
	"strings"

	"github.com/clubhouse-sports/clubhouse/internal/app/core/service"
	"github.com/clubhouse-sports/clubhouse/internal/app/domain/user"
	"github.com/clubhouse-sports/clubhouse/internal/app/services/auth"
	"github.com/clubhouse-sports/clubhouse/internal/app/storage"
	svcerrors "github.com/clubhouse-sports/clubhouse/internal/errors"
	"github.com/clubhouse-sports/clubhouse/pkg/logger"
)

// Service lets admins list, invite, edit, suspend and reactivate accounts.
type Service struct {
	users storage.UserStore
	auth  *auth.Service
	log   *logger.Logger
}

// New constructs the users service.
func New(users storage.UserStore, authService *auth.Service, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("users")
	}
	return &Service{users: users, auth: authService, log: log}
}

// Descriptor advertises the service.
func (s *Service) Descriptor() service.Descriptor {
	return service.Descriptor{Name: "users", Domain: "user", Capabilities: []string{"list", "invite", "suspend", "activate"}}
}

// UpdateInput carries optional account edits.
type UpdateInput struct {
	FullName *string    `json:"full_name"`
	Email    *string    `json:"email"`
	Role     *user.Role `json:"role"`
}

// List returns accounts matching filter.
func (s *Service) List(ctx context.Context, filter storage.UserFilter) (storage.Page[user.User], error) {
	if filter.Role != "" && !filter.Role.Valid() {
		return storage.Page[user.User]{}, svcerrors.Validation("role", "unknown role")
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return storage.Page[user.User]{}, svcerrors.Validation("status", "unknown status")
	}
	filter.ListParams = filter.ListParams.Normalize()
	items, total, err := s.users.ListUsers(ctx, filter)
	if err != nil {
		return storage.Page[user.User]{}, service.StoreError("user", "", err)
	}
	return storage.NewPage(items, total, filter.ListParams), nil
}

// Get returns one account.
func (s *Service) Get(ctx context.Context, id string) (user.User, error) {
	u, err := s.users.GetUser(ctx, id)
	if err != nil {
		return user.User{}, service.StoreError("user", id, err)
	}
	return u, nil
}

// Invite creates an INVITED account and sends its verification code.
func (s *Service) Invite(ctx context.Context, actor user.Principal, in auth.InviteInput) (user.User, error) {
	u, err := s.auth.Invite(ctx, in)
	if err != nil {
		return user.User{}, err
	}
	s.log.WithField("actor_id", actor.UserID).WithField("user_id", u.ID).Info("admin invited account")
	return u, nil
}

// Update edits profile fields and the role. Admins cannot change their own
// role.
func (s *Service) Update(ctx context.Context, actor user.Principal, id string, in UpdateInput) (user.User, error) {
	u, err := s.Get(ctx, id)
	if err != nil {
		return user.User{}, err
	}
	if in.FullName != nil {
		name := strings.TrimSpace(*in.FullName)
		if name == "" {
			return user.User{}, svcerrors.Validation("full_name", "must not be empty")
		}
		u.FullName = name
	}
	if in.Email != nil {
		u.Email = strings.TrimSpace(*in.Email)
	}
	if in.Role != nil && *in.Role != u.Role {
		if !in.Role.Valid() {
			return user.User{}, svcerrors.Validation("role", "must be ADMIN, COACH or PLAYER")
		}
		if id == actor.UserID {
			return user.User{}, svcerrors.Forbidden("admins cannot change their own role")
		}
		u.Role = *in.Role
	}
	updated, err := s.users.UpdateUser(ctx, u)
	if err != nil {
		return user.User{}, service.StoreError("user", id, err)
	}
	s.log.WithField("actor_id", actor.UserID).WithField("user_id", id).Info("account updated")
	return updated, nil
}

// Suspend blocks an account and revokes its sessions.
func (s *Service) Suspend(ctx context.Context, actor user.Principal, id string) (user.User, error) {
	if id == actor.UserID {
		return user.User{}, svcerrors.Forbidden("admins cannot suspend themselves")
	}
	u, err := s.Get(ctx, id)
	if err != nil {
		return user.User{}, err
	}
	u, err = s.auth.Transition(ctx, u, user.StatusSuspended, actor.UserID)
	if err != nil {
		return user.User{}, err
	}
	revoked, err := s.auth.RevokeSessions(ctx, id)
	if err != nil {
		return user.User{}, err
	}
	s.log.LogSecurityEvent(ctx, "account_suspended", map[string]interface{}{
		"user_id":          id,
		"sessions_revoked": revoked,
	})
	return u, nil
}

// Activate lifts a suspension. The account must already have an MPIN.
func (s *Service) Activate(ctx context.Context, actor user.Principal, id string) (user.User, error) {
	u, err := s.Get(ctx, id)
	if err != nil {
		return user.User{}, err
	}
	if u.Status == user.StatusSuspended && !u.HasMPIN() {
		return user.User{}, svcerrors.Conflict("account has no MPIN; it must complete verification first")
	}
	return s.auth.Transition(ctx, u, user.StatusActive, actor.UserID)
}
