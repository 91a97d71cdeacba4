// Package auth implements phone signup, verification codes, MPIN login and
// session-backed access tokens.
package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/clubhouse-sports/clubhouse/internal/app/codes"
	"github.com/clubhouse-sports/clubhouse/internal/app/core/service"
	"github.com/clubhouse-sports/clubhouse/internal/app/domain/user"
	"github.com/clubhouse-sports/clubhouse/internal/app/events"
	"github.com/clubhouse-sports/clubhouse/internal/app/metrics"
	"github.com/clubhouse-sports/clubhouse/internal/app/notify"
	"github.com/clubhouse-sports/clubhouse/internal/app/storage"
	svcerrors "github.com/clubhouse-sports/clubhouse/internal/errors"
	"github.com/clubhouse-sports/clubhouse/pkg/logger"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const invalidCredentials = "invalid phone or MPIN"

// Config tunes token lifetimes and the login lockout.
type Config struct {
	Secret          []byte
	Issuer          string
	TokenTTL        time.Duration
	SetupTokenTTL   time.Duration
	MaxFailedLogins int
	LockoutDuration time.Duration
	BcryptCost      int
}

func (c Config) withDefaults() Config {
	if c.TokenTTL <= 0 {
		c.TokenTTL = 24 * time.Hour
	}
	if c.SetupTokenTTL <= 0 {
		c.SetupTokenTTL = 15 * time.Minute
	}
	if c.MaxFailedLogins <= 0 {
		c.MaxFailedLogins = 5
	}
	if c.LockoutDuration <= 0 {
		c.LockoutDuration = 15 * time.Minute
	}
	if c.BcryptCost < bcrypt.MinCost || c.BcryptCost > bcrypt.MaxCost {
		c.BcryptCost = bcrypt.DefaultCost
	}
	return c
}

// Session is the result of a successful login or MPIN setup.
type Session struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      user.User `json:"user"`
}

// SetupToken authorizes a single MPIN setup.
type SetupToken struct {
	SetupToken string    `json:"setup_token"`
	ExpiresAt  time.Time `json:"expires_at"`
	User       user.User `json:"user"`
}

// SignupInput is a self-service player registration.
type SignupInput struct {
	Phone    string `json:"phone"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
}

// InviteInput is an admin-created account.
type InviteInput struct {
	Phone    string    `json:"phone"`
	Email    string    `json:"email"`
	FullName string    `json:"full_name"`
	Role     user.Role `json:"role"`
}

// Service manages accounts, codes and sessions.
type Service struct {
	users    storage.UserStore
	sessions storage.SessionStore
	codes    *codes.Manager
	notifier notify.Notifier
	events   events.Publisher
	cfg      Config
	log      *logger.Logger
	now      func() time.Time
}

// New constructs the auth service.
func New(users storage.UserStore, sessions storage.SessionStore, codeManager *codes.Manager, notifier notify.Notifier, cfg Config, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("auth")
	}
	if notifier == nil {
		notifier = notify.NewLogNotifier(log)
	}
	if codeManager == nil {
		codeManager = codes.NewManager(codes.NewMemoryStore(), 0, 0)
	}
	return &Service{
		users:    users,
		sessions: sessions,
		codes:    codeManager,
		notifier: notifier,
		cfg:      cfg.withDefaults(),
		log:      log,
		now:      time.Now,
	}
}

// AttachPublisher wires the live event stream.
func (s *Service) AttachPublisher(pub events.Publisher) {
	s.events = pub
}

// Descriptor advertises the service.
func (s *Service) Descriptor() service.Descriptor {
	return service.Descriptor{
		Name:         "auth",
		Domain:       "user",
		Capabilities: []string{"signup", "verify", "mpin", "sessions", "lockout"},
	}
}

// Signup registers a PLAYER in INVITED and sends a verification code. An
// existing INVITED account gets a fresh code instead; created reports which.
func (s *Service) Signup(ctx context.Context, in SignupInput) (u user.User, created bool, err error) {
	phone, err := normalizePhone(in.Phone)
	if err != nil {
		return user.User{}, false, err
	}
	existing, err := s.users.GetUserByPhone(ctx, phone)
	switch {
	case err == nil:
		if existing.Status != user.StatusInvited {
			return user.User{}, false, svcerrors.Conflict("phone already registered")
		}
		if err := s.sendCode(ctx, codes.PurposeVerify, phone); err != nil {
			return user.User{}, false, err
		}
		return existing, false, nil
	case !errors.Is(err, storage.ErrNotFound):
		return user.User{}, false, service.StoreError("user", "", err)
	}

	u, err = s.createInvited(ctx, InviteInput{Phone: phone, Email: in.Email, FullName: in.FullName, Role: user.RolePlayer})
	if err != nil {
		return user.User{}, false, err
	}
	return u, true, nil
}

// Invite creates an INVITED account with the given role and sends its code.
func (s *Service) Invite(ctx context.Context, in InviteInput) (user.User, error) {
	phone, err := normalizePhone(in.Phone)
	if err != nil {
		return user.User{}, err
	}
	in.Phone = phone
	return s.createInvited(ctx, in)
}

func (s *Service) createInvited(ctx context.Context, in InviteInput) (user.User, error) {
	name := strings.TrimSpace(in.FullName)
	if name == "" {
		return user.User{}, svcerrors.Validation("full_name", "is required")
	}
	if !in.Role.Valid() {
		return user.User{}, svcerrors.Validation("role", "must be ADMIN, COACH or PLAYER")
	}
	created, err := s.users.CreateUser(ctx, user.User{
		Phone:    in.Phone,
		Email:    strings.TrimSpace(in.Email),
		FullName: name,
		Role:     in.Role,
		Status:   user.StatusInvited,
	})
	if errors.Is(err, storage.ErrConflict) {
		return user.User{}, svcerrors.Conflict("phone already registered")
	}
	if err != nil {
		return user.User{}, service.StoreError("user", "", err)
	}
	if err := s.sendCode(ctx, codes.PurposeVerify, created.Phone); err != nil {
		return user.User{}, err
	}
	s.log.WithField("user_id", created.ID).WithField("role", created.Role).Info("account invited")
	return created, nil
}

// ResendCode re-sends the verification code to an INVITED account. Unknown
// phones succeed silently.
func (s *Service) ResendCode(ctx context.Context, rawPhone string) error {
	phone, err := normalizePhone(rawPhone)
	if err != nil {
		return err
	}
	u, err := s.users.GetUserByPhone(ctx, phone)
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	if err != nil {
		return service.StoreError("user", "", err)
	}
	if u.Status != user.StatusInvited {
		return nil
	}
	return s.sendCode(ctx, codes.PurposeVerify, phone)
}

// Verify checks a signup code and returns a setup token for the MPIN step.
func (s *Service) Verify(ctx context.Context, rawPhone, code string) (SetupToken, error) {
	phone, err := normalizePhone(rawPhone)
	if err != nil {
		return SetupToken{}, err
	}
	u, err := s.users.GetUserByPhone(ctx, phone)
	if errors.Is(err, storage.ErrNotFound) {
		return SetupToken{}, errInvalidCode()
	}
	if err != nil {
		return SetupToken{}, service.StoreError("user", "", err)
	}
	switch u.Status {
	case user.StatusInvited, user.StatusVerified:
	case user.StatusSuspended:
		return SetupToken{}, svcerrors.Forbidden("account suspended")
	default:
		return SetupToken{}, svcerrors.Conflict("account already verified")
	}

	if err := s.checkCode(ctx, codes.PurposeVerify, phone, code); err != nil {
		return SetupToken{}, err
	}
	if u.Status == user.StatusInvited {
		if u, err = s.Transition(ctx, u, user.StatusVerified, u.ID); err != nil {
			return SetupToken{}, err
		}
	}

	token, expiresAt, err := s.signToken(Claims{UserID: u.ID, Role: string(u.Role), Purpose: PurposeMPINSetup}, s.cfg.SetupTokenTTL)
	if err != nil {
		return SetupToken{}, svcerrors.Internal("issue setup token", err)
	}
	return SetupToken{SetupToken: token, ExpiresAt: expiresAt, User: u}, nil
}

// SetupMPIN sets the first MPIN of a VERIFIED account and activates it.
func (s *Service) SetupMPIN(ctx context.Context, setupToken, mpin string) (Session, error) {
	claims, err := s.parseToken(setupToken, PurposeMPINSetup)
	if err != nil {
		return Session{}, svcerrors.InvalidToken(err)
	}
	hash, err := s.hashMPIN("mpin", mpin)
	if err != nil {
		return Session{}, err
	}
	u, err := s.users.GetUser(ctx, claims.UserID)
	if errors.Is(err, storage.ErrNotFound) {
		return Session{}, svcerrors.InvalidToken(err)
	}
	if err != nil {
		return Session{}, service.StoreError("user", claims.UserID, err)
	}
	if u.Status != user.StatusVerified {
		return Session{}, svcerrors.InvalidTransition("user", string(u.Status), string(user.StatusActive))
	}

	u.MPINHash = hash
	u.FailedLogins = 0
	u.LockedUntil = nil
	now := s.now().UTC()
	u.LastLoginAt = &now
	if u, err = s.Transition(ctx, u, user.StatusActive, u.ID); err != nil {
		return Session{}, err
	}
	return s.startSession(ctx, u)
}

// Login checks phone and MPIN and opens a session. Repeated failures lock
// the account for the configured duration.
func (s *Service) Login(ctx context.Context, rawPhone, mpin string) (Session, error) {
	phone, err := user.NormalizePhone(rawPhone)
	if err != nil {
		metrics.RecordLogin("failure")
		return Session{}, svcerrors.Unauthorized(invalidCredentials)
	}
	u, err := s.users.GetUserByPhone(ctx, phone)
	if errors.Is(err, storage.ErrNotFound) {
		metrics.RecordLogin("failure")
		return Session{}, svcerrors.Unauthorized(invalidCredentials)
	}
	if err != nil {
		return Session{}, service.StoreError("user", "", err)
	}

	now := s.now().UTC()
	switch {
	case u.Status == user.StatusSuspended:
		metrics.RecordLogin("suspended")
		return Session{}, svcerrors.Forbidden("account suspended")
	case u.Status != user.StatusActive || !u.HasMPIN():
		metrics.RecordLogin("failure")
		return Session{}, svcerrors.Forbidden("account is not activated")
	case u.IsLocked(now):
		metrics.RecordLogin("locked")
		return Session{}, lockedError(*u.LockedUntil)
	}

	if bcrypt.CompareHashAndPassword([]byte(u.MPINHash), []byte(mpin)) != nil {
		return Session{}, s.recordFailure(ctx, u.ID)
	}

	userID := u.ID
	if u, err = s.users.RecordLogin(ctx, userID, s.now().UTC()); err != nil {
		return Session{}, service.StoreError("user", userID, err)
	}
	metrics.RecordLogin("success")
	return s.startSession(ctx, u)
}

// recordFailure counts a wrong MPIN and decides the lock from the counter the
// store returns.
func (s *Service) recordFailure(ctx context.Context, userID string) error {
	now := s.now().UTC()
	until := now.Add(s.cfg.LockoutDuration)
	u, err := s.users.RecordFailedLogin(ctx, userID, s.cfg.MaxFailedLogins, s.cfg.LockoutDuration, now)
	if err != nil {
		return service.StoreError("user", userID, err)
	}
	if u.IsLocked(now) {
		if u.LockedUntil.Equal(until) {
			s.log.LogSecurityEvent(ctx, "account_locked", map[string]interface{}{
				"user_id":      u.ID,
				"locked_until": until,
			})
		}
		metrics.RecordLogin("locked")
		return lockedError(*u.LockedUntil)
	}
	metrics.RecordLogin("failure")
	return svcerrors.Unauthorized(invalidCredentials).
		WithDetails("attempts_remaining", s.cfg.MaxFailedLogins-u.FailedLogins)
}

func lockedError(until time.Time) error {
	return svcerrors.Locked("account locked after repeated failed logins").
		WithDetails("locked_until", until.UTC())
}

func (s *Service) startSession(ctx context.Context, u user.User) (Session, error) {
	now := s.now().UTC()
	sessionID := uuid.NewString()
	token, expiresAt, err := s.signToken(Claims{
		UserID:    u.ID,
		Role:      string(u.Role),
		Purpose:   PurposeAccess,
		SessionID: sessionID,
	}, s.cfg.TokenTTL)
	if err != nil {
		return Session{}, svcerrors.Internal("issue access token", err)
	}
	if _, err := s.sessions.CreateSession(ctx, user.Session{
		ID:         sessionID,
		UserID:     u.ID,
		TokenHash:  hashToken(token),
		ExpiresAt:  expiresAt,
		CreatedAt:  now,
		LastSeenAt: now,
	}); err != nil {
		return Session{}, service.StoreError("session", sessionID, err)
	}
	s.log.WithField("user_id", u.ID).WithField("session_id", sessionID).Info("session started")
	return Session{Token: token, ExpiresAt: expiresAt, User: u}, nil
}

// Authenticate resolves an access token to its caller. The session must
// exist and be unexpired and the account must not be suspended.
func (s *Service) Authenticate(ctx context.Context, token string) (user.Principal, error) {
	claims, err := s.parseToken(token, PurposeAccess)
	if err != nil {
		return user.Principal{}, svcerrors.InvalidToken(err)
	}
	sess, err := s.sessions.GetSessionByTokenHash(ctx, hashToken(token))
	if errors.Is(err, storage.ErrNotFound) {
		return user.Principal{}, svcerrors.InvalidToken(errors.New("session revoked"))
	}
	if err != nil {
		return user.Principal{}, service.StoreError("session", "", err)
	}
	now := s.now().UTC()
	if sess.ID != claims.SessionID || sess.UserID != claims.UserID || sess.Expired(now) {
		return user.Principal{}, svcerrors.InvalidToken(errors.New("session expired"))
	}

	u, err := s.users.GetUser(ctx, sess.UserID)
	if errors.Is(err, storage.ErrNotFound) {
		return user.Principal{}, svcerrors.InvalidToken(err)
	}
	if err != nil {
		return user.Principal{}, service.StoreError("user", sess.UserID, err)
	}
	if u.Status != user.StatusActive {
		return user.Principal{}, svcerrors.Forbidden("account suspended")
	}

	if err := s.sessions.TouchSession(ctx, sess.ID, now); err != nil {
		s.log.WithError(err).WithField("session_id", sess.ID).Debug("touch session")
	}
	return user.Principal{UserID: u.ID, Role: u.Role, SessionID: sess.ID}, nil
}

// Logout ends the caller's session.
func (s *Service) Logout(ctx context.Context, p user.Principal) error {
	err := s.sessions.DeleteSession(ctx, p.SessionID)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return service.StoreError("session", p.SessionID, err)
	}
	return nil
}

// Me returns the caller's account.
func (s *Service) Me(ctx context.Context, p user.Principal) (user.User, error) {
	u, err := s.users.GetUser(ctx, p.UserID)
	return u, service.StoreError("user", p.UserID, err)
}

// ChangeMPIN replaces the caller's MPIN after checking the current one.
func (s *Service) ChangeMPIN(ctx context.Context, p user.Principal, current, next string) error {
	hash, err := s.hashMPIN("new_mpin", next)
	if err != nil {
		return err
	}
	u, err := s.users.GetUser(ctx, p.UserID)
	if err != nil {
		return service.StoreError("user", p.UserID, err)
	}
	if bcrypt.CompareHashAndPassword([]byte(u.MPINHash), []byte(current)) != nil {
		return svcerrors.Unauthorized("current MPIN is incorrect")
	}
	if current == next {
		return svcerrors.Validation("new_mpin", "must differ from the current MPIN")
	}
	u.MPINHash = hash
	if _, err := s.users.UpdateUser(ctx, u); err != nil {
		return service.StoreError("user", u.ID, err)
	}
	s.log.WithField("user_id", u.ID).Info("mpin changed")
	return nil
}

// ForgotMPIN sends a reset code to an ACTIVE account. Other phones succeed
// silently.
func (s *Service) ForgotMPIN(ctx context.Context, rawPhone string) error {
	phone, err := normalizePhone(rawPhone)
	if err != nil {
		return err
	}
	u, err := s.users.GetUserByPhone(ctx, phone)
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	if err != nil {
		return service.StoreError("user", "", err)
	}
	if u.Status != user.StatusActive {
		return nil
	}
	return s.sendCode(ctx, codes.PurposeReset, phone)
}

// ResetMPIN sets a new MPIN with a reset code, clears the lockout and
// revokes every session of the account.
func (s *Service) ResetMPIN(ctx context.Context, rawPhone, code, mpin string) error {
	phone, err := normalizePhone(rawPhone)
	if err != nil {
		return err
	}
	hash, err := s.hashMPIN("new_mpin", mpin)
	if err != nil {
		return err
	}
	u, err := s.users.GetUserByPhone(ctx, phone)
	if errors.Is(err, storage.ErrNotFound) {
		return errInvalidCode()
	}
	if err != nil {
		return service.StoreError("user", "", err)
	}
	if u.Status != user.StatusActive {
		return errInvalidCode()
	}
	if err := s.checkCode(ctx, codes.PurposeReset, phone, code); err != nil {
		return err
	}

	u.MPINHash = hash
	u.FailedLogins = 0
	u.LockedUntil = nil
	if _, err := s.users.UpdateUser(ctx, u); err != nil {
		return service.StoreError("user", u.ID, err)
	}
	revoked, err := s.RevokeSessions(ctx, u.ID)
	if err != nil {
		return err
	}
	s.log.LogSecurityEvent(ctx, "mpin_reset", map[string]interface{}{
		"user_id":          u.ID,
		"sessions_revoked": revoked,
	})
	return nil
}

// RevokeSessions deletes every session of a user.
func (s *Service) RevokeSessions(ctx context.Context, userID string) (int, error) {
	n, err := s.sessions.DeleteUserSessions(ctx, userID)
	if err != nil {
		return 0, service.StoreError("session", "", err)
	}
	return n, nil
}

// Transition moves an account to another status, persists every other
// field of u and publishes the change.
func (s *Service) Transition(ctx context.Context, u user.User, to user.Status, actorID string) (user.User, error) {
	from := u.Status
	if !user.CanTransition(from, to) {
		return user.User{}, svcerrors.InvalidTransition("user", string(from), string(to))
	}
	u.Status = to
	updated, err := s.users.UpdateUser(ctx, u)
	if err != nil {
		return user.User{}, service.StoreError("user", u.ID, err)
	}
	service.Publish(s.events, events.TypeUserTransition, map[string]interface{}{
		"user_id":  updated.ID,
		"role":     updated.Role,
		"from":     from,
		"to":       to,
		"actor_id": actorID,
	})
	s.log.WithFields(map[string]interface{}{
		"user_id": updated.ID,
		"from":    from,
		"to":      to,
	}).Info("user status changed")
	return updated, nil
}

// HashMPIN validates and hashes an MPIN.
func (s *Service) HashMPIN(mpin string) (string, error) {
	return s.hashMPIN("mpin", mpin)
}

func (s *Service) hashMPIN(field, mpin string) (string, error) {
	if err := user.ValidateMPIN(mpin); err != nil {
		return "", svcerrors.Validation(field, err.Error())
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(mpin), s.cfg.BcryptCost)
	if err != nil {
		return "", svcerrors.Internal("hash mpin", err)
	}
	return string(hash), nil
}

func (s *Service) sendCode(ctx context.Context, purpose codes.Purpose, phone string) error {
	code, err := s.codes.Issue(ctx, purpose, phone)
	if err != nil {
		return svcerrors.Internal("issue code", err)
	}
	msg := notify.Message{
		Phone:   phone,
		Purpose: string(purpose),
		Code:    code,
		TTLSecs: int(s.codes.TTL().Seconds()),
	}
	if err := s.notifier.Send(ctx, msg); err != nil {
		s.log.WithError(err).WithField("phone", maskPhone(phone)).Warn("deliver verification code")
	}
	return nil
}

func (s *Service) checkCode(ctx context.Context, purpose codes.Purpose, phone, code string) error {
	code = strings.TrimSpace(code)
	if len(code) != codes.Length || strings.Trim(code, "0123456789") != "" {
		return svcerrors.Validation("code", "must be 6 digits")
	}
	err := s.codes.Verify(ctx, purpose, phone, code)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, codes.ErrTooManyAttempts):
		return svcerrors.Validation("code", "too many attempts, request a new code")
	case errors.Is(err, codes.ErrNotFound), errors.Is(err, codes.ErrMismatch):
		return errInvalidCode()
	default:
		return svcerrors.Internal("verify code", err)
	}
}

func errInvalidCode() error {
	return svcerrors.Validation("code", "invalid or expired code")
}

func normalizePhone(raw string) (string, error) {
	phone, err := user.NormalizePhone(raw)
	if err != nil {
		return "", svcerrors.Validation("phone", err.Error())
	}
	return phone, nil
}

func maskPhone(phone string) string {
	if len(phone) <= 4 {
		return "****"
	}
	return strings.Repeat("*", len(phone)-4) + phone[len(phone)-4:]
}
