// Package user defines association accounts and their lifecycle.
package user

import "time"

// Role is the authorization role of an account.
type Role string

const (
	RoleAdmin  Role = "ADMIN"
	RoleCoach  Role = "COACH"
	RolePlayer Role = "PLAYER"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleCoach, RolePlayer:
		return true
	}
	return false
}

// Status is the account lifecycle state.
type Status string

const (
	StatusInvited   Status = "INVITED"
	StatusVerified  Status = "VERIFIED"
	StatusActive    Status = "ACTIVE"
	StatusSuspended Status = "SUSPENDED"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusInvited, StatusVerified, StatusActive, StatusSuspended:
		return true
	}
	return false
}

var transitions = map[Status][]Status{
	StatusInvited:   {StatusVerified, StatusSuspended},
	StatusVerified:  {StatusActive, StatusSuspended},
	StatusActive:    {StatusSuspended},
	StatusSuspended: {StatusActive},
}

// CanTransition reports whether an account may move from one status to another.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// User is an association account. Phone is the login identifier.
type User struct {
	ID           string     `json:"id" db:"id"`
	Phone        string     `json:"phone" db:"phone"`
	Email        string     `json:"email,omitempty" db:"email"`
	FullName     string     `json:"full_name" db:"full_name"`
	Role         Role       `json:"role" db:"role"`
	Status       Status     `json:"status" db:"status"`
	MPINHash     string     `json:"-" db:"mpin_hash"`
	FailedLogins int        `json:"-" db:"failed_logins"`
	LockedUntil  *time.Time `json:"locked_until,omitempty" db:"locked_until"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty" db:"last_login_at"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at" db:"updated_at"`
}

// HasMPIN reports whether an MPIN has been set.
func (u User) HasMPIN() bool { return u.MPINHash != "" }

// IsLocked reports whether the account is in a login lockout at now.
func (u User) IsLocked(now time.Time) bool {
	return u.LockedUntil != nil && now.Before(*u.LockedUntil)
}

// Session is an issued access token, stored by hash.
type Session struct {
	ID         string    `json:"id" db:"id"`
	UserID     string    `json:"user_id" db:"user_id"`
	TokenHash  string    `json:"-" db:"token_hash"`
	ExpiresAt  time.Time `json:"expires_at" db:"expires_at"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	LastSeenAt time.Time `json:"last_seen_at" db:"last_seen_at"`
}

// Expired reports whether the session is past its expiry at now.
func (s Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// Principal is the authenticated caller of a request.
type Principal struct {
	UserID    string
	Role      Role
	SessionID string
}

// IsAdmin reports whether the caller has the ADMIN role.
func (p Principal) IsAdmin() bool { return p.Role == RoleAdmin }

// HasRole reports whether the caller holds one of roles.
func (p Principal) HasRole(roles ...Role) bool {
	for _, r := range roles {
		if p.Role == r {
			return true
		}
	}
	return false
}
