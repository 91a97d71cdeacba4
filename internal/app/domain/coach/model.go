// Package coach defines coach profiles.
package coach

import "time"

// Coach is a coaching staff profile linked to a COACH user.
type Coach struct {
	ID            string    `json:"id" db:"id"`
	UserID        string    `json:"user_id" db:"user_id"`
	FullName      string    `json:"full_name" db:"full_name"`
	Phone         string    `json:"phone" db:"phone"`
	Email         string    `json:"email,omitempty" db:"email"`
	Specialty     string    `json:"specialty,omitempty" db:"specialty"`
	Certification string    `json:"certification,omitempty" db:"certification"`
	Active        bool      `json:"active" db:"active"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}
