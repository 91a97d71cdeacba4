// Package codes issues and checks one-time verification codes delivered to
// a phone number during signup and MPIN recovery.
package codes

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"time"
)

// Purpose scopes a code to one flow.
type Purpose string

const (
	PurposeVerify Purpose = "verify"
	PurposeReset  Purpose = "reset"
)

// Length is the number of digits in a code.
const Length = 6

var (
	ErrNotFound        = errors.New("codes: no active code")
	ErrMismatch        = errors.New("codes: code does not match")
	ErrTooManyAttempts = errors.New("codes: too many attempts")
)

// Entry is the stored form of an issued code.
type Entry struct {
	Hash      string    `json:"hash"`
	Attempts  int       `json:"attempts"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Store persists entries keyed by purpose and phone. Get returns ErrNotFound
// for missing or expired entries.
type Store interface {
	Put(ctx context.Context, key string, entry Entry, ttl time.Duration) error
	Get(ctx context.Context, key string) (Entry, error)
	IncrementAttempts(ctx context.Context, key string) (int, error)
	Delete(ctx context.Context, key string) error
	PurgeExpired(ctx context.Context, now time.Time) (int, error)
}

// Manager issues and verifies codes on top of a Store.
type Manager struct {
	store       Store
	ttl         time.Duration
	maxAttempts int
	now         func() time.Time
}

// NewManager creates a Manager. Zero ttl or maxAttempts fall back to 10m and 5.
func NewManager(store Store, ttl time.Duration, maxAttempts int) *Manager {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	return &Manager{store: store, ttl: ttl, maxAttempts: maxAttempts, now: time.Now}
}

// TTL reports how long issued codes stay valid.
func (m *Manager) TTL() time.Duration { return m.ttl }

// Store exposes the backing store for housekeeping.
func (m *Manager) Store() Store { return m.store }

func key(purpose Purpose, phone string) string {
	return fmt.Sprintf("code:%s:%s", purpose, phone)
}

func hashCode(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}

// Generate returns a random numeric code of Length digits.
func Generate() (string, error) {
	max := big.NewInt(1_000_000)
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}
	return fmt.Sprintf("%0*d", Length, n.Int64()), nil
}

// Issue creates a fresh code for phone, replacing any outstanding one.
func (m *Manager) Issue(ctx context.Context, purpose Purpose, phone string) (string, error) {
	code, err := Generate()
	if err != nil {
		return "", err
	}
	entry := Entry{Hash: hashCode(code), ExpiresAt: m.now().Add(m.ttl).UTC()}
	if err := m.store.Put(ctx, key(purpose, phone), entry, m.ttl); err != nil {
		return "", fmt.Errorf("store code: %w", err)
	}
	return code, nil
}

// Verify consumes the code for phone when it matches. Every call spends one
// attempt before the compare; a mismatch that exhausts the budget
// invalidates the code.
func (m *Manager) Verify(ctx context.Context, purpose Purpose, phone, code string) error {
	k := key(purpose, phone)
	entry, err := m.store.Get(ctx, k)
	if err != nil {
		return err
	}
	if !m.now().Before(entry.ExpiresAt) {
		_ = m.store.Delete(ctx, k)
		return ErrNotFound
	}

	attempts, err := m.store.IncrementAttempts(ctx, k)
	if err != nil {
		return err
	}
	if attempts > m.maxAttempts {
		_ = m.store.Delete(ctx, k)
		return ErrTooManyAttempts
	}
	if subtle.ConstantTimeCompare([]byte(entry.Hash), []byte(hashCode(code))) == 1 {
		return m.store.Delete(ctx, k)
	}
	if attempts >= m.maxAttempts {
		_ = m.store.Delete(ctx, k)
		return ErrTooManyAttempts
	}
	return ErrMismatch
}
