package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/clubhouse-sports/clubhouse/internal/app/storage"
	"github.com/clubhouse-sports/clubhouse/internal/app/storage/postgres/migrations"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// Store implements the storage interfaces backed by PostgreSQL.
type Store struct {
	db *sqlx.DB
}

var _ storage.UserStore = (*Store)(nil)
var _ storage.SessionStore = (*Store)(nil)
var _ storage.ApplicationStore = (*Store)(nil)
var _ storage.TrialStore = (*Store)(nil)
var _ storage.CoachStore = (*Store)(nil)
var _ storage.TeamStore = (*Store)(nil)
var _ storage.DocumentStore = (*Store)(nil)

// New creates a Store using the provided database handle.
func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// PoolConfig tunes the connection pool opened by Open.
type PoolConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Open connects to dsn, verifies the connection and optionally applies the
// bundled migrations.
func Open(ctx context.Context, dsn string, pool PoolConfig, migrate bool) (*sqlx.DB, error) {
	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if pool.MaxOpenConns > 0 {
		db.SetMaxOpenConns(pool.MaxOpenConns)
	}
	if pool.MaxIdleConns > 0 {
		db.SetMaxIdleConns(pool.MaxIdleConns)
	}
	if pool.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(pool.ConnMaxLifetime)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if migrate {
		if err := migrations.Apply(db.DB); err != nil {
			db.Close()
			return nil, err
		}
	}
	return db, nil
}

// Ping reports database reachability.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// postgres error classes mapped to storage sentinels
const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
)

func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return storage.ErrNotFound
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case codeUniqueViolation, codeForeignKeyViolation:
			return fmt.Errorf("%w: %s", storage.ErrConflict, pqErr.Constraint)
		}
	}
	return err
}

func requireRow(res sql.Result, err error) error {
	if err != nil {
		return mapErr(err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// where accumulates positional predicates.
type where struct {
	clauses []string
	args    []interface{}
}

// add appends a predicate. Every %[1]s in clause becomes the placeholder for v.
func (w *where) add(clause string, v interface{}) {
	w.args = append(w.args, v)
	w.clauses = append(w.clauses, fmt.Sprintf(clause, fmt.Sprintf("$%d", len(w.args))))
}

func (w *where) String() string {
	if len(w.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.clauses, " AND ")
}

func likePattern(q string) string {
	q = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(strings.TrimSpace(q))
	return "%" + q + "%"
}

// page runs a COUNT and a windowed SELECT over the same predicate.
func page[T any](ctx context.Context, db *sqlx.DB, columns, from, order string, w *where, params storage.ListParams) ([]T, int, error) {
	params = params.Normalize()

	var total int
	if err := db.GetContext(ctx, &total, "SELECT COUNT(*) FROM "+from+w.String(), w.args...); err != nil {
		return nil, 0, err
	}
	args := append(append([]interface{}{}, w.args...), params.Limit, params.Offset)
	query := fmt.Sprintf("SELECT %s FROM %s%s ORDER BY %s LIMIT $%d OFFSET $%d",
		columns, from, w.String(), order, len(w.args)+1, len(w.args)+2)

	items := []T{}
	if err := db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

type statusCount struct {
	Key   string `db:"key"`
	Count int    `db:"count"`
}

func (s *Store) countBy(ctx context.Context, query string) ([]statusCount, error) {
	var rows []statusCount
	if err := s.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, err
	}
	return rows, nil
}
