package postgres

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/clubhouse-sports/clubhouse/internal/app/domain/application"
	"github.com/clubhouse-sports/clubhouse/internal/app/domain/team"
	"github.com/clubhouse-sports/clubhouse/internal/app/domain/trial"
	"github.com/clubhouse-sports/clubhouse/internal/app/domain/user"
	"github.com/clubhouse-sports/clubhouse/internal/app/storage"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return New(sqlx.NewDb(db, "postgres")), mock
}

var userRowColumns = []string{"id", "phone", "email", "full_name", "role", "status", "mpin_hash",
	"failed_logins", "locked_until", "last_login_at", "created_at", "updated_at"}

func TestGetUserNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT .* FROM users WHERE id = \$1`).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(userRowColumns))

	if _, err := store.GetUser(context.Background(), "missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestCreateUserDuplicatePhone(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(`INSERT INTO users`).
		WillReturnError(&pq.Error{Code: codeUniqueViolation, Constraint: "users_phone_key"})

	_, err := store.CreateUser(context.Background(), user.User{Phone: "+15550001111", Role: user.RolePlayer, Status: user.StatusInvited})
	if !errors.Is(err, storage.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestRecordFailedLoginIncrementsInSQL(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now().UTC()
	until := now.Add(15 * time.Minute)

	mock.ExpectQuery(`UPDATE users SET failed_logins = CASE .* failed_logins \+ 1 .* RETURNING`).
		WithArgs("u1", now, 5, until).
		WillReturnRows(sqlmock.NewRows(userRowColumns).
			AddRow("u1", "+15550001111", "", "Ana Silva", "PLAYER", "ACTIVE", "hash", 0, until, nil, now, now))

	u, err := store.RecordFailedLogin(context.Background(), "u1", 5, 15*time.Minute, now)
	if err != nil {
		t.Fatalf("record failed login: %v", err)
	}
	if !u.IsLocked(now) || u.FailedLogins != 0 {
		t.Fatalf("expected locked account with reset counter, got %+v", u)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestRecordFailedLoginMissingUser(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now().UTC()

	mock.ExpectQuery(`UPDATE users SET failed_logins`).
		WillReturnRows(sqlmock.NewRows(userRowColumns))

	if _, err := store.RecordFailedLogin(context.Background(), "missing", 5, time.Minute, now); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListUsersPaginates(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now().UTC()

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM users WHERE role = \$1 AND status = \$2`).
		WithArgs("PLAYER", "ACTIVE").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(41))
	mock.ExpectQuery(`SELECT .* FROM users WHERE role = \$1 AND status = \$2 ORDER BY created_at DESC, id LIMIT \$3 OFFSET \$4`).
		WithArgs("PLAYER", "ACTIVE", 100, 40).
		WillReturnRows(sqlmock.NewRows(userRowColumns).
			AddRow("u1", "+15550001111", "", "Ana Silva", "PLAYER", "ACTIVE", "hash", 0, nil, now, now, now))

	items, total, err := store.ListUsers(context.Background(), storage.UserFilter{
		Role:       user.RolePlayer,
		Status:     user.StatusActive,
		ListParams: storage.ListParams{Limit: 500, Offset: 40},
	})
	if err != nil {
		t.Fatalf("list users: %v", err)
	}
	if total != 41 || len(items) != 1 {
		t.Fatalf("expected 1 of 41, got %d of %d", len(items), total)
	}
	if items[0].LastLoginAt == nil || items[0].LockedUntil != nil {
		t.Fatalf("nullable timestamps not scanned: %+v", items[0])
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestListApplicationsFilters(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM applications WHERE id IN \(SELECT application_id FROM trials WHERE coach_id = \$1\) AND status = ANY\(\$2\) AND \(first_name \|\| ' ' \|\| last_name ILIKE \$3 OR phone ILIKE \$3\)`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(`SELECT .* FROM applications WHERE .* LIMIT \$4 OFFSET \$5`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, total, err := store.ListApplications(context.Background(), storage.ApplicationFilter{
		CoachID:  "c1",
		Statuses: []application.Status{application.StatusUnderReview},
		Query:    "50%",
	})
	if err != nil {
		t.Fatalf("list applications: %v", err)
	}
	if total != 0 {
		t.Fatalf("expected no results, got %d", total)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestDeleteTeamWithRosterConflicts(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(`DELETE FROM teams WHERE id = \$1`).
		WithArgs("t1").
		WillReturnError(&pq.Error{Code: codeForeignKeyViolation, Constraint: "roster_entries_team_id_fkey"})

	if err := store.DeleteTeam(context.Background(), "t1"); !errors.Is(err, storage.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestDeleteSessionMissing(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(`DELETE FROM sessions WHERE id = \$1`).
		WithArgs("nope").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := store.DeleteSession(context.Background(), "nope"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGetTrialDecodesScores(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now().UTC()

	mock.ExpectQuery(`SELECT .* FROM trials WHERE id = \$1`).
		WithArgs("tr1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "application_id", "coach_id", "scheduled_at", "location",
			"status", "outcome", "scores", "notes", "completed_at", "created_at", "updated_at"}).
			AddRow("tr1", "a1", "c1", now, "Field 2", "COMPLETED", "RECOMMENDED", []byte(`{"speed":8,"passing":6}`), "", now, now, now))

	got, err := store.GetTrial(context.Background(), "tr1")
	if err != nil {
		t.Fatalf("get trial: %v", err)
	}
	if got.Scores["speed"] != 8 || got.Scores["passing"] != 6 {
		t.Fatalf("unexpected scores: %v", got.Scores)
	}
}

var trialRowColumns = []string{"id", "application_id", "coach_id", "scheduled_at", "location",
	"status", "outcome", "scores", "notes", "completed_at", "created_at", "updated_at"}

func TestTrialsRejectCorruptScores(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now().UTC()

	mock.ExpectQuery(`SELECT .* FROM trials WHERE id = \$1`).
		WithArgs("tr1").
		WillReturnRows(sqlmock.NewRows(trialRowColumns).
			AddRow("tr1", "a1", "c1", now, "Field 2", "COMPLETED", "RECOMMENDED", []byte(`{"speed":`), "", now, now, now))
	if _, err := store.GetTrial(context.Background(), "tr1"); err == nil {
		t.Fatal("expected decode error for corrupt scores")
	}

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM trials`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(`SELECT .* FROM trials ORDER BY created_at DESC, id LIMIT \$1 OFFSET \$2`).
		WithArgs(20, 0).
		WillReturnRows(sqlmock.NewRows(trialRowColumns).
			AddRow("tr1", "a1", "c1", now, "Field 2", "COMPLETED", "RECOMMENDED", []byte(`not json`), "", now, now, now))
	if _, _, err := store.ListTrials(context.Background(), storage.TrialFilter{}); err == nil {
		t.Fatal("expected decode error from list")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestCreateTrialSecondPendingConflicts(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(`INSERT INTO trials`).
		WillReturnError(&pq.Error{Code: codeUniqueViolation, Constraint: "trials_one_pending_per_application_uidx"})

	_, err := store.CreateTrial(context.Background(), trial.Trial{ApplicationID: "a1", CoachID: "c1", Status: trial.StatusPending})
	if !errors.Is(err, storage.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestCountUsersByStatus(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT status AS key, COUNT\(\*\) AS count FROM users GROUP BY status`).
		WillReturnRows(sqlmock.NewRows([]string{"key", "count"}).AddRow("ACTIVE", 3).AddRow("INVITED", 2))

	counts, err := store.CountUsersByStatus(context.Background())
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if counts[user.StatusActive] != 3 || counts[user.StatusInvited] != 2 {
		t.Fatalf("unexpected counts: %v", counts)
	}
}

func TestLikePatternEscapes(t *testing.T) {
	if got := likePattern(" 50%_off "); got != `%50\%\_off%` {
		t.Fatalf("unexpected pattern %q", got)
	}
}

func TestStoreIntegration(t *testing.T) {
	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN not set; skipping postgres integration test")
	}

	ctx := context.Background()
	db, err := Open(ctx, dsn, PoolConfig{}, true)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer db.Close()
	store := New(db)

	phone := "+1555" + time.Now().Format("150405000")
	u, err := store.CreateUser(ctx, user.User{Phone: phone, FullName: "Integration", Role: user.RolePlayer, Status: user.StatusInvited})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if _, err := store.CreateUser(ctx, user.User{Phone: phone, Role: user.RolePlayer, Status: user.StatusInvited}); !errors.Is(err, storage.ErrConflict) {
		t.Fatalf("expected duplicate phone conflict, got %v", err)
	}

	app, err := store.CreateApplication(ctx, application.Application{ApplicantID: u.ID, FirstName: "In", LastName: "Tegration", Status: application.StatusDraft})
	if err != nil {
		t.Fatalf("create application: %v", err)
	}
	if _, err := store.AppendApplicationEvent(ctx, application.Event{ApplicationID: app.ID, To: application.StatusDraft}); err != nil {
		t.Fatalf("append event: %v", err)
	}

	tm, err := store.CreateTeam(ctx, team.Team{Name: "Integration " + phone})
	if err != nil {
		t.Fatalf("create team: %v", err)
	}
	if _, err := store.AddRosterEntry(ctx, team.RosterEntry{TeamID: tm.ID, ApplicationID: app.ID, JerseyNumber: 10}); err != nil {
		t.Fatalf("add roster: %v", err)
	}
	if err := store.DeleteTeam(ctx, tm.ID); !errors.Is(err, storage.ErrConflict) {
		t.Fatalf("expected conflict deleting rostered team, got %v", err)
	}
}
