package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	app "github.com/clubhouse-sports/clubhouse/internal/app"
	"github.com/clubhouse-sports/clubhouse/internal/app/blob"
	"github.com/clubhouse-sports/clubhouse/internal/app/domain/user"
	"github.com/clubhouse-sports/clubhouse/internal/app/services/auth"
	"github.com/clubhouse-sports/clubhouse/internal/app/storage"
	"github.com/clubhouse-sports/clubhouse/internal/app/storage/memory"
	"github.com/clubhouse-sports/clubhouse/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const seedYAML = `
admins:
  - phone: "+1 555 010 0000"
    full_name: Club Admin
    mpin: "2580"
coaches:
  - phone: "5550100100"
    full_name: Pat Coach
    specialty: Goalkeeping
teams:
  - name: U17 Hawks
    age_group: U17
    season: "2026"
    head_coach_phone: "5550100100"
`

func TestSeedIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte(seedYAML), 0o600))
	doc, err := Load(path)
	require.NoError(t, err)
	require.Len(t, doc.Teams, 1)

	store := memory.New()
	blobs, err := blob.NewFSStore(t.TempDir())
	require.NoError(t, err)
	log := logger.New(logger.LoggingConfig{Output: "discard"})
	application, err := app.New(app.Stores{
		Users: store, Sessions: store, Applications: store, Trials: store,
		Coaches: store, Teams: store, Documents: store,
	}, app.Options{Auth: auth.Config{Secret: []byte("seed-test-secret"), BcryptCost: 4}, Blobs: blobs}, log)
	require.NoError(t, err)

	ctx := context.Background()
	res, err := Seed(ctx, application, store, store, doc, log)
	require.NoError(t, err)
	assert.Equal(t, Result{Created: 3}, res)

	admin, err := store.GetUserByPhone(ctx, "+15550100000")
	require.NoError(t, err)
	assert.Equal(t, user.StatusActive, admin.Status)
	assert.True(t, admin.HasMPIN())

	teams, total, err := store.ListTeams(ctx, storage.TeamFilter{})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	assert.NotEmpty(t, teams[0].HeadCoachID)

	res, err = Seed(ctx, application, store, store, doc, log)
	require.NoError(t, err)
	assert.Equal(t, Result{Skipped: 3}, res)
}
