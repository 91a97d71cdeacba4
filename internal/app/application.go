package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/clubhouse-sports/clubhouse/internal/app/blob"
	"github.com/clubhouse-sports/clubhouse/internal/app/codes"
	"github.com/clubhouse-sports/clubhouse/internal/app/events"
	"github.com/clubhouse-sports/clubhouse/internal/app/housekeeping"
	"github.com/clubhouse-sports/clubhouse/internal/app/notify"
	"github.com/clubhouse-sports/clubhouse/internal/app/services/applications"
	"github.com/clubhouse-sports/clubhouse/internal/app/services/auth"
	"github.com/clubhouse-sports/clubhouse/internal/app/services/coaches"
	"github.com/clubhouse-sports/clubhouse/internal/app/services/documents"
	"github.com/clubhouse-sports/clubhouse/internal/app/services/stats"
	"github.com/clubhouse-sports/clubhouse/internal/app/services/teams"
	"github.com/clubhouse-sports/clubhouse/internal/app/services/trials"
	"github.com/clubhouse-sports/clubhouse/internal/app/services/users"
	"github.com/clubhouse-sports/clubhouse/internal/app/storage"
	"github.com/clubhouse-sports/clubhouse/internal/app/storage/memory"
	"github.com/clubhouse-sports/clubhouse/internal/app/system"
	"github.com/clubhouse-sports/clubhouse/pkg/logger"
)

// Stores encapsulates persistence dependencies. Nil stores default to the
// in-memory implementation.
type Stores struct {
	Users        storage.UserStore
	Sessions     storage.SessionStore
	Applications storage.ApplicationStore
	Trials       storage.TrialStore
	Coaches      storage.CoachStore
	Teams        storage.TeamStore
	Documents    storage.DocumentStore
}

// Options carries the non-store collaborators. Zero values select local
// defaults: in-memory codes, log delivery and a temp-dir blob store.
type Options struct {
	Auth                 auth.Config
	Codes                *codes.Manager
	Notifier             notify.Notifier
	Blobs                blob.Store
	MaxUploadBytes       int64
	HousekeepingSchedule string
	EventBuffer          int
}

// Application ties domain services together and manages their lifecycle.
type Application struct {
	manager *system.Manager
	log     *logger.Logger

	Events       *events.Hub
	Housekeeping *housekeeping.Scheduler

	Auth         *auth.Service
	Users        *users.Service
	Applications *applications.Service
	Trials       *trials.Service
	Coaches      *coaches.Service
	Teams        *teams.Service
	Documents    *documents.Service
	Stats        *stats.Service
}

// New builds a fully initialised application with the provided stores.
func New(stores Stores, opts Options, log *logger.Logger) (*Application, error) {
	if log == nil {
		log = logger.NewDefault("app")
	}
	if len(opts.Auth.Secret) == 0 {
		return nil, errors.New("app: auth secret is required")
	}

	mem := memory.New()
	if stores.Users == nil {
		stores.Users = mem
	}
	if stores.Sessions == nil {
		stores.Sessions = mem
	}
	if stores.Applications == nil {
		stores.Applications = mem
	}
	if stores.Trials == nil {
		stores.Trials = mem
	}
	if stores.Coaches == nil {
		stores.Coaches = mem
	}
	if stores.Teams == nil {
		stores.Teams = mem
	}
	if stores.Documents == nil {
		stores.Documents = mem
	}

	if opts.Codes == nil {
		opts.Codes = codes.NewManager(codes.NewMemoryStore(), 0, 0)
	}
	if opts.Notifier == nil {
		opts.Notifier = notify.NewLogNotifier(log.Named("notify"))
	}
	if opts.Blobs == nil {
		fs, err := blob.NewFSStore(filepath.Join(os.TempDir(), "clubhouse-uploads"))
		if err != nil {
			return nil, fmt.Errorf("default blob store: %w", err)
		}
		log.Warn("no blob store configured; uploads kept in the temp directory")
		opts.Blobs = fs
	}

	hub := events.NewHub(opts.EventBuffer, log.Named("events"))

	authService := auth.New(stores.Users, stores.Sessions, opts.Codes, opts.Notifier, opts.Auth, log.Named("auth"))
	userService := users.New(stores.Users, authService, log.Named("users"))
	appService := applications.New(stores.Applications, stores.Users, stores.Teams, stores.Coaches, stores.Trials, log.Named("applications"))
	trialService := trials.New(stores.Trials, stores.Coaches, appService, log.Named("trials"))
	coachService := coaches.New(stores.Coaches, stores.Users, stores.Trials, stores.Teams, authService, log.Named("coaches"))
	teamService := teams.New(stores.Teams, stores.Applications, stores.Coaches, log.Named("teams"))
	docService := documents.New(stores.Documents, appService, opts.Blobs, opts.MaxUploadBytes, log.Named("documents"))
	statsService := stats.New(stores.Users, stores.Applications, stores.Trials, stores.Coaches, stores.Teams, log.Named("stats"))

	authService.AttachPublisher(hub)
	appService.AttachPublisher(hub)
	trialService.AttachPublisher(hub)

	statsService.Describe(
		authService.Descriptor(),
		userService.Descriptor(),
		appService.Descriptor(),
		trialService.Descriptor(),
		coachService.Descriptor(),
		teamService.Descriptor(),
		docService.Descriptor(),
		statsService.Descriptor(),
	)

	sweeper := housekeeping.NewScheduler(opts.HousekeepingSchedule, log.Named("housekeeping"),
		housekeeping.SessionPurge(stores.Sessions),
		housekeeping.CodePurge(opts.Codes.Store()),
	)

	manager := system.NewManager(log.Named("system"))
	for _, svc := range []system.Service{hub, sweeper} {
		if err := manager.Register(svc); err != nil {
			return nil, fmt.Errorf("register %s: %w", svc.Name(), err)
		}
	}

	return &Application{
		manager:      manager,
		log:          log,
		Events:       hub,
		Housekeeping: sweeper,
		Auth:         authService,
		Users:        userService,
		Applications: appService,
		Trials:       trialService,
		Coaches:      coachService,
		Teams:        teamService,
		Documents:    docService,
		Stats:        statsService,
	}, nil
}

// Attach registers an additional lifecycle-managed service. Call before Start.
func (a *Application) Attach(svc system.Service) error {
	return a.manager.Register(svc)
}

// Start begins all registered services.
func (a *Application) Start(ctx context.Context) error {
	return a.manager.Start(ctx)
}

// Stop stops all services.
func (a *Application) Stop(ctx context.Context) error {
	return a.manager.Stop(ctx)
}
