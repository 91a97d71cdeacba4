package memory

import (
	"strings"
	"sync"

	"github.com/clubhouse-sports/clubhouse/internal/app/domain/application"
	"github.com/clubhouse-sports/clubhouse/internal/app/domain/coach"
	"github.com/clubhouse-sports/clubhouse/internal/app/domain/document"
	"github.com/clubhouse-sports/clubhouse/internal/app/domain/team"
	"github.com/clubhouse-sports/clubhouse/internal/app/domain/trial"
	"github.com/clubhouse-sports/clubhouse/internal/app/domain/user"
	"github.com/clubhouse-sports/clubhouse/internal/app/storage"
)

// Store is an in-memory implementation of the storage interfaces. It is safe
// for concurrent use and is primarily intended for tests and local development.
type Store struct {
	mu sync.RWMutex

	users        map[string]user.User
	usersByPhone map[string]string
	userOrder    []string

	sessions       map[string]user.Session
	sessionsByHash map[string]string

	applications map[string]application.Application
	appOrder     []string
	events       map[string][]application.Event

	trials     map[string]trial.Trial
	trialOrder []string

	coaches    map[string]coach.Coach
	coachOrder []string

	teams     map[string]team.Team
	teamOrder []string
	rosters   map[string][]team.RosterEntry

	documents map[string]document.Document
	docOrder  []string
}

var _ storage.UserStore = (*Store)(nil)
var _ storage.SessionStore = (*Store)(nil)
var _ storage.ApplicationStore = (*Store)(nil)
var _ storage.TrialStore = (*Store)(nil)
var _ storage.CoachStore = (*Store)(nil)
var _ storage.TeamStore = (*Store)(nil)
var _ storage.DocumentStore = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{
		users:          make(map[string]user.User),
		usersByPhone:   make(map[string]string),
		sessions:       make(map[string]user.Session),
		sessionsByHash: make(map[string]string),
		applications:   make(map[string]application.Application),
		events:         make(map[string][]application.Event),
		trials:         make(map[string]trial.Trial),
		coaches:        make(map[string]coach.Coach),
		teams:          make(map[string]team.Team),
		rosters:        make(map[string][]team.RosterEntry),
		documents:      make(map[string]document.Document),
	}
}

// newestFirst walks ids from the most recently inserted.
func newestFirst(order []string, fn func(id string)) {
	for i := len(order) - 1; i >= 0; i-- {
		fn(order[i])
	}
}

func removeID(order []string, id string) []string {
	for i, v := range order {
		if v == id {
			return append(order[:i], order[i+1:]...)
		}
	}
	return order
}

func paginate[T any](items []T, params storage.ListParams) ([]T, int) {
	params = params.Normalize()
	total := len(items)
	if params.Offset >= total {
		return []T{}, total
	}
	end := params.Offset + params.Limit
	if end > total {
		end = total
	}
	return items[params.Offset:end], total
}

func matches(query string, fields ...string) bool {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return true
	}
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), query) {
			return true
		}
	}
	return false
}
