package httpapi

import (
	"net/http"
	"strings"

	"github.com/clubhouse-sports/clubhouse/internal/app/domain/user"
	"github.com/clubhouse-sports/clubhouse/internal/app/storage"
	"github.com/clubhouse-sports/clubhouse/internal/httputil"
	"github.com/clubhouse-sports/clubhouse/internal/middleware"
	"github.com/gorilla/mux"
)

// caller returns the authenticated principal. Routes using it sit behind the
// auth middleware, so a missing principal is answered with 401.
func caller(w http.ResponseWriter, r *http.Request) (user.Principal, bool) {
	p, ok := middleware.PrincipalFrom(r.Context())
	if !ok {
		httputil.Unauthorized(w, r, "")
	}
	return p, ok
}

func pathVar(r *http.Request, name string) string {
	return mux.Vars(r)[name]
}

func query(r *http.Request, key string) string {
	return strings.TrimSpace(r.URL.Query().Get(key))
}

// listParams reads limit and offset, writing a 400 on malformed values.
func listParams(w http.ResponseWriter, r *http.Request) (storage.ListParams, bool) {
	limit, err := httputil.QueryInt(r, "limit", storage.DefaultLimit)
	if err != nil {
		httputil.WriteError(w, r, err)
		return storage.ListParams{}, false
	}
	offset, err := httputil.QueryInt(r, "offset", 0)
	if err != nil {
		httputil.WriteError(w, r, err)
		return storage.ListParams{}, false
	}
	return storage.ListParams{Limit: limit, Offset: offset}.Normalize(), true
}

func accepted(w http.ResponseWriter) {
	httputil.WriteJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

func noContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}
