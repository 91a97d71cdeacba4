// Package httpapi exposes the application services over HTTP.
package httpapi

import (
	"context"
	"net/http"

	app "github.com/clubhouse-sports/clubhouse/internal/app"
	"github.com/clubhouse-sports/clubhouse/internal/app/domain/user"
	"github.com/clubhouse-sports/clubhouse/internal/app/events"
	"github.com/clubhouse-sports/clubhouse/internal/app/metrics"
	svcerrors "github.com/clubhouse-sports/clubhouse/internal/errors"
	"github.com/clubhouse-sports/clubhouse/internal/httputil"
	"github.com/clubhouse-sports/clubhouse/internal/middleware"
	"github.com/clubhouse-sports/clubhouse/pkg/logger"
	"github.com/gorilla/mux"
)

// APIPrefix is the versioned base path of every API route.
const APIPrefix = "/api/v1"

// Config carries the HTTP-layer collaborators.
type Config struct {
	CORSOrigins []string
	// Limiter throttles the unauthenticated /auth endpoints.
	Limiter *middleware.RateLimiter
	Audit   *AuditLog
	// Ready reports backing store health for /readyz.
	Ready func(ctx context.Context) error
	Log   *logger.Logger
}

type handler struct {
	app   *app.Application
	audit *AuditLog
	ready func(ctx context.Context) error
	log   *logger.Logger
}

// NewHandler returns the full API router.
func NewHandler(application *app.Application, cfg Config) http.Handler {
	if cfg.Log == nil {
		cfg.Log = logger.NewDefault("http")
	}
	if cfg.Limiter == nil {
		cfg.Limiter = middleware.NewRateLimiter(5, 10, cfg.Log)
	}
	if cfg.Audit == nil {
		cfg.Audit = NewAuditLog(0, nil, cfg.Log)
	}
	h := &handler{app: application, audit: cfg.Audit, ready: cfg.Ready, log: cfg.Log}
	cors := middleware.NewCORSMiddleware(cfg.CORSOrigins)

	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httputil.NotFound(w, r, "route not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteErrorResponse(w, r, http.StatusMethodNotAllowed, string(svcerrors.CodeBadRequest), "method not allowed", nil)
	})
	r.Use(middleware.RecoveryMiddleware(cfg.Log), middleware.LoggingMiddleware(cfg.Log), metrics.InstrumentHandler)

	r.HandleFunc("/healthz", h.healthz).Methods(http.MethodGet)
	r.HandleFunc("/readyz", h.readyz).Methods(http.MethodGet)
	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	api := r.PathPrefix(APIPrefix).Subrouter()

	public := api.NewRoute().Subrouter()
	public.Use(cfg.Limiter.Handler)
	public.HandleFunc("/auth/signup", h.signup).Methods(http.MethodPost)
	public.HandleFunc("/auth/resend", h.resend).Methods(http.MethodPost)
	public.HandleFunc("/auth/verify", h.verify).Methods(http.MethodPost)
	public.HandleFunc("/auth/mpin/setup", h.setupMPIN).Methods(http.MethodPost)
	public.HandleFunc("/auth/login", h.login).Methods(http.MethodPost)
	public.HandleFunc("/auth/mpin/forgot", h.forgotMPIN).Methods(http.MethodPost)
	public.HandleFunc("/auth/mpin/reset", h.resetMPIN).Methods(http.MethodPost)

	authed := api.NewRoute().Subrouter()
	authed.Use(middleware.NewAuthMiddleware(application.Auth, cfg.Log.Named("auth-middleware")).Handler, cfg.Audit.Middleware)
	authed.HandleFunc("/auth/logout", h.logout).Methods(http.MethodPost)
	authed.HandleFunc("/auth/me", h.me).Methods(http.MethodGet)
	authed.HandleFunc("/auth/mpin/change", h.changeMPIN).Methods(http.MethodPost)

	authed.HandleFunc("/applications", h.createApplication).Methods(http.MethodPost)
	authed.HandleFunc("/applications", h.listApplications).Methods(http.MethodGet)
	authed.HandleFunc("/applications/{id}", h.getApplication).Methods(http.MethodGet)
	authed.HandleFunc("/applications/{id}", h.updateApplication).Methods(http.MethodPatch)
	authed.HandleFunc("/applications/{id}", h.deleteApplication).Methods(http.MethodDelete)
	authed.HandleFunc("/applications/{id}/submit", h.submitApplication).Methods(http.MethodPost)
	authed.HandleFunc("/applications/{id}/review", h.reviewApplication).Methods(http.MethodPost)
	authed.HandleFunc("/applications/{id}/decision", h.decideApplication).Methods(http.MethodPost)
	authed.HandleFunc("/applications/{id}/history", h.applicationHistory).Methods(http.MethodGet)
	authed.HandleFunc("/applications/{id}/documents", h.uploadDocument).Methods(http.MethodPost)
	authed.HandleFunc("/applications/{id}/documents", h.listDocuments).Methods(http.MethodGet)
	authed.HandleFunc("/documents/{id}/content", h.documentContent).Methods(http.MethodGet)
	authed.HandleFunc("/documents/{id}", h.deleteDocument).Methods(http.MethodDelete)

	authed.HandleFunc("/trials", h.scheduleTrial).Methods(http.MethodPost)
	authed.HandleFunc("/trials", h.listTrials).Methods(http.MethodGet)
	authed.HandleFunc("/trials/{id}", h.getTrial).Methods(http.MethodGet)
	authed.HandleFunc("/trials/{id}", h.updateTrial).Methods(http.MethodPatch)
	authed.HandleFunc("/trials/{id}/complete", h.completeTrial).Methods(http.MethodPost)
	authed.HandleFunc("/trials/{id}/cancel", h.cancelTrial).Methods(http.MethodPost)

	authed.HandleFunc("/coaches", h.listCoaches).Methods(http.MethodGet)
	authed.HandleFunc("/coaches/{id}", h.getCoach).Methods(http.MethodGet)
	authed.HandleFunc("/teams", h.listTeams).Methods(http.MethodGet)
	authed.HandleFunc("/teams/{id}", h.getTeam).Methods(http.MethodGet)
	authed.HandleFunc("/teams/{id}/roster", h.teamRoster).Methods(http.MethodGet)

	stream := events.NewStreamHandler(application.Events, cors.CheckOrigin)
	authed.Handle("/events", middleware.RequireRole(user.RoleAdmin, user.RoleCoach)(stream)).Methods(http.MethodGet)

	admin := authed.PathPrefix("/admin").Subrouter()
	admin.Use(middleware.RequireRole(user.RoleAdmin))
	admin.HandleFunc("/users", h.listUsers).Methods(http.MethodGet)
	admin.HandleFunc("/users", h.inviteUser).Methods(http.MethodPost)
	admin.HandleFunc("/users/{id}", h.getUser).Methods(http.MethodGet)
	admin.HandleFunc("/users/{id}", h.updateUser).Methods(http.MethodPatch)
	admin.HandleFunc("/users/{id}/suspend", h.suspendUser).Methods(http.MethodPost)
	admin.HandleFunc("/users/{id}/activate", h.activateUser).Methods(http.MethodPost)

	admin.HandleFunc("/coaches", h.createCoach).Methods(http.MethodPost)
	admin.HandleFunc("/coaches/{id}", h.updateCoach).Methods(http.MethodPatch)
	admin.HandleFunc("/coaches/{id}/deactivate", h.deactivateCoach).Methods(http.MethodPost)
	admin.HandleFunc("/coaches/{id}/activate", h.activateCoach).Methods(http.MethodPost)

	admin.HandleFunc("/teams", h.createTeam).Methods(http.MethodPost)
	admin.HandleFunc("/teams/{id}", h.updateTeam).Methods(http.MethodPatch)
	admin.HandleFunc("/teams/{id}", h.deleteTeam).Methods(http.MethodDelete)
	admin.HandleFunc("/teams/{id}/roster", h.addRosterEntry).Methods(http.MethodPost)
	admin.HandleFunc("/teams/{id}/roster/{application_id}", h.removeRosterEntry).Methods(http.MethodDelete)

	admin.HandleFunc("/stats", h.stats).Methods(http.MethodGet)
	admin.HandleFunc("/audit", h.auditLog).Methods(http.MethodGet)
	admin.HandleFunc("/system", h.system).Methods(http.MethodGet)

	return cors.Handler(r)
}

func (h *handler) healthz(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handler) readyz(w http.ResponseWriter, r *http.Request) {
	if h.ready != nil {
		if err := h.ready(r.Context()); err != nil {
			h.log.WithContext(r.Context()).WithError(err).Warn("readiness check failed")
			httputil.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
