package httpapi

import (
	"net/http"

	"github.com/clubhouse-sports/clubhouse/internal/app/domain/user"
	"github.com/clubhouse-sports/clubhouse/internal/app/services/auth"
	"github.com/clubhouse-sports/clubhouse/internal/app/services/users"
	"github.com/clubhouse-sports/clubhouse/internal/app/storage"
	"github.com/clubhouse-sports/clubhouse/internal/httputil"
)

const defaultAuditLimit = 50

func (h *handler) listUsers(w http.ResponseWriter, r *http.Request) {
	params, ok := listParams(w, r)
	if !ok {
		return
	}
	page, err := h.app.Users.List(r.Context(), storage.UserFilter{
		Role:       user.Role(query(r, "role")),
		Status:     user.Status(query(r, "status")),
		Query:      query(r, "q"),
		ListParams: params,
	})
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, page)
}

func (h *handler) getUser(w http.ResponseWriter, r *http.Request) {
	u, err := h.app.Users.Get(r.Context(), pathVar(r, "id"))
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, u)
}

func (h *handler) inviteUser(w http.ResponseWriter, r *http.Request) {
	p, ok := caller(w, r)
	if !ok {
		return
	}
	var payload auth.InviteInput
	if !httputil.DecodeJSON(w, r, &payload) {
		return
	}
	u, err := h.app.Users.Invite(r.Context(), p, payload)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, u)
}

func (h *handler) updateUser(w http.ResponseWriter, r *http.Request) {
	p, ok := caller(w, r)
	if !ok {
		return
	}
	var payload users.UpdateInput
	if !httputil.DecodeJSON(w, r, &payload) {
		return
	}
	u, err := h.app.Users.Update(r.Context(), p, pathVar(r, "id"), payload)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, u)
}

func (h *handler) suspendUser(w http.ResponseWriter, r *http.Request) {
	p, ok := caller(w, r)
	if !ok {
		return
	}
	u, err := h.app.Users.Suspend(r.Context(), p, pathVar(r, "id"))
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, u)
}

func (h *handler) activateUser(w http.ResponseWriter, r *http.Request) {
	p, ok := caller(w, r)
	if !ok {
		return
	}
	u, err := h.app.Users.Activate(r.Context(), p, pathVar(r, "id"))
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, u)
}

func (h *handler) stats(w http.ResponseWriter, r *http.Request) {
	d, err := h.app.Stats.Dashboard(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, d)
}

func (h *handler) auditLog(w http.ResponseWriter, r *http.Request) {
	limit, err := httputil.QueryInt(r, "limit", defaultAuditLimit)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"items": h.audit.Recent(limit)})
}

func (h *handler) system(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, h.app.Stats.System(r.Context()))
}
