package httpapi

import (
	"net/http"
	"strconv"

	"github.com/clubhouse-sports/clubhouse/internal/app/services/coaches"
	"github.com/clubhouse-sports/clubhouse/internal/app/services/teams"
	"github.com/clubhouse-sports/clubhouse/internal/app/storage"
	svcerrors "github.com/clubhouse-sports/clubhouse/internal/errors"
	"github.com/clubhouse-sports/clubhouse/internal/httputil"
)

func (h *handler) listCoaches(w http.ResponseWriter, r *http.Request) {
	params, ok := listParams(w, r)
	if !ok {
		return
	}
	filter := storage.CoachFilter{Query: query(r, "q"), ListParams: params}
	if raw := query(r, "active"); raw != "" {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			httputil.WriteError(w, r, svcerrors.Validation("active", "must be true or false"))
			return
		}
		filter.Active = &active
	}
	page, err := h.app.Coaches.List(r.Context(), filter)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, page)
}

func (h *handler) getCoach(w http.ResponseWriter, r *http.Request) {
	c, err := h.app.Coaches.Get(r.Context(), pathVar(r, "id"))
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, c)
}

func (h *handler) createCoach(w http.ResponseWriter, r *http.Request) {
	var payload coaches.CreateInput
	if !httputil.DecodeJSON(w, r, &payload) {
		return
	}
	c, err := h.app.Coaches.Create(r.Context(), payload)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, c)
}

func (h *handler) updateCoach(w http.ResponseWriter, r *http.Request) {
	var payload coaches.UpdateInput
	if !httputil.DecodeJSON(w, r, &payload) {
		return
	}
	c, err := h.app.Coaches.Update(r.Context(), pathVar(r, "id"), payload)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, c)
}

func (h *handler) deactivateCoach(w http.ResponseWriter, r *http.Request) {
	c, err := h.app.Coaches.Deactivate(r.Context(), pathVar(r, "id"))
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, c)
}

func (h *handler) activateCoach(w http.ResponseWriter, r *http.Request) {
	c, err := h.app.Coaches.Activate(r.Context(), pathVar(r, "id"))
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, c)
}

func (h *handler) listTeams(w http.ResponseWriter, r *http.Request) {
	params, ok := listParams(w, r)
	if !ok {
		return
	}
	page, err := h.app.Teams.List(r.Context(), storage.TeamFilter{
		HeadCoachID: query(r, "head_coach_id"),
		Query:       query(r, "q"),
		ListParams:  params,
	})
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, page)
}

func (h *handler) getTeam(w http.ResponseWriter, r *http.Request) {
	t, err := h.app.Teams.Get(r.Context(), pathVar(r, "id"))
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, t)
}

func (h *handler) teamRoster(w http.ResponseWriter, r *http.Request) {
	roster, err := h.app.Teams.Roster(r.Context(), pathVar(r, "id"))
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"items": roster})
}

func (h *handler) createTeam(w http.ResponseWriter, r *http.Request) {
	var payload teams.Input
	if !httputil.DecodeJSON(w, r, &payload) {
		return
	}
	t, err := h.app.Teams.Create(r.Context(), payload)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, t)
}

func (h *handler) updateTeam(w http.ResponseWriter, r *http.Request) {
	var payload teams.Input
	if !httputil.DecodeJSON(w, r, &payload) {
		return
	}
	t, err := h.app.Teams.Update(r.Context(), pathVar(r, "id"), payload)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, t)
}

func (h *handler) deleteTeam(w http.ResponseWriter, r *http.Request) {
	if err := h.app.Teams.Delete(r.Context(), pathVar(r, "id")); err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	noContent(w)
}

func (h *handler) addRosterEntry(w http.ResponseWriter, r *http.Request) {
	var payload teams.RosterInput
	if !httputil.DecodeJSON(w, r, &payload) {
		return
	}
	entry, err := h.app.Teams.AddToRoster(r.Context(), pathVar(r, "id"), payload)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, entry)
}

func (h *handler) removeRosterEntry(w http.ResponseWriter, r *http.Request) {
	if err := h.app.Teams.RemoveFromRoster(r.Context(), pathVar(r, "id"), pathVar(r, "application_id")); err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	noContent(w)
}
