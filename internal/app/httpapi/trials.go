package httpapi

import (
	"net/http"

	"github.com/clubhouse-sports/clubhouse/internal/app/domain/trial"
	"github.com/clubhouse-sports/clubhouse/internal/app/services/trials"
	"github.com/clubhouse-sports/clubhouse/internal/httputil"
)

func (h *handler) scheduleTrial(w http.ResponseWriter, r *http.Request) {
	p, ok := caller(w, r)
	if !ok {
		return
	}
	var payload trials.ScheduleInput
	if !httputil.DecodeJSON(w, r, &payload) {
		return
	}
	t, err := h.app.Trials.Schedule(r.Context(), p, payload)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, t)
}

func (h *handler) listTrials(w http.ResponseWriter, r *http.Request) {
	p, ok := caller(w, r)
	if !ok {
		return
	}
	params, ok := listParams(w, r)
	if !ok {
		return
	}
	page, err := h.app.Trials.List(r.Context(), p, trials.ListInput{
		Status:        trial.Status(query(r, "status")),
		ApplicationID: query(r, "application_id"),
		CoachID:       query(r, "coach_id"),
		ListParams:    params,
	})
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, page)
}

func (h *handler) getTrial(w http.ResponseWriter, r *http.Request) {
	p, ok := caller(w, r)
	if !ok {
		return
	}
	t, err := h.app.Trials.Get(r.Context(), p, pathVar(r, "id"))
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, t)
}

func (h *handler) updateTrial(w http.ResponseWriter, r *http.Request) {
	p, ok := caller(w, r)
	if !ok {
		return
	}
	var payload trials.UpdateInput
	if !httputil.DecodeJSON(w, r, &payload) {
		return
	}
	t, err := h.app.Trials.Update(r.Context(), p, pathVar(r, "id"), payload)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, t)
}

func (h *handler) completeTrial(w http.ResponseWriter, r *http.Request) {
	p, ok := caller(w, r)
	if !ok {
		return
	}
	var payload trials.CompleteInput
	if !httputil.DecodeJSON(w, r, &payload) {
		return
	}
	t, err := h.app.Trials.Complete(r.Context(), p, pathVar(r, "id"), payload)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, t)
}

func (h *handler) cancelTrial(w http.ResponseWriter, r *http.Request) {
	p, ok := caller(w, r)
	if !ok {
		return
	}
	var payload struct {
		Reason string `json:"reason"`
	}
	if !httputil.DecodeJSON(w, r, &payload) {
		return
	}
	t, err := h.app.Trials.Cancel(r.Context(), p, pathVar(r, "id"), payload.Reason)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, t)
}
