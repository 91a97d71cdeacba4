package httpapi

import (
	"net/http"

	"github.com/clubhouse-sports/clubhouse/internal/app/services/auth"
	"github.com/clubhouse-sports/clubhouse/internal/httputil"
)

func (h *handler) signup(w http.ResponseWriter, r *http.Request) {
	var payload auth.SignupInput
	if !httputil.DecodeJSON(w, r, &payload) {
		return
	}
	u, created, err := h.app.Auth.Signup(r.Context(), payload)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	httputil.WriteJSON(w, status, u)
}

func (h *handler) resend(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Phone string `json:"phone"`
	}
	if !httputil.DecodeJSON(w, r, &payload) {
		return
	}
	if err := h.app.Auth.ResendCode(r.Context(), payload.Phone); err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	accepted(w)
}

func (h *handler) verify(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Phone string `json:"phone"`
		Code  string `json:"code"`
	}
	if !httputil.DecodeJSON(w, r, &payload) {
		return
	}
	token, err := h.app.Auth.Verify(r.Context(), payload.Phone, payload.Code)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, token)
}

func (h *handler) setupMPIN(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		SetupToken string `json:"setup_token"`
		MPIN       string `json:"mpin"`
	}
	if !httputil.DecodeJSON(w, r, &payload) {
		return
	}
	sess, err := h.app.Auth.SetupMPIN(r.Context(), payload.SetupToken, payload.MPIN)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, sess)
}

func (h *handler) login(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Phone string `json:"phone"`
		MPIN  string `json:"mpin"`
	}
	if !httputil.DecodeJSON(w, r, &payload) {
		return
	}
	sess, err := h.app.Auth.Login(r.Context(), payload.Phone, payload.MPIN)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, sess)
}

func (h *handler) forgotMPIN(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Phone string `json:"phone"`
	}
	if !httputil.DecodeJSON(w, r, &payload) {
		return
	}
	if err := h.app.Auth.ForgotMPIN(r.Context(), payload.Phone); err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	accepted(w)
}

func (h *handler) resetMPIN(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Phone   string `json:"phone"`
		Code    string `json:"code"`
		NewMPIN string `json:"new_mpin"`
	}
	if !httputil.DecodeJSON(w, r, &payload) {
		return
	}
	if err := h.app.Auth.ResetMPIN(r.Context(), payload.Phone, payload.Code, payload.NewMPIN); err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	noContent(w)
}

func (h *handler) logout(w http.ResponseWriter, r *http.Request) {
	p, ok := caller(w, r)
	if !ok {
		return
	}
	if err := h.app.Auth.Logout(r.Context(), p); err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	noContent(w)
}

func (h *handler) me(w http.ResponseWriter, r *http.Request) {
	p, ok := caller(w, r)
	if !ok {
		return
	}
	u, err := h.app.Auth.Me(r.Context(), p)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, u)
}

func (h *handler) changeMPIN(w http.ResponseWriter, r *http.Request) {
	p, ok := caller(w, r)
	if !ok {
		return
	}
	var payload struct {
		CurrentMPIN string `json:"current_mpin"`
		NewMPIN     string `json:"new_mpin"`
	}
	if !httputil.DecodeJSON(w, r, &payload) {
		return
	}
	if err := h.app.Auth.ChangeMPIN(r.Context(), p, payload.CurrentMPIN, payload.NewMPIN); err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	noContent(w)
}
