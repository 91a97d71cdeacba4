package httpapi

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/clubhouse-sports/clubhouse/internal/app/domain/application"
	"github.com/clubhouse-sports/clubhouse/internal/app/domain/document"
	"github.com/clubhouse-sports/clubhouse/internal/app/services/applications"
	"github.com/clubhouse-sports/clubhouse/internal/app/services/documents"
	svcerrors "github.com/clubhouse-sports/clubhouse/internal/errors"
	"github.com/clubhouse-sports/clubhouse/internal/httputil"
)

// multipartOverhead allows for form boundaries and the kind field on top of
// the file itself.
const multipartOverhead = 64 << 10

func (h *handler) createApplication(w http.ResponseWriter, r *http.Request) {
	p, ok := caller(w, r)
	if !ok {
		return
	}
	var payload applications.Fields
	if !httputil.DecodeJSON(w, r, &payload) {
		return
	}
	created, err := h.app.Applications.Create(r.Context(), p, payload)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, created)
}

func (h *handler) listApplications(w http.ResponseWriter, r *http.Request) {
	p, ok := caller(w, r)
	if !ok {
		return
	}
	params, ok := listParams(w, r)
	if !ok {
		return
	}
	page, err := h.app.Applications.List(r.Context(), p, applications.ListInput{
		Status:     application.Status(query(r, "status")),
		Query:      query(r, "q"),
		TeamID:     query(r, "team_id"),
		ListParams: params,
	})
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, page)
}

func (h *handler) getApplication(w http.ResponseWriter, r *http.Request) {
	p, ok := caller(w, r)
	if !ok {
		return
	}
	app, err := h.app.Applications.Get(r.Context(), p, pathVar(r, "id"))
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, app)
}

func (h *handler) updateApplication(w http.ResponseWriter, r *http.Request) {
	p, ok := caller(w, r)
	if !ok {
		return
	}
	var payload applications.Fields
	if !httputil.DecodeJSON(w, r, &payload) {
		return
	}
	app, err := h.app.Applications.Update(r.Context(), p, pathVar(r, "id"), payload)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, app)
}

func (h *handler) deleteApplication(w http.ResponseWriter, r *http.Request) {
	p, ok := caller(w, r)
	if !ok {
		return
	}
	if err := h.app.Applications.Delete(r.Context(), p, pathVar(r, "id")); err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	noContent(w)
}

func (h *handler) submitApplication(w http.ResponseWriter, r *http.Request) {
	p, ok := caller(w, r)
	if !ok {
		return
	}
	app, err := h.app.Applications.Submit(r.Context(), p, pathVar(r, "id"))
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, app)
}

func (h *handler) reviewApplication(w http.ResponseWriter, r *http.Request) {
	p, ok := caller(w, r)
	if !ok {
		return
	}
	app, err := h.app.Applications.StartReview(r.Context(), p, pathVar(r, "id"))
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, app)
}

func (h *handler) decideApplication(w http.ResponseWriter, r *http.Request) {
	p, ok := caller(w, r)
	if !ok {
		return
	}
	var payload applications.Decision
	if !httputil.DecodeJSON(w, r, &payload) {
		return
	}
	app, err := h.app.Applications.Decide(r.Context(), p, pathVar(r, "id"), payload)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, app)
}

func (h *handler) applicationHistory(w http.ResponseWriter, r *http.Request) {
	p, ok := caller(w, r)
	if !ok {
		return
	}
	history, err := h.app.Applications.History(r.Context(), p, pathVar(r, "id"))
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"items": history})
}

func (h *handler) uploadDocument(w http.ResponseWriter, r *http.Request) {
	p, ok := caller(w, r)
	if !ok {
		return
	}
	max := h.app.Documents.MaxBytes()
	r.Body = http.MaxBytesReader(w, r.Body, max+multipartOverhead)
	if err := r.ParseMultipartForm(1 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			httputil.WriteError(w, r, svcerrors.PayloadTooLarge(max))
			return
		}
		httputil.BadRequest(w, r, "expected multipart form with a file field")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		httputil.WriteError(w, r, svcerrors.Validation("file", "is required"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, max+1))
	if err != nil {
		httputil.BadRequest(w, r, "could not read uploaded file")
		return
	}

	doc, err := h.app.Documents.Upload(r.Context(), p, pathVar(r, "id"), documents.UploadInput{
		Kind:     document.Kind(r.FormValue("kind")),
		FileName: header.Filename,
		Data:     data,
	})
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, doc)
}

func (h *handler) listDocuments(w http.ResponseWriter, r *http.Request) {
	p, ok := caller(w, r)
	if !ok {
		return
	}
	docs, err := h.app.Documents.List(r.Context(), p, pathVar(r, "id"))
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"items": docs})
}

func (h *handler) documentContent(w http.ResponseWriter, r *http.Request) {
	p, ok := caller(w, r)
	if !ok {
		return
	}
	doc, body, err := h.app.Documents.Open(r.Context(), p, pathVar(r, "id"))
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", doc.ContentType)
	w.Header().Set("Content-Length", strconv.FormatInt(doc.Size, 10))
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": doc.FileName}))
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, body); err != nil {
		h.log.WithContext(r.Context()).WithError(err).WithField("document_id", doc.ID).Warn("document stream interrupted")
	}
}

func (h *handler) deleteDocument(w http.ResponseWriter, r *http.Request) {
	p, ok := caller(w, r)
	if !ok {
		return
	}
	if err := h.app.Documents.Delete(r.Context(), p, pathVar(r, "id")); err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	noContent(w)
}
