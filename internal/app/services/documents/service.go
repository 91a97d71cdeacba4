// Package documents relays application attachments to blob storage.
package documents

import (
	"context"
	"errors"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/clubhouse-sports/clubhouse/internal/app/blob"
	"github.com/clubhouse-sports/clubhouse/internal/app/core/service"
	"github.com/clubhouse-sports/clubhouse/internal/app/domain/application"
	"github.com/clubhouse-sports/clubhouse/internal/app/domain/document"
	"github.com/clubhouse-sports/clubhouse/internal/app/domain/user"
	"github.com/clubhouse-sports/clubhouse/internal/app/metrics"
	"github.com/clubhouse-sports/clubhouse/internal/app/services/applications"
	"github.com/clubhouse-sports/clubhouse/internal/app/storage"
	svcerrors "github.com/clubhouse-sports/clubhouse/internal/errors"
	"github.com/clubhouse-sports/clubhouse/pkg/logger"
	"github.com/google/uuid"
)

// DefaultMaxBytes caps uploads when no limit is configured.
const DefaultMaxBytes int64 = 5 << 20

// UploadInput is one received file.
type UploadInput struct {
	Kind     document.Kind
	FileName string
	Data     []byte
}

// Service manages application documents.
type Service struct {
	docs     storage.DocumentStore
	apps     *applications.Service
	blobs    blob.Store
	maxBytes int64
	log      *logger.Logger
}

// New constructs the documents service.
func New(docs storage.DocumentStore, apps *applications.Service, blobs blob.Store, maxBytes int64, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("documents")
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Service{docs: docs, apps: apps, blobs: blobs, maxBytes: maxBytes, log: log}
}

// Descriptor advertises the service.
func (s *Service) Descriptor() service.Descriptor {
	return service.Descriptor{Name: "documents", Domain: "document", Capabilities: []string{"upload", "stream"}}
}

// MaxBytes is the largest accepted file.
func (s *Service) MaxBytes() int64 { return s.maxBytes }

// canModify reports whether actor may add or remove documents of app.
func canModify(actor user.Principal, app application.Application) bool {
	if actor.IsAdmin() {
		return true
	}
	if !applications.CanEdit(actor, app) {
		return false
	}
	return app.Status == application.StatusDraft || app.Status == application.StatusHold
}

// Upload stores a file for an application. The content type is sniffed
// from the bytes, never taken from the client.
func (s *Service) Upload(ctx context.Context, actor user.Principal, applicationID string, in UploadInput) (document.Document, error) {
	app, err := s.apps.Get(ctx, actor, applicationID)
	if err != nil {
		return document.Document{}, err
	}
	if !canModify(actor, app) {
		return document.Document{}, svcerrors.Forbidden("documents can be added by the applicant while DRAFT or HOLD, or by an admin")
	}
	if !in.Kind.Valid() {
		return document.Document{}, svcerrors.Validation("kind", "must be PHOTO, BIRTH_CERTIFICATE, ID_PROOF or MEDICAL")
	}
	size := int64(len(in.Data))
	if size == 0 {
		return document.Document{}, svcerrors.Validation("file", "is empty")
	}
	if size > s.maxBytes {
		return document.Document{}, svcerrors.PayloadTooLarge(s.maxBytes)
	}
	contentType := sniff(in.Data)
	if !document.AllowedContentTypes[contentType] {
		return document.Document{}, svcerrors.UnsupportedMedia(contentType)
	}

	id := uuid.NewString()
	key := blob.Key(app.ID, id)
	if err := s.blobs.Put(ctx, key, contentType, in.Data); err != nil {
		return document.Document{}, svcerrors.Internal("store document", err)
	}
	doc, err := s.docs.CreateDocument(ctx, document.Document{
		ID:            id,
		ApplicationID: app.ID,
		Kind:          in.Kind,
		FileName:      cleanFileName(in.FileName),
		ContentType:   contentType,
		Size:          size,
		StorageKey:    key,
		UploadedBy:    actor.UserID,
	})
	if err != nil {
		if delErr := s.blobs.Delete(ctx, key); delErr != nil && !errors.Is(delErr, blob.ErrNotFound) {
			s.log.WithError(delErr).WithField("key", key).Warn("remove orphaned blob")
		}
		return document.Document{}, service.StoreError("document", id, err)
	}
	metrics.RecordUpload(string(in.Kind), size)
	s.log.WithFields(map[string]interface{}{
		"document_id":    doc.ID,
		"application_id": app.ID,
		"kind":           doc.Kind,
		"size":           size,
	}).Info("document uploaded")
	return doc, nil
}

// List returns the documents of an application visible to actor.
func (s *Service) List(ctx context.Context, actor user.Principal, applicationID string) ([]document.Document, error) {
	if _, err := s.apps.Get(ctx, actor, applicationID); err != nil {
		return nil, err
	}
	docs, err := s.docs.ListDocuments(ctx, applicationID)
	if err != nil {
		return nil, service.StoreError("document", "", err)
	}
	if docs == nil {
		docs = []document.Document{}
	}
	return docs, nil
}

// Open returns a document and a reader over its bytes. Callers close the
// reader.
func (s *Service) Open(ctx context.Context, actor user.Principal, id string) (document.Document, io.ReadCloser, error) {
	doc, _, err := s.load(ctx, actor, id)
	if err != nil {
		return document.Document{}, nil, err
	}
	rc, err := s.blobs.Open(ctx, doc.StorageKey)
	if errors.Is(err, blob.ErrNotFound) {
		return document.Document{}, nil, svcerrors.NotFound("document content", id)
	}
	if err != nil {
		return document.Document{}, nil, svcerrors.Internal("open document", err)
	}
	return doc, rc, nil
}

// Delete removes a document and its bytes.
func (s *Service) Delete(ctx context.Context, actor user.Principal, id string) error {
	doc, app, err := s.load(ctx, actor, id)
	if err != nil {
		return err
	}
	if !canModify(actor, app) {
		return svcerrors.Forbidden("documents can be removed by the applicant while DRAFT or HOLD, or by an admin")
	}
	if err := s.blobs.Delete(ctx, doc.StorageKey); err != nil && !errors.Is(err, blob.ErrNotFound) {
		return svcerrors.Internal("delete document", err)
	}
	if err := s.docs.DeleteDocument(ctx, id); err != nil {
		return service.StoreError("document", id, err)
	}
	s.log.WithField("document_id", id).WithField("actor_id", actor.UserID).Info("document deleted")
	return nil
}

func (s *Service) load(ctx context.Context, actor user.Principal, id string) (document.Document, application.Application, error) {
	doc, err := s.docs.GetDocument(ctx, id)
	if err != nil {
		return document.Document{}, application.Application{}, service.StoreError("document", id, err)
	}
	app, err := s.apps.Get(ctx, actor, doc.ApplicationID)
	if svcerrors.HasCode(err, svcerrors.CodeNotFound) {
		return document.Document{}, application.Application{}, svcerrors.NotFound("document", id)
	}
	if err != nil {
		return document.Document{}, application.Application{}, err
	}
	return doc, app, nil
}

func sniff(data []byte) string {
	ct := http.DetectContentType(data)
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	return strings.TrimSpace(ct)
}

func cleanFileName(name string) string {
	name = path.Base(strings.ReplaceAll(strings.TrimSpace(name), `\`, "/"))
	if name == "." || name == "/" || name == "" {
		return "upload"
	}
	return name
}
