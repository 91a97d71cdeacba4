package postgres

import (
	"context"
	"time"

	"github.com/clubhouse-sports/clubhouse/internal/app/domain/document"
	"github.com/google/uuid"
)

const documentColumns = `id, application_id, kind, file_name, content_type, size, storage_key, uploaded_by, created_at`

// --- DocumentStore ----------------------------------------------------------

func (s *Store) CreateDocument(ctx context.Context, doc document.Document) (document.Document, error) {
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	doc.CreatedAt = time.Now().UTC()

	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO documents (`+documentColumns+`)
		VALUES (:id, :application_id, :kind, :file_name, :content_type, :size, :storage_key,
			:uploaded_by, :created_at)
	`, doc)
	if err != nil {
		return document.Document{}, mapErr(err)
	}
	return doc, nil
}

func (s *Store) GetDocument(ctx context.Context, id string) (document.Document, error) {
	var doc document.Document
	err := s.db.GetContext(ctx, &doc, `SELECT `+documentColumns+` FROM documents WHERE id = $1`, id)
	return doc, mapErr(err)
}

func (s *Store) ListDocuments(ctx context.Context, applicationID string) ([]document.Document, error) {
	docs := []document.Document{}
	err := s.db.SelectContext(ctx, &docs, `
		SELECT `+documentColumns+` FROM documents
		WHERE application_id = $1
		ORDER BY created_at, id
	`, applicationID)
	return docs, mapErr(err)
}

func (s *Store) DeleteDocument(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE id = $1`, id)
	return requireRow(res, err)
}
