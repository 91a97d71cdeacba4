package memory

import (
	"context"
	"time"

	"github.com/clubhouse-sports/clubhouse/internal/app/domain/document"
	"github.com/clubhouse-sports/clubhouse/internal/app/storage"
	"github.com/google/uuid"
)

// DocumentStore implementation ------------------------------------------------

func (s *Store) CreateDocument(_ context.Context, doc document.Document) (document.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if doc.ID == "" {
		doc.ID = uuid.NewString()
	} else if _, exists := s.documents[doc.ID]; exists {
		return document.Document{}, storage.ErrConflict
	}
	doc.CreatedAt = time.Now().UTC()
	s.documents[doc.ID] = doc
	s.docOrder = append(s.docOrder, doc.ID)
	return doc, nil
}

func (s *Store) GetDocument(_ context.Context, id string) (document.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.documents[id]
	if !ok {
		return document.Document{}, storage.ErrNotFound
	}
	return doc, nil
}

func (s *Store) ListDocuments(_ context.Context, applicationID string) ([]document.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []document.Document{}
	for _, id := range s.docOrder {
		if doc := s.documents[id]; doc.ApplicationID == applicationID {
			out = append(out, doc)
		}
	}
	return out, nil
}

func (s *Store) DeleteDocument(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.documents[id]; !ok {
		return storage.ErrNotFound
	}
	delete(s.documents, id)
	s.docOrder = removeID(s.docOrder, id)
	return nil
}
