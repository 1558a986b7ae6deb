package document

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"docuchat/internal/config"
	"docuchat/internal/logger"
)

type EventPublisher interface {
	Publish(topic string, body []byte) error
}

// VectorDeleter removes every index entry carrying the document's id prefix.
type VectorDeleter interface {
	DeleteByDocument(ctx context.Context, documentID int64) error
}

// ObjectDeleter removes the uploaded binary. Deleting a missing object is a
// success.
type ObjectDeleter interface {
	Delete(ctx context.Context, key string) error
}

type Service struct {
	repo    Repository
	pub     EventPublisher
	index   VectorDeleter
	objects ObjectDeleter
}

func NewService(repo Repository, pub EventPublisher, index VectorDeleter, objects ObjectDeleter) *Service {
	return &Service{repo: repo, pub: pub, index: index, objects: objects}
}

// Create registers an uploaded PDF and queues its ingestion. The caller gets
// the pending row back immediately; the pipeline runs on a worker.
func (s *Service) Create(ctx context.Context, filename, storageKey string, ownerID int64) (*Document, error) {
	doc := &Document{
		Filename:   filename,
		StorageKey: storageKey,
		OwnerID:    ownerID,
		Status:     "pending",
	}
	if err := s.repo.Create(ctx, doc); err != nil {
		return nil, err
	}

	if err := s.publishIngestTask(ctx, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// Reingest explicitly re-submits a document. Terminal states are absorbing,
// so this is the only way to retry: the row is reset to pending and a fresh
// task is queued.
func (s *Service) Reingest(ctx context.Context, id int64) error {
	doc, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}

	zero := 0
	patch := Patch{
		Status:          String("pending"),
		ProgressPercent: &zero,
		CurrentStep:     String(""),
		TotalPages:      &zero,
		ProcessedPages:  &zero,
		TotalChunks:     &zero,
		ProcessedChunks: &zero,
		ErrorMessage:    String(""),
	}
	if err := s.repo.Update(ctx, id, patch); err != nil {
		return err
	}

	return s.publishIngestTask(ctx, doc)
}

func (s *Service) publishIngestTask(ctx context.Context, doc *Document) error {
	payload, _ := json.Marshal(map[string]interface{}{
		"document_id":    doc.ID,
		"storage_key":    doc.StorageKey,
		"correlation_id": logger.GetCorrelationID(ctx),
	})
	if err := s.pub.Publish(config.TopicDocumentIngest, payload); err != nil {
		slog.ErrorContext(ctx, "failed to publish ingest task", "document_id", doc.ID, "error", err)
		return fmt.Errorf("queue ingestion: %w", err)
	}
	slog.InfoContext(ctx, "published ingest task", "document_id", doc.ID, "storage_key", doc.StorageKey)
	return nil
}

func (s *Service) Get(ctx context.Context, id int64) (*Document, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]Document, error) {
	return s.repo.List(ctx)
}

// Delete removes the document's index entries, its stored binary and its
// row, whatever state the document is in. An index delete failure is logged
// and does not stop the remaining cleanup; a missing storage object is fine.
func (s *Service) Delete(ctx context.Context, id int64) error {
	doc, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}

	if err := s.index.DeleteByDocument(ctx, id); err != nil {
		slog.WarnContext(ctx, "failed to delete index entries, continuing", "document_id", id, "error", err)
	}

	if err := s.objects.Delete(ctx, doc.StorageKey); err != nil {
		return fmt.Errorf("delete stored object: %w", err)
	}

	return s.repo.Delete(ctx, id)
}
