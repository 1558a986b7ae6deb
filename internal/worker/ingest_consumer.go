package worker

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/nsqio/go-nsq"

	"docuchat/internal/logger"
	"docuchat/internal/pipeline"
)

// Starter accepts an ingestion job for a document.
type Starter interface {
	Start(ctx context.Context, documentID int64, storageKey string) error
}

// IngestConsumer handles document.ingest messages. Duplicate triggers for a
// document that already has an active run are dropped, not requeued; NSQ
// redelivery would only reproduce the same rejection.
type IngestConsumer struct {
	runner Starter
}

func NewIngestConsumer(runner Starter) *IngestConsumer {
	return &IngestConsumer{runner: runner}
}

func (h *IngestConsumer) HandleMessage(m *nsq.Message) error {
	if len(m.Body) == 0 {
		return nil
	}

	var payload IngestTaskPayload
	if err := json.Unmarshal(m.Body, &payload); err != nil {
		// Poison pill: invalid JSON, don't retry
		slog.Error("poison pill: invalid json", "error", err)
		return nil
	}
	if payload.DocumentID == 0 || payload.StorageKey == "" {
		slog.Error("poison pill: incomplete ingest task", "document_id", payload.DocumentID, "storage_key", payload.StorageKey)
		return nil
	}

	ctx := context.Background()
	if payload.CorrelationID != "" {
		ctx = logger.WithCorrelationID(ctx, payload.CorrelationID)
	}

	err := h.runner.Start(ctx, payload.DocumentID, payload.StorageKey)
	if errors.Is(err, pipeline.ErrAlreadyRunning) {
		slog.InfoContext(ctx, "ingestion already in flight, dropping duplicate trigger", "document_id", payload.DocumentID)
		return nil
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to start ingestion", "error", err, "document_id", payload.DocumentID)
		return err // Retry
	}

	slog.InfoContext(ctx, "ingestion accepted", "document_id", payload.DocumentID)
	return nil
}
