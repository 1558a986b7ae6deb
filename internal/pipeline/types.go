package pipeline

import (
	"context"

	"docuchat/features/document"
)

// Status values for a document's ingestion lifecycle. completed and error
// are absorbing: a finished document is only processed again through an
// explicit re-submission.
const (
	StatusPending    = "pending"
	StatusUploading  = "uploading"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusError      = "error"
)

// ErrorPercent is the sentinel progress value emitted on failure. Clients
// must treat it as "failed", not as literal progress regression.
const ErrorPercent = -1

// IndexEntry is one (id, vector, text) triple bound for the vector index.
// ChunkID follows the literal "{documentId}_{chunkIndex}" convention, which
// deletion-by-document relies on.
type IndexEntry struct {
	ChunkID    string
	DocumentID int64
	ChunkIndex int
	Content    string
	Vector     []float32
}

// ProgressEvent is the ephemeral live-progress record. It is never persisted
// on its own; the document row always carries the latest values.
type ProgressEvent struct {
	DocumentID int64  `json:"document_id"`
	Status     string `json:"status"`
	Message    string `json:"message"`
	Percentage int    `json:"percentage"`
}

// PageIterator is a finite, single-pass sequence of per-page text.
type PageIterator interface {
	Total() int
	Next(ctx context.Context) (text string, ok bool, err error)
}

type Extractor interface {
	Extract(ctx context.Context, pdf []byte) (PageIterator, error)
}

type Embedder interface {
	EmbedChunks(ctx context.Context, chunks []string, done func(i int)) ([][]float32, error)
}

type VectorIndex interface {
	UpsertChunks(ctx context.Context, entries []IndexEntry) error
	DeleteByDocument(ctx context.Context, documentID int64) error
}

type ObjectStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
}

// StatusStore persists per-document status. Updates are partial: only the
// fields set on the patch change.
type StatusStore interface {
	Update(ctx context.Context, id int64, patch document.Patch) error
}

// Notifier delivers progress events to live subscribers. Delivery is
// fire-and-forget and must never fail or block the pipeline.
type Notifier interface {
	Publish(ctx context.Context, ev ProgressEvent)
}
