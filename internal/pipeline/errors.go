package pipeline

import "errors"

var (
	// ErrFetch marks a failure to pull the uploaded bytes out of object
	// storage. Fatal for the run; never retried automatically.
	ErrFetch = errors.New("failed to fetch document from storage")

	// ErrExtraction marks an unparseable or unreadable PDF. Distinct from
	// per-image OCR failures, which are only logged.
	ErrExtraction = errors.New("failed to extract text from document")

	// ErrEmptyDocument marks a document with no extractable text anywhere.
	// Such a document never completes: an empty index is not a success.
	ErrEmptyDocument = errors.New("no extractable text in document")

	// ErrEmbeddingProvider marks a transport, auth or quota failure from the
	// embedding provider. Fatal before any index write.
	ErrEmbeddingProvider = errors.New("embedding provider failed")

	// ErrIndexWrite marks a vector index write failure. Partial writes are
	// treated as uncommitted; a retry re-submits the whole batch.
	ErrIndexWrite = errors.New("vector index write failed")

	// ErrIndexDelete marks a vector index delete failure. Non-fatal during
	// document deletion: remaining resources are still cleaned up.
	ErrIndexDelete = errors.New("vector index delete failed")

	// ErrAlreadyRunning is returned when a second ingestion is started for a
	// document that already has an active run.
	ErrAlreadyRunning = errors.New("ingestion already running for document")
)
