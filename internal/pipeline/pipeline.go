package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"docuchat/features/document"
	"docuchat/internal/text"
)

// Pipeline runs the full ingestion for one document: fetch the uploaded
// bytes, extract per-page text, chunk, embed, and write the vectors to the
// index. Each run drives the document row through the status lifecycle and
// mirrors every persisted update as a live progress event.
type Pipeline struct {
	store     ObjectStore
	extractor Extractor
	embedder  Embedder
	index     VectorIndex
	status    StatusStore
	notifier  Notifier
	chunkSize int
}

func New(store ObjectStore, extractor Extractor, embedder Embedder, index VectorIndex, status StatusStore, notifier Notifier, chunkSizeWords int) *Pipeline {
	if chunkSizeWords < 1 {
		chunkSizeWords = 1000
	}
	return &Pipeline{
		store:     store,
		extractor: extractor,
		embedder:  embedder,
		index:     index,
		status:    status,
		notifier:  notifier,
		chunkSize: chunkSizeWords,
	}
}

// Run executes the ingestion for documentID. On any failure the document row
// is moved to the error status with a human-readable message, an error event
// with the -1 sentinel percentage is emitted, and the wrapped cause is
// returned to the caller.
func (p *Pipeline) Run(ctx context.Context, documentID int64, storageKey string) error {
	slog.InfoContext(ctx, "starting document ingestion", "document_id", documentID, "storage_key", storageKey)

	fetchStart, fetchEnd := Band(StageFetch)
	p.progress(ctx, documentID, StatusUploading, "Fetching document from storage", fetchStart, document.Patch{})

	data, err := p.store.Get(ctx, storageKey)
	if err != nil {
		return p.fail(ctx, documentID, fmt.Errorf("%w: %v", ErrFetch, err))
	}

	pages, err := p.extractor.Extract(ctx, data)
	if err != nil {
		return p.fail(ctx, documentID, fmt.Errorf("%w: %v", ErrExtraction, err))
	}

	totalPages := pages.Total()
	p.progress(ctx, documentID, StatusProcessing, "Extracting text", fetchEnd, document.Patch{
		TotalPages:     document.Int(totalPages),
		ProcessedPages: document.Int(0),
	})

	pageTexts, err := p.extractPages(ctx, documentID, pages, totalPages)
	if err != nil {
		return p.fail(ctx, documentID, err)
	}

	chunks := text.ChunkWords(pageTexts, p.chunkSize)
	if len(chunks) == 0 {
		return p.fail(ctx, documentID, ErrEmptyDocument)
	}

	_, embedEnd := Band(StageEmbed)
	p.progress(ctx, documentID, StatusProcessing,
		fmt.Sprintf("Embedding %d chunks", len(chunks)), Interpolate(StageEmbed, 0, len(chunks)),
		document.Patch{
			TotalChunks:     document.Int(len(chunks)),
			ProcessedChunks: document.Int(0),
		})

	vectors, err := p.embedChunks(ctx, documentID, chunks)
	if err != nil {
		return p.fail(ctx, documentID, fmt.Errorf("%w: %v", ErrEmbeddingProvider, err))
	}
	p.progress(ctx, documentID, StatusProcessing, "Embedding complete", embedEnd, document.Patch{
		ProcessedChunks: document.Int(len(chunks)),
	})

	entries := make([]IndexEntry, len(chunks))
	for i, chunk := range chunks {
		entries[i] = IndexEntry{
			ChunkID:    fmt.Sprintf("%d_%d", documentID, i),
			DocumentID: documentID,
			ChunkIndex: i,
			Content:    chunk,
			Vector:     vectors[i],
		}
	}

	// Stale entries from a previous run of the same document are removed
	// first, so a re-ingestion with fewer chunks leaves no orphans behind.
	if err := p.index.DeleteByDocument(ctx, documentID); err != nil {
		return p.fail(ctx, documentID, fmt.Errorf("%w: %v", ErrIndexWrite, err))
	}

	_, indexEnd := Band(StageIndex)
	p.progress(ctx, documentID, StatusProcessing, "Storing embeddings in vector index", Interpolate(StageIndex, 1, 2), document.Patch{})

	if err := p.index.UpsertChunks(ctx, entries); err != nil {
		return p.fail(ctx, documentID, fmt.Errorf("%w: %v", ErrIndexWrite, err))
	}
	p.progress(ctx, documentID, StatusProcessing, "Index write complete", indexEnd, document.Patch{})

	p.progress(ctx, documentID, StatusCompleted, "Processing complete", 100, document.Patch{
		ErrorMessage: document.String(""),
	})

	slog.InfoContext(ctx, "document ingestion finished",
		"document_id", documentID, "pages", totalPages, "chunks", len(chunks))
	return nil
}

func (p *Pipeline) extractPages(ctx context.Context, documentID int64, pages PageIterator, total int) ([]string, error) {
	texts := make([]string, 0, total)
	stride := emitStride(total)
	for {
		pageText, ok, err := pages.Next(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrExtraction, err)
		}
		if !ok {
			break
		}
		texts = append(texts, pageText)
		n := len(texts)
		if n == total || n%stride == 0 {
			p.progress(ctx, documentID, StatusProcessing,
				fmt.Sprintf("Extracted page %d of %d", n, total),
				Interpolate(StageExtract, n, total),
				document.Patch{ProcessedPages: document.Int(n)})
		}
	}
	return texts, nil
}

func (p *Pipeline) embedChunks(ctx context.Context, documentID int64, chunks []string) ([][]float32, error) {
	total := len(chunks)
	stride := emitStride(total)
	return p.embedder.EmbedChunks(ctx, chunks, func(i int) {
		n := i + 1
		// The final chunk is reported by the caller once EmbedChunks returns;
		// only intermediate strides are reported here.
		if n == total || n%stride != 0 {
			return
		}
		p.progress(ctx, documentID, StatusProcessing,
			fmt.Sprintf("Embedded chunk %d of %d", n, total),
			Interpolate(StageEmbed, n, total),
			document.Patch{ProcessedChunks: document.Int(n)})
	})
}

// progress persists a status update and mirrors it as a live event. The row
// is the durable record; event delivery is best effort.
func (p *Pipeline) progress(ctx context.Context, documentID int64, status, message string, percent int, patch document.Patch) {
	patch.Status = document.String(status)
	patch.ProgressPercent = document.Int(percent)
	patch.CurrentStep = document.String(message)
	if err := p.status.Update(ctx, documentID, patch); err != nil {
		slog.ErrorContext(ctx, "failed to persist document status",
			"document_id", documentID, "status", status, "error", err)
	}
	p.notifier.Publish(ctx, ProgressEvent{
		DocumentID: documentID,
		Status:     status,
		Message:    message,
		Percentage: percent,
	})
}

func (p *Pipeline) fail(ctx context.Context, documentID int64, cause error) error {
	slog.ErrorContext(ctx, "document ingestion failed", "document_id", documentID, "error", cause)
	patch := document.Patch{
		Status:          document.String(StatusError),
		ProgressPercent: document.Int(ErrorPercent),
		CurrentStep:     document.String("Failed"),
		ErrorMessage:    document.String(cause.Error()),
	}
	if err := p.status.Update(ctx, documentID, patch); err != nil {
		slog.ErrorContext(ctx, "failed to persist error status",
			"document_id", documentID, "error", err)
	}
	p.notifier.Publish(ctx, ProgressEvent{
		DocumentID: documentID,
		Status:     StatusError,
		Message:    cause.Error(),
		Percentage: ErrorPercent,
	})
	return cause
}
