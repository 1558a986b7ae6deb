package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"docuchat/features/document"
	"docuchat/internal/adapter/gemini"
	wstore "docuchat/internal/adapter/weaviate"
	"docuchat/internal/config"
	"docuchat/internal/extract"
	"docuchat/internal/pipeline"
	"docuchat/internal/retrieval"
	"docuchat/internal/storage"
	"docuchat/internal/worker"
)

type objectStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

// extractorAdapter bridges *extract.Extractor to pipeline.Extractor: the
// concrete *extract.Pages return type satisfies pipeline.PageIterator, but Go
// method sets require the interface return type to match exactly.
type extractorAdapter struct {
	e *extract.Extractor
}

func (a extractorAdapter) Extract(ctx context.Context, pdf []byte) (pipeline.PageIterator, error) {
	return a.e.Extract(ctx, pdf)
}

// App wires the ingestion worker together: the document service on the
// request side, the pipeline runner on the worker side, and the retrieval
// service for queries.
type App struct {
	Documents      *document.Service
	Retrieval      *retrieval.Service
	Runner         *pipeline.Runner
	IngestConsumer *worker.IngestConsumer

	embedder *gemini.Embedder
	ocr      *gemini.OCR
}

func New(ctx context.Context, cfg *config.Config, deps *Dependencies) (*App, error) {
	objects, err := newObjectStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("object store: %w", err)
	}

	embedder, err := gemini.NewEmbedder(ctx, cfg.GeminiAPIKey, cfg.EmbeddingModel)
	if err != nil {
		return nil, fmt.Errorf("gemini embedder: %w", err)
	}

	// OCR is optional: without an API key the extractor simply skips
	// image-only pages.
	var ocrClient *gemini.OCR
	var ocr extract.OCR
	if cfg.GeminiAPIKey != "" {
		ocrClient, err = gemini.NewOCR(ctx, cfg.GeminiAPIKey, "")
		if err != nil {
			return nil, fmt.Errorf("gemini ocr: %w", err)
		}
		ocr = ocrClient
	}

	vecStore := wstore.NewStore(deps.Weaviate)
	repo := document.NewPostgresRepo(deps.DB)
	notifier := worker.NewProgressNotifier(deps.NSQProducer)

	pipe := pipeline.New(objects, extractorAdapter{e: extract.New(ocr)}, embedder, vecStore, repo, notifier, cfg.ChunkSizeWords)
	runner, err := pipeline.NewRunner(pipe, cfg.IngestionConcurrency)
	if err != nil {
		return nil, fmt.Errorf("ingestion runner: %w", err)
	}

	docService := document.NewService(repo, deps.NSQProducer, vecStore, objects)

	queryLogger, err := retrieval.NewFileQueryLogger(cfg.QueryLogPath)
	if err != nil {
		slog.Warn("failed to create query logger, falling back to stdout", "error", err)
		queryLogger = retrieval.NewQueryLogger(os.Stdout)
	}
	retrievalService := retrieval.NewService(embedder, vecStore, queryLogger)

	return &App{
		Documents:      docService,
		Retrieval:      retrievalService,
		Runner:         runner,
		IngestConsumer: worker.NewIngestConsumer(runner),
		embedder:       embedder,
		ocr:            ocrClient,
	}, nil
}

func newObjectStore(ctx context.Context, cfg *config.Config) (objectStore, error) {
	switch cfg.StorageBackend {
	case "gcs":
		return storage.NewGCSStore(ctx, cfg.GCSBucket)
	case "local", "":
		return storage.NewLocalStore(cfg.UploadDir), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}

// Close drains in-flight ingestions and releases the provider clients.
func (a *App) Close() {
	a.Runner.Close()
	if err := a.embedder.Close(); err != nil {
		slog.Warn("failed to close embedder client", "error", err)
	}
	if a.ocr != nil {
		if err := a.ocr.Close(); err != nil {
			slog.Warn("failed to close ocr client", "error", err)
		}
	}
}
