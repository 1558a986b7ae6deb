package gemini

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

type Embedder struct {
	client *genai.Client
	model  string
}

func NewEmbedder(ctx context.Context, apiKey, model string) (*Embedder, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}
	if model == "" {
		model = "gemini-embedding-001"
	}
	return &Embedder{client: client, model: model}, nil
}

func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	slog.DebugContext(ctx, "embedding content", "model", e.model, "length", len(text))
	em := e.client.EmbeddingModel(e.model)
	res, err := em.EmbedContent(ctx, genai.Text(text))
	if err != nil {
		slog.ErrorContext(ctx, "embedding failed", "error", err)
		return nil, err
	}
	if res.Embedding == nil {
		return nil, fmt.Errorf("embedding response carried no vector")
	}
	return res.Embedding.Values, nil
}

// EmbedChunks embeds every chunk in order; vector i corresponds to chunk i.
// The first provider failure aborts the pass and is attributed to its chunk
// index, so no partial result is ever returned. done, when non-nil, is
// invoked after each successful chunk for progress accounting.
func (e *Embedder) EmbedChunks(ctx context.Context, chunks []string, done func(i int)) ([][]float32, error) {
	vectors := make([][]float32, 0, len(chunks))
	for i, chunk := range chunks {
		vec, err := e.Embed(ctx, chunk)
		if err != nil {
			return nil, fmt.Errorf("chunk %d: %w", i, err)
		}
		vectors = append(vectors, vec)
		if done != nil {
			done(i)
		}
	}
	return vectors, nil
}

func (e *Embedder) Close() error {
	return e.client.Close()
}
