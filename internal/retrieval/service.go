// Package retrieval is the read side of the vector index: it embeds a
// natural-language question and returns the closest indexed chunks. The
// conversational component built on top of it is out of scope here.
package retrieval

import (
	"context"
	"time"
)

type SearchResult struct {
	Content string  `json:"content"`
	ChunkID string  `json:"chunk_id,omitempty"`
	Score   float32 `json:"score"`
}

type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

type VectorIndex interface {
	Query(ctx context.Context, vector []float32, k int) ([]SearchResult, error)
}

type Service struct {
	embedder Embedder
	index    VectorIndex
	logger   *QueryLogger
}

func NewService(e Embedder, index VectorIndex, l *QueryLogger) *Service {
	return &Service{embedder: e, index: index, logger: l}
}

// Search embeds the query and returns the k most similar chunks, most
// relevant first.
func (s *Service) Search(ctx context.Context, query string, k int) ([]SearchResult, error) {
	start := time.Now()

	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}

	results, err := s.index.Query(ctx, vec, k)
	if err != nil {
		return nil, err
	}

	if s.logger != nil {
		s.logger.Log(QueryLogEntry{
			Query:      query,
			NumResults: len(results),
			Duration:   time.Since(start),
		})
	}
	return results, nil
}
