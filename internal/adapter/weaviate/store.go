package weaviate

import (
	"context"
	"fmt"

	"github.com/go-openapi/strfmt"
	"github.com/google/uuid"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/filters"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"

	"docuchat/internal/pipeline"
	"docuchat/internal/retrieval"
	"docuchat/internal/vector"
)

type Store struct {
	client *weaviate.Client
}

func NewStore(client *weaviate.Client) *Store {
	return &Store{client: client}
}

// objectID derives a stable Weaviate object id from the chunk id, so writing
// the same "{documentId}_{chunkIndex}" twice overwrites instead of
// duplicating.
func objectID(chunkID string) strfmt.UUID {
	return strfmt.UUID(uuid.NewSHA1(uuid.NameSpaceOID, []byte(chunkID)).String())
}

// UpsertChunks writes all entries as one batch. On failure the caller must
// treat every entry as uncommitted and retry the whole batch; the stable ids
// make the retry converge.
func (s *Store) UpsertChunks(ctx context.Context, entries []pipeline.IndexEntry) error {
	if len(entries) == 0 {
		return nil
	}

	objects := make([]*models.Object, 0, len(entries))
	for _, e := range entries {
		objects = append(objects, &models.Object{
			Class: vector.ClassDocumentChunk,
			ID:    objectID(e.ChunkID),
			Properties: map[string]interface{}{
				"content":    e.Content,
				"documentId": e.DocumentID,
				"chunkIndex": e.ChunkIndex,
				"chunkId":    e.ChunkID,
			},
			Vector: models.C11yVector(e.Vector),
		})
	}

	resp, err := s.client.Batch().ObjectsBatcher().WithObjects(objects...).Do(ctx)
	if err != nil {
		return err
	}
	for _, res := range resp {
		if res.Result != nil && res.Result.Errors != nil && len(res.Result.Errors.Error) > 0 {
			return fmt.Errorf("batch object rejected: %s", res.Result.Errors.Error[0].Message)
		}
	}
	return nil
}

// DeleteByDocument removes every chunk whose documentId matches. Deleting a
// document that was never indexed is a no-op success.
func (s *Store) DeleteByDocument(ctx context.Context, documentID int64) error {
	_, err := s.client.Batch().ObjectsBatchDeleter().
		WithClassName(vector.ClassDocumentChunk).
		WithOutput("minimal").
		WithWhere(filters.Where().
			WithPath([]string{"documentId"}).
			WithOperator(filters.Equal).
			WithValueInt(documentID)).
		Do(ctx)
	return err
}

// Query returns the k nearest chunks to the vector, most relevant first.
func (s *Store) Query(ctx context.Context, queryVector []float32, k int) ([]retrieval.SearchResult, error) {
	nearVector := s.client.GraphQL().NearVectorArgBuilder().WithVector(queryVector)

	fields := []graphql.Field{
		{Name: "content"},
		{Name: "chunkId"},
		{Name: "_additional", Fields: []graphql.Field{{Name: "certainty"}}},
	}

	res, err := s.client.GraphQL().Get().
		WithClassName(vector.ClassDocumentChunk).
		WithNearVector(nearVector).
		WithLimit(k).
		WithFields(fields...).
		Do(ctx)
	if err != nil {
		return nil, err
	}
	if len(res.Errors) > 0 {
		return nil, fmt.Errorf("graphql error: %v", res.Errors)
	}

	var results []retrieval.SearchResult
	data, ok := res.Data["Get"].(map[string]interface{})
	if !ok {
		return results, nil
	}
	chunks, ok := data[vector.ClassDocumentChunk].([]interface{})
	if !ok {
		return results, nil
	}

	for _, c := range chunks {
		props, ok := c.(map[string]interface{})
		if !ok {
			continue
		}
		result := retrieval.SearchResult{}
		if content, ok := props["content"].(string); ok {
			result.Content = content
		}
		if chunkID, ok := props["chunkId"].(string); ok {
			result.ChunkID = chunkID
		}
		if additional, ok := props["_additional"].(map[string]interface{}); ok {
			if certainty, ok := additional["certainty"].(float64); ok {
				result.Score = float32(certainty)
			}
		}
		results = append(results, result)
	}
	return results, nil
}
