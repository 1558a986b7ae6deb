package logger

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

type key int

const CorrelationKey key = 0

// WithCorrelationID attaches a correlation id to the context. Ingestion tasks
// carry the id through NSQ payloads so a document's whole run can be traced.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, CorrelationKey, id)
}

func GetCorrelationID(ctx context.Context) string {
	if id, ok := ctx.Value(CorrelationKey).(string); ok {
		return id
	}
	return ""
}

// NewCorrelationID returns a fresh correlation id.
func NewCorrelationID() string {
	return uuid.New().String()
}

// ContextHandler decorates an slog.Handler with the correlation id found in
// the record's context, if any.
type ContextHandler struct {
	slog.Handler
}

func NewContextHandler(h slog.Handler) *ContextHandler {
	return &ContextHandler{Handler: h}
}

func (h *ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	if id, ok := ctx.Value(CorrelationKey).(string); ok && id != "" {
		r.AddAttrs(slog.String("correlation_id", id))
	}
	return h.Handler.Handle(ctx, r)
}
