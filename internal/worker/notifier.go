package worker

import (
	"context"
	"encoding/json"
	"log/slog"

	"docuchat/internal/config"
	"docuchat/internal/pipeline"
)

type EventPublisher interface {
	Publish(topic string, body []byte) error
}

// ProgressNotifier fans ingestion progress out to the document.progress
// topic for live subscribers. Delivery is best effort: a failed publish is
// logged and dropped, the document row already carries the same values.
type ProgressNotifier struct {
	publisher EventPublisher
}

func NewProgressNotifier(publisher EventPublisher) *ProgressNotifier {
	return &ProgressNotifier{publisher: publisher}
}

func (n *ProgressNotifier) Publish(ctx context.Context, ev pipeline.ProgressEvent) {
	body, err := json.Marshal(ev)
	if err != nil {
		slog.ErrorContext(ctx, "failed to marshal progress event", "error", err, "document_id", ev.DocumentID)
		return
	}
	if err := n.publisher.Publish(config.TopicDocumentProgress, body); err != nil {
		slog.ErrorContext(ctx, "failed to publish progress event", "error", err, "document_id", ev.DocumentID)
	}
}
