package worker

// IngestTaskPayload is the message published to the document.ingest topic
// when a document is created or re-submitted. The correlation id ties the
// worker's logs back to the triggering request.
type IngestTaskPayload struct {
	DocumentID    int64  `json:"document_id"`
	StorageKey    string `json:"storage_key"`
	CorrelationID string `json:"correlation_id"`
}
