package config

const (
	// TopicDocumentIngest is the NSQ topic carrying ingestion tasks for
	// uploaded documents.
	TopicDocumentIngest = "document.ingest"

	// TopicDocumentProgress is the NSQ topic carrying live progress events.
	// Delivery is best-effort; the documents table is the durable record.
	TopicDocumentProgress = "document.progress"
)
