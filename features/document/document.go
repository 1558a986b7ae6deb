package document

import (
	"context"
	"time"
)

// Document is the status row for one uploaded PDF. The ingestion worker is
// the only writer for its own document while a run is active; request-side
// readers and delete may run concurrently (last writer wins on the row).
type Document struct {
	ID              int64     `json:"id"`
	Filename        string    `json:"filename"`
	StorageKey      string    `json:"storage_key"`
	OwnerID         int64     `json:"owner_id"`
	Status          string    `json:"status"`
	ProgressPercent int       `json:"progress_percent"`
	CurrentStep     string    `json:"current_step,omitempty"`
	TotalPages      int       `json:"total_pages"`
	ProcessedPages  int       `json:"processed_pages"`
	TotalChunks     int       `json:"total_chunks"`
	ProcessedChunks int       `json:"processed_chunks"`
	ErrorMessage    string    `json:"error_message,omitempty"`
	UploadedAt      time.Time `json:"uploaded_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Patch is a partial update of a document row: only non-nil fields change.
type Patch struct {
	Status          *string
	ProgressPercent *int
	CurrentStep     *string
	TotalPages      *int
	ProcessedPages  *int
	TotalChunks     *int
	ProcessedChunks *int
	ErrorMessage    *string
}

func String(s string) *string { return &s }
func Int(i int) *int          { return &i }

type Repository interface {
	Create(ctx context.Context, doc *Document) error
	Get(ctx context.Context, id int64) (*Document, error)
	List(ctx context.Context) ([]Document, error)
	Update(ctx context.Context, id int64, patch Patch) error
	Delete(ctx context.Context, id int64) error
}
