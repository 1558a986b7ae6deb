package document

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) Create(ctx context.Context, doc *Document) error {
	query := `INSERT INTO documents (filename, storage_key, owner_id, status)
		VALUES ($1, $2, $3, $4) RETURNING id, uploaded_at`
	return r.db.QueryRowContext(ctx, query, doc.Filename, doc.StorageKey, doc.OwnerID, doc.Status).
		Scan(&doc.ID, &doc.UploadedAt)
}

const docColumns = `id, filename, storage_key, owner_id, status, progress_percent, current_step,
	total_pages, processed_pages, total_chunks, processed_chunks, error_message, uploaded_at, updated_at`

func (r *PostgresRepo) Get(ctx context.Context, id int64) (*Document, error) {
	query := `SELECT ` + docColumns + ` FROM documents WHERE id = $1`
	return scanDocument(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresRepo) List(ctx context.Context) ([]Document, error) {
	query := `SELECT ` + docColumns + ` FROM documents ORDER BY uploaded_at DESC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}
	return docs, rows.Err()
}

// Update applies a partial patch: only non-nil fields are written. Safe to
// call from the ingestion worker concurrently with request-side reads.
func (r *PostgresRepo) Update(ctx context.Context, id int64, patch Patch) error {
	sets := make([]string, 0, 8)
	args := make([]interface{}, 0, 9)

	add := func(column string, value interface{}) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if patch.Status != nil {
		add("status", *patch.Status)
	}
	if patch.ProgressPercent != nil {
		add("progress_percent", *patch.ProgressPercent)
	}
	if patch.CurrentStep != nil {
		add("current_step", *patch.CurrentStep)
	}
	if patch.TotalPages != nil {
		add("total_pages", *patch.TotalPages)
	}
	if patch.ProcessedPages != nil {
		add("processed_pages", *patch.ProcessedPages)
	}
	if patch.TotalChunks != nil {
		add("total_chunks", *patch.TotalChunks)
	}
	if patch.ProcessedChunks != nil {
		add("processed_chunks", *patch.ProcessedChunks)
	}
	if patch.ErrorMessage != nil {
		add("error_message", *patch.ErrorMessage)
	}

	if len(sets) == 0 {
		return nil
	}

	args = append(args, id)
	query := fmt.Sprintf("UPDATE documents SET %s, updated_at = NOW() WHERE id = $%d",
		strings.Join(sets, ", "), len(args))
	_, err := r.db.ExecContext(ctx, query, args...)
	return err
}

func (r *PostgresRepo) Delete(ctx context.Context, id int64) error {
	query := `DELETE FROM documents WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	return err
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanDocument(row scanner) (*Document, error) {
	doc := &Document{}
	var currentStep, errorMessage sql.NullString
	err := row.Scan(&doc.ID, &doc.Filename, &doc.StorageKey, &doc.OwnerID, &doc.Status,
		&doc.ProgressPercent, &currentStep, &doc.TotalPages, &doc.ProcessedPages,
		&doc.TotalChunks, &doc.ProcessedChunks, &errorMessage, &doc.UploadedAt, &doc.UpdatedAt)
	if err != nil {
		return nil, err
	}
	doc.CurrentStep = currentStep.String
	doc.ErrorMessage = errorMessage.String
	return doc, nil
}
