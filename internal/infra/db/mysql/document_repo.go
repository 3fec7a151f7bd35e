package mysql

import (
	"context"
	"database/sql"
	"time"

	domain "github.com/planscanhq/planscan/internal/domain/documents"
	"github.com/planscanhq/planscan/internal/domain/practices"
)

type DocumentRepository struct {
	db *sql.DB
}

func NewDocumentRepository(db *sql.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

const documentColumns = `id, practice_id, storage_ref, filename, content_type, size_bytes, status, uploaded_by, created_at, updated_at`

// Insert a new document record
func (r *DocumentRepository) Insert(ctx context.Context, d *domain.Document) error {
	const q = `
INSERT INTO documents
(id, practice_id, storage_ref, filename, content_type, size_bytes, status, uploaded_by, created_at, updated_at)
VALUES (?,?,?,?,?,?,?,?,?,?);`
	_, err := r.db.ExecContext(ctx, q,
		d.ID, d.PracticeID, d.StorageRef, d.Filename, d.ContentType, d.SizeBytes,
		d.Status, d.UploadedBy, timeOrNow(d.CreatedAt), timeOrNow(d.UpdatedAt),
	)
	return err
}

// Get by ID, nil when absent
func (r *DocumentRepository) Get(ctx context.Context, id domain.DocumentID) (*domain.Document, error) {
	const q = `SELECT ` + documentColumns + ` FROM documents WHERE id=? LIMIT 1;`
	var d domain.Document
	err := r.db.QueryRowContext(ctx, q, id).Scan(
		&d.ID, &d.PracticeID, &d.StorageRef, &d.Filename, &d.ContentType, &d.SizeBytes,
		&d.Status, &d.UploadedBy, &d.CreatedAt, &d.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// ListByPractice returns the practice's documents newest first
func (r *DocumentRepository) ListByPractice(ctx context.Context, practiceID practices.PracticeID) ([]*domain.Document, error) {
	const q = `
SELECT ` + documentColumns + `
FROM documents
WHERE practice_id=?
ORDER BY created_at DESC, id DESC;`
	rows, err := r.db.QueryContext(ctx, q, practiceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Document
	for rows.Next() {
		var d domain.Document
		if err := rows.Scan(
			&d.ID, &d.PracticeID, &d.StorageRef, &d.Filename, &d.ContentType, &d.SizeBytes,
			&d.Status, &d.UploadedBy, &d.CreatedAt, &d.UpdatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, &d)
	}
	return out, rows.Err()
}

// UpdateStatus patches only the status and timestamp columns
func (r *DocumentRepository) UpdateStatus(ctx context.Context, id domain.DocumentID, status domain.Status, at time.Time) error {
	const q = `UPDATE documents SET status=?, updated_at=? WHERE id=?;`
	_, err := r.db.ExecContext(ctx, q, status, at, id)
	return err
}

// Delete removes the document row
func (r *DocumentRepository) Delete(ctx context.Context, id domain.DocumentID) error {
	const q = `DELETE FROM documents WHERE id=?;`
	_, err := r.db.ExecContext(ctx, q, id)
	return err
}
