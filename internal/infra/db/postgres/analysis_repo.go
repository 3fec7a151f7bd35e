package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	domain "github.com/planscanhq/planscan/internal/domain/analyses"
	"github.com/planscanhq/planscan/internal/domain/documents"
)

type AnalysisRepository struct{ db *sql.DB }

func NewAnalysisRepository(db *sql.DB) *AnalysisRepository { return &AnalysisRepository{db: db} }

const analysisColumns = `id, document_id, practice_id, status, report_json, error_message, created_by, created_at, updated_at`

// CreateQueued inserts the analysis row and flips the parent document to
// queued in one transaction.
func (r *AnalysisRepository) CreateQueued(ctx context.Context, a *domain.Analysis) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	const ins = `
INSERT INTO analyses
(id, document_id, practice_id, status, report_json, error_message, created_by, created_at, updated_at)
VALUES ($1,$2,$3,$4,NULL,NULL,$5,$6,$7);`
	if _, err := tx.ExecContext(ctx, ins,
		a.ID, a.DocumentID, a.PracticeID, domain.StatusQueued,
		a.CreatedBy, timeOrNow(a.CreatedAt), timeOrNow(a.UpdatedAt),
	); err != nil {
		return err
	}

	const upd = `UPDATE documents SET status=$1, updated_at=$2 WHERE id=$3;`
	if _, err := tx.ExecContext(ctx, upd, domain.StatusQueued, timeOrNow(a.UpdatedAt), a.DocumentID); err != nil {
		return err
	}
	return tx.Commit()
}

// Get by ID, nil when absent
func (r *AnalysisRepository) Get(ctx context.Context, id domain.AnalysisID) (*domain.Analysis, error) {
	const q = `SELECT ` + analysisColumns + ` FROM analyses WHERE id=$1 LIMIT 1;`
	a, err := scanAnalysis(r.db.QueryRowContext(ctx, q, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

// ListByDocument returns all analyses for a document newest first
func (r *AnalysisRepository) ListByDocument(ctx context.Context, documentID documents.DocumentID) ([]*domain.Analysis, error) {
	const q = `
SELECT ` + analysisColumns + `
FROM analyses
WHERE document_id=$1
ORDER BY created_at DESC, id DESC;`
	rows, err := r.db.QueryContext(ctx, q, documentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Analysis
	for rows.Next() {
		a, err := scanAnalysis(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// HasActive reports whether a queued or processing analysis exists for the document
func (r *AnalysisRepository) HasActive(ctx context.Context, documentID documents.DocumentID) (bool, error) {
	const q = `
SELECT EXISTS(
  SELECT 1 FROM analyses
  WHERE document_id=$1 AND status IN ($2,$3)
);`
	var active bool
	err := r.db.QueryRowContext(ctx, q, documentID, domain.StatusQueued, domain.StatusProcessing).Scan(&active)
	return active, err
}

// SetStatus patches the analysis and its parent document in one transaction.
// No-op when the analysis row is gone.
func (r *AnalysisRepository) SetStatus(ctx context.Context, id domain.AnalysisID, status domain.Status, at time.Time) error {
	return r.withDocument(ctx, id, func(tx *sql.Tx, docID string) error {
		const q = `UPDATE analyses SET status=$1, updated_at=$2 WHERE id=$3;`
		if _, err := tx.ExecContext(ctx, q, status, at, id); err != nil {
			return err
		}
		return patchDocument(ctx, tx, docID, status, at)
	})
}

// SetComplete stores the report and marks both rows complete
func (r *AnalysisRepository) SetComplete(ctx context.Context, id domain.AnalysisID, report *domain.Report, at time.Time) error {
	raw, err := json.Marshal(report)
	if err != nil {
		return err
	}
	return r.withDocument(ctx, id, func(tx *sql.Tx, docID string) error {
		const q = `
UPDATE analyses
SET status=$1, report_json=$2, error_message=NULL, updated_at=$3
WHERE id=$4;`
		if _, err := tx.ExecContext(ctx, q, domain.StatusComplete, raw, at, id); err != nil {
			return err
		}
		return patchDocument(ctx, tx, docID, domain.StatusComplete, at)
	})
}

// SetError records the failure message and marks both rows error
func (r *AnalysisRepository) SetError(ctx context.Context, id domain.AnalysisID, message string, at time.Time) error {
	return r.withDocument(ctx, id, func(tx *sql.Tx, docID string) error {
		const q = `
UPDATE analyses
SET status=$1, report_json=NULL, error_message=$2, updated_at=$3
WHERE id=$4;`
		if _, err := tx.ExecContext(ctx, q, domain.StatusError, message, at, id); err != nil {
			return err
		}
		return patchDocument(ctx, tx, docID, domain.StatusError, at)
	})
}

// DeleteByDocument removes all analyses referencing a document
func (r *AnalysisRepository) DeleteByDocument(ctx context.Context, documentID documents.DocumentID) error {
	const q = `DELETE FROM analyses WHERE document_id=$1;`
	_, err := r.db.ExecContext(ctx, q, documentID)
	return err
}

func (r *AnalysisRepository) withDocument(ctx context.Context, id domain.AnalysisID, fn func(tx *sql.Tx, docID string) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var docID string
	err = tx.QueryRowContext(ctx, `SELECT document_id FROM analyses WHERE id=$1 FOR UPDATE;`, id).Scan(&docID)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return err
	}
	if err := fn(tx, docID); err != nil {
		return err
	}
	return tx.Commit()
}

func patchDocument(ctx context.Context, tx *sql.Tx, docID string, status domain.Status, at time.Time) error {
	const q = `UPDATE documents SET status=$1, updated_at=$2 WHERE id=$3;`
	_, err := tx.ExecContext(ctx, q, status, at, docID)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAnalysis(row rowScanner) (*domain.Analysis, error) {
	var a domain.Analysis
	var report sql.NullString
	var message sql.NullString
	if err := row.Scan(
		&a.ID, &a.DocumentID, &a.PracticeID, &a.Status,
		&report, &message, &a.CreatedBy, &a.CreatedAt, &a.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if report.Valid && report.String != "" {
		var rep domain.Report
		if err := json.Unmarshal([]byte(report.String), &rep); err != nil {
			return nil, err
		}
		a.Report = &rep
	}
	if message.Valid {
		a.ErrorMessage = message.String
	}
	return &a, nil
}
