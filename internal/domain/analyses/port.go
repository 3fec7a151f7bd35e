package analyses

import (
	"context"
	"time"

	"github.com/planscanhq/planscan/internal/domain/documents"
)

// Repository port. The paired analysis+document status writes are each a
// single transaction in the store, which is what keeps the two tables in
// lockstep. Status mutators are no-ops when the analysis row is gone,
// tolerating races with document deletion.
type Repository interface {
	// CreateQueued inserts the analysis and flips the parent document to
	// queued in one transaction.
	CreateQueued(ctx context.Context, a *Analysis) error
	Get(ctx context.Context, id AnalysisID) (*Analysis, error)
	ListByDocument(ctx context.Context, documentID documents.DocumentID) ([]*Analysis, error)
	// HasActive reports whether a non-terminal analysis exists for the document.
	HasActive(ctx context.Context, documentID documents.DocumentID) (bool, error)
	SetStatus(ctx context.Context, id AnalysisID, status Status, at time.Time) error
	SetComplete(ctx context.Context, id AnalysisID, report *Report, at time.Time) error
	SetError(ctx context.Context, id AnalysisID, message string, at time.Time) error
	DeleteByDocument(ctx context.Context, documentID documents.DocumentID) error
}

// Extractor port (the boundary calling the external model capability). It
// returns a structured report or an error; it does not touch persistence.
type Extractor interface {
	Extract(ctx context.Context, documentURL, contentType string) (*Report, error)
}
