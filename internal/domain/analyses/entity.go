package analyses

import (
	"time"

	"github.com/planscanhq/planscan/internal/domain/documents"
	"github.com/planscanhq/planscan/internal/domain/practices"
)

// AnalysisID identifier type
type AnalysisID string

// Status enum. Terminal states are never mutated; a re-run creates a fresh row.
type Status string

const (
	StatusQueued     Status = "queued"
	StatusProcessing Status = "processing"
	StatusComplete   Status = "complete"
	StatusError      Status = "error"
)

// Terminal reports whether a status admits no further transitions.
func (s Status) Terminal() bool { return s == StatusComplete || s == StatusError }

// Analysis is one attempt to extract structured benefit data from a document.
// Report is set iff status is complete; ErrorMessage is set iff status is error.
type Analysis struct {
	ID           AnalysisID           `json:"id"`
	DocumentID   documents.DocumentID `json:"document_id"`
	PracticeID   practices.PracticeID `json:"practice_id"`
	Status       Status               `json:"status"`
	Report       *Report              `json:"report,omitempty"`
	ErrorMessage string               `json:"error_message,omitempty"`
	CreatedBy    string               `json:"created_by"`
	CreatedAt    time.Time            `json:"created_at"`
	UpdatedAt    time.Time            `json:"updated_at"`
}
