package documents

import (
	"time"

	"github.com/planscanhq/planscan/internal/domain/practices"
)

// DocumentID identifier type
type DocumentID string

// Status enum. A document tracks its most recent analysis, except that
// "uploaded" means no analysis has ever been run.
type Status string

const (
	StatusUploaded   Status = "uploaded"
	StatusQueued     Status = "queued"
	StatusProcessing Status = "processing"
	StatusComplete   Status = "complete"
	StatusError      Status = "error"
)

// Document is an uploaded insurance-plan file plus its processing status.
type Document struct {
	ID          DocumentID           `json:"id"`
	PracticeID  practices.PracticeID `json:"practice_id"`
	StorageRef  string               `json:"storage_ref"`
	Filename    string               `json:"filename"`
	ContentType string               `json:"content_type"`
	SizeBytes   int64                `json:"size_bytes"`
	Status      Status               `json:"status"`
	UploadedBy  string               `json:"uploaded_by"`
	CreatedAt   time.Time            `json:"created_at"`
	UpdatedAt   time.Time            `json:"updated_at"`
}

// WithURL annotates a document with a resolved, possibly-expiring download URL.
type WithURL struct {
	Document
	DownloadURL string `json:"download_url,omitempty"`
}
