package documents

import (
	"context"
	"time"

	"github.com/planscanhq/planscan/internal/domain/practices"
)

// Repository port (interface for persistence). Get returns (nil, nil) when
// the id does not resolve.
type Repository interface {
	Insert(ctx context.Context, d *Document) error
	Get(ctx context.Context, id DocumentID) (*Document, error)
	ListByPractice(ctx context.Context, practiceID practices.PracticeID) ([]*Document, error)
	UpdateStatus(ctx context.Context, id DocumentID, status Status, at time.Time) error
	Delete(ctx context.Context, id DocumentID) error
}

// UploadTarget is a time-limited, single-destination location the client
// PUTs raw bytes to. The ref is recorded on the document afterwards.
type UploadTarget struct {
	URL       string    `json:"upload_url"`
	Ref       string    `json:"storage_ref"`
	ExpiresAt time.Time `json:"expires_at"`
}

// BlobStore port for the backing object storage.
type BlobStore interface {
	IssueUploadTarget(ctx context.Context, ref string, ttl time.Duration) (string, error)
	ResolveURL(ctx context.Context, ref string, ttl time.Duration) (string, error)
	Delete(ctx context.Context, ref string) error
}
