package documents

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/planscanhq/planscan/internal/application"
	apppractices "github.com/planscanhq/planscan/internal/application/practices"
	"github.com/planscanhq/planscan/internal/domain/apperrors"
	domain "github.com/planscanhq/planscan/internal/domain/documents"
	"github.com/planscanhq/planscan/internal/domain/identity"
)

// URLCache caches resolved download URLs keyed by storage ref. The cache TTL
// must stay below the presign expiry so a cached URL is always still valid.
type URLCache interface {
	Get(ctx context.Context, ref string) (string, bool)
	Set(ctx context.Context, ref, url string)
}

// Service implements document use-cases: upload target issuance, record
// creation, listing with resolved URLs, and cascading deletion.
type Service struct {
	Repo      domain.Repository
	Analyses  AnalysisDeleter
	Blobs     domain.BlobStore
	Access    *apppractices.Service
	URLs      URLCache // optional
	Clock     application.Clock
	UploadTTL time.Duration
	URLTTL    time.Duration
}

// AnalysisDeleter is the slice of the analysis repository the document
// service needs for cascade deletes, kept narrow to avoid a package cycle.
type AnalysisDeleter interface {
	DeleteByDocument(ctx context.Context, documentID domain.DocumentID) error
}

// GenerateUploadTarget issues a time-limited presigned PUT destination. No
// practice check: the URL alone grants no read access.
func (s *Service) GenerateUploadTarget(ctx context.Context, ident identity.Identity) (*domain.UploadTarget, error) {
	if ident.IsZero() {
		return nil, apperrors.ErrUnauthenticated
	}
	ref := "uploads/" + uuid.New().String()
	url, err := s.Blobs.IssueUploadTarget(ctx, ref, s.UploadTTL)
	if err != nil {
		return nil, fmt.Errorf("issue upload target: %w", err)
	}
	return &domain.UploadTarget{
		URL:       url,
		Ref:       ref,
		ExpiresAt: s.Clock.Now().Add(s.UploadTTL),
	}, nil
}

// CreateCommand carries the client-reported facts about an uploaded blob.
type CreateCommand struct {
	StorageRef  string
	Filename    string
	ContentType string
	SizeBytes   int64
}

// Create inserts a document record with status uploaded. Requires an
// existing practice membership.
func (s *Service) Create(ctx context.Context, ident identity.Identity, cmd CreateCommand) (*domain.Document, error) {
	m, err := s.Access.ResolveMembership(ctx, ident)
	if err != nil {
		return nil, err
	}
	now := s.Clock.Now()
	d := &domain.Document{
		ID:          domain.DocumentID(uuid.New().String()),
		PracticeID:  m.PracticeID,
		StorageRef:  cmd.StorageRef,
		Filename:    cmd.Filename,
		ContentType: cmd.ContentType,
		SizeBytes:   cmd.SizeBytes,
		Status:      domain.StatusUploaded,
		UploadedBy:  ident.UserID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.Repo.Insert(ctx, d); err != nil {
		return nil, fmt.Errorf("insert document: %w", err)
	}
	return d, nil
}

// List returns the caller's documents newest first, each annotated with a
// resolved download URL. Soft-fail: unauthenticated or membership-less
// callers get an empty list, not an error.
func (s *Service) List(ctx context.Context, ident identity.Identity) ([]*domain.WithURL, error) {
	if ident.IsZero() {
		return []*domain.WithURL{}, nil
	}
	m, err := s.Access.ResolveMembership(ctx, ident)
	if err != nil {
		if err == apperrors.ErrNoMembership || err == apperrors.ErrUnauthenticated {
			return []*domain.WithURL{}, nil
		}
		return nil, err
	}
	docs, err := s.Repo.ListByPractice(ctx, m.PracticeID)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	out := make([]*domain.WithURL, 0, len(docs))
	for _, d := range docs {
		out = append(out, &domain.WithURL{Document: *d, DownloadURL: s.resolveURL(ctx, d.StorageRef)})
	}
	return out, nil
}

// Get fetches one document after an access check.
func (s *Service) Get(ctx context.Context, ident identity.Identity, id domain.DocumentID) (*domain.WithURL, error) {
	d, err := s.authorized(ctx, ident, id)
	if err != nil {
		return nil, err
	}
	return &domain.WithURL{Document: *d, DownloadURL: s.resolveURL(ctx, d.StorageRef)}, nil
}

// Delete removes dependent analyses, then the blob, then the document row.
// Dependent rows go first so a later failure cannot leave analyses pointing
// at a missing parent. No transaction spans the blob store, so a failure
// after blob deletion leaves the record for a retry.
func (s *Service) Delete(ctx context.Context, ident identity.Identity, id domain.DocumentID) error {
	d, err := s.authorized(ctx, ident, id)
	if err != nil {
		return err
	}
	if err := s.Analyses.DeleteByDocument(ctx, id); err != nil {
		return fmt.Errorf("delete analyses: %w", err)
	}
	if err := s.Blobs.Delete(ctx, d.StorageRef); err != nil {
		return fmt.Errorf("delete blob: %w", err)
	}
	if err := s.Repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	return nil
}

// authorized loads the document and verifies the caller's practice access.
func (s *Service) authorized(ctx context.Context, ident identity.Identity, id domain.DocumentID) (*domain.Document, error) {
	if ident.IsZero() {
		return nil, apperrors.ErrUnauthenticated
	}
	d, err := s.Repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}
	if d == nil {
		return nil, apperrors.ErrNotFound
	}
	if err := s.Access.VerifyAccess(ctx, d.PracticeID, ident.UserID); err != nil {
		return nil, err
	}
	return d, nil
}

func (s *Service) resolveURL(ctx context.Context, ref string) string {
	if s.URLs != nil {
		if url, ok := s.URLs.Get(ctx, ref); ok {
			return url
		}
	}
	url, err := s.Blobs.ResolveURL(ctx, ref, s.URLTTL)
	if err != nil {
		// A missing blob degrades the listing, it does not fail it.
		log.Printf("resolve url for ref=%s: %v", ref, err)
		return ""
	}
	if s.URLs != nil {
		s.URLs.Set(ctx, ref, url)
	}
	return url
}
