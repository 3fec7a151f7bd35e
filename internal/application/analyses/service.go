package analyses

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/planscanhq/planscan/internal/application"
	apppractices "github.com/planscanhq/planscan/internal/application/practices"
	domain "github.com/planscanhq/planscan/internal/domain/analyses"
	"github.com/planscanhq/planscan/internal/domain/apperrors"
	documents "github.com/planscanhq/planscan/internal/domain/documents"
	"github.com/planscanhq/planscan/internal/domain/identity"
)

// Service is the analysis orchestrator. It owns the state machine
// queued -> processing -> {complete | error} and the single-flight wiring
// between document, analysis row and background extraction job.
type Service struct {
	Repo      domain.Repository
	Documents documents.Repository
	Blobs     documents.BlobStore
	Access    *apppractices.Service
	Extractor domain.Extractor
	Scheduler application.Scheduler
	Clock     application.Clock
	URLTTL    time.Duration

	// OnFinished is an optional hook observed after a scheduled job reaches
	// a terminal state. Used for metrics.
	OnFinished func(status domain.Status, elapsed time.Duration)
}

// Run records the intent to analyze and schedules the slow extraction step
// in the background, returning the new analysis id immediately.
//
// Rejects with ErrAnalysisInFlight when a queued/processing analysis already
// exists for the document, so two concurrent runs cannot fight over the
// shared document status.
func (s *Service) Run(ctx context.Context, ident identity.Identity, documentID documents.DocumentID) (*domain.Analysis, error) {
	doc, err := s.authorizedDocument(ctx, ident, documentID)
	if err != nil {
		return nil, err
	}

	active, err := s.Repo.HasActive(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("active check: %w", err)
	}
	if active {
		return nil, apperrors.ErrAnalysisInFlight
	}

	now := s.Clock.Now()
	a := &domain.Analysis{
		ID:         domain.AnalysisID(uuid.New().String()),
		DocumentID: documentID,
		PracticeID: doc.PracticeID,
		Status:     domain.StatusQueued,
		CreatedBy:  ident.UserID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.Repo.CreateQueued(ctx, a); err != nil {
		return nil, fmt.Errorf("create analysis: %w", err)
	}

	url, err := s.Blobs.ResolveURL(ctx, doc.StorageRef, s.URLTTL)
	if err != nil {
		// The queued row was already written; fail it in place so it is
		// never left orphaned with no job behind it.
		s.Fail(context.WithoutCancel(ctx), a.ID, "document blob could not be resolved")
		return nil, fmt.Errorf("%w: %v", apperrors.ErrURLResolution, err)
	}

	contentType := doc.ContentType
	analysisID := a.ID
	s.Scheduler.Schedule(func(jobCtx context.Context) {
		s.execute(jobCtx, analysisID, url, contentType)
	})
	return a, nil
}

// execute is the detached extraction job. Every failure path resolves into
// the error state; nothing escapes this boundary.
func (s *Service) execute(ctx context.Context, id domain.AnalysisID, url, contentType string) {
	started := s.Clock.Now()
	s.UpdateStatus(ctx, id, domain.StatusProcessing)

	report, err := s.Extractor.Extract(ctx, url, contentType)
	if err != nil {
		if !errors.Is(err, apperrors.ErrUnsupportedContentType) {
			err = fmt.Errorf("%w: %v", apperrors.ErrExtractionFailure, err)
		}
		s.Fail(ctx, id, err.Error())
		s.finished(domain.StatusError, started)
		return
	}
	report.Normalize()
	s.Complete(ctx, id, report)
	s.finished(domain.StatusComplete, started)
}

// UpdateStatus patches the analysis and its parent document to the same
// status in one store transaction. No-op when the analysis no longer exists
// (the document may have been deleted while the job was in flight).
func (s *Service) UpdateStatus(ctx context.Context, id domain.AnalysisID, status domain.Status) {
	if err := s.Repo.SetStatus(ctx, id, status, s.Clock.Now()); err != nil {
		log.Printf("analysis %s: set status %s: %v", id, status, err)
	}
}

// Complete stores the report and marks both rows complete. Terminal.
func (s *Service) Complete(ctx context.Context, id domain.AnalysisID, report *domain.Report) {
	if err := s.Repo.SetComplete(ctx, id, report, s.Clock.Now()); err != nil {
		log.Printf("analysis %s: complete: %v", id, err)
	}
}

// Fail records the error message and marks both rows error. Terminal.
func (s *Service) Fail(ctx context.Context, id domain.AnalysisID, message string) {
	if err := s.Repo.SetError(ctx, id, message, s.Clock.Now()); err != nil {
		log.Printf("analysis %s: fail: %v", id, err)
	}
}

// List returns all analyses for a document newest first, after an access
// check. Soft-fail: empty list for unauthenticated callers.
func (s *Service) List(ctx context.Context, ident identity.Identity, documentID documents.DocumentID) ([]*domain.Analysis, error) {
	if ident.IsZero() {
		return []*domain.Analysis{}, nil
	}
	if _, err := s.authorizedDocument(ctx, ident, documentID); err != nil {
		return nil, err
	}
	list, err := s.Repo.ListByDocument(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("list analyses: %w", err)
	}
	return list, nil
}

// Get fetches a single analysis with an access check.
func (s *Service) Get(ctx context.Context, ident identity.Identity, id domain.AnalysisID) (*domain.Analysis, error) {
	if ident.IsZero() {
		return nil, apperrors.ErrUnauthenticated
	}
	a, err := s.Repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get analysis: %w", err)
	}
	if a == nil {
		return nil, apperrors.ErrNotFound
	}
	if err := s.Access.VerifyAccess(ctx, a.PracticeID, ident.UserID); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *Service) authorizedDocument(ctx context.Context, ident identity.Identity, id documents.DocumentID) (*documents.Document, error) {
	if ident.IsZero() {
		return nil, apperrors.ErrUnauthenticated
	}
	doc, err := s.Documents.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}
	if doc == nil {
		return nil, apperrors.ErrNotFound
	}
	if err := s.Access.VerifyAccess(ctx, doc.PracticeID, ident.UserID); err != nil {
		return nil, err
	}
	return doc, nil
}

func (s *Service) finished(status domain.Status, started time.Time) {
	if s.OnFinished != nil {
		s.OnFinished(status, s.Clock.Now().Sub(started))
	}
}
