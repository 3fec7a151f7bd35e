package analyses

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/planscanhq/planscan/internal/application"
	apppractices "github.com/planscanhq/planscan/internal/application/practices"
	domain "github.com/planscanhq/planscan/internal/domain/analyses"
	"github.com/planscanhq/planscan/internal/domain/apperrors"
	documents "github.com/planscanhq/planscan/internal/domain/documents"
	"github.com/planscanhq/planscan/internal/domain/identity"
	"github.com/planscanhq/planscan/internal/infra/db/memory"
)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

type fakeBlobs struct {
	resolveErr error
}

func (f *fakeBlobs) IssueUploadTarget(_ context.Context, ref string, _ time.Duration) (string, error) {
	return "https://blobs.test/put/" + ref, nil
}

func (f *fakeBlobs) ResolveURL(_ context.Context, ref string, _ time.Duration) (string, error) {
	if f.resolveErr != nil {
		return "", f.resolveErr
	}
	return "https://blobs.test/get/" + ref, nil
}

func (f *fakeBlobs) Delete(context.Context, string) error { return nil }

// fakeExtractor returns a canned report or error and records what it was
// asked to analyze.
type fakeExtractor struct {
	report      *domain.Report
	err         error
	gotURL      string
	gotType     string
	beforeCall  func()
}

func (f *fakeExtractor) Extract(_ context.Context, url, contentType string) (*domain.Report, error) {
	if f.beforeCall != nil {
		f.beforeCall()
	}
	f.gotURL = url
	f.gotType = contentType
	if f.err != nil {
		return nil, f.err
	}
	return f.report, nil
}

type fixture struct {
	svc       *Service
	store     *memory.Store
	blobs     *fakeBlobs
	extractor *fakeExtractor
	ident     identity.Identity
	doc       *documents.Document
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	clk := fixedClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	access := &apppractices.Service{Repo: store.Practices(), Clock: clk}
	blobs := &fakeBlobs{}
	extractor := &fakeExtractor{report: &domain.Report{}}
	svc := &Service{
		Repo:      store.Analyses(),
		Documents: store.Documents(),
		Blobs:     blobs,
		Access:    access,
		Extractor: extractor,
		Scheduler: application.SyncScheduler{},
		Clock:     clk,
		URLTTL:    time.Hour,
	}

	ident := identity.Identity{UserID: "u1", Email: "dr.lee@example.com"}
	p, err := access.GetOrCreate(context.Background(), ident)
	if err != nil {
		t.Fatalf("seed practice: %v", err)
	}
	doc := &documents.Document{
		ID:          documents.DocumentID(uuid.New().String()),
		PracticeID:  p.ID,
		StorageRef:  "uploads/abc",
		Filename:    "plan.pdf",
		ContentType: "application/pdf",
		Status:      documents.StatusUploaded,
		UploadedBy:  ident.UserID,
		CreatedAt:   clk.Now(),
		UpdatedAt:   clk.Now(),
	}
	if err := store.Documents().Insert(context.Background(), doc); err != nil {
		t.Fatalf("seed document: %v", err)
	}
	return &fixture{svc: svc, store: store, blobs: blobs, extractor: extractor, ident: ident, doc: doc}
}

func (f *fixture) analysis(t *testing.T, id domain.AnalysisID) *domain.Analysis {
	t.Helper()
	a, err := f.store.Analyses().Get(context.Background(), id)
	if err != nil || a == nil {
		t.Fatalf("load analysis %s: (%v, %v)", id, a, err)
	}
	return a
}

func (f *fixture) document(t *testing.T) *documents.Document {
	t.Helper()
	d, err := f.store.Documents().Get(context.Background(), f.doc.ID)
	if err != nil || d == nil {
		t.Fatalf("load document: (%v, %v)", d, err)
	}
	return d
}

func TestRunCompletesAndMirrorsDocument(t *testing.T) {
	f := newFixture(t)
	f.extractor.report = &domain.Report{
		PlanOverview: domain.PlanOverview{Carrier: "Acme Health"},
	}

	a, err := f.svc.Run(context.Background(), f.ident, f.doc.ID)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if a.Status != domain.StatusQueued {
		t.Errorf("returned status = %s, want queued", a.Status)
	}

	// SyncScheduler ran the job inline, so the terminal state is visible.
	stored := f.analysis(t, a.ID)
	if stored.Status != domain.StatusComplete {
		t.Fatalf("status = %s, want complete", stored.Status)
	}
	if stored.Report == nil {
		t.Fatal("report missing after completion")
	}
	if stored.Report.PlanOverview.Carrier != "Acme Health" {
		t.Errorf("carrier = %q", stored.Report.PlanOverview.Carrier)
	}
	if stored.Report.PlanOverview.PlanName != domain.NotFound {
		t.Errorf("normalization skipped: plan name = %q", stored.Report.PlanOverview.PlanName)
	}
	if stored.ErrorMessage != "" {
		t.Errorf("unexpected error message %q", stored.ErrorMessage)
	}
	if got := f.document(t).Status; got != documents.StatusComplete {
		t.Errorf("document status = %s, want complete", got)
	}

	if f.extractor.gotURL != "https://blobs.test/get/uploads/abc" {
		t.Errorf("extractor url = %q", f.extractor.gotURL)
	}
	if f.extractor.gotType != "application/pdf" {
		t.Errorf("extractor content type = %q", f.extractor.gotType)
	}
}

func TestRunExtractionFailure(t *testing.T) {
	f := newFixture(t)
	f.extractor.err = errors.New("model timeout")

	a, err := f.svc.Run(context.Background(), f.ident, f.doc.ID)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	stored := f.analysis(t, a.ID)
	if stored.Status != domain.StatusError {
		t.Fatalf("status = %s, want error", stored.Status)
	}
	if stored.Report != nil {
		t.Error("report must be nil in error state")
	}
	if !strings.Contains(stored.ErrorMessage, "model timeout") {
		t.Errorf("error message %q does not carry the cause", stored.ErrorMessage)
	}
	if got := f.document(t).Status; got != documents.StatusError {
		t.Errorf("document status = %s, want error", got)
	}
}

func TestRunUnsupportedContentType(t *testing.T) {
	f := newFixture(t)
	f.extractor.err = apperrors.ErrUnsupportedContentType

	a, err := f.svc.Run(context.Background(), f.ident, f.doc.ID)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	stored := f.analysis(t, a.ID)
	if stored.Status != domain.StatusError {
		t.Fatalf("status = %s, want error", stored.Status)
	}
	if stored.ErrorMessage != apperrors.ErrUnsupportedContentType.Error() {
		t.Errorf("message = %q", stored.ErrorMessage)
	}
}

func TestRunRejectsConcurrentAnalysis(t *testing.T) {
	f := newFixture(t)
	// Pre-seed a non-terminal analysis so HasActive trips.
	queued := &domain.Analysis{
		ID:         domain.AnalysisID(uuid.New().String()),
		DocumentID: f.doc.ID,
		PracticeID: f.doc.PracticeID,
		Status:     domain.StatusQueued,
		CreatedBy:  f.ident.UserID,
		CreatedAt:  f.svc.Clock.Now(),
		UpdatedAt:  f.svc.Clock.Now(),
	}
	if err := f.store.Analyses().CreateQueued(context.Background(), queued); err != nil {
		t.Fatalf("seed analysis: %v", err)
	}

	if _, err := f.svc.Run(context.Background(), f.ident, f.doc.ID); !errors.Is(err, apperrors.ErrAnalysisInFlight) {
		t.Fatalf("expected ErrAnalysisInFlight, got %v", err)
	}

	// Once the in-flight run finishes, a re-run is allowed.
	f.svc.Fail(context.Background(), queued.ID, "gave up")
	if _, err := f.svc.Run(context.Background(), f.ident, f.doc.ID); err != nil {
		t.Fatalf("re-run after terminal state: %v", err)
	}
}

func TestRunURLResolutionFailsInPlace(t *testing.T) {
	f := newFixture(t)
	f.blobs.resolveErr = errors.New("blob vanished")

	_, err := f.svc.Run(context.Background(), f.ident, f.doc.ID)
	if !errors.Is(err, apperrors.ErrURLResolution) {
		t.Fatalf("expected ErrURLResolution, got %v", err)
	}

	// The queued row must not be left behind: it was failed in place.
	list, err := f.store.Analyses().ListByDocument(context.Background(), f.doc.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected 1 analysis, got %d", len(list))
	}
	if list[0].Status != domain.StatusError {
		t.Fatalf("orphaned analysis in status %s, want error", list[0].Status)
	}
	if f.extractor.gotURL != "" {
		t.Error("extractor must not run when the URL cannot be resolved")
	}
}

func TestRunAuthorization(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.svc.Run(ctx, identity.Identity{}, f.doc.ID); !errors.Is(err, apperrors.ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
	if _, err := f.svc.Run(ctx, f.ident, "missing"); !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	other := identity.Identity{UserID: "u2", Email: "stranger@example.com"}
	if _, err := f.svc.Access.GetOrCreate(ctx, other); err != nil {
		t.Fatalf("seed other practice: %v", err)
	}
	if _, err := f.svc.Run(ctx, other, f.doc.ID); !errors.Is(err, apperrors.ErrAccessDenied) {
		t.Fatalf("expected ErrAccessDenied, got %v", err)
	}
}

func TestMutationsNoOpAfterDeletion(t *testing.T) {
	f := newFixture(t)

	// The job observes the document (and its analyses) being deleted while
	// the extractor is running; the terminal write must be a silent no-op.
	f.extractor.beforeCall = func() {
		if err := f.store.Analyses().DeleteByDocument(context.Background(), f.doc.ID); err != nil {
			t.Fatalf("delete analyses: %v", err)
		}
		if err := f.store.Documents().Delete(context.Background(), f.doc.ID); err != nil {
			t.Fatalf("delete document: %v", err)
		}
	}

	a, err := f.svc.Run(context.Background(), f.ident, f.doc.ID)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	got, err := f.store.Analyses().Get(context.Background(), a.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != nil {
		t.Fatalf("deleted analysis resurrected: %+v", got)
	}
}

func TestListNewestFirstAndSoftFail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	times := []time.Time{
		time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
		time.Date(2026, 3, 1, 11, 0, 0, 0, time.UTC),
	}
	var ids []domain.AnalysisID
	for _, at := range times {
		a := &domain.Analysis{
			ID:         domain.AnalysisID(uuid.New().String()),
			DocumentID: f.doc.ID,
			PracticeID: f.doc.PracticeID,
			Status:     domain.StatusQueued,
			CreatedBy:  f.ident.UserID,
			CreatedAt:  at,
			UpdatedAt:  at,
		}
		if err := f.store.Analyses().CreateQueued(ctx, a); err != nil {
			t.Fatalf("seed: %v", err)
		}
		f.svc.Fail(ctx, a.ID, "seeded")
		ids = append(ids, a.ID)
	}

	list, err := f.svc.List(ctx, f.ident, f.doc.ID)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 analyses, got %d", len(list))
	}
	if list[0].ID != ids[1] || list[1].ID != ids[0] {
		t.Fatalf("not newest first: %s then %s", list[0].ID, list[1].ID)
	}

	empty, err := f.svc.List(ctx, identity.Identity{}, f.doc.ID)
	if err != nil || len(empty) != 0 {
		t.Fatalf("expected empty list for anonymous caller, got (%v, %v)", empty, err)
	}
}

func TestGetAccessControl(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a, err := f.svc.Run(ctx, f.ident, f.doc.ID)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if _, err := f.svc.Get(ctx, f.ident, a.ID); err != nil {
		t.Fatalf("owner Get: %v", err)
	}
	if _, err := f.svc.Get(ctx, identity.Identity{}, a.ID); !errors.Is(err, apperrors.ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
	if _, err := f.svc.Get(ctx, f.ident, "missing"); !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	other := identity.Identity{UserID: "u2", Email: "stranger@example.com"}
	if _, err := f.svc.Access.GetOrCreate(ctx, other); err != nil {
		t.Fatalf("seed other practice: %v", err)
	}
	if _, err := f.svc.Get(ctx, other, a.ID); !errors.Is(err, apperrors.ErrAccessDenied) {
		t.Fatalf("expected ErrAccessDenied, got %v", err)
	}
}

func TestOnFinishedHook(t *testing.T) {
	f := newFixture(t)
	var gotStatus domain.Status
	calls := 0
	f.svc.OnFinished = func(status domain.Status, _ time.Duration) {
		gotStatus = status
		calls++
	}

	if _, err := f.svc.Run(context.Background(), f.ident, f.doc.ID); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if calls != 1 || gotStatus != domain.StatusComplete {
		t.Fatalf("hook observed (%d, %s), want (1, complete)", calls, gotStatus)
	}
}
