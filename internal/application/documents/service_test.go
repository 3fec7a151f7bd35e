package documents

import (
	"context"
	"errors"
	"testing"
	"time"

	apppractices "github.com/planscanhq/planscan/internal/application/practices"
	"github.com/planscanhq/planscan/internal/domain/apperrors"
	domain "github.com/planscanhq/planscan/internal/domain/documents"
	"github.com/planscanhq/planscan/internal/domain/identity"
	"github.com/planscanhq/planscan/internal/infra/db/memory"
)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

// fakeBlobs records calls and can fail URL resolution.
type fakeBlobs struct {
	calls      []string
	resolveErr error
}

func (f *fakeBlobs) IssueUploadTarget(_ context.Context, ref string, _ time.Duration) (string, error) {
	f.calls = append(f.calls, "issue:"+ref)
	return "https://blobs.test/put/" + ref, nil
}

func (f *fakeBlobs) ResolveURL(_ context.Context, ref string, _ time.Duration) (string, error) {
	f.calls = append(f.calls, "resolve:"+ref)
	if f.resolveErr != nil {
		return "", f.resolveErr
	}
	return "https://blobs.test/get/" + ref, nil
}

func (f *fakeBlobs) Delete(_ context.Context, ref string) error {
	f.calls = append(f.calls, "delete:"+ref)
	return nil
}

// orderedDeleter wraps the analysis repo to record cascade ordering against
// the blob store call log.
type orderedDeleter struct {
	inner AnalysisDeleter
	blobs *fakeBlobs
}

func (o *orderedDeleter) DeleteByDocument(ctx context.Context, id domain.DocumentID) error {
	o.blobs.calls = append(o.blobs.calls, "analyses:"+string(id))
	return o.inner.DeleteByDocument(ctx, id)
}

type fixture struct {
	svc   *Service
	store *memory.Store
	blobs *fakeBlobs
	ident identity.Identity
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	clk := fixedClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	access := &apppractices.Service{Repo: store.Practices(), Clock: clk}
	blobs := &fakeBlobs{}
	svc := &Service{
		Repo:      store.Documents(),
		Analyses:  &orderedDeleter{inner: store.Analyses(), blobs: blobs},
		Blobs:     blobs,
		Access:    access,
		Clock:     clk,
		UploadTTL: 15 * time.Minute,
		URLTTL:    time.Hour,
	}
	ident := identity.Identity{UserID: "u1", Email: "dr.lee@example.com"}
	if _, err := access.GetOrCreate(context.Background(), ident); err != nil {
		t.Fatalf("seed practice: %v", err)
	}
	return &fixture{svc: svc, store: store, blobs: blobs, ident: ident}
}

func (f *fixture) create(t *testing.T) *domain.Document {
	t.Helper()
	d, err := f.svc.Create(context.Background(), f.ident, CreateCommand{
		StorageRef:  "uploads/abc",
		Filename:    "plan.pdf",
		ContentType: "application/pdf",
		SizeBytes:   8192,
	})
	if err != nil {
		t.Fatalf("create document: %v", err)
	}
	return d
}

func TestGenerateUploadTarget(t *testing.T) {
	f := newFixture(t)

	target, err := f.svc.GenerateUploadTarget(context.Background(), f.ident)
	if err != nil {
		t.Fatalf("GenerateUploadTarget: %v", err)
	}
	if target.URL == "" || target.Ref == "" {
		t.Fatalf("incomplete target: %+v", target)
	}
	wantExpiry := f.svc.Clock.Now().Add(f.svc.UploadTTL)
	if !target.ExpiresAt.Equal(wantExpiry) {
		t.Errorf("expiry = %v, want %v", target.ExpiresAt, wantExpiry)
	}

	if _, err := f.svc.GenerateUploadTarget(context.Background(), identity.Identity{}); !errors.Is(err, apperrors.ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
}

func TestCreateRequiresMembership(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Create(context.Background(), identity.Identity{UserID: "u2", Email: "other@example.com"}, CreateCommand{
		StorageRef: "uploads/xyz", Filename: "x.pdf", ContentType: "application/pdf",
	})
	if !errors.Is(err, apperrors.ErrNoMembership) {
		t.Fatalf("expected ErrNoMembership, got %v", err)
	}

	d := f.create(t)
	if d.Status != domain.StatusUploaded {
		t.Errorf("new document status = %s, want uploaded", d.Status)
	}
	if d.UploadedBy != "u1" {
		t.Errorf("uploaded_by = %q", d.UploadedBy)
	}
}

func TestListSoftFailsAndResolvesURLs(t *testing.T) {
	f := newFixture(t)
	f.create(t)

	// Unauthenticated and membership-less callers get empty lists.
	for _, ident := range []identity.Identity{{}, {UserID: "nobody", Email: "n@example.com"}} {
		list, err := f.svc.List(context.Background(), ident)
		if err != nil {
			t.Fatalf("List(%+v): %v", ident, err)
		}
		if len(list) != 0 {
			t.Fatalf("expected empty list for %+v, got %d", ident, len(list))
		}
	}

	list, err := f.svc.List(context.Background(), f.ident)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected 1 document, got %d", len(list))
	}
	if list[0].DownloadURL != "https://blobs.test/get/uploads/abc" {
		t.Errorf("download url = %q", list[0].DownloadURL)
	}
}

func TestListDegradesWhenResolutionFails(t *testing.T) {
	f := newFixture(t)
	f.create(t)
	f.blobs.resolveErr = errors.New("blob missing")

	list, err := f.svc.List(context.Background(), f.ident)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 1 || list[0].DownloadURL != "" {
		t.Fatalf("expected listing with empty url, got %+v", list)
	}
}

func TestGetAccessControl(t *testing.T) {
	f := newFixture(t)
	d := f.create(t)

	if _, err := f.svc.Get(context.Background(), f.ident, d.ID); err != nil {
		t.Fatalf("owner Get: %v", err)
	}
	if _, err := f.svc.Get(context.Background(), f.ident, "missing"); !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	other := identity.Identity{UserID: "u2", Email: "stranger@example.com"}
	if _, err := f.svc.Access.GetOrCreate(context.Background(), other); err != nil {
		t.Fatalf("seed other practice: %v", err)
	}
	if _, err := f.svc.Get(context.Background(), other, d.ID); !errors.Is(err, apperrors.ErrAccessDenied) {
		t.Fatalf("expected ErrAccessDenied, got %v", err)
	}
}

func TestDeleteCascadesInOrder(t *testing.T) {
	f := newFixture(t)
	d := f.create(t)
	f.blobs.calls = nil

	if err := f.svc.Delete(context.Background(), f.ident, d.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	want := []string{"analyses:" + string(d.ID), "delete:uploads/abc"}
	if len(f.blobs.calls) != len(want) {
		t.Fatalf("calls = %v, want %v", f.blobs.calls, want)
	}
	for i := range want {
		if f.blobs.calls[i] != want[i] {
			t.Fatalf("call %d = %q, want %q", i, f.blobs.calls[i], want[i])
		}
	}

	got, err := f.store.Documents().Get(context.Background(), d.ID)
	if err != nil || got != nil {
		t.Fatalf("document should be gone, got (%v, %v)", got, err)
	}
}

// memoryCache is a map-backed URLCache used to verify cache hits skip the
// blob store.
type memoryCache struct{ m map[string]string }

func (c *memoryCache) Get(_ context.Context, ref string) (string, bool) {
	v, ok := c.m[ref]
	return v, ok
}

func (c *memoryCache) Set(_ context.Context, ref, url string) { c.m[ref] = url }

func TestResolveURLUsesCache(t *testing.T) {
	f := newFixture(t)
	f.svc.URLs = &memoryCache{m: map[string]string{}}
	f.create(t)

	if _, err := f.svc.List(context.Background(), f.ident); err != nil {
		t.Fatalf("first List: %v", err)
	}
	resolves := len(f.blobs.calls)

	if _, err := f.svc.List(context.Background(), f.ident); err != nil {
		t.Fatalf("second List: %v", err)
	}
	if len(f.blobs.calls) != resolves {
		t.Fatalf("second listing hit the blob store: %v", f.blobs.calls)
	}
}
