// Package memory provides an in-memory implementation of the repository
// ports. It keeps the same document/analysis lockstep semantics as the SQL
// stores and backs the service and router tests.
package memory

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/planscanhq/planscan/internal/domain/analyses"
	"github.com/planscanhq/planscan/internal/domain/documents"
	"github.com/planscanhq/planscan/internal/domain/practices"
)

type Store struct {
	mu          sync.Mutex
	practices   map[practices.PracticeID]practices.Practice
	memberships map[string]practices.Membership // keyed by user_id (unique)
	documents   map[documents.DocumentID]documents.Document
	analyses    map[analyses.AnalysisID]analyses.Analysis
}

func NewStore() *Store {
	return &Store{
		practices:   map[practices.PracticeID]practices.Practice{},
		memberships: map[string]practices.Membership{},
		documents:   map[documents.DocumentID]documents.Document{},
		analyses:    map[analyses.AnalysisID]analyses.Analysis{},
	}
}

// Practices returns the practice repository view of the store.
func (s *Store) Practices() *PracticeRepo { return &PracticeRepo{s} }

// Documents returns the document repository view of the store.
func (s *Store) Documents() *DocumentRepo { return &DocumentRepo{s} }

// Analyses returns the analysis repository view of the store.
func (s *Store) Analyses() *AnalysisRepo { return &AnalysisRepo{s} }

type PracticeRepo struct{ s *Store }

func (r *PracticeRepo) CreateWithOwner(_ context.Context, p *practices.Practice, m *practices.Membership) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, exists := r.s.memberships[m.UserID]; exists {
		return errDuplicateMembership
	}
	r.s.practices[p.ID] = *p
	r.s.memberships[m.UserID] = *m
	return nil
}

func (r *PracticeRepo) Get(_ context.Context, id practices.PracticeID) (*practices.Practice, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if p, ok := r.s.practices[id]; ok {
		cp := p
		return &cp, nil
	}
	return nil, nil
}

func (r *PracticeRepo) MembershipByUser(_ context.Context, userID string) (*practices.Membership, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if m, ok := r.s.memberships[userID]; ok {
		cp := m
		return &cp, nil
	}
	return nil, nil
}

func (r *PracticeRepo) MembershipFor(_ context.Context, practiceID practices.PracticeID, userID string) (*practices.Membership, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if m, ok := r.s.memberships[userID]; ok && m.PracticeID == practiceID {
		cp := m
		return &cp, nil
	}
	return nil, nil
}

type DocumentRepo struct{ s *Store }

func (r *DocumentRepo) Insert(_ context.Context, d *documents.Document) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.documents[d.ID] = *d
	return nil
}

func (r *DocumentRepo) Get(_ context.Context, id documents.DocumentID) (*documents.Document, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if d, ok := r.s.documents[id]; ok {
		cp := d
		return &cp, nil
	}
	return nil, nil
}

func (r *DocumentRepo) ListByPractice(_ context.Context, practiceID practices.PracticeID) ([]*documents.Document, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*documents.Document
	for _, d := range r.s.documents {
		if d.PracticeID == practiceID {
			cp := d
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (r *DocumentRepo) UpdateStatus(_ context.Context, id documents.DocumentID, status documents.Status, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if d, ok := r.s.documents[id]; ok {
		d.Status = status
		d.UpdatedAt = at
		r.s.documents[id] = d
	}
	return nil
}

func (r *DocumentRepo) Delete(_ context.Context, id documents.DocumentID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.documents, id)
	return nil
}

type AnalysisRepo struct{ s *Store }

func (r *AnalysisRepo) CreateQueued(_ context.Context, a *analyses.Analysis) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := *a
	cp.Status = analyses.StatusQueued
	r.s.analyses[a.ID] = cp
	if d, ok := r.s.documents[a.DocumentID]; ok {
		d.Status = documents.StatusQueued
		d.UpdatedAt = a.UpdatedAt
		r.s.documents[a.DocumentID] = d
	}
	return nil
}

func (r *AnalysisRepo) Get(_ context.Context, id analyses.AnalysisID) (*analyses.Analysis, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if a, ok := r.s.analyses[id]; ok {
		cp := a
		return &cp, nil
	}
	return nil, nil
}

func (r *AnalysisRepo) ListByDocument(_ context.Context, documentID documents.DocumentID) ([]*analyses.Analysis, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*analyses.Analysis
	for _, a := range r.s.analyses {
		if a.DocumentID == documentID {
			cp := a
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (r *AnalysisRepo) HasActive(_ context.Context, documentID documents.DocumentID) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, a := range r.s.analyses {
		if a.DocumentID == documentID && !a.Status.Terminal() {
			return true, nil
		}
	}
	return false, nil
}

func (r *AnalysisRepo) SetStatus(_ context.Context, id analyses.AnalysisID, status analyses.Status, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.patch(id, at, func(a *analyses.Analysis) {
		a.Status = status
	})
	return nil
}

func (r *AnalysisRepo) SetComplete(_ context.Context, id analyses.AnalysisID, report *analyses.Report, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.patch(id, at, func(a *analyses.Analysis) {
		a.Status = analyses.StatusComplete
		a.Report = report
		a.ErrorMessage = ""
	})
	return nil
}

func (r *AnalysisRepo) SetError(_ context.Context, id analyses.AnalysisID, message string, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.patch(id, at, func(a *analyses.Analysis) {
		a.Status = analyses.StatusError
		a.Report = nil
		a.ErrorMessage = message
	})
	return nil
}

func (r *AnalysisRepo) DeleteByDocument(_ context.Context, documentID documents.DocumentID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for id, a := range r.s.analyses {
		if a.DocumentID == documentID {
			delete(r.s.analyses, id)
		}
	}
	return nil
}

// patch mirrors the SQL stores: a no-op when the analysis is gone, and the
// parent document (when still present) is updated to the same status.
func (r *AnalysisRepo) patch(id analyses.AnalysisID, at time.Time, fn func(*analyses.Analysis)) {
	a, ok := r.s.analyses[id]
	if !ok {
		return
	}
	fn(&a)
	a.UpdatedAt = at
	r.s.analyses[id] = a
	if d, dok := r.s.documents[a.DocumentID]; dok {
		d.Status = documents.Status(a.Status)
		d.UpdatedAt = at
		r.s.documents[a.DocumentID] = d
	}
}

var errDuplicateMembership = errors.New("memory: duplicate membership for user")
