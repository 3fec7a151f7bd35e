package practices

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/planscanhq/planscan/internal/application"
	"github.com/planscanhq/planscan/internal/domain/apperrors"
	"github.com/planscanhq/planscan/internal/domain/identity"
	domain "github.com/planscanhq/planscan/internal/domain/practices"
)

// Service implements access-control use-cases. Every document/analysis
// operation goes through ResolveMembership or VerifyAccess before touching
// data.
type Service struct {
	Repo  domain.Repository
	Clock application.Clock
}

// GetOrCreate resolves the caller's practice, creating one lazily on first
// authenticated access. Idempotent: repeat calls return the same practice.
func (s *Service) GetOrCreate(ctx context.Context, ident identity.Identity) (*domain.Practice, error) {
	if ident.IsZero() {
		return nil, apperrors.ErrUnauthenticated
	}

	m, err := s.Repo.MembershipByUser(ctx, ident.UserID)
	if err != nil {
		return nil, fmt.Errorf("membership lookup: %w", err)
	}
	if m != nil {
		p, err := s.Repo.Get(ctx, m.PracticeID)
		if err != nil {
			return nil, fmt.Errorf("practice lookup: %w", err)
		}
		if p == nil {
			return nil, apperrors.ErrNotFound
		}
		return p, nil
	}

	now := s.Clock.Now()
	p := &domain.Practice{
		ID:        domain.PracticeID(uuid.New().String()),
		Name:      ident.PracticeName(),
		OwnerID:   ident.UserID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	owner := &domain.Membership{
		ID:         uuid.New().String(),
		PracticeID: p.ID,
		UserID:     ident.UserID,
		Role:       domain.RoleOwner,
		CreatedAt:  now,
	}
	if err := s.Repo.CreateWithOwner(ctx, p, owner); err != nil {
		// A concurrent first call may have won the unique user_id key;
		// fall back to the membership it created.
		if m, lerr := s.Repo.MembershipByUser(ctx, ident.UserID); lerr == nil && m != nil {
			return s.Repo.Get(ctx, m.PracticeID)
		}
		return nil, fmt.Errorf("create practice: %w", err)
	}
	return p, nil
}

// Current is the soft-fail read used by the UI while loading: it returns
// (nil, nil) for unauthenticated or membership-less callers instead of an
// error.
func (s *Service) Current(ctx context.Context, ident identity.Identity) (*domain.Practice, error) {
	if ident.IsZero() {
		return nil, nil
	}
	m, err := s.Repo.MembershipByUser(ctx, ident.UserID)
	if err != nil {
		return nil, fmt.Errorf("membership lookup: %w", err)
	}
	if m == nil {
		return nil, nil
	}
	return s.Repo.Get(ctx, m.PracticeID)
}

// ResolveMembership returns the caller's membership or ErrNoMembership.
func (s *Service) ResolveMembership(ctx context.Context, ident identity.Identity) (*domain.Membership, error) {
	if ident.IsZero() {
		return nil, apperrors.ErrUnauthenticated
	}
	m, err := s.Repo.MembershipByUser(ctx, ident.UserID)
	if err != nil {
		return nil, fmt.Errorf("membership lookup: %w", err)
	}
	if m == nil {
		return nil, apperrors.ErrNoMembership
	}
	return m, nil
}

// VerifyAccess fails with ErrAccessDenied unless a membership row links the
// user to the practice.
func (s *Service) VerifyAccess(ctx context.Context, practiceID domain.PracticeID, userID string) error {
	m, err := s.Repo.MembershipFor(ctx, practiceID, userID)
	if err != nil {
		return fmt.Errorf("membership lookup: %w", err)
	}
	if m == nil {
		return apperrors.ErrAccessDenied
	}
	return nil
}
