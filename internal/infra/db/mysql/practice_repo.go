package mysql

import (
	"context"
	"database/sql"

	domain "github.com/planscanhq/planscan/internal/domain/practices"
)

type PracticeRepository struct {
	db *sql.DB
}

func NewPracticeRepository(db *sql.DB) *PracticeRepository {
	return &PracticeRepository{db: db}
}

// CreateWithOwner inserts the practice and its owner membership in one
// transaction. The unique key on practice_members.user_id makes a losing
// concurrent create fail here instead of producing a second practice.
func (r *PracticeRepository) CreateWithOwner(ctx context.Context, p *domain.Practice, m *domain.Membership) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	const insPractice = `
INSERT INTO practices (id, name, owner_id, created_at, updated_at)
VALUES (?,?,?,?,?);`
	if _, err := tx.ExecContext(ctx, insPractice,
		p.ID, p.Name, p.OwnerID, timeOrNow(p.CreatedAt), timeOrNow(p.UpdatedAt),
	); err != nil {
		return err
	}

	const insMember = `
INSERT INTO practice_members (id, practice_id, user_id, role, created_at)
VALUES (?,?,?,?,?);`
	if _, err := tx.ExecContext(ctx, insMember,
		m.ID, m.PracticeID, m.UserID, m.Role, timeOrNow(m.CreatedAt),
	); err != nil {
		return err
	}
	return tx.Commit()
}

// Get by ID
func (r *PracticeRepository) Get(ctx context.Context, id domain.PracticeID) (*domain.Practice, error) {
	const q = `
SELECT id, name, owner_id, created_at, updated_at
FROM practices
WHERE id=? LIMIT 1;`
	var p domain.Practice
	err := r.db.QueryRowContext(ctx, q, id).Scan(
		&p.ID, &p.Name, &p.OwnerID, &p.CreatedAt, &p.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// MembershipByUser returns the user's single membership, nil when absent
func (r *PracticeRepository) MembershipByUser(ctx context.Context, userID string) (*domain.Membership, error) {
	const q = `
SELECT id, practice_id, user_id, role, created_at
FROM practice_members
WHERE user_id=? LIMIT 1;`
	return r.scanMembership(r.db.QueryRowContext(ctx, q, userID))
}

// MembershipFor returns the row linking user and practice, nil when absent
func (r *PracticeRepository) MembershipFor(ctx context.Context, practiceID domain.PracticeID, userID string) (*domain.Membership, error) {
	const q = `
SELECT id, practice_id, user_id, role, created_at
FROM practice_members
WHERE practice_id=? AND user_id=? LIMIT 1;`
	return r.scanMembership(r.db.QueryRowContext(ctx, q, practiceID, userID))
}

func (r *PracticeRepository) scanMembership(row *sql.Row) (*domain.Membership, error) {
	var m domain.Membership
	err := row.Scan(&m.ID, &m.PracticeID, &m.UserID, &m.Role, &m.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}
