package practices

import "context"

// Repository port (interface for persistence). Lookups return (nil, nil)
// when no row matches; errors are reserved for store failures.
type Repository interface {
	// CreateWithOwner inserts the practice and its owner membership in one
	// transaction.
	CreateWithOwner(ctx context.Context, p *Practice, m *Membership) error
	Get(ctx context.Context, id PracticeID) (*Practice, error)
	MembershipByUser(ctx context.Context, userID string) (*Membership, error)
	MembershipFor(ctx context.Context, practiceID PracticeID, userID string) (*Membership, error)
}
