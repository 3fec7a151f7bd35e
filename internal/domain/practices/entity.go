package practices

import "time"

// PracticeID identifier type
type PracticeID string

// Role enum for memberships
type Role string

const (
	RoleOwner  Role = "owner"
	RoleMember Role = "member"
)

// Practice is the healthcare-provider tenant, the unit of data isolation.
type Practice struct {
	ID        PracticeID `json:"id"`
	Name      string     `json:"name"`
	OwnerID   string     `json:"owner_id"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Membership links an identity to a practice. A user holds at most one
// membership; the store enforces a unique key on user_id.
type Membership struct {
	ID         string     `json:"id"`
	PracticeID PracticeID `json:"practice_id"`
	UserID     string     `json:"user_id"`
	Role       Role       `json:"role"`
	CreatedAt  time.Time  `json:"created_at"`
}
