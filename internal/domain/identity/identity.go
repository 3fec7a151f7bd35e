package identity

import "strings"

// GuestEmailSuffix marks anonymous/guest identities. Tokens minted for
// guests carry a synthetic address under this domain.
const GuestEmailSuffix = "@guest.planscan.app"

// Identity is the authenticated principal resolved from a bearer token.
type Identity struct {
	UserID string
	Email  string
}

// IsZero reports whether no identity was attached to the request.
func (i Identity) IsZero() bool { return i.UserID == "" }

// IsGuest reports whether the identity belongs to the anonymous class.
func (i Identity) IsGuest() bool {
	return strings.HasSuffix(strings.ToLower(i.Email), GuestEmailSuffix)
}

// PracticeName derives a default practice name from the identity's email.
// Guests get a generic name since their addresses are synthetic.
func (i Identity) PracticeName() string {
	if i.IsGuest() {
		return "Guest Practice"
	}
	local := i.Email
	if at := strings.Index(local, "@"); at > 0 {
		local = local[:at]
	}
	if local == "" {
		return "My Practice"
	}
	return local + "'s Practice"
}
