package domain

// Role names as seeded in the roles table.
const (
	RoleAdmin  = "Admin"
	RoleUser   = "User"
	RoleViewer = "Viewer"
)

// Roles lists every valid role name.
var Roles = []string{RoleAdmin, RoleUser, RoleViewer}

func IsValidRole(role string) bool {
	for _, r := range Roles {
		if r == role {
			return true
		}
	}
	return false
}

// Identity is the authenticated caller. Services receive it explicitly.
type Identity struct {
	UserID         uint
	OrganizationID uint
	Role           string
}

func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}

func (i Identity) CanWrite() bool {
	return i.Role == RoleAdmin || i.Role == RoleUser
}

// Require returns ErrUnauthenticated when the organization or user is missing.
func (i Identity) Require() error {
	if i.OrganizationID == 0 || i.UserID == 0 {
		return ErrUnauthenticated
	}
	return nil
}
