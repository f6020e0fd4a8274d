// Package authz holds the ownership policy applied to every mutating route.
// The same predicate covers posts and comments; keeping it in one place is
// what guarantees the two resources are policed identically.
package authz

import "github.com/geocoder89/bloghub/internal/domain/user"

// Identity is the `{id, role}` pair the auth middleware resolves a bearer
// token into.
type Identity struct {
	ID   string
	Role string
}

// CanMutate reports whether the caller may update or delete a resource owned
// by ownerID: owners may, admins may, nobody else.
func CanMutate(identity Identity, ownerID string) bool {
	if identity.ID == "" {
		return false
	}

	return identity.ID == ownerID || identity.Role == user.RoleAdmin
}
