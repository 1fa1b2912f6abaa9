// Package authz decides whether an identity may modify a resource.
package authz

import "go.mongodb.org/mongo-driver/bson/primitive"

// Owned is implemented by resources that belong to exactly one user.
type Owned interface {
	OwnerID() primitive.ObjectID
}

// CanModify reports whether identity holds the owner capability for r.
// A zero identity or zero owner never matches.
func CanModify(identity primitive.ObjectID, r Owned) bool {
	if identity.IsZero() || r == nil {
		return false
	}
	owner := r.OwnerID()
	return !owner.IsZero() && owner == identity
}
