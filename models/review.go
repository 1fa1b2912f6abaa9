package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Review struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	BookID    string             `bson:"bookId" json:"bookId"` // catalog volume id
	AuthorID  primitive.ObjectID `bson:"authorId" json:"authorId"`
	Rating    int                `bson:"rating" json:"rating"`
	Comment   string             `bson:"comment" json:"comment"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// OwnerID implements authz.Owned.
func (r *Review) OwnerID() primitive.ObjectID {
	return r.AuthorID
}

// VoteTally counts the votes cast on one review.
type VoteTally struct {
	Up   int64 `bson:"up" json:"up"`
	Down int64 `bson:"down" json:"down"`
}

// ReviewWithVotes is a review as listed, with its tally.
type ReviewWithVotes struct {
	Review `bson:",inline"`
	Votes  VoteTally `bson:"votes" json:"votes"`
}
