package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Direction string

const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
)

func (d Direction) Valid() bool {
	return d == DirectionUp || d == DirectionDown
}

// Vote is unique per (voterId, reviewId).
type Vote struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	VoterID   primitive.ObjectID `bson:"voterId" json:"voterId"`
	ReviewID  primitive.ObjectID `bson:"reviewId" json:"reviewId"`
	Direction Direction          `bson:"direction" json:"direction"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// OwnerID implements authz.Owned.
func (v *Vote) OwnerID() primitive.ObjectID {
	return v.VoterID
}

// VoteOutcome is the result of casting a vote.
type VoteOutcome string

const (
	VoteAdded   VoteOutcome = "added"
	VoteUpdated VoteOutcome = "updated"
	VoteRemoved VoteOutcome = "removed"
)

// NextVoteOutcome is the toggle rule: no prior vote adds one, the same
// direction again retracts it, the opposite direction flips it.
func NextVoteOutcome(existing *Direction, cast Direction) VoteOutcome {
	switch {
	case existing == nil:
		return VoteAdded
	case *existing == cast:
		return VoteRemoved
	default:
		return VoteUpdated
	}
}
