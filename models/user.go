package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type User struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Email     string             `bson:"email" json:"email"`
	Password  string             `bson:"password" json:"-"` // bcrypt hash
	Favorites []string           `bson:"favorites" json:"favorites"`
	Verified  bool               `bson:"verified" json:"verified"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
}

// VerificationToken links an emailed token to the user it verifies.
// Expired documents are removed by a TTL index on expiresAt.
type VerificationToken struct {
	Token     string             `bson:"_id" json:"-"`
	UserID    primitive.ObjectID `bson:"userId" json:"userId"`
	ExpiresAt time.Time          `bson:"expiresAt" json:"expiresAt"`
}
