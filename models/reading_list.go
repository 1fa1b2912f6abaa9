package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	StatusWantToRead = "want-to-read"
	StatusReading    = "reading"
	StatusRead       = "read"

	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

type BookSnapshot struct {
	Title     string   `bson:"title" json:"title"`
	Authors   []string `bson:"authors,omitempty" json:"authors,omitempty"`
	Thumbnail string   `bson:"thumbnail,omitempty" json:"thumbnail,omitempty"`
}

// ReadingListEntry is unique per (userId, bookId).
type ReadingListEntry struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID       primitive.ObjectID `bson:"userId" json:"userId"`
	BookID       string             `bson:"bookId" json:"bookId"`
	Status       string             `bson:"status" json:"status"`
	Priority     string             `bson:"priority" json:"priority"`
	Notes        string             `bson:"notes,omitempty" json:"notes,omitempty"`
	BookData     BookSnapshot       `bson:"bookData" json:"bookData"`
	DateAdded    time.Time          `bson:"dateAdded" json:"dateAdded"`
	DateFinished *time.Time         `bson:"dateFinished,omitempty" json:"dateFinished,omitempty"`
}

// OwnerID implements authz.Owned.
func (e *ReadingListEntry) OwnerID() primitive.ObjectID {
	return e.UserID
}

// ReadingListUpdate holds the optional fields of a PATCH.
type ReadingListUpdate struct {
	Status   *string
	Priority *string
	Notes    *string
}
