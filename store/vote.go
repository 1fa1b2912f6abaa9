package store

import (
	"context"
	"time"

	"github.com/kevinaaaquil/bookclub/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// The vote methods are single-document compare-and-swap steps. Together with
// the unique (voterId, reviewId) index they let callers toggle a vote without
// a read-modify-write.

// RetractVote deletes the voter's vote on reviewID if it has direction dir.
func (db *DB) RetractVote(ctx context.Context, voterID, reviewID primitive.ObjectID, dir models.Direction) (bool, error) {
	res, err := db.Votes().DeleteOne(ctx, bson.M{"voterId": voterID, "reviewId": reviewID, "direction": dir})
	if err != nil {
		return false, err
	}
	return res.DeletedCount == 1, nil
}

// FlipVote switches the voter's vote on reviewID to dir if a vote with the
// other direction exists. Returns nil when there was nothing to flip.
func (db *DB) FlipVote(ctx context.Context, voterID, reviewID primitive.ObjectID, dir models.Direction) (*models.Vote, error) {
	filter := bson.M{"voterId": voterID, "reviewId": reviewID, "direction": bson.M{"$ne": dir}}
	update := bson.M{"$set": bson.M{"direction": dir, "updatedAt": time.Now()}}
	var v models.Vote
	err := db.Votes().FindOneAndUpdate(ctx, filter, update, options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&v)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// InsertVote inserts a new vote. ErrDuplicate when the voter already voted.
func (db *DB) InsertVote(ctx context.Context, vote *models.Vote) (primitive.ObjectID, error) {
	res, err := db.Votes().InsertOne(ctx, vote)
	if err != nil {
		return primitive.NilObjectID, dupOr(err)
	}
	return res.InsertedID.(primitive.ObjectID), nil
}
