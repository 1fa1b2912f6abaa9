package store

import (
	"context"
	"log/slog"
	"time"

	"github.com/kevinaaaquil/bookclub/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func (db *DB) InsertReview(ctx context.Context, review *models.Review) (primitive.ObjectID, error) {
	res, err := db.Reviews().InsertOne(ctx, review, options.InsertOne())
	if err != nil {
		return primitive.NilObjectID, err
	}
	return res.InsertedID.(primitive.ObjectID), nil
}

func (db *DB) ReviewByID(ctx context.Context, id primitive.ObjectID) (*models.Review, error) {
	var r models.Review
	err := db.Reviews().FindOne(ctx, bson.M{"_id": id}).Decode(&r)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// RecentReviews returns the newest reviews across all books.
func (db *DB) RecentReviews(ctx context.Context, limit int64) ([]models.ReviewWithVotes, error) {
	return db.reviewsWithVotes(ctx, bson.M{}, limit)
}

// ReviewsByBook returns a book's reviews, newest first.
func (db *DB) ReviewsByBook(ctx context.Context, bookID string) ([]models.ReviewWithVotes, error) {
	return db.reviewsWithVotes(ctx, bson.M{"bookId": bookID}, 0)
}

// ReviewsByAuthor returns the reviews written by authorID, newest first.
func (db *DB) ReviewsByAuthor(ctx context.Context, authorID primitive.ObjectID) ([]models.Review, error) {
	cur, err := db.Reviews().Find(ctx, bson.M{"authorId": authorID}, options.Find().SetSort(bson.M{"createdAt": -1}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	reviews := []models.Review{}
	if err := cur.All(ctx, &reviews); err != nil {
		return nil, err
	}
	return reviews, nil
}

func (db *DB) reviewsWithVotes(ctx context.Context, filter bson.M, limit int64) ([]models.ReviewWithVotes, error) {
	countDir := func(dir models.Direction) bson.M {
		return bson.M{"$size": bson.M{"$filter": bson.M{
			"input": "$_votes",
			"cond":  bson.M{"$eq": bson.A{"$$this.direction", string(dir)}},
		}}}
	}
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: filter}},
		{{Key: "$sort", Value: bson.D{{Key: "createdAt", Value: -1}}}},
	}
	if limit > 0 {
		pipeline = append(pipeline, bson.D{{Key: "$limit", Value: limit}})
	}
	pipeline = append(pipeline,
		bson.D{{Key: "$lookup", Value: bson.M{
			"from":         db.Votes().Name(),
			"localField":   "_id",
			"foreignField": "reviewId",
			"as":           "_votes",
		}}},
		bson.D{{Key: "$addFields", Value: bson.M{"votes": bson.M{
			"up":   countDir(models.DirectionUp),
			"down": countDir(models.DirectionDown),
		}}}},
		bson.D{{Key: "$project", Value: bson.M{"_votes": 0}}},
	)
	cur, err := db.Reviews().Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	reviews := []models.ReviewWithVotes{}
	if err := cur.All(ctx, &reviews); err != nil {
		return nil, err
	}
	return reviews, nil
}

// UpdateReview sets the given fields on a review owned by authorID. Nil
// fields are left unchanged. ErrNotFound when no such review is owned by authorID.
func (db *DB) UpdateReview(ctx context.Context, id, authorID primitive.ObjectID, rating *int, comment *string) (*models.Review, error) {
	set := bson.M{"updatedAt": time.Now()}
	if rating != nil {
		set["rating"] = *rating
	}
	if comment != nil {
		set["comment"] = *comment
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var r models.Review
	err := db.Reviews().FindOneAndUpdate(ctx, bson.M{"_id": id, "authorId": authorID}, bson.M{"$set": set}, opts).Decode(&r)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// DeleteReview removes a review owned by authorID together with its votes.
// Once the review is gone a failed vote cleanup is only logged: listings
// join votes onto existing reviews, so leftover votes are never counted.
func (db *DB) DeleteReview(ctx context.Context, id, authorID primitive.ObjectID) error {
	res, err := db.Reviews().DeleteOne(ctx, bson.M{"_id": id, "authorId": authorID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	if _, err := db.Votes().DeleteMany(ctx, bson.M{"reviewId": id}); err != nil {
		slog.WarnContext(ctx, "delete votes of removed review", "review_id", id.Hex(), "error", err)
	}
	return nil
}
