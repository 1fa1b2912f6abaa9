package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/kevinaaaquil/bookclub/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func (db *DB) UserByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	err := db.Users().FindOne(ctx, bson.M{"email": email}).Decode(&u)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (db *DB) UserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	var u models.User
	err := db.Users().FindOne(ctx, bson.M{"_id": id}).Decode(&u)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// CreateUser inserts user. An existing email yields ErrDuplicate.
func (db *DB) CreateUser(ctx context.Context, user *models.User) (primitive.ObjectID, error) {
	// $addToSet fails on a null field
	if user.Favorites == nil {
		user.Favorites = []string{}
	}
	res, err := db.Users().InsertOne(ctx, user, options.InsertOne())
	if err != nil {
		return primitive.NilObjectID, dupOr(err)
	}
	return res.InsertedID.(primitive.ObjectID), nil
}

// AddFavorite adds bookID to the user's favorites set and returns the set.
func (db *DB) AddFavorite(ctx context.Context, userID primitive.ObjectID, bookID string) ([]string, error) {
	return db.updateFavorites(ctx, userID, bson.M{"$addToSet": bson.M{"favorites": bookID}})
}

// RemoveFavorite removes bookID from the user's favorites set and returns the set.
func (db *DB) RemoveFavorite(ctx context.Context, userID primitive.ObjectID, bookID string) ([]string, error) {
	return db.updateFavorites(ctx, userID, bson.M{"$pull": bson.M{"favorites": bookID}})
}

func (db *DB) updateFavorites(ctx context.Context, userID primitive.ObjectID, update bson.M) ([]string, error) {
	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(bson.M{"favorites": 1})
	var u models.User
	err := db.Users().FindOneAndUpdate(ctx, bson.M{"_id": userID}, update, opts).Decode(&u)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if u.Favorites == nil {
		return []string{}, nil
	}
	return u.Favorites, nil
}

// CreateVerificationToken stores a new single-use token for userID.
func (db *DB) CreateVerificationToken(ctx context.Context, userID primitive.ObjectID, ttl time.Duration) (string, error) {
	tok := models.VerificationToken{
		Token:     uuid.NewString(),
		UserID:    userID,
		ExpiresAt: time.Now().Add(ttl),
	}
	if _, err := db.VerificationTokens().InsertOne(ctx, tok); err != nil {
		return "", err
	}
	return tok.Token, nil
}

// VerifyUser consumes token and marks its user verified. Unknown or expired
// tokens yield ErrNotFound.
func (db *DB) VerifyUser(ctx context.Context, token string) (primitive.ObjectID, error) {
	var tok models.VerificationToken
	filter := bson.M{"_id": token, "expiresAt": bson.M{"$gt": time.Now()}}
	err := db.VerificationTokens().FindOneAndDelete(ctx, filter).Decode(&tok)
	if err == mongo.ErrNoDocuments {
		return primitive.NilObjectID, ErrNotFound
	}
	if err != nil {
		return primitive.NilObjectID, err
	}
	res, err := db.Users().UpdateOne(ctx, bson.M{"_id": tok.UserID}, bson.M{"$set": bson.M{"verified": true}})
	if err != nil {
		return primitive.NilObjectID, err
	}
	if res.MatchedCount == 0 {
		return primitive.NilObjectID, ErrNotFound
	}
	return tok.UserID, nil
}
