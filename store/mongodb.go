package store

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	// ErrNotFound is returned by mutations whose filter matched nothing.
	ErrNotFound = errors.New("store: not found")
	// ErrDuplicate is returned when a unique index rejects a write.
	ErrDuplicate = errors.New("store: duplicate key")
)

type DB struct {
	Client   *mongo.Client
	Database *mongo.Database
}

func NewMongoDB(ctx context.Context, uri, dbName string) (*DB, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, err
	}
	slog.Info("connected to mongodb", "db", dbName)
	return &DB{
		Client:   client,
		Database: client.Database(dbName),
	}, nil
}

func (db *DB) Users() *mongo.Collection {
	return db.Database.Collection("users")
}

func (db *DB) Reviews() *mongo.Collection {
	return db.Database.Collection("reviews")
}

func (db *DB) Votes() *mongo.Collection {
	return db.Database.Collection("votes")
}

func (db *DB) ReadingList() *mongo.Collection {
	return db.Database.Collection("reading_list")
}

func (db *DB) VerificationTokens() *mongo.Collection {
	return db.Database.Collection("verification_tokens")
}

// EnsureIndexes creates the indexes the stores rely on. The unique ones carry
// invariants: one account per email, one vote per (voter, review), one
// reading list entry per (user, book).
func (db *DB) EnsureIndexes(ctx context.Context) error {
	specs := []struct {
		coll   *mongo.Collection
		models []mongo.IndexModel
	}{
		{db.Users(), []mongo.IndexModel{
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		}},
		{db.Votes(), []mongo.IndexModel{
			{Keys: bson.D{{Key: "voterId", Value: 1}, {Key: "reviewId", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "reviewId", Value: 1}}},
		}},
		{db.Reviews(), []mongo.IndexModel{
			{Keys: bson.D{{Key: "bookId", Value: 1}, {Key: "createdAt", Value: -1}}},
			{Keys: bson.D{{Key: "authorId", Value: 1}, {Key: "createdAt", Value: -1}}},
		}},
		{db.ReadingList(), []mongo.IndexModel{
			{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "bookId", Value: 1}}, Options: options.Index().SetUnique(true)},
		}},
		{db.VerificationTokens(), []mongo.IndexModel{
			{Keys: bson.D{{Key: "expiresAt", Value: 1}}, Options: options.Index().SetExpireAfterSeconds(0)},
		}},
	}
	for _, s := range specs {
		if _, err := s.coll.Indexes().CreateMany(ctx, s.models); err != nil {
			return err
		}
	}
	return nil
}

func (db *DB) Ping(ctx context.Context) error {
	return db.Client.Ping(ctx, nil)
}

func (db *DB) Disconnect(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return db.Client.Disconnect(ctx)
}

func dupOr(err error) error {
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicate
	}
	return err
}
