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

// UpsertReadingListEntry creates or replaces the user's entry for entry.BookID.
// created reports whether a new document was inserted.
func (db *DB) UpsertReadingListEntry(ctx context.Context, entry *models.ReadingListEntry) (*models.ReadingListEntry, bool, error) {
	filter := bson.M{"userId": entry.UserID, "bookId": entry.BookID}
	set := bson.M{
		"status":   entry.Status,
		"priority": entry.Priority,
		"notes":    entry.Notes,
		"bookData": entry.BookData,
	}
	update := bson.M{
		"$set":         set,
		"$setOnInsert": bson.M{"dateAdded": time.Now()},
	}
	if entry.Status == models.StatusRead {
		set["dateFinished"] = time.Now()
	} else {
		update["$unset"] = bson.M{"dateFinished": ""}
	}
	opts := options.Update().SetUpsert(true)
	res, err := db.ReadingList().UpdateOne(ctx, filter, update, opts)
	// two concurrent upserts can both miss and insert; the loser retries as an update
	if mongo.IsDuplicateKeyError(err) {
		res, err = db.ReadingList().UpdateOne(ctx, filter, update, opts)
	}
	if err != nil {
		return nil, false, err
	}
	var saved models.ReadingListEntry
	if err := db.ReadingList().FindOne(ctx, filter).Decode(&saved); err != nil {
		return nil, false, err
	}
	return &saved, res.UpsertedCount == 1, nil
}

// ReadingListByUser returns the user's entries, optionally filtered by status.
func (db *DB) ReadingListByUser(ctx context.Context, userID primitive.ObjectID, status string) ([]models.ReadingListEntry, error) {
	filter := bson.M{"userId": userID}
	if status != "" {
		filter["status"] = status
	}
	cur, err := db.ReadingList().Find(ctx, filter, options.Find().SetSort(bson.M{"dateAdded": -1}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	entries := []models.ReadingListEntry{}
	if err := cur.All(ctx, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func (db *DB) ReadingListEntryByID(ctx context.Context, id primitive.ObjectID) (*models.ReadingListEntry, error) {
	var e models.ReadingListEntry
	err := db.ReadingList().FindOne(ctx, bson.M{"_id": id}).Decode(&e)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// UpdateReadingListEntry applies upd to an entry owned by ownerID.
func (db *DB) UpdateReadingListEntry(ctx context.Context, id, ownerID primitive.ObjectID, upd models.ReadingListUpdate) (*models.ReadingListEntry, error) {
	set := bson.M{}
	update := bson.M{}
	if upd.Status != nil {
		set["status"] = *upd.Status
		if *upd.Status == models.StatusRead {
			set["dateFinished"] = time.Now()
		} else {
			update["$unset"] = bson.M{"dateFinished": ""}
		}
	}
	if upd.Priority != nil {
		set["priority"] = *upd.Priority
	}
	if upd.Notes != nil {
		set["notes"] = *upd.Notes
	}
	if len(set) > 0 {
		update["$set"] = set
	}
	if len(update) == 0 {
		e, err := db.ReadingListEntryByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if e == nil || e.UserID != ownerID {
			return nil, ErrNotFound
		}
		return e, nil
	}
	var e models.ReadingListEntry
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	err := db.ReadingList().FindOneAndUpdate(ctx, bson.M{"_id": id, "userId": ownerID}, update, opts).Decode(&e)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (db *DB) DeleteReadingListEntry(ctx context.Context, id, ownerID primitive.ObjectID) error {
	res, err := db.ReadingList().DeleteOne(ctx, bson.M{"_id": id, "userId": ownerID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
