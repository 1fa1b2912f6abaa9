package store

import (
	"context"
	"testing"
	"time"

	"github.com/kevinaaaquil/bookclub/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func mockDB(mt *mtest.T) *DB {
	return &DB{Client: mt.Client, Database: mt.DB}
}

func duplicateKey() bson.D {
	return mtest.CreateWriteErrorsResponse(mtest.WriteError{
		Index:   0,
		Code:    11000,
		Message: "E11000 duplicate key error",
	})
}

func TestUserStore(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()

	mt.Run("create user", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse())
		u := &models.User{ID: primitive.NewObjectID(), Email: "a@example.com", Password: "hash"}
		id, err := mockDB(mt).CreateUser(ctx, u)
		require.NoError(mt, err)
		assert.Equal(mt, u.ID, id)
		assert.NotNil(mt, u.Favorites)
	})

	mt.Run("duplicate email", func(mt *mtest.T) {
		mt.AddMockResponses(duplicateKey())
		u := &models.User{ID: primitive.NewObjectID(), Email: "a@example.com"}
		_, err := mockDB(mt).CreateUser(ctx, u)
		assert.ErrorIs(mt, err, ErrDuplicate)
	})

	mt.Run("missing user", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "test.users", mtest.FirstBatch))
		u, err := mockDB(mt).UserByEmail(ctx, "nobody@example.com")
		require.NoError(mt, err)
		assert.Nil(mt, u)
	})

	mt.Run("found user", func(mt *mtest.T) {
		id := primitive.NewObjectID()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "test.users", mtest.FirstBatch, bson.D{
			{Key: "_id", Value: id},
			{Key: "email", Value: "a@example.com"},
			{Key: "password", Value: "hash"},
			{Key: "favorites", Value: bson.A{"vol-1"}},
		}))
		u, err := mockDB(mt).UserByID(ctx, id)
		require.NoError(mt, err)
		require.NotNil(mt, u)
		assert.Equal(mt, "a@example.com", u.Email)
		assert.Equal(mt, []string{"vol-1"}, u.Favorites)
	})

	mt.Run("add favorite", func(mt *mtest.T) {
		mt.AddMockResponses(bson.D{
			{Key: "ok", Value: 1},
			{Key: "value", Value: bson.D{{Key: "favorites", Value: bson.A{"vol-1", "vol-2"}}}},
		})
		favs, err := mockDB(mt).AddFavorite(ctx, primitive.NewObjectID(), "vol-2")
		require.NoError(mt, err)
		assert.Equal(mt, []string{"vol-1", "vol-2"}, favs)
	})

	mt.Run("remove favorite from unknown user", func(mt *mtest.T) {
		mt.AddMockResponses(bson.D{{Key: "ok", Value: 1}, {Key: "value", Value: nil}})
		_, err := mockDB(mt).RemoveFavorite(ctx, primitive.NewObjectID(), "vol-1")
		assert.ErrorIs(mt, err, ErrNotFound)
	})

	mt.Run("verify unknown token", func(mt *mtest.T) {
		mt.AddMockResponses(bson.D{{Key: "ok", Value: 1}, {Key: "value", Value: nil}})
		_, err := mockDB(mt).VerifyUser(ctx, "missing")
		assert.ErrorIs(mt, err, ErrNotFound)
	})
}

func TestVoteStore(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()
	voter, review := primitive.NewObjectID(), primitive.NewObjectID()

	mt.Run("insert duplicate", func(mt *mtest.T) {
		mt.AddMockResponses(duplicateKey())
		_, err := mockDB(mt).InsertVote(ctx, &models.Vote{
			ID: primitive.NewObjectID(), VoterID: voter, ReviewID: review, Direction: models.DirectionUp,
		})
		assert.ErrorIs(mt, err, ErrDuplicate)
	})

	mt.Run("retract matching vote", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}))
		removed, err := mockDB(mt).RetractVote(ctx, voter, review, models.DirectionUp)
		require.NoError(mt, err)
		assert.True(mt, removed)
	})

	mt.Run("retract nothing", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}))
		removed, err := mockDB(mt).RetractVote(ctx, voter, review, models.DirectionUp)
		require.NoError(mt, err)
		assert.False(mt, removed)
	})

	mt.Run("flip", func(mt *mtest.T) {
		mt.AddMockResponses(bson.D{
			{Key: "ok", Value: 1},
			{Key: "value", Value: bson.D{
				{Key: "_id", Value: primitive.NewObjectID()},
				{Key: "voterId", Value: voter},
				{Key: "reviewId", Value: review},
				{Key: "direction", Value: "down"},
				{Key: "updatedAt", Value: time.Now()},
			}},
		})
		v, err := mockDB(mt).FlipVote(ctx, voter, review, models.DirectionDown)
		require.NoError(mt, err)
		require.NotNil(mt, v)
		assert.Equal(mt, models.DirectionDown, v.Direction)
	})

	mt.Run("flip with no prior vote", func(mt *mtest.T) {
		mt.AddMockResponses(bson.D{{Key: "ok", Value: 1}, {Key: "value", Value: nil}})
		v, err := mockDB(mt).FlipVote(ctx, voter, review, models.DirectionDown)
		require.NoError(mt, err)
		assert.Nil(mt, v)
	})
}

func TestReviewStore(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()
	author := primitive.NewObjectID()

	mt.Run("update not owned", func(mt *mtest.T) {
		mt.AddMockResponses(bson.D{{Key: "ok", Value: 1}, {Key: "value", Value: nil}})
		rating := 4
		_, err := mockDB(mt).UpdateReview(ctx, primitive.NewObjectID(), author, &rating, nil)
		assert.ErrorIs(mt, err, ErrNotFound)
	})

	mt.Run("delete cascades votes", func(mt *mtest.T) {
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 3}),
		)
		require.NoError(mt, mockDB(mt).DeleteReview(ctx, primitive.NewObjectID(), author))
	})

	mt.Run("delete succeeds when vote cleanup fails", func(mt *mtest.T) {
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}),
			mtest.CreateCommandErrorResponse(mtest.CommandError{Code: 2, Name: "BadValue", Message: "cleanup failed"}),
		)
		require.NoError(mt, mockDB(mt).DeleteReview(ctx, primitive.NewObjectID(), author))
	})

	mt.Run("delete missing", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}))
		err := mockDB(mt).DeleteReview(ctx, primitive.NewObjectID(), author)
		assert.ErrorIs(mt, err, ErrNotFound)
	})

	mt.Run("list with tallies", func(mt *mtest.T) {
		id := primitive.NewObjectID()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "test.reviews", mtest.FirstBatch, bson.D{
			{Key: "_id", Value: id},
			{Key: "bookId", Value: "vol-1"},
			{Key: "authorId", Value: author},
			{Key: "rating", Value: 5},
			{Key: "comment", Value: "great"},
			{Key: "votes", Value: bson.D{{Key: "up", Value: int64(2)}, {Key: "down", Value: int64(1)}}},
		}))
		reviews, err := mockDB(mt).ReviewsByBook(ctx, "vol-1")
		require.NoError(mt, err)
		require.Len(mt, reviews, 1)
		assert.Equal(mt, id, reviews[0].ID)
		assert.Equal(mt, models.VoteTally{Up: 2, Down: 1}, reviews[0].Votes)
	})
}

func TestReadingListStore(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()
	user := primitive.NewObjectID()

	mt.Run("delete not owned", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}))
		err := mockDB(mt).DeleteReadingListEntry(ctx, primitive.NewObjectID(), user)
		assert.ErrorIs(mt, err, ErrNotFound)
	})

	mt.Run("list by status", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "test.reading_list", mtest.FirstBatch, bson.D{
			{Key: "_id", Value: primitive.NewObjectID()},
			{Key: "userId", Value: user},
			{Key: "bookId", Value: "vol-1"},
			{Key: "status", Value: models.StatusReading},
			{Key: "priority", Value: models.PriorityHigh},
			{Key: "bookData", Value: bson.D{{Key: "title", Value: "Dune"}}},
		}))
		entries, err := mockDB(mt).ReadingListByUser(ctx, user, models.StatusReading)
		require.NoError(mt, err)
		require.Len(mt, entries, 1)
		assert.Equal(mt, "Dune", entries[0].BookData.Title)
	})
}
