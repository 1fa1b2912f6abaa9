package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/kevinaaaquil/bookclub/apperr"
	"github.com/kevinaaaquil/bookclub/middleware"
	"github.com/kevinaaaquil/bookclub/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const maxBodyBytes = 1 << 20

// UserStore is the user persistence used by the auth, favorites and profile
// handlers. *store.DB satisfies it.
type UserStore interface {
	UserByEmail(ctx context.Context, email string) (*models.User, error)
	UserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	CreateUser(ctx context.Context, user *models.User) (primitive.ObjectID, error)
	AddFavorite(ctx context.Context, userID primitive.ObjectID, bookID string) ([]string, error)
	RemoveFavorite(ctx context.Context, userID primitive.ObjectID, bookID string) ([]string, error)
	CreateVerificationToken(ctx context.Context, userID primitive.ObjectID, ttl time.Duration) (string, error)
	VerifyUser(ctx context.Context, token string) (primitive.ObjectID, error)
}

type ReviewStore interface {
	InsertReview(ctx context.Context, review *models.Review) (primitive.ObjectID, error)
	ReviewByID(ctx context.Context, id primitive.ObjectID) (*models.Review, error)
	RecentReviews(ctx context.Context, limit int64) ([]models.ReviewWithVotes, error)
	ReviewsByBook(ctx context.Context, bookID string) ([]models.ReviewWithVotes, error)
	ReviewsByAuthor(ctx context.Context, authorID primitive.ObjectID) ([]models.Review, error)
	UpdateReview(ctx context.Context, id, authorID primitive.ObjectID, rating *int, comment *string) (*models.Review, error)
	DeleteReview(ctx context.Context, id, authorID primitive.ObjectID) error
}

// VoteStore exposes the compare-and-swap steps of a vote toggle.
type VoteStore interface {
	RetractVote(ctx context.Context, voterID, reviewID primitive.ObjectID, dir models.Direction) (bool, error)
	FlipVote(ctx context.Context, voterID, reviewID primitive.ObjectID, dir models.Direction) (*models.Vote, error)
	InsertVote(ctx context.Context, vote *models.Vote) (primitive.ObjectID, error)
}

type ReadingListStore interface {
	UpsertReadingListEntry(ctx context.Context, entry *models.ReadingListEntry) (*models.ReadingListEntry, bool, error)
	ReadingListByUser(ctx context.Context, userID primitive.ObjectID, status string) ([]models.ReadingListEntry, error)
	ReadingListEntryByID(ctx context.Context, id primitive.ObjectID) (*models.ReadingListEntry, error)
	UpdateReadingListEntry(ctx context.Context, id, ownerID primitive.ObjectID, upd models.ReadingListUpdate) (*models.ReadingListEntry, error)
	DeleteReadingListEntry(ctx context.Context, id, ownerID primitive.ObjectID) error
}

// Catalog is the external book catalog. *service.Catalog satisfies it.
type Catalog interface {
	Search(ctx context.Context, query, field string, limit int) ([]models.Volume, error)
	Details(ctx context.Context, id string) (*models.Volume, error)
}

// Covers serves cover images. *service.CoverMirror satisfies it.
type Covers interface {
	Cover(ctx context.Context, volumeID string) (io.ReadCloser, string, error)
}

// Mailer sends verification emails. *service.Mailer satisfies it.
type Mailer interface {
	SendVerification(ctx context.Context, to, token string) error
}

// decodeJSON decodes the request body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return apperr.Validation("Missing fields")
		}
		return apperr.Validation("Invalid JSON")
	}
	return nil
}

// currentUser returns the identity the auth middleware attached to r.
func currentUser(r *http.Request) (primitive.ObjectID, error) {
	id, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		return primitive.NilObjectID, apperr.ErrUnauthenticated
	}
	return id, nil
}

// parseID parses a path id. Malformed ids cannot name a stored document, so
// they report notFound.
func parseID(raw string, notFound error) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(raw)
	if err != nil {
		return primitive.NilObjectID, notFound
	}
	return id, nil
}
