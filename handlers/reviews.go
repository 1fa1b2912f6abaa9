package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/kevinaaaquil/bookclub/apperr"
	"github.com/kevinaaaquil/bookclub/authz"
	"github.com/kevinaaaquil/bookclub/models"
	"github.com/kevinaaaquil/bookclub/respond"
	"github.com/kevinaaaquil/bookclub/store"
	"github.com/kevinaaaquil/bookclub/validation"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const recentReviewsLimit = 10

var errReviewNotFound = apperr.NotFound("Review not found")

type ReviewsHandler struct {
	Reviews   ReviewStore
	Validator *validation.Validator
}

type CreateReviewRequest struct {
	BookID  string `json:"bookId" validate:"required,max=64"`
	Rating  int    `json:"rating" validate:"required,gte=1,lte=5"`
	Comment string `json:"comment" validate:"required,max=2000"`
}

type UpdateReviewRequest struct {
	Rating  *int    `json:"rating" validate:"omitempty,gte=1,lte=5"`
	Comment *string `json:"comment" validate:"omitempty,min=1,max=2000"`
}

type ReviewsResponse struct {
	Reviews []models.ReviewWithVotes `json:"reviews"`
}

// List returns the most recent reviews across all books.
func (h *ReviewsHandler) List(w http.ResponseWriter, r *http.Request) {
	reviews, err := h.Reviews.RecentReviews(r.Context(), recentReviewsLimit)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.OK(w, ReviewsResponse{Reviews: reviews})
}

func (h *ReviewsHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(r)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	var req CreateReviewRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respond.Error(w, r, err)
		return
	}
	if err := h.Validator.Validate(req); err != nil {
		respond.Error(w, r, err)
		return
	}

	now := time.Now()
	review := &models.Review{
		BookID:    req.BookID,
		AuthorID:  userID,
		Rating:    req.Rating,
		Comment:   req.Comment,
		CreatedAt: now,
		UpdatedAt: now,
	}
	id, err := h.Reviews.InsertReview(r.Context(), review)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	review.ID = id
	respond.Created(w, review)
}

// loadOwned resolves the caller and the review named in the path, and
// checks that the caller wrote it.
func (h *ReviewsHandler) loadOwned(r *http.Request) (primitive.ObjectID, *models.Review, error) {
	userID, err := currentUser(r)
	if err != nil {
		return primitive.NilObjectID, nil, err
	}
	id, err := parseID(chi.URLParam(r, "id"), errReviewNotFound)
	if err != nil {
		return primitive.NilObjectID, nil, err
	}
	review, err := h.Reviews.ReviewByID(r.Context(), id)
	if err != nil {
		return primitive.NilObjectID, nil, err
	}
	if review == nil {
		return primitive.NilObjectID, nil, errReviewNotFound
	}
	if !authz.CanModify(userID, review) {
		return primitive.NilObjectID, nil, apperr.ErrForbidden
	}
	return userID, review, nil
}

func (h *ReviewsHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, review, err := h.loadOwned(r)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	var req UpdateReviewRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respond.Error(w, r, err)
		return
	}
	if req.Rating == nil && req.Comment == nil {
		respond.Error(w, r, apperr.Validation(validation.MsgMissingFields))
		return
	}
	if err := h.Validator.Validate(req); err != nil {
		respond.Error(w, r, err)
		return
	}

	updated, err := h.Reviews.UpdateReview(r.Context(), review.ID, userID, req.Rating, req.Comment)
	if errors.Is(err, store.ErrNotFound) {
		respond.Error(w, r, errReviewNotFound)
		return
	}
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.OK(w, updated)
}

// Delete removes a review and the votes cast on it.
func (h *ReviewsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, review, err := h.loadOwned(r)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	err = h.Reviews.DeleteReview(r.Context(), review.ID, userID)
	if errors.Is(err, store.ErrNotFound) {
		respond.Error(w, r, errReviewNotFound)
		return
	}
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.Message(w, http.StatusOK, "Review deleted")
}
