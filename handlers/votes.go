package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/kevinaaaquil/bookclub/apperr"
	"github.com/kevinaaaquil/bookclub/middleware"
	"github.com/kevinaaaquil/bookclub/models"
	"github.com/kevinaaaquil/bookclub/respond"
	"github.com/kevinaaaquil/bookclub/store"
	"github.com/kevinaaaquil/bookclub/validation"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const maxVoteAttempts = 3

type VotesHandler struct {
	Reviews ReviewStore
	Votes   VoteStore
}

type CastVoteRequest struct {
	ReviewID  string `json:"reviewId"`
	Direction string `json:"direction"`
}

type VoteResponse struct {
	Message string       `json:"message"`
	Vote    *models.Vote `json:"vote,omitempty"`
}

// Cast toggles the caller's vote on a review: a first vote is added, the
// same direction again removes it, the other direction flips it.
func (h *VotesHandler) Cast(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(r)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	var req CastVoteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respond.Error(w, r, err)
		return
	}
	dir := models.Direction(req.Direction)
	if req.ReviewID == "" || !dir.Valid() {
		respond.Error(w, r, apperr.Validation(validation.MsgInvalidData))
		return
	}
	reviewID, err := primitive.ObjectIDFromHex(req.ReviewID)
	if err != nil {
		respond.Error(w, r, apperr.Validation(validation.MsgInvalidData))
		return
	}
	review, err := h.Reviews.ReviewByID(r.Context(), reviewID)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	if review == nil {
		respond.Error(w, r, errReviewNotFound)
		return
	}

	outcome, vote, err := castVote(r.Context(), h.Votes, userID, reviewID, dir)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	middleware.ObserveVote(string(outcome))

	switch outcome {
	case models.VoteAdded:
		respond.Created(w, VoteResponse{Message: "Vote added", Vote: vote})
	case models.VoteUpdated:
		respond.OK(w, VoteResponse{Message: "Vote updated", Vote: vote})
	default:
		respond.OK(w, VoteResponse{Message: "Vote removed"})
	}
}

// castVote applies the toggle as a sequence of single-document swaps:
// retract a vote in the same direction, else flip one in the other
// direction, else insert. The unique (voter, review) index turns a racing
// insert into a duplicate-key error, after which the sequence starts over.
func castVote(ctx context.Context, votes VoteStore, voterID, reviewID primitive.ObjectID, dir models.Direction) (models.VoteOutcome, *models.Vote, error) {
	for attempt := 0; attempt < maxVoteAttempts; attempt++ {
		removed, err := votes.RetractVote(ctx, voterID, reviewID, dir)
		if err != nil {
			return "", nil, err
		}
		if removed {
			return models.VoteRemoved, nil, nil
		}

		flipped, err := votes.FlipVote(ctx, voterID, reviewID, dir)
		if err != nil {
			return "", nil, err
		}
		if flipped != nil {
			return models.VoteUpdated, flipped, nil
		}

		now := time.Now()
		vote := &models.Vote{
			VoterID:   voterID,
			ReviewID:  reviewID,
			Direction: dir,
			CreatedAt: now,
			UpdatedAt: now,
		}
		id, err := votes.InsertVote(ctx, vote)
		if errors.Is(err, store.ErrDuplicate) {
			continue
		}
		if err != nil {
			return "", nil, err
		}
		vote.ID = id
		return models.VoteAdded, vote, nil
	}
	return "", nil, apperr.Conflict("Vote changed concurrently, try again")
}
