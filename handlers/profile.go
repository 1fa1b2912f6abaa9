package handlers

import (
	"net/http"

	"github.com/kevinaaaquil/bookclub/apperr"
	"github.com/kevinaaaquil/bookclub/models"
	"github.com/kevinaaaquil/bookclub/respond"
)

type ProfileHandler struct {
	Users   UserStore
	Reviews ReviewStore
}

type ProfileResponse struct {
	User    *models.User    `json:"user"`
	Reviews []models.Review `json:"reviews"`
}

// Get returns the caller's account and the reviews they wrote.
func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(r)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	user, err := h.Users.UserByID(r.Context(), userID)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	if user == nil {
		respond.Error(w, r, apperr.ErrUnauthenticated)
		return
	}
	reviews, err := h.Reviews.ReviewsByAuthor(r.Context(), userID)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.OK(w, ProfileResponse{User: user, Reviews: reviews})
}
