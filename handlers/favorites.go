package handlers

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"strings"

	"github.com/kevinaaaquil/bookclub/apperr"
	"github.com/kevinaaaquil/bookclub/respond"
	"github.com/kevinaaaquil/bookclub/store"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var errMissingBookID = apperr.Validation("Missing bookId")

type FavoritesHandler struct {
	Users UserStore
}

type FavoriteRequest struct {
	BookID string `json:"bookId"`
}

type FavoritesResponse struct {
	Favorites []string `json:"favorites"`
}

type FavoriteChangeResponse struct {
	Success   bool     `json:"success"`
	Favorites []string `json:"favorites"`
}

type FavoriteStatusResponse struct {
	IsFavorite bool `json:"isFavorite"`
}

func (h *FavoritesHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(r)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	favorites, err := h.favorites(r, userID)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.OK(w, FavoritesResponse{Favorites: favorites})
}

// Add puts a book in the caller's favorites. Adding a book twice is a no-op.
func (h *FavoritesHandler) Add(w http.ResponseWriter, r *http.Request) {
	h.change(w, r, h.Users.AddFavorite)
}

// Remove takes a book out of the caller's favorites. Removing a book that is
// not there is a no-op.
func (h *FavoritesHandler) Remove(w http.ResponseWriter, r *http.Request) {
	h.change(w, r, h.Users.RemoveFavorite)
}

type favoriteOp func(ctx context.Context, userID primitive.ObjectID, bookID string) ([]string, error)

func (h *FavoritesHandler) change(w http.ResponseWriter, r *http.Request, op favoriteOp) {
	userID, err := currentUser(r)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	bookID, err := bookIDFromRequest(w, r)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	favorites, err := op(r.Context(), userID, bookID)
	if errors.Is(err, store.ErrNotFound) {
		// the session outlived its account
		respond.Error(w, r, apperr.ErrUnauthenticated)
		return
	}
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.OK(w, FavoriteChangeResponse{Success: true, Favorites: favorites})
}

// Status reports whether ?bookId= is among the caller's favorites.
func (h *FavoritesHandler) Status(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(r)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	bookID := strings.TrimSpace(r.URL.Query().Get("bookId"))
	if bookID == "" {
		respond.Error(w, r, errMissingBookID)
		return
	}
	favorites, err := h.favorites(r, userID)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.OK(w, FavoriteStatusResponse{IsFavorite: slices.Contains(favorites, bookID)})
}

func (h *FavoritesHandler) favorites(r *http.Request, userID primitive.ObjectID) ([]string, error) {
	user, err := h.Users.UserByID(r.Context(), userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperr.ErrUnauthenticated
	}
	if user.Favorites == nil {
		return []string{}, nil
	}
	return user.Favorites, nil
}

// bookIDFromRequest reads bookId from the JSON body, falling back to the
// query string for clients that cannot send a DELETE body.
func bookIDFromRequest(w http.ResponseWriter, r *http.Request) (string, error) {
	if q := strings.TrimSpace(r.URL.Query().Get("bookId")); q != "" {
		return q, nil
	}
	var req FavoriteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		if errors.Is(err, apperr.ErrValidation) {
			return "", errMissingBookID
		}
		return "", err
	}
	req.BookID = strings.TrimSpace(req.BookID)
	if req.BookID == "" {
		return "", errMissingBookID
	}
	return req.BookID, nil
}
