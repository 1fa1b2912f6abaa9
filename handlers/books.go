package handlers

import (
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/kevinaaaquil/bookclub/apperr"
	"github.com/kevinaaaquil/bookclub/models"
	"github.com/kevinaaaquil/bookclub/respond"
)

type BooksHandler struct {
	Catalog Catalog
	Reviews ReviewStore
	Covers  Covers // nil when object storage is not configured
}

type SearchResponse struct {
	Books []models.Volume `json:"books"`
}

// Search queries the catalog. type selects the field: title, author, isbn
// or all.
func (h *BooksHandler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := strings.TrimSpace(q.Get("q"))
	if query == "" {
		respond.Error(w, r, apperr.Validation("Missing query"))
		return
	}
	limit, _ := strconv.Atoi(q.Get("maxResults"))
	books, err := h.Catalog.Search(r.Context(), query, q.Get("type"), limit)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.OK(w, SearchResponse{Books: books})
}

func (h *BooksHandler) Get(w http.ResponseWriter, r *http.Request) {
	vol, err := h.Catalog.Details(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.OK(w, vol)
}

// BookReviews lists a book's reviews, newest first, with their vote tallies.
func (h *BooksHandler) BookReviews(w http.ResponseWriter, r *http.Request) {
	reviews, err := h.Reviews.ReviewsByBook(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.OK(w, ReviewsResponse{Reviews: reviews})
}

// Cover streams the book's cover image from the mirror.
func (h *BooksHandler) Cover(w http.ResponseWriter, r *http.Request) {
	if h.Covers == nil {
		respond.Error(w, r, apperr.Unavailable("Covers not configured"))
		return
	}
	body, contentType, err := h.Covers.Cover(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	defer body.Close()
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "public, max-age=86400")
	if _, err := io.Copy(w, body); err != nil {
		slog.WarnContext(r.Context(), "stream cover", "error", err)
	}
}
