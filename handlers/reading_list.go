package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/kevinaaaquil/bookclub/apperr"
	"github.com/kevinaaaquil/bookclub/authz"
	"github.com/kevinaaaquil/bookclub/models"
	"github.com/kevinaaaquil/bookclub/respond"
	"github.com/kevinaaaquil/bookclub/store"
	"github.com/kevinaaaquil/bookclub/validation"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var errEntryNotFound = apperr.NotFound("Entry not found")

type ReadingListHandler struct {
	Entries   ReadingListStore
	Validator *validation.Validator
}

type BookSnapshotRequest struct {
	Title     string   `json:"title" validate:"required,max=500"`
	Authors   []string `json:"authors" validate:"omitempty,max=20,dive,max=200"`
	Thumbnail string   `json:"thumbnail" validate:"omitempty,url"`
}

type SaveEntryRequest struct {
	BookID   string              `json:"bookId" validate:"required,max=64"`
	Status   string              `json:"status" validate:"omitempty,oneof=want-to-read reading read"`
	Priority string              `json:"priority" validate:"omitempty,oneof=low medium high"`
	Notes    string              `json:"notes" validate:"max=1000"`
	BookData BookSnapshotRequest `json:"bookData"`
}

type UpdateEntryRequest struct {
	Status   *string `json:"status" validate:"omitempty,oneof=want-to-read reading read"`
	Priority *string `json:"priority" validate:"omitempty,oneof=low medium high"`
	Notes    *string `json:"notes" validate:"omitempty,max=1000"`
}

type ReadingListResponse struct {
	Entries []models.ReadingListEntry `json:"entries"`
}

// List returns the caller's reading list, optionally filtered by ?status=.
func (h *ReadingListHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(r)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	status := r.URL.Query().Get("status")
	switch status {
	case "", models.StatusWantToRead, models.StatusReading, models.StatusRead:
	default:
		respond.Error(w, r, apperr.Validation(validation.MsgInvalidData))
		return
	}
	entries, err := h.Entries.ReadingListByUser(r.Context(), userID, status)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.OK(w, ReadingListResponse{Entries: entries})
}

// Save adds a book to the caller's reading list or replaces its entry.
func (h *ReadingListHandler) Save(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(r)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	var req SaveEntryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respond.Error(w, r, err)
		return
	}
	if err := h.Validator.Validate(req); err != nil {
		respond.Error(w, r, err)
		return
	}
	if req.Status == "" {
		req.Status = models.StatusWantToRead
	}
	if req.Priority == "" {
		req.Priority = models.PriorityMedium
	}

	entry, created, err := h.Entries.UpsertReadingListEntry(r.Context(), &models.ReadingListEntry{
		UserID:   userID,
		BookID:   req.BookID,
		Status:   req.Status,
		Priority: req.Priority,
		Notes:    req.Notes,
		BookData: models.BookSnapshot{
			Title:     req.BookData.Title,
			Authors:   req.BookData.Authors,
			Thumbnail: req.BookData.Thumbnail,
		},
	})
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	if created {
		respond.Created(w, entry)
		return
	}
	respond.OK(w, entry)
}

func (h *ReadingListHandler) loadOwned(r *http.Request) (primitive.ObjectID, *models.ReadingListEntry, error) {
	userID, err := currentUser(r)
	if err != nil {
		return primitive.NilObjectID, nil, err
	}
	id, err := parseID(chi.URLParam(r, "id"), errEntryNotFound)
	if err != nil {
		return primitive.NilObjectID, nil, err
	}
	entry, err := h.Entries.ReadingListEntryByID(r.Context(), id)
	if err != nil {
		return primitive.NilObjectID, nil, err
	}
	if entry == nil {
		return primitive.NilObjectID, nil, errEntryNotFound
	}
	if !authz.CanModify(userID, entry) {
		return primitive.NilObjectID, nil, apperr.ErrForbidden
	}
	return userID, entry, nil
}

func (h *ReadingListHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, entry, err := h.loadOwned(r)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	var req UpdateEntryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respond.Error(w, r, err)
		return
	}
	if err := h.Validator.Validate(req); err != nil {
		respond.Error(w, r, err)
		return
	}
	updated, err := h.Entries.UpdateReadingListEntry(r.Context(), entry.ID, userID, models.ReadingListUpdate{
		Status:   req.Status,
		Priority: req.Priority,
		Notes:    req.Notes,
	})
	if errors.Is(err, store.ErrNotFound) {
		respond.Error(w, r, errEntryNotFound)
		return
	}
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.OK(w, updated)
}

func (h *ReadingListHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, entry, err := h.loadOwned(r)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	err = h.Entries.DeleteReadingListEntry(r.Context(), entry.ID, userID)
	if errors.Is(err, store.ErrNotFound) {
		respond.Error(w, r, errEntryNotFound)
		return
	}
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.Message(w, http.StatusOK, "Entry deleted")
}
