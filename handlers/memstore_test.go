package handlers

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kevinaaaquil/bookclub/models"
	"github.com/kevinaaaquil/bookclub/store"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// memStore is an in-memory Store with the same uniqueness and ownership
// filtering as the MongoDB store.
type memStore struct {
	mu       sync.Mutex
	users    map[primitive.ObjectID]*models.User
	reviews  map[primitive.ObjectID]*models.Review
	votes    map[primitive.ObjectID]*models.Vote
	entries  map[primitive.ObjectID]*models.ReadingListEntry
	tokens   map[string]models.VerificationToken
	dupVotes int // number of InsertVote calls to fail with ErrDuplicate
}

func newMemStore() *memStore {
	return &memStore{
		users:   map[primitive.ObjectID]*models.User{},
		reviews: map[primitive.ObjectID]*models.Review{},
		votes:   map[primitive.ObjectID]*models.Vote{},
		entries: map[primitive.ObjectID]*models.ReadingListEntry{},
		tokens:  map[string]models.VerificationToken{},
	}
}

func (m *memStore) UserByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			c := *u
			return &c, nil
		}
	}
	return nil, nil
}

func (m *memStore) UserByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, nil
	}
	c := *u
	c.Favorites = slices.Clone(u.Favorites)
	return &c, nil
}

func (m *memStore) CreateUser(_ context.Context, user *models.User) (primitive.ObjectID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == user.Email {
			return primitive.NilObjectID, store.ErrDuplicate
		}
	}
	c := *user
	if c.ID.IsZero() {
		c.ID = primitive.NewObjectID()
	}
	if c.Favorites == nil {
		c.Favorites = []string{}
	}
	m.users[c.ID] = &c
	return c.ID, nil
}

func (m *memStore) AddFavorite(_ context.Context, userID primitive.ObjectID, bookID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return nil, store.ErrNotFound
	}
	if !slices.Contains(u.Favorites, bookID) {
		u.Favorites = append(u.Favorites, bookID)
	}
	return slices.Clone(u.Favorites), nil
}

func (m *memStore) RemoveFavorite(_ context.Context, userID primitive.ObjectID, bookID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return nil, store.ErrNotFound
	}
	u.Favorites = slices.DeleteFunc(u.Favorites, func(id string) bool { return id == bookID })
	return slices.Clone(u.Favorites), nil
}

func (m *memStore) CreateVerificationToken(_ context.Context, userID primitive.ObjectID, ttl time.Duration) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tok := models.VerificationToken{Token: uuid.NewString(), UserID: userID, ExpiresAt: time.Now().Add(ttl)}
	m.tokens[tok.Token] = tok
	return tok.Token, nil
}

func (m *memStore) VerifyUser(_ context.Context, token string) (primitive.ObjectID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tok, ok := m.tokens[token]
	if !ok || time.Now().After(tok.ExpiresAt) {
		return primitive.NilObjectID, store.ErrNotFound
	}
	delete(m.tokens, token)
	u, ok := m.users[tok.UserID]
	if !ok {
		return primitive.NilObjectID, store.ErrNotFound
	}
	u.Verified = true
	return u.ID, nil
}

func (m *memStore) InsertReview(_ context.Context, review *models.Review) (primitive.ObjectID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := *review
	c.ID = primitive.NewObjectID()
	m.reviews[c.ID] = &c
	return c.ID, nil
}

func (m *memStore) ReviewByID(_ context.Context, id primitive.ObjectID) (*models.Review, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reviews[id]
	if !ok {
		return nil, nil
	}
	c := *r
	return &c, nil
}

func (m *memStore) withVotes(keep func(*models.Review) bool) []models.ReviewWithVotes {
	out := []models.ReviewWithVotes{}
	for _, r := range m.reviews {
		if !keep(r) {
			continue
		}
		rv := models.ReviewWithVotes{Review: *r}
		for _, v := range m.votes {
			if v.ReviewID != r.ID {
				continue
			}
			if v.Direction == models.DirectionUp {
				rv.Votes.Up++
			} else {
				rv.Votes.Down++
			}
		}
		out = append(out, rv)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (m *memStore) RecentReviews(_ context.Context, limit int64) ([]models.ReviewWithVotes, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.withVotes(func(*models.Review) bool { return true })
	if int64(len(out)) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memStore) ReviewsByBook(_ context.Context, bookID string) ([]models.ReviewWithVotes, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.withVotes(func(r *models.Review) bool { return r.BookID == bookID }), nil
}

func (m *memStore) ReviewsByAuthor(_ context.Context, authorID primitive.ObjectID) ([]models.Review, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Review{}
	for _, r := range m.reviews {
		if r.AuthorID == authorID {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (m *memStore) UpdateReview(_ context.Context, id, authorID primitive.ObjectID, rating *int, comment *string) (*models.Review, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reviews[id]
	if !ok || r.AuthorID != authorID {
		return nil, store.ErrNotFound
	}
	if rating != nil {
		r.Rating = *rating
	}
	if comment != nil {
		r.Comment = *comment
	}
	r.UpdatedAt = time.Now()
	c := *r
	return &c, nil
}

func (m *memStore) DeleteReview(_ context.Context, id, authorID primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reviews[id]
	if !ok || r.AuthorID != authorID {
		return store.ErrNotFound
	}
	delete(m.reviews, id)
	for vid, v := range m.votes {
		if v.ReviewID == id {
			delete(m.votes, vid)
		}
	}
	return nil
}

func (m *memStore) findVote(voterID, reviewID primitive.ObjectID) *models.Vote {
	for _, v := range m.votes {
		if v.VoterID == voterID && v.ReviewID == reviewID {
			return v
		}
	}
	return nil
}

func (m *memStore) RetractVote(_ context.Context, voterID, reviewID primitive.ObjectID, dir models.Direction) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v := m.findVote(voterID, reviewID)
	if v == nil || v.Direction != dir {
		return false, nil
	}
	delete(m.votes, v.ID)
	return true, nil
}

func (m *memStore) FlipVote(_ context.Context, voterID, reviewID primitive.ObjectID, dir models.Direction) (*models.Vote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v := m.findVote(voterID, reviewID)
	if v == nil || v.Direction == dir {
		return nil, nil
	}
	v.Direction = dir
	v.UpdatedAt = time.Now()
	c := *v
	return &c, nil
}

func (m *memStore) InsertVote(_ context.Context, vote *models.Vote) (primitive.ObjectID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.dupVotes > 0 {
		m.dupVotes--
		return primitive.NilObjectID, store.ErrDuplicate
	}
	if m.findVote(vote.VoterID, vote.ReviewID) != nil {
		return primitive.NilObjectID, store.ErrDuplicate
	}
	c := *vote
	c.ID = primitive.NewObjectID()
	m.votes[c.ID] = &c
	return c.ID, nil
}

func (m *memStore) votesFor(reviewID primitive.ObjectID) []models.Vote {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Vote
	for _, v := range m.votes {
		if v.ReviewID == reviewID {
			out = append(out, *v)
		}
	}
	return out
}

func (m *memStore) UpsertReadingListEntry(_ context.Context, entry *models.ReadingListEntry) (*models.ReadingListEntry, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	for _, e := range m.entries {
		if e.UserID == entry.UserID && e.BookID == entry.BookID {
			e.Status, e.Priority, e.Notes, e.BookData = entry.Status, entry.Priority, entry.Notes, entry.BookData
			e.DateFinished = nil
			if e.Status == models.StatusRead {
				e.DateFinished = &now
			}
			c := *e
			return &c, false, nil
		}
	}
	c := *entry
	c.ID = primitive.NewObjectID()
	c.DateAdded = now
	if c.Status == models.StatusRead {
		c.DateFinished = &now
	}
	m.entries[c.ID] = &c
	out := c
	return &out, true, nil
}

func (m *memStore) ReadingListByUser(_ context.Context, userID primitive.ObjectID, status string) ([]models.ReadingListEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.ReadingListEntry{}
	for _, e := range m.entries {
		if e.UserID == userID && (status == "" || e.Status == status) {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (m *memStore) ReadingListEntryByID(_ context.Context, id primitive.ObjectID) (*models.ReadingListEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[id]
	if !ok {
		return nil, nil
	}
	c := *e
	return &c, nil
}

func (m *memStore) UpdateReadingListEntry(_ context.Context, id, ownerID primitive.ObjectID, upd models.ReadingListUpdate) (*models.ReadingListEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[id]
	if !ok || e.UserID != ownerID {
		return nil, store.ErrNotFound
	}
	if upd.Status != nil {
		e.Status = *upd.Status
		e.DateFinished = nil
		if e.Status == models.StatusRead {
			now := time.Now()
			e.DateFinished = &now
		}
	}
	if upd.Priority != nil {
		e.Priority = *upd.Priority
	}
	if upd.Notes != nil {
		e.Notes = *upd.Notes
	}
	c := *e
	return &c, nil
}

func (m *memStore) DeleteReadingListEntry(_ context.Context, id, ownerID primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[id]
	if !ok || e.UserID != ownerID {
		return store.ErrNotFound
	}
	delete(m.entries, id)
	return nil
}
