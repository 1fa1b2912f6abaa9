package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/kevinaaaquil/bookclub/apperr"
	"github.com/kevinaaaquil/bookclub/middleware"
	"github.com/kevinaaaquil/bookclub/models"
	"github.com/kevinaaaquil/bookclub/respond"
	"github.com/kevinaaaquil/bookclub/session"
	"github.com/kevinaaaquil/bookclub/store"
	"github.com/kevinaaaquil/bookclub/validation"
	"golang.org/x/crypto/bcrypt"
)

const (
	verificationTTL  = 24 * time.Hour
	maxPasswordBytes = 72
)

// dummyHash is compared against when the email is unknown so that a missing
// account and a wrong password take the same time.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("bookclub-dummy-password"), bcrypt.DefaultCost)

type AuthHandler struct {
	Users     UserStore
	Sessions  *session.Manager
	Validator *validation.Validator
	Mailer    Mailer // optional; nil skips verification mail
	Logger    *slog.Logger
}

type CredentialsRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

type AuthResponse struct {
	Message string       `json:"message"`
	User    *models.User `json:"user"`
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (h *AuthHandler) decodeCredentials(w http.ResponseWriter, r *http.Request) (CredentialsRequest, error) {
	var req CredentialsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return req, err
	}
	req.Email = normalizeEmail(req.Email)
	if err := h.Validator.Validate(req); err != nil {
		return req, err
	}
	// bcrypt's limit is in bytes, validator's max counts runes
	if len(req.Password) > maxPasswordBytes {
		return req, apperr.ValidationWithDetails(validation.MsgInvalidData,
			map[string]string{"password": "must not exceed 72 bytes"})
	}
	return req, nil
}

// Signup creates an account and logs it in.
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	req, err := h.decodeCredentials(w, r)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	existing, err := h.Users.UserByEmail(r.Context(), req.Email)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	if existing != nil {
		middleware.ObserveAuthFailure("email_taken")
		respond.Error(w, r, apperr.AlreadyExists("User already exists"))
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	user := &models.User{
		Email:     req.Email,
		Password:  string(hash),
		Favorites: []string{},
		CreatedAt: time.Now(),
	}
	id, err := h.Users.CreateUser(r.Context(), user)
	if errors.Is(err, store.ErrDuplicate) {
		// lost a race with a concurrent signup for the same email
		middleware.ObserveAuthFailure("email_taken")
		respond.Error(w, r, apperr.AlreadyExists("User already exists"))
		return
	}
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	user.ID = id

	if err := h.Sessions.Create(w, id.Hex()); err != nil {
		respond.Error(w, r, err)
		return
	}
	h.sendVerification(r.Context(), user)

	h.logger().InfoContext(r.Context(), "user signed up", "user_id", id.Hex())
	respond.OK(w, AuthResponse{Message: "User created", User: user})
}

func (h *AuthHandler) sendVerification(ctx context.Context, user *models.User) {
	if h.Mailer == nil {
		return
	}
	token, err := h.Users.CreateVerificationToken(ctx, user.ID, verificationTTL)
	if err != nil {
		h.logger().WarnContext(ctx, "create verification token", "user_id", user.ID.Hex(), "error", err)
		return
	}
	if err := h.Mailer.SendVerification(ctx, user.Email, token); err != nil {
		h.logger().WarnContext(ctx, "send verification email", "user_id", user.ID.Hex(), "error", err)
	}
}

// Login checks credentials and sets the session cookie. Unknown emails and
// wrong passwords get the same answer and no cookie.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req CredentialsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respond.Error(w, r, err)
		return
	}
	req.Email = normalizeEmail(req.Email)
	if req.Email == "" || req.Password == "" {
		respond.Error(w, r, apperr.Validation(validation.MsgMissingFields))
		return
	}

	user, err := h.Users.UserByEmail(r.Context(), req.Email)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	hash := dummyHash
	if user != nil {
		hash = []byte(user.Password)
	}
	if err := bcrypt.CompareHashAndPassword(hash, []byte(req.Password)); err != nil || user == nil {
		middleware.ObserveAuthFailure("invalid_credentials")
		respond.Error(w, r, apperr.ErrInvalidCredentials)
		return
	}

	if err := h.Sessions.Create(w, user.ID.Hex()); err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.OK(w, AuthResponse{Message: "Login successful", User: user})
}

// Logout clears the session cookie and sends the browser to the login page.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.Sessions.Destroy(w)
	http.Redirect(w, r, middleware.LoginPath, http.StatusSeeOther)
}

// Verify consumes an email verification token.
func (h *AuthHandler) Verify(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimSpace(r.URL.Query().Get("token"))
	if token == "" {
		respond.Error(w, r, apperr.Validation("Missing token"))
		return
	}
	userID, err := h.Users.VerifyUser(r.Context(), token)
	if errors.Is(err, store.ErrNotFound) {
		respond.Error(w, r, apperr.Validation("Invalid or expired token"))
		return
	}
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	h.logger().InfoContext(r.Context(), "email verified", "user_id", userID.Hex())
	respond.Message(w, http.StatusOK, "Email verified")
}

func (h *AuthHandler) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}
