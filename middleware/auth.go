package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/kevinaaaquil/bookclub/apperr"
	"github.com/kevinaaaquil/bookclub/respond"
	"github.com/kevinaaaquil/bookclub/session"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type contextKey string

const UserIDKey contextKey = "userID"

// LoginPath is where anonymous requests for protected pages are sent.
const LoginPath = "/login"

// ProtectedPages lists the page patterns that require a session. A pattern
// is an exact path, or "prefix/*" for everything below prefix.
var ProtectedPages = []string{"/", "/favorites", "/profile", "/profile/*"}

// Auth resolves the session cookie on every request. A valid session puts
// the user id in the request context and is refreshed once past half its
// lifetime. Without one, requests for protected pages are redirected to the
// login page and all others continue anonymously. JSON clients are never
// redirected; RequireUser answers them with 401.
func Auth(sessions *session.Manager, protected []string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if userID, s, ok := resolve(sessions, r); ok {
				if _, err := sessions.Refresh(w, s); err != nil {
					slog.WarnContext(r.Context(), "session refresh failed", "error", err)
				}
				ctx := context.WithValue(r.Context(), UserIDKey, userID)
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}
			if IsProtected(protected, r.URL.Path) && !WantsJSON(r) {
				target := LoginPath + "?next=" + url.QueryEscape(r.URL.Path)
				http.Redirect(w, r, target, http.StatusSeeOther)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func resolve(sessions *session.Manager, r *http.Request) (primitive.ObjectID, session.Session, bool) {
	s, ok := sessions.Resolve(r)
	if !ok {
		return primitive.NilObjectID, session.Session{}, false
	}
	userID, err := primitive.ObjectIDFromHex(s.SubjectID)
	if err != nil {
		return primitive.NilObjectID, session.Session{}, false
	}
	return userID, s, true
}

// RequireUser answers 401 for requests the Auth middleware left anonymous.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := UserIDFromContext(r.Context()); !ok {
			respond.Error(w, r, apperr.ErrUnauthenticated)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// IsProtected reports whether path matches one of patterns.
func IsProtected(patterns []string, path string) bool {
	for _, p := range patterns {
		if prefix, ok := strings.CutSuffix(p, "/*"); ok {
			if path == prefix || strings.HasPrefix(path, prefix+"/") {
				return true
			}
			continue
		}
		if path == p {
			return true
		}
	}
	return false
}

// WantsJSON reports whether the client asked for a JSON response.
func WantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

func UserIDFromContext(ctx context.Context) (primitive.ObjectID, bool) {
	id, ok := ctx.Value(UserIDKey).(primitive.ObjectID)
	return id, ok && !id.IsZero()
}

// WithUserID returns ctx carrying userID, as Auth does for a valid session.
func WithUserID(ctx context.Context, userID primitive.ObjectID) context.Context {
	return context.WithValue(ctx, UserIDKey, userID)
}
