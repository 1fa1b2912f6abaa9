package handlers

import (
	"html/template"
	"log/slog"
	"net/http"
	"strings"

	"github.com/kevinaaaquil/bookclub/middleware"
	"github.com/kevinaaaquil/bookclub/models"
)

var pages = template.Must(template.New("layout").Parse(`
{{define "top"}}<!doctype html>
<html lang="en"><head><meta charset="utf-8"><title>{{.Title}} · Bookclub</title></head>
<body>
<nav><a href="/">Home</a> <a href="/favorites">Favorites</a> <a href="/profile">Profile</a>
{{if .User}}<form method="post" action="/auth/logout" style="display:inline"><button>Log out</button></form>{{end}}</nav>
<h1>{{.Title}}</h1>{{end}}
{{define "bottom"}}</body></html>{{end}}

{{define "login"}}{{template "top" .}}
<form id="login">
<label>Email <input type="email" name="email" required></label>
<label>Password <input type="password" name="password" required></label>
<button>Log in</button>
<p id="error" role="alert"></p>
</form>
<script>
document.getElementById("login").addEventListener("submit", async (e) => {
  e.preventDefault();
  const f = new FormData(e.target);
  const res = await fetch("/auth/login", {
    method: "POST",
    headers: {"Content-Type": "application/json"},
    body: JSON.stringify({email: f.get("email"), password: f.get("password")}),
  });
  if (res.ok) { window.location = {{.Next}}; return; }
  const body = await res.json();
  document.getElementById("error").textContent = body.error;
});
</script>
{{template "bottom" .}}{{end}}

{{define "home"}}{{template "top" .}}
<p>Signed in as {{.User.Email}}.</p>
<h2>Recent reviews</h2>
<ul>{{range .Reviews}}<li>{{.BookID}}: {{.Rating}}/5 {{.Comment}} (+{{.Votes.Up}} / -{{.Votes.Down}})</li>{{else}}<li>No reviews yet.</li>{{end}}</ul>
{{template "bottom" .}}{{end}}

{{define "favorites"}}{{template "top" .}}
<ul>{{range .User.Favorites}}<li><a href="/books/{{.}}">{{.}}</a></li>{{else}}<li>No favorites yet.</li>{{end}}</ul>
{{template "bottom" .}}{{end}}

{{define "profile"}}{{template "top" .}}
<p>{{.User.Email}}{{if not .User.Verified}} (email not verified){{end}}</p>
<p>Member since {{.User.CreatedAt.Format "2006-01-02"}}</p>
{{template "bottom" .}}{{end}}
`))

type PagesHandler struct {
	Users   UserStore
	Reviews ReviewStore
}

type pageData struct {
	Title   string
	User    *models.User
	Next    string
	Reviews []models.ReviewWithVotes
}

// Login renders the login form. Signed-in visitors go straight to next.
func (h *PagesHandler) Login(w http.ResponseWriter, r *http.Request) {
	next := safeNext(r.URL.Query().Get("next"))
	if _, ok := middleware.UserIDFromContext(r.Context()); ok {
		http.Redirect(w, r, next, http.StatusSeeOther)
		return
	}
	render(w, r, "login", pageData{Title: "Log in", Next: next})
}

func (h *PagesHandler) Home(w http.ResponseWriter, r *http.Request) {
	user, ok := h.user(w, r)
	if !ok {
		return
	}
	reviews, err := h.Reviews.RecentReviews(r.Context(), recentReviewsLimit)
	if err != nil {
		slog.ErrorContext(r.Context(), "load recent reviews", "error", err)
	}
	render(w, r, "home", pageData{Title: "Bookclub", User: user, Reviews: reviews})
}

func (h *PagesHandler) Favorites(w http.ResponseWriter, r *http.Request) {
	if user, ok := h.user(w, r); ok {
		render(w, r, "favorites", pageData{Title: "Favorites", User: user})
	}
}

func (h *PagesHandler) Profile(w http.ResponseWriter, r *http.Request) {
	if user, ok := h.user(w, r); ok {
		render(w, r, "profile", pageData{Title: "Profile", User: user})
	}
}

// user loads the signed-in user. The auth middleware already redirected
// anonymous visitors; a session whose account is gone is sent to login.
func (h *PagesHandler) user(w http.ResponseWriter, r *http.Request) (*models.User, bool) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		http.Redirect(w, r, middleware.LoginPath, http.StatusSeeOther)
		return nil, false
	}
	user, err := h.Users.UserByID(r.Context(), userID)
	if err != nil {
		slog.ErrorContext(r.Context(), "load user for page", "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return nil, false
	}
	if user == nil {
		http.Redirect(w, r, middleware.LoginPath, http.StatusSeeOther)
		return nil, false
	}
	return user, true
}

func render(w http.ResponseWriter, r *http.Request, name string, data pageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pages.ExecuteTemplate(w, name, data); err != nil {
		slog.ErrorContext(r.Context(), "render page", "page", name, "error", err)
	}
}

// safeNext only allows same-site absolute paths as a post-login target.
func safeNext(next string) string {
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return "/"
	}
	return next
}
