package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/kevinaaaquil/bookclub/middleware"
	"github.com/kevinaaaquil/bookclub/respond"
	"github.com/kevinaaaquil/bookclub/session"
	"github.com/kevinaaaquil/bookclub/validation"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Store is everything the routes persist through. *store.DB satisfies it.
type Store interface {
	UserStore
	ReviewStore
	VoteStore
	ReadingListStore
}

// Pinger reports whether a backing service is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type RouterConfig struct {
	Store       Store
	Sessions    *session.Manager
	Catalog     Catalog
	Covers      Covers             // optional
	Mailer      Mailer             // optional
	RateCounter middleware.Counter // optional; nil disables auth rate limiting
	LoginPerMin int
	CORSOrigins []string
	TrustProxy  bool // take the client address from proxy headers
	Health      []Pinger
	Logger      *slog.Logger
}

func NewRouter(cfg RouterConfig) http.Handler {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	v := validation.New()

	auth := &AuthHandler{Users: cfg.Store, Sessions: cfg.Sessions, Validator: v, Mailer: cfg.Mailer, Logger: cfg.Logger}
	reviews := &ReviewsHandler{Reviews: cfg.Store, Validator: v}
	votes := &VotesHandler{Reviews: cfg.Store, Votes: cfg.Store}
	favorites := &FavoritesHandler{Users: cfg.Store}
	profile := &ProfileHandler{Users: cfg.Store, Reviews: cfg.Store}
	books := &BooksHandler{Catalog: cfg.Catalog, Reviews: cfg.Store, Covers: cfg.Covers}
	readingList := &ReadingListHandler{Entries: cfg.Store, Validator: v}
	pagesH := &PagesHandler{Users: cfg.Store, Reviews: cfg.Store}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	if cfg.TrustProxy {
		r.Use(chimw.RealIP)
	}
	r.Use(middleware.Logging(cfg.Logger))
	r.Use(chimw.Recoverer)
	r.Use(middleware.Metrics())
	if len(cfg.CORSOrigins) > 0 {
		r.Use(middleware.CORS(cfg.CORSOrigins))
	}
	r.Use(middleware.Auth(cfg.Sessions, middleware.ProtectedPages))

	r.Get("/health", health(cfg.Health))
	r.Handle("/metrics", promhttp.Handler())

	r.Get("/login", pagesH.Login)
	r.Get("/", pagesH.Home)
	r.Get("/favorites", negotiate(middleware.RequireUser(http.HandlerFunc(favorites.List)), pagesH.Favorites))
	r.Get("/profile", negotiate(middleware.RequireUser(http.HandlerFunc(profile.Get)), pagesH.Profile))

	r.Route("/auth", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middleware.RateLimit(cfg.RateCounter, middleware.RateLimitConfig{Prefix: "auth", RequestsPerMinute: cfg.LoginPerMin}))
			r.Post("/signup", auth.Signup)
			r.Post("/login", auth.Login)
		})
		r.Post("/logout", auth.Logout)
		r.Get("/verify", auth.Verify)
	})

	r.Get("/reviews", reviews.List)
	r.Get("/books/search", books.Search)
	r.Get("/books/{id}", books.Get)
	r.Get("/books/{id}/reviews", books.BookReviews)
	r.Get("/books/{id}/cover", books.Cover)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireUser)
		r.Post("/reviews", reviews.Create)
		r.Put("/reviews/{id}", reviews.Update)
		r.Delete("/reviews/{id}", reviews.Delete)

		r.Post("/votes", votes.Cast)

		r.Post("/favorites", favorites.Add)
		r.Delete("/favorites", favorites.Remove)
		r.Get("/favorites/status", favorites.Status)

		r.Get("/reading-list", readingList.List)
		r.Post("/reading-list", readingList.Save)
		r.Patch("/reading-list/{id}", readingList.Update)
		r.Delete("/reading-list/{id}", readingList.Delete)
	})

	return r
}

// negotiate serves api to JSON clients and page to browsers.
func negotiate(api http.Handler, page http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if middleware.WantsJSON(r) {
			api.ServeHTTP(w, r)
			return
		}
		page(w, r)
	}
}

func health(deps []Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		for _, d := range deps {
			if err := d.Ping(ctx); err != nil {
				slog.WarnContext(r.Context(), "health check failed", "error", err)
				respond.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		respond.OK(w, map[string]string{"status": "ok"})
	}
}
