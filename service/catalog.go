package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/kevinaaaquil/bookclub/apperr"
	"github.com/kevinaaaquil/bookclub/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/time/rate"
)

const (
	googleBooksBase   = "https://www.googleapis.com/books/v1/volumes"
	defaultMaxResults = 20
	maxMaxResults     = 40
	unknownAuthor     = "Unknown author"
)

// ErrVolumeNotFound is returned by Details for an id the catalog does not know.
var ErrVolumeNotFound = apperr.NotFound("Book not found")

var catalogLookups = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "bookclub_catalog_lookups_total",
		Help: "Catalog lookups by source (cache, remote) and result",
	},
	[]string{"source", "result"},
)

// Cache is the keyed TTL store the catalog keeps responses in. *store.Redis
// satisfies it.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

type CatalogOptions struct {
	BaseURL   string // defaults to the Google Books volumes endpoint
	APIKey    string
	RPS       float64 // outbound requests per second; 0 disables limiting
	Cache     Cache   // optional
	CacheTTL  time.Duration
	Timeout   time.Duration
	RetryMax  int
	RetryWait time.Duration
	Logger    *slog.Logger
}

// Catalog is a Google Books client. GETs are retried a bounded number of
// times and throttled by a shared limiter.
type Catalog struct {
	http     *retryablehttp.Client
	limiter  *rate.Limiter
	cache    Cache
	cacheTTL time.Duration
	baseURL  string
	apiKey   string
	logger   *slog.Logger
}

func NewCatalog(opts CatalogOptions) *Catalog {
	if opts.BaseURL == "" {
		opts.BaseURL = googleBooksBase
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.RetryMax < 0 {
		opts.RetryMax = 0
	}
	if opts.RetryWait <= 0 {
		opts.RetryWait = 200 * time.Millisecond
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 10 * time.Minute
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	client := retryablehttp.NewClient()
	client.HTTPClient.Timeout = opts.Timeout
	client.RetryMax = opts.RetryMax
	client.RetryWaitMin = opts.RetryWait
	client.RetryWaitMax = 4 * opts.RetryWait
	client.Logger = nil
	// hand the last response back so status codes can be mapped
	client.ErrorHandler = retryablehttp.PassthroughErrorHandler

	limiter := rate.NewLimiter(rate.Inf, 0)
	if opts.RPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RPS), int(opts.RPS)+1)
	}

	return &Catalog{
		http:     client,
		limiter:  limiter,
		cache:    opts.Cache,
		cacheTTL: opts.CacheTTL,
		baseURL:  strings.TrimRight(opts.BaseURL, "/"),
		apiKey:   opts.APIKey,
		logger:   opts.Logger,
	}
}

// SearchQuery builds the catalog query for a search of field: title,
// author, isbn, or anything else for a free-text search.
func SearchQuery(query, field string) string {
	query = strings.TrimSpace(query)
	switch field {
	case "title":
		return "intitle:" + query
	case "author":
		return "inauthor:" + query
	case "isbn":
		return "isbn:" + strings.ReplaceAll(query, "-", "")
	default:
		return query
	}
}

// Search returns up to limit volumes matching query in field.
func (c *Catalog) Search(ctx context.Context, query, field string, limit int) ([]models.Volume, error) {
	if strings.TrimSpace(query) == "" {
		return nil, apperr.Validation("Missing query")
	}
	if limit <= 0 {
		limit = defaultMaxResults
	}
	if limit > maxMaxResults {
		limit = maxMaxResults
	}
	q := url.Values{}
	q.Set("q", SearchQuery(query, field))
	q.Set("maxResults", strconv.Itoa(limit))

	var data volumesResp
	if err := c.getJSON(ctx, c.baseURL+"?"+c.withKey(q).Encode(), &data); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return []models.Volume{}, nil
		}
		return nil, err
	}
	books := make([]models.Volume, 0, len(data.Items))
	for _, item := range data.Items {
		books = append(books, item.volume())
	}
	return books, nil
}

// Details returns the volume with the given catalog id.
func (c *Catalog) Details(ctx context.Context, id string) (*models.Volume, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrVolumeNotFound
	}
	var item volumeItem
	u := c.baseURL + "/" + url.PathEscape(id)
	if q := c.withKey(url.Values{}); len(q) > 0 {
		u += "?" + q.Encode()
	}
	if err := c.getJSON(ctx, u, &item); err != nil {
		return nil, err
	}
	if item.ID == "" {
		return nil, ErrVolumeNotFound
	}
	v := item.volume()
	return &v, nil
}

func (c *Catalog) withKey(q url.Values) url.Values {
	if c.apiKey != "" {
		q.Set("key", c.apiKey)
	}
	return q
}

// getJSON fetches u into out, going through the cache when one is set. The
// api key is part of u but never part of the cache key.
func (c *Catalog) getJSON(ctx context.Context, u string, out any) error {
	key := cacheKey(u)
	if c.cache != nil {
		body, ok, err := c.cache.Get(ctx, key)
		if err != nil {
			c.logger.Warn("catalog cache read failed", "error", err)
		} else if ok && json.Unmarshal(body, out) == nil {
			catalogLookups.WithLabelValues("cache", "hit").Inc()
			return nil
		}
	}

	body, err := c.fetch(ctx, u)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		catalogLookups.WithLabelValues("remote", "error").Inc()
		return apperr.Upstream(err, "Failed to fetch books")
	}
	catalogLookups.WithLabelValues("remote", "ok").Inc()
	if c.cache != nil {
		if err := c.cache.Set(ctx, key, body, c.cacheTTL); err != nil {
			c.logger.Warn("catalog cache write failed", "error", err)
		}
	}
	return nil
}

func (c *Catalog) fetch(ctx context.Context, u string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, apperr.Upstream(err, "Failed to fetch books")
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		if resp != nil {
			resp.Body.Close()
		}
		catalogLookups.WithLabelValues("remote", "error").Inc()
		return nil, apperr.Upstream(err, "Failed to fetch books")
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		catalogLookups.WithLabelValues("remote", "not_found").Inc()
		return nil, ErrVolumeNotFound
	case resp.StatusCode != http.StatusOK:
		catalogLookups.WithLabelValues("remote", "error").Inc()
		return nil, apperr.Upstream(fmt.Errorf("google books returned %d", resp.StatusCode), "Failed to fetch books")
	}
	var raw json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		catalogLookups.WithLabelValues("remote", "error").Inc()
		return nil, apperr.Upstream(err, "Failed to fetch books")
	}
	return raw, nil
}

func cacheKey(u string) string {
	parsed, err := url.Parse(u)
	if err != nil {
		return "catalog:" + u
	}
	q := parsed.Query()
	q.Del("key")
	parsed.RawQuery = q.Encode()
	return "catalog:" + parsed.String()
}

type volumesResp struct {
	TotalItems int          `json:"totalItems"`
	Items      []volumeItem `json:"items"`
}

type volumeItem struct {
	ID         string `json:"id"`
	VolumeInfo struct {
		Title         string   `json:"title"`
		Subtitle      string   `json:"subtitle"`
		Authors       []string `json:"authors"`
		Publisher     string   `json:"publisher"`
		PublishedDate string   `json:"publishedDate"`
		Description   string   `json:"description"`
		PageCount     int      `json:"pageCount"`
		Categories    []string `json:"categories"`
		ImageLinks    struct {
			SmallThumbnail string `json:"smallThumbnail"`
			Thumbnail      string `json:"thumbnail"`
		} `json:"imageLinks"`
		IndustryIdentifiers []struct {
			Type       string `json:"type"`
			Identifier string `json:"identifier"`
		} `json:"industryIdentifiers"`
		AverageRating float64 `json:"averageRating"`
		RatingsCount  int     `json:"ratingsCount"`
	} `json:"volumeInfo"`
}

func (item volumeItem) volume() models.Volume {
	vi := item.VolumeInfo
	v := models.Volume{
		ID:            item.ID,
		Title:         vi.Title,
		Authors:       vi.Authors,
		Publisher:     vi.Publisher,
		PublishedDate: vi.PublishedDate,
		Description:   strings.TrimSpace(vi.Description),
		PageCount:     vi.PageCount,
		Categories:    vi.Categories,
		RatingAverage: vi.AverageRating,
		RatingCount:   vi.RatingsCount,
	}
	if vi.Subtitle != "" {
		v.Title = v.Title + ": " + vi.Subtitle
	}
	if len(v.Authors) == 0 {
		v.Authors = []string{unknownAuthor}
	}
	for _, id := range vi.IndustryIdentifiers {
		if id.Type == "ISBN_13" || id.Type == "ISBN_10" {
			v.ISBN = id.Identifier
			break
		}
	}
	thumb := vi.ImageLinks.Thumbnail
	if thumb == "" {
		thumb = vi.ImageLinks.SmallThumbnail
	}
	if thumb != "" {
		v.ThumbnailURL = strings.Replace(thumb, "http://", "https://", 1)
	} else if v.ISBN != "" {
		v.ThumbnailURL = openLibraryCoverURL(v.ISBN, "M")
	}
	return v
}

// openLibraryCoverURL returns a direct cover image URL by ISBN. Size: S, M or L.
func openLibraryCoverURL(isbn, size string) string {
	clean := strings.ReplaceAll(strings.TrimSpace(isbn), "-", "")
	if clean == "" {
		return ""
	}
	return "https://covers.openlibrary.org/b/isbn/" + url.PathEscape(clean) + "-" + size + ".jpg"
}
