package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/kevinaaaquil/bookclub/apperr"
	"github.com/kevinaaaquil/bookclub/models"
)

const maxCoverBytes = 5 << 20

// ErrNoCover is returned when a volume has no cover image to mirror.
var ErrNoCover = apperr.NotFound("Cover not found")

// ObjectStore is the subset of S3Service the cover mirror needs.
type ObjectStore interface {
	GetObject(ctx context.Context, key string) (io.ReadCloser, string, error)
	PutObject(ctx context.Context, key string, data []byte, contentType string) error
}

// VolumeSource resolves catalog volumes.
type VolumeSource interface {
	Details(ctx context.Context, id string) (*models.Volume, error)
}

// CoverMirror serves book covers from object storage, copying them from the
// catalog's image host on first request.
type CoverMirror struct {
	objects ObjectStore
	volumes VolumeSource
	http    *retryablehttp.Client
	logger  *slog.Logger
}

func NewCoverMirror(objects ObjectStore, volumes VolumeSource, logger *slog.Logger) *CoverMirror {
	client := retryablehttp.NewClient()
	client.RetryMax = 1
	client.Logger = nil
	if logger == nil {
		logger = slog.Default()
	}
	return &CoverMirror{objects: objects, volumes: volumes, http: client, logger: logger}
}

func coverKey(volumeID string) string {
	return "covers/" + volumeID
}

// Cover returns the cover image of volumeID. Caller must close the reader.
func (m *CoverMirror) Cover(ctx context.Context, volumeID string) (io.ReadCloser, string, error) {
	key := coverKey(volumeID)
	body, contentType, err := m.objects.GetObject(ctx, key)
	if err == nil {
		return body, contentType, nil
	}
	if !errors.Is(err, ErrObjectNotFound) {
		return nil, "", apperr.Upstream(err, "Failed to load cover")
	}

	vol, err := m.volumes.Details(ctx, volumeID)
	if err != nil {
		return nil, "", err
	}
	if vol.ThumbnailURL == "" {
		return nil, "", ErrNoCover
	}
	data, contentType, err := m.download(ctx, vol.ThumbnailURL)
	if err != nil {
		return nil, "", err
	}
	if err := m.objects.PutObject(ctx, key, data, contentType); err != nil {
		// still serve the image; the next request retries the upload
		m.logger.Warn("cover upload failed", "volume", volumeID, "error", err)
	}
	return io.NopCloser(bytes.NewReader(data)), contentType, nil
}

func (m *CoverMirror) download(ctx context.Context, u string) ([]byte, string, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, "", err
	}
	resp, err := m.http.Do(req)
	if err != nil {
		return nil, "", apperr.Upstream(err, "Failed to load cover")
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, "", ErrNoCover
	}
	if resp.StatusCode != http.StatusOK {
		return nil, "", apperr.Upstream(fmt.Errorf("cover host returned %d", resp.StatusCode), "Failed to load cover")
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxCoverBytes+1))
	if err != nil {
		return nil, "", apperr.Upstream(err, "Failed to load cover")
	}
	if len(data) > maxCoverBytes {
		return nil, "", apperr.Upstream(errors.New("cover too large"), "Failed to load cover")
	}
	contentType := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		contentType = http.DetectContentType(data)
	}
	return data, contentType, nil
}
