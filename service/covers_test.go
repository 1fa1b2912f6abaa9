package service

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/kevinaaaquil/bookclub/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memObjects struct {
	data  map[string][]byte
	types map[string]string
	puts  int
}

func newMemObjects() *memObjects {
	return &memObjects{data: map[string][]byte{}, types: map[string]string{}}
}

func (m *memObjects) GetObject(_ context.Context, key string) (io.ReadCloser, string, error) {
	d, ok := m.data[key]
	if !ok {
		return nil, "", ErrObjectNotFound
	}
	return io.NopCloser(bytes.NewReader(d)), m.types[key], nil
}

func (m *memObjects) PutObject(_ context.Context, key string, data []byte, contentType string) error {
	m.puts++
	m.data[key] = data
	m.types[key] = contentType
	return nil
}

type staticVolumes map[string]*models.Volume

func (s staticVolumes) Details(_ context.Context, id string) (*models.Volume, error) {
	v, ok := s[id]
	if !ok {
		return nil, ErrVolumeNotFound
	}
	return v, nil
}

func TestCoverMirror(t *testing.T) {
	var downloads atomic.Int32
	img := []byte("\x89PNG\r\n\x1a\nfake")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		downloads.Add(1)
		w.Header().Set("Content-Type", "image/png")
		w.Write(img)
	}))
	defer srv.Close()

	objects := newMemObjects()
	volumes := staticVolumes{
		"vol-1": {ID: "vol-1", ThumbnailURL: srv.URL + "/vol-1.png"},
		"bare":  {ID: "bare"},
	}
	m := NewCoverMirror(objects, volumes, nil)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		body, ct, err := m.Cover(ctx, "vol-1")
		require.NoError(t, err)
		got, _ := io.ReadAll(body)
		body.Close()
		assert.Equal(t, img, got)
		assert.Equal(t, "image/png", ct)
	}
	assert.Equal(t, int32(1), downloads.Load())
	assert.Equal(t, 1, objects.puts)
	assert.Contains(t, objects.data, "covers/vol-1")

	_, _, err := m.Cover(ctx, "bare")
	assert.ErrorIs(t, err, ErrNoCover)

	_, _, err = m.Cover(ctx, "unknown")
	assert.ErrorIs(t, err, ErrVolumeNotFound)
}
