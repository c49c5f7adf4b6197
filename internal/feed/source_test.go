package feed

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPSource_Fetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Contains(t, r.Header.Get("Accept"), "xml")
		w.Write([]byte("<doc/>"))
	}))
	defer srv.Close()

	src := NewHTTPSource(srv.URL, nil)
	defer src.Close()

	body, err := src.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "<doc/>", string(body))
}

func TestHTTPSource_BadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewHTTPSource(srv.URL, nil).Fetch(context.Background())
	require.Error(t, err)

	var fe *FetchError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, http.StatusServiceUnavailable, fe.StatusCode)
	assert.False(t, fe.Timeout())
}

func TestHTTPSource_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := NewHTTPSource(srv.URL, nil).Fetch(ctx)
	require.Error(t, err)

	var fe *FetchError
	require.True(t, errors.As(err, &fe))
	assert.True(t, fe.Timeout())
}

func TestFileSource_Fetch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feed.xml")
	require.NoError(t, os.WriteFile(path, []byte("<doc/>"), 0o644))

	body, err := NewFileSource(path).Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "<doc/>", string(body))

	_, err = NewFileSource(filepath.Join(t.TempDir(), "missing.xml")).Fetch(context.Background())
	var fe *FetchError
	assert.True(t, errors.As(err, &fe))
}

func TestNew_PicksTransport(t *testing.T) {
	assert.IsType(t, &HTTPSource{}, New("https://example.com/feed.xml", nil))
	assert.IsType(t, &FileSource{}, New("testdata/feed.xml", nil))
}
