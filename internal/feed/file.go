package feed

import (
	"context"
	"net/http"
	"os"
	"strings"
)

// FileSource replays a feed document from disk, re-reading it on every fetch
type FileSource struct {
	path string
}

func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

func (s *FileSource) Fetch(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, &FetchError{Source: s.path, Err: err}
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, &FetchError{Source: s.path, Err: err}
	}
	return data, nil
}

// New picks a source for a feed location: http(s) URLs are fetched over HTTP,
// anything else is read from disk
func New(location string, httpClient *http.Client) Source {
	if strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://") {
		return NewHTTPSource(location, httpClient)
	}
	return NewFileSource(location)
}
