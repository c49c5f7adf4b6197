// Package feed provides the transports that deliver raw feed payloads.
package feed

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Source fetches one raw feed payload per call
type Source interface {
	Fetch(ctx context.Context) ([]byte, error)
}

// FetchError reports a transport failure or timeout for a single fetch
type FetchError struct {
	Source     string // URL or file path
	StatusCode int    // HTTP status, 0 when no response was received
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: unexpected status %d", e.Source, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.Source, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Timeout reports whether the fetch failed because its deadline expired
func (e *FetchError) Timeout() bool {
	if errors.Is(e.Err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(e.Err, &netErr) && netErr.Timeout()
}
