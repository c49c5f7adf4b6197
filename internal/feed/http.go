package feed

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	// Connection pool settings
	maxIdleConns        = 4
	idleConnTimeout     = 90 * time.Second
	tlsHandshakeTimeout = 10 * time.Second

	// Upper bound on a single payload
	maxBodyBytes = 32 << 20
)

// NewHTTPClient returns a pooled HTTP client shared by the feed transports.
// Per-fetch deadlines come from the request context, not the client.
func NewHTTPClient() *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        maxIdleConns,
			IdleConnTimeout:     idleConnTimeout,
			TLSHandshakeTimeout: tlsHandshakeTimeout,
		},
	}
}

// HTTPSource fetches a feed document with a plain GET
type HTTPSource struct {
	url        string
	accept     string
	httpClient *http.Client
}

// NewHTTPSource creates a GET source. A nil client gets a fresh pooled client.
func NewHTTPSource(url string, httpClient *http.Client) *HTTPSource {
	if httpClient == nil {
		httpClient = NewHTTPClient()
	}
	return &HTTPSource{
		url:        url,
		accept:     "application/xml, text/xml",
		httpClient: httpClient,
	}
}

// Fetch retrieves the document body
func (s *HTTPSource) Fetch(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, &FetchError{Source: s.url, Err: fmt.Errorf("creating request: %w", err)}
	}
	req.Header.Set("Accept", s.accept)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, &FetchError{Source: s.url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &FetchError{Source: s.url, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &FetchError{Source: s.url, Err: fmt.Errorf("reading body: %w", err)}
	}
	return body, nil
}

// Close releases idle connections held by the source's client
func (s *HTTPSource) Close() error {
	s.httpClient.CloseIdleConnections()
	return nil
}
