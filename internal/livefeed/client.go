package livefeed

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"outside/internal/feed"
	"outside/internal/models"
)

// DefaultURL is the public live feed endpoint
const DefaultURL = "https://data-feed.flightradar24.com/fr24.feed.api.v1.Feed/LiveFeed"

const maxResponseBytes = 16 << 20

// Client posts bounding-box requests to the live feed. It satisfies feed.Source.
type Client struct {
	url        string
	request    []byte
	httpClient *http.Client
}

// NewClient creates a live feed client. A nil httpClient gets a fresh pooled client.
func NewClient(url string, box BoundingBox, httpClient *http.Client) *Client {
	if url == "" {
		url = DefaultURL
	}
	if httpClient == nil {
		httpClient = feed.NewHTTPClient()
	}
	return &Client{
		url:        url,
		request:    Frame(EncodeRequest(box)),
		httpClient: httpClient,
	}
}

// Fetch posts the request and returns the raw framed response body
func (c *Client) Fetch(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(c.request))
	if err != nil {
		return nil, &feed.FetchError{Source: c.url, Err: fmt.Errorf("creating request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/grpc-web+proto")
	req.Header.Set("Accept", "*/*")
	req.Header.Set("X-Grpc-Web", "1")
	req.Header.Set("X-User-Agent", "grpc-web-javascript/0.1")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &feed.FetchError{Source: c.url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &feed.FetchError{Source: c.url, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &feed.FetchError{Source: c.url, Err: fmt.Errorf("reading body: %w", err)}
	}
	return body, nil
}

// Close releases idle connections
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// Parse unframes and decodes a response body
func Parse(body []byte) ([]Flight, error) {
	msg, err := Unframe(body)
	if err != nil {
		return nil, &models.MalformedFeedError{Err: err}
	}
	flights, err := ParseResponse(msg)
	if err != nil {
		return nil, &models.MalformedFeedError{Err: err}
	}
	return flights, nil
}
