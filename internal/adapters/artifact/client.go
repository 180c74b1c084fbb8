// Package artifact talks to the remote run-artifact source. Authentication
// is handled by the proxy fronting the source; this client only speaks
// plain HTTP to it.
package artifact

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const (
	defaultTimeout = 30 * time.Second

	// downloadChunkSize is the read granularity used for progress reporting.
	downloadChunkSize = 64 * 1024
)

// Artifact describes one downloadable artifact of a run.
type Artifact struct {
	Name string `json:"name"`
	URL  string `json:"url"`
	Size int64  `json:"size"`
}

// ProgressFunc receives download progress in percent, non-decreasing.
type ProgressFunc func(percent float64)

// Client fetches run artifacts from the source endpoint.
type Client struct {
	base   string
	client *http.Client
}

// Option applies a configuration option to the Client.
type Option func(*Client)

// WithTimeout bounds each request.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.client.Timeout = timeout
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.client = hc
		}
	}
}

// New creates a Client for the given source base URL.
func New(base string, opts ...Option) *Client {
	c := &Client{
		base:   base,
		client: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// List returns the artifacts available for a run.
func (c *Client) List(ctx context.Context, runID string) ([]Artifact, error) {
	u := fmt.Sprintf("%s/runs/%s/artifacts", c.base, url.PathEscape(runID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: list run %q: %v", ErrFetchFailed, runID, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: list run %q: status %d", ErrFetchFailed, runID, resp.StatusCode)
	}

	var artifacts []Artifact
	if err := json.NewDecoder(resp.Body).Decode(&artifacts); err != nil {
		return nil, fmt.Errorf("%w: decode artifact list: %v", ErrFetchFailed, err)
	}
	return artifacts, nil
}

// Download fetches one artifact's bytes, reporting progress when the
// response carries a content length.
func (c *Client) Download(ctx context.Context, artifactURL string, progress ProgressFunc) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, artifactURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: download %q: %v", ErrFetchFailed, artifactURL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: download %q: status %d", ErrFetchFailed, artifactURL, resp.StatusCode)
	}

	total := resp.ContentLength
	var data []byte
	buf := make([]byte, downloadChunkSize)
	for {
		n, rerr := resp.Body.Read(buf)
		if n > 0 {
			data = append(data, buf[:n]...)
			if progress != nil && total > 0 {
				pct := float64(len(data)) / float64(total) * 100
				if pct > 100 {
					pct = 100
				}
				progress(pct)
			}
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return nil, fmt.Errorf("%w: read %q: %v", ErrFetchFailed, artifactURL, rerr)
		}
	}
	if progress != nil {
		progress(100)
	}
	return data, nil
}
