package agents

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	fetchTimeout  = 10 * time.Second
	maxMediaBytes = 16 << 20
)

// MediaFetcher retrieves media bytes by URL.
type MediaFetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// HTTPFetcher fetches media over http(s) and from file:// URLs or bare
// local paths, which field operators use when attaching evidence directly.
type HTTPFetcher struct {
	Client *http.Client
}

// NewHTTPFetcher returns a fetcher with a bounded request timeout.
func NewHTTPFetcher() *HTTPFetcher {
	return &HTTPFetcher{Client: &http.Client{Timeout: fetchTimeout}}
}

// Fetch retrieves the media at url, capped at maxMediaBytes.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	switch {
	case strings.HasPrefix(url, "http://"), strings.HasPrefix(url, "https://"):
		return f.fetchHTTP(ctx, url)
	case strings.HasPrefix(url, "file://"):
		return readLocal(strings.TrimPrefix(url, "file://"))
	default:
		return readLocal(url)
	}
}

func (f *HTTPFetcher) fetchHTTP(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("building media request: %w", err)
	}
	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching media: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching media: unexpected status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxMediaBytes))
	if err != nil {
		return nil, fmt.Errorf("reading media body: %w", err)
	}
	return data, nil
}

func readLocal(path string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("reading local media: %w", err)
	}
	if len(data) > maxMediaBytes {
		return nil, fmt.Errorf("reading local media: %d bytes exceeds limit", len(data))
	}
	return data, nil
}
