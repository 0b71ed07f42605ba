package pipeline

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	// DefaultSourceURL is the public listing this pipeline ingests.
	DefaultSourceURL = "https://schoolkeuze020.nl/open-dagen/"

	userAgent    = "opendagen-sync/1.0 (github.com/mijnschoolkeuze/opendagen-sync)"
	fetchTimeout = 30 * time.Second
)

// Fetcher retrieves the raw listing markup. A fetch failure is fatal for the
// run; retry is the caller's responsibility (re-running is idempotent).
type Fetcher interface {
	Fetch(ctx context.Context) (string, error)
}

// HTTPFetcher fetches the listing page with a single GET.
type HTTPFetcher struct {
	client *http.Client
	url    string
}

// NewHTTPFetcher creates a fetcher for the given listing URL.
func NewHTTPFetcher(url string) *HTTPFetcher {
	return &HTTPFetcher{
		client: &http.Client{Timeout: fetchTimeout},
		url:    url,
	}
}

// Fetch performs the GET and returns the response body as a string.
func (f *HTTPFetcher) Fetch(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetching listing: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading listing body: %w", err)
	}
	return string(body), nil
}
