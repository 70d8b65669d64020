package pricetable

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/Mo-Mans0ur/M2Matik-sub000/internal/pricing"
)

// FetchError reports a non-success HTTP status from the artifact host.
type FetchError struct {
	URL        string
	StatusCode int
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch price table %s: unexpected status %d %s", e.URL, e.StatusCode, http.StatusText(e.StatusCode))
}

// Fetch downloads and decodes the artifact at url. It does not retry.
func Fetch(ctx context.Context, client *http.Client, url string) (*pricing.Table, error) {
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build price table request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch price table %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &FetchError{URL: url, StatusCode: resp.StatusCode}
	}

	return Decode(resp.Body)
}

// IsURL reports whether source names an HTTP(S) artifact rather than a file.
func IsURL(source string) bool {
	return strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
}

// Load reads the table from source, which is either an HTTP(S) URL or a
// local path.
func Load(ctx context.Context, client *http.Client, source string) (*pricing.Table, error) {
	if IsURL(source) {
		return Fetch(ctx, client, source)
	}
	return LoadFile(source)
}
