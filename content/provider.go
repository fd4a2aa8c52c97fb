package content

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"dhikr/core"
)

// maxResponseSize bounds how much of a provider response is read
const maxResponseSize = 1024 * 1024

// Provider fetches the text of a single verse from an upstream API.
// Implementations fetch only the start ayah of a range.
type Provider interface {
	Name() string
	Fetch(ctx context.Context, ref core.Reference, lang string) (*core.Content, error)
}

// Cache persists resolved content under (reference, lang).
// Get returns nil with no error on a miss.
type Cache interface {
	Get(ctx context.Context, reference, lang string) (*core.CachedContent, error)
	Upsert(ctx context.Context, cc core.CachedContent) error
}

// StatusError is returned when a provider answers with a non-200 status
type StatusError struct {
	Provider   string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned status %d", e.Provider, e.StatusCode)
}

func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = core.ContentFetchTimeout
	}
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{MinVersion: tls.VersionTLS12},
		},
	}
}

// getJSON issues a GET and decodes a 200 response into out
func getJSON(ctx context.Context, client *http.Client, provider, endpoint string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to query %s: %w", provider, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Drain so the connection can be reused
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseSize))
		return &StatusError{Provider: provider, StatusCode: resp.StatusCode}
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseSize)).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", provider, err)
	}
	return nil
}
