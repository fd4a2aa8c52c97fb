// Package geo resolves a client IP to a coarse location.
package geo

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"dhikr/core"
	"dhikr/metrics"

	"go.uber.org/zap"
)

// DefaultBaseURL is the ip-api.com endpoint
const DefaultBaseURL = "http://ip-api.com"

// maxResponseSize bounds how much of a provider response is read
const maxResponseSize = 64 * 1024

// localAddresses never leave the process
var localAddresses = map[string]bool{
	"":          true,
	"127.0.0.1": true,
	"::1":       true,
	"localhost": true,
}

// lookupResponse is the subset of the provider payload we read
type lookupResponse struct {
	Status  string `json:"status"`
	Country string `json:"country"`
	City    string `json:"city"`
}

// Resolver looks up IP addresses against an ip-api compatible provider.
// Every failure degrades to the Unknown location; lookups are never retried.
type Resolver struct {
	baseURL string
	client  *http.Client
	logger  *zap.SugaredLogger
}

// NewResolver creates a resolver. A zero timeout uses core.GeoLookupTimeout.
func NewResolver(baseURL string, timeout time.Duration, logger *zap.SugaredLogger) *Resolver {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = core.GeoLookupTimeout
	}

	transport := &http.Transport{
		TLSClientConfig: &tls.Config{MinVersion: tls.VersionTLS12},
	}

	return &Resolver{
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
		logger: logger,
	}
}

// Resolve returns the location of ip. Loopback and empty addresses resolve
// to Unknown without a network call. Private ranges are sent as-is.
func (r *Resolver) Resolve(ctx context.Context, ip string) core.Location {
	ip = strings.TrimSpace(ip)
	if localAddresses[ip] {
		metrics.GeoLookups.WithLabelValues("local").Inc()
		return core.UnknownLocationValue()
	}

	loc, err := r.lookup(ctx, ip)
	if err != nil {
		// The address itself is not logged
		r.logger.Warnw("Geo lookup failed", "error", err)
		metrics.GeoLookups.WithLabelValues("error").Inc()
		return core.UnknownLocationValue()
	}

	metrics.GeoLookups.WithLabelValues("success").Inc()
	return loc
}

func (r *Resolver) lookup(ctx context.Context, ip string) (core.Location, error) {
	endpoint := fmt.Sprintf("%s/json/%s", r.baseURL, url.PathEscape(ip))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return core.Location{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return core.Location{}, fmt.Errorf("geo provider request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return core.Location{}, fmt.Errorf("geo provider returned status %d", resp.StatusCode)
	}

	var body lookupResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseSize)).Decode(&body); err != nil {
		return core.Location{}, fmt.Errorf("failed to decode geo response: %w", err)
	}
	if body.Status != "success" {
		return core.Location{}, fmt.Errorf("geo provider reported status %q", body.Status)
	}

	return newLocation(body.Country, body.City), nil
}

// newLocation fills missing fields with Unknown and derives the region label
func newLocation(country, city string) core.Location {
	if country == "" {
		country = core.UnknownLocation
	}
	if city == "" {
		city = core.UnknownLocation
	}
	return core.Location{
		Country: country,
		City:    city,
		Region:  city + ", " + country,
	}
}
