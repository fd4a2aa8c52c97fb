package content

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"dhikr/core"

	"go.uber.org/zap"
)

const (
	// DefaultAlQuranCloudBaseURL is the alquran.cloud v1 API
	DefaultAlQuranCloudBaseURL = "https://api.alquran.cloud/v1"
	// DefaultAlQuranCloudEdition is the translation edition requested
	DefaultAlQuranCloudEdition = "en.asad"
)

type alQuranCloudResponse struct {
	Code int `json:"code"`
	Data struct {
		Text string `json:"text"`
	} `json:"data"`
}

// AlQuranCloudProvider is the fallback content source.
// It makes one call for the Arabic text and one for the translation.
type AlQuranCloudProvider struct {
	baseURL string
	edition string
	client  *http.Client
	logger  *zap.SugaredLogger
}

// NewAlQuranCloudProvider creates the alquran.cloud provider
func NewAlQuranCloudProvider(baseURL, edition string, timeout time.Duration, logger *zap.SugaredLogger) *AlQuranCloudProvider {
	if baseURL == "" {
		baseURL = DefaultAlQuranCloudBaseURL
	}
	if edition == "" {
		edition = DefaultAlQuranCloudEdition
	}
	return &AlQuranCloudProvider{
		baseURL: strings.TrimRight(baseURL, "/"),
		edition: edition,
		client:  newHTTPClient(timeout),
		logger:  logger,
	}
}

// Name returns the provider name
func (p *AlQuranCloudProvider) Name() string {
	return "alquran.cloud"
}

// Fetch retrieves the start ayah of ref. The translation call may fail on
// its own, leaving the translation empty. The edition is fixed, so lang is
// not sent upstream.
func (p *AlQuranCloudProvider) Fetch(ctx context.Context, ref core.Reference, lang string) (*core.Content, error) {
	var arabic alQuranCloudResponse
	if err := getJSON(ctx, p.client, p.Name(), fmt.Sprintf("%s/ayah/%s", p.baseURL, ref.StartKey()), &arabic); err != nil {
		return nil, err
	}
	if arabic.Data.Text == "" {
		return nil, errors.New("alquran.cloud response has no verse text")
	}

	var translation alQuranCloudResponse
	if err := getJSON(ctx, p.client, p.Name(), fmt.Sprintf("%s/ayah/%s/%s", p.baseURL, ref.StartKey(), p.edition), &translation); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		translation = alQuranCloudResponse{}
		p.logger.Warnw("Translation fetch failed, continuing without it",
			"provider", p.Name(), "reference", ref.Raw, "edition", p.edition, "error", err)
	}

	return &core.Content{
		Reference:   ref.Raw,
		VerseText:   arabic.Data.Text,
		Translation: translation.Data.Text,
		Source:      p.Name(),
	}, nil
}
