package content

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"dhikr/core"
)

const (
	// DefaultQuranComBaseURL is the quran.com v4 API
	DefaultQuranComBaseURL = "https://api.quran.com/api/v4"
	// DefaultQuranComTranslationID selects the translation resource
	DefaultQuranComTranslationID = 131
)

type quranComResponse struct {
	Verse struct {
		VerseKey     string `json:"verse_key"`
		TextUthmani  string `json:"text_uthmani"`
		Translations []struct {
			Text string `json:"text"`
		} `json:"translations"`
		Audio struct {
			URL string `json:"url"`
		} `json:"audio"`
	} `json:"verse"`
}

// QuranComProvider is the primary content source
type QuranComProvider struct {
	baseURL       string
	translationID int
	client        *http.Client
}

// NewQuranComProvider creates the quran.com provider
func NewQuranComProvider(baseURL string, translationID int, timeout time.Duration) *QuranComProvider {
	if baseURL == "" {
		baseURL = DefaultQuranComBaseURL
	}
	if translationID <= 0 {
		translationID = DefaultQuranComTranslationID
	}
	return &QuranComProvider{
		baseURL:       strings.TrimRight(baseURL, "/"),
		translationID: translationID,
		client:        newHTTPClient(timeout),
	}
}

// Name returns the provider name
func (p *QuranComProvider) Name() string {
	return "quran.com"
}

// Fetch retrieves the start ayah of ref with one translation.
// A response without verse text counts as a failure.
func (p *QuranComProvider) Fetch(ctx context.Context, ref core.Reference, lang string) (*core.Content, error) {
	query := url.Values{}
	query.Set("language", lang)
	query.Set("words", "false")
	query.Set("translations", strconv.Itoa(p.translationID))
	endpoint := fmt.Sprintf("%s/verses/by_key/%s?%s", p.baseURL, ref.StartKey(), query.Encode())

	var body quranComResponse
	if err := getJSON(ctx, p.client, p.Name(), endpoint, &body); err != nil {
		return nil, err
	}
	if body.Verse.TextUthmani == "" {
		return nil, errors.New("quran.com response has no verse text")
	}

	var translation string
	if len(body.Verse.Translations) > 0 {
		translation = body.Verse.Translations[0].Text
	}

	return &core.Content{
		Reference:   ref.Raw,
		VerseText:   body.Verse.TextUthmani,
		Translation: translation,
		AudioURL:    body.Verse.Audio.URL,
		Source:      p.Name(),
	}, nil
}
