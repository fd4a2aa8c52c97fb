package core

import "time"

// UnknownLocation is used for every geo field that could not be resolved.
const UnknownLocation = "Unknown"

// UncategorizedLabel names events whose domain matched no rule in summaries.
const UncategorizedLabel = "uncategorized"

// Rule maps a domain (and optionally a path) to a category and the verse
// reference served as its reminder.
type Rule struct {
	ID            int64  `json:"id" yaml:"-"`
	DomainPattern string `json:"domain_pattern" yaml:"domain"`
	// PathPattern is empty when the rule applies to the whole domain.
	PathPattern string `json:"path_pattern,omitempty" yaml:"path,omitempty"`
	CategoryKey string `json:"category_key" yaml:"category"`
	Reference   string `json:"verse_ref" yaml:"reference"`
}

// HasPath reports whether the rule is scoped to a specific path.
func (r Rule) HasPath() bool {
	return r.PathPattern != ""
}

// CachedContent is a resolved verse persisted under (Reference, Lang).
type CachedContent struct {
	Reference   string    `json:"reference" msgpack:"reference"`
	Lang        string    `json:"lang" msgpack:"lang"`
	VerseText   string    `json:"verse_text" msgpack:"verse_text"`
	Translation string    `json:"translation" msgpack:"translation"`
	AudioURL    string    `json:"audio_url" msgpack:"audio_url"`
	FetchedAt   time.Time `json:"fetched_at" msgpack:"fetched_at"`
}

// Content is what the content resolver hands back to callers.
type Content struct {
	Reference   string `json:"reference"`
	VerseText   string `json:"verse_text"`
	Translation string `json:"translation"`
	AudioURL    string `json:"audio_url"`
	// Source is the provider name, or "cache" for a cache hit.
	Source string `json:"source"`
}

// ToCached converts fetched content into its cache representation.
func (c *Content) ToCached(lang string, fetchedAt time.Time) CachedContent {
	return CachedContent{
		Reference:   c.Reference,
		Lang:        lang,
		VerseText:   c.VerseText,
		Translation: c.Translation,
		AudioURL:    c.AudioURL,
		FetchedAt:   fetchedAt,
	}
}

// ContentFromCache builds resolver output from a cache entry.
func ContentFromCache(cc *CachedContent) *Content {
	return &Content{
		Reference:   cc.Reference,
		VerseText:   cc.VerseText,
		Translation: cc.Translation,
		AudioURL:    cc.AudioURL,
		Source:      "cache",
	}
}

// AnonymizedEvent is the only form in which a browsing event is stored.
// The raw URL never leaves the pipeline; only its keyed hash does.
type AnonymizedEvent struct {
	ID              string    `json:"id"`
	URLID           string    `json:"url_id"`
	Domain          string    `json:"domain"`
	CategoryKey     string    `json:"category_key,omitempty"`
	DurationSeconds int       `json:"duration_seconds"`
	Region          string    `json:"region"`
	Day             string    `json:"day"`
	CreatedAt       time.Time `json:"created_at"`
}

// TriggerRecord logs a reminder that was shown to the user.
type TriggerRecord struct {
	ID              int64     `json:"id"`
	Domain          string    `json:"domain"`
	Path            string    `json:"path,omitempty"`
	CategoryKey     string    `json:"category_key"`
	DurationSeconds int       `json:"duration_seconds"`
	CreatedAt       time.Time `json:"created_at"`
}

// Location is the coarse geolocation attached to an event.
type Location struct {
	Country string `json:"country"`
	City    string `json:"city"`
	Region  string `json:"region"`
}

// UnknownLocationValue is returned whenever geolocation is unavailable.
func UnknownLocationValue() Location {
	return Location{
		Country: UnknownLocation,
		City:    UnknownLocation,
		Region:  UnknownLocation,
	}
}

// CategorySummary aggregates events of one category over a period.
type CategorySummary struct {
	Category string  `json:"category"`
	Count    int64   `json:"count"`
	Hours    float64 `json:"hours"`
}
