package core

import "time"

const (
	// MaxErrorMessageLength caps error text returned to HTTP clients
	MaxErrorMessageLength = 500

	// DefaultLang is used when a reminder request omits the language
	DefaultLang = "en"

	// DayLayout formats AnonymizedEvent.Day
	DayLayout = "2006-01-02"

	// GeoLookupTimeout bounds a single geolocation request
	GeoLookupTimeout = 5 * time.Second

	// ContentFetchTimeout bounds a single content provider request
	ContentFetchTimeout = 10 * time.Second

	// MaxSummaryDays bounds the summary period
	MaxSummaryDays = 365

	// MaxDurationSeconds caps duration_seconds on events and triggers (one day)
	MaxDurationSeconds = 86400
)
