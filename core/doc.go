// Package core defines the domain model shared by the dhikr packages.
//
// # Domain Types
//
// Rule maps a browsing domain, and optionally a path, to a category and the
// verse reference shown as a reminder. CachedContent is a resolved verse
// stored under its (reference, lang) key. AnonymizedEvent is the only form in
// which browsing activity is persisted: the URL is replaced by a keyed hash
// and the client IP by a coarse region.
//
// # References
//
// ParseReference accepts "surah:ayah" and "surah:start-end". Failures wrap
// ErrInvalidReference and are returned before any network I/O.
//
// # Errors
//
// Sentinel errors live in errors.go. Typed errors (ReferenceError,
// ConfigError) unwrap to their sentinel so callers can use errors.Is.
package core
