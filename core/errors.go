package core

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidReference is returned for verse references that do not
	// parse as "surah:ayah" or "surah:start-end".
	ErrInvalidReference = errors.New("invalid verse reference")

	// ErrConfiguration is returned when a required setting (such as the
	// pseudonymization secret) is missing or unusable.
	ErrConfiguration = errors.New("configuration error")

	// ErrUpstreamUnavailable names the outcome where no content provider
	// returned usable data.
	ErrUpstreamUnavailable = errors.New("content upstream unavailable")

	// ErrRuleNotFound is returned when no rule matches a domain and path.
	ErrRuleNotFound = errors.New("no matching rule")
)

// ReferenceError describes why a verse reference was rejected.
type ReferenceError struct {
	Raw    string
	Reason string
}

func (e *ReferenceError) Error() string {
	return fmt.Sprintf("invalid verse reference %q: %s", e.Raw, e.Reason)
}

// Unwrap lets errors.Is match ErrInvalidReference.
func (e *ReferenceError) Unwrap() error {
	return ErrInvalidReference
}

// ConfigError names the setting that made configuration unusable.
type ConfigError struct {
	Setting string
	Reason  string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("configuration error: %s: %s", e.Setting, e.Reason)
}

func (e *ConfigError) Unwrap() error {
	return ErrConfiguration
}
