package privacy

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"

	"dhikr/core"
)

// Pseudonymize returns the lowercase hex HMAC-SHA256 of text keyed by secret.
// An empty secret is a configuration error; there is no unkeyed fallback.
func Pseudonymize(text string, secret []byte) (string, error) {
	if len(secret) == 0 {
		return "", &core.ConfigError{Setting: "privacy.hmac_key", Reason: "pseudonymization secret is not set"}
	}
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(text))
	return hex.EncodeToString(mac.Sum(nil)), nil
}

// Pseudonymizer binds the process-wide secret once so callers do not pass it around.
type Pseudonymizer struct {
	secret []byte
}

// NewPseudonymizer fails with core.ErrConfiguration when secret is empty.
func NewPseudonymizer(secret string) (*Pseudonymizer, error) {
	if secret == "" {
		return nil, &core.ConfigError{Setting: "privacy.hmac_key", Reason: "pseudonymization secret is not set"}
	}
	return &Pseudonymizer{secret: []byte(secret)}, nil
}

// Pseudonymize hashes text with the bound secret.
func (p *Pseudonymizer) Pseudonymize(text string) string {
	// secret is non-empty by construction
	out, _ := Pseudonymize(text, p.secret)
	return out
}
