package privacy

import (
	"errors"
	"regexp"
	"testing"

	"dhikr/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var lowerHex64 = regexp.MustCompile(`^[0-9a-f]{64}$`)

func TestPseudonymize_KnownVectors(t *testing.T) {
	tests := []struct {
		text     string
		secret   string
		expected string
	}{
		{"https://example.com/page", "test-secret", "1b18ccd2b4ffb51d31852a0aaef616fb3ab8fb4a6abbe800cc6543df9e3bd1d9"},
		{"The quick brown fox jumps over the lazy dog", "key", "f7bc83f430538424b13298e6aa6fb143ef4d59a14946175997479dbc2d1a3cd8"},
	}

	for _, tt := range tests {
		got, err := Pseudonymize(tt.text, []byte(tt.secret))
		require.NoError(t, err)
		assert.Equal(t, tt.expected, got)
	}
}

func TestPseudonymize_Deterministic(t *testing.T) {
	secret := []byte("s3cr3t")

	a, err := Pseudonymize("https://youtube.com/shorts/abc", secret)
	require.NoError(t, err)
	b, err := Pseudonymize("https://youtube.com/shorts/abc", secret)
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Regexp(t, lowerHex64, a)
}

func TestPseudonymize_SensitiveToInputs(t *testing.T) {
	base, err := Pseudonymize("https://example.com/a", []byte("secret-1"))
	require.NoError(t, err)

	otherText, err := Pseudonymize("https://example.com/b", []byte("secret-1"))
	require.NoError(t, err)
	assert.NotEqual(t, base, otherText)

	otherSecret, err := Pseudonymize("https://example.com/a", []byte("secret-2"))
	require.NoError(t, err)
	assert.NotEqual(t, base, otherSecret)
}

func TestPseudonymize_EmptyText(t *testing.T) {
	out, err := Pseudonymize("", []byte("secret"))
	require.NoError(t, err)
	assert.Regexp(t, lowerHex64, out)
}

func TestPseudonymize_MissingSecret(t *testing.T) {
	_, err := Pseudonymize("https://example.com", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrConfiguration))

	_, err = Pseudonymize("https://example.com", []byte{})
	assert.True(t, errors.Is(err, core.ErrConfiguration))
}

func TestNewPseudonymizer(t *testing.T) {
	_, err := NewPseudonymizer("")
	assert.True(t, errors.Is(err, core.ErrConfiguration))

	p, err := NewPseudonymizer("test-secret")
	require.NoError(t, err)
	assert.Equal(t, "1b18ccd2b4ffb51d31852a0aaef616fb3ab8fb4a6abbe800cc6543df9e3bd1d9", p.Pseudonymize("https://example.com/page"))
}
