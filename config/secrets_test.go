package config

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"dhikr/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvSecretManager_GetSecret(t *testing.T) {
	manager := &EnvSecretManager{}
	t.Setenv("DHIKR_TEST_SECRET", "test_value_123")

	value, err := manager.GetSecret("test_secret")
	require.NoError(t, err)
	assert.Equal(t, "test_value_123", value)

	_, err = manager.GetSecret("missing_secret")
	assert.Error(t, err)
}

func TestEnvSecretManager_GetHMACKey(t *testing.T) {
	manager := &EnvSecretManager{}

	t.Run("prefixed variable", func(t *testing.T) {
		t.Setenv("DHIKR_SERVER_HMAC_KEY", "prefixed-key-0123456789")
		t.Setenv("SERVER_HMAC_KEY", "legacy-key-0123456789")
		key, err := manager.GetHMACKey()
		require.NoError(t, err)
		assert.Equal(t, "prefixed-key-0123456789", key)
	})

	t.Run("legacy fallback", func(t *testing.T) {
		t.Setenv("DHIKR_SERVER_HMAC_KEY", "")
		t.Setenv("SERVER_HMAC_KEY", "legacy-key-0123456789")
		key, err := manager.GetHMACKey()
		require.NoError(t, err)
		assert.Equal(t, "legacy-key-0123456789", key)
	})

	t.Run("missing", func(t *testing.T) {
		t.Setenv("DHIKR_SERVER_HMAC_KEY", "")
		t.Setenv("SERVER_HMAC_KEY", "")
		_, err := manager.GetHMACKey()
		assert.Error(t, err)
	})
}

func TestLoadSecrets_FromEnv(t *testing.T) {
	t.Setenv("DHIKR_SERVER_HMAC_KEY", "0123456789abcdef0123")
	cfg := newTestConfig()

	require.NoError(t, LoadSecrets(&cfg))
	assert.Equal(t, "0123456789abcdef0123", cfg.Privacy.HMACKey)
}

func TestLoadSecrets_ConfiguredKeyWins(t *testing.T) {
	t.Setenv("DHIKR_SERVER_HMAC_KEY", "from-env-0123456789")
	cfg := newTestConfig()
	cfg.Privacy.HMACKey = "from-config-0123456789"

	require.NoError(t, LoadSecrets(&cfg))
	assert.Equal(t, "from-config-0123456789", cfg.Privacy.HMACKey)
}

func TestLoadSecrets_MissingKeyIsConfigurationError(t *testing.T) {
	t.Setenv("DHIKR_SERVER_HMAC_KEY", "")
	t.Setenv("SERVER_HMAC_KEY", "")
	cfg := newTestConfig()

	err := LoadSecrets(&cfg)
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrConfiguration))

	var cfgErr *core.ConfigError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "privacy.hmac_key", cfgErr.Setting)
}

func TestValidateSecrets(t *testing.T) {
	cfg := newTestConfig()

	cfg.Privacy.HMACKey = "   "
	assert.True(t, errors.Is(ValidateSecrets(&cfg), core.ErrConfiguration))

	cfg.Privacy.HMACKey = "short"
	assert.True(t, errors.Is(ValidateSecrets(&cfg), core.ErrConfiguration))

	cfg.Privacy.HMACKey = "long-enough-hmac-key"
	assert.NoError(t, ValidateSecrets(&cfg))
}

func TestNewSecretManager(t *testing.T) {
	cfg := newTestConfig()

	cfg.Secrets.Provider = ""
	manager, err := NewSecretManager(&cfg)
	require.NoError(t, err)
	assert.IsType(t, &EnvSecretManager{}, manager)

	cfg.Secrets.Provider = "gcp"
	_, err = NewSecretManager(&cfg)
	assert.True(t, errors.Is(err, core.ErrConfiguration))
}

func TestVaultSecretManager_GetHMACKey(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/secret/data/dhikr", r.URL.Path)
		assert.Equal(t, "test-token", r.Header.Get("X-Vault-Token"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"data":{"hmac_key":"vault-hmac-key-0123456789"},"metadata":{"version":1}}}`))
	}))
	defer server.Close()

	cfg := newTestConfig()
	cfg.Secrets.Provider = "vault"
	cfg.Secrets.Vault.Address = server.URL
	cfg.Secrets.Vault.Token = "test-token"
	cfg.Secrets.Vault.Path = "secret/data/dhikr"

	manager, err := NewSecretManager(&cfg)
	require.NoError(t, err)

	key, err := manager.GetHMACKey()
	require.NoError(t, err)
	assert.Equal(t, "vault-hmac-key-0123456789", key)
}

func TestVaultSecretManager_MissingKey(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"other":"value"}}`))
	}))
	defer server.Close()

	cfg := newTestConfig()
	cfg.Secrets.Vault.Address = server.URL
	cfg.Secrets.Vault.Token = "test-token"

	manager, err := NewVaultSecretManager(&cfg)
	require.NoError(t, err)

	_, err = manager.GetHMACKey()
	assert.Error(t, err)
}
