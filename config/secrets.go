package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"dhikr/core"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/secretsmanager"
	"github.com/hashicorp/vault/api"
)

// hmacKeySetting names the HMAC key in errors and in remote secret stores
const hmacKeySetting = "hmac_key"

// legacyHMACKeyEnv is accepted when DHIKR_SERVER_HMAC_KEY is unset
const legacyHMACKeyEnv = "SERVER_HMAC_KEY"

// SecretManager interface for retrieving secrets
type SecretManager interface {
	GetSecret(key string) (string, error)
	GetHMACKey() (string, error)
}

// EnvSecretManager uses environment variables (default)
type EnvSecretManager struct{}

func (e *EnvSecretManager) GetSecret(key string) (string, error) {
	envKey := "DHIKR_" + strings.ToUpper(key)
	value := os.Getenv(envKey)
	if value == "" {
		return "", fmt.Errorf("environment variable %s not set", envKey)
	}
	return value, nil
}

// GetHMACKey reads DHIKR_SERVER_HMAC_KEY, falling back to SERVER_HMAC_KEY
func (e *EnvSecretManager) GetHMACKey() (string, error) {
	if value, err := e.GetSecret("SERVER_HMAC_KEY"); err == nil {
		return value, nil
	}
	if value := os.Getenv(legacyHMACKeyEnv); value != "" {
		return value, nil
	}
	return "", fmt.Errorf("neither DHIKR_SERVER_HMAC_KEY nor %s is set", legacyHMACKeyEnv)
}

// VaultSecretManager retrieves secrets from HashiCorp Vault
type VaultSecretManager struct {
	config *Config
	client *api.Client
}

func NewVaultSecretManager(config *Config) (*VaultSecretManager, error) {
	client, err := api.NewClient(&api.Config{
		Address: config.Secrets.Vault.Address,
		Timeout: 10 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Vault client: %w", err)
	}

	if config.Secrets.Vault.Token != "" {
		client.SetToken(config.Secrets.Vault.Token)
	} else if token := os.Getenv("VAULT_TOKEN"); token != "" {
		client.SetToken(token)
	}

	return &VaultSecretManager{
		config: config,
		client: client,
	}, nil
}

func (v *VaultSecretManager) GetSecret(key string) (string, error) {
	path := v.config.Secrets.Vault.Path
	if path == "" {
		path = "secret/dhikr"
	}

	secret, err := v.client.Logical().Read(path)
	if err != nil {
		return "", fmt.Errorf("failed to read from Vault: %w", err)
	}

	if secret == nil || secret.Data == nil {
		return "", fmt.Errorf("secret not found at path %s", path)
	}

	// KV v2 nests the payload under "data"
	data := secret.Data
	if nested, ok := data["data"].(map[string]interface{}); ok {
		data = nested
	}

	value, ok := data[key]
	if !ok {
		return "", fmt.Errorf("key %s not found in Vault secret", key)
	}

	strValue, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("secret value for key %s is not a string", key)
	}

	return strValue, nil
}

func (v *VaultSecretManager) GetHMACKey() (string, error) {
	return v.GetSecret(hmacKeySetting)
}

// AWSSecretManager retrieves secrets from AWS Secrets Manager
type AWSSecretManager struct {
	config *Config
	client *secretsmanager.SecretsManager
}

func NewAWSSecretManager(config *Config) (*AWSSecretManager, error) {
	awsConfig := &aws.Config{
		Region: aws.String(config.Secrets.AWS.Region),
	}
	if config.Secrets.AWS.AccessKey != "" && config.Secrets.AWS.SecretKey != "" {
		awsConfig.Credentials = credentials.NewStaticCredentials(
			config.Secrets.AWS.AccessKey,
			config.Secrets.AWS.SecretKey,
			"",
		)
	}

	sess, err := session.NewSession(awsConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	return &AWSSecretManager{
		config: config,
		client: secretsmanager.New(sess),
	}, nil
}

func (a *AWSSecretManager) GetSecret(key string) (string, error) {
	secretID := a.config.Secrets.AWS.SecretID
	if secretID == "" {
		secretID = "dhikr/secrets"
	}

	result, err := a.client.GetSecretValue(&secretsmanager.GetSecretValueInput{
		SecretId: aws.String(secretID),
	})
	if err != nil {
		return "", fmt.Errorf("failed to get secret from AWS: %w", err)
	}
	if result.SecretString == nil {
		return "", fmt.Errorf("AWS secret %s has no string value", secretID)
	}

	var secrets map[string]string
	if err := json.Unmarshal([]byte(*result.SecretString), &secrets); err != nil {
		return "", fmt.Errorf("failed to parse AWS secret JSON: %w", err)
	}

	value, ok := secrets[key]
	if !ok {
		return "", fmt.Errorf("key %s not found in AWS secret", key)
	}

	return value, nil
}

func (a *AWSSecretManager) GetHMACKey() (string, error) {
	return a.GetSecret(hmacKeySetting)
}

// NewSecretManager creates the appropriate secret manager based on configuration
func NewSecretManager(config *Config) (SecretManager, error) {
	provider := config.Secrets.Provider
	if provider == "" {
		provider = "env"
	}

	switch provider {
	case "env":
		return &EnvSecretManager{}, nil
	case "vault":
		return NewVaultSecretManager(config)
	case "aws":
		return NewAWSSecretManager(config)
	default:
		return nil, &core.ConfigError{Setting: "secrets.provider", Reason: "unsupported secret provider " + provider}
	}
}

// LoadSecrets fills Privacy.HMACKey from the configured provider.
// A key already present in the config file or DHIKR_PRIVACY_HMAC_KEY wins.
// A missing key is a startup error wrapping core.ErrConfiguration.
func LoadSecrets(config *Config) error {
	if config.Privacy.HMACKey == "" {
		manager, err := NewSecretManager(config)
		if err != nil {
			return fmt.Errorf("failed to create secret manager: %w", err)
		}

		key, err := manager.GetHMACKey()
		if err != nil {
			return &core.ConfigError{Setting: "privacy.hmac_key", Reason: err.Error()}
		}
		config.Privacy.HMACKey = key
	}

	return ValidateSecrets(config)
}

// ValidateSecrets checks that the HMAC key is usable
func ValidateSecrets(config *Config) error {
	key := strings.TrimSpace(config.Privacy.HMACKey)
	if key == "" {
		return &core.ConfigError{Setting: "privacy.hmac_key", Reason: "HMAC key is empty"}
	}
	if len(key) < 16 {
		return &core.ConfigError{Setting: "privacy.hmac_key", Reason: "HMAC key must be at least 16 characters"}
	}
	return nil
}
