package config

// maskedValue replaces secrets in logged configuration
const maskedValue = "********"

// MaskSensitiveSettings returns a copy of config with keys and passwords
// replaced, suitable for logging the effective configuration.
func MaskSensitiveSettings(config *Config) *Config {
	masked := *config
	masked.Privacy.HMACKey = mask(config.Privacy.HMACKey)
	masked.Secrets.Vault.Token = mask(config.Secrets.Vault.Token)
	masked.Secrets.AWS.AccessKey = mask(config.Secrets.AWS.AccessKey)
	masked.Secrets.AWS.SecretKey = mask(config.Secrets.AWS.SecretKey)
	masked.Cache.Redis.Password = mask(config.Cache.Redis.Password)
	masked.ClickHouse.Password = mask(config.ClickHouse.Password)

	// Slices are shared with the original otherwise
	masked.API.AllowedOriginPatterns = append([]string(nil), config.API.AllowedOriginPatterns...)
	masked.API.TrustedProxyNetworks = append([]string(nil), config.API.TrustedProxyNetworks...)
	return &masked
}

func mask(value string) string {
	if value == "" {
		return ""
	}
	return maskedValue
}
