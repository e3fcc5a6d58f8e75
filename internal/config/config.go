// Package config provides application configuration management with support for environment variables, command-line flags, and .env files.
package config

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Config holds the application configuration.
type Config struct {
	App        AppConfig
	Logger     LoggerConfig
	Data       DataConfig
	Server     ServerConfig
	Auth       AuthConfig
	Classifier ClassifierConfig
	Ingest     IngestConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string
}

// DataConfig holds daemon storage configuration. The cache, the skip
// history database, the search index, and the auth key all live under
// BasePath.
type DataConfig struct {
	BasePath string
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	Name          string
	Port          string        // Server port (default: 8845)
	ReadTimeout   time.Duration // HTTP read timeout (default: 15s)
	WriteTimeout  time.Duration // HTTP write timeout (default: 0, SSE streams must not be cut)
	IdleTimeout   time.Duration // HTTP idle timeout (default: 60s)
	AdvertiseMDNS bool          // Advertise via mDNS/Zeroconf (default: true)
}

// AuthConfig holds authentication configuration.
type AuthConfig struct {
	// PASETO v4 symmetric key for access tokens (32 bytes)
	AccessTokenKey []byte
	// Session durations
	AccessTokenDuration  time.Duration // e.g., 720h (extensions re-pair rarely)
	RefreshTokenDuration time.Duration // e.g., 4320h

	// PairingCode is the shared secret a browser extension presents to
	// register itself. Empty disables pairing (already-paired clients
	// keep working).
	PairingCode string
}

// ClassifierConfig holds LLM provider configuration.
type ClassifierConfig struct {
	AnthropicAPIKey string
	OpenAIAPIKey    string
	// RequestsPerSecond throttles outbound provider calls across all
	// videos (default: 0.5, i.e. one call per two seconds).
	RequestsPerSecond float64
	Burst             int
}

// IngestConfig holds the transcript spool configuration. Files dropped
// into the spool directory are analyzed without an API call, which is
// how companion tools feed transcripts in bulk.
type IngestConfig struct {
	Enabled   bool
	SpoolPath string // default: {data}/spool
}

// LoadConfig loads configuration from multiple sources with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables.
// 3. .env file.
// 4. Default values (lowest priority).
func LoadConfig() (*Config, error) {
	// Define command-line flags.
	env := flag.String("env", "", "Environment (development, staging, production)")
	logLevel := flag.String("log-level", "", "Log level (debug, info, warn, error)")
	dataPath := flag.String("data-path", "", "Base path for daemon data")
	serverName := flag.String("server-name", "", "Name for the daemon")

	// Auth flags
	accessTokenDuration := flag.String("access-token-duration", "", "Access token lifetime (e.g., 720h)")
	refreshTokenDuration := flag.String("refresh-token-duration", "", "Refresh token lifetime (e.g., 4320h)")
	pairingCode := flag.String("pairing-code", "", "Shared secret for extension pairing")

	// Server flags
	serverPort := flag.String("port", "", "Server port (default: 8845)")
	readTimeout := flag.String("read-timeout", "", "HTTP read timeout (default: 15s)")
	idleTimeout := flag.String("idle-timeout", "", "HTTP idle timeout (default: 60s)")
	advertiseMDNS := flag.String("advertise-mdns", "", "Advertise via mDNS/Zeroconf (default: true)")

	envFile := flag.String("env-file", ".env", "Path to .env file")

	// Ingest flags
	ingestEnabled := flag.String("ingest-enabled", "", "Watch the spool directory for transcripts (default: true)")
	spoolPath := flag.String("spool-path", "", "Path for the transcript spool")

	// Parse flags but don't exit on error - we want to handle it gracefully.
	flag.Parse()

	// Load .env file if it exists (silently ignore if not found).
	_ = loadEnvFile(*envFile)

	// Build config with proper precedence.
	cfg := &Config{
		App: AppConfig{
			Environment: getConfigValue(*env, "SKIPTUBE_ENV", "development"),
		},
		Logger: LoggerConfig{
			Level: getConfigValue(*logLevel, "SKIPTUBE_LOG_LEVEL", "info"),
		},
		Data: DataConfig{
			BasePath: getConfigValue(*dataPath, "SKIPTUBE_DATA_PATH", ""),
		},

		Server: ServerConfig{
			Name:          getConfigValue(*serverName, "SKIPTUBE_SERVER_NAME", "SkipTube Daemon"),
			Port:          getConfigValue(*serverPort, "SKIPTUBE_PORT", "8845"),
			AdvertiseMDNS: getBoolConfigValue(*advertiseMDNS, "SKIPTUBE_ADVERTISE_MDNS", true),
		},

		Auth: AuthConfig{
			AccessTokenKey: nil, // Will be set by auth.LoadOrGenerateKey in main
			PairingCode:    getConfigValue(*pairingCode, "SKIPTUBE_PAIRING_CODE", ""),
		},

		Classifier: ClassifierConfig{
			AnthropicAPIKey:   getConfigValue("", "SKIPTUBE_ANTHROPIC_API_KEY", ""),
			OpenAIAPIKey:      getConfigValue("", "SKIPTUBE_OPENAI_API_KEY", ""),
			RequestsPerSecond: getFloatConfigValue("", "SKIPTUBE_CLASSIFIER_RPS", 0.5),
			Burst:             getIntConfigValue("", "SKIPTUBE_CLASSIFIER_BURST", 2),
		},

		Ingest: IngestConfig{
			Enabled:   getBoolConfigValue(*ingestEnabled, "SKIPTUBE_INGEST_ENABLED", true),
			SpoolPath: getConfigValue(*spoolPath, "SKIPTUBE_SPOOL_PATH", ""),
		},
	}

	// Parse auth durations. Extensions hold tokens for a long time; the
	// pairing flow is manual, so short-lived tokens would mean constant
	// re-pairing prompts.
	accessDurationStr := getConfigValue(*accessTokenDuration, "SKIPTUBE_ACCESS_TOKEN_DURATION", "720h")
	accessDuration, err := time.ParseDuration(accessDurationStr)
	if err != nil {
		return nil, fmt.Errorf("invalid access token duration %q: %w", accessDurationStr, err)
	}
	cfg.Auth.AccessTokenDuration = accessDuration

	refreshDurationStr := getConfigValue(*refreshTokenDuration, "SKIPTUBE_REFRESH_TOKEN_DURATION", "4320h")
	refreshDuration, err := time.ParseDuration(refreshDurationStr)
	if err != nil {
		return nil, fmt.Errorf("invalid refresh token duration %q: %w", refreshDurationStr, err)
	}
	cfg.Auth.RefreshTokenDuration = refreshDuration

	// Parse server timeouts. Write timeout defaults to 0: the SSE stream
	// is a long-lived response and a write deadline would sever it.
	readTimeoutStr := getConfigValue(*readTimeout, "SKIPTUBE_READ_TIMEOUT", "15s")
	readTimeoutDuration, err := time.ParseDuration(readTimeoutStr)
	if err != nil {
		return nil, fmt.Errorf("invalid read timeout %q: %w", readTimeoutStr, err)
	}
	cfg.Server.ReadTimeout = readTimeoutDuration

	writeTimeoutStr := getConfigValue("", "SKIPTUBE_WRITE_TIMEOUT", "0s")
	writeTimeoutDuration, err := time.ParseDuration(writeTimeoutStr)
	if err != nil {
		return nil, fmt.Errorf("invalid write timeout %q: %w", writeTimeoutStr, err)
	}
	cfg.Server.WriteTimeout = writeTimeoutDuration

	idleTimeoutStr := getConfigValue(*idleTimeout, "SKIPTUBE_IDLE_TIMEOUT", "60s")
	idleTimeoutDuration, err := time.ParseDuration(idleTimeoutStr)
	if err != nil {
		return nil, fmt.Errorf("invalid idle timeout %q: %w", idleTimeoutStr, err)
	}
	cfg.Server.IdleTimeout = idleTimeoutDuration

	// Expand and validate the data path.
	if err := cfg.expandDataPath(); err != nil {
		return nil, fmt.Errorf("invalid data path: %w", err)
	}

	// Expand spool path (defaults to {data}/spool).
	if err := cfg.expandSpoolPath(); err != nil {
		return nil, fmt.Errorf("invalid spool path: %w", err)
	}

	// Validate configuration.
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required config values are present and valid.
func (c *Config) Validate() error {
	if c.App.Environment == "" {
		return errors.New("SKIPTUBE_ENV is required")
	}

	validEnvs := map[string]bool{
		"development": true,
		"staging":     true,
		"production":  true,
	}
	if !validEnvs[c.App.Environment] {
		return fmt.Errorf("invalid environment: %s (must be development, staging, or production)", c.App.Environment)
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[strings.ToLower(c.Logger.Level)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	if c.Data.BasePath == "" {
		return errors.New("data base path cannot be empty after expansion")
	}

	if c.Classifier.RequestsPerSecond <= 0 {
		return fmt.Errorf("classifier rate must be positive, got %v", c.Classifier.RequestsPerSecond)
	}

	// Provider keys may be absent: the mock provider needs none, and real
	// keys can arrive later via the settings surface.

	return nil
}

// CachePath is the badger directory for the segment cache.
func (c *Config) CachePath() string {
	return filepath.Join(c.Data.BasePath, "cache")
}

// SkipDBPath is the SQLite file for skip history.
func (c *Config) SkipDBPath() string {
	return filepath.Join(c.Data.BasePath, "skips.db")
}

// ProviderKeys returns the configured API keys by provider name, ready
// for the classifier factory.
func (c *Config) ProviderKeys() map[string]string {
	keys := make(map[string]string)
	if c.Classifier.AnthropicAPIKey != "" {
		keys["anthropic"] = c.Classifier.AnthropicAPIKey
	}
	if c.Classifier.OpenAIAPIKey != "" {
		keys["openai"] = c.Classifier.OpenAIAPIKey
	}
	return keys
}

// expandPath expands ~ and makes the path absolute.
// If path is empty and defaultPath is provided, uses the default.
func expandPath(path, defaultPath string) (string, error) {
	if path == "" {
		return defaultPath, nil
	}

	// Expand tilde.
	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, path[2:])
	}

	// Make absolute if needed.
	if !filepath.IsAbs(path) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("failed to get absolute path: %w", err)
		}
		path = absPath
	}

	return filepath.Clean(path), nil
}

// expandDataPath expands ~ and makes the path absolute.
func (c *Config) expandDataPath() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}
	defaultPath := filepath.Join(homeDir, ".skiptube")

	expanded, err := expandPath(c.Data.BasePath, defaultPath)
	if err != nil {
		return err
	}
	c.Data.BasePath = expanded
	return nil
}

// expandSpoolPath expands ~ and makes the path absolute.
// Defaults to {data}/spool if not specified.
func (c *Config) expandSpoolPath() error {
	defaultPath := filepath.Join(c.Data.BasePath, "spool")

	expanded, err := expandPath(c.Ingest.SpoolPath, defaultPath)
	if err != nil {
		return err
	}
	c.Ingest.SpoolPath = expanded
	return nil
}

// getConfigValue returns the first non-empty value from flag, env var, or default.
func getConfigValue(flagValue, envKey, defaultValue string) string {
	// Priority 1: Command-line flag.
	if flagValue != "" {
		return flagValue
	}

	// Priority 2: Environment variable.
	if envValue := os.Getenv(envKey); envValue != "" {
		return envValue
	}

	// Priority 3: Default value.
	return defaultValue
}

// getBoolConfigValue returns a bool from flag, env var, or default.
// Accepts: "true", "1", "yes" (case-insensitive) as true; anything else is false.
func getBoolConfigValue(flagValue, envKey string, defaultValue bool) bool {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	strValue = strings.ToLower(strValue)
	return strValue == "true" || strValue == "1" || strValue == "yes"
}

// getIntConfigValue returns an int from flag, env var, or default.
func getIntConfigValue(flagValue, envKey string, defaultValue int) int {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	var result int
	if _, err := fmt.Sscanf(strValue, "%d", &result); err != nil {
		return defaultValue
	}
	return result
}

// getFloatConfigValue returns a float from flag, env var, or default.
func getFloatConfigValue(flagValue, envKey string, defaultValue float64) float64 {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	var result float64
	if _, err := fmt.Sscanf(strValue, "%g", &result); err != nil {
		return defaultValue
	}
	return result
}

// loadEnvFile loads environment variables from a .env file.
// Format: KEY=value (one per line, # for comments).
func loadEnvFile(path string) error {
	file, err := os.Open(path) //#nosec G304 -- Config file path from user input is expected
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments.
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Parse KEY=value.
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return fmt.Errorf("invalid format at line %d: %s", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		// Remove quotes if present.
		value = strings.Trim(value, `"'`)

		// Only set if not already set (env vars take precedence over .env file).
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("failed to set env var %s: %w", key, err)
			}
		}
	}

	return scanner.Err()
}
