package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the application
type Config struct {
	Redis    RedisConfig
	Telegram TelegramConfig
	App      AppConfig
	Retry    RetryProfiles
}

// RedisConfig holds connection settings for the shared store
type RedisConfig struct {
	Host     string
	Port     int
	Password string
}

// TelegramConfig holds delivery settings
type TelegramConfig struct {
	BotToken          string
	GroupOutputMode   string // "short" or "full"
	AutoDeleteTimeout int    // seconds - lifetime of transient status messages
}

// AppConfig holds application-specific configuration
type AppConfig struct {
	LogLevel            string
	PingThresholdMs     float64 // acceptable ping for the suitability verdict
	HTTPTimeout         int     // seconds
	PortScanTimeout     int     // seconds - per TCP connect attempt
	QueuePopTimeout     int     // seconds - BRPOP block time per worker iteration
	CheckDeadline       int     // seconds - hard deadline for one full probe run
	CacheTTL            int     // seconds
	PendingTTL          int     // seconds - dedup marker safety net
	SaveApprovedDomains bool
	RIREnabled          bool
	GeoIP2DBPath        string
	DNSResolvers        []string
	// Batch processing settings
	BatchSize           int
	ProgressUpdateDelay float64 // seconds - minimum gap between progress edits
}

// RetryConfig describes one exponential backoff profile
type RetryConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Multiplier  float64
	Jitter      bool
}

// RetryProfiles holds the per-operation-class retry profiles
type RetryProfiles struct {
	Check    RetryConfig
	Store    RetryConfig
	Delivery RetryConfig
}

// Load loads configuration from environment variables
func Load() *Config {
	return &Config{
		Redis:    LoadRedisConfig(),
		Telegram: LoadTelegramConfig(),
		App:      LoadAppConfig(),
		Retry:    LoadRetryProfiles(),
	}
}

// LoadRedisConfig loads shared store connection settings
func LoadRedisConfig() RedisConfig {
	return RedisConfig{
		Host:     getEnv("REDIS_HOST", "localhost"),
		Port:     getEnvAsInt("REDIS_PORT", 6379),
		Password: getEnv("REDIS_PASSWORD", ""),
	}
}

// LoadTelegramConfig loads delivery settings
func LoadTelegramConfig() TelegramConfig {
	return TelegramConfig{
		BotToken:          getEnv("BOT_TOKEN", ""),
		GroupOutputMode:   strings.ToLower(getEnv("GROUP_OUTPUT_MODE", "short")),
		AutoDeleteTimeout: getEnvAsInt("AUTO_DELETE_TIMEOUT", 60),
	}
}

// LoadAppConfig loads application-specific configuration
func LoadAppConfig() AppConfig {
	return AppConfig{
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		PingThresholdMs:     getEnvAsFloat("PING_THRESHOLD_MS", 50),
		HTTPTimeout:         getEnvAsInt("HTTP_TIMEOUT", 20),
		PortScanTimeout:     getEnvAsInt("PORT_SCAN_TIMEOUT", 2),
		QueuePopTimeout:     getEnvAsInt("QUEUE_POP_TIMEOUT", 5),
		CheckDeadline:       getEnvAsInt("CHECK_DEADLINE", 300),
		CacheTTL:            getEnvAsInt("CACHE_TTL", 604800), // 7 days
		PendingTTL:          getEnvAsInt("PENDING_TTL", 300),  // 5 minutes
		SaveApprovedDomains: getEnvAsBool("SAVE_APPROVED_DOMAINS", false),
		RIREnabled:          getEnvAsBool("RIR_ENABLED", true),
		GeoIP2DBPath:        getEnv("GEOIP2_DB_PATH", "/app/data/GeoLite2-City.mmdb"),
		DNSResolvers:        getEnvAsList("DNS_RESOLVERS", "8.8.8.8:53,1.1.1.1:53"),
		BatchSize:           getEnvAsInt("BATCH_SIZE", 3),
		ProgressUpdateDelay: getEnvAsFloat("PROGRESS_UPDATE_DELAY", 0.8),
	}
}

// LoadRetryProfiles loads the named backoff profiles, attempts overridable per class
func LoadRetryProfiles() RetryProfiles {
	return RetryProfiles{
		Check: RetryConfig{
			MaxAttempts: getEnvAsInt("CHECK_RETRY_ATTEMPTS", 3),
			BaseDelay:   2 * time.Second,
			MaxDelay:    30 * time.Second,
			Multiplier:  2.0,
			Jitter:      true,
		},
		Store: RetryConfig{
			MaxAttempts: getEnvAsInt("STORE_RETRY_ATTEMPTS", 5),
			BaseDelay:   500 * time.Millisecond,
			MaxDelay:    10 * time.Second,
			Multiplier:  1.5,
			Jitter:      true,
		},
		Delivery: RetryConfig{
			MaxAttempts: getEnvAsInt("DELIVERY_RETRY_ATTEMPTS", 3),
			BaseDelay:   1 * time.Second,
			MaxDelay:    15 * time.Second,
			Multiplier:  2.0,
			Jitter:      true,
		},
	}
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	if err := c.App.ValidateAppConfig(); err != nil {
		return err
	}

	if err := c.Telegram.ValidateTelegramConfig(); err != nil {
		return err
	}

	return nil
}

// ValidateAppConfig validates application-specific configuration
func (c *AppConfig) ValidateAppConfig() error {
	validations := []struct {
		field     string
		value     int
		min, max  int
		fieldName string
	}{
		{"CHECK_DEADLINE", c.CheckDeadline, 30, 3600, "Check deadline"},
		{"QUEUE_POP_TIMEOUT", c.QueuePopTimeout, 1, 60, "Queue pop timeout"},
		{"HTTP_TIMEOUT", c.HTTPTimeout, 1, 120, "HTTP probe timeout"},
		{"PORT_SCAN_TIMEOUT", c.PortScanTimeout, 1, 30, "Port scan timeout"},
		{"CACHE_TTL", c.CacheTTL, 60, 2592000, "Cache TTL"},
		{"PENDING_TTL", c.PendingTTL, 10, 3600, "Pending marker TTL"},
	}

	for _, v := range validations {
		if err := validateRange(v.field, v.value, v.min, v.max, v.fieldName); err != nil {
			return err
		}
	}

	if c.PingThresholdMs <= 0 {
		return &ConfigError{
			Field:   "PING_THRESHOLD_MS",
			Message: "Ping threshold must be positive",
		}
	}

	if len(c.DNSResolvers) == 0 {
		return &ConfigError{
			Field:   "DNS_RESOLVERS",
			Message: "At least one DNS resolver is required",
		}
	}

	if err := validateLogLevel(c.LogLevel); err != nil {
		return err
	}

	return nil
}

// ValidateTelegramConfig validates delivery configuration
func (c *TelegramConfig) ValidateTelegramConfig() error {
	if c.GroupOutputMode != "short" && c.GroupOutputMode != "full" {
		return &ConfigError{
			Field:   "GROUP_OUTPUT_MODE",
			Message: fmt.Sprintf("Invalid group output mode '%s'. Valid modes are: short, full", c.GroupOutputMode),
		}
	}
	return nil
}

// validateRange validates that a value is within the specified range
func validateRange(field string, value, min, max int, fieldName string) error {
	if value < min || value > max {
		message := fmt.Sprintf("%s must be between %d and %d", fieldName, min, max)
		message += " seconds"

		return &ConfigError{
			Field:   field,
			Message: message,
		}
	}
	return nil
}

// validateLogLevel validates that the log level is valid
func validateLogLevel(logLevel string) error {
	validLevels := []string{"debug", "info", "warning", "warn", "error", "fatal"}
	logLevelLower := strings.ToLower(logLevel)

	for _, valid := range validLevels {
		if logLevelLower == valid {
			return nil
		}
	}

	return &ConfigError{
		Field:   "LOG_LEVEL",
		Message: fmt.Sprintf("Invalid log level '%s'. Valid levels are: %s", logLevel, strings.Join(validLevels, ", ")),
	}
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return e.Message
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvAsList(key, defaultValue string) []string {
	value := getEnv(key, defaultValue)
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
