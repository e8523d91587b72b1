package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

// Server contains HTTP server configuration
type Server struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// Weather contains temporal routing thresholds and provider credentials
type Weather struct {
	ShortTermDays       int    `toml:"short_term_days"` // Operational forecast window (days from today)
	SeasonalDays        int    `toml:"seasonal_days"`   // Seasonal ensemble window (days from today)
	MeteomaticsUsername string `toml:"meteomatics_username"`
	MeteomaticsPassword string `toml:"meteomatics_password"`
}

// Claude contains Claude AI model configuration
type Claude struct {
	APIKey      string  `toml:"api_key"`
	Model       string  `toml:"model"`
	MaxTokens   int     `toml:"max_tokens"`
	Temperature float64 `toml:"temperature"`
	MaxRetries  int     `toml:"max_retries"`
	BaseDelayMs int     `toml:"base_delay_ms"` // Base delay in milliseconds
	MaxDelayMs  int     `toml:"max_delay_ms"`  // Max delay in milliseconds
	RateLimit   int     `toml:"rate_limit"`    // Requests per minute
}

// RateLimit contains the interactive request gates
type RateLimit struct {
	MinIntervalMs int `toml:"min_interval_ms"` // Minimum spacing between requests
	MaxRequests   int `toml:"max_requests"`    // Budget inside the sliding window
	WindowSeconds int `toml:"window_seconds"`  // Sliding window size
}

// Cache contains the in-memory result cache sizing
type Cache struct {
	Capacity   int `toml:"capacity"`
	EvictBatch int `toml:"evict_batch"`
}

// Storage contains the data directory for events and settings
type Storage struct {
	DataDir string `toml:"data_dir"`
}

// Scheduler contains the favorability sweep cadence
type Scheduler struct {
	Enabled         bool `toml:"enabled"`
	IntervalMinutes int  `toml:"interval_minutes"`
}

// Logging contains logging configuration with rotation and cross-platform support
type Logging struct {
	Enabled         bool   `toml:"enabled"`          // Enable file logging
	Directory       string `toml:"directory"`        // Log directory (relative or absolute)
	FilenamePattern string `toml:"filename_pattern"` // Log filename with date patterns
	Level           string `toml:"level"`            // Log level: debug, info, warn, error
	MaxSizeMB       int    `toml:"max_size_mb"`      // Rotate when file exceeds this size
	ConsoleOutput   bool   `toml:"console_output"`   // Also output to console
}

// Config represents the complete application configuration
type Config struct {
	Server    Server    `toml:"server"`
	Weather   Weather   `toml:"weather"`
	Claude    Claude    `toml:"claude"`
	RateLimit RateLimit `toml:"ratelimit"`
	Cache     Cache     `toml:"cache"`
	Storage   Storage   `toml:"storage"`
	Scheduler Scheduler `toml:"scheduler"`
	Logging   Logging   `toml:"logging"`
}

// LoadConfig reads and parses a TOML configuration file, then layers any
// environment variable overrides on top. A .env file in the working
// directory is honored when present.
func LoadConfig(configPath string) (*Config, error) {
	cleanPath := filepath.Clean(configPath)

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &ConfigNotFoundError{Path: cleanPath}
		}
		return nil, fmt.Errorf("failed to read configuration file: %w", err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse TOML configuration: %w", err)
	}

	config.applyEnvOverrides()
	config.ApplyDefaults()

	return &config, nil
}

// applyEnvOverrides lets deployment environments inject credentials without
// touching the config file. Missing .env files are not an error.
func (c *Config) applyEnvOverrides() {
	_ = godotenv.Load()

	if v := os.Getenv("METEOMATICS_USERNAME"); v != "" {
		c.Weather.MeteomaticsUsername = v
	}
	if v := os.Getenv("METEOMATICS_PASSWORD"); v != "" {
		c.Weather.MeteomaticsPassword = v
	}
	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" {
		c.Claude.APIKey = v
	}
	if v := os.Getenv("EVENTCAST_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}
	if v := os.Getenv("EVENTCAST_DATA_DIR"); v != "" {
		c.Storage.DataDir = v
	}
}

// ApplyDefaults sets default values for optional configuration fields
func (c *Config) ApplyDefaults() {
	if strings.TrimSpace(c.Server.Host) == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port <= 0 {
		c.Server.Port = 3001
	}

	if c.Weather.ShortTermDays <= 0 {
		c.Weather.ShortTermDays = 15
	}
	if c.Weather.SeasonalDays <= 0 {
		c.Weather.SeasonalDays = 210
	}

	if strings.TrimSpace(c.Claude.Model) == "" {
		c.Claude.Model = "claude-3-5-haiku-20241022"
	}
	if c.Claude.MaxTokens <= 0 {
		c.Claude.MaxTokens = 500
	}
	if c.Claude.Temperature <= 0 {
		c.Claude.Temperature = 0.7
	}
	if c.Claude.MaxRetries <= 0 {
		c.Claude.MaxRetries = 3
	}
	if c.Claude.BaseDelayMs <= 0 {
		c.Claude.BaseDelayMs = 1000
	}
	if c.Claude.MaxDelayMs <= 0 {
		c.Claude.MaxDelayMs = 30000
	}
	if c.Claude.RateLimit <= 0 {
		c.Claude.RateLimit = 50
	}

	if c.RateLimit.MinIntervalMs <= 0 {
		c.RateLimit.MinIntervalMs = 2000
	}
	if c.RateLimit.MaxRequests <= 0 {
		c.RateLimit.MaxRequests = 30
	}
	if c.RateLimit.WindowSeconds <= 0 {
		c.RateLimit.WindowSeconds = 60
	}

	if c.Cache.Capacity <= 0 {
		c.Cache.Capacity = 50
	}
	if c.Cache.EvictBatch <= 0 {
		c.Cache.EvictBatch = 10
	}

	if strings.TrimSpace(c.Storage.DataDir) == "" {
		c.Storage.DataDir = "data"
	}

	if c.Scheduler.IntervalMinutes <= 0 {
		c.Scheduler.IntervalMinutes = 360
	}

	if strings.TrimSpace(c.Logging.Directory) == "" {
		c.Logging.Directory = "logs"
	}
	if strings.TrimSpace(c.Logging.FilenamePattern) == "" {
		c.Logging.FilenamePattern = "eventcast-YYYYMMDD.log"
	}
	if strings.TrimSpace(c.Logging.Level) == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.MaxSizeMB <= 0 {
		c.Logging.MaxSizeMB = 10
	}
}

// ConfigNotFoundError represents a missing configuration file
type ConfigNotFoundError struct {
	Path string
}

func (e *ConfigNotFoundError) Error() string {
	return fmt.Sprintf("configuration file not found: %s\n\nTo create a sample configuration file, run:\n  %s --generate-config", e.Path, filepath.Base(os.Args[0]))
}

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation error in %s: %s", e.Field, e.Message)
}

// MultiValidationError represents multiple validation errors
type MultiValidationError struct {
	Errors []ValidationError
}

func (e *MultiValidationError) Error() string {
	var messages []string
	for _, err := range e.Errors {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("configuration validation failed:\n  %s", strings.Join(messages, "\n  "))
}

// Validate checks the configuration for correctness and completeness.
// Meteomatics credentials and the Claude key are optional: without the
// former only the historical provider works, without the latter all
// explanations use the local fallback.
func (c *Config) Validate() error {
	var errors []ValidationError

	errors = append(errors, c.validateServer()...)
	errors = append(errors, c.validateWeather()...)
	errors = append(errors, c.validateClaude()...)
	errors = append(errors, c.validateRateLimit()...)
	errors = append(errors, c.validateLogging()...)

	if len(errors) > 0 {
		return &MultiValidationError{Errors: errors}
	}
	return nil
}

func (c *Config) validateServer() []ValidationError {
	var errors []ValidationError

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errors = append(errors, ValidationError{
			Field:   "server.port",
			Message: fmt.Sprintf("port must be between 1 and 65535, got %d", c.Server.Port),
		})
	}

	return errors
}

func (c *Config) validateWeather() []ValidationError {
	var errors []ValidationError

	if c.Weather.ShortTermDays >= c.Weather.SeasonalDays {
		errors = append(errors, ValidationError{
			Field:   "weather.short_term_days",
			Message: fmt.Sprintf("short_term_days (%d) must be below seasonal_days (%d)", c.Weather.ShortTermDays, c.Weather.SeasonalDays),
		})
	}

	// Credentials come as a pair or not at all.
	hasUser := strings.TrimSpace(c.Weather.MeteomaticsUsername) != ""
	hasPass := strings.TrimSpace(c.Weather.MeteomaticsPassword) != ""
	if hasUser != hasPass {
		errors = append(errors, ValidationError{
			Field:   "weather.meteomatics_username",
			Message: "meteomatics_username and meteomatics_password must be set together",
		})
	}

	return errors
}

func (c *Config) validateClaude() []ValidationError {
	var errors []ValidationError

	if c.Claude.MaxTokens < 100 || c.Claude.MaxTokens > 4096 {
		errors = append(errors, ValidationError{
			Field:   "claude.max_tokens",
			Message: fmt.Sprintf("max_tokens must be between 100 and 4096, got %d", c.Claude.MaxTokens),
		})
	}

	if c.Claude.Temperature < 0 || c.Claude.Temperature > 1 {
		errors = append(errors, ValidationError{
			Field:   "claude.temperature",
			Message: fmt.Sprintf("temperature must be between 0 and 1, got %.2f", c.Claude.Temperature),
		})
	}

	return errors
}

func (c *Config) validateRateLimit() []ValidationError {
	var errors []ValidationError

	if c.RateLimit.MaxRequests > 1000 {
		errors = append(errors, ValidationError{
			Field:   "ratelimit.max_requests",
			Message: fmt.Sprintf("max_requests must be at most 1000, got %d", c.RateLimit.MaxRequests),
		})
	}
	if c.RateLimit.MinIntervalMs > c.RateLimit.WindowSeconds*1000 {
		errors = append(errors, ValidationError{
			Field:   "ratelimit.min_interval_ms",
			Message: "min_interval_ms cannot exceed the sliding window",
		})
	}

	return errors
}

func (c *Config) validateLogging() []ValidationError {
	var errors []ValidationError

	validLevels := []string{"debug", "info", "warn", "error"}
	level := strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if level != "" {
		valid := false
		for _, validLevel := range validLevels {
			if level == validLevel {
				valid = true
				break
			}
		}
		if !valid {
			errors = append(errors, ValidationError{
				Field:   "logging.level",
				Message: fmt.Sprintf("level must be one of: %s, got '%s'", strings.Join(validLevels, ", "), c.Logging.Level),
			})
		}
	}

	if c.Logging.MaxSizeMB < 0 || c.Logging.MaxSizeMB > 1000 {
		errors = append(errors, ValidationError{
			Field:   "logging.max_size_mb",
			Message: fmt.Sprintf("max_size_mb must be between 0 and 1000, got %d", c.Logging.MaxSizeMB),
		})
	}

	if c.Logging.Enabled && strings.TrimSpace(c.Logging.Directory) == "" {
		errors = append(errors, ValidationError{
			Field:   "logging.directory",
			Message: "directory is required when logging is enabled",
		})
	}

	return errors
}

// GenerateSampleConfig creates a sample configuration file at the specified path
func GenerateSampleConfig(configPath string) error {
	sampleConfig := `# Eventcast Configuration File
# Weather-aware event planning service

[server]
host = "0.0.0.0"
port = 3001

[weather]
# Temporal routing thresholds (days from today)
# Dates within short_term_days use the operational forecast,
# dates within seasonal_days use the seasonal ensemble,
# anything beyond uses the climate projection.
short_term_days = 15
seasonal_days = 210

# Meteomatics credentials (https://www.meteomatics.com/)
# Leave empty to serve historical data only.
# Can also be set via METEOMATICS_USERNAME / METEOMATICS_PASSWORD.
meteomatics_username = ""
meteomatics_password = ""

[claude]
# Anthropic API key (https://console.anthropic.com/)
# Can also be set via ANTHROPIC_API_KEY.
# Leave empty to use locally generated explanations.
api_key = ""

# Claude model for weather explanations
model = "claude-3-5-haiku-20241022"

# Maximum tokens to generate (100-4096)
max_tokens = 500

# Temperature for response generation (0-1, higher = more creative)
temperature = 0.7

# Retry settings for API failures
max_retries = 3
base_delay_ms = 1000
max_delay_ms = 30000

# Rate limiting (requests per minute)
rate_limit = 50

[ratelimit]
# Interactive lookup gates
min_interval_ms = 2000   # Minimum spacing between lookups
max_requests = 30        # Budget inside the sliding window
window_seconds = 60      # Sliding window size

[cache]
# In-memory result cache
capacity = 50       # Entries before eviction kicks in
evict_batch = 10    # Oldest entries dropped per eviction

[storage]
# Directory for events and settings files
data_dir = "data"

[scheduler]
# Periodic favorability re-evaluation of stored events
enabled = true
interval_minutes = 360

[logging]
enabled = true
directory = "logs"
filename_pattern = "eventcast-YYYYMMDD.log"
level = "info"
max_size_mb = 10
console_output = true
`

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(configPath, []byte(sampleConfig), 0644); err != nil {
		return fmt.Errorf("failed to write sample config: %w", err)
	}

	return nil
}
