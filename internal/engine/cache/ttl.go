package cache

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// TTL configuration constants and defaults.
const (
	// DefaultTTLSeconds is the default cache TTL (1 day).
	DefaultTTLSeconds = 86400

	// MinTTLSeconds is the minimum allowed TTL (1 minute).
	MinTTLSeconds = 60

	// MaxTTLSeconds is the maximum allowed TTL (7 days).
	MaxTTLSeconds = 604800

	// DefaultCacheMaxSizeMB is the default maximum cache size in MB.
	DefaultCacheMaxSizeMB = 100

	// minutesPerHour is used for duration formatting calculations.
	minutesPerHour = 60

	// hoursPerDay is used for duration formatting calculations.
	hoursPerDay = 24

	// EnvTTLSeconds is the environment variable for overriding TTL.
	EnvTTLSeconds = "MEDIABATCH_CACHE_TTL_SECONDS"

	// EnvCacheEnabled is the environment variable for enabling/disabling cache.
	EnvCacheEnabled = "MEDIABATCH_CACHE_ENABLED"

	// EnvCacheDir is the environment variable for cache directory.
	EnvCacheDir = "MEDIABATCH_CACHE_DIR"

	// EnvCacheMaxSize is the environment variable for max cache size in MB.
	EnvCacheMaxSize = "MEDIABATCH_CACHE_MAX_SIZE_MB"
)

// TTL validation errors.
var (
	ErrInvalidTTL = fmt.Errorf("TTL must be between %d and %d seconds", MinTTLSeconds, MaxTTLSeconds)
)

// GetTTLFromEnv reads the TTL from the environment, accepting seconds or a
// duration string. Missing or invalid values yield the default.
func GetTTLFromEnv() int {
	envVal := os.Getenv(EnvTTLSeconds)
	if envVal == "" {
		return DefaultTTLSeconds
	}

	ttl, err := ParseTTL(envVal)
	if err != nil {
		return DefaultTTLSeconds
	}
	return ttl
}

// GetCacheEnabledFromEnv reads the cache enabled flag from environment variable.
// Returns true by default if the variable is not set.
func GetCacheEnabledFromEnv() bool {
	envVal := os.Getenv(EnvCacheEnabled)
	if envVal == "" {
		return true // Enabled by default
	}

	enabled, err := strconv.ParseBool(envVal)
	if err != nil {
		return true // Default to enabled on parse error
	}

	return enabled
}

// GetCacheDirFromEnv reads the cache directory from environment variable.
// Returns an empty string if not set (caller should use default).
func GetCacheDirFromEnv() string {
	return os.Getenv(EnvCacheDir)
}

// GetCacheMaxSizeFromEnv reads the max cache size from environment variable.
// Returns DefaultCacheMaxSizeMB if not set or invalid.
func GetCacheMaxSizeFromEnv() int {
	envVal := os.Getenv(EnvCacheMaxSize)
	if envVal == "" {
		return DefaultCacheMaxSizeMB
	}

	maxSize, err := strconv.Atoi(envVal)
	if err != nil {
		return DefaultCacheMaxSizeMB
	}

	if maxSize < 0 {
		return DefaultCacheMaxSizeMB // Negative is invalid, use default
	}

	return maxSize
}

// FormatDuration formats a duration in a human-readable way.
// Examples: "1h", "30m", "5m30s".
func FormatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.0fs", d.Seconds())
	}
	if d < time.Hour {
		return fmt.Sprintf("%.0fm", d.Minutes())
	}
	if d < hoursPerDay*time.Hour {
		hours := int(d.Hours())
		minutes := int(d.Minutes()) % minutesPerHour
		if minutes == 0 {
			return fmt.Sprintf("%dh", hours)
		}
		return fmt.Sprintf("%dh%dm", hours, minutes)
	}
	days := int(d.Hours()) / hoursPerDay
	hours := int(d.Hours()) % hoursPerDay
	if hours == 0 {
		return fmt.Sprintf("%dd", days)
	}
	return fmt.Sprintf("%dd%dh", days, hours)
}

// ParseTTL parses a TTL string in various formats:
// - Integer seconds: "3600".
// - Duration string: "1h", "30m", "1h30m".
func ParseTTL(s string) (int, error) {
	// Try parsing as integer seconds first
	if seconds, err := strconv.Atoi(s); err == nil {
		if seconds < MinTTLSeconds || seconds > MaxTTLSeconds {
			return 0, fmt.Errorf("%w: got %d", ErrInvalidTTL, seconds)
		}
		return seconds, nil
	}

	// Try parsing as duration
	duration, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid TTL format: %w", err)
	}

	seconds := int(duration.Seconds())
	if seconds < MinTTLSeconds || seconds > MaxTTLSeconds {
		return 0, fmt.Errorf("%w: got %d", ErrInvalidTTL, seconds)
	}

	return seconds, nil
}

// Options configures a FileStore.
type Options struct {
	Directory  string
	Enabled    bool
	TTLSeconds int
	MaxSizeMB  int
}

// WithEnv returns o with MEDIABATCH_CACHE_* environment overrides applied.
// Only variables that are set take effect.
func (o Options) WithEnv() Options {
	if os.Getenv(EnvCacheEnabled) != "" {
		o.Enabled = GetCacheEnabledFromEnv()
	}
	if os.Getenv(EnvTTLSeconds) != "" {
		o.TTLSeconds = GetTTLFromEnv()
	}
	if dir := GetCacheDirFromEnv(); dir != "" {
		o.Directory = dir
	}
	if os.Getenv(EnvCacheMaxSize) != "" {
		o.MaxSizeMB = GetCacheMaxSizeFromEnv()
	}
	if o.TTLSeconds <= 0 {
		o.TTLSeconds = DefaultTTLSeconds
	}
	return o
}

// Open creates the FileStore described by o.
func (o Options) Open() (*FileStore, error) {
	return NewFileStore(o.Directory, o.Enabled, o.TTLSeconds, o.MaxSizeMB)
}
