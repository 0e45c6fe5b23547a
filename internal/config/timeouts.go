package config

import (
	"os"
	"strconv"
	"time"
)

// Timeouts holds the configurable time limits and retry counts.
// A zero duration means no limit.
type Timeouts struct {
	Download          time.Duration // Per-download limit (bundle, geo data, signing key)
	Command           time.Duration // Per external command limit (apt-get, pip, systemctl)
	DownloadRetries   int           // Extra download attempts after the first failure
	RetryInitialDelay time.Duration // Initial delay between download retries
}

// LoadTimeouts loads timeout configuration from environment variables.
// If an environment variable is not set or invalid, a default value is used.
//
// Environment Variables:
//   - HOSTFORGE_TIMEOUT_DOWNLOAD (default: 15m)
//   - HOSTFORGE_TIMEOUT_COMMAND (default: 0, no limit)
//   - HOSTFORGE_DOWNLOAD_RETRIES (default: 0)
//   - HOSTFORGE_RETRY_INITIAL_DELAY (default: 2s)
func LoadTimeouts() *Timeouts {
	return &Timeouts{
		Download:          parseDuration("HOSTFORGE_TIMEOUT_DOWNLOAD", 15*time.Minute),
		Command:           parseDuration("HOSTFORGE_TIMEOUT_COMMAND", 0),
		DownloadRetries:   parseInt("HOSTFORGE_DOWNLOAD_RETRIES", 0),
		RetryInitialDelay: parseDuration("HOSTFORGE_RETRY_INITIAL_DELAY", 2*time.Second),
	}
}

// parseDuration parses a duration from an environment variable.
// If the variable is not set or parsing fails, the default value is returned.
func parseDuration(envVar string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(envVar)
	if val == "" {
		return defaultVal
	}

	d, err := time.ParseDuration(val)
	if err != nil || d < 0 {
		return defaultVal
	}

	return d
}

// parseInt parses a non-negative integer from an environment variable.
func parseInt(envVar string, defaultVal int) int {
	val := os.Getenv(envVar)
	if val == "" {
		return defaultVal
	}

	i, err := strconv.Atoi(val)
	if err != nil || i < 0 {
		return defaultVal
	}

	return i
}
