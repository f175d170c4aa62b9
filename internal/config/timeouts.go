package config

import (
	"os"
	"strconv"
	"time"
)

// Timeouts holds all configurable provider timeout values.
// These values can be customized via environment variables.
type Timeouts struct {
	Create            time.Duration // Timeout for a create call including its operation
	Delete            time.Duration // Timeout for a delete call including its operation
	Describe          time.Duration // Timeout for describe and list calls
	OperationPoll     time.Duration // Interval between long-running operation polls
	RetryMaxAttempts  int           // Maximum number of retry attempts
	RetryInitialDelay time.Duration // Initial delay between retries
}

// LoadTimeouts loads timeout configuration from environment variables.
// If an environment variable is not set or invalid, a default value is used.
//
// Environment Variables:
//   - TPUNANNY_TIMEOUT_CREATE (default: 10m)
//   - TPUNANNY_TIMEOUT_DELETE (default: 10m)
//   - TPUNANNY_TIMEOUT_DESCRIBE (default: 1m)
//   - TPUNANNY_OPERATION_POLL (default: 5s)
//   - TPUNANNY_RETRY_MAX_ATTEMPTS (default: 5)
//   - TPUNANNY_RETRY_INITIAL_DELAY (default: 1s)
func LoadTimeouts() *Timeouts {
	return &Timeouts{
		Create:            parseDuration("TPUNANNY_TIMEOUT_CREATE", 10*time.Minute),
		Delete:            parseDuration("TPUNANNY_TIMEOUT_DELETE", 10*time.Minute),
		Describe:          parseDuration("TPUNANNY_TIMEOUT_DESCRIBE", 1*time.Minute),
		OperationPoll:     parseDuration("TPUNANNY_OPERATION_POLL", 5*time.Second),
		RetryMaxAttempts:  parseInt("TPUNANNY_RETRY_MAX_ATTEMPTS", 5),
		RetryInitialDelay: parseDuration("TPUNANNY_RETRY_INITIAL_DELAY", 1*time.Second),
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
	if err != nil || d <= 0 {
		return defaultVal
	}

	return d
}

// parseInt parses an integer from an environment variable.
// If the variable is not set or parsing fails, the default value is returned.
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
