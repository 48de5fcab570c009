package config

import (
	"os"
	"strconv"
	"time"
)

// Timeouts holds the deployment timing defaults.
// These values can be customized via environment variables.
type Timeouts struct {
	Bootstrap         time.Duration // Maximum wait for the bootstrap validator to become ready
	Validator         time.Duration // Maximum wait for each regular validator to become ready
	Verify            time.Duration // Final poll window of the convergence check
	PollInterval      time.Duration // First delay between readiness polls
	MaxPollInterval   time.Duration // Cap on the delay between readiness polls
	RetryMaxAttempts  int           // Maximum number of API attempts per node
	RetryInitialDelay time.Duration // Initial delay between API retries
	RetryMaxDelay     time.Duration // Cap on the delay between API retries
}

// DefaultTimeouts returns the built-in timing defaults without consulting the
// environment.
func DefaultTimeouts() *Timeouts {
	return &Timeouts{
		Bootstrap:         10 * time.Minute,
		Validator:         10 * time.Minute,
		Verify:            3 * time.Minute,
		PollInterval:      DefaultPollInterval,
		MaxPollInterval:   DefaultMaxPollInterval,
		RetryMaxAttempts:  5,
		RetryInitialDelay: 1 * time.Second,
		RetryMaxDelay:     DefaultRetryMaxDelay,
	}
}

// LoadTimeouts loads timeout configuration from environment variables.
// If an environment variable is not set or invalid, a default value is used.
//
// Environment Variables:
//   - SOLK8S_TIMEOUT_BOOTSTRAP (default: 10m)
//   - SOLK8S_TIMEOUT_VALIDATOR (default: 10m)
//   - SOLK8S_TIMEOUT_VERIFY (default: 3m)
//   - SOLK8S_POLL_INTERVAL (default: 2s)
//   - SOLK8S_POLL_MAX_INTERVAL (default: 15s)
//   - SOLK8S_RETRY_MAX_ATTEMPTS (default: 5)
//   - SOLK8S_RETRY_INITIAL_DELAY (default: 1s)
//   - SOLK8S_RETRY_MAX_DELAY (default: 30s)
func LoadTimeouts() *Timeouts {
	d := DefaultTimeouts()
	return &Timeouts{
		Bootstrap:         parseDuration("SOLK8S_TIMEOUT_BOOTSTRAP", d.Bootstrap),
		Validator:         parseDuration("SOLK8S_TIMEOUT_VALIDATOR", d.Validator),
		Verify:            parseDuration("SOLK8S_TIMEOUT_VERIFY", d.Verify),
		PollInterval:      parseDuration("SOLK8S_POLL_INTERVAL", d.PollInterval),
		MaxPollInterval:   parseDuration("SOLK8S_POLL_MAX_INTERVAL", d.MaxPollInterval),
		RetryMaxAttempts:  parseInt("SOLK8S_RETRY_MAX_ATTEMPTS", d.RetryMaxAttempts),
		RetryInitialDelay: parseDuration("SOLK8S_RETRY_INITIAL_DELAY", d.RetryInitialDelay),
		RetryMaxDelay:     parseDuration("SOLK8S_RETRY_MAX_DELAY", d.RetryMaxDelay),
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
	if err != nil {
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
	if err != nil {
		return defaultVal
	}

	return i
}
