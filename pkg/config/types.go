package config

import (
	"strings"
	"time"
)

// RetryMode selects the SDK retry strategy.
type RetryMode string

const (
	// RetryModeStandard is the default bounded-attempt strategy.
	RetryModeStandard RetryMode = "standard"
	// RetryModeAdaptive adds client-side rate limiting on top of standard.
	RetryModeAdaptive RetryMode = "adaptive"
)

// ParseRetryMode parses a mode name case-insensitively.
func ParseRetryMode(s string) (RetryMode, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case string(RetryModeStandard):
		return RetryModeStandard, true
	case string(RetryModeAdaptive):
		return RetryModeAdaptive, true
	}
	return "", false
}

// RetryConfig is the resolved retry policy axis.
type RetryConfig struct {
	// MaxAttempts is the total attempt budget including the first try.
	MaxAttempts int

	Mode RetryMode
}

// DefaultRetryConfig is the terminal default of the retry chain.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{MaxAttempts: 3, Mode: RetryModeStandard}
}

// TimeoutConfig is the resolved timeout policy axis. Zero durations mean no
// bound for that phase.
type TimeoutConfig struct {
	// APICall bounds one logical operation including all retry attempts.
	APICall time.Duration

	// APICallAttempt bounds a single attempt within an operation.
	APICallAttempt time.Duration
}

// IsZero reports whether no timeout is configured.
func (t TimeoutConfig) IsZero() bool {
	return t.APICall == 0 && t.APICallAttempt == 0
}

// appName values are restricted to a short token-safe alphabet.
const appNameMaxLen = 50

// ValidAppName reports whether s satisfies the application-name rule:
// at most 50 characters from letters, digits, and !$%&'*+-.^_`|~.
func ValidAppName(s string) bool {
	if s == "" || len(s) > appNameMaxLen {
		return false
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case strings.ContainsRune("!$%&'*+-.^_`|~", r):
		default:
			return false
		}
	}
	return true
}
