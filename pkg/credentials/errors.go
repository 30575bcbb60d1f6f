package credentials

import (
	"errors"
	"fmt"
	"time"
)

// NotConfiguredError reports that a provider has no opinion: the inputs it
// reads (environment variables, a profile section, a token file path) are
// simply not present. The chain continues past it.
type NotConfiguredError struct {
	// Source is the provider that declined.
	Source string
}

func (e *NotConfiguredError) Error() string {
	return e.Source + " is not configured"
}

// InvalidConfigurationError reports malformed or inconsistent local
// configuration: bad profile syntax, a profile naming a non-existent source
// profile, a circular profile reference, or an unreadable token file. It is
// terminal for the credentials chain regardless of the step's position,
// because it indicates user misconfiguration rather than transient
// unavailability.
type InvalidConfigurationError struct {
	// Profile is the offending profile name, when the error came from the
	// shared config file.
	Profile string

	// Setting is the offending setting name within the profile, if known.
	Setting string

	Message string
	Err     error
}

func (e *InvalidConfigurationError) Error() string {
	msg := "invalid configuration"
	if e.Profile != "" {
		msg += fmt.Sprintf(" in profile %q", e.Profile)
	}
	if e.Setting != "" {
		msg += fmt.Sprintf(" (setting %q)", e.Setting)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *InvalidConfigurationError) Unwrap() error { return e.Err }

// UnreachableError reports a network or local-endpoint failure on a remote
// identity step. Soft within the chain; hard when the step is the last one.
type UnreachableError struct {
	// Source is the identity source that could not be reached.
	Source string

	// Timeout is true when the step's bounded timeout elapsed rather than the
	// connection failing outright.
	Timeout bool

	Err error
}

func (e *UnreachableError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("%s timed out: %v", e.Source, e.Err)
	}
	return fmt.Sprintf("%s is unreachable: %v", e.Source, e.Err)
}

func (e *UnreachableError) Unwrap() error { return e.Err }

// ChainExhaustedError reports that every provider in the chain was tried
// without producing credentials. LastSource names the final attempted source,
// since earlier soft misses are expected and not diagnostic.
type ChainExhaustedError struct {
	LastSource string
	Err        error
}

func (e *ChainExhaustedError) Error() string {
	msg := "no credentials: provider chain exhausted, last attempted source " + e.LastSource
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ChainExhaustedError) Unwrap() error { return e.Err }

// ExpiredError reports that the cache holds no usable entry: the previous
// credentials are past their absolute expiration (or none were ever resolved)
// and the refresh attempt failed.
type ExpiredError struct {
	// Source names the wrapped provider.
	Source string

	// ExpiredAt is the absolute expiration of the stale entry, zero when no
	// entry was ever populated.
	ExpiredAt time.Time

	Err error
}

func (e *ExpiredError) Error() string {
	if e.ExpiredAt.IsZero() {
		return fmt.Sprintf("no valid credentials from %s: %v", e.Source, e.Err)
	}
	return fmt.Sprintf("credentials from %s expired at %s and refresh failed: %v",
		e.Source, e.ExpiredAt.Format(time.RFC3339), e.Err)
}

func (e *ExpiredError) Unwrap() error { return e.Err }

// IsNotConfigured reports whether err is a soft miss.
func IsNotConfigured(err error) bool {
	var nc *NotConfiguredError
	return errors.As(err, &nc)
}

// IsInvalidConfiguration reports whether err is terminal user misconfiguration.
func IsInvalidConfiguration(err error) bool {
	var ic *InvalidConfigurationError
	return errors.As(err, &ic)
}

// IsUnreachable reports whether err is a remote-step reachability failure.
func IsUnreachable(err error) bool {
	var ue *UnreachableError
	return errors.As(err, &ue)
}
