// Package credentials defines the credential value type, the provider
// interface implemented by every credential source, and the error taxonomy the
// resolution chain uses to tell "this source has no opinion" apart from "this
// source is broken".
//
// # Provider architecture
//
// A Provider is one step of the credential resolution chain: environment
// variables, a shared profile, a web-identity token file, the container
// credentials endpoint, the instance metadata service, an SSO session, or an
// assumed role. Providers are tried in a fixed priority order; the first one
// that yields credentials wins.
//
// Providers must be safe for concurrent use. Multiple goroutines may call
// Retrieve at the same time; the lazy cache in front of the chain coalesces
// those calls, but individual providers may still be shared.
//
// # Error handling
//
// Providers signal their position in the chain policy through typed errors:
//
//   - NotConfiguredError: the source has no opinion; the chain moves on.
//   - InvalidConfigurationError: user misconfiguration (bad profile syntax, a
//     profile naming a missing source profile, an unreadable token file);
//     terminal for the chain regardless of position.
//   - UnreachableError: a remote identity step timed out or could not connect;
//     soft within the chain, surfaced verbatim when it is the final step.
//
// Any other error from a provider is treated as terminal.
package credentials

import (
	"context"
	"time"
)

// Credentials is an immutable set of AWS security credentials. Once produced
// by a provider it is never mutated; the cache replaces entries wholesale.
type Credentials struct {
	// AccessKeyID is the public access key identifier.
	AccessKeyID string

	// SecretAccessKey is the secret key material. Never log this field; use
	// the logging package's Secret wrapper if it must appear in a message.
	SecretAccessKey string

	// SessionToken is set for temporary credentials, empty for long-lived keys.
	SessionToken string

	// Expires is the absolute expiration of temporary credentials. Nil means
	// the credentials never expire (static long-lived keys).
	Expires *time.Time

	// Source names the provider that produced the credentials, for diagnostics.
	Source string
}

// HasKeys reports whether both key components are present.
func (c Credentials) HasKeys() bool {
	return c.AccessKeyID != "" && c.SecretAccessKey != ""
}

// CanExpire reports whether the credentials carry an expiration.
func (c Credentials) CanExpire() bool {
	return c.Expires != nil
}

// ExpiredAt reports whether the credentials are past their absolute expiration
// as of the given instant. Credentials without an expiration never expire.
func (c Credentials) ExpiredAt(now time.Time) bool {
	return c.Expires != nil && !now.Before(*c.Expires)
}

// String implements fmt.Stringer without exposing key material.
func (c Credentials) String() string {
	return "Credentials{Source: " + c.Source + ", AccessKeyID: " + c.AccessKeyID + ", SecretAccessKey: [REDACTED]}"
}

// Provider is a single credential source.
type Provider interface {
	// Name returns a stable identifier for the source, used in error messages
	// and chain diagnostics. Examples: "Environment", "SharedProfile",
	// "WebIdentity", "EcsContainer", "Ec2InstanceMetadata", "SSO", "AssumeRole".
	Name() string

	// Retrieve resolves credentials or fails with one of the taxonomy errors.
	// Implementations must honor context cancellation on any network or
	// filesystem access.
	Retrieve(ctx context.Context) (Credentials, error)
}

// StaticProvider serves a fixed set of credentials. It backs the loader's
// explicit credentials override and never fails.
type StaticProvider struct {
	creds Credentials
}

// NewStaticProvider returns a provider that always yields the given keys.
func NewStaticProvider(accessKeyID, secretAccessKey, sessionToken string) *StaticProvider {
	return &StaticProvider{creds: Credentials{
		AccessKeyID:     accessKeyID,
		SecretAccessKey: secretAccessKey,
		SessionToken:    sessionToken,
		Source:          "Static",
	}}
}

// Name implements Provider.
func (p *StaticProvider) Name() string { return "Static" }

// Retrieve implements Provider.
func (p *StaticProvider) Retrieve(context.Context) (Credentials, error) {
	return p.creds, nil
}
