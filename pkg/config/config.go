// Package config resolves runtime configuration for an AWS service client
// from its competing sources and assembles an immutable snapshot: region,
// credentials provider, retry policy, timeouts, application name, and endpoint
// override.
//
// Each axis is resolved through an ordered fallback chain (environment, then
// shared profile, then platform sources, then a built-in default) unless the
// Loader carries an explicit override for it, in which case the chain for
// that axis is skipped entirely, even when the override resolves to nothing.
// The credentials axis
// is wrapped in an expiration-aware, single-flight cache before it reaches
// the snapshot.
//
//	cfg, err := config.New().WithRegion("us-east-1").Load(ctx)
//	if err != nil { ... }
//	creds, err := cfg.Credentials().Retrieve(ctx)
package config

import (
	"github.com/systmms/awscfg/pkg/credentials"
	"github.com/systmms/awscfg/pkg/sources"
)

// Config is the immutable configuration snapshot produced by one Load. It is
// safe to share between goroutines; nothing in it mutates after construction.
type Config struct {
	region      string
	hasRegion   bool
	creds       credentials.Provider
	retry       RetryConfig
	timeouts    TimeoutConfig
	appName     string
	hasAppName  bool
	endpoint    string
	hasEndpoint bool
	src         *sources.Sources
}

// Region returns the resolved region identifier, if any axis source supplied
// one. Callers must handle the unset case explicitly.
func (c *Config) Region() (string, bool) {
	return c.region, c.hasRegion
}

// Credentials returns the shared credentials provider. Unless the loader was
// given an explicit provider override, it is the default chain wrapped in the
// lazy cache.
func (c *Config) Credentials() credentials.Provider {
	return c.creds
}

// Retry returns the resolved retry policy.
func (c *Config) Retry() RetryConfig {
	return c.retry
}

// Timeouts returns the resolved timeout policy.
func (c *Config) Timeouts() TimeoutConfig {
	return c.timeouts
}

// AppName returns the resolved application name, if any.
func (c *Config) AppName() (string, bool) {
	return c.appName, c.hasAppName
}

// Endpoint returns the global endpoint override, if one was set.
func (c *Config) Endpoint() (string, bool) {
	return c.endpoint, c.hasEndpoint
}

// Sources returns the source abstraction the snapshot was resolved with; a
// service client reuses its clock and HTTP transport.
func (c *Config) Sources() *sources.Sources {
	return c.src
}
