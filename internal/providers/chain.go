// Package providers implements the credential sources that make up the default
// provider chain: environment variables, shared-config profiles (with
// assume-role, SSO, and web-identity recursion), the web-identity token file,
// the container credentials endpoint, and the EC2 instance metadata service.
//
// Remote steps call the AWS identity services through narrow client
// interfaces so tests can substitute fakes; the real clients are built over
// the injected HTTP transport from pkg/sources.
package providers

import (
	"context"

	"github.com/systmms/awscfg/internal/chain"
	"github.com/systmms/awscfg/pkg/credentials"
)

// Chain is the default credentials provider chain. Providers are tried
// strictly in priority order; a provider that is not configured is skipped, a
// remote provider that cannot be reached is skipped unless it is the last
// one, and malformed local configuration stops the chain immediately.
type Chain struct {
	inner *chain.Chain[credentials.Credentials]
}

// NewChain assembles the default ordering:
//
//	environment, shared profile, web identity (env), container endpoint, instance metadata
//
// SSO and assume-role are reached through profile recursion. The explicit
// static override never appears here; the loader skips the chain entirely
// when one is set.
func NewChain(opts Options) *Chain {
	opts = opts.Normalize()

	steps := []chain.Step[credentials.Credentials]{
		step(NewEnvProvider(opts.Sources.Env)),
		step(NewSharedProfileProvider(opts.ProfileName, opts)),
		step(NewWebIdentityEnvProvider(opts)),
		step(NewContainerProvider(opts)),
		step(NewIMDSProvider(opts)),
	}

	inner := chain.New("credentials", steps).
		WithLogger(opts.Logger).
		WithClassifier(func(err error) chain.Disposition {
			if credentials.IsUnreachable(err) {
				return chain.Skip
			}
			return chain.Stop
		}).
		WithExhausted(func(lastSource string, lastErr error) error {
			return &credentials.ChainExhaustedError{LastSource: lastSource, Err: lastErr}
		})

	return &Chain{inner: inner}
}

// Name implements credentials.Provider.
func (c *Chain) Name() string { return "DefaultChain" }

// Retrieve implements credentials.Provider.
func (c *Chain) Retrieve(ctx context.Context) (credentials.Credentials, error) {
	creds, ok, err := c.inner.Resolve(ctx)
	if err != nil {
		return credentials.Credentials{}, err
	}
	if !ok {
		// Unreachable: the chain always installs an exhausted error.
		return credentials.Credentials{}, &credentials.ChainExhaustedError{LastSource: c.Name()}
	}
	return creds, nil
}

// step adapts a credentials.Provider into a generic chain step, folding the
// NotConfigured taxonomy error into the chain's absence signal.
func step(p credentials.Provider) chain.Step[credentials.Credentials] {
	return chain.Step[credentials.Credentials]{
		Name: p.Name(),
		Resolve: func(ctx context.Context) (credentials.Credentials, bool, error) {
			creds, err := p.Retrieve(ctx)
			if err != nil {
				if credentials.IsNotConfigured(err) {
					return credentials.Credentials{}, false, nil
				}
				return credentials.Credentials{}, false, err
			}
			return creds, true, nil
		},
	}
}
