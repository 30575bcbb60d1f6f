package providers

import (
	"context"

	"github.com/systmms/awscfg/pkg/credentials"
	"github.com/systmms/awscfg/pkg/sources"
)

const (
	envAccessKeyID     = "AWS_ACCESS_KEY_ID"
	envSecretAccessKey = "AWS_SECRET_ACCESS_KEY"
	envSessionToken    = "AWS_SESSION_TOKEN"
)

// EnvProvider reads static credentials from environment variables. A partially
// set pair (key without secret, or the reverse) is user misconfiguration, not
// a soft miss.
type EnvProvider struct {
	env sources.Env
}

// NewEnvProvider creates the environment-variable credential step.
func NewEnvProvider(env sources.Env) *EnvProvider {
	return &EnvProvider{env: env}
}

// Name implements credentials.Provider.
func (p *EnvProvider) Name() string { return "Environment" }

// Retrieve implements credentials.Provider.
func (p *EnvProvider) Retrieve(context.Context) (credentials.Credentials, error) {
	accessKey, hasAccess := p.env.Lookup(envAccessKeyID)
	secretKey, hasSecret := p.env.Lookup(envSecretAccessKey)
	hasAccess = hasAccess && accessKey != ""
	hasSecret = hasSecret && secretKey != ""

	if !hasAccess && !hasSecret {
		return credentials.Credentials{}, &credentials.NotConfiguredError{Source: p.Name()}
	}
	if !hasAccess {
		return credentials.Credentials{}, &credentials.InvalidConfigurationError{
			Setting: envAccessKeyID,
			Message: "AWS_SECRET_ACCESS_KEY is set but AWS_ACCESS_KEY_ID is missing",
		}
	}
	if !hasSecret {
		return credentials.Credentials{}, &credentials.InvalidConfigurationError{
			Setting: envSecretAccessKey,
			Message: "AWS_ACCESS_KEY_ID is set but AWS_SECRET_ACCESS_KEY is missing",
		}
	}

	token, _ := p.env.Lookup(envSessionToken)
	return credentials.Credentials{
		AccessKeyID:     accessKey,
		SecretAccessKey: secretKey,
		SessionToken:    token,
		Source:          p.Name(),
	}, nil
}
