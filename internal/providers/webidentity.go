package providers

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sts"

	"github.com/systmms/awscfg/pkg/credentials"
)

const (
	envRoleARN              = "AWS_ROLE_ARN"
	envRoleSessionName      = "AWS_ROLE_SESSION_NAME"
	envWebIdentityTokenFile = "AWS_WEB_IDENTITY_TOKEN_FILE"
)

// WebIdentityProvider federates an OIDC token from a file into temporary role
// credentials via STS AssumeRoleWithWebIdentity. The exchange is unsigned, so
// no base identity is required.
type WebIdentityProvider struct {
	roleARN     string
	tokenFile   string
	sessionName string
	opts        Options
}

// NewWebIdentityProvider creates a web-identity step with explicit parameters
// (used by profile resolution, where the profile supplies them).
func NewWebIdentityProvider(roleARN, tokenFile, sessionName string, opts Options) *WebIdentityProvider {
	opts = opts.Normalize()
	if sessionName == "" {
		sessionName = fmt.Sprintf("awscfg-%d", opts.Sources.Clock.Now().Unix())
	}
	return &WebIdentityProvider{
		roleARN:     roleARN,
		tokenFile:   tokenFile,
		sessionName: sessionName,
		opts:        opts,
	}
}

// NewWebIdentityEnvProvider creates the chain step that reads AWS_ROLE_ARN and
// AWS_WEB_IDENTITY_TOKEN_FILE. When neither is set the step is not configured;
// when only one is set the environment is inconsistent.
func NewWebIdentityEnvProvider(opts Options) *WebIdentityEnvProvider {
	return &WebIdentityEnvProvider{opts: opts.Normalize()}
}

// WebIdentityEnvProvider resolves web-identity parameters from the environment
// and delegates to WebIdentityProvider.
type WebIdentityEnvProvider struct {
	opts Options
}

// Name implements credentials.Provider.
func (p *WebIdentityEnvProvider) Name() string { return "WebIdentity" }

// Retrieve implements credentials.Provider.
func (p *WebIdentityEnvProvider) Retrieve(ctx context.Context) (credentials.Credentials, error) {
	env := p.opts.Sources.Env
	roleARN, _ := env.Lookup(envRoleARN)
	tokenFile, _ := env.Lookup(envWebIdentityTokenFile)

	if roleARN == "" && tokenFile == "" {
		return credentials.Credentials{}, &credentials.NotConfiguredError{Source: p.Name()}
	}
	if roleARN == "" || tokenFile == "" {
		missing := envRoleARN
		if roleARN != "" {
			missing = envWebIdentityTokenFile
		}
		return credentials.Credentials{}, &credentials.InvalidConfigurationError{
			Setting: missing,
			Message: "web identity federation requires both AWS_ROLE_ARN and AWS_WEB_IDENTITY_TOKEN_FILE",
		}
	}

	sessionName, _ := env.Lookup(envRoleSessionName)
	return NewWebIdentityProvider(roleARN, tokenFile, sessionName, p.opts).Retrieve(ctx)
}

// Name implements credentials.Provider.
func (p *WebIdentityProvider) Name() string { return "WebIdentity" }

// Retrieve implements credentials.Provider.
func (p *WebIdentityProvider) Retrieve(ctx context.Context) (credentials.Credentials, error) {
	token, err := p.opts.Sources.FS.ReadFile(p.tokenFile)
	if err != nil {
		return credentials.Credentials{}, &credentials.InvalidConfigurationError{
			Setting: envWebIdentityTokenFile,
			Message: fmt.Sprintf("cannot read web identity token file %s", p.tokenFile),
			Err:     err,
		}
	}
	trimmed := strings.TrimSpace(string(token))
	if trimmed == "" {
		return credentials.Credentials{}, &credentials.InvalidConfigurationError{
			Setting: envWebIdentityTokenFile,
			Message: fmt.Sprintf("web identity token file %s is empty", p.tokenFile),
		}
	}

	callCtx, cancel := context.WithTimeout(ctx, p.opts.RemoteTimeout)
	defer cancel()

	client := p.opts.STSFactory(p.opts.signingRegion(), aws.AnonymousCredentials{})
	out, err := client.AssumeRoleWithWebIdentity(callCtx, &sts.AssumeRoleWithWebIdentityInput{
		RoleArn:          aws.String(p.roleARN),
		RoleSessionName:  aws.String(p.sessionName),
		WebIdentityToken: aws.String(trimmed),
	})
	if err != nil {
		return credentials.Credentials{}, classifyRemote(p.Name(), err)
	}
	return fromSTSCredentials(out.Credentials, p.Name())
}
