package providers

import (
	"context"
	"fmt"

	"github.com/systmms/awscfg/internal/profile"
	"github.com/systmms/awscfg/pkg/credentials"
)

// Profile setting names consumed by credential resolution.
const (
	keyAccessKeyID          = "aws_access_key_id"
	keySecretAccessKey      = "aws_secret_access_key"
	keySessionToken         = "aws_session_token"
	keyRoleARN              = "role_arn"
	keyRoleSessionName      = "role_session_name"
	keyExternalID           = "external_id"
	keySourceProfile        = "source_profile"
	keyCredentialSource     = "credential_source"
	keyWebIdentityTokenFile = "web_identity_token_file"
	keySSOSession           = "sso_session"
	keySSOStartURL          = "sso_start_url"
	keySSORegion            = "sso_region"
	keySSOAccountID         = "sso_account_id"
	keySSORoleName          = "sso_role_name"
)

// SharedProfileProvider resolves credentials from the selected shared-config
// profile. A profile may carry static keys, name an assume-role with a source
// profile or credential source, declare web-identity federation, or reference
// an SSO session; role chaining recurses through this provider with cycle
// detection.
type SharedProfileProvider struct {
	profileName string
	explicit    bool
	opts        Options
}

// NewSharedProfileProvider creates the profile credential step. An empty name
// selects via AWS_PROFILE (or "default"); a profile that was explicitly named
// but does not exist is misconfiguration rather than a miss.
func NewSharedProfileProvider(name string, opts Options) *SharedProfileProvider {
	opts = opts.Normalize()
	explicit := name != ""
	if name == "" {
		name = profile.Selected(opts.Sources.Env)
		explicit = name != profile.DefaultName
	}
	return &SharedProfileProvider{profileName: name, explicit: explicit, opts: opts}
}

// Name implements credentials.Provider.
func (p *SharedProfileProvider) Name() string { return "SharedConfigProfile" }

// Retrieve implements credentials.Provider.
func (p *SharedProfileProvider) Retrieve(ctx context.Context) (credentials.Credentials, error) {
	file, err := p.opts.Profiles.Load(ctx)
	if err != nil {
		return credentials.Credentials{}, err
	}

	prof, ok := file.Get(p.profileName)
	if !ok {
		if p.explicit {
			return credentials.Credentials{}, &credentials.InvalidConfigurationError{
				Profile: p.profileName,
				Message: "profile not found in the shared config files",
			}
		}
		return credentials.Credentials{}, &credentials.NotConfiguredError{Source: p.Name()}
	}

	return p.resolveProfile(ctx, file, prof, map[string]bool{})
}

func (p *SharedProfileProvider) resolveProfile(ctx context.Context, file *profile.File, prof *profile.Profile, visited map[string]bool) (credentials.Credentials, error) {
	if visited[prof.Name] {
		return credentials.Credentials{}, &credentials.InvalidConfigurationError{
			Profile: prof.Name,
			Setting: keySourceProfile,
			Message: "circular source_profile reference",
		}
	}
	visited[prof.Name] = true

	if roleARN, ok := prof.Get(keyRoleARN); ok {
		return p.resolveRole(ctx, file, prof, roleARN, visited)
	}
	if _, ok := prof.Get(keySSOSession); ok {
		return p.resolveSSO(ctx, file, prof)
	}
	if _, ok := prof.Get(keySSOStartURL); ok {
		return p.resolveSSO(ctx, file, prof)
	}
	return p.resolveStatic(prof)
}

func (p *SharedProfileProvider) resolveStatic(prof *profile.Profile) (credentials.Credentials, error) {
	accessKey, hasAccess := prof.Get(keyAccessKeyID)
	secretKey, hasSecret := prof.Get(keySecretAccessKey)

	if !hasAccess && !hasSecret {
		return credentials.Credentials{}, &credentials.NotConfiguredError{Source: p.Name()}
	}
	if !hasAccess || !hasSecret {
		missing := keyAccessKeyID
		if hasAccess {
			missing = keySecretAccessKey
		}
		return credentials.Credentials{}, &credentials.InvalidConfigurationError{
			Profile: prof.Name,
			Setting: missing,
			Message: "profile has only one half of a static key pair",
		}
	}

	token, _ := prof.Get(keySessionToken)
	return credentials.Credentials{
		AccessKeyID:     accessKey,
		SecretAccessKey: secretKey,
		SessionToken:    token,
		Source:          p.Name(),
	}, nil
}

func (p *SharedProfileProvider) resolveRole(ctx context.Context, file *profile.File, prof *profile.Profile, roleARN string, visited map[string]bool) (credentials.Credentials, error) {
	sessionName, _ := prof.Get(keyRoleSessionName)

	if tokenFile, ok := prof.Get(keyWebIdentityTokenFile); ok {
		return NewWebIdentityProvider(roleARN, tokenFile, sessionName, p.opts).Retrieve(ctx)
	}

	sourceName, hasSource := prof.Get(keySourceProfile)
	credSource, hasCredSource := prof.Get(keyCredentialSource)

	switch {
	case hasSource && hasCredSource:
		return credentials.Credentials{}, &credentials.InvalidConfigurationError{
			Profile: prof.Name,
			Setting: keyCredentialSource,
			Message: "source_profile and credential_source are mutually exclusive",
		}
	case !hasSource && !hasCredSource:
		return credentials.Credentials{}, &credentials.InvalidConfigurationError{
			Profile: prof.Name,
			Setting: keyRoleARN,
			Message: "role_arn requires either source_profile or credential_source",
		}
	}

	var base credentials.Credentials
	var err error
	if hasSource {
		sourceProf, ok := file.Get(sourceName)
		if !ok {
			return credentials.Credentials{}, &credentials.InvalidConfigurationError{
				Profile: prof.Name,
				Setting: keySourceProfile,
				Message: fmt.Sprintf("source profile %q does not exist", sourceName),
			}
		}
		base, err = p.resolveProfile(ctx, file, sourceProf, visited)
	} else {
		base, err = p.resolveCredentialSource(ctx, prof, credSource)
	}
	if err != nil {
		return credentials.Credentials{}, err
	}

	externalID, _ := prof.Get(keyExternalID)
	assume := NewAssumeRoleProvider(AssumeRoleConfig{
		Base:        credentials.NewStaticProvider(base.AccessKeyID, base.SecretAccessKey, base.SessionToken),
		RoleARN:     roleARN,
		SessionName: sessionName,
		ExternalID:  externalID,
	}, p.opts)
	return assume.Retrieve(ctx)
}

// resolveCredentialSource resolves the base identity named by
// credential_source. A source that turns out to be unconfigured is
// misconfiguration here: the profile promised it.
func (p *SharedProfileProvider) resolveCredentialSource(ctx context.Context, prof *profile.Profile, credSource string) (credentials.Credentials, error) {
	var base credentials.Provider
	switch credSource {
	case "Environment":
		base = NewEnvProvider(p.opts.Sources.Env)
	case "Ec2InstanceMetadata":
		base = NewIMDSProvider(p.opts)
	case "EcsContainer":
		base = NewContainerProvider(p.opts)
	default:
		return credentials.Credentials{}, &credentials.InvalidConfigurationError{
			Profile: prof.Name,
			Setting: keyCredentialSource,
			Message: fmt.Sprintf("unknown credential_source %q (expected Environment, Ec2InstanceMetadata, or EcsContainer)", credSource),
		}
	}

	creds, err := base.Retrieve(ctx)
	if err != nil {
		if credentials.IsNotConfigured(err) {
			return credentials.Credentials{}, &credentials.InvalidConfigurationError{
				Profile: prof.Name,
				Setting: keyCredentialSource,
				Message: fmt.Sprintf("credential_source %s yielded no credentials", credSource),
				Err:     err,
			}
		}
		return credentials.Credentials{}, err
	}
	return creds, nil
}

func (p *SharedProfileProvider) resolveSSO(ctx context.Context, file *profile.File, prof *profile.Profile) (credentials.Credentials, error) {
	cfg := SSOConfig{}
	cfg.StartURL, _ = prof.Get(keySSOStartURL)
	cfg.Region, _ = prof.Get(keySSORegion)
	cfg.AccountID, _ = prof.Get(keySSOAccountID)
	cfg.RoleName, _ = prof.Get(keySSORoleName)

	if sessionName, ok := prof.Get(keySSOSession); ok {
		session, found := file.GetSSOSession(sessionName)
		if !found {
			return credentials.Credentials{}, &credentials.InvalidConfigurationError{
				Profile: prof.Name,
				Setting: keySSOSession,
				Message: fmt.Sprintf("sso-session %q does not exist", sessionName),
			}
		}
		if v, ok := session.Get(keySSOStartURL); ok {
			cfg.StartURL = v
		}
		if v, ok := session.Get(keySSORegion); ok {
			cfg.Region = v
		}
	}

	for setting, value := range map[string]string{
		keySSOStartURL:  cfg.StartURL,
		keySSORegion:    cfg.Region,
		keySSOAccountID: cfg.AccountID,
		keySSORoleName:  cfg.RoleName,
	} {
		if value == "" {
			return credentials.Credentials{}, &credentials.InvalidConfigurationError{
				Profile: prof.Name,
				Setting: setting,
				Message: "required for SSO credential resolution",
			}
		}
	}

	return NewSSOProvider(cfg, p.opts).Retrieve(ctx)
}
