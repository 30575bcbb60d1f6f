package providers

import (
	"context"
	"crypto/sha1"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sso"
	"github.com/aws/aws-sdk-go-v2/service/ssooidc"

	"github.com/systmms/awscfg/pkg/credentials"
)

// SSOProvider exchanges a cached SSO access token for temporary role
// credentials. The access token is written by an interactive login (aws sso
// login); this provider only reads the cache and, when the cached token has
// expired but carries an OIDC refresh token, refreshes it in memory.
type SSOProvider struct {
	startURL  string
	ssoRegion string
	accountID string
	roleName  string
	opts      Options
}

// SSOConfig parameterizes one SSO step, normally filled from a profile.
type SSOConfig struct {
	StartURL  string
	Region    string
	AccountID string
	RoleName  string
}

// NewSSOProvider creates the SSO credential step.
func NewSSOProvider(cfg SSOConfig, opts Options) *SSOProvider {
	return &SSOProvider{
		startURL:  cfg.StartURL,
		ssoRegion: cfg.Region,
		accountID: cfg.AccountID,
		roleName:  cfg.RoleName,
		opts:      opts.Normalize(),
	}
}

// Name implements credentials.Provider.
func (p *SSOProvider) Name() string { return "SSO" }

// ssoCachedToken is the on-disk shape of ~/.aws/sso/cache/<sha1(startURL)>.json.
type ssoCachedToken struct {
	StartURL     string    `json:"startUrl"`
	Region       string    `json:"region"`
	AccessToken  string    `json:"accessToken"`
	ExpiresAt    time.Time `json:"expiresAt"`
	ClientID     string    `json:"clientId,omitempty"`
	ClientSecret string    `json:"clientSecret,omitempty"`
	RefreshToken string    `json:"refreshToken,omitempty"`
}

// Retrieve implements credentials.Provider.
func (p *SSOProvider) Retrieve(ctx context.Context) (credentials.Credentials, error) {
	accessToken, err := p.accessToken(ctx)
	if err != nil {
		return credentials.Credentials{}, err
	}

	callCtx, cancel := context.WithTimeout(ctx, p.opts.RemoteTimeout)
	defer cancel()

	region := p.ssoRegion
	if region == "" {
		region = p.opts.signingRegion()
	}
	client := p.opts.SSOFactory(region)
	out, err := client.GetRoleCredentials(callCtx, &sso.GetRoleCredentialsInput{
		AccountId:   aws.String(p.accountID),
		RoleName:    aws.String(p.roleName),
		AccessToken: aws.String(accessToken),
	})
	if err != nil {
		return credentials.Credentials{}, classifyRemote(p.Name(), err)
	}
	rc := out.RoleCredentials
	if rc == nil || rc.AccessKeyId == nil || rc.SecretAccessKey == nil {
		return credentials.Credentials{}, fmt.Errorf("SSO returned incomplete role credentials")
	}

	creds := credentials.Credentials{
		AccessKeyID:     aws.ToString(rc.AccessKeyId),
		SecretAccessKey: aws.ToString(rc.SecretAccessKey),
		SessionToken:    aws.ToString(rc.SessionToken),
		Source:          p.Name(),
	}
	if rc.Expiration != 0 {
		// Wire format is epoch milliseconds.
		exp := time.UnixMilli(rc.Expiration).UTC()
		creds.Expires = &exp
	}
	return creds, nil
}

// accessToken loads the cached token, refreshing it via OIDC when it has
// expired and a refresh token is available.
func (p *SSOProvider) accessToken(ctx context.Context) (string, error) {
	token, err := p.loadCachedToken()
	if err != nil {
		return "", err
	}

	now := p.opts.Sources.Clock.Now()
	if now.Before(token.ExpiresAt) {
		return token.AccessToken, nil
	}

	if token.RefreshToken != "" && token.ClientID != "" && token.ClientSecret != "" {
		p.opts.Logger.Debug("SSO: cached token expired, refreshing via OIDC")
		return p.refreshToken(ctx, token)
	}

	return "", &credentials.InvalidConfigurationError{
		Setting: "sso_start_url",
		Message: fmt.Sprintf("SSO token for %s expired at %s; run `aws sso login`",
			p.startURL, token.ExpiresAt.Format(time.RFC3339)),
	}
}

func (p *SSOProvider) refreshToken(ctx context.Context, token *ssoCachedToken) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, p.opts.RemoteTimeout)
	defer cancel()

	region := token.Region
	if region == "" {
		region = p.ssoRegion
	}
	client := p.opts.OIDCFactory(region)
	out, err := client.CreateToken(callCtx, &ssooidc.CreateTokenInput{
		ClientId:     aws.String(token.ClientID),
		ClientSecret: aws.String(token.ClientSecret),
		GrantType:    aws.String("refresh_token"),
		RefreshToken: aws.String(token.RefreshToken),
	})
	if err != nil {
		return "", classifyRemote(p.Name(), err)
	}
	if out.AccessToken == nil {
		return "", fmt.Errorf("OIDC token refresh returned no access token")
	}
	// The refreshed token is used in memory only; persisting the cache file
	// is the login tool's job.
	return aws.ToString(out.AccessToken), nil
}

// loadCachedToken reads the token cache file named by the SHA-1 of the start
// URL. A missing or unparseable cache is user misconfiguration: the fix is an
// interactive login, not a different provider.
func (p *SSOProvider) loadCachedToken() (*ssoCachedToken, error) {
	home, err := p.opts.Sources.FS.HomeDir()
	if err != nil {
		return nil, &credentials.InvalidConfigurationError{
			Setting: "sso_start_url",
			Message: "cannot locate home directory for the SSO token cache",
			Err:     err,
		}
	}
	hash := fmt.Sprintf("%x", sha1.Sum([]byte(p.startURL)))
	cacheFile := filepath.Join(home, ".aws", "sso", "cache", hash+".json")

	data, err := p.opts.Sources.FS.ReadFile(cacheFile)
	if err != nil {
		return nil, &credentials.InvalidConfigurationError{
			Setting: "sso_start_url",
			Message: fmt.Sprintf("no cached SSO token for %s; run `aws sso login`", p.startURL),
			Err:     err,
		}
	}

	var token ssoCachedToken
	if err := json.Unmarshal(data, &token); err != nil {
		return nil, &credentials.InvalidConfigurationError{
			Setting: "sso_start_url",
			Message: fmt.Sprintf("malformed SSO token cache %s", cacheFile),
			Err:     err,
		}
	}
	if token.AccessToken == "" {
		return nil, &credentials.InvalidConfigurationError{
			Setting: "sso_start_url",
			Message: fmt.Sprintf("SSO token cache %s has no access token; run `aws sso login`", cacheFile),
		}
	}
	return &token, nil
}
