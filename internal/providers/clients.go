package providers

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscreds "github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/ec2/imds"
	"github.com/aws/aws-sdk-go-v2/service/sso"
	"github.com/aws/aws-sdk-go-v2/service/ssooidc"
	"github.com/aws/aws-sdk-go-v2/service/sts"

	"github.com/systmms/awscfg/internal/logging"
	"github.com/systmms/awscfg/internal/profile"
	"github.com/systmms/awscfg/pkg/credentials"
	"github.com/systmms/awscfg/pkg/sources"
)

// Narrow views of the AWS SDK clients, limited to the operations the providers
// call, so tests can substitute fakes.

// STSAPI is the subset of the STS client used by the assume-role and
// web-identity steps.
type STSAPI interface {
	AssumeRole(ctx context.Context, params *sts.AssumeRoleInput, optFns ...func(*sts.Options)) (*sts.AssumeRoleOutput, error)
	AssumeRoleWithWebIdentity(ctx context.Context, params *sts.AssumeRoleWithWebIdentityInput, optFns ...func(*sts.Options)) (*sts.AssumeRoleWithWebIdentityOutput, error)
}

// SSOAPI is the subset of the SSO client used by the SSO step.
type SSOAPI interface {
	GetRoleCredentials(ctx context.Context, params *sso.GetRoleCredentialsInput, optFns ...func(*sso.Options)) (*sso.GetRoleCredentialsOutput, error)
}

// OIDCAPI is the subset of the SSO OIDC client used to refresh cached SSO
// access tokens.
type OIDCAPI interface {
	CreateToken(ctx context.Context, params *ssooidc.CreateTokenInput, optFns ...func(*ssooidc.Options)) (*ssooidc.CreateTokenOutput, error)
}

// IMDSAPI is the subset of the instance metadata client used by the IMDS
// credential step and the region chain.
type IMDSAPI interface {
	GetMetadata(ctx context.Context, params *imds.GetMetadataInput, optFns ...func(*imds.Options)) (*imds.GetMetadataOutput, error)
	GetRegion(ctx context.Context, params *imds.GetRegionInput, optFns ...func(*imds.Options)) (*imds.GetRegionOutput, error)
}

// STSClientFactory builds an STS client for a signing region and base
// identity. Web identity exchanges pass anonymous credentials.
type STSClientFactory func(region string, creds aws.CredentialsProvider) STSAPI

// SSOClientFactory builds an SSO client for a region.
type SSOClientFactory func(region string) SSOAPI

// OIDCClientFactory builds an SSO OIDC client for a region.
type OIDCClientFactory func(region string) OIDCAPI

// Options carries everything the provider constructors need: the shared source
// abstraction, the already-resolved region as a signing hint, the shared
// profile store, and the collaborator client factories.
type Options struct {
	Sources  *sources.Sources
	Profiles *profile.Store
	Logger   *logging.Logger

	// Region is the signing-region hint for identity-federation calls.
	// Empty falls back to us-east-1 for the services that require one.
	Region string

	// ProfileName names the shared-config profile to resolve from. Empty
	// selects via AWS_PROFILE.
	ProfileName string

	// RemoteTimeout bounds each remote identity step. Zero means
	// DefaultRemoteTimeout.
	RemoteTimeout time.Duration

	STSFactory  STSClientFactory
	SSOFactory  SSOClientFactory
	OIDCFactory OIDCClientFactory
	IMDS        IMDSAPI
}

// DefaultRemoteTimeout bounds a single remote identity call.
const DefaultRemoteTimeout = 10 * time.Second

// fallbackSigningRegion is used when no region was resolved; STS and SSO
// require a regional endpoint to sign against.
const fallbackSigningRegion = "us-east-1"

// Normalize fills in the real collaborator clients and defaults for any
// unset field. Provider constructors call it; the loader calls it once to
// share one normalized Options value across chains.
func (o Options) Normalize() Options {
	if o.Sources == nil {
		o.Sources = sources.Default()
	}
	if o.Profiles == nil {
		o.Profiles = profile.NewStore(o.Sources)
	}
	if o.Logger == nil {
		o.Logger = logging.Discard()
	}
	if o.RemoteTimeout <= 0 {
		o.RemoteTimeout = DefaultRemoteTimeout
	}
	src := o.Sources
	if o.STSFactory == nil {
		o.STSFactory = func(region string, creds aws.CredentialsProvider) STSAPI {
			return sts.New(sts.Options{
				Region:      region,
				HTTPClient:  src.HTTPClient,
				Credentials: creds,
			})
		}
	}
	if o.SSOFactory == nil {
		o.SSOFactory = func(region string) SSOAPI {
			return sso.New(sso.Options{
				Region:      region,
				HTTPClient:  src.HTTPClient,
				Credentials: aws.AnonymousCredentials{},
			})
		}
	}
	if o.OIDCFactory == nil {
		o.OIDCFactory = func(region string) OIDCAPI {
			return ssooidc.New(ssooidc.Options{
				Region:      region,
				HTTPClient:  src.HTTPClient,
				Credentials: aws.AnonymousCredentials{},
			})
		}
	}
	if o.IMDS == nil {
		o.IMDS = imds.New(imds.Options{HTTPClient: src.HTTPClient})
	}
	return o
}

func (o Options) signingRegion() string {
	if o.Region != "" {
		return o.Region
	}
	return fallbackSigningRegion
}

// staticBase adapts resolved chain credentials into the provider shape the SDK
// clients sign with.
func staticBase(c credentials.Credentials) aws.CredentialsProvider {
	return awscreds.NewStaticCredentialsProvider(c.AccessKeyID, c.SecretAccessKey, c.SessionToken)
}
