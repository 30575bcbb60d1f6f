package providers_test

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/ec2/imds"
	"github.com/aws/aws-sdk-go-v2/service/sso"
	ssotypes "github.com/aws/aws-sdk-go-v2/service/sso/types"
	"github.com/aws/aws-sdk-go-v2/service/ssooidc"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	ststypes "github.com/aws/aws-sdk-go-v2/service/sts/types"

	"github.com/systmms/awscfg/internal/providers"
	"github.com/systmms/awscfg/pkg/sources"
)

var testNow = time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)

// fakeSTS implements providers.STSAPI. The Func fields allow per-test
// behavior; unset funcs return a canned successful exchange.
type fakeSTS struct {
	AssumeRoleFunc                func(ctx context.Context, params *sts.AssumeRoleInput) (*sts.AssumeRoleOutput, error)
	AssumeRoleWithWebIdentityFunc func(ctx context.Context, params *sts.AssumeRoleWithWebIdentityInput) (*sts.AssumeRoleWithWebIdentityOutput, error)

	AssumeRoleCalls  []*sts.AssumeRoleInput
	WebIdentityCalls []*sts.AssumeRoleWithWebIdentityInput
}

func stsCreds(keyID string) *ststypes.Credentials {
	exp := testNow.Add(time.Hour)
	return &ststypes.Credentials{
		AccessKeyId:     aws.String(keyID),
		SecretAccessKey: aws.String("assumed-secret"),
		SessionToken:    aws.String("assumed-token"),
		Expiration:      &exp,
	}
}

func (f *fakeSTS) AssumeRole(ctx context.Context, params *sts.AssumeRoleInput, optFns ...func(*sts.Options)) (*sts.AssumeRoleOutput, error) {
	f.AssumeRoleCalls = append(f.AssumeRoleCalls, params)
	if f.AssumeRoleFunc != nil {
		return f.AssumeRoleFunc(ctx, params)
	}
	return &sts.AssumeRoleOutput{Credentials: stsCreds("ASIA_ASSUMED")}, nil
}

func (f *fakeSTS) AssumeRoleWithWebIdentity(ctx context.Context, params *sts.AssumeRoleWithWebIdentityInput, optFns ...func(*sts.Options)) (*sts.AssumeRoleWithWebIdentityOutput, error) {
	f.WebIdentityCalls = append(f.WebIdentityCalls, params)
	if f.AssumeRoleWithWebIdentityFunc != nil {
		return f.AssumeRoleWithWebIdentityFunc(ctx, params)
	}
	return &sts.AssumeRoleWithWebIdentityOutput{Credentials: stsCreds("ASIA_FEDERATED")}, nil
}

// fakeSSO implements providers.SSOAPI.
type fakeSSO struct {
	GetRoleCredentialsFunc func(ctx context.Context, params *sso.GetRoleCredentialsInput) (*sso.GetRoleCredentialsOutput, error)

	Calls []*sso.GetRoleCredentialsInput
}

func (f *fakeSSO) GetRoleCredentials(ctx context.Context, params *sso.GetRoleCredentialsInput, optFns ...func(*sso.Options)) (*sso.GetRoleCredentialsOutput, error) {
	f.Calls = append(f.Calls, params)
	if f.GetRoleCredentialsFunc != nil {
		return f.GetRoleCredentialsFunc(ctx, params)
	}
	return &sso.GetRoleCredentialsOutput{RoleCredentials: &ssotypes.RoleCredentials{
		AccessKeyId:     aws.String("ASIA_SSO"),
		SecretAccessKey: aws.String("sso-secret"),
		SessionToken:    aws.String("sso-token"),
		Expiration:      testNow.Add(time.Hour).UnixMilli(),
	}}, nil
}

// fakeOIDC implements providers.OIDCAPI.
type fakeOIDC struct {
	CreateTokenFunc func(ctx context.Context, params *ssooidc.CreateTokenInput) (*ssooidc.CreateTokenOutput, error)

	Calls []*ssooidc.CreateTokenInput
}

func (f *fakeOIDC) CreateToken(ctx context.Context, params *ssooidc.CreateTokenInput, optFns ...func(*ssooidc.Options)) (*ssooidc.CreateTokenOutput, error) {
	f.Calls = append(f.Calls, params)
	if f.CreateTokenFunc != nil {
		return f.CreateTokenFunc(ctx, params)
	}
	return &ssooidc.CreateTokenOutput{AccessToken: aws.String("refreshed-access-token")}, nil
}

// fakeIMDS implements providers.IMDSAPI over a path-to-body map.
type fakeIMDS struct {
	Metadata map[string]string
	Region   string
	Err      error
}

func (f *fakeIMDS) GetMetadata(ctx context.Context, params *imds.GetMetadataInput, optFns ...func(*imds.Options)) (*imds.GetMetadataOutput, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	body, ok := f.Metadata[params.Path]
	if !ok {
		return nil, fmt.Errorf("metadata path %s not found", params.Path)
	}
	return &imds.GetMetadataOutput{Content: io.NopCloser(bytes.NewReader([]byte(body)))}, nil
}

func (f *fakeIMDS) GetRegion(ctx context.Context, params *imds.GetRegionInput, optFns ...func(*imds.Options)) (*imds.GetRegionOutput, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	return &imds.GetRegionOutput{Region: f.Region}, nil
}

// testOptions builds provider options over fully stubbed sources and fakes.
func testOptions(env map[string]string, files map[string]string) (providers.Options, *fakeSTS, *fakeSSO, *fakeOIDC, *fakeIMDS) {
	byteFiles := make(map[string][]byte, len(files))
	for path, content := range files {
		byteFiles[path] = []byte(content)
	}
	src := sources.Stubbed(env, byteFiles, testNow)

	fsts := &fakeSTS{}
	fsso := &fakeSSO{}
	foidc := &fakeOIDC{}
	fimds := &fakeIMDS{Err: fmt.Errorf("dial tcp 169.254.169.254:80: connect: connection refused")}

	opts := providers.Options{
		Sources:     src,
		STSFactory:  func(region string, creds aws.CredentialsProvider) providers.STSAPI { return fsts },
		SSOFactory:  func(region string) providers.SSOAPI { return fsso },
		OIDCFactory: func(region string) providers.OIDCAPI { return foidc },
		IMDS:        fimds,
	}
	return opts, fsts, fsso, foidc, fimds
}
