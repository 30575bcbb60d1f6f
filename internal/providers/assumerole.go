package providers

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	ststypes "github.com/aws/aws-sdk-go-v2/service/sts/types"

	"github.com/systmms/awscfg/pkg/credentials"
)

// AssumeRoleProvider exchanges a base identity for temporary role credentials
// via STS AssumeRole. The base identity comes from any other provider in this
// package, which is how profile role chaining recurses.
type AssumeRoleProvider struct {
	base            credentials.Provider
	roleARN         string
	sessionName     string
	externalID      string
	durationSeconds int32
	opts            Options
}

// AssumeRoleConfig parameterizes one assume-role step.
type AssumeRoleConfig struct {
	// Base supplies the identity that signs the AssumeRole call.
	Base credentials.Provider

	RoleARN     string
	SessionName string
	ExternalID  string

	// DurationSeconds defaults to 3600.
	DurationSeconds int32
}

// NewAssumeRoleProvider creates the assume-role step.
func NewAssumeRoleProvider(cfg AssumeRoleConfig, opts Options) *AssumeRoleProvider {
	opts = opts.Normalize()
	p := &AssumeRoleProvider{
		base:            cfg.Base,
		roleARN:         cfg.RoleARN,
		sessionName:     cfg.SessionName,
		externalID:      cfg.ExternalID,
		durationSeconds: cfg.DurationSeconds,
		opts:            opts,
	}
	if p.durationSeconds == 0 {
		p.durationSeconds = 3600
	}
	if p.sessionName == "" {
		p.sessionName = fmt.Sprintf("awscfg-%d", opts.Sources.Clock.Now().Unix())
	}
	return p
}

// Name implements credentials.Provider.
func (p *AssumeRoleProvider) Name() string { return "AssumeRole" }

// Retrieve implements credentials.Provider.
func (p *AssumeRoleProvider) Retrieve(ctx context.Context) (credentials.Credentials, error) {
	base, err := p.base.Retrieve(ctx)
	if err != nil {
		return credentials.Credentials{}, err
	}

	callCtx, cancel := context.WithTimeout(ctx, p.opts.RemoteTimeout)
	defer cancel()

	input := &sts.AssumeRoleInput{
		RoleArn:         aws.String(p.roleARN),
		RoleSessionName: aws.String(p.sessionName),
		DurationSeconds: aws.Int32(p.durationSeconds),
	}
	if p.externalID != "" {
		input.ExternalId = aws.String(p.externalID)
	}

	p.opts.Logger.Debug("AssumeRole: assuming %s as %s", p.roleARN, p.sessionName)

	client := p.opts.STSFactory(p.opts.signingRegion(), staticBase(base))
	out, err := client.AssumeRole(callCtx, input)
	if err != nil {
		return credentials.Credentials{}, classifyRemote(p.Name(), err)
	}
	return fromSTSCredentials(out.Credentials, p.Name())
}

// fromSTSCredentials converts the STS wire credentials shape used by both
// AssumeRole and AssumeRoleWithWebIdentity.
func fromSTSCredentials(c *ststypes.Credentials, source string) (credentials.Credentials, error) {
	if c == nil || c.AccessKeyId == nil || c.SecretAccessKey == nil {
		return credentials.Credentials{}, fmt.Errorf("%s returned incomplete credentials", source)
	}
	out := credentials.Credentials{
		AccessKeyID:     aws.ToString(c.AccessKeyId),
		SecretAccessKey: aws.ToString(c.SecretAccessKey),
		SessionToken:    aws.ToString(c.SessionToken),
		Source:          source,
	}
	if c.Expiration != nil {
		exp := *c.Expiration
		out.Expires = &exp
	}
	return out, nil
}
