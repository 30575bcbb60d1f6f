package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/ec2/imds"

	"github.com/systmms/awscfg/pkg/credentials"
)

const (
	envIMDSDisabled = "AWS_EC2_METADATA_DISABLED"

	imdsCredentialsPath = "iam/security-credentials/"
)

// IMDSProvider fetches the EC2 instance-role credentials from the instance
// metadata service. The SDK's IMDS client handles the token-gated protocol
// (fetch a short-lived token, then pass it in a header); not running on EC2
// surfaces here as a reachability failure, which the chain treats as a soft
// miss.
type IMDSProvider struct {
	opts Options
}

// NewIMDSProvider creates the instance-metadata credential step.
func NewIMDSProvider(opts Options) *IMDSProvider {
	return &IMDSProvider{opts: opts.Normalize()}
}

// Name implements credentials.Provider.
func (p *IMDSProvider) Name() string { return "Ec2InstanceMetadata" }

// imdsCredentialsDoc is the JSON document under iam/security-credentials/<role>.
type imdsCredentialsDoc struct {
	Code            string    `json:"Code"`
	AccessKeyID     string    `json:"AccessKeyId"`
	SecretAccessKey string    `json:"SecretAccessKey"`
	Token           string    `json:"Token"`
	Expiration      time.Time `json:"Expiration"`
}

// Retrieve implements credentials.Provider.
func (p *IMDSProvider) Retrieve(ctx context.Context) (credentials.Credentials, error) {
	if v, ok := p.opts.Sources.Env.Lookup(envIMDSDisabled); ok && strings.EqualFold(v, "true") {
		return credentials.Credentials{}, &credentials.NotConfiguredError{Source: p.Name()}
	}

	callCtx, cancel := context.WithTimeout(ctx, p.opts.RemoteTimeout)
	defer cancel()

	role, err := p.fetch(callCtx, imdsCredentialsPath)
	if err != nil {
		return credentials.Credentials{}, classifyRemote(p.Name(), err)
	}
	role = firstLine(role)
	if role == "" {
		return credentials.Credentials{}, &credentials.UnreachableError{
			Source: p.Name(),
			Err:    fmt.Errorf("no IAM role attached to the instance"),
		}
	}

	raw, err := p.fetch(callCtx, imdsCredentialsPath+role)
	if err != nil {
		return credentials.Credentials{}, classifyRemote(p.Name(), err)
	}

	var doc imdsCredentialsDoc
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return credentials.Credentials{}, &credentials.UnreachableError{
			Source: p.Name(),
			Err:    fmt.Errorf("decoding role credentials for %s: %w", role, err),
		}
	}
	if doc.Code != "" && doc.Code != "Success" {
		return credentials.Credentials{}, &credentials.UnreachableError{
			Source: p.Name(),
			Err:    fmt.Errorf("metadata service returned code %q for role %s", doc.Code, role),
		}
	}

	if doc.AccessKeyID == "" || doc.SecretAccessKey == "" {
		return credentials.Credentials{}, &credentials.UnreachableError{
			Source: p.Name(),
			Err:    fmt.Errorf("metadata service returned an incomplete document for role %s", role),
		}
	}

	creds := credentials.Credentials{
		AccessKeyID:     doc.AccessKeyID,
		SecretAccessKey: doc.SecretAccessKey,
		SessionToken:    doc.Token,
		Source:          p.Name(),
	}
	if !doc.Expiration.IsZero() {
		exp := doc.Expiration
		creds.Expires = &exp
	}
	return creds, nil
}

func (p *IMDSProvider) fetch(ctx context.Context, path string) (string, error) {
	out, err := p.opts.IMDS.GetMetadata(ctx, &imds.GetMetadataInput{Path: path})
	if err != nil {
		return "", err
	}
	defer out.Content.Close()
	data, err := io.ReadAll(out.Content)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}
