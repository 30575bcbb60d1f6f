package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/systmms/awscfg/pkg/credentials"
)

const (
	envContainerRelativeURI = "AWS_CONTAINER_CREDENTIALS_RELATIVE_URI"
	envContainerFullURI     = "AWS_CONTAINER_CREDENTIALS_FULL_URI"

	// containerHost is the fixed link-local address serving task-role
	// credentials when the relative-URI variable is set.
	containerHost = "http://169.254.170.2"
)

// ContainerProvider fetches task-role credentials from the container
// credentials endpoint (ECS). The endpoint address comes from
// AWS_CONTAINER_CREDENTIALS_RELATIVE_URI or AWS_CONTAINER_CREDENTIALS_FULL_URI.
type ContainerProvider struct {
	opts Options
}

// NewContainerProvider creates the container-endpoint credential step.
func NewContainerProvider(opts Options) *ContainerProvider {
	return &ContainerProvider{opts: opts.Normalize()}
}

// Name implements credentials.Provider.
func (p *ContainerProvider) Name() string { return "EcsContainer" }

// containerResponse is the JSON shape returned by the endpoint.
type containerResponse struct {
	AccessKeyID     string    `json:"AccessKeyId"`
	SecretAccessKey string    `json:"SecretAccessKey"`
	Token           string    `json:"Token"`
	Expiration      time.Time `json:"Expiration"`
}

// Retrieve implements credentials.Provider.
func (p *ContainerProvider) Retrieve(ctx context.Context) (credentials.Credentials, error) {
	endpoint, err := p.endpoint()
	if err != nil {
		return credentials.Credentials{}, err
	}
	if endpoint == "" {
		return credentials.Credentials{}, &credentials.NotConfiguredError{Source: p.Name()}
	}

	callCtx, cancel := context.WithTimeout(ctx, p.opts.RemoteTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(callCtx, http.MethodGet, endpoint, nil)
	if err != nil {
		return credentials.Credentials{}, &credentials.InvalidConfigurationError{
			Setting: envContainerFullURI,
			Message: fmt.Sprintf("invalid container credentials endpoint %q", endpoint),
			Err:     err,
		}
	}

	resp, err := p.opts.Sources.HTTPClient.Do(req)
	if err != nil {
		return credentials.Credentials{}, classifyRemote(p.Name(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return credentials.Credentials{}, &credentials.UnreachableError{
			Source: p.Name(),
			Err:    fmt.Errorf("credentials endpoint returned %s: %s", resp.Status, body),
		}
	}

	var out containerResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return credentials.Credentials{}, &credentials.UnreachableError{
			Source: p.Name(),
			Err:    fmt.Errorf("decoding credentials response: %w", err),
		}
	}
	if out.AccessKeyID == "" || out.SecretAccessKey == "" {
		return credentials.Credentials{}, &credentials.UnreachableError{
			Source: p.Name(),
			Err:    fmt.Errorf("credentials endpoint returned an incomplete document"),
		}
	}

	creds := credentials.Credentials{
		AccessKeyID:     out.AccessKeyID,
		SecretAccessKey: out.SecretAccessKey,
		SessionToken:    out.Token,
		Source:          p.Name(),
	}
	if !out.Expiration.IsZero() {
		exp := out.Expiration
		creds.Expires = &exp
	}
	return creds, nil
}

// endpoint derives the endpoint URL. The full-URI form must point at a
// loopback or link-local host unless it is https, since it carries
// credentials in the clear.
func (p *ContainerProvider) endpoint() (string, error) {
	env := p.opts.Sources.Env
	if rel, ok := env.Lookup(envContainerRelativeURI); ok && rel != "" {
		if rel[0] != '/' {
			rel = "/" + rel
		}
		return containerHost + rel, nil
	}
	full, ok := env.Lookup(envContainerFullURI)
	if !ok || full == "" {
		return "", nil
	}
	u, err := url.Parse(full)
	if err != nil {
		return "", &credentials.InvalidConfigurationError{
			Setting: envContainerFullURI,
			Message: fmt.Sprintf("invalid URI %q", full),
			Err:     err,
		}
	}
	if u.Scheme == "http" && !isLocalHost(u.Hostname()) {
		return "", &credentials.InvalidConfigurationError{
			Setting: envContainerFullURI,
			Message: fmt.Sprintf("plain-http endpoint %q must use a loopback or link-local address", full),
		}
	}
	return full, nil
}

func isLocalHost(host string) bool {
	switch host {
	case "localhost", "127.0.0.1", "::1", "169.254.170.2", "169.254.170.23":
		return true
	}
	return false
}
