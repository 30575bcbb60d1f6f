package providers_test

import (
	"context"
	"crypto/sha1"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/systmms/awscfg/internal/providers"
	"github.com/systmms/awscfg/pkg/credentials"
)

const testStartURL = "https://corp.awsapps.com/start"

func ssoCachePath(startURL string) string {
	hash := fmt.Sprintf("%x", sha1.Sum([]byte(startURL)))
	return filepath.Join("/home/test", ".aws", "sso", "cache", hash+".json")
}

func ssoConfig() providers.SSOConfig {
	return providers.SSOConfig{
		StartURL:  testStartURL,
		Region:    "us-east-1",
		AccountID: "123456789012",
		RoleName:  "Developer",
	}
}

func TestSSOProviderUsesValidCachedToken(t *testing.T) {
	t.Parallel()

	cached := fmt.Sprintf(`{
		"startUrl": %q,
		"region": "us-east-1",
		"accessToken": "cached-access-token",
		"expiresAt": %q
	}`, testStartURL, testNow.Add(time.Hour).Format(time.RFC3339))

	opts, _, fsso, foidc, _ := testOptions(nil, map[string]string{
		ssoCachePath(testStartURL): cached,
	})

	creds, err := providers.NewSSOProvider(ssoConfig(), opts).Retrieve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ASIA_SSO", creds.AccessKeyID)
	assert.Equal(t, "SSO", creds.Source)
	require.NotNil(t, creds.Expires)
	assert.Equal(t, testNow.Add(time.Hour), creds.Expires.UTC())

	require.Len(t, fsso.Calls, 1)
	call := fsso.Calls[0]
	assert.Equal(t, "cached-access-token", aws.ToString(call.AccessToken))
	assert.Equal(t, "123456789012", aws.ToString(call.AccountId))
	assert.Equal(t, "Developer", aws.ToString(call.RoleName))
	assert.Empty(t, foidc.Calls, "a valid token must not be refreshed")
}

func TestSSOProviderRefreshesExpiredToken(t *testing.T) {
	t.Parallel()

	cached := fmt.Sprintf(`{
		"startUrl": %q,
		"region": "us-east-1",
		"accessToken": "stale-access-token",
		"expiresAt": %q,
		"clientId": "client-id",
		"clientSecret": "client-secret",
		"refreshToken": "refresh-token-value"
	}`, testStartURL, testNow.Add(-time.Minute).Format(time.RFC3339))

	opts, _, fsso, foidc, _ := testOptions(nil, map[string]string{
		ssoCachePath(testStartURL): cached,
	})

	creds, err := providers.NewSSOProvider(ssoConfig(), opts).Retrieve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ASIA_SSO", creds.AccessKeyID)

	require.Len(t, foidc.Calls, 1)
	refresh := foidc.Calls[0]
	assert.Equal(t, "refresh_token", aws.ToString(refresh.GrantType))
	assert.Equal(t, "refresh-token-value", aws.ToString(refresh.RefreshToken))
	assert.Equal(t, "client-id", aws.ToString(refresh.ClientId))

	require.Len(t, fsso.Calls, 1)
	assert.Equal(t, "refreshed-access-token", aws.ToString(fsso.Calls[0].AccessToken))
}

func TestSSOProviderTokenCacheProblems(t *testing.T) {
	t.Parallel()

	expired := fmt.Sprintf(`{
		"startUrl": %q,
		"accessToken": "stale",
		"expiresAt": %q
	}`, testStartURL, testNow.Add(-time.Hour).Format(time.RFC3339))

	tests := []struct {
		name  string
		files map[string]string
		want  string
	}{
		{
			name:  "no_cached_token",
			files: nil,
			want:  "aws sso login",
		},
		{
			name:  "malformed_cache",
			files: map[string]string{ssoCachePath(testStartURL): "not json"},
			want:  "malformed",
		},
		{
			name:  "expired_without_refresh_token",
			files: map[string]string{ssoCachePath(testStartURL): expired},
			want:  "aws sso login",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			opts, _, _, _, _ := testOptions(nil, tt.files)
			_, err := providers.NewSSOProvider(ssoConfig(), opts).Retrieve(context.Background())
			require.Error(t, err)
			assert.True(t, credentials.IsInvalidConfiguration(err), "got %v", err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
