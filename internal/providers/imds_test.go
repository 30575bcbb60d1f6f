package providers_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/systmms/awscfg/internal/providers"
	"github.com/systmms/awscfg/pkg/credentials"
)

func TestIMDSProviderDisabledByEnvironment(t *testing.T) {
	t.Parallel()

	opts, _, _, _, _ := testOptions(map[string]string{
		"AWS_EC2_METADATA_DISABLED": "true",
	}, nil)

	_, err := providers.NewIMDSProvider(opts).Retrieve(context.Background())
	assert.True(t, credentials.IsNotConfigured(err))
}

func TestIMDSProviderResolvesInstanceRole(t *testing.T) {
	t.Parallel()

	opts, _, _, _, fimds := testOptions(nil, nil)
	fimds.Err = nil
	fimds.Metadata = map[string]string{
		"iam/security-credentials/": "app-instance-role\n",
		"iam/security-credentials/app-instance-role": `{
			"Code": "Success",
			"AccessKeyId": "ASIA_INSTANCE",
			"SecretAccessKey": "instance-secret",
			"Token": "instance-token",
			"Expiration": "2026-01-15T18:00:00Z"
		}`,
	}

	creds, err := providers.NewIMDSProvider(opts).Retrieve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ASIA_INSTANCE", creds.AccessKeyID)
	assert.Equal(t, "instance-token", creds.SessionToken)
	assert.Equal(t, "Ec2InstanceMetadata", creds.Source)
	require.NotNil(t, creds.Expires)
	assert.Equal(t, time.Date(2026, 1, 15, 18, 0, 0, 0, time.UTC), creds.Expires.UTC())
}

func TestIMDSProviderNonExpiringDocument(t *testing.T) {
	t.Parallel()

	// Some document variants omit Expiration; the credentials must then be
	// treated as non-expiring, not as already expired.
	opts, _, _, _, fimds := testOptions(nil, nil)
	fimds.Err = nil
	fimds.Metadata = map[string]string{
		"iam/security-credentials/": "app-instance-role\n",
		"iam/security-credentials/app-instance-role": `{
			"Code": "Success",
			"AccessKeyId": "ASIA_INSTANCE",
			"SecretAccessKey": "instance-secret",
			"Token": "instance-token"
		}`,
	}

	creds, err := providers.NewIMDSProvider(opts).Retrieve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ASIA_INSTANCE", creds.AccessKeyID)
	assert.Nil(t, creds.Expires)
}

func TestIMDSProviderFailuresAreSoft(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		metadata map[string]string
		err      error
	}{
		{
			name: "not_on_ec2",
			err:  assert.AnError,
		},
		{
			name:     "no_role_attached",
			metadata: map[string]string{"iam/security-credentials/": "\n"},
		},
		{
			name: "failure_code",
			metadata: map[string]string{
				"iam/security-credentials/":     "role\n",
				"iam/security-credentials/role": `{"Code":"AssumeRoleUnauthorizedAccess"}`,
			},
		},
		{
			name: "malformed_document",
			metadata: map[string]string{
				"iam/security-credentials/":     "role\n",
				"iam/security-credentials/role": "not json",
			},
		},
		{
			name: "incomplete_document",
			metadata: map[string]string{
				"iam/security-credentials/":     "role\n",
				"iam/security-credentials/role": `{"Code":"Success","AccessKeyId":"ASIA_ONLY"}`,
			},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			opts, _, _, _, fimds := testOptions(nil, nil)
			fimds.Err = tt.err
			fimds.Metadata = tt.metadata

			_, err := providers.NewIMDSProvider(opts).Retrieve(context.Background())
			require.Error(t, err)
			assert.True(t, credentials.IsUnreachable(err), "got %v", err)
		})
	}
}
