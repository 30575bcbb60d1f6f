package providers_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/systmms/awscfg/internal/providers"
	"github.com/systmms/awscfg/pkg/credentials"
	"github.com/systmms/awscfg/pkg/sources"
)

func TestEnvProvider(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		env         map[string]string
		wantKeyID   string
		wantToken   string
		wantMiss    bool
		wantInvalid bool
	}{
		{
			name:     "nothing_set",
			env:      map[string]string{},
			wantMiss: true,
		},
		{
			name: "full_pair",
			env: map[string]string{
				"AWS_ACCESS_KEY_ID":     "AKID",
				"AWS_SECRET_ACCESS_KEY": "secret",
			},
			wantKeyID: "AKID",
		},
		{
			name: "full_pair_with_token",
			env: map[string]string{
				"AWS_ACCESS_KEY_ID":     "AKID",
				"AWS_SECRET_ACCESS_KEY": "secret",
				"AWS_SESSION_TOKEN":     "token",
			},
			wantKeyID: "AKID",
			wantToken: "token",
		},
		{
			name:        "key_without_secret",
			env:         map[string]string{"AWS_ACCESS_KEY_ID": "AKID"},
			wantInvalid: true,
		},
		{
			name:        "secret_without_key",
			env:         map[string]string{"AWS_SECRET_ACCESS_KEY": "secret"},
			wantInvalid: true,
		},
		{
			name: "empty_values_are_unset",
			env: map[string]string{
				"AWS_ACCESS_KEY_ID":     "",
				"AWS_SECRET_ACCESS_KEY": "",
			},
			wantMiss: true,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			p := providers.NewEnvProvider(sources.MapEnv(tt.env))
			creds, err := p.Retrieve(context.Background())

			switch {
			case tt.wantMiss:
				assert.True(t, credentials.IsNotConfigured(err))
			case tt.wantInvalid:
				assert.True(t, credentials.IsInvalidConfiguration(err))
			default:
				require.NoError(t, err)
				assert.Equal(t, tt.wantKeyID, creds.AccessKeyID)
				assert.Equal(t, tt.wantToken, creds.SessionToken)
				assert.Equal(t, "Environment", creds.Source)
				assert.False(t, creds.CanExpire())
			}
		})
	}
}

func TestEnvProviderPartialPairNamesMissingVariable(t *testing.T) {
	t.Parallel()

	p := providers.NewEnvProvider(sources.MapEnv{"AWS_ACCESS_KEY_ID": "AKID"})
	_, err := p.Retrieve(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "AWS_SECRET_ACCESS_KEY")
}
