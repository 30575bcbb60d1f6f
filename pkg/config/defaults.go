package config

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/ec2/imds"

	"github.com/systmms/awscfg/internal/chain"
	"github.com/systmms/awscfg/internal/profile"
	"github.com/systmms/awscfg/pkg/sources"
)

// Environment variables consulted by the non-credential axes.
const (
	envRegion             = "AWS_REGION"
	envDefaultRegion      = "AWS_DEFAULT_REGION"
	envMaxAttempts        = "AWS_MAX_ATTEMPTS"
	envRetryMode          = "AWS_RETRY_MODE"
	envAppName            = "AWS_SDK_UA_APP_ID"
	envAPICallTimeout     = "AWS_API_CALL_TIMEOUT"
	envAPIAttemptTimeout  = "AWS_API_CALL_ATTEMPT_TIMEOUT"
	envEC2MetadataDisable = "AWS_EC2_METADATA_DISABLED"
)

// Profile keys consulted by the non-credential axes.
const (
	keyRegion            = "region"
	keyMaxAttempts       = "max_attempts"
	keyRetryMode         = "retry_mode"
	keyAppName           = "sdk_ua_app_id"
	keyAPICallTimeout    = "api_call_timeout"
	keyAPIAttemptTimeout = "api_call_attempt_timeout"
)

// imdsRegionTimeout bounds the IMDS region lookup. The metadata service is
// link-local; anything slower than this means we are not on EC2.
const imdsRegionTimeout = 2 * time.Second

// axisDeps carries the shared collaborators every axis chain reads from.
type axisDeps struct {
	src         *sources.Sources
	profiles    *profile.Store
	profileName string
	imds        func() imdsRegionAPI
}

// selectedProfile honors an explicit loader override before falling back to
// AWS_PROFILE selection.
func (d axisDeps) selectedProfile() string {
	if d.profileName != "" {
		return d.profileName
	}
	return profile.Selected(d.src.Env)
}

type imdsRegionAPI interface {
	GetRegion(ctx context.Context, params *imds.GetRegionInput, optFns ...func(*imds.Options)) (*imds.GetRegionOutput, error)
}

// envStep yields the first set, non-empty variable among keys.
func envStep[V any](env sources.Env, parse func(string) (V, bool), keys ...string) chain.Step[V] {
	return chain.Step[V]{
		Name: "Environment",
		Resolve: func(ctx context.Context) (V, bool, error) {
			var zero V
			for _, key := range keys {
				raw, ok := env.Lookup(key)
				if !ok || raw == "" {
					continue
				}
				v, valid := parse(raw)
				if !valid {
					// Malformed values are absence for this step, not an
					// error; the next source may still supply the axis.
					return zero, false, nil
				}
				return v, true, nil
			}
			return zero, false, nil
		},
	}
}

// profileStep yields the value of key in the selected profile.
func profileStep[V any](deps axisDeps, parse func(string) (V, bool), key string) chain.Step[V] {
	return chain.Step[V]{
		Name: "SharedConfigProfile",
		Resolve: func(ctx context.Context) (V, bool, error) {
			var zero V
			file, err := deps.profiles.Load(ctx)
			if err != nil {
				return zero, false, err
			}
			prof, ok := file.Get(deps.selectedProfile())
			if !ok {
				return zero, false, nil
			}
			raw, ok := prof.Get(key)
			if !ok || raw == "" {
				return zero, false, nil
			}
			v, valid := parse(raw)
			if !valid {
				return zero, false, nil
			}
			return v, true, nil
		},
	}
}

func parseString(s string) (string, bool) { return s, true }

// defaultRegionChain resolves the region axis: explicit environment, then the
// selected profile, then the EC2 instance metadata service. Exhaustion is
// absence, never an error.
func defaultRegionChain(deps axisDeps) *chain.Chain[string] {
	steps := []chain.Step[string]{
		envStep(deps.src.Env, parseString, envRegion, envDefaultRegion),
		profileStep(deps, parseString, keyRegion),
		{
			Name: "Ec2InstanceMetadata",
			Resolve: func(ctx context.Context) (string, bool, error) {
				if v, ok := deps.src.Env.Lookup(envEC2MetadataDisable); ok && strings.EqualFold(v, "true") {
					return "", false, nil
				}
				ctx, cancel := context.WithTimeout(ctx, imdsRegionTimeout)
				defer cancel()
				out, err := deps.imds().GetRegion(ctx, &imds.GetRegionInput{})
				if err != nil {
					return "", false, err
				}
				return out.Region, out.Region != "", nil
			},
		},
	}
	return chain.New("region", steps)
}

// parseRetryEnv folds the two retry variables into one step value. A set but
// malformed variable makes the whole step absent so a lower source can win.
func retryEnvStep(env sources.Env) chain.Step[RetryConfig] {
	return chain.Step[RetryConfig]{
		Name: "Environment",
		Resolve: func(ctx context.Context) (RetryConfig, bool, error) {
			rc := DefaultRetryConfig()
			present := false
			if raw, ok := env.Lookup(envMaxAttempts); ok && raw != "" {
				n, err := strconv.Atoi(raw)
				if err != nil || n < 1 {
					return RetryConfig{}, false, nil
				}
				rc.MaxAttempts = n
				present = true
			}
			if raw, ok := env.Lookup(envRetryMode); ok && raw != "" {
				mode, valid := ParseRetryMode(raw)
				if !valid {
					return RetryConfig{}, false, nil
				}
				rc.Mode = mode
				present = true
			}
			return rc, present, nil
		},
	}
}

func retryProfileStep(deps axisDeps) chain.Step[RetryConfig] {
	return chain.Step[RetryConfig]{
		Name: "SharedConfigProfile",
		Resolve: func(ctx context.Context) (RetryConfig, bool, error) {
			file, err := deps.profiles.Load(ctx)
			if err != nil {
				return RetryConfig{}, false, err
			}
			prof, ok := file.Get(deps.selectedProfile())
			if !ok {
				return RetryConfig{}, false, nil
			}
			rc := DefaultRetryConfig()
			present := false
			if raw, ok := prof.Get(keyMaxAttempts); ok && raw != "" {
				n, err := strconv.Atoi(raw)
				if err != nil || n < 1 {
					return RetryConfig{}, false, nil
				}
				rc.MaxAttempts = n
				present = true
			}
			if raw, ok := prof.Get(keyRetryMode); ok && raw != "" {
				mode, valid := ParseRetryMode(raw)
				if !valid {
					return RetryConfig{}, false, nil
				}
				rc.Mode = mode
				present = true
			}
			return rc, present, nil
		},
	}
}

// defaultRetryChain resolves the retry axis and falls back to the built-in
// default of three standard-mode attempts.
func defaultRetryChain(deps axisDeps) *chain.Chain[RetryConfig] {
	steps := []chain.Step[RetryConfig]{
		retryEnvStep(deps.src.Env),
		retryProfileStep(deps),
	}
	return chain.New("retry", steps).WithDefault(DefaultRetryConfig())
}

// parseTimeout accepts either a Go duration ("30s") or a bare second count.
func parseTimeout(raw string) (time.Duration, bool) {
	if d, err := time.ParseDuration(raw); err == nil && d > 0 {
		return d, true
	}
	if n, err := strconv.Atoi(raw); err == nil && n > 0 {
		return time.Duration(n) * time.Second, true
	}
	return 0, false
}

func timeoutEnvStep(env sources.Env) chain.Step[TimeoutConfig] {
	return chain.Step[TimeoutConfig]{
		Name: "Environment",
		Resolve: func(ctx context.Context) (TimeoutConfig, bool, error) {
			var tc TimeoutConfig
			if raw, ok := env.Lookup(envAPICallTimeout); ok && raw != "" {
				if d, valid := parseTimeout(raw); valid {
					tc.APICall = d
				}
			}
			if raw, ok := env.Lookup(envAPIAttemptTimeout); ok && raw != "" {
				if d, valid := parseTimeout(raw); valid {
					tc.APICallAttempt = d
				}
			}
			return tc, !tc.IsZero(), nil
		},
	}
}

func timeoutProfileStep(deps axisDeps) chain.Step[TimeoutConfig] {
	return chain.Step[TimeoutConfig]{
		Name: "SharedConfigProfile",
		Resolve: func(ctx context.Context) (TimeoutConfig, bool, error) {
			var tc TimeoutConfig
			file, err := deps.profiles.Load(ctx)
			if err != nil {
				return tc, false, err
			}
			prof, ok := file.Get(deps.selectedProfile())
			if !ok {
				return tc, false, nil
			}
			if raw, ok := prof.Get(keyAPICallTimeout); ok && raw != "" {
				if d, valid := parseTimeout(raw); valid {
					tc.APICall = d
				}
			}
			if raw, ok := prof.Get(keyAPIAttemptTimeout); ok && raw != "" {
				if d, valid := parseTimeout(raw); valid {
					tc.APICallAttempt = d
				}
			}
			return tc, !tc.IsZero(), nil
		},
	}
}

// defaultTimeoutChain resolves the API call timeout axis. Absence means no
// client-side timeouts beyond the SDK's own transport settings.
func defaultTimeoutChain(deps axisDeps) *chain.Chain[TimeoutConfig] {
	steps := []chain.Step[TimeoutConfig]{
		timeoutEnvStep(deps.src.Env),
		timeoutProfileStep(deps),
	}
	return chain.New("timeout", steps)
}

func parseAppName(raw string) (string, bool) {
	return raw, ValidAppName(raw)
}

// defaultAppNameChain resolves the user-agent app id axis. Names that fail
// validation are treated as absence for that step.
func defaultAppNameChain(deps axisDeps) *chain.Chain[string] {
	steps := []chain.Step[string]{
		envStep(deps.src.Env, parseAppName, envAppName),
		profileStep(deps, parseAppName, keyAppName),
	}
	return chain.New("app name", steps)
}
