package config

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/systmms/awscfg/internal/cache"
	"github.com/systmms/awscfg/internal/logging"
	"github.com/systmms/awscfg/internal/profile"
	"github.com/systmms/awscfg/internal/providers"
	"github.com/systmms/awscfg/pkg/credentials"
	"github.com/systmms/awscfg/pkg/sources"
)

// ErrLoaderConsumed is returned by Load on a loader that already produced a
// snapshot. Loaders are one-shot; build a new one with New.
var ErrLoaderConsumed = errors.New("config: loader already consumed, build a new one with New")

// Loader accumulates per-axis overrides and then resolves one immutable
// Config snapshot. An axis with an override never runs its default chain,
// even when the override carries no value. A Loader is not safe for
// concurrent mutation; the Config it produces is.
type Loader struct {
	mu       sync.Mutex
	consumed bool

	src    *sources.Sources
	logger *logging.Logger
	debug  bool

	region        *string
	creds         credentials.Provider
	retry         *RetryConfig
	timeouts      *TimeoutConfig
	appName       *string
	endpoint      *string
	profileName   string
	refreshBuffer time.Duration
}

// New returns an empty loader; without overrides Load runs every default
// chain against the real process environment.
func New() *Loader {
	return &Loader{}
}

// WithSources substitutes the source abstraction every chain reads from.
// Tests use this to pin the environment, filesystem, clock, and transport.
func (l *Loader) WithSources(src *sources.Sources) *Loader {
	l.src = src
	return l
}

// WithLogger routes resolution diagnostics to the given logger.
func (l *Loader) WithLogger(log *logging.Logger) *Loader {
	l.logger = log
	return l
}

// WithDebug enables debug-level resolution tracing on the default logger.
func (l *Loader) WithDebug(debug bool) *Loader {
	l.debug = debug
	return l
}

// WithRegion pins the region axis. The default chain for the axis is skipped
// entirely; an empty string pins the axis to absence.
func (l *Loader) WithRegion(region string) *Loader {
	l.region = &region
	return l
}

// WithCredentialsProvider pins the credentials axis to the given provider.
// The default chain is skipped and the provider is used as-is, without the
// expiration cache; wrap it in the caller if caching is wanted.
func (l *Loader) WithCredentialsProvider(p credentials.Provider) *Loader {
	l.creds = p
	return l
}

// WithStaticCredentials pins the credentials axis to a fixed key pair.
func (l *Loader) WithStaticCredentials(accessKeyID, secretAccessKey, sessionToken string) *Loader {
	l.creds = credentials.NewStaticProvider(accessKeyID, secretAccessKey, sessionToken)
	return l
}

// WithRetryConfig pins the retry axis.
func (l *Loader) WithRetryConfig(rc RetryConfig) *Loader {
	l.retry = &rc
	return l
}

// WithTimeoutConfig pins the timeout axis.
func (l *Loader) WithTimeoutConfig(tc TimeoutConfig) *Loader {
	l.timeouts = &tc
	return l
}

// WithAppName pins the application-name axis. The name is validated during
// Load.
func (l *Loader) WithAppName(name string) *Loader {
	l.appName = &name
	return l
}

// WithEndpoint installs a global endpoint override for every service client
// built from the snapshot.
func (l *Loader) WithEndpoint(url string) *Loader {
	l.endpoint = &url
	return l
}

// WithSharedConfigProfile names the profile every chain reads instead of the
// AWS_PROFILE selection. A named profile that does not exist is
// misconfiguration, not a miss.
func (l *Loader) WithSharedConfigProfile(name string) *Loader {
	l.profileName = name
	return l
}

// WithCredentialsRefreshBuffer widens or narrows how long before expiry the
// credential cache refreshes. Zero keeps the default buffer.
func (l *Loader) WithCredentialsRefreshBuffer(d time.Duration) *Loader {
	l.refreshBuffer = d
	return l
}

// Load resolves every axis and returns the snapshot. Axes without overrides
// run their default chains; region is resolved first because remote
// credential steps sign against it, then the independent axes resolve
// concurrently. Load consumes the loader.
func (l *Loader) Load(ctx context.Context) (*Config, error) {
	l.mu.Lock()
	if l.consumed {
		l.mu.Unlock()
		return nil, ErrLoaderConsumed
	}
	l.consumed = true
	l.mu.Unlock()

	src := l.src
	if src == nil {
		src = sources.Default()
	}
	logger := l.logger
	if logger == nil {
		if l.debug {
			logger = logging.New(true, false)
		} else {
			logger = logging.Discard()
		}
	}

	store := profile.NewStore(src)
	popts := providers.Options{
		Sources:     src,
		Profiles:    store,
		Logger:      logger,
		ProfileName: l.profileName,
	}.Normalize()
	deps := axisDeps{
		src:         src,
		profiles:    store,
		profileName: l.profileName,
		imds:        func() imdsRegionAPI { return popts.IMDS },
	}

	cfg := &Config{src: src}

	if l.region != nil {
		cfg.region = *l.region
		cfg.hasRegion = *l.region != ""
	} else {
		region, ok, err := defaultRegionChain(deps).WithLogger(logger).Resolve(ctx)
		if err != nil {
			return nil, err
		}
		cfg.region, cfg.hasRegion = region, ok
	}
	popts.Region = cfg.region

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if l.retry != nil {
			rc := *l.retry
			if rc.MaxAttempts < 1 {
				rc.MaxAttempts = DefaultRetryConfig().MaxAttempts
			}
			if rc.Mode == "" {
				rc.Mode = DefaultRetryConfig().Mode
			}
			cfg.retry = rc
			return nil
		}
		rc, _, err := defaultRetryChain(deps).WithLogger(logger).Resolve(gctx)
		if err != nil {
			return err
		}
		cfg.retry = rc
		return nil
	})

	g.Go(func() error {
		if l.timeouts != nil {
			cfg.timeouts = *l.timeouts
			return nil
		}
		tc, _, err := defaultTimeoutChain(deps).WithLogger(logger).Resolve(gctx)
		if err != nil {
			return err
		}
		cfg.timeouts = tc
		return nil
	})

	g.Go(func() error {
		if l.appName != nil {
			name := *l.appName
			if name == "" {
				return nil
			}
			if !ValidAppName(name) {
				return &credentials.InvalidConfigurationError{
					Setting: "app name",
					Message: "must be at most 50 characters of letters, digits, or !$%&'*+-.^_`|~",
				}
			}
			cfg.appName, cfg.hasAppName = name, true
			return nil
		}
		name, ok, err := defaultAppNameChain(deps).WithLogger(logger).Resolve(gctx)
		if err != nil {
			return err
		}
		cfg.appName, cfg.hasAppName = name, ok
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	if l.endpoint != nil && *l.endpoint != "" {
		cfg.endpoint, cfg.hasEndpoint = *l.endpoint, true
	}

	if l.creds != nil {
		cfg.creds = l.creds
	} else {
		cfg.creds = cache.New(providers.NewChain(popts), cache.Config{
			RefreshBuffer: l.refreshBuffer,
			Clock:         src.Clock,
			Logger:        logger,
		})
	}

	return cfg, nil
}

// Load resolves a snapshot with no overrides: every axis runs its default
// chain against the real process environment.
func Load(ctx context.Context) (*Config, error) {
	return New().Load(ctx)
}
