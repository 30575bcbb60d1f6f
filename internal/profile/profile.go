// Package profile loads the AWS shared config and credentials files and
// exposes parsed profiles as setting maps. Both the non-credential default
// chains (region, retry, timeout, app name) and the credentials chain read
// profiles through this package; a memoized Store guarantees the files are
// read and parsed at most once per load.
package profile

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"gopkg.in/ini.v1"

	"github.com/systmms/awscfg/pkg/credentials"
	"github.com/systmms/awscfg/pkg/sources"
)

const (
	envProfile         = "AWS_PROFILE"
	envConfigFile      = "AWS_CONFIG_FILE"
	envCredentialsFile = "AWS_SHARED_CREDENTIALS_FILE"

	// DefaultName is the profile used when AWS_PROFILE is not set.
	DefaultName = "default"
)

// Profile is one named section of the merged shared config.
type Profile struct {
	Name     string
	settings map[string]string
}

// Get returns a setting value and whether it is present and non-empty.
func (p *Profile) Get(key string) (string, bool) {
	v, ok := p.settings[key]
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// File is the merged view of the config and credentials files.
type File struct {
	profiles map[string]*Profile
}

// Get returns the named profile.
func (f *File) Get(name string) (*Profile, bool) {
	p, ok := f.profiles[name]
	return p, ok
}

// Selected returns the profile name chosen by AWS_PROFILE, or "default".
func Selected(env sources.Env) string {
	if name, ok := env.Lookup(envProfile); ok && name != "" {
		return name
	}
	return DefaultName
}

// Load reads and merges the shared config and credentials files. Missing files
// yield an empty File; a file that exists but cannot be parsed is an
// InvalidConfigurationError, since it indicates user misconfiguration.
func Load(src *sources.Sources) (*File, error) {
	file := &File{profiles: map[string]*Profile{}}

	configPath, credsPath := paths(src)

	// Config file first so credentials-file keys win on overlap.
	if err := file.mergeFile(src, configPath, true); err != nil {
		return nil, err
	}
	if err := file.mergeFile(src, credsPath, false); err != nil {
		return nil, err
	}
	return file, nil
}

func paths(src *sources.Sources) (configPath, credsPath string) {
	if v, ok := src.Env.Lookup(envConfigFile); ok && v != "" {
		configPath = v
	}
	if v, ok := src.Env.Lookup(envCredentialsFile); ok && v != "" {
		credsPath = v
	}
	if configPath != "" && credsPath != "" {
		return configPath, credsPath
	}
	home, err := src.FS.HomeDir()
	if err != nil {
		// No home directory means no default file locations; the explicit
		// paths (if any) still apply.
		return configPath, credsPath
	}
	if configPath == "" {
		configPath = filepath.Join(home, ".aws", "config")
	}
	if credsPath == "" {
		credsPath = filepath.Join(home, ".aws", "credentials")
	}
	return configPath, credsPath
}

// mergeFile parses one file into the profile set. In the config file, profile
// sections are written as "profile name" (except "default"); the credentials
// file uses bare names.
func (f *File) mergeFile(src *sources.Sources, path string, prefixed bool) error {
	if path == "" {
		return nil
	}
	data, err := src.FS.ReadFile(path)
	if err != nil {
		return nil // absent file is a soft miss, not an error
	}

	parsed, err := ini.LoadSources(ini.LoadOptions{}, data)
	if err != nil {
		return &credentials.InvalidConfigurationError{
			Message: fmt.Sprintf("malformed shared config file %s", path),
			Err:     err,
		}
	}

	for _, section := range parsed.Sections() {
		name := section.Name()
		if name == ini.DefaultSection {
			continue
		}
		if prefixed {
			if trimmed, ok := trimSectionPrefix(name, "profile "); ok {
				name = trimmed
			} else if _, isSSO := trimSectionPrefix(name, ssoSessionPrefix); isSSO {
				// sso-session sections keep their prefixed name so they never
				// collide with profiles.
			} else if name != DefaultName {
				// Unprefixed non-default sections in the config file are
				// ignored, matching the shared-config format.
				continue
			}
		}
		p := f.profiles[name]
		if p == nil {
			p = &Profile{Name: name, settings: map[string]string{}}
			f.profiles[name] = p
		}
		for key, value := range section.KeysHash() {
			p.settings[key] = value
		}
	}
	return nil
}

const ssoSessionPrefix = "sso-session "

func trimSectionPrefix(section, prefix string) (string, bool) {
	if len(section) > len(prefix) && section[:len(prefix)] == prefix {
		return section[len(prefix):], true
	}
	return "", false
}

// GetSSOSession returns the named sso-session section from the config file.
func (f *File) GetSSOSession(name string) (*Profile, bool) {
	p, ok := f.profiles[ssoSessionPrefix+name]
	return p, ok
}

// Store memoizes one Load for sharing across chains. All axes resolving
// concurrently observe the same parse result (or the same parse error).
type Store struct {
	src  *sources.Sources
	once sync.Once
	file *File
	err  error
}

// NewStore creates a Store over the given sources.
func NewStore(src *sources.Sources) *Store {
	return &Store{src: src}
}

// Load returns the merged file, parsing on first use.
func (s *Store) Load(ctx context.Context) (*File, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.once.Do(func() {
		s.file, s.err = Load(s.src)
	})
	return s.file, s.err
}
