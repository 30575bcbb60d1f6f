package commands

import (
	"github.com/systmms/awscfg/internal/logging"
	"github.com/systmms/awscfg/pkg/config"
)

// Options carries the parsed global flags into each subcommand.
type Options struct {
	Logger  *logging.Logger
	Debug   bool
	Profile string
	Region  string
}

// loader builds a config loader from the global flags. Per-command overrides
// are layered on by the caller before Load.
func (o *Options) loader() *config.Loader {
	l := config.New().WithLogger(o.Logger).WithDebug(o.Debug)
	if o.Profile != "" {
		l = l.WithSharedConfigProfile(o.Profile)
	}
	if o.Region != "" {
		l = l.WithRegion(o.Region)
	}
	return l
}
