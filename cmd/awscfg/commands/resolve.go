package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// snapshotReport is the serializable view of a resolved configuration. Values
// that resolved to absence are omitted rather than rendered empty.
type snapshotReport struct {
	Region      string         `yaml:"region,omitempty" json:"region,omitempty"`
	Retry       retryReport    `yaml:"retry" json:"retry"`
	Timeouts    *timeoutReport `yaml:"timeouts,omitempty" json:"timeouts,omitempty"`
	AppName     string         `yaml:"app_name,omitempty" json:"app_name,omitempty"`
	Endpoint    string         `yaml:"endpoint,omitempty" json:"endpoint,omitempty"`
	Credentials string         `yaml:"credentials" json:"credentials"`
}

type retryReport struct {
	MaxAttempts int    `yaml:"max_attempts" json:"max_attempts"`
	Mode        string `yaml:"mode" json:"mode"`
}

type timeoutReport struct {
	APICall        string `yaml:"api_call,omitempty" json:"api_call,omitempty"`
	APICallAttempt string `yaml:"api_call_attempt,omitempty" json:"api_call_attempt,omitempty"`
}

func NewResolveCommand(opts *Options) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Resolve the full configuration snapshot",
		Long: `Resolve every configuration axis through its source chain and print the
snapshot. Credential values are never printed; only the provider that would
supply them.

Examples:
  # Show the resolved configuration
  awscfg resolve

  # Resolve against a named profile, as JSON
  awscfg resolve --profile staging -o json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if output != "yaml" && output != "json" {
				return fmt.Errorf("unsupported output format %q (want yaml or json)", output)
			}

			cfg, err := opts.loader().Load(cmd.Context())
			if err != nil {
				return err
			}

			report := snapshotReport{
				Credentials: cfg.Credentials().Name(),
			}
			if region, ok := cfg.Region(); ok {
				report.Region = region
			}
			rc := cfg.Retry()
			report.Retry = retryReport{MaxAttempts: rc.MaxAttempts, Mode: string(rc.Mode)}
			if tc := cfg.Timeouts(); !tc.IsZero() {
				tr := &timeoutReport{}
				if tc.APICall > 0 {
					tr.APICall = tc.APICall.String()
				}
				if tc.APICallAttempt > 0 {
					tr.APICallAttempt = tc.APICallAttempt.String()
				}
				report.Timeouts = tr
			}
			if name, ok := cfg.AppName(); ok {
				report.AppName = name
			}
			if endpoint, ok := cfg.Endpoint(); ok {
				report.Endpoint = endpoint
			}

			if output == "json" {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			}
			return yaml.NewEncoder(os.Stdout).Encode(report)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "yaml", "Output format: yaml or json")

	return cmd
}
