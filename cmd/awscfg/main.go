package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/systmms/awscfg/cmd/awscfg/commands"
	"github.com/systmms/awscfg/internal/cache"
	"github.com/systmms/awscfg/internal/logging"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cache.InitMetrics()

	// Global flags
	var (
		noColor bool
		debug   bool
		profile string
		region  string
	)

	opts := &commands.Options{}

	rootCmd := &cobra.Command{
		Use:   "awscfg",
		Short: "Resolve AWS runtime configuration and credentials",
		Long: `awscfg resolves region, credentials, retry policy, timeouts, and app name
through the same ordered source chains an AWS service client would use, and
shows where each value came from.`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			opts.Logger = logging.New(debug, noColor)
			opts.Debug = debug
			opts.Profile = profile
			opts.Region = region
		},
	}

	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&profile, "profile", "", "Shared config profile to resolve from")
	rootCmd.PersistentFlags().StringVar(&region, "region", "", "Pin the region instead of resolving it")

	rootCmd.AddCommand(
		commands.NewResolveCommand(opts),
		commands.NewCredsCommand(opts),
		commands.NewDoctorCommand(opts),
	)

	return rootCmd.Execute()
}
