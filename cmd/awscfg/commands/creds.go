package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

// processCredentials is the credential_process output contract consumed by
// the AWS CLI and SDKs.
type processCredentials struct {
	Version         int    `json:"Version"`
	AccessKeyId     string `json:"AccessKeyId"`
	SecretAccessKey string `json:"SecretAccessKey"`
	SessionToken    string `json:"SessionToken,omitempty"`
	Expiration      string `json:"Expiration,omitempty"`
}

func NewCredsCommand(opts *Options) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "creds",
		Short: "Resolve credentials through the default chain",
		Long: `Resolve credentials through the default provider chain and report where
they came from. Secret material is redacted unless --json is given, which
emits the credential_process contract for consumption by other tools.

Examples:
  # Show which provider supplies credentials
  awscfg creds

  # Act as a credential_process source
  awscfg creds --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loader().Load(cmd.Context())
			if err != nil {
				return err
			}

			creds, err := cfg.Credentials().Retrieve(cmd.Context())
			if err != nil {
				return err
			}

			if jsonOutput {
				out := processCredentials{
					Version:         1,
					AccessKeyId:     creds.AccessKeyID,
					SecretAccessKey: creds.SecretAccessKey,
					SessionToken:    creds.SessionToken,
				}
				if creds.Expires != nil {
					out.Expiration = creds.Expires.UTC().Format(time.RFC3339)
				}
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(out)
			}

			fmt.Printf("Source:        %s\n", creds.Source)
			fmt.Printf("AccessKeyId:   %s\n", creds.AccessKeyID)
			if creds.Expires != nil {
				fmt.Printf("Expires:       %s\n", creds.Expires.UTC().Format(time.RFC3339))
			} else {
				fmt.Println("Expires:       never")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit credential_process JSON with secret material")

	return cmd
}
