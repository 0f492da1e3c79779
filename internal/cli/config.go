package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// NewConfigCommand creates the "config" command, which prints the resolved
// configuration as YAML, or as JSON with --json.
func NewConfigCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the resolved configuration",
		Long: `Print the configuration after merging defaults, the config file,
STACKRUN_* environment variables, .env and command-line flags. Paths are
shown resolved against the working directory.

Examples:
  stackrun config
  STACKRUN_VERSION=0.2 stackrun config --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			if a.flags.jsonOutput {
				return writeJSON(w, a.cfg)
			}

			enc := yaml.NewEncoder(w)
			enc.SetIndent(2)
			if err := enc.Encode(a.cfg); err != nil {
				return fmt.Errorf("failed to encode configuration: %w", err)
			}
			return enc.Close()
		},
	}
	return requireConfig(cmd)
}
