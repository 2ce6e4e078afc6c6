// Package cli is the thin cobra driver over the sync engine. It shapes jobs
// from flags and owns no business rules.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/grn-bogo/ziasync/internal/logger"
)

var (
	// version is set by goreleaser ldflags.
	version = "dev"

	// verbose enables debug logging.
	verbose bool

	// cfgFile is an optional TOML config path.
	cfgFile string
)

// rootCmd is the base command.
var rootCmd = &cobra.Command{
	Use:   "ziasync",
	Short: "Synchronize directory group memberships in bulk",
	Long: `ziasync drives bulk group-membership synchronization against a hosted
directory service under its per-endpoint call budget.

Credentials come from ZIA_USERNAME, ZIA_PASSWORD and ZIA_API_KEY (or a
.env file, or --config); a missing password is prompted for.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// SetVersion sets the version string for the CLI.
func SetVersion(v string) {
	version = v
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the ziasync version",
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Println(version)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose debug output")
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to a TOML config file")

	rootCmd.PersistentPreRunE = func(_ *cobra.Command, _ []string) error {
		logger.SetVerbose(verbose)
		return nil
	}

	rootCmd.AddCommand(versionCmd)
}
