package cmd

import (
	"github.com/spf13/cobra"
)

// New creates the root command with all subcommands registered.
func New() *cobra.Command {
	opts := &Options{}

	rootCmd := &cobra.Command{
		Use:   "glinvent",
		Short: "GitLab organization inventory for migration planning",
		Long: `Walks one or more GitLab groups over the REST API and aggregates
per-project statistics (issues, merge requests, notes, sizes) into a
CSV report, plus a report of project names that collide across groups.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScan(cmd, opts)
		},
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}

	// Add scan flags to root command so `glinvent` and `glinvent scan` work identically
	addScanFlags(rootCmd, opts)

	// Register subcommands
	rootCmd.AddCommand(NewCmdScan(opts))
	rootCmd.AddCommand(NewCmdConfig())
	rootCmd.AddCommand(NewCmdVersion())

	return rootCmd
}
