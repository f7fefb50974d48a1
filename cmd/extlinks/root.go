package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for extlinks.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "extlinks",
		Short: "Index the external links in a vault of Markdown notes",
		Long: `extlinks finds every external http(s) link in a directory of Markdown
notes and keeps the list up to date as notes change.

The link index and the exclusion settings are saved between runs, so
'extlinks list' shows the last result instantly and 'extlinks watch'
only re-reads the notes that changed.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().StringP("config", "c", "",
		"Configuration file path (default: .extlinks in current or home directory)")
	cmd.PersistentFlags().String("state", "",
		"Store state in this JSON file instead of the SQLite database")
	cmd.PersistentFlags().String("db-dir", "",
		"Directory of the SQLite state database (default: XDG data directory)")
	cmd.PersistentFlags().Bool("log-json", false, "Write logs as JSON")

	cmd.AddCommand(NewScanCmd())
	cmd.AddCommand(NewWatchCmd())
	cmd.AddCommand(NewListCmd())
	cmd.AddCommand(NewExcludeCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
