package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for cdpmirror.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cdpmirror",
		Short: "Offline mirror for cahier-de-prepa.fr class portals",
		Long: `cdpmirror copies an authenticated cahier-de-prepa.fr class portal into a
self-contained offline mirror.

It logs in through a real browser (the portal renders behind a login form
and serves files through a session-gated endpoint), walks the document
tree, downloads every file once, and rewrites all links so the copy works
from a plain directory with no server and no network.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	// Add subcommands
	cmd.AddCommand(NewMirrorCmd())
	cmd.AddCommand(NewHistoryCmd())
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

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}
