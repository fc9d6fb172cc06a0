// Package commands implements the reposample command line.
package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// Version information, set at build time.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

type rootOptions struct {
	configPath string
	verbose    bool
}

// NewRootCommand builds the reposample command tree.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "reposample",
		Short: "Download a random sample of source files from git repositories",
		Long: `reposample lists the files of a repository, keeps the ones matching the
configured size, path and language criteria, and downloads a random sample of
them. Every processed file is recorded in a database keyed by content hash so
later runs never fetch the same content twice.

Commands:
  download  Sample and download files from one or more repositories
  serve     Serve the download database over a read-only HTTP API
  version   Show version information`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "config file (default ./reposample.yaml or $HOME/.reposample/reposample.yaml)")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "verbose output")

	cmd.AddCommand(NewDownloadCommand(opts))
	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(newVersionCommand())

	return cmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			printVersion(cmd.OutOrStdout())
		},
	}
}

func printVersion(w io.Writer) {
	fmt.Fprintf(w, "reposample %s (commit: %s, built: %s)\n", Version, Commit, Date)
}
