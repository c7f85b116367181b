// Package main is the entry point for the lintbridge client.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, errorColor.Sprint("Error:"), err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}
	root := &cobra.Command{
		Use:     "lintbridge",
		Short:   "Editor-side client for the ESLint language server",
		Version: fmt.Sprintf("%s (commit %s, built %s)", version, commit, date),
		Long: `lintbridge drives an ESLint language server on behalf of an editor.

It decides which documents are validated, answers the server's
configuration requests with per-document settings, migrates legacy
settings and tracks how long linting takes.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&opts.workspace, "workspace", "w", "", "workspace root (default: current directory)")
	flags.StringSliceVar(&opts.folders, "folder", nil, "workspace folder, repeatable (default: the workspace root)")
	flags.StringVar(&opts.userConfig, "user-config", "", "user settings directory")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level: trace, debug, info, warn, error (default: from eslint.trace.server)")
	flags.BoolVar(&opts.noColor, "no-color", false, "disable colored output")

	root.AddCommand(
		newRunCmd(opts),
		newResolveCmd(opts),
		newDecideCmd(opts),
		newMigrateCmd(opts),
	)
	return root
}
