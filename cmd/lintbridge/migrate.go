package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dshills/lintbridge/internal/app"
)

func newMigrateCmd(opts *globalOptions) *cobra.Command {
	var folder string
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Convert legacy auto-fix settings of a folder",
		Long: `Rewrite eslint.autoFixOnSave into editor.codeActionsOnSave for a
workspace folder without asking. The folder must be one of the
workspace folders.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := opts.setup(cmd.Context(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer env.Close()

			if folder == "" {
				folder = env.cfg.Folders()[0]
			}
			client, err := app.New(app.Options{Config: env.cfg, Logger: env.log})
			if err != nil {
				return err
			}
			migrated, err := client.MigrateFolder(cmd.Context(), folder)
			if err != nil {
				return err
			}
			if migrated {
				fmt.Fprintf(cmd.OutOrStdout(), "%s settings of %s\n", onColor.Sprint("migrated"), folder)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "nothing to migrate in %s\n", folder)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&folder, "folder", "", "folder to migrate (default: the first workspace folder)")
	return cmd
}
