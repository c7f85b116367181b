package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/dshills/lintbridge/internal/app"
	"github.com/dshills/lintbridge/internal/prompt"
)

func newResolveCmd(opts *globalOptions) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "resolve FILE",
		Short: "Print the settings the server would receive for a file",
		Long: `Print the settings payload answered to the server's configuration
request for FILE. Legacy settings of the file's folder may be migrated
first; the question is asked on the terminal.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if output != "json" && output != "yaml" {
				return fmt.Errorf("unknown output format %q", output)
			}
			env, err := opts.setup(cmd.Context(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer env.Close()

			client, err := app.New(app.Options{
				Config:   env.cfg,
				Logger:   env.log,
				Prompter: prompt.NewTerminal(os.Stdin, cmd.ErrOrStderr()),
			})
			if err != nil {
				return err
			}

			doc, err := document(args[0], "")
			if err != nil {
				return err
			}
			payload, err := client.Settings(cmd.Context(), doc.URI)
			if err != nil {
				return err
			}

			data, err := json.MarshalIndent(payload, "", "  ")
			if err != nil {
				return err
			}
			if output == "yaml" {
				// Round trip through a map so keys keep their wire names.
				var m map[string]any
				if err := json.Unmarshal(data, &m); err != nil {
					return err
				}
				if data, err = yaml.Marshal(m); err != nil {
					return err
				}
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return err
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "json", "output format: json or yaml")
	return cmd
}
