package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/dshills/lintbridge/internal/app"
	"github.com/dshills/lintbridge/internal/validate"
)

func newDecideCmd(opts *globalOptions) *cobra.Command {
	var language string
	cmd := &cobra.Command{
		Use:   "decide FILE...",
		Short: "Show whether files would be validated",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := opts.setup(cmd.Context(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer env.Close()

			client, err := app.New(app.Options{Config: env.cfg, Logger: env.log})
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, path := range args {
				doc, err := document(path, language)
				if err != nil {
					return err
				}
				d := client.Decide(doc)
				fmt.Fprintf(w, "%s\t%s\t%s\n", path, doc.LanguageID, decisionColor(d).Sprint(d))
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&language, "language", "", "language id (default: detected from the file extension)")
	return cmd
}

func decisionColor(d validate.Decision) *color.Color {
	switch d {
	case validate.On:
		return onColor
	case validate.Probe:
		return probeColor
	default:
		return offColor
	}
}
