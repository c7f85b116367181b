package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dshills/lintbridge/internal/app"
	"github.com/dshills/lintbridge/internal/lsp"
	"github.com/dshills/lintbridge/internal/prompt"
	"github.com/dshills/lintbridge/internal/state"
	"github.com/dshills/lintbridge/internal/validate"
)

type runOptions struct {
	server     string
	serverArgs []string
	statePath  string
	fix        bool
	timeout    time.Duration
}

func newRunCmd(opts *globalOptions) *cobra.Command {
	ro := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run [FILE...]",
		Short: "Start the lint server and keep files synchronized with it",
		Long: `Start the ESLint language server, open FILE arguments and keep them
synchronized until interrupted. Settings changes on disk are picked up
while running.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClient(cmd, opts, ro, args)
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&ro.server, "server", "vscode-eslint-language-server", "server executable")
	flags.StringArrayVar(&ro.serverArgs, "server-arg", []string{"--stdio"}, "server argument, repeatable")
	flags.StringVar(&ro.statePath, "state", defaultStatePath(), "state database")
	flags.BoolVar(&ro.fix, "fix", false, "apply all fixes to each FILE after opening it")
	flags.DurationVar(&ro.timeout, "timeout", 30*time.Second, "timeout for server requests")
	return cmd
}

func runClient(cmd *cobra.Command, opts *globalOptions, ro *runOptions, files []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	env, err := opts.setup(ctx, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer env.Close()

	memento, err := state.OpenSQLite(ctx, ro.statePath)
	if err != nil {
		return err
	}
	defer memento.Close()

	client, err := app.New(app.Options{
		Config: env.cfg,
		Server: lsp.ServerConfig{
			Command: ro.server,
			Args:    ro.serverArgs,
			WorkDir: env.cfg.Folders()[0],
			Timeout: ro.timeout,
		},
		Prompter: prompt.NewTerminal(os.Stdin, cmd.ErrOrStderr()),
		Memento:  memento,
		Logger:   env.log,
	})
	if err != nil {
		return err
	}

	if err := client.Start(ctx); err != nil {
		return err
	}
	defer func() {
		if err := client.Stop(context.WithoutCancel(ctx)); err != nil {
			env.log.Warn("stopping: %v", err)
		}
	}()

	for _, path := range files {
		doc, d, err := client.OpenFile(ctx, path)
		if err != nil {
			env.log.Error("%v", err)
			continue
		}
		env.log.Info("%s: %s", path, d)
		if ro.fix && d != validate.Off {
			if err := client.FixOnSave(ctx, doc.URI); err != nil {
				env.log.Error("%v", err)
			}
		}
	}

	<-ctx.Done()
	m := client.Metrics().Snapshot()
	env.log.Info("served %d configuration requests, %d notifications, %d fix runs in %s",
		m.ConfigRequests, m.Notifications, m.FixRuns, m.Uptime.Round(time.Second))
	return nil
}
