package cmd

import (
	"context"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/kdeps/kxlate/pkg/environment"
	"github.com/kdeps/kxlate/pkg/logging"
	"github.com/kdeps/kxlate/pkg/server"
)

// NewServeCommand creates the 'serve' command.
func NewServeCommand(ctx context.Context, fs afero.Fs, env *environment.Environment, logger *logging.Logger) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:     "serve",
		Aliases: []string{"s"},
		Example: "$ kxlate serve --addr :8080",
		Short:   "Serve the translation endpoints over HTTP",
		RunE: func(_ *cobra.Command, _ []string) error {
			app, err := NewApp(ctx, fs, env, logger)
			if err != nil {
				return err
			}
			defer app.Close()

			if addr == "" {
				addr = env.Addr()
			}

			var hist server.HistoryReader
			if app.History != nil {
				hist = app.History
			}

			srv := server.New(server.Config{
				Addr:                addr,
				DefaultMode:         app.Mode(),
				DefaultOutputBucket: env.OutputBucket,
				AllowOrigins:        env.AllowedOrigins(),
				Metrics:             app.Metrics,
				Debug:               env.Debug == "1",
			}, app.Orchestrator, hist, logger)

			return srv.Start(ctx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default KXLATE_HOST:PORT)")
	return cmd
}
