package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/seenimoa/stockagent/api"
)

// --- Serve Command (HTTP Server) ---

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web UI and JSON API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		if port, _ := cmd.Flags().GetInt("port"); port != 0 {
			cfg.API.Port = port
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		opts := []api.Option{api.WithLogger(log), api.WithVersion(version)}
		narrator, provider, err := newNarrator(ctx, cfg, log)
		if err != nil {
			log.WithError(err).Warn("narrative backend unavailable, serving reports without analysis")
		} else {
			opts = append(opts, api.WithNarrator(narrator), api.WithProvider(provider))
		}

		srv := api.NewServer(cfg, newAggregator(cfg, log), opts...)
		return srv.Run(ctx, cfg.Addr())
	},
}

func init() {
	serveCmd.Flags().Int("port", 0, "listen port (overrides api.port)")
}
