package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"TimingTerminal/internal/server"
)

var (
	serveAddr     string
	withScheduler bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve chart-data.json, /metrics and /healthz",
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if withScheduler {
			sched, err := a.startScheduler(ctx, runOnStart)
			if err != nil {
				return err
			}
			defer sched.Stop()
		}

		addr := a.cfg.Server.Addr
		if serveAddr != "" {
			addr = serveAddr
		}
		srv := server.New(addr, a.cfg.Output.Path, a.metrics, a.pipeline, a.log.With().Str("component", "http").Logger())
		return srv.ListenAndServe(ctx)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default server.addr)")
	serveCmd.Flags().BoolVar(&withScheduler, "with-scheduler", false, "also run the cron scheduler in-process")
	serveCmd.Flags().BoolVar(&runOnStart, "run-on-start", false, "with --with-scheduler, execute one run immediately")
}
