package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"TimingTerminal/internal/scheduler"
)

var runOnStart bool

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run the pipeline on the configured cron schedule",
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		sched, err := a.startScheduler(ctx, runOnStart)
		if err != nil {
			return err
		}
		defer sched.Stop()

		a.log.Info().Msg("timingterminal is running, press Ctrl+C to stop")
		<-ctx.Done()
		a.log.Info().Msg("shutdown signal received, stopping")
		return nil
	},
}

func init() {
	scheduleCmd.Flags().BoolVar(&runOnStart, "run-on-start", false, "execute one run immediately (also RUN_ON_START=true)")
}

// startScheduler registers the cron run, starts chat polling when Telegram
// is configured and optionally triggers an immediate run.
func (a *app) startScheduler(ctx context.Context, runNow bool) (*scheduler.Scheduler, error) {
	sched := scheduler.NewScheduler(ctx, a.pipeline, a.alerter, a.log.With().Str("component", "scheduler").Logger())
	if err := sched.Register(a.cfg.Schedule.Cron); err != nil {
		return nil, err
	}
	sched.Start()

	if a.telegram != nil {
		go a.telegram.StartPolling(ctx, sched.HandleCommand)
		a.log.Info().Msg("telegram polling started")
	}
	if runNow || a.cfg.Schedule.RunOnStart {
		a.log.Info().Msg("run on start enabled, executing pipeline now")
		sched.RunAsync(ctx)
	}
	return sched, nil
}
