package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"TimingTerminal/internal/recorder"
	"TimingTerminal/internal/strategy"
)

var historyDays int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Print the trailing window of the score history",
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		records, err := a.store.Records()
		if err != nil {
			return err
		}
		days := a.cfg.History.WindowDays
		if cmd.Flags().Changed("days") {
			days = historyDays
		}
		points := strategy.FromRecords(recorder.Trailing(records, time.Now().UTC(), days), a.cfg.Scoring)

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "TIMESTAMP\tPRICE\tSCORE\tZONE")
		for _, p := range points {
			fmt.Fprintf(w, "%s\t%.2f\t%.2f\t%s\n", p.Timestamp.UTC().Format(time.RFC3339), p.ReferencePrice, p.Score, p.Zone)
		}
		if err := w.Flush(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d of %d records\n", len(points), len(records))
		return nil
	},
}

func init() {
	historyCmd.Flags().IntVar(&historyDays, "days", 0, "trailing window in days, 0 for all (default history.window_days)")
}
