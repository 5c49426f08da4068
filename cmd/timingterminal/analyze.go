package main

import (
	"fmt"
	"io"
	"math"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"TimingTerminal/internal/analysis"
	"TimingTerminal/internal/model"
	"TimingTerminal/internal/recorder"
	"TimingTerminal/internal/strategy"
)

var (
	analyzeDays     int
	analyzeTop      int
	analyzeEntries  int
	analyzeHorizons []int
	analyzeAt       []string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Summarise zones, forward returns and score extremes of the history",
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
		points := strategy.FromRecords(recorder.Trailing(records, time.Now().UTC(), analyzeDays), a.cfg.Scoring)

		at := make([]time.Time, 0, len(analyzeAt))
		for _, s := range analyzeAt {
			t, err := time.Parse("2006-01-02", s)
			if err != nil {
				return fmt.Errorf("parse --at %q: %w", s, err)
			}
			at = append(at, t)
		}

		report := analysis.Analyze(points, analysis.Options{
			Horizons:   analyzeHorizons,
			MaxEntries: analyzeEntries,
			TopN:       analyzeTop,
		})
		return writeReport(cmd.OutOrStdout(), report, points, at)
	},
}

func init() {
	def := analysis.DefaultOptions()
	analyzeCmd.Flags().IntVar(&analyzeDays, "days", 0, "trailing window in days, 0 for the whole history")
	analyzeCmd.Flags().IntVar(&analyzeTop, "top", def.TopN, "number of highest and lowest scores to list")
	analyzeCmd.Flags().IntVar(&analyzeEntries, "entries", def.MaxEntries, "zone entries sampled for forward returns, 0 for all")
	analyzeCmd.Flags().IntSliceVar(&analyzeHorizons, "horizons", def.Horizons, "forward return horizons in days")
	analyzeCmd.Flags().StringSliceVar(&analyzeAt, "at", nil, "dates (YYYY-MM-DD) to look up the nearest score for")
}

func writeReport(out io.Writer, r analysis.Report, points []model.ScorePoint, at []time.Time) error {
	if r.Points == 0 {
		_, err := fmt.Fprintln(out, "no usable history")
		return err
	}
	fmt.Fprintf(out, "%d points from %s to %s\n\n", r.Points, r.From.Format("2006-01-02"), r.To.Format("2006-01-02"))

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ZONE\tDAYS\tSHARE\tAVG PRICE\tMEDIAN PRICE\tMIN PRICE\tMAX PRICE")
	for _, z := range r.Zones {
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\t%s\t%s\n", z.Zone, z.Days, pct(z.Share),
			price(z.AvgPrice), price(z.MedianPrice), price(z.MinPrice), price(z.MaxPrice))
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "ENTRY ZONE\tHORIZON\tSAMPLES\tAVG\tMEDIAN\tWIN RATE")
	for _, fr := range r.Returns {
		fmt.Fprintf(w, "%s\t%dd\t%d\t%s\t%s\t%s\n", fr.Zone, fr.HorizonDays, fr.Samples,
			signedPct(fr.Avg), signedPct(fr.Median), pct(fr.WinRate))
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "RANK\tHIGHEST\tSCORE\tPRICE\tLOWEST\tSCORE\tPRICE")
	for i := range r.Top {
		hi, lo := r.Top[i], r.Bottom[i]
		fmt.Fprintf(w, "%d\t%s\t%.2f\t%s\t%s\t%.2f\t%s\n", i+1,
			hi.Timestamp.Format("2006-01-02"), hi.Score, price(hi.ReferencePrice),
			lo.Timestamp.Format("2006-01-02"), lo.Score, price(lo.ReferencePrice))
	}

	if len(at) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "DATE\tNEAREST\tSCORE\tZONE\tPRICE\tOFFSET")
		for _, t := range at {
			p, off, ok := analysis.Nearest(points, t)
			if !ok {
				continue
			}
			fmt.Fprintf(w, "%s\t%s\t%.2f\t%s\t%s\t%+dd\n", t.Format("2006-01-02"), p.Timestamp.Format("2006-01-02"),
				p.Score, p.Zone, price(p.ReferencePrice), int(off/(24*time.Hour)))
		}
	}
	return w.Flush()
}

func price(v float64) string {
	if math.IsNaN(v) {
		return "n/a"
	}
	return fmt.Sprintf("$%.2f", v)
}

func pct(v float64) string {
	if math.IsNaN(v) {
		return "n/a"
	}
	return fmt.Sprintf("%.1f%%", v)
}

func signedPct(v float64) string {
	if math.IsNaN(v) {
		return "n/a"
	}
	return fmt.Sprintf("%+.1f%%", v)
}
