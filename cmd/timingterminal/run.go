package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the pipeline once and write chart-data.json",
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		res, err := a.pipeline.Run(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Generated %d points to %s (strategy=%s, dataQuality=%s, lastUpdated=%s)\n",
			len(res.Points), res.OutputPath, res.Strategy, res.Quality,
			res.GeneratedAt.Format("2006-01-02T15:04:05Z"))
		return nil
	},
}
