package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Sumit-SC/E-commerce-Product-Analytics/internal/report"
)

func newReportCmd(app *cli) *cobra.Command {
	var (
		retention bool
		periods   int
		metrics   bool
	)

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Summarize the raw files and the warehouse",
		Long: `Print row counts, funnel reach, device and source mix, order value and
A/B conversion computed from the raw files. With --retention the weekly
cohort matrix is read from a materialized warehouse.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			ds, err := app.readRaw()
			if err != nil {
				return err
			}

			summary := report.Summarize(report.FromDataset(*ds), app.cfg)
			out := cmd.OutOrStdout()
			if err := summary.Write(out); err != nil {
				return err
			}
			if metrics {
				if err := app.writeMetrics(summary, 0); err != nil {
					return err
				}
			}
			if !retention {
				return nil
			}

			w, err := app.openWarehouse(ctx)
			if err != nil {
				return err
			}
			defer w.Close()

			matrix, err := w.Retention(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintln(out)
			return matrix.Write(out, periods)
		},
	}

	cmd.Flags().BoolVar(&retention, "retention", false, "Print the cohort retention matrix")
	cmd.Flags().IntVar(&periods, "periods", 12, "Weeks shown in the retention matrix (0 for all)")
	cmd.Flags().BoolVar(&metrics, "metrics", false, "Rewrite the metrics textfile from the raw files")
	return cmd
}
