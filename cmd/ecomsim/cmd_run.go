package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Sumit-SC/E-commerce-Product-Analytics/internal/logging"
)

func newRunCmd(app *cli) *cobra.Command {
	var (
		publish     bool
		concurrency int
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Generate, load, materialize and export in one pass",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			start := time.Now()

			res, summary, err := app.generate(ctx)
			if err != nil {
				return err
			}

			w, err := app.openWarehouse(ctx)
			if err != nil {
				return err
			}
			if err := app.load(ctx, w, &res.Dataset); err != nil {
				w.Close()
				return err
			}
			if err := app.materialize(ctx, w); err != nil {
				w.Close()
				return err
			}
			exported, err := app.export(ctx, w)
			if err != nil {
				w.Close()
				return err
			}
			// The database file must be checkpointed before it is published.
			if err := w.Close(); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if err := summary.Write(out); err != nil {
				return err
			}
			for _, e := range exported {
				fmt.Fprintf(out, "%s -> %s (%d rows)\n", e.View, e.Path, e.Rows)
			}

			if publish {
				pub, err := app.publish(ctx, concurrency)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "published %d objects (%d bytes)\n", len(pub.Objects), pub.Bytes)
			}

			logging.Timed(app.logger, "run complete", start, "data_dir", app.cfg.DataDir)
			return nil
		},
	}

	cmd.Flags().BoolVar(&publish, "publish", false, "Publish artifacts after export")
	cmd.Flags().IntVar(&concurrency, "concurrency", 4, "Parallel uploads when publishing")
	return cmd
}
