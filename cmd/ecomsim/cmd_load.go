package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newLoadCmd(app *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "load",
		Short: "Load the raw files into the SQLite warehouse",
		Long: `Read the raw CSV files, plain or Snappy-compressed, and replace the
*_raw tables in the warehouse. Orders are enriched with the product category
observed in the events. A <db>.meta.json sidecar is written with table stats
and a bloom filter over event user ids.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			ds, err := app.readRaw()
			if err != nil {
				return err
			}

			w, err := app.openWarehouse(ctx)
			if err != nil {
				return err
			}
			defer w.Close()

			if err := app.load(ctx, w, ds); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "loaded %d users, %d sessions, %d events, %d orders into %s\n",
				len(ds.Users), len(ds.Sessions), len(ds.Events), len(ds.Orders), w.Path())
			return nil
		},
	}
}
