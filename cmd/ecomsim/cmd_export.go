package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newExportCmd(app *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "export",
		Short: "Export the BI views as CSV",
		Long: `Create the reporting views over the materialized tables and write each
one as CSV to <data-dir>/powerbi. Run materialize first.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			w, err := app.openWarehouse(ctx)
			if err != nil {
				return err
			}
			defer w.Close()

			exported, err := app.export(ctx, w)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, e := range exported {
				fmt.Fprintf(out, "%s -> %s (%d rows)\n", e.View, e.Path, e.Rows)
			}
			return nil
		},
	}
}
