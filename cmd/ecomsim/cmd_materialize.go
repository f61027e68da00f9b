package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newMaterializeCmd(app *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "materialize",
		Short: "Build the sessionization, funnel and cohort tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			w, err := app.openWarehouse(ctx)
			if err != nil {
				return err
			}
			defer w.Close()

			built, err := w.Materialize(ctx)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, m := range built {
				fmt.Fprintf(out, "%-24s %d rows\n", m.Table, m.Rows)
			}
			return nil
		},
	}
}
