package main

import (
	"github.com/spf13/cobra"
)

func newGenerateCmd(app *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "generate",
		Short: "Generate the raw dataset files",
		Long: `Generate users, sessions, events and orders for the configured window
and write them as CSV to <data-dir>/raw. A Prometheus textfile with the
generation summary is written alongside.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, summary, err := app.generate(cmd.Context())
			if err != nil {
				return err
			}
			return summary.Write(cmd.OutOrStdout())
		},
	}
}
