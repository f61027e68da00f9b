package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newPublishCmd(app *cli) *cobra.Command {
	var concurrency int

	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Upload run artifacts to the configured object storage",
		Long: `Upload the raw files, BI exports, warehouse database, its sidecar and the
metrics textfile under <storage.prefix>. Storage is a local directory or an
S3 bucket (storage.type).`,
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := app.publish(cmd.Context(), concurrency)
			if res != nil {
				out := cmd.OutOrStdout()
				for _, o := range res.Objects {
					fmt.Fprintf(out, "%s  %s  %d\n", o.MD5, o.ObjectPath, o.Size)
				}
				fmt.Fprintf(out, "published %d objects (%d bytes)\n", len(res.Objects), res.Bytes)
			}
			return err
		},
	}

	cmd.Flags().IntVar(&concurrency, "concurrency", 4, "Parallel uploads")
	return cmd
}
