package cli

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newScanCommand(load configLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "scan",
		Short: "Discover assets under the resources root and list them",
		Long: `scan registers metadata for every recognised file under the resources root
without decoding it. When a catalog path is configured the records are
saved to it.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load(cmd)
			if err != nil {
				return err
			}
			a, err := newApp(cfg)
			if err != nil {
				return err
			}
			defer a.close(context.Background())

			_, discoverErr := a.registry.AutoDiscover()
			assets := a.registry.Snapshot()

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			_, _ = fmt.Fprintln(w, "ID\tCATEGORY\tBYTES\tPATH")
			for _, rec := range assets {
				_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", rec.ID, rec.Category, rec.ByteSize, rec.SourcePath)
			}
			if err := w.Flush(); err != nil {
				return err
			}

			if a.catalog != nil {
				if err := a.catalog.Save(cmd.Context(), assets); err != nil {
					return err
				}
				a.logger.Info("Saved scan to catalog", zap.String("path", cfg.Catalog.Path), zap.Int("assets", len(assets)))
			}
			return discoverErr
		},
	}
}
