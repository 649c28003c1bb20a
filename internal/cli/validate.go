package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/spf13/cobra"

	"github.com/leslieo2/go-asset-reload/internal/asset"
)

// ErrMissingSources is returned by validate when any source file is gone
var ErrMissingSources = errors.New("asset source files missing")

func newValidateCommand(load configLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check that every known asset source file exists",
		Long: `validate checks discovered assets, manifest entries and catalog entries
against the filesystem without decoding anything.`,
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

			missing, err := a.missingSources(cmd.Context())
			if err != nil {
				return err
			}
			if len(missing) == 0 {
				fprintf(cmd, "all assets present\n")
				return nil
			}
			for _, id := range missing {
				fprintf(cmd, "missing: %s\n", id)
			}
			return fmt.Errorf("%w: %d", ErrMissingSources, len(missing))
		},
	}
}

// missingSources returns the sorted ids, without duplicates, whose source file does not exist
func (a *app) missingSources(ctx context.Context) ([]string, error) {
	missing := a.registry.MissingAssets()

	if path := a.cfg.Assets.Manifest; path != "" {
		m, err := asset.ReadManifest(path)
		if err != nil {
			return nil, err
		}
		base := filepath.Dir(path)
		for _, e := range m.Assets {
			src := e.Path
			if !filepath.IsAbs(src) {
				src = filepath.Join(base, src)
			}
			if _, err := os.Stat(src); err != nil {
				id := e.ID
				if id == "" {
					id = asset.StemID(src)
				}
				missing = append(missing, id)
			}
		}
	}

	if a.catalog != nil {
		entries, err := a.catalog.List(ctx)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			if _, err := os.Stat(e.SourcePath); err != nil {
				missing = append(missing, e.ID)
			}
		}
	}

	slices.Sort(missing)
	return slices.Compact(missing), nil
}
