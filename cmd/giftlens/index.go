package main

import (
	"errors"
	"fmt"
	"sync"

	"github.com/spf13/cobra"

	"github.com/giftlens/giftlens/internal/app"
)

// IndexReport describes a finished index build.
type IndexReport struct {
	Products       int     `json:"products"`
	Vectors        int     `json:"vectors"`
	Model          string  `json:"model"`
	Dimension      int     `json:"dimension"`
	StoredVectors  int     `json:"stored_vectors"`
	Persisted      bool    `json:"persisted"`
	BuildSeconds   float64 `json:"build_seconds"`
	DatabaseDriver string  `json:"database_driver"`
}

func newIndexCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Manage the product embedding index",
	}
	cmd.AddCommand(newIndexBuildCmd(c))
	return cmd
}

func newIndexBuildCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "build",
		Short: "Embed every catalog product and persist the vectors",
		Long: `Build loads the catalog, embeds every product that has no stored vector
for the configured model, and writes the new vectors to the embedding store
so that later server starts only embed what changed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			progress, finish := c.progress("Embedding products")
			a, err := app.New(ctx, c.cfg, c.logger, app.Options{Progress: progress})
			if err != nil {
				return err
			}
			defer a.Close()

			if a.Store == nil {
				c.ui.Warning("Embedding store disabled or unavailable (driver %q), vectors will not be persisted", c.cfg.Database.Driver)
			}

			c.ui.Step("Loading catalog from %s", c.cfg.Catalog.Path)
			err = a.State.Run(ctx)
			finish()
			if err != nil {
				return err
			}

			snap := a.State.Snapshot()
			if snap.Index == nil {
				return errors.New("embedding index was not built: embedding model unavailable")
			}

			report := IndexReport{
				Products:       snap.Catalog.Len(),
				Vectors:        snap.Index.Len(),
				Model:          snap.Index.Model(),
				Dimension:      snap.Index.Dimension(),
				BuildSeconds:   snap.BuiltIn.Seconds(),
				DatabaseDriver: c.cfg.Database.Driver,
			}
			if a.Store != nil {
				n, err := a.Store.Count(ctx, report.Model)
				if err != nil {
					return fmt.Errorf("count stored vectors: %w", err)
				}
				report.StoredVectors = n
				report.Persisted = true
			}

			if c.outputJSON {
				return printJSON(cmd, report)
			}

			c.ui.Success("Indexed %d products in %s", report.Vectors, FormatDuration(snap.BuiltIn))
			c.ui.KeyValue("Model", report.Model)
			c.ui.KeyValue("Dimension", report.Dimension)
			if report.Persisted {
				c.ui.KeyValue("Stored vectors", report.StoredVectors)
			}
			return nil
		},
	}
}

// progress returns an index build callback that drives a progress bar, and a
// function that completes the bar.
func (c *cli) progress(description string) (func(done, total int), func()) {
	var (
		once sync.Once
		bar  *ProgressBar
	)
	update := func(done, total int) {
		once.Do(func() { bar = c.ui.ProgressBar(int64(total), description) })
		bar.Set(int64(done), int64(total))
	}
	return update, func() { bar.Finish() }
}

