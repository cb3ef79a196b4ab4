package main

import (
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/giftlens/giftlens/internal/catalog"
	"github.com/giftlens/giftlens/internal/filter"
)

// CatalogStats summarises a catalog for `catalog stats`.
type CatalogStats struct {
	Path       string            `json:"path"`
	Load       catalog.LoadStats `json:"load"`
	Columns    []string          `json:"columns"`
	Categories []CategoryCount   `json:"categories"`
	Priced     int               `json:"priced"`
	Rated      int               `json:"rated"`
}

// CategoryCount is the number of products in a main category.
type CategoryCount struct {
	Category string `json:"category"`
	Products int    `json:"products"`
}

func newCatalogCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect the product catalog",
	}
	cmd.AddCommand(newCatalogStatsCmd(c))
	return cmd
}

func newCatalogStatsCmd(c *cli) *cobra.Command {
	var top int

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Load the catalog and report what was kept",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			cat, loadStats, err := catalog.Load(ctx, c.cfg.Catalog.Path, catalog.LoadOptions{
				SkipRows: c.cfg.Catalog.SkipRows,
				Logger:   c.logger,
			})
			if err != nil {
				return err
			}

			stats := summarizeCatalog(cat, top)
			stats.Path = c.cfg.Catalog.Path
			stats.Load = loadStats

			if c.outputJSON {
				return printJSON(cmd, stats)
			}

			c.ui.Section("Catalog")
			c.ui.KeyValue("Path", stats.Path)
			c.ui.KeyValue("Rows read", loadStats.Rows)
			c.ui.KeyValue("Products kept", loadStats.Kept)
			c.ui.KeyValue("Malformed rows skipped", loadStats.Skipped)
			c.ui.KeyValue("Rows without a name", loadStats.DroppedNoName)
			c.ui.KeyValue("Products with a price", stats.Priced)
			c.ui.KeyValue("Products with a rating", stats.Rated)
			if loadStats.NameColumnMissing {
				c.ui.Warning("'name' column not found, all rows were kept")
			}

			if len(stats.Categories) > 0 {
				c.ui.Section("Top categories")
				rows := make([][]string, 0, len(stats.Categories))
				for _, cc := range stats.Categories {
					rows = append(rows, []string{cc.Category, strconv.Itoa(cc.Products)})
				}
				c.ui.Table([]string{"Category", "Products"}, rows)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&top, "top", 10, "number of categories to list")
	return cmd
}

func summarizeCatalog(cat *catalog.Catalog, top int) CatalogStats {
	stats := CatalogStats{Columns: cat.Columns()}

	counts := make(map[string]int)
	for _, id := range cat.IDs() {
		p, _ := cat.At(id)
		if p.MainCategory != "" {
			counts[p.MainCategory]++
		}
		if _, ok := filter.ParsePrice(p.ActualPrice); ok {
			stats.Priced++
		}
		if _, ok := filter.ParseRating(p.Ratings); ok {
			stats.Rated++
		}
	}

	for category, n := range counts {
		stats.Categories = append(stats.Categories, CategoryCount{Category: category, Products: n})
	}
	sort.Slice(stats.Categories, func(i, j int) bool {
		a, b := stats.Categories[i], stats.Categories[j]
		if a.Products != b.Products {
			return a.Products > b.Products
		}
		return a.Category < b.Category
	})
	if top > 0 && len(stats.Categories) > top {
		stats.Categories = stats.Categories[:top]
	}
	return stats
}
