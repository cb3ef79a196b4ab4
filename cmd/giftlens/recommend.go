package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/giftlens/giftlens/internal/app"
	"github.com/giftlens/giftlens/internal/catalog"
	"github.com/giftlens/giftlens/internal/filter"
	"github.com/giftlens/giftlens/internal/recommend"
	"github.com/giftlens/giftlens/internal/retrieval"
)

type recommendFlags struct {
	prompt         string
	category       string
	priceMin       float64
	priceMax       float64
	ratingMin      float64
	sortBy         string
	top            int
	candidatesOnly bool
}

// filterOptions converts the flags the user set into filter options.
func (f recommendFlags) filterOptions(cmd *cobra.Command) filter.Options {
	var opts filter.Options
	if f.category != "" {
		opts.Category = &f.category
	}
	if cmd.Flags().Changed("price-min") {
		opts.PriceMin = &f.priceMin
	}
	if cmd.Flags().Changed("price-max") {
		opts.PriceMax = &f.priceMax
	}
	if cmd.Flags().Changed("rating-min") {
		opts.RatingMin = &f.ratingMin
	}
	if f.sortBy != "" {
		opts.SortBy = &f.sortBy
	}
	return opts
}

func newRecommendCmd(c *cli) *cobra.Command {
	var f recommendFlags

	cmd := &cobra.Command{
		Use:   "recommend",
		Short: "Recommend gifts for a prompt",
		Example: `  giftlens recommend --prompt "birthday gift for my sister who loves yoga"
  giftlens recommend --prompt "desk gadgets" --category Electronics --price-max 2000 --top 10`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			if f.top > 0 {
				c.cfg.Retrieval.RecommendationCount = f.top
				if f.candidatesOnly {
					c.cfg.Retrieval.CandidatePool = f.top
				}
			}

			progress, finish := c.progress("Embedding products")
			a, err := app.New(ctx, c.cfg, c.logger, app.Options{Progress: progress})
			if err != nil {
				return err
			}
			defer a.Close()

			err = a.State.Run(ctx)
			finish()
			if err != nil {
				return err
			}

			snap := a.State.Snapshot()
			c.ui.Info("Loaded %d products.", snap.Catalog.Len())

			opts := f.filterOptions(cmd)
			if f.candidatesOnly {
				res, err := snap.Retriever.Retrieve(ctx, retrieval.Request{
					Prompt:  f.prompt,
					Filters: opts,
					TopN:    c.cfg.Retrieval.CandidatePool,
				})
				if err != nil {
					return err
				}
				if c.outputJSON {
					return printJSON(cmd, candidateRows(snap.Catalog, res))
				}
				c.ui.Section(fmt.Sprintf("Candidates (%s)", res.Tier))
				c.ui.Table([]string{"#", "Name", "Category", "Price", "Rating", "Score"}, candidateTable(snap.Catalog, res))
				return nil
			}

			req := recommend.Request{Prompt: f.prompt}
			if !opts.IsZero() {
				req.FilterOptions = &opts
			}

			spin := c.ui.Spinner("Asking for recommendations")
			resp, err := a.Recommend(ctx, req)
			spin.Stop()
			if err != nil {
				return err
			}

			if c.outputJSON {
				return printJSON(cmd, resp)
			}
			c.ui.Section("Recommendations")
			c.ui.Text(resp.Recommendations)
			c.ui.Newline()
			c.ui.KeyValue("Retrieval", fmt.Sprintf("%s, %d candidates", resp.Retrieval.Tier, resp.Retrieval.Candidates))
			return nil
		},
	}

	cmd.Flags().StringVarP(&f.prompt, "prompt", "p", "", "what the gift is for (required)")
	cmd.Flags().StringVar(&f.category, "category", "", "only consider this main category")
	cmd.Flags().Float64Var(&f.priceMin, "price-min", 0, "minimum price")
	cmd.Flags().Float64Var(&f.priceMax, "price-max", 0, "maximum price")
	cmd.Flags().Float64Var(&f.ratingMin, "rating-min", 0, "minimum rating")
	cmd.Flags().StringVar(&f.sortBy, "sort", "", "order candidates: price_asc, price_desc, rating_desc or popularity")
	cmd.Flags().IntVar(&f.top, "top", 0, "number of recommendations (default from config)")
	cmd.Flags().BoolVar(&f.candidatesOnly, "candidates-only", false, "list retrieved candidates without calling the text generator")
	_ = cmd.MarkFlagRequired("prompt")

	return cmd
}

// Candidate is one retrieved product in --candidates-only output.
type Candidate struct {
	Rank     int     `json:"rank"`
	Name     string  `json:"name"`
	Category string  `json:"category,omitempty"`
	Price    string  `json:"price,omitempty"`
	Rating   string  `json:"rating,omitempty"`
	Score    float32 `json:"score,omitempty"`
}

// CandidateList is the --candidates-only JSON output.
type CandidateList struct {
	Tier       retrieval.Tier `json:"tier"`
	Query      string         `json:"query"`
	Candidates []Candidate    `json:"candidates"`
}

func candidateRows(cat *catalog.Catalog, res retrieval.Result) CandidateList {
	out := CandidateList{Tier: res.Tier, Query: res.Query, Candidates: make([]Candidate, 0, len(res.Rows))}
	for i, id := range res.Rows {
		p, _ := cat.At(id)
		out.Candidates = append(out.Candidates, Candidate{
			Rank:     i + 1,
			Name:     p.Name,
			Category: p.MainCategory,
			Price:    p.ActualPrice,
			Rating:   p.Ratings,
			Score:    res.Scores[id],
		})
	}
	return out
}

func candidateTable(cat *catalog.Catalog, res retrieval.Result) [][]string {
	list := candidateRows(cat, res)
	rows := make([][]string, 0, len(list.Candidates))
	for _, cand := range list.Candidates {
		score := ""
		if res.Tier == retrieval.TierSemantic {
			score = strconv.FormatFloat(float64(cand.Score), 'f', 3, 32)
		}
		rows = append(rows, []string{strconv.Itoa(cand.Rank), cand.Name, cand.Category, cand.Price, cand.Rating, score})
	}
	return rows
}
