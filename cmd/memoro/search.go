package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/hyperjump/memoro/internal/cli"
	"github.com/hyperjump/memoro/internal/keyword"
	"github.com/hyperjump/memoro/internal/models"
)

func newSearchCmd(opts *rootOptions) *cobra.Command {
	var (
		topK    int
		filter  string
		useKW   bool
		fuzzy   bool
		kwLimit int
	)
	cmd := &cobra.Command{
		Use:   "search <query...>",
		Short: "Find notes by meaning (or by keywords with --keyword)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd.Context(), opts, false)
			if err != nil {
				return err
			}
			defer s.Close()
			text := strings.Join(args, " ")

			var resp *models.SearchResponse
			if useKW || fuzzy {
				var kwOpts *keyword.SearchOptions
				if fuzzy {
					kwOpts = &keyword.SearchOptions{Fuzzy: true}
				}
				if kwLimit == 0 {
					kwLimit = s.cfg.Search.DefaultKeywordK
				}
				q := &models.KeywordQuery{Query: text, Limit: kwLimit}
				resp, err = s.comp.Engine.QueryKeyword(cmd.Context(), q, kwOpts, s.comp.Store)
			} else {
				q := &models.SearchQuery{Query: text, TopK: topK, Filter: filter}
				resp, err = s.comp.Engine.Query(cmd.Context(), q, s.comp.Store)
			}
			if err != nil {
				return err
			}
			return cli.WriteSearchResults(cmd.OutOrStdout(), resp, s.format)
		},
	}
	cmd.Flags().IntVarP(&topK, "top-k", "k", 0, "number of nearest notes (0 = configured default)")
	cmd.Flags().StringVar(&filter, "filter", "", "keep only hits whose summary or tags contain this term")
	cmd.Flags().BoolVar(&useKW, "keyword", false, "full-text search instead of semantic search")
	cmd.Flags().BoolVar(&fuzzy, "fuzzy", false, "typo-tolerant keyword search (implies --keyword)")
	cmd.Flags().IntVar(&kwLimit, "limit", 0, "maximum keyword hits")
	return cmd
}
