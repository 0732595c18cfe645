package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/kirillkom/textbook-tutor/internal/core/domain"
)

func newSearchCommand(opts Options) *cobra.Command {
	var (
		topK      int
		threshold float64
		mode      string
	)

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Retrieve textbook passages for a query",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var searchMode domain.SearchMode
			if mode != "" {
				parsed, err := domain.ParseSearchMode(mode)
				if err != nil {
					return err
				}
				searchMode = parsed
			}

			services, err := opts.LoadServices(cmd.Context(), opts.LoadConfig())
			if err != nil {
				return err
			}
			req := domain.SearchRequest{
				Query: strings.Join(args, " "),
				TopK:  topK,
				Mode:  searchMode,
			}
			if cmd.Flags().Changed("threshold") {
				req.SimilarityThreshold = &threshold
			}
			hits, err := services.Retriever.Search(cmd.Context(), req)
			if err != nil {
				return err
			}
			if hits == nil {
				hits = []domain.SearchHit{}
			}
			return printJSON(cmd.OutOrStdout(), map[string]any{"hits": hits})
		},
	}
	cmd.Flags().IntVar(&topK, "top-k", 0, "nearest neighbours to consider (default from SEARCH_TOP_K)")
	cmd.Flags().Float64Var(&threshold, "threshold", 0, "near-duplicate similarity threshold, 0 included (default from SEARCH_SIMILARITY_THRESHOLD)")
	cmd.Flags().StringVar(&mode, "mode", "", "exact, semantic or hybrid")
	return cmd
}

func newLocateCommand(opts Options) *cobra.Command {
	return &cobra.Command{
		Use:   "locate <query>",
		Short: "Find the figure subchapter closest to a query",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			services, err := opts.LoadServices(cmd.Context(), opts.LoadConfig())
			if err != nil {
				return err
			}
			name, found, err := services.Locator.Locate(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]any{"found": found, "subchapter": name})
		},
	}
}

func newFiguresCommand(opts Options) *cobra.Command {
	return &cobra.Command{
		Use:   "figures <subchapter>",
		Short: "List figures of a subchapter whose image exists",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			services, err := opts.LoadServices(cmd.Context(), opts.LoadConfig())
			if err != nil {
				return err
			}
			figures, err := services.Figures.FiguresFor(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if figures == nil {
				figures = []domain.Figure{}
			}
			return printJSON(cmd.OutOrStdout(), map[string]any{"subchapter": args[0], "figures": figures})
		},
	}
}

func newMaterialCommand(opts Options) *cobra.Command {
	return &cobra.Command{
		Use:   "material <topic>",
		Short: "Assemble grounded lesson material for a topic",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			services, err := opts.LoadServices(cmd.Context(), opts.LoadConfig())
			if err != nil {
				return err
			}
			material, err := services.Lessons.Material(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), material)
		},
	}
}
