package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"advisor/internal/domain"
	"advisor/internal/usecase"
)

var (
	searchText  string
	searchKind  string
	searchLimit int
	searchJSON  bool
)

var searchCmd = &cobra.Command{
	Use:     "search",
	Aliases: []string{"query"},
	Short:   "Rank catalog items against a query",
	Long: `Embed a query and rank the indexed trainings or projects by cosine
similarity. Items scoring at or below retrieve.min_score are dropped.

Examples:
  advisor search -q "react for beginners"
  advisor search -q "kubernetes" --kind project --limit 10 --json`,
	RunE: runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)
	searchCmd.Flags().StringVarP(&searchText, "query", "q", "", "search query (required)")
	searchCmd.Flags().StringVarP(&searchKind, "kind", "k", "training", "collection to search (training or project)")
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 0, "maximum results (default from config, 0 in config means unlimited)")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output as JSON")
	searchCmd.MarkFlagRequired("query")
}

func runSearch(cmd *cobra.Command, args []string) error {
	kind, err := domain.ParseKind(searchKind)
	if err != nil {
		return err
	}

	cfg := GetConfig()
	limit := searchLimit
	if !cmd.Flags().Changed("limit") {
		limit = cfg.Retrieve.TrainingLimit
		if kind == domain.KindProject {
			limit = cfg.Retrieve.ProjectLimit
		}
	}

	svc, err := buildServices(cfg, GetRootDir(), getLogger())
	if err != nil {
		return err
	}
	defer svc.Close()
	svc.warnIfStale()

	scored, err := svc.search.Search(cmd.Context(), kind, searchText, limit)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}
	results := usecase.ToSearchResults(scored)

	if searchJSON {
		output, _ := json.MarshalIndent(results, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	if len(results) == 0 {
		fmt.Println("No results found.")
		return nil
	}
	fmt.Printf("Found %d %s for: %s\n\n", len(results), kind.Plural(), searchText)
	for i, r := range results {
		fmt.Printf("--- [%d] %s (score: %.2f) ---\n", i+1, r.Title, r.Score)
		// Truncate long text for display
		text := []rune(r.Description)
		if len(text) > 300 {
			text = append(text[:300], []rune("...")...)
		}
		fmt.Println(string(text))
		fmt.Println()
	}

	return nil
}
