package cli

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"advisor/internal/domain"
)

var indexRebuild bool

var indexCmd = &cobra.Command{
	Use:   "index [trainings|projects|all]",
	Short: "Embed catalog items for retrieval",
	Long: `Compute and store the embedding of every training and/or project.
Items that fail are reported and skipped; the rest stay searchable.

The embedding model is recorded in the store. Switching models requires
--rebuild, which drops every stored embedding and re-indexes both collections.

Examples:
  advisor index                  # Index trainings and projects
  advisor index trainings        # Index one collection
  advisor index --rebuild        # Re-embed everything after a model change`,
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: []string{"trainings", "projects", "all"},
	RunE:      runIndex,
}

func init() {
	rootCmd.AddCommand(indexCmd)
	indexCmd.Flags().BoolVar(&indexRebuild, "rebuild", false, "drop stored embeddings and re-index every collection")
}

func parseKinds(args []string) ([]domain.Kind, error) {
	if len(args) == 0 || args[0] == "all" {
		return domain.Kinds, nil
	}
	kind, err := domain.ParseKind(args[0])
	if err != nil {
		return nil, err
	}
	return []domain.Kind{kind}, nil
}

func runIndex(cmd *cobra.Command, args []string) error {
	kinds, err := parseKinds(args)
	if err != nil {
		return err
	}

	svc, err := buildServices(GetConfig(), GetRootDir(), getLogger())
	if err != nil {
		return err
	}
	defer svc.Close()

	if err := indexKinds(cmd.Context(), svc, kinds, indexRebuild); err != nil {
		return err
	}
	fmt.Printf("\nIndex stored at: %s\n", GetConfig().DBPath(GetRootDir()))
	return nil
}

// indexKinds embeds the given collections. The index use case refuses to
// mix embedding models; rebuild clears every collection first and re-indexes
// all of them.
func indexKinds(ctx context.Context, svc *services, kinds []domain.Kind, rebuild bool) error {
	if rebuild {
		fmt.Println("Clearing stored embeddings...")
		if err := svc.store.ClearEmbeddings(); err != nil {
			return fmt.Errorf("failed to clear embeddings: %w", err)
		}
		svc.search.Invalidate()
		kinds = domain.Kinds
	}

	failed := 0
	for _, kind := range kinds {
		fmt.Printf("Indexing %s with %s...\n", kind.Plural(), svc.embedder.ModelName())

		report, err := svc.index.IndexAll(ctx, kind, newIndexProgress(kind))
		if report != nil {
			printReport(report)
			failed += len(report.Failed)
		}
		switch {
		case errors.Is(err, domain.ErrModelChanged):
			return fmt.Errorf("%w; run 'advisor index --rebuild' to re-embed the catalog", err)
		case err != nil:
			if ctx.Err() != nil {
				fmt.Println("Indexing interrupted.")
			}
			return fmt.Errorf("indexing %s failed: %w", kind.Plural(), err)
		}
	}

	if failed > 0 {
		fmt.Printf("\n%d item(s) could not be indexed; they are excluded from search until re-indexed.\n", failed)
	}
	return nil
}

// newIndexProgress returns a progress callback that draws a bar with an ETA.
// The bar is created on the first call, once the total is known.
func newIndexProgress(kind domain.Kind) func(done, total int, item domain.CatalogItem) {
	var (
		bar       *progressbar.ProgressBar
		barMu     sync.Mutex
		startTime time.Time
	)
	description := fmt.Sprintf("[cyan]%s[reset]", kind.Plural())

	return func(done, total int, _ domain.CatalogItem) {
		barMu.Lock()
		defer barMu.Unlock()

		if bar == nil {
			startTime = time.Now()
			bar = progressbar.NewOptions(total,
				progressbar.OptionEnableColorCodes(true),
				progressbar.OptionShowBytes(false),
				progressbar.OptionSetWidth(40),
				progressbar.OptionShowCount(),
				progressbar.OptionSetDescription(description),
				progressbar.OptionSetTheme(progressbar.Theme{
					Saucer:        "[green]=[reset]",
					SaucerHead:    "[green]>[reset]",
					SaucerPadding: " ",
					BarStart:      "[",
					BarEnd:        "]",
				}),
				progressbar.OptionOnCompletion(func() {
					fmt.Println()
				}),
			)
		}

		_ = bar.Set(done)

		if done > 0 {
			elapsed := time.Since(startTime)
			rate := float64(done) / elapsed.Seconds()
			remaining := total - done
			if rate > 0 {
				eta := time.Duration(float64(remaining)/rate) * time.Second
				bar.Describe(fmt.Sprintf("%s ETA: %s", description, formatDuration(eta)))
			}
		}
	}
}

func printReport(report *domain.IndexReport) {
	fmt.Printf("  %s: %d indexed, %d failed", report.Kind.Plural(), len(report.Succeeded), len(report.Failed))
	if report.Dimension > 0 {
		fmt.Printf(" (dimension %d)", report.Dimension)
	}
	fmt.Println()
	for _, f := range report.Failed {
		fmt.Printf("    - %s (%s): %v\n", f.Title, f.ItemID, f.Err)
	}
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return "<1s"
	}
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		m := int(d.Minutes())
		s := int(d.Seconds()) % 60
		return fmt.Sprintf("%dm%ds", m, s)
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	return fmt.Sprintf("%dh%dm", h, m)
}
