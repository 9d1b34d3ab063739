package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "Check the language model provider and list its models",
	RunE:  runModels,
}

func init() {
	rootCmd.AddCommand(modelsCmd)
}

func runModels(cmd *cobra.Command, args []string) error {
	svc, err := buildServices(GetConfig(), GetRootDir(), getLogger())
	if err != nil {
		return err
	}
	defer svc.Close()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "LLM:        %s (%s)\n", GetConfig().LLM.Provider, svc.llm.ModelName())
	fmt.Fprintf(out, "Embeddings: %s (%s)\n", GetConfig().Embedding.Provider, svc.embedder.ModelName())

	lister := svc.models()
	if lister == nil {
		fmt.Fprintln(out, "\nThe provider does not report models.")
		return nil
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
	defer cancel()

	if err := lister.HealthCheck(ctx); err != nil {
		return fmt.Errorf("provider unreachable: %w", err)
	}
	models, err := lister.ListModels(ctx)
	if err != nil {
		return fmt.Errorf("failed to list models: %w", err)
	}

	fmt.Fprintf(out, "\nAvailable models (%d):\n", len(models))
	for _, m := range models {
		fmt.Fprintf(out, "  - %s\n", m)
	}
	return nil
}
