package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"advisor/internal/domain"
)

var importIndex bool

var importCmd = &cobra.Command{
	Use:   "import [path]",
	Short: "Load users, trainings and projects from YAML seed files",
	Long: `Walk a directory for seed files matching catalog.includes and upsert
their users, trainings and projects. Items keep their stored embedding
unless their text changed; pass --index to embed afterwards.

Examples:
  advisor import                 # Import from the root directory
  advisor import ./seed --index  # Import then index everything`,
	Args: cobra.MaximumNArgs(1),
	RunE: runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)
	importCmd.Flags().BoolVar(&importIndex, "index", false, "index both collections after importing")
}

func runImport(cmd *cobra.Command, args []string) error {
	path := GetRootDir()
	if len(args) > 0 {
		var err error
		path, err = filepath.Abs(args[0])
		if err != nil {
			return fmt.Errorf("invalid path: %w", err)
		}
	}

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("path does not exist: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("path is not a directory: %s", path)
	}

	svc, err := buildServices(GetConfig(), GetRootDir(), getLogger())
	if err != nil {
		return err
	}
	defer svc.Close()

	fmt.Printf("Scanning %s...\n", path)
	result, err := svc.importer.Import(cmd.Context(), path)
	if err != nil {
		return fmt.Errorf("import failed: %w", err)
	}

	fmt.Printf("\nImport complete:\n")
	fmt.Printf("  Files read:  %d\n", result.Files)
	fmt.Printf("  Users:       %d\n", result.Users)
	fmt.Printf("  Trainings:   %d\n", result.Trainings)
	fmt.Printf("  Projects:    %d\n", result.Projects)
	if result.Changed > 0 {
		fmt.Printf("  Changed:     %d (re-index to search them again)\n", result.Changed)
	}

	if len(result.Errors) > 0 {
		fmt.Printf("\nWarnings:\n")
		for _, e := range result.Errors {
			fmt.Printf("  - %s\n", e)
		}
	}

	if !importIndex {
		return nil
	}

	fmt.Println()
	return indexKinds(cmd.Context(), svc, domain.Kinds, false)
}
