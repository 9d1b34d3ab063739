package fs

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, root, rel string) {
	t.Helper()
	path := filepath.Join(root, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("x: 1\n"), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestWalker_IncludesAndExcludes(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "catalog/trainings.yaml")
	writeFile(t, root, "catalog/extra/projects.yml")
	writeFile(t, root, "catalog/README.md")
	writeFile(t, root, "catalog/.git/config.yaml")
	writeFile(t, root, "other/users.yaml")

	w := NewWalker([]string{"catalog/**/*.yaml", "catalog/**/*.yml"}, []string{"**/.git/**"})
	files, err := w.Walk(root)
	if err != nil {
		t.Fatal(err)
	}

	if len(files) != 2 {
		t.Fatalf("expected 2 files, got %d: %+v", len(files), files)
	}
	if files[0].RelPath != "catalog/extra/projects.yml" {
		t.Errorf("expected sorted order, got %s first", files[0].RelPath)
	}
	if files[1].RelPath != "catalog/trainings.yaml" {
		t.Errorf("unexpected second file %s", files[1].RelPath)
	}
}

func TestWalker_DefaultIncludes(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "seed.yaml")
	writeFile(t, root, "notes.txt")

	files, err := NewWalker(nil, nil).Walk(root)
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 1 || files[0].RelPath != "seed.yaml" {
		t.Errorf("expected only seed.yaml, got %+v", files)
	}
}
