package usecase

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"advisor/internal/adapter/fs"
	"advisor/internal/adapter/memstore"
	"advisor/internal/adapter/seed"
	"advisor/internal/domain"
)

func TestImport(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "catalog")
	require.NoError(t, os.MkdirAll(dir, 0755))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "users.yaml"), []byte(`
users:
  - id: u1
    name: Ada
    title: Engineer
    department: Engineering
`), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "catalog.yaml"), []byte(`
trainings:
  - title: Docker Basics
    description: Containers
projects:
  - title: Apollo
    technologies: [Go]
`), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.yaml"), []byte("trainings: [unclosed"), 0644))

	ctx := context.Background()
	st := memstore.NewMemoryStore()
	inv := &countingInvalidator{}
	walker := fs.NewWalker([]string{"catalog/**/*.yaml"}, nil)
	uc := NewImportUseCase(st, walker, inv, nil)

	result, err := uc.Import(ctx, root)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Files)
	assert.Equal(t, 1, result.Users)
	assert.Equal(t, 1, result.Trainings)
	assert.Equal(t, 1, result.Projects)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "broken.yaml")
	assert.Equal(t, 1, inv.n)

	user, err := st.GetUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Ada", user.Name)

	training, err := st.GetItem(ctx, domain.KindTraining, seed.ItemID(domain.KindTraining, "Docker Basics"))
	require.NoError(t, err)
	assert.Equal(t, "Containers", training.Description)

	// a second import updates in place
	_, err = uc.Import(ctx, root)
	require.NoError(t, err)
	items, err := st.ListItems(ctx, domain.KindTraining)
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestImport_EditedItemLosesEmbedding(t *testing.T) {
	root := t.TempDir()
	file := filepath.Join(root, "catalog.yaml")
	write := func(description string) {
		require.NoError(t, os.WriteFile(file, []byte("trainings:\n  - title: Docker Basics\n    description: "+description+"\n  - title: Go Basics\n    description: Syntax\n"), 0644))
	}

	ctx := context.Background()
	st := memstore.NewMemoryStore()
	uc := NewImportUseCase(st, fs.NewWalker(nil, nil), nil, nil)

	write("Containers")
	_, err := uc.Import(ctx, root)
	require.NoError(t, err)

	dockerID := seed.ItemID(domain.KindTraining, "Docker Basics")
	goID := seed.ItemID(domain.KindTraining, "Go Basics")
	require.NoError(t, st.SaveEmbedding(ctx, domain.KindTraining, dockerID, []float32{1, 0}))
	require.NoError(t, st.SaveEmbedding(ctx, domain.KindTraining, goID, []float32{0, 1}))

	write("Containers and images")
	result, err := uc.Import(ctx, root)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Changed)

	docker, err := st.GetItem(ctx, domain.KindTraining, dockerID)
	require.NoError(t, err)
	assert.False(t, docker.Indexed())

	unchanged, err := st.GetItem(ctx, domain.KindTraining, goID)
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 1}, unchanged.Embedding)
}
