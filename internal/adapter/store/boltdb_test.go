package store

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"advisor/internal/domain"
)

func openTestStore(t *testing.T) *BoltStore {
	t.Helper()
	s, err := NewBoltStore(filepath.Join(t.TempDir(), "advisor.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestBoltStore_Items(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	stored, err := s.PutItem(ctx, domain.CatalogItem{
		Kind:        domain.KindTraining,
		Title:       "React for Beginners",
		Description: "Components and hooks",
		Audience:    []string{"Developers"},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, stored.ID)

	got, err := s.GetItem(ctx, domain.KindTraining, stored.ID)
	require.NoError(t, err)
	assert.Equal(t, "React for Beginners", got.Title)
	assert.Equal(t, domain.KindTraining, got.Kind)
	assert.False(t, got.Indexed())

	_, err = s.GetItem(ctx, domain.KindProject, stored.ID)
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	require.NoError(t, s.SaveEmbedding(ctx, domain.KindTraining, stored.ID, []float32{1, 0}))

	items, err := s.ListItems(ctx, domain.KindTraining)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, []float32{1, 0}, items[0].Embedding)

	// replacing the item without a vector keeps the stored one
	got.Description = "Updated"
	got.Embedding = nil
	_, err = s.PutItem(ctx, got)
	require.NoError(t, err)
	got, err = s.GetItem(ctx, domain.KindTraining, stored.ID)
	require.NoError(t, err)
	assert.Equal(t, "Updated", got.Description)
	assert.Equal(t, []float32{1, 0}, got.Embedding)
}

func TestBoltStore_SaveEmbeddingMissing(t *testing.T) {
	s := openTestStore(t)
	err := s.SaveEmbedding(context.Background(), domain.KindProject, "nope", []float32{1})
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestBoltStore_UnknownKind(t *testing.T) {
	s := openTestStore(t)
	_, err := s.ListItems(context.Background(), domain.Kind("course"))
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))
}

func TestBoltStore_Users(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	_, err := s.GetUser(ctx, "u1")
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	require.NoError(t, s.PutUser(ctx, domain.UserProfile{ID: "u1", Name: "Ada", Department: "Engineering"}))
	user, err := s.GetUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Ada", user.Name)

	assert.True(t, errors.Is(s.PutUser(ctx, domain.UserProfile{Name: "anon"}), domain.ErrInvalidInput))
}

func TestBoltStore_SessionLifecycle(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	_, err := s.LoadSession(ctx, "u1", "s1")
	require.True(t, errors.Is(err, domain.ErrNotFound))

	require.NoError(t, s.CreateSession(ctx, &domain.Session{
		UserID:    "u1",
		SessionID: "s1",
		Context:   domain.SessionContext{UserDepartment: "Engineering"},
	}))
	assert.Error(t, s.CreateSession(ctx, &domain.Session{UserID: "u1", SessionID: "s1"}))

	first, err := s.AppendTurn(ctx, "u1", "s1", domain.RoleUser, "hello")
	require.NoError(t, err)
	assert.NotEmpty(t, first.ID)
	_, err = s.AppendTurn(ctx, "u1", "s1", domain.RoleAssistant, "hi there")
	require.NoError(t, err)

	require.NoError(t, s.UpdateContext(ctx, "u1", "s1", domain.SessionContext{
		LastTrainingDiscussed: "Docker Basics",
		UserDepartment:        "Engineering",
	}))

	session, err := s.LoadSession(ctx, "u1", "s1")
	require.NoError(t, err)
	require.Len(t, session.Turns, 2)
	assert.Equal(t, "hello", session.Turns[0].Content)
	assert.Equal(t, domain.RoleAssistant, session.Turns[1].Role)
	assert.Equal(t, "Docker Basics", session.Context.LastTrainingDiscussed)

	// another user's session with the same id is a different record
	_, err = s.LoadSession(ctx, "u2", "s1")
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	require.NoError(t, s.DeleteSession(ctx, "u1", "s1"))
	require.NoError(t, s.DeleteSession(ctx, "u1", "s1"))
	_, err = s.LoadSession(ctx, "u1", "s1")
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	_, err = s.AppendTurn(ctx, "u1", "s1", domain.RoleUser, "lost")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestBoltStore_ConcurrentAppends(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	require.NoError(t, s.CreateSession(ctx, &domain.Session{UserID: "u1", SessionID: "s1"}))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.AppendTurn(ctx, "u1", "s1", domain.RoleUser, "msg")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	session, err := s.LoadSession(ctx, "u1", "s1")
	require.NoError(t, err)
	assert.Len(t, session.Turns, 20)
}

func TestMigrations(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	result, err := s.CheckMigration("nomic-embed-text")
	require.NoError(t, err)
	assert.True(t, result.NeedsMigration)
	assert.False(t, result.NeedsRebuild)

	require.NoError(t, s.Migrate())
	info, err := s.GetSchemaInfo()
	require.NoError(t, err)
	assert.Equal(t, CurrentSchemaVersion, info.Version)

	require.NoError(t, s.SetEmbeddingSpace(ctx, domain.EmbeddingSpace{Model: "nomic-embed-text", Dimension: 2}))
	space, err := s.EmbeddingSpace(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, space.Dimension)

	rebuild, _, err := s.NeedsRebuild("nomic-embed-text")
	require.NoError(t, err)
	assert.False(t, rebuild)

	rebuild, reason, err := s.NeedsRebuild("text-embedding-3-small")
	require.NoError(t, err)
	assert.True(t, rebuild)
	assert.Contains(t, reason, "nomic-embed-text")

	item, err := s.PutItem(ctx, domain.CatalogItem{Kind: domain.KindProject, Title: "Apollo"})
	require.NoError(t, err)
	require.NoError(t, s.SaveEmbedding(ctx, domain.KindProject, item.ID, []float32{0, 1}))

	require.NoError(t, s.ClearEmbeddings())

	item, err = s.GetItem(ctx, domain.KindProject, item.ID)
	require.NoError(t, err)
	assert.Equal(t, "Apollo", item.Title)
	assert.Nil(t, item.Embedding)

	rebuild, _, err = s.NeedsRebuild("text-embedding-3-small")
	require.NoError(t, err)
	assert.False(t, rebuild)

	space, err = s.EmbeddingSpace(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.EmbeddingSpace{}, space)
}
