package retriever

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"advisor/internal/domain"
)

func item(id string, vec ...float32) domain.CatalogItem {
	return domain.CatalogItem{Kind: domain.KindTraining, ID: id, Title: id, Embedding: vec}
}

func TestCosineSimilarity_Symmetric(t *testing.T) {
	pairs := [][2][]float32{
		{{1, 2, 3}, {4, 5, 6}},
		{{1, 0}, {0, 1}},
		{{-1, 0.5}, {0.25, 3}},
		{{0, 0}, {1, 1}},
	}
	for _, p := range pairs {
		assert.Equal(t, CosineSimilarity(p[0], p[1]), CosineSimilarity(p[1], p[0]))
	}
}

func TestCosineSimilarity_Self(t *testing.T) {
	for _, v := range [][]float32{{1, 0}, {3, 4}, {-2, 7, 0.5}, {1e-3, 2e-3}} {
		assert.InDelta(t, 1.0, CosineSimilarity(v, v), 1e-9, "vector %v", v)
	}
}

func TestCosineSimilarity_Degenerate(t *testing.T) {
	assert.Equal(t, 0.0, CosineSimilarity([]float32{0, 0}, []float32{0, 0}))
	assert.Equal(t, 0.0, CosineSimilarity([]float32{1, 0}, []float32{1, 0, 0}))
	assert.Equal(t, 0.0, CosineSimilarity(nil, nil))
	assert.False(t, math.IsNaN(CosineSimilarity([]float32{0}, []float32{1})))
}

func TestRank_FiltersSortsAndLimits(t *testing.T) {
	candidates := []domain.CatalogItem{
		item("low", 0.1, 1),   // ~0.0995
		item("mid", 1, 1),     // ~0.707
		item("exact", 1, 0),   // 1.0
		item("orth", 0, 1),    // 0
		item("close", 1, 0.2), // ~0.98
	}

	results := Rank([]float32{1, 0}, candidates, DefaultMinScore, 2)

	require.Len(t, results, 2)
	assert.Equal(t, "exact", results[0].Item.ID)
	assert.Equal(t, "close", results[1].Item.ID)
	assert.InDelta(t, 1.0, results[0].Score, 1e-9)
}

func TestRank_NeverReturnsScoresAtOrBelowMin(t *testing.T) {
	candidates := []domain.CatalogItem{item("a", 1, 0), item("b", 1, 1), item("c", 0, 1)}

	// cos([1,0],[1,1]) is exactly 1/sqrt(2)
	results := Rank([]float32{1, 0}, candidates, 1/math.Sqrt2, 0)

	require.Len(t, results, 1)
	assert.Equal(t, "a", results[0].Item.ID)
	for _, r := range results {
		assert.Greater(t, r.Score, 1/math.Sqrt2)
	}
}

func TestRank_StableOnTies(t *testing.T) {
	var candidates []domain.CatalogItem
	for i := 0; i < 6; i++ {
		candidates = append(candidates, item(fmt.Sprintf("t%d", i), 2, 2))
	}

	results := Rank([]float32{1, 1}, candidates, DefaultMinScore, 4)

	require.Len(t, results, 4)
	for i, r := range results {
		assert.Equal(t, fmt.Sprintf("t%d", i), r.Item.ID)
	}
}

func TestRank_SkipsMissingAndMismatchedVectors(t *testing.T) {
	candidates := []domain.CatalogItem{
		item("none"),
		item("short", 1),
		item("long", 1, 0, 0),
		item("ok", 1, 0),
	}

	var results []domain.ScoredItem
	assert.NotPanics(t, func() {
		results = Rank([]float32{1, 0}, candidates, DefaultMinScore, 5)
	})
	require.Len(t, results, 1)
	assert.Equal(t, "ok", results[0].Item.ID)
}

func TestRank_EmptyQuery(t *testing.T) {
	assert.Empty(t, Rank(nil, []domain.CatalogItem{item("a", 1)}, 0, 5))
}

func TestRank_ReactForBeginner(t *testing.T) {
	candidates := []domain.CatalogItem{item("react", 1, 0)}
	candidates[0].Title = "react for beginner"

	results := Rank([]float32{1, 0}, candidates, DefaultMinScore, 5)

	require.Len(t, results, 1)
	assert.Equal(t, "react for beginner", results[0].Item.Title)
	assert.InDelta(t, 1.0, results[0].Score, 1e-9)
}
