package retriever

import (
	"math"
	"sort"

	"advisor/internal/domain"
)

// DefaultMinScore is the relevance cut-off used when none is configured.
const DefaultMinScore = 0.3

// CosineSimilarity calculates the cosine similarity between two vectors.
// Vectors of different length, empty vectors and zero-norm vectors score 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}

// Rank scores every candidate against query by brute force and returns at
// most limit items scoring strictly above minScore, best first. Candidates
// without an embedding or with a different dimensionality are skipped.
// Equal scores keep their input order. A limit <= 0 means no limit.
func Rank(query []float32, candidates []domain.CatalogItem, minScore float64, limit int) []domain.ScoredItem {
	if len(query) == 0 {
		return nil
	}

	scored := make([]domain.ScoredItem, 0, len(candidates))
	for _, c := range candidates {
		if len(c.Embedding) != len(query) {
			continue
		}
		score := CosineSimilarity(query, c.Embedding)
		if score <= minScore {
			continue
		}
		scored = append(scored, domain.ScoredItem{Item: c, Score: score})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if limit > 0 && len(scored) > limit {
		scored = scored[:limit]
	}
	return scored
}
