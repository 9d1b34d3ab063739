package usecase

import (
	"context"
	"fmt"
	"strings"

	"advisor/internal/adapter/retriever"
	"advisor/internal/domain"
	"advisor/internal/port"
)

// Searcher finds the catalog items most similar to a free-text query.
type Searcher interface {
	Search(ctx context.Context, kind domain.Kind, query string, limit int) ([]domain.ScoredItem, error)
}

// RetrieveUseCase handles search and retrieval operations.
type RetrieveUseCase struct {
	store    port.CatalogStore
	embedder port.Embedder
	minScore float64 // results scoring at or below this are dropped
}

// NewRetrieveUseCase creates a new retrieve use case.
func NewRetrieveUseCase(store port.CatalogStore, embedder port.Embedder, minScore float64) *RetrieveUseCase {
	return &RetrieveUseCase{
		store:    store,
		embedder: embedder,
		minScore: minScore,
	}
}

// Search embeds query and ranks every item of kind against it by cosine
// similarity. limit <= 0 returns every item above the threshold.
func (u *RetrieveUseCase) Search(ctx context.Context, kind domain.Kind, query string, limit int) ([]domain.ScoredItem, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: empty query", domain.ErrInvalidInput)
	}

	vector, err := u.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: embedding query: %v", domain.ErrProvider, err)
	}

	items, err := u.store.ListItems(ctx, kind)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", kind.Plural(), err)
	}

	return retriever.Rank(vector, items, u.minScore, limit), nil
}

// SearchResult is a simplified result for CLI and HTTP output.
type SearchResult struct {
	ID          string  `json:"id"`
	Kind        string  `json:"kind"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Score       float64 `json:"score"`
}

// ToSearchResults drops the embeddings from scored items.
func ToSearchResults(scored []domain.ScoredItem) []SearchResult {
	out := make([]SearchResult, len(scored))
	for i, s := range scored {
		out[i] = SearchResult{
			ID:          s.Item.ID,
			Kind:        string(s.Item.Kind),
			Title:       s.Item.Title,
			Description: s.Item.Description,
			Score:       s.Score,
		}
	}
	return out
}
