package usecase

import (
	"context"
	"fmt"
	"strings"

	"advisor/internal/domain"
	"advisor/internal/platform/logger"
	"advisor/internal/port"
)

// Invalidator drops cached search results after the catalog changes.
type Invalidator interface {
	Invalidate()
}

// ProgressFunc is called after each item of an indexing run.
type ProgressFunc func(done, total int, item domain.CatalogItem)

// IndexUseCase embeds catalog items and stores the vectors on them. Every
// collection shares one embedding space, which is recorded on the first
// successful write and enforced afterwards.
type IndexUseCase struct {
	store    port.IndexStore
	embedder port.Embedder
	cache    Invalidator
	log      *logger.Logger
}

// NewIndexUseCase creates a new index use case. cache may be nil.
func NewIndexUseCase(
	store port.IndexStore,
	embedder port.Embedder,
	cache Invalidator,
	log *logger.Logger,
) *IndexUseCase {
	if log == nil {
		log = logger.Nop()
	}
	return &IndexUseCase{
		store:    store,
		embedder: embedder,
		cache:    cache,
		log:      log,
	}
}

// CanonicalText renders the text that is embedded for an item. The field
// order is fixed; changing it changes every vector.
func CanonicalText(item domain.CatalogItem) string {
	switch item.Kind {
	case domain.KindProject:
		return fmt.Sprintf("Project: %s\nDescription: %s\nStatus: %s\nDepartment: %s\nTechnologies: %s",
			item.Title,
			item.Description,
			item.Status,
			item.Department,
			strings.Join(item.Technologies, ", "),
		)
	default:
		return fmt.Sprintf("Training: %s\nDescription: %s\nDuration: %s\nAudience: %s\nType: %s\nPrerequisites: %s",
			item.Title,
			item.Description,
			item.Duration,
			strings.Join(item.Audience, ", "),
			item.TrainingType,
			strings.Join(item.Prerequisites, ", "),
		)
	}
}

// IndexAll re-embeds every item of kind. A failing item is logged and
// reported; the run continues with the next one. Loading the catalog or a
// fingerprint from another embedding model is returned as an error.
func (u *IndexUseCase) IndexAll(ctx context.Context, kind domain.Kind, progress ProgressFunc) (*domain.IndexReport, error) {
	space, err := u.space(ctx)
	if err != nil {
		return nil, err
	}
	items, err := u.store.ListItems(ctx, kind)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", kind.Plural(), err)
	}

	expected := space.Dimension
	if expected == 0 {
		// items of kind are about to be replaced; only the others constrain the run
		if expected, err = u.indexedDimension(ctx, kind, ""); err != nil {
			return nil, err
		}
	}

	report := &domain.IndexReport{Kind: kind, Dimension: expected}
	u.log.Info("indexing started", "kind", kind, "items", len(items), "dimension", expected)

	for i, item := range items {
		if err := ctx.Err(); err != nil {
			// cancellation is not an item failure; stop and report what was done
			u.log.Warn("indexing cancelled", "kind", kind, "done", i)
			break
		}

		dim, err := u.embedItem(ctx, item, report.Dimension)
		if err != nil {
			u.log.Warn("failed to index item", "kind", kind, "id", item.ID, "title", item.Title, "error", err)
			report.Failed = append(report.Failed, domain.IndexFailure{ItemID: item.ID, Title: item.Title, Err: err})
		} else {
			report.Dimension = dim
			report.Succeeded = append(report.Succeeded, item.ID)
		}

		if progress != nil {
			progress(i+1, len(items), item)
		}
	}

	if len(report.Succeeded) > 0 {
		if u.cache != nil {
			u.cache.Invalidate()
		}
		if err := u.recordSpace(ctx, space, report.Dimension); err != nil {
			return report, err
		}
	}

	u.log.Info("indexing finished",
		"kind", kind,
		"succeeded", len(report.Succeeded),
		"failed", len(report.Failed),
		"dimension", report.Dimension,
	)
	return report, ctx.Err()
}

// IndexItem embeds one item. The expected dimension is the recorded one,
// or else that of any other item already carrying a vector.
func (u *IndexUseCase) IndexItem(ctx context.Context, item domain.CatalogItem) error {
	space, err := u.space(ctx)
	if err != nil {
		return err
	}
	expected := space.Dimension
	if expected == 0 {
		if expected, err = u.indexedDimension(ctx, "", item.ID); err != nil {
			return err
		}
	}

	dim, err := u.embedItem(ctx, item, expected)
	if err != nil {
		return err
	}
	if u.cache != nil {
		u.cache.Invalidate()
	}
	if err := u.recordSpace(ctx, space, dim); err != nil {
		return err
	}
	u.log.Debug("indexed item", "kind", item.Kind, "id", item.ID)
	return nil
}

// space loads the recorded fingerprint and rejects one from another model.
func (u *IndexUseCase) space(ctx context.Context) (domain.EmbeddingSpace, error) {
	space, err := u.store.EmbeddingSpace(ctx)
	if err != nil {
		return domain.EmbeddingSpace{}, fmt.Errorf("failed to load embedding fingerprint: %w", err)
	}
	if model := u.embedder.ModelName(); space.Model != "" && space.Model != model {
		return domain.EmbeddingSpace{}, fmt.Errorf("%w: stored vectors come from %s, embedder is %s",
			domain.ErrModelChanged, space.Model, model)
	}
	return space, nil
}

// recordSpace writes the fingerprint once the first vectors are stored.
func (u *IndexUseCase) recordSpace(ctx context.Context, space domain.EmbeddingSpace, dim int) error {
	if space.Model != "" || dim == 0 {
		return nil
	}
	next := domain.EmbeddingSpace{Model: u.embedder.ModelName(), Dimension: dim}
	if err := u.store.SetEmbeddingSpace(ctx, next); err != nil {
		return fmt.Errorf("failed to record embedding fingerprint: %w", err)
	}
	return nil
}

// indexedDimension returns the length of any stored vector outside skipKind,
// ignoring the item skipID. 0 means nothing constrains the dimension.
func (u *IndexUseCase) indexedDimension(ctx context.Context, skipKind domain.Kind, skipID string) (int, error) {
	for _, kind := range domain.Kinds {
		if kind == skipKind {
			continue
		}
		items, err := u.store.ListItems(ctx, kind)
		if err != nil {
			return 0, fmt.Errorf("failed to load %s: %w", kind.Plural(), err)
		}
		for _, item := range items {
			if item.ID != skipID && item.Indexed() {
				return len(item.Embedding), nil
			}
		}
	}
	return 0, nil
}

// embedItem embeds and saves item; expected 0 accepts any dimension.
func (u *IndexUseCase) embedItem(ctx context.Context, item domain.CatalogItem, expected int) (int, error) {
	vector, err := u.embedder.Embed(ctx, CanonicalText(item))
	if err != nil {
		return 0, fmt.Errorf("%w: embedding %s %s: %v", domain.ErrProvider, item.Kind, item.ID, err)
	}
	if len(vector) == 0 {
		return 0, fmt.Errorf("%w: empty embedding for %s %s", domain.ErrProvider, item.Kind, item.ID)
	}
	if expected > 0 && len(vector) != expected {
		return 0, fmt.Errorf("%w: %s %s has %d dimensions, collection has %d",
			domain.ErrDimensionMismatch, item.Kind, item.ID, len(vector), expected)
	}
	if err := u.store.SaveEmbedding(ctx, item.Kind, item.ID, vector); err != nil {
		return 0, fmt.Errorf("failed to save embedding: %w", err)
	}
	return len(vector), nil
}

// IndexError reports an item that was stored but could not be indexed.
type IndexError struct {
	Item domain.CatalogItem
	Err  error
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("%s %s stored but not indexed: %v", e.Item.Kind, e.Item.ID, e.Err)
}

func (e *IndexError) Unwrap() error {
	return e.Err
}

// CreateItem stores a new catalog item and indexes it. When only indexing
// fails the stored item is returned with an *IndexError.
func (u *IndexUseCase) CreateItem(ctx context.Context, item domain.CatalogItem) (domain.CatalogItem, error) {
	if strings.TrimSpace(item.Title) == "" {
		return domain.CatalogItem{}, fmt.Errorf("%w: title is required", domain.ErrInvalidInput)
	}
	item.Embedding = nil

	stored, err := u.store.PutItem(ctx, item)
	if err != nil {
		return domain.CatalogItem{}, fmt.Errorf("failed to store %s: %w", item.Kind, err)
	}
	u.log.Info("catalog item created", "kind", stored.Kind, "id", stored.ID, "title", stored.Title)

	if err := u.IndexItem(ctx, stored); err != nil {
		return stored, &IndexError{Item: stored, Err: err}
	}
	return stored, nil
}
