package usecase

import (
	"context"
	"errors"
	"fmt"

	"advisor/internal/adapter/fs"
	"advisor/internal/adapter/seed"
	"advisor/internal/domain"
	"advisor/internal/platform/logger"
	"advisor/internal/port"
)

// ImportUseCase loads users, trainings and projects from seed files.
type ImportUseCase struct {
	store  port.Store
	walker *fs.Walker
	cache  Invalidator
	log    *logger.Logger
}

// NewImportUseCase creates a new import use case. cache may be nil.
func NewImportUseCase(store port.Store, walker *fs.Walker, cache Invalidator, log *logger.Logger) *ImportUseCase {
	if log == nil {
		log = logger.Nop()
	}
	return &ImportUseCase{store: store, walker: walker, cache: cache, log: log}
}

// ImportResult contains the results of an import.
type ImportResult struct {
	Files     int
	Users     int
	Trainings int
	Projects  int
	Changed   int // previously indexed items whose text changed
	Errors    []string
}

// Import walks root for seed files and upserts their content. A file that
// fails to parse is recorded and skipped.
func (u *ImportUseCase) Import(ctx context.Context, root string) (*ImportResult, error) {
	files, err := u.walker.Walk(root)
	if err != nil {
		return nil, fmt.Errorf("failed to walk directory: %w", err)
	}

	result := &ImportResult{}
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		data, err := fs.ReadFile(file.Path)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("failed to read %s: %v", file.RelPath, err))
			continue
		}
		bundle, err := seed.Parse(data)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("failed to parse %s: %v", file.RelPath, err))
			continue
		}
		result.Files++

		if err := u.apply(ctx, bundle, result); err != nil {
			return result, fmt.Errorf("failed to import %s: %w", file.RelPath, err)
		}
		u.log.Debug("seed file imported", "file", file.RelPath)
	}

	if result.Trainings+result.Projects > 0 && u.cache != nil {
		u.cache.Invalidate()
	}
	u.log.Info("import finished",
		"files", result.Files,
		"users", result.Users,
		"trainings", result.Trainings,
		"projects", result.Projects,
		"errors", len(result.Errors),
	)
	return result, nil
}

func (u *ImportUseCase) apply(ctx context.Context, bundle *seed.Bundle, result *ImportResult) error {
	for _, user := range bundle.Users {
		if err := u.store.PutUser(ctx, user); err != nil {
			return err
		}
		result.Users++
	}
	for _, item := range bundle.Items() {
		// an edited item drops its vector so it is not ranked on stale text
		prev, err := u.store.GetItem(ctx, item.Kind, item.ID)
		switch {
		case err == nil:
			if prev.Indexed() && CanonicalText(prev) != CanonicalText(item) {
				item.Embedding = []float32{}
				result.Changed++
			}
		case !errors.Is(err, domain.ErrNotFound):
			return err
		}

		stored, err := u.store.PutItem(ctx, item)
		if err != nil {
			return err
		}
		if stored.Kind == domain.KindProject {
			result.Projects++
		} else {
			result.Trainings++
		}
	}
	return nil
}
