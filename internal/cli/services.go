package cli

import (
	"fmt"
	"time"

	"advisor/config"
	"advisor/internal/adapter/cache"
	"advisor/internal/adapter/embedding"
	"advisor/internal/adapter/fs"
	"advisor/internal/adapter/llm"
	"advisor/internal/adapter/store"
	"advisor/internal/domain"
	"advisor/internal/platform/logger"
	"advisor/internal/port"
	"advisor/internal/usecase"
)

// services is the object graph shared by every command. It is built once per
// process and torn down with Close.
type services struct {
	store    *store.BoltStore
	embedder port.Embedder
	llm      port.LLM
	search   *cache.CachedSearcher
	index    *usecase.IndexUseCase
	chat     *usecase.ChatUseCase
	importer *usecase.ImportUseCase
	log      *logger.Logger
}

func buildServices(cfg *config.Config, dir string, log *logger.Logger) (*services, error) {
	if err := cfg.EnsureDataDir(dir); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	st, err := store.NewBoltStore(cfg.DBPath(dir))
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	if err := st.Migrate(); err != nil {
		st.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	embedder, err := newEmbedder(cfg.Embedding)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}
	model, err := newLLM(cfg.LLM)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("failed to create llm client: %w", err)
	}

	opts := domain.GenerateOptions{Model: cfg.LLM.Model, Temperature: cfg.LLM.Temperature}

	queryCache := cache.NewQueryCache(cfg.Retrieve.CacheSize, time.Duration(cfg.Retrieve.CacheTTLSeconds)*time.Second)
	search := cache.NewCachedSearcher(usecase.NewRetrieveUseCase(st, embedder, cfg.Retrieve.MinScore), queryCache)

	memory := usecase.NewMemoryUseCase(model, opts, cfg.Memory, log)
	assembler := usecase.NewContextAssembler(memory, search, cfg.Retrieve.TrainingLimit, cfg.Retrieve.ProjectLimit, log)

	return &services{
		store:    st,
		embedder: embedder,
		llm:      model,
		search:   search,
		index:    usecase.NewIndexUseCase(st, embedder, search, log),
		chat:     usecase.NewChatUseCase(st, assembler, model, opts, cfg.Memory.HistoryWindow, log),
		importer: usecase.NewImportUseCase(st, fs.NewWalker(cfg.Catalog.Includes, cfg.Catalog.Excludes), search, log),
		log:      log,
	}, nil
}

func (s *services) Close() error {
	return s.store.Close()
}

// models returns the provider's model lister, or nil when it has none.
func (s *services) models() port.ModelLister {
	lister, _ := s.llm.(port.ModelLister)
	return lister
}

// warnIfStale logs when stored embeddings come from another model. Ranking
// still runs but scores across models are meaningless.
func (s *services) warnIfStale() {
	stale, reason, err := s.store.NeedsRebuild(s.embedder.ModelName())
	if err != nil {
		s.log.Warn("failed to read embedding fingerprint", "error", err)
		return
	}
	if stale {
		s.log.Warn("stored embeddings are stale, run 'advisor index --rebuild'", "reason", reason)
	}
}

func newEmbedder(c config.EmbeddingConfig) (port.Embedder, error) {
	timeout := time.Duration(c.TimeoutSeconds) * time.Second
	switch c.Provider {
	case "ollama":
		return embedding.NewOllamaEmbedder(c.Model, c.BaseURL, timeout)
	case "openai":
		if c.BaseURL != "" {
			return embedding.NewOpenAICompatibleEmbedder(config.APIKey(c.APIKeyEnv), c.Model, c.BaseURL, timeout)
		}
		return embedding.NewOpenAIEmbedder(config.APIKey(c.APIKeyEnv), c.Model, timeout)
	case "mock":
		return embedding.NewMockEmbedder(c.Dimension), nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", c.Provider)
	}
}

func newLLM(c config.LLMConfig) (port.LLM, error) {
	timeout := time.Duration(c.TimeoutSeconds) * time.Second
	switch c.Provider {
	case "ollama":
		return llm.NewOllamaClient(c.BaseURL, c.Model, timeout), nil
	case "openai":
		return llm.NewOpenAIClient(config.APIKey(c.APIKeyEnv), c.BaseURL, c.Model, timeout)
	case "mock":
		return llm.NewMockClient(), nil
	default:
		return nil, fmt.Errorf("unsupported llm provider: %s", c.Provider)
	}
}
