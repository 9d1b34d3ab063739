package port

import (
	"context"

	"advisor/internal/domain"
)

// LLM represents a language model for text generation.
type LLM interface {
	// Generate produces the assistant reply for an ordered list of messages.
	Generate(ctx context.Context, messages []domain.Message, opts domain.GenerateOptions) (string, error)

	// ModelName returns the name of the default model.
	ModelName() string
}

// ModelLister is implemented by providers that can report their health and
// the models they serve.
type ModelLister interface {
	HealthCheck(ctx context.Context) error
	ListModels(ctx context.Context) ([]string, error)
}
