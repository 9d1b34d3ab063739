package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"advisor/config"
	"advisor/internal/adapter/llm"
	"advisor/internal/domain"
)

func memoryConfig() config.MemoryConfig {
	return config.DefaultConfig().Memory
}

func TestExtractTopics_EmptyTranscript(t *testing.T) {
	fake := &scriptedLLM{topics: "should not be used"}
	uc := NewMemoryUseCase(fake, domain.GenerateOptions{}, memoryConfig(), nil)

	topics, err := uc.ExtractTopics(context.Background(), &domain.Session{})
	require.NoError(t, err)
	assert.Empty(t, topics)
	assert.NotNil(t, topics)
	assert.Equal(t, 0, fake.calls())
}

func TestExtractTopics_SplitsTrimsAndDedupes(t *testing.T) {
	fake := &scriptedLLM{topics: " Docker, Kubernetes ,, docker, CI/CD "}
	uc := NewMemoryUseCase(fake, domain.GenerateOptions{}, memoryConfig(), nil)

	session := &domain.Session{Turns: []domain.Turn{
		{Role: domain.RoleUser, Content: "Tell me about Docker"},
		{Role: domain.RoleAssistant, Content: "Docker runs containers; Kubernetes orchestrates them."},
	}}
	topics, err := uc.ExtractTopics(context.Background(), session)
	require.NoError(t, err)
	assert.Equal(t, []string{"Docker", "Kubernetes", "CI/CD"}, topics)

	prompt := fake.lastPrompt()
	require.Len(t, prompt, 2)
	assert.Equal(t, domain.RoleSystem, prompt[0].Role)
	assert.Contains(t, prompt[1].Content, "user: Tell me about Docker\nassistant: Docker runs containers")
}

func TestExtractTopics_OnlyRecentWindow(t *testing.T) {
	fake := &scriptedLLM{topics: "x"}
	uc := NewMemoryUseCase(fake, domain.GenerateOptions{}, memoryConfig(), nil)

	turns := makeTurns(12)
	turns[0].Content = "ancient"
	turns[11].Content = "latest"
	_, err := uc.ExtractTopics(context.Background(), &domain.Session{Turns: turns})
	require.NoError(t, err)

	prompt := fake.lastPrompt()[1].Content
	assert.NotContains(t, prompt, "ancient")
	assert.Contains(t, prompt, "latest")
	assert.Equal(t, 7, strings.Count(prompt, "message"))
}

func TestExtractTopics_WithMockModel(t *testing.T) {
	uc := NewMemoryUseCase(llm.NewMockClient(), domain.GenerateOptions{}, memoryConfig(), nil)
	session := &domain.Session{Turns: []domain.Turn{
		{Role: domain.RoleUser, Content: "How do Docker and Kubernetes relate?"},
		{Role: domain.RoleAssistant, Content: "Kubernetes schedules Docker containers."},
	}}

	topics, err := uc.ExtractTopics(context.Background(), session)
	require.NoError(t, err)
	assert.Contains(t, topics, "Docker")
	assert.Contains(t, topics, "Kubernetes")
}

func TestExtractTopics_ProviderError(t *testing.T) {
	fake := &scriptedLLM{topicErr: errors.New("timeout")}
	uc := NewMemoryUseCase(fake, domain.GenerateOptions{}, memoryConfig(), nil)

	_, err := uc.ExtractTopics(context.Background(), &domain.Session{Turns: makeTurns(2)})
	assert.True(t, errors.Is(err, domain.ErrProvider))
}

func TestSummarize(t *testing.T) {
	fake := &scriptedLLM{summary: "Discussed Docker."}
	uc := NewMemoryUseCase(fake, domain.GenerateOptions{}, memoryConfig(), nil)
	ctx := context.Background()

	assert.Equal(t, "", uc.Summarize(ctx, &domain.Session{Turns: makeTurns(10)}))
	assert.Equal(t, 0, fake.calls())

	got := uc.Summarize(ctx, &domain.Session{Turns: makeTurns(11)})
	assert.Equal(t, "PREVIOUS CONVERSATION SUMMARY:\nDiscussed Docker.\n\n", got)
}

func TestSummarize_TruncatesTranscript(t *testing.T) {
	fake := &scriptedLLM{summary: "ok"}
	cfg := memoryConfig()
	cfg.SummaryMaxChars = 20
	uc := NewMemoryUseCase(fake, domain.GenerateOptions{}, cfg, nil)

	turns := makeTurns(11)
	turns[0].Content = "héllo wörld with a long tail"
	uc.Summarize(context.Background(), &domain.Session{Turns: turns})

	prompt := fake.lastPrompt()[1].Content
	assert.Contains(t, prompt, "Conversation:\nuser: héllo wörld wi\n\nSummary:")
}

func TestSummarize_FailureIsEmpty(t *testing.T) {
	fake := &scriptedLLM{err: errors.New("down")}
	uc := NewMemoryUseCase(fake, domain.GenerateOptions{}, memoryConfig(), nil)

	assert.Equal(t, "", uc.Summarize(context.Background(), &domain.Session{Turns: makeTurns(12)}))
}

func TestTruncateRunes(t *testing.T) {
	assert.Equal(t, "hé", truncateRunes("héllo", 2))
	assert.Equal(t, "héllo", truncateRunes("héllo", 10))
	assert.Equal(t, "héllo", truncateRunes("héllo", 0))
	assert.Equal(t, "", truncateRunes("", 3))
}
