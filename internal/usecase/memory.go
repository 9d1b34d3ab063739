package usecase

import (
	"context"
	"fmt"
	"strings"

	"advisor/config"
	"advisor/internal/domain"
	"advisor/internal/platform/logger"
	"advisor/internal/port"
)

const (
	topicSystemPrompt   = "Extract key topics from conversations. Return only comma-separated topics."
	summarySystemPrompt = "You are a conversation summarizer. Create concise summaries focusing on key topics and decisions."

	// SummaryHeader prefixes every non-empty summary.
	SummaryHeader = "PREVIOUS CONVERSATION SUMMARY:\n"
)

// MemoryUseCase derives topics and a rolling summary from a conversation.
type MemoryUseCase struct {
	llm  port.LLM
	opts domain.GenerateOptions
	cfg  config.MemoryConfig
	log  *logger.Logger
}

// NewMemoryUseCase creates a new memory use case.
func NewMemoryUseCase(llm port.LLM, opts domain.GenerateOptions, cfg config.MemoryConfig, log *logger.Logger) *MemoryUseCase {
	if log == nil {
		log = logger.Nop()
	}
	return &MemoryUseCase{llm: llm, opts: opts, cfg: cfg, log: log}
}

// ExtractTopics asks the model for the topics of the most recent turns.
// Topics keep the model's order; case-insensitive duplicates are dropped.
func (u *MemoryUseCase) ExtractTopics(ctx context.Context, session *domain.Session) ([]string, error) {
	recent := session.LastTurns(u.cfg.TopicWindow)
	if len(recent) == 0 {
		return []string{}, nil
	}

	prompt := "Extract the main topics being discussed in this conversation. Return as a simple comma-separated list.\n\n" +
		"Conversation:\n" + transcript(recent) + "\n\nTopics:"

	answer, err := u.llm.Generate(ctx, []domain.Message{
		{Role: domain.RoleSystem, Content: topicSystemPrompt},
		{Role: domain.RoleUser, Content: prompt},
	}, u.opts)
	if err != nil {
		return nil, fmt.Errorf("%w: topic extraction: %v", domain.ErrProvider, err)
	}

	return splitTopics(answer), nil
}

// Summarize returns a header-prefixed summary of the whole conversation, or
// "" for short conversations and on model failure.
func (u *MemoryUseCase) Summarize(ctx context.Context, session *domain.Session) string {
	if session == nil || len(session.Turns) <= u.cfg.SummaryThreshold {
		return ""
	}

	text := truncateRunes(transcript(session.Turns), u.cfg.SummaryMaxChars)
	prompt := "Please provide a brief summary of the key topics discussed in this conversation. Focus on:\n" +
		"- Training courses discussed\n" +
		"- Projects mentioned\n" +
		"- User's interests and questions\n" +
		"- Any decisions or conclusions reached\n\n" +
		"Conversation:\n" + text + "\n\nSummary:"

	summary, err := u.llm.Generate(ctx, []domain.Message{
		{Role: domain.RoleSystem, Content: summarySystemPrompt},
		{Role: domain.RoleUser, Content: prompt},
	}, u.opts)
	if err != nil {
		u.log.Warn("failed to summarize conversation", "session_id", session.SessionID, "error", err)
		return ""
	}

	return SummaryHeader + summary + "\n\n"
}

func transcript(turns []domain.Turn) string {
	lines := make([]string, len(turns))
	for i, t := range turns {
		lines[i] = string(t.Role) + ": " + t.Content
	}
	return strings.Join(lines, "\n")
}

func splitTopics(answer string) []string {
	topics := []string{}
	seen := make(map[string]struct{})
	for _, part := range strings.Split(answer, ",") {
		topic := strings.TrimSpace(part)
		if topic == "" {
			continue
		}
		key := strings.ToLower(topic)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		topics = append(topics, topic)
	}
	return topics
}

// truncateRunes keeps the first limit characters of s; limit <= 0 keeps all.
func truncateRunes(s string, limit int) string {
	if limit <= 0 {
		return s
	}
	n := 0
	for i := range s {
		if n == limit {
			return s[:i]
		}
		n++
	}
	return s
}
