package usecase

import (
	"context"
	"errors"
	"strings"
	"sync"

	"advisor/internal/domain"
)

// keywordEmbedder maps text to a vector by keyword presence. Each keyword
// owns one dimension; text matching no keyword gets the fallback vector.
type keywordEmbedder struct {
	keywords []string
	fallback []float32
	failOn   string
	dims     map[string]int // text substring -> forced dimension
	model    string
	calls    int
}

func (e *keywordEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	e.calls++
	lower := strings.ToLower(text)
	if e.failOn != "" && strings.Contains(lower, strings.ToLower(e.failOn)) {
		return nil, errors.New("embedding backend unavailable")
	}
	for sub, n := range e.dims {
		if strings.Contains(lower, strings.ToLower(sub)) {
			return make([]float32, n), nil
		}
	}
	vec := make([]float32, len(e.keywords))
	hit := false
	for i, k := range e.keywords {
		if strings.Contains(lower, k) {
			vec[i] = 1
			hit = true
		}
	}
	if !hit && e.fallback != nil {
		return e.fallback, nil
	}
	return vec, nil
}

func (e *keywordEmbedder) ModelName() string {
	if e.model != "" {
		return e.model
	}
	return "keyword"
}

// scriptedLLM answers by the suffix of the last message.
type scriptedLLM struct {
	mu       sync.Mutex
	topics   string
	summary  string
	reply    string
	err      error
	topicErr error
	prompts  [][]domain.Message
}

func (l *scriptedLLM) Generate(_ context.Context, messages []domain.Message, _ domain.GenerateOptions) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.prompts = append(l.prompts, messages)

	last := strings.TrimSpace(messages[len(messages)-1].Content)
	switch {
	case strings.HasSuffix(last, "Topics:"):
		if l.topicErr != nil {
			return "", l.topicErr
		}
		return l.topics, nil
	case strings.HasSuffix(last, "Summary:"):
		if l.err != nil {
			return "", l.err
		}
		return l.summary, nil
	}
	if l.err != nil {
		return "", l.err
	}
	return l.reply, nil
}

func (l *scriptedLLM) ModelName() string { return "scripted" }

func (l *scriptedLLM) calls() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.prompts)
}

func (l *scriptedLLM) lastPrompt() []domain.Message {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.prompts) == 0 {
		return nil
	}
	return l.prompts[len(l.prompts)-1]
}

// staticSearcher returns canned results per kind.
type staticSearcher struct {
	results map[domain.Kind][]domain.ScoredItem
	err     error
	mu      sync.Mutex
	queries []string
}

func (s *staticSearcher) Search(_ context.Context, kind domain.Kind, query string, limit int) ([]domain.ScoredItem, error) {
	s.mu.Lock()
	s.queries = append(s.queries, query)
	s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	return s.results[kind], nil
}

func makeTurns(n int) []domain.Turn {
	turns := make([]domain.Turn, n)
	for i := range turns {
		role := domain.RoleUser
		if i%2 == 1 {
			role = domain.RoleAssistant
		}
		turns[i] = domain.Turn{Role: role, Content: "message"}
	}
	return turns
}

type countingInvalidator struct{ n int }

func (c *countingInvalidator) Invalidate() { c.n++ }
