package llm

import (
	"context"
	"fmt"
	"strings"

	"advisor/internal/domain"
	"advisor/internal/port"
)

// MockClient answers without a model: topic prompts get the most frequent
// capitalised words of the transcript, every other prompt gets an echo of
// the last user message. Used by the "mock" provider for offline runs.
type MockClient struct{}

func NewMockClient() *MockClient {
	return &MockClient{}
}

var _ port.LLM = (*MockClient)(nil)

func (m *MockClient) Generate(_ context.Context, messages []domain.Message, _ domain.GenerateOptions) (string, error) {
	if len(messages) == 0 {
		return "", fmt.Errorf("no messages")
	}
	last := messages[len(messages)-1].Content

	if strings.HasSuffix(strings.TrimSpace(last), "Topics:") {
		return strings.Join(capitalisedWords(last, 5), ", "), nil
	}
	if strings.HasSuffix(strings.TrimSpace(last), "Summary:") {
		return "The user asked about trainings and projects.", nil
	}
	return fmt.Sprintf("(mock reply) You said: %s", last), nil
}

func (m *MockClient) ModelName() string {
	return "mock"
}

func capitalisedWords(text string, limit int) []string {
	counts := map[string]int{}
	var order []string
	for _, line := range strings.Split(text, "\n") {
		role, content, ok := strings.Cut(line, ": ")
		if !ok || !isRoleLabel(role) {
			continue
		}
		for _, w := range strings.Fields(content) {
			w = strings.Trim(w, ".,;:!?()\"'")
			if len(w) < 3 || w[0] < 'A' || w[0] > 'Z' {
				continue
			}
			if counts[w] == 0 {
				order = append(order, w)
			}
			counts[w]++
		}
	}

	var out []string
	for len(out) < limit {
		best := ""
		for _, w := range order {
			if counts[w] > 0 && (best == "" || counts[w] > counts[best]) {
				best = w
			}
		}
		if best == "" {
			break
		}
		out = append(out, best)
		counts[best] = 0
	}
	return out
}

func isRoleLabel(s string) bool {
	return s == string(domain.RoleUser) || s == string(domain.RoleAssistant)
}
