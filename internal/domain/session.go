package domain

import "time"

// Role is the author of a conversation turn or prompt message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// DefaultSessionID is used when a caller does not name a session.
const DefaultSessionID = "default"

// Turn is one persisted message of a conversation. Turns are immutable.
type Turn struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// SessionContext is the small record kept next to the transcript.
type SessionContext struct {
	LastTrainingDiscussed string `json:"last_training_discussed,omitempty"`
	LastProjectDiscussed  string `json:"last_project_discussed,omitempty"`
	UserDepartment        string `json:"user_department"`
}

// Session is an append-only conversation identified by (UserID, SessionID).
type Session struct {
	UserID    string         `json:"user_id"`
	SessionID string         `json:"session_id"`
	Turns     []Turn         `json:"turns"`
	Context   SessionContext `json:"context"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// LastTurns returns at most n of the most recent turns, oldest first.
func (s *Session) LastTurns(n int) []Turn {
	if s == nil || n <= 0 {
		return nil
	}
	if len(s.Turns) <= n {
		return s.Turns
	}
	return s.Turns[len(s.Turns)-n:]
}

// UserProfile describes the employee talking to the assistant.
type UserProfile struct {
	ID                 string   `json:"id" yaml:"id"`
	Name               string   `json:"name" yaml:"name"`
	Title              string   `json:"title" yaml:"title"`
	Department         string   `json:"department" yaml:"department"`
	CompletedTrainings []string `json:"completed_trainings,omitempty" yaml:"completed_trainings,omitempty"`
}

// Message is one entry of a prompt sent to the language model.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// GenerateOptions selects the model and sampling for one generation call.
type GenerateOptions struct {
	Model       string
	Temperature float64
}
