package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"advisor/internal/domain"
	"advisor/internal/platform/logger"
	"advisor/internal/port"
)

const systemPreamble = `You are a helpful corporate assistant for training and project management.

IMPORTANT: Remember the ongoing conversation and maintain context across multiple messages.

Current Context:
`

const systemGuidelines = `

Guidelines:
- Reference earlier topics when relevant
- Be helpful and accurate with the information provided
- Do not disclose any information to one user about any other users
- If you don't have information, say so`

// ContextBuilder assembles the retrieval context for one message.
type ContextBuilder interface {
	Build(ctx context.Context, userMessage string, session *domain.Session, profile domain.UserProfile) Assembly
}

// ChatStore is the persistence the chat use case needs.
type ChatStore interface {
	port.SessionStore
	port.UserStore
}

// ChatUseCase drives one conversation turn: context, model call, persistence.
type ChatUseCase struct {
	store         ChatStore
	assembler     ContextBuilder
	llm           port.LLM
	opts          domain.GenerateOptions
	historyWindow int
	log           *logger.Logger
	locks         *sessionLocks
}

// NewChatUseCase creates a chat use case. historyWindow is the number of
// prior turns replayed into each prompt.
func NewChatUseCase(
	store ChatStore,
	assembler ContextBuilder,
	llm port.LLM,
	opts domain.GenerateOptions,
	historyWindow int,
	log *logger.Logger,
) *ChatUseCase {
	if log == nil {
		log = logger.Nop()
	}
	return &ChatUseCase{
		store:         store,
		assembler:     assembler,
		llm:           llm,
		opts:          opts,
		historyWindow: historyWindow,
		log:           log,
		locks:         newSessionLocks(),
	}
}

// HandleMessage answers message for userID within sessionID, creating the
// session on first use. Nothing is persisted when the model call fails.
func (u *ChatUseCase) HandleMessage(ctx context.Context, userID, message, sessionID string) (string, error) {
	if strings.TrimSpace(message) == "" {
		return "", fmt.Errorf("%w: message is empty", domain.ErrInvalidInput)
	}
	if sessionID == "" {
		sessionID = domain.DefaultSessionID
	}

	unlock := u.locks.lock(userID, sessionID)
	defer unlock()

	user, err := u.store.GetUser(ctx, userID)
	if err != nil {
		return "", err
	}

	session, err := u.loadOrCreate(ctx, user, sessionID)
	if err != nil {
		return "", err
	}

	assembly := u.assembler.Build(ctx, message, session, user)
	messages := u.prompt(assembly.Text, session.LastTurns(u.historyWindow), message)

	reply, err := u.llm.Generate(ctx, messages, u.opts)
	if err != nil {
		u.log.Error("llm generation failed", "user_id", userID, "session_id", sessionID, "error", err)
		return "", fmt.Errorf("%w: %v", domain.ErrProvider, err)
	}

	if _, err := u.store.AppendTurn(ctx, userID, sessionID, domain.RoleUser, message); err != nil {
		return "", fmt.Errorf("failed to save user turn: %w", err)
	}
	if _, err := u.store.AppendTurn(ctx, userID, sessionID, domain.RoleAssistant, reply); err != nil {
		return "", fmt.Errorf("failed to save assistant turn: %w", err)
	}

	if assembly.TopTraining != "" || assembly.TopProject != "" {
		sc := session.Context
		if assembly.TopTraining != "" {
			sc.LastTrainingDiscussed = assembly.TopTraining
		}
		if assembly.TopProject != "" {
			sc.LastProjectDiscussed = assembly.TopProject
		}
		if err := u.store.UpdateContext(ctx, userID, sessionID, sc); err != nil {
			u.log.Warn("failed to update session context", "session_id", sessionID, "error", err)
		}
	}

	u.log.Info("chat turn completed",
		"user_id", userID,
		"session_id", sessionID,
		"topics", len(assembly.Topics),
		"degraded", assembly.Degraded,
	)
	return reply, nil
}

func (u *ChatUseCase) loadOrCreate(ctx context.Context, user domain.UserProfile, sessionID string) (*domain.Session, error) {
	session, err := u.store.LoadSession(ctx, user.ID, sessionID)
	if err == nil {
		return session, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	session = &domain.Session{
		UserID:    user.ID,
		SessionID: sessionID,
		Turns:     []domain.Turn{},
		Context:   domain.SessionContext{UserDepartment: user.Department},
	}
	if err := u.store.CreateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	u.log.Debug("session created", "user_id", user.ID, "session_id", sessionID)
	return session, nil
}

// prompt is the system message, the replayed history, then the new message.
func (u *ChatUseCase) prompt(contextText string, history []domain.Turn, message string) []domain.Message {
	messages := make([]domain.Message, 0, len(history)+2)
	messages = append(messages, domain.Message{
		Role:    domain.RoleSystem,
		Content: systemPreamble + contextText + systemGuidelines,
	})
	for _, t := range history {
		messages = append(messages, domain.Message{Role: t.Role, Content: t.Content})
	}
	return append(messages, domain.Message{Role: domain.RoleUser, Content: message})
}

// History returns the session transcript; a missing session is empty.
func (u *ChatUseCase) History(ctx context.Context, userID, sessionID string) ([]domain.Turn, error) {
	if sessionID == "" {
		sessionID = domain.DefaultSessionID
	}
	session, err := u.store.LoadSession(ctx, userID, sessionID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return []domain.Turn{}, nil
		}
		return nil, err
	}
	return session.Turns, nil
}

// ClearHistory deletes the session. Clearing a missing session succeeds.
func (u *ChatUseCase) ClearHistory(ctx context.Context, userID, sessionID string) error {
	if sessionID == "" {
		sessionID = domain.DefaultSessionID
	}
	unlock := u.locks.lock(userID, sessionID)
	defer unlock()

	if err := u.store.DeleteSession(ctx, userID, sessionID); err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}
	u.log.Info("chat history cleared", "user_id", userID, "session_id", sessionID)
	return nil
}

// Welcome returns a greeting personalised from the user's profile.
func (u *ChatUseCase) Welcome(ctx context.Context, userID string) (string, error) {
	user, err := u.store.GetUser(ctx, userID)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Hello %s! Welcome to the Training and Project Management Assistant. "+
		"I see you're a %s in the %s department. "+
		"Feel free to ask me about available trainings or projects!",
		user.Name, user.Title, user.Department), nil
}

type lockKey struct {
	userID    string
	sessionID string
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// sessionLocks hands out one mutex per (user, session). Entries are removed
// when the last holder or waiter releases them.
type sessionLocks struct {
	mu      sync.Mutex
	entries map[lockKey]*lockEntry
}

func newSessionLocks() *sessionLocks {
	return &sessionLocks{entries: make(map[lockKey]*lockEntry)}
}

func (l *sessionLocks) lock(userID, sessionID string) func() {
	key := lockKey{userID, sessionID}

	l.mu.Lock()
	e, ok := l.entries[key]
	if !ok {
		e = &lockEntry{}
		l.entries[key] = e
	}
	e.refs++
	l.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		l.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(l.entries, key)
		}
		l.mu.Unlock()
	}
}

// Profile returns the stored profile of userID.
func (u *ChatUseCase) Profile(ctx context.Context, userID string) (domain.UserProfile, error) {
	return u.store.GetUser(ctx, userID)
}
