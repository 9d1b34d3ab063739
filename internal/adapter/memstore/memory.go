package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"advisor/internal/domain"
	"advisor/internal/port"
)

type sessionKey struct {
	userID    string
	sessionID string
}

// MemoryStore is a map-backed port.Store. Values are copied in and out so
// callers never share slices with the store.
type MemoryStore struct {
	mu       sync.RWMutex
	items    map[domain.Kind]map[string]domain.CatalogItem
	users    map[string]domain.UserProfile
	sessions map[sessionKey]*domain.Session
	space    domain.EmbeddingSpace
}

var _ port.Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	items := make(map[domain.Kind]map[string]domain.CatalogItem, len(domain.Kinds))
	for _, k := range domain.Kinds {
		items[k] = make(map[string]domain.CatalogItem)
	}
	return &MemoryStore{
		items:    items,
		users:    make(map[string]domain.UserProfile),
		sessions: make(map[sessionKey]*domain.Session),
	}
}

func (s *MemoryStore) collection(kind domain.Kind) (map[string]domain.CatalogItem, error) {
	c, ok := s.items[kind]
	if !ok {
		return nil, fmt.Errorf("%w: unknown catalog kind %q", domain.ErrInvalidInput, kind)
	}
	return c, nil
}

// ListItems returns items ordered by id so tests see a stable order.
func (s *MemoryStore) ListItems(ctx context.Context, kind domain.Kind) ([]domain.CatalogItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, err := s.collection(kind)
	if err != nil {
		return nil, err
	}
	items := make([]domain.CatalogItem, 0, len(c))
	for _, item := range c {
		items = append(items, cloneItem(item))
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return items, nil
}

func (s *MemoryStore) GetItem(ctx context.Context, kind domain.Kind, id string) (domain.CatalogItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, err := s.collection(kind)
	if err != nil {
		return domain.CatalogItem{}, err
	}
	item, ok := c[id]
	if !ok {
		return domain.CatalogItem{}, fmt.Errorf("%s %s: %w", kind, id, domain.ErrNotFound)
	}
	return cloneItem(item), nil
}

func (s *MemoryStore) PutItem(ctx context.Context, item domain.CatalogItem) (domain.CatalogItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, err := s.collection(item.Kind)
	if err != nil {
		return item, err
	}
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	if item.Embedding == nil {
		if prev, ok := c[item.ID]; ok {
			item.Embedding = prev.Embedding
		}
	}
	item.UpdatedAt = time.Now().UTC()
	c[item.ID] = cloneItem(item)
	return cloneItem(item), nil
}

func (s *MemoryStore) SaveEmbedding(ctx context.Context, kind domain.Kind, id string, vector []float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, err := s.collection(kind)
	if err != nil {
		return err
	}
	item, ok := c[id]
	if !ok {
		return fmt.Errorf("%s %s: %w", kind, id, domain.ErrNotFound)
	}
	item.Embedding = append([]float32(nil), vector...)
	item.UpdatedAt = time.Now().UTC()
	c[id] = item
	return nil
}

func (s *MemoryStore) EmbeddingSpace(ctx context.Context) (domain.EmbeddingSpace, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.space, nil
}

func (s *MemoryStore) SetEmbeddingSpace(ctx context.Context, space domain.EmbeddingSpace) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.space = space
	return nil
}

func (s *MemoryStore) GetUser(ctx context.Context, id string) (domain.UserProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[id]
	if !ok {
		return domain.UserProfile{}, fmt.Errorf("user %s: %w", id, domain.ErrNotFound)
	}
	return user, nil
}

func (s *MemoryStore) PutUser(ctx context.Context, user domain.UserProfile) error {
	if user.ID == "" {
		return fmt.Errorf("%w: user id is required", domain.ErrInvalidInput)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	user.CompletedTrainings = append([]string(nil), user.CompletedTrainings...)
	s.users[user.ID] = user
	return nil
}

func (s *MemoryStore) LoadSession(ctx context.Context, userID, sessionID string) (*domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[sessionKey{userID, sessionID}]
	if !ok {
		return nil, fmt.Errorf("session %s: %w", sessionID, domain.ErrNotFound)
	}
	return cloneSession(session), nil
}

func (s *MemoryStore) CreateSession(ctx context.Context, session *domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := sessionKey{session.UserID, session.SessionID}
	if _, exists := s.sessions[key]; exists {
		return fmt.Errorf("session %s already exists", session.SessionID)
	}
	now := time.Now().UTC()
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}
	session.UpdatedAt = now
	if session.Turns == nil {
		session.Turns = []domain.Turn{}
	}
	s.sessions[key] = cloneSession(session)
	return nil
}

func (s *MemoryStore) AppendTurn(ctx context.Context, userID, sessionID string, role domain.Role, content string) (domain.Turn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[sessionKey{userID, sessionID}]
	if !ok {
		return domain.Turn{}, fmt.Errorf("session %s: %w", sessionID, domain.ErrNotFound)
	}
	turn := domain.Turn{
		ID:        uuid.NewString(),
		Role:      role,
		Content:   content,
		Timestamp: time.Now().UTC(),
	}
	session.Turns = append(session.Turns, turn)
	session.UpdatedAt = turn.Timestamp
	return turn, nil
}

func (s *MemoryStore) UpdateContext(ctx context.Context, userID, sessionID string, sc domain.SessionContext) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[sessionKey{userID, sessionID}]
	if !ok {
		return fmt.Errorf("session %s: %w", sessionID, domain.ErrNotFound)
	}
	session.Context = sc
	session.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *MemoryStore) DeleteSession(ctx context.Context, userID, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionKey{userID, sessionID})
	return nil
}

func (s *MemoryStore) Close() error {
	return nil
}

func cloneItem(item domain.CatalogItem) domain.CatalogItem {
	item.Audience = append([]string(nil), item.Audience...)
	item.Prerequisites = append([]string(nil), item.Prerequisites...)
	item.Technologies = append([]string(nil), item.Technologies...)
	item.KeyFeatures = append([]string(nil), item.KeyFeatures...)
	if item.Embedding != nil {
		item.Embedding = append([]float32(nil), item.Embedding...)
	}
	return item
}

func cloneSession(session *domain.Session) *domain.Session {
	cp := *session
	cp.Turns = append([]domain.Turn{}, session.Turns...)
	return &cp
}
