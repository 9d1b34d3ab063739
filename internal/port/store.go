package port

import (
	"context"

	"advisor/internal/domain"
)

// CatalogStore persists trainings and projects.
type CatalogStore interface {
	ListItems(ctx context.Context, kind domain.Kind) ([]domain.CatalogItem, error)

	GetItem(ctx context.Context, kind domain.Kind, id string) (domain.CatalogItem, error)

	// PutItem creates or replaces an item and returns it as stored. A
	// missing ID is generated.
	PutItem(ctx context.Context, item domain.CatalogItem) (domain.CatalogItem, error)

	// SaveEmbedding overwrites the vector stored on an existing item.
	SaveEmbedding(ctx context.Context, kind domain.Kind, id string, vector []float32) error
}

// EmbeddingSpaceStore records which embedding model produced the stored
// vectors. A zero EmbeddingSpace means none is recorded.
type EmbeddingSpaceStore interface {
	EmbeddingSpace(ctx context.Context) (domain.EmbeddingSpace, error)

	SetEmbeddingSpace(ctx context.Context, space domain.EmbeddingSpace) error
}

// IndexStore is what indexing needs: the catalog and its fingerprint.
type IndexStore interface {
	CatalogStore
	EmbeddingSpaceStore
}

// SessionStore persists conversation sessions.
type SessionStore interface {
	// LoadSession returns domain.ErrNotFound when the session does not exist.
	LoadSession(ctx context.Context, userID, sessionID string) (*domain.Session, error)

	CreateSession(ctx context.Context, session *domain.Session) error

	// AppendTurn appends one turn and returns the stored turn.
	AppendTurn(ctx context.Context, userID, sessionID string, role domain.Role, content string) (domain.Turn, error)

	UpdateContext(ctx context.Context, userID, sessionID string, sc domain.SessionContext) error

	// DeleteSession is a no-op for a missing session.
	DeleteSession(ctx context.Context, userID, sessionID string) error
}

// UserStore persists user profiles.
type UserStore interface {
	GetUser(ctx context.Context, id string) (domain.UserProfile, error)

	PutUser(ctx context.Context, user domain.UserProfile) error
}

// Store bundles every persistence port.
type Store interface {
	IndexStore
	SessionStore
	UserStore
	Close() error
}
