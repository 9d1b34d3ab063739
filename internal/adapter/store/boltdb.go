package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.etcd.io/bbolt"

	"advisor/internal/domain"
	"advisor/internal/port"
)

var (
	bucketTrainings = []byte("trainings")
	bucketProjects  = []byte("projects")
	bucketUsers     = []byte("users")
	bucketSessions  = []byte("sessions")
	bucketMeta      = []byte("meta")
)

var allBuckets = [][]byte{bucketTrainings, bucketProjects, bucketUsers, bucketSessions, bucketMeta}

// BoltStore persists the catalog, user profiles and chat sessions in one
// bbolt file. Values are JSON documents keyed by id.
type BoltStore struct {
	db  *bbolt.DB
	now func() time.Time
}

var _ port.Store = (*BoltStore)(nil)

func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, b := range allBuckets {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", b, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStore{db: db, now: time.Now}, nil
}

func (s *BoltStore) DB() *bbolt.DB {
	return s.db
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}

func catalogBucket(kind domain.Kind) ([]byte, error) {
	switch kind {
	case domain.KindTraining:
		return bucketTrainings, nil
	case domain.KindProject:
		return bucketProjects, nil
	}
	return nil, fmt.Errorf("%w: unknown catalog kind %q", domain.ErrInvalidInput, kind)
}

func (s *BoltStore) ListItems(ctx context.Context, kind domain.Kind) ([]domain.CatalogItem, error) {
	name, err := catalogBucket(kind)
	if err != nil {
		return nil, err
	}

	var items []domain.CatalogItem
	err = s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(name).ForEach(func(k, v []byte) error {
			var item domain.CatalogItem
			if err := json.Unmarshal(v, &item); err != nil {
				return fmt.Errorf("corrupt %s %s: %w", kind, k, err)
			}
			item.Kind = kind
			items = append(items, item)
			return nil
		})
	})
	return items, err
}

func (s *BoltStore) GetItem(ctx context.Context, kind domain.Kind, id string) (domain.CatalogItem, error) {
	name, err := catalogBucket(kind)
	if err != nil {
		return domain.CatalogItem{}, err
	}

	var item domain.CatalogItem
	err = s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(name).Get([]byte(id))
		if data == nil {
			return fmt.Errorf("%s %s: %w", kind, id, domain.ErrNotFound)
		}
		return json.Unmarshal(data, &item)
	})
	item.Kind = kind
	return item, err
}

// PutItem creates or replaces an item. An item without id gets a new uuid
// and an item stored without embedding keeps the vector already on disk.
func (s *BoltStore) PutItem(ctx context.Context, item domain.CatalogItem) (domain.CatalogItem, error) {
	name, err := catalogBucket(item.Kind)
	if err != nil {
		return item, err
	}
	if item.ID == "" {
		item.ID = uuid.NewString()
	}

	err = s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(name)
		if item.Embedding == nil {
			if existing := b.Get([]byte(item.ID)); existing != nil {
				var prev domain.CatalogItem
				if err := json.Unmarshal(existing, &prev); err == nil {
					item.Embedding = prev.Embedding
				}
			}
		}
		item.UpdatedAt = s.now().UTC()
		data, err := json.Marshal(item)
		if err != nil {
			return err
		}
		return b.Put([]byte(item.ID), data)
	})
	return item, err
}

func (s *BoltStore) SaveEmbedding(ctx context.Context, kind domain.Kind, id string, vector []float32) error {
	name, err := catalogBucket(kind)
	if err != nil {
		return err
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(name)
		data := b.Get([]byte(id))
		if data == nil {
			return fmt.Errorf("%s %s: %w", kind, id, domain.ErrNotFound)
		}
		var item domain.CatalogItem
		if err := json.Unmarshal(data, &item); err != nil {
			return err
		}
		item.Embedding = vector
		item.UpdatedAt = s.now().UTC()
		out, err := json.Marshal(item)
		if err != nil {
			return err
		}
		return b.Put([]byte(id), out)
	})
}

func (s *BoltStore) GetUser(ctx context.Context, id string) (domain.UserProfile, error) {
	var user domain.UserProfile
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketUsers).Get([]byte(id))
		if data == nil {
			return fmt.Errorf("user %s: %w", id, domain.ErrNotFound)
		}
		return json.Unmarshal(data, &user)
	})
	return user, err
}

func (s *BoltStore) PutUser(ctx context.Context, user domain.UserProfile) error {
	if user.ID == "" {
		return fmt.Errorf("%w: user id is required", domain.ErrInvalidInput)
	}
	data, err := json.Marshal(user)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketUsers).Put([]byte(user.ID), data)
	})
}

// sessionKey joins the ids with a NUL byte so "a"+"bc" and "ab"+"c" differ.
func sessionKey(userID, sessionID string) []byte {
	return []byte(userID + "\x00" + sessionID)
}

func (s *BoltStore) LoadSession(ctx context.Context, userID, sessionID string) (*domain.Session, error) {
	var session domain.Session
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketSessions).Get(sessionKey(userID, sessionID))
		if data == nil {
			return fmt.Errorf("session %s: %w", sessionID, domain.ErrNotFound)
		}
		return json.Unmarshal(data, &session)
	})
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (s *BoltStore) CreateSession(ctx context.Context, session *domain.Session) error {
	now := s.now().UTC()
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}
	session.UpdatedAt = now
	if session.Turns == nil {
		session.Turns = []domain.Turn{}
	}

	data, err := json.Marshal(session)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketSessions)
		key := sessionKey(session.UserID, session.SessionID)
		if b.Get(key) != nil {
			return fmt.Errorf("session %s already exists", session.SessionID)
		}
		return b.Put(key, data)
	})
}

// AppendTurn reads, appends and writes back inside one write transaction, so
// concurrent appends never lose a turn.
func (s *BoltStore) AppendTurn(ctx context.Context, userID, sessionID string, role domain.Role, content string) (domain.Turn, error) {
	turn := domain.Turn{
		ID:        uuid.NewString(),
		Role:      role,
		Content:   content,
		Timestamp: s.now().UTC(),
	}
	err := s.updateSession(userID, sessionID, func(session *domain.Session) {
		session.Turns = append(session.Turns, turn)
	})
	return turn, err
}

func (s *BoltStore) UpdateContext(ctx context.Context, userID, sessionID string, sc domain.SessionContext) error {
	return s.updateSession(userID, sessionID, func(session *domain.Session) {
		session.Context = sc
	})
}

func (s *BoltStore) updateSession(userID, sessionID string, fn func(*domain.Session)) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketSessions)
		key := sessionKey(userID, sessionID)
		data := b.Get(key)
		if data == nil {
			return fmt.Errorf("session %s: %w", sessionID, domain.ErrNotFound)
		}
		var session domain.Session
		if err := json.Unmarshal(data, &session); err != nil {
			return err
		}
		fn(&session)
		session.UpdatedAt = s.now().UTC()
		out, err := json.Marshal(session)
		if err != nil {
			return err
		}
		return b.Put(key, out)
	})
}

func (s *BoltStore) DeleteSession(ctx context.Context, userID, sessionID string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketSessions).Delete(sessionKey(userID, sessionID))
	})
}
