package store

import (
	"context"
	"encoding/json"
	"fmt"

	"go.etcd.io/bbolt"

	"advisor/internal/domain"
)

// CurrentSchemaVersion is the current schema version.
// Increment this when making breaking changes to the storage format.
const CurrentSchemaVersion = 1

var (
	keySchemaVersion  = []byte("schema_version")
	keyEmbeddingSpace = []byte("embedding_space")
)

// SchemaInfo stores the schema version and the embedding fingerprint.
type SchemaInfo struct {
	Version int                   `json:"version"`
	Space   domain.EmbeddingSpace `json:"space"`
}

// GetSchemaInfo retrieves the current schema info from the database.
func (s *BoltStore) GetSchemaInfo() (*SchemaInfo, error) {
	var info SchemaInfo
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketMeta)
		if b == nil {
			return nil
		}

		if data := b.Get(keySchemaVersion); data != nil {
			if err := json.Unmarshal(data, &info.Version); err != nil {
				return fmt.Errorf("corrupt schema version: %w", err)
			}
		}
		if data := b.Get(keyEmbeddingSpace); data != nil {
			if err := json.Unmarshal(data, &info.Space); err != nil {
				return fmt.Errorf("corrupt embedding fingerprint: %w", err)
			}
		}
		return nil
	})
	return &info, err
}

// EmbeddingSpace returns the recorded fingerprint, or the zero value.
func (s *BoltStore) EmbeddingSpace(ctx context.Context) (domain.EmbeddingSpace, error) {
	info, err := s.GetSchemaInfo()
	if err != nil {
		return domain.EmbeddingSpace{}, err
	}
	return info.Space, nil
}

// SetEmbeddingSpace records the fingerprint of the vectors just written.
func (s *BoltStore) SetEmbeddingSpace(ctx context.Context, space domain.EmbeddingSpace) error {
	data, err := json.Marshal(space)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketMeta).Put(keyEmbeddingSpace, data)
	})
}

// MigrationResult describes the result of a migration check.
type MigrationResult struct {
	NeedsMigration bool
	NeedsRebuild   bool
	OldVersion     int
	NewVersion     int
	Reason         string
}

// CheckMigration compares the stored schema and fingerprint with the
// embedding model about to be used.
func (s *BoltStore) CheckMigration(model string) (*MigrationResult, error) {
	info, err := s.GetSchemaInfo()
	if err != nil {
		return nil, fmt.Errorf("failed to get schema info: %w", err)
	}

	result := &MigrationResult{
		OldVersion: info.Version,
		NewVersion: CurrentSchemaVersion,
	}

	switch {
	case info.Version == 0:
		result.NeedsMigration = true
		result.Reason = "initializing schema version"
	case info.Version < CurrentSchemaVersion:
		result.NeedsMigration = true
		result.Reason = fmt.Sprintf("schema upgrade from v%d to v%d", info.Version, CurrentSchemaVersion)
	case info.Version > CurrentSchemaVersion:
		result.NeedsRebuild = true
		result.Reason = fmt.Sprintf("database created by newer version (v%d > v%d)", info.Version, CurrentSchemaVersion)
		return result, nil
	}

	if info.Space.Model != "" && info.Space.Model != model {
		result.NeedsRebuild = true
		result.Reason = fmt.Sprintf("embedding model changed from %s to %s", info.Space.Model, model)
	}

	return result, nil
}

// Migrate performs any necessary schema migrations.
func (s *BoltStore) Migrate() error {
	info, err := s.GetSchemaInfo()
	if err != nil {
		return err
	}
	if info.Version > CurrentSchemaVersion {
		return fmt.Errorf("database schema v%d is newer than supported v%d", info.Version, CurrentSchemaVersion)
	}

	for v := info.Version; v < CurrentSchemaVersion; v++ {
		if err := s.runMigration(v, v+1); err != nil {
			return fmt.Errorf("migration from v%d to v%d failed: %w", v, v+1, err)
		}
	}

	data, err := json.Marshal(CurrentSchemaVersion)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketMeta).Put(keySchemaVersion, data)
	})
}

func (s *BoltStore) runMigration(from, to int) error {
	switch {
	case from == 0 && to == 1:
		// v1 introduced the meta bucket, created on open.
		return nil
	default:
		return nil
	}
}

// ClearEmbeddings drops every stored vector and the fingerprint, keeping the
// catalog items themselves. Used by a rebuild.
func (s *BoltStore) ClearEmbeddings() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketTrainings, bucketProjects} {
			b := tx.Bucket(name)
			updates := make(map[string][]byte)
			err := b.ForEach(func(k, v []byte) error {
				var item domain.CatalogItem
				if err := json.Unmarshal(v, &item); err != nil {
					return fmt.Errorf("corrupt item %s: %w", k, err)
				}
				if item.Embedding == nil {
					return nil
				}
				item.Embedding = nil
				data, err := json.Marshal(item)
				if err != nil {
					return err
				}
				updates[string(k)] = data
				return nil
			})
			if err != nil {
				return err
			}
			// writes happen after the scan; bbolt cursors are invalidated by mutation
			for k, data := range updates {
				if err := b.Put([]byte(k), data); err != nil {
					return err
				}
			}
		}
		return tx.Bucket(bucketMeta).Delete(keyEmbeddingSpace)
	})
}

// NeedsRebuild checks if stored embeddings are incompatible with model.
func (s *BoltStore) NeedsRebuild(model string) (bool, string, error) {
	result, err := s.CheckMigration(model)
	if err != nil {
		return false, "", err
	}
	return result.NeedsRebuild, result.Reason, nil
}
