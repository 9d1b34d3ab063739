package domain

import (
	"fmt"
	"strings"
	"time"
)

// Kind names a catalog collection.
type Kind string

const (
	KindTraining Kind = "training"
	KindProject  Kind = "project"
)

// Kinds lists every catalog collection in indexing order.
var Kinds = []Kind{KindTraining, KindProject}

// ParseKind accepts singular and plural spellings ("trainings", "project").
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "training", "trainings":
		return KindTraining, nil
	case "project", "projects":
		return KindProject, nil
	}
	return "", fmt.Errorf("%w: unknown catalog kind %q", ErrInvalidInput, s)
}

// Plural returns the collection name used in prompts and routes.
func (k Kind) Plural() string {
	return string(k) + "s"
}

// CatalogItem is a training or a project eligible for retrieval.
// Training-only and project-only fields are left empty on the other kind.
type CatalogItem struct {
	Kind        Kind   `json:"kind" yaml:"-"`
	ID          string `json:"id" yaml:"id"`
	Title       string `json:"title" yaml:"title"`
	Description string `json:"description" yaml:"description"`

	Duration      string   `json:"duration,omitempty" yaml:"duration,omitempty"`
	Audience      []string `json:"audience,omitempty" yaml:"audience,omitempty"`
	Prerequisites []string `json:"prerequisites,omitempty" yaml:"prerequisites,omitempty"`
	TrainingType  string   `json:"training_type,omitempty" yaml:"training_type,omitempty"`

	Status       string   `json:"status,omitempty" yaml:"status,omitempty"`
	Department   string   `json:"department,omitempty" yaml:"department,omitempty"`
	Technologies []string `json:"technologies,omitempty" yaml:"technologies,omitempty"`
	KeyFeatures  []string `json:"key_features,omitempty" yaml:"key_features,omitempty"`

	Embedding []float32 `json:"embedding,omitempty" yaml:"-"`
	UpdatedAt time.Time `json:"updated_at" yaml:"-"`
}

// Indexed reports whether the item carries an embedding.
func (i CatalogItem) Indexed() bool {
	return len(i.Embedding) > 0
}

// ScoredItem is a catalog item with its relevance score.
type ScoredItem struct {
	Item  CatalogItem `json:"item"`
	Score float64     `json:"score"`
}

// IndexFailure records one item that could not be indexed.
type IndexFailure struct {
	ItemID string
	Title  string
	Err    error
}

// IndexReport is the tagged result of an indexing run.
type IndexReport struct {
	Kind      Kind
	Dimension int
	Succeeded []string
	Failed    []IndexFailure
}

// Total returns the number of items the run attempted.
func (r *IndexReport) Total() int {
	return len(r.Succeeded) + len(r.Failed)
}

// EmbeddingSpace fingerprints the model that produced the stored vectors.
// Vectors from different spaces are not comparable. The zero value means
// nothing has been recorded yet.
type EmbeddingSpace struct {
	Model     string `json:"model"`
	Dimension int    `json:"dimension"`
}
