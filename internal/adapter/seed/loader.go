// Package seed reads catalog and user seed files.
//
// A seed file is YAML with any of three top-level lists:
//
//	users:
//	  - id: u-100
//	    name: Ada Lovelace
//	    title: Engineer
//	    department: Engineering
//	    completed_trainings: [Go Fundamentals]
//	trainings:
//	  - title: Docker Basics
//	    description: Containers from scratch
//	    duration: 2 days
//	projects:
//	  - title: Apollo
//	    description: Internal platform
//	    technologies: [Go, Kubernetes]
package seed

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"advisor/internal/domain"
)

// Bundle is the parsed content of one or more seed files.
type Bundle struct {
	Users     []domain.UserProfile `yaml:"users"`
	Trainings []domain.CatalogItem `yaml:"trainings"`
	Projects  []domain.CatalogItem `yaml:"projects"`
}

// Items returns trainings then projects with Kind set.
func (b *Bundle) Items() []domain.CatalogItem {
	items := make([]domain.CatalogItem, 0, len(b.Trainings)+len(b.Projects))
	for _, t := range b.Trainings {
		t.Kind = domain.KindTraining
		items = append(items, t)
	}
	for _, p := range b.Projects {
		p.Kind = domain.KindProject
		items = append(items, p)
	}
	return items
}

// Merge appends other to b.
func (b *Bundle) Merge(other *Bundle) {
	b.Users = append(b.Users, other.Users...)
	b.Trainings = append(b.Trainings, other.Trainings...)
	b.Projects = append(b.Projects, other.Projects...)
}

// Parse decodes a seed document. Multiple YAML documents in one file are
// merged. Items without an id get one derived from kind and title, so
// importing the same file twice updates instead of duplicating.
func Parse(data []byte) (*Bundle, error) {
	bundle := &Bundle{}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	for {
		var doc Bundle
		if err := dec.Decode(&doc); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("invalid seed yaml: %w", err)
		}
		bundle.Merge(&doc)
	}

	for i, u := range bundle.Users {
		if strings.TrimSpace(u.ID) == "" {
			return nil, fmt.Errorf("%w: user %d (%s) has no id", domain.ErrInvalidInput, i, u.Name)
		}
	}
	if err := assignIDs(domain.KindTraining, bundle.Trainings); err != nil {
		return nil, err
	}
	if err := assignIDs(domain.KindProject, bundle.Projects); err != nil {
		return nil, err
	}
	return bundle, nil
}

func assignIDs(kind domain.Kind, items []domain.CatalogItem) error {
	for i := range items {
		if strings.TrimSpace(items[i].Title) == "" {
			return fmt.Errorf("%w: %s %d has no title", domain.ErrInvalidInput, kind, i)
		}
		if items[i].ID == "" {
			items[i].ID = ItemID(kind, items[i].Title)
		}
	}
	return nil
}

// ItemID derives a stable id for an item from its kind and title.
func ItemID(kind domain.Kind, title string) string {
	name := string(kind) + ":" + strings.ToLower(strings.TrimSpace(title))
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(name)).String()
}
