// Package particleservice implements particle CRUD on top of the store,
// keeping derived tags and references in sync with the body text.
package particleservice

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/starford/perthro/internal/models"
	"github.com/starford/perthro/internal/parser"
	"github.com/starford/perthro/internal/store"
)

// Service coordinates parsing and storage for particle mutations.
type Service struct {
	db *store.DB
}

// NewService creates a new particle service.
func NewService(db *store.DB) *Service {
	return &Service{db: db}
}

// Create assigns an id and timestamps, derives tags and references from
// the body, and persists the particle.
func (s *Service) Create(_ context.Context, owner, title, body string) (*models.Particle, error) {
	now := time.Now()
	tags, refs := parser.ExtractTagsAndReferences(body)

	p := models.Particle{
		ID:         uuid.NewString(),
		Owner:      owner,
		Title:      title,
		Body:       body,
		Tags:       tags,
		References: refs,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if p.Tags == nil {
		p.Tags = []string{}
	}
	if p.References == nil {
		p.References = []string{}
	}
	if err := s.db.InsertParticle(p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Get fetches one particle, scoped to its owner.
func (s *Service) Get(_ context.Context, id, owner string) (*models.Particle, error) {
	return s.db.GetParticle(id, owner)
}

// Update replaces title and/or body of an existing particle. A nil field
// keeps the current value. A body change recomputes tags and references;
// updated_at is bumped on every update, created_at never changes.
func (s *Service) Update(_ context.Context, id, owner string, title, body *string) (*models.Particle, error) {
	p, err := s.db.GetParticle(id, owner)
	if err != nil {
		return nil, err
	}
	if title != nil {
		p.Title = *title
	}
	if body != nil {
		p.Body = *body
		tags, refs := parser.ExtractTagsAndReferences(*body)
		if tags == nil {
			tags = []string{}
		}
		if refs == nil {
			refs = []string{}
		}
		p.Tags, p.References = tags, refs
	}
	p.UpdatedAt = time.Now()

	if err := s.db.UpdateParticle(*p); err != nil {
		return nil, err
	}
	return p, nil
}

// Delete hard-deletes a particle. Another owner's id reports not-found.
func (s *Service) Delete(_ context.Context, id, owner string) error {
	return s.db.DeleteParticle(id, owner)
}

// AllTags returns the sorted distinct tags across the owner's particles.
func (s *Service) AllTags(_ context.Context, owner string) ([]string, error) {
	tags, err := s.db.AllTags(owner)
	if err != nil {
		return nil, err
	}
	if tags == nil {
		tags = []string{}
	}
	return tags, nil
}

// References returns the particles whose reference set points at id.
func (s *Service) References(_ context.Context, id, owner string) ([]models.Particle, error) {
	return s.db.ByReference(owner, id)
}

// Count returns the number of the owner's particles matching query
// (empty query counts everything). The query is normalized first.
func (s *Service) Count(_ context.Context, owner, query string) (int, error) {
	return s.db.Count(owner, parser.NormalizeQuery(query))
}
