// Package models defines the domain types for Perthro.
package models

import "time"

// Particle represents a stored note: free text plus the structured
// metadata (tags, references) derived from its body.
type Particle struct {
	ID         string    `json:"id"`
	Owner      string    `json:"-"`
	Title      string    `json:"title"`
	Body       string    `json:"body"`
	Tags       []string  `json:"tags"`
	References []string  `json:"particle_references"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// ParticleSummary is the read projection returned by list and search
// operations. Excerpt is the body capped at 200 characters.
type ParticleSummary struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Body       string    `json:"body"`
	Excerpt    string    `json:"excerpt"`
	Tags       []string  `json:"tags"`
	References []string  `json:"particle_references"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
