// Package search turns a free-text query plus an owner's particle
// collection into a ranked, paginated result set. Three strategies
// cooperate: exact indexed search, a substring scan when the index is
// unavailable, and an in-memory fuzzy (edit-distance) search.
package search

import (
	"errors"
	"sync/atomic"

	"github.com/starford/perthro/internal/models"
	"github.com/starford/perthro/internal/parser"
	"github.com/starford/perthro/internal/store"
)

// DefaultCandidateLimit bounds how many rows the fuzzy strategy pulls
// into memory for scoring.
const DefaultCandidateLimit = 1000

// Store is the storage collaborator the engine reads from. *store.DB
// satisfies it; tests may substitute mocks.
type Store interface {
	ListByOwner(owner, sortBy string, limit, offset int) ([]models.Particle, error)
	CountByOwner(owner string) (int, error)
	SearchIndexed(owner, query, sortBy string, limit, offset int) ([]models.Particle, int, error)
	SearchSubstring(owner, query, sortBy string, limit, offset int) ([]models.Particle, int, error)
	FetchRecentByOwner(owner string, limit int) ([]models.Particle, error)
	ByTag(owner, tag string, limit, offset int) ([]models.Particle, int, error)
}

var _ Store = (*store.DB)(nil)

// Engine dispatches queries across the search strategies. It holds no
// state beyond its configuration; every call is re-derivable from its
// inputs and the storage snapshot. candidateLimit is atomic because the
// config watcher rewrites it while request goroutines read it.
type Engine struct {
	store          Store
	candidateLimit atomic.Int64
}

// NewEngine creates a search engine over st. candidateLimit bounds the
// fuzzy candidate fetch; values < 1 select the default.
func NewEngine(st Store, candidateLimit int) *Engine {
	e := &Engine{store: st}
	e.SetCandidateLimit(candidateLimit)
	return e
}

// SetCandidateLimit adjusts the fuzzy candidate bound (used by config
// reload). Values < 1 restore the default. Safe to call concurrently
// with in-flight searches.
func (e *Engine) SetCandidateLimit(n int) {
	if n < 1 {
		n = DefaultCandidateLimit
	}
	e.candidateLimit.Store(int64(n))
}

// CandidateLimit returns the current fuzzy candidate bound.
func (e *Engine) CandidateLimit() int {
	return int(e.candidateLimit.Load())
}

// List returns one page of the owner's collection sorted by the
// whitelisted column descending. The page number is clamped into
// [1, total_pages].
func (e *Engine) List(owner string, page, pageSize int, sortBy string) (*Envelope, error) {
	page, pageSize = sanePage(page, pageSize)

	total, err := e.store.CountByOwner(owner)
	if err != nil {
		return nil, err
	}
	page = clampPage(page, total, pageSize)

	rows, err := e.store.ListByOwner(owner, sortBy, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, err
	}
	return newEnvelope(rows, total, page, pageSize, ""), nil
}

// Search runs the query against the owner's collection. An empty (or
// whitespace-only) query is an alias for List. fuzzy selects the
// edit-distance strategy; otherwise the indexed strategy runs, degrading
// silently to the substring scan when the index cannot serve it.
func (e *Engine) Search(owner, query string, page, pageSize int, sortBy string, fuzzy bool) (*Envelope, error) {
	q := parser.NormalizeQuery(query)
	if q == "" {
		env, err := e.List(owner, page, pageSize, sortBy)
		if err != nil {
			return nil, err
		}
		env.Query = q
		return env, nil
	}
	if fuzzy {
		return e.fuzzySearch(owner, q, page, pageSize)
	}
	return e.exactSearch(owner, q, page, pageSize, sortBy)
}

// exactSearch is the indexed strategy with its substring fallback. The
// page is clamped like the listing path; an overshooting page triggers a
// second fetch at the clamped offset.
func (e *Engine) exactSearch(owner, q string, page, pageSize int, sortBy string) (*Envelope, error) {
	page, pageSize = sanePage(page, pageSize)

	rows, total, err := e.fetchExact(owner, q, sortBy, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, err
	}
	if clamped := clampPage(page, total, pageSize); clamped != page {
		page = clamped
		rows, total, err = e.fetchExact(owner, q, sortBy, pageSize, (page-1)*pageSize)
		if err != nil {
			return nil, err
		}
	}
	return newEnvelope(rows, total, page, pageSize, q), nil
}

// fetchExact chains the indexed search into the substring scan. Index
// unavailability is a recoverable condition, not an error: it must stay
// invisible to the caller.
func (e *Engine) fetchExact(owner, q, sortBy string, limit, offset int) ([]models.Particle, int, error) {
	rows, total, err := e.store.SearchIndexed(owner, q, sortBy, limit, offset)
	if errors.Is(err, store.ErrIndexUnavailable) {
		return e.store.SearchSubstring(owner, q, sortBy, limit, offset)
	}
	return rows, total, err
}

// ByTag returns one page of particles carrying the tag, newest first,
// with the same clamping as the listing path.
func (e *Engine) ByTag(owner, tag string, page, pageSize int) (*Envelope, error) {
	page, pageSize = sanePage(page, pageSize)

	rows, total, err := e.store.ByTag(owner, tag, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, err
	}
	if clamped := clampPage(page, total, pageSize); clamped != page {
		page = clamped
		rows, total, err = e.store.ByTag(owner, tag, pageSize, (page-1)*pageSize)
		if err != nil {
			return nil, err
		}
	}
	env := newEnvelope(rows, total, page, pageSize, "")
	env.Tag = tag
	return env, nil
}
