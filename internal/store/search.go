package store

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/starford/perthro/internal/models"
)

const prefixedColumns = `p.id, p.owner, p.created_at, p.updated_at, p.title, p.body, p.tags, p.refs`

// ListByOwner returns one page of an owner's particles sorted by the
// whitelisted column, newest first.
func (db *DB) ListByOwner(owner, sortBy string, limit, offset int) ([]models.Particle, error) {
	rows, err := db.conn.Query(fmt.Sprintf(`
		SELECT %s FROM particles
		WHERE owner = ?
		ORDER BY %s DESC
		LIMIT ? OFFSET ?
	`, particleColumns, safeSort(sortBy)), owner, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("store: list by owner: %w", err)
	}
	return collectParticles(rows)
}

// CountByOwner returns the size of an owner's collection.
func (db *DB) CountByOwner(owner string) (int, error) {
	var n int
	err := db.conn.QueryRow(`SELECT COUNT(*) FROM particles WHERE owner = ?`, owner).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("store: count by owner: %w", err)
	}
	return n, nil
}

// SearchIndexed runs an exact phrase match against the FTS5 index over
// title, body, and tags, ranked by bm25 relevance (lower is better) with
// the sort column as tiebreak. It returns ErrIndexUnavailable when FTS5
// is absent or the index lookup fails at runtime; callers fall back to
// SearchSubstring.
func (db *DB) SearchIndexed(owner, query, sortBy string, limit, offset int) ([]models.Particle, int, error) {
	if !db.fts {
		return nil, 0, ErrIndexUnavailable
	}
	phrase := `"` + query + `"`

	var total int
	err := db.conn.QueryRow(`
		SELECT COUNT(*)
		FROM particles_fts
		JOIN particles p ON particles_fts.id = p.id
		WHERE particles_fts MATCH ? AND p.owner = ?
	`, phrase, owner).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: count: %v", ErrIndexUnavailable, err)
	}

	rows, err := db.conn.Query(fmt.Sprintf(`
		SELECT %s
		FROM particles_fts
		JOIN particles p ON particles_fts.id = p.id
		WHERE particles_fts MATCH ? AND p.owner = ?
		ORDER BY bm25(particles_fts) ASC, p.%s DESC
		LIMIT ? OFFSET ?
	`, prefixedColumns, safeSort(sortBy)), phrase, owner, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: match: %v", ErrIndexUnavailable, err)
	}
	out, err := collectParticles(rows)
	if err != nil {
		return nil, 0, fmt.Errorf("store: indexed search: %w", err)
	}
	return out, total, nil
}

// likeRankExpr weights substring hits: title 2.0, tags 1.0, body 0.5,
// additive across fields.
const likeRankExpr = `
	(CASE WHEN title LIKE ? THEN 2.0 ELSE 0 END) +
	(CASE WHEN tags  LIKE ? THEN 1.0 ELSE 0 END) +
	(CASE WHEN body  LIKE ? THEN 0.5 ELSE 0 END)`

// SearchSubstring is the LIKE fallback: a row qualifies when title, body,
// or serialized tags contain the query, ranked by the weighted field
// score with the sort column as tiebreak.
func (db *DB) SearchSubstring(owner, query, sortBy string, limit, offset int) ([]models.Particle, int, error) {
	like := "%" + query + "%"

	var total int
	err := db.conn.QueryRow(`
		SELECT COUNT(*)
		FROM particles
		WHERE owner = ? AND (title LIKE ? OR body LIKE ? OR tags LIKE ?)
	`, owner, like, like, like).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("store: substring count: %w", err)
	}

	rows, err := db.conn.Query(fmt.Sprintf(`
		SELECT %s
		FROM particles
		WHERE owner = ? AND (title LIKE ? OR body LIKE ? OR tags LIKE ?)
		ORDER BY %s DESC, %s DESC
		LIMIT ? OFFSET ?
	`, particleColumns, likeRankExpr, safeSort(sortBy)),
		owner, like, like, like, like, like, like, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("store: substring search: %w", err)
	}
	out, err := collectParticles(rows)
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// FetchRecentByOwner returns up to limit particles of an owner, most
// recently updated first. This bounds the fuzzy scoring candidate set.
func (db *DB) FetchRecentByOwner(owner string, limit int) ([]models.Particle, error) {
	rows, err := db.conn.Query(`
		SELECT `+particleColumns+`
		FROM particles
		WHERE owner = ?
		ORDER BY updated_at DESC
		LIMIT ?
	`, owner, limit)
	if err != nil {
		return nil, fmt.Errorf("store: fetch recent: %w", err)
	}
	return collectParticles(rows)
}

// ByTag returns one page of particles whose tag set contains tag, newest
// first, plus the total match count.
func (db *DB) ByTag(owner, tag string, limit, offset int) ([]models.Particle, int, error) {
	like := `%"` + tag + `"%`

	var total int
	err := db.conn.QueryRow(`
		SELECT COUNT(*) FROM particles WHERE owner = ? AND tags LIKE ?
	`, owner, like).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("store: count by tag: %w", err)
	}

	rows, err := db.conn.Query(`
		SELECT `+particleColumns+`
		FROM particles
		WHERE owner = ? AND tags LIKE ?
		ORDER BY updated_at DESC
		LIMIT ? OFFSET ?
	`, owner, like, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("store: by tag: %w", err)
	}
	out, err := collectParticles(rows)
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// ByReference returns the particles whose reference set contains targetID.
func (db *DB) ByReference(owner, targetID string) ([]models.Particle, error) {
	rows, err := db.conn.Query(`
		SELECT `+particleColumns+`
		FROM particles
		WHERE owner = ? AND refs LIKE ?
	`, owner, `%"`+targetID+`"%`)
	if err != nil {
		return nil, fmt.Errorf("store: by reference: %w", err)
	}
	return collectParticles(rows)
}

// AllTags returns the sorted distinct tags across an owner's particles.
func (db *DB) AllTags(owner string) ([]string, error) {
	rows, err := db.conn.Query(`SELECT tags FROM particles WHERE owner = ?`, owner)
	if err != nil {
		return nil, fmt.Errorf("store: all tags: %w", err)
	}
	defer rows.Close()

	seen := make(map[string]struct{})
	for rows.Next() {
		var tagsJSON string
		if err := rows.Scan(&tagsJSON); err != nil {
			return nil, err
		}
		var tags []string
		if err := json.Unmarshal([]byte(tagsJSON), &tags); err != nil {
			continue
		}
		for _, t := range tags {
			seen[t] = struct{}{}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	out := make([]string, 0, len(seen))
	for t := range seen {
		out = append(out, t)
	}
	sort.Strings(out)
	return out, nil
}

// Count returns the number of an owner's particles matching query, using
// the indexed path when possible and the substring scan otherwise. An
// empty query counts the whole collection. The query must already be
// normalized.
func (db *DB) Count(owner, query string) (int, error) {
	if query == "" {
		return db.CountByOwner(owner)
	}
	if db.fts {
		var total int
		err := db.conn.QueryRow(`
			SELECT COUNT(*)
			FROM particles_fts
			JOIN particles p ON particles_fts.id = p.id
			WHERE particles_fts MATCH ? AND p.owner = ?
		`, `"`+query+`"`, owner).Scan(&total)
		if err == nil {
			return total, nil
		}
		// Index lookup failed at runtime; fall through to the scan.
	}
	like := "%" + query + "%"
	var total int
	err := db.conn.QueryRow(`
		SELECT COUNT(*)
		FROM particles
		WHERE owner = ? AND (title LIKE ? OR body LIKE ? OR tags LIKE ?)
	`, owner, like, like, like).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("store: count: %w", err)
	}
	return total, nil
}
