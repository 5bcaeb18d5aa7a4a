package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/starford/perthro/internal/apperr"
	"github.com/starford/perthro/internal/models"
)

// timeLayout is fixed-width so that stored timestamps order
// lexicographically; RFC3339Nano trims trailing zeros and does not.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

const particleColumns = `id, owner, created_at, updated_at, title, body, tags, refs`

// InsertParticle persists a new particle.
func (db *DB) InsertParticle(p models.Particle) error {
	_, err := db.conn.Exec(`
		INSERT INTO particles (`+particleColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, p.ID, p.Owner, formatTime(p.CreatedAt), formatTime(p.UpdatedAt),
		p.Title, p.Body, marshalList(p.Tags), marshalList(p.References))
	if err != nil {
		return fmt.Errorf("store: insert particle: %w", err)
	}
	return nil
}

// GetParticle fetches one particle by id, scoped to its owner. A particle
// belonging to another owner is indistinguishable from a missing one.
func (db *DB) GetParticle(id, owner string) (*models.Particle, error) {
	row := db.conn.QueryRow(`
		SELECT `+particleColumns+`
		FROM particles WHERE id = ? AND owner = ?
	`, id, owner)
	p, err := scanParticle(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.ErrNotFound
		}
		return nil, fmt.Errorf("store: get particle: %w", err)
	}
	return p, nil
}

// UpdateParticle rewrites title, body, tags, refs, and updated_at of an
// existing particle. created_at is immutable and never touched.
func (db *DB) UpdateParticle(p models.Particle) error {
	res, err := db.conn.Exec(`
		UPDATE particles
		SET title = ?, body = ?, tags = ?, refs = ?, updated_at = ?
		WHERE id = ? AND owner = ?
	`, p.Title, p.Body, marshalList(p.Tags), marshalList(p.References),
		formatTime(p.UpdatedAt), p.ID, p.Owner)
	if err != nil {
		return fmt.Errorf("store: update particle: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

// DeleteParticle removes a particle. Deleting a particle the owner does
// not hold reports not-found.
func (db *DB) DeleteParticle(id, owner string) error {
	res, err := db.conn.Exec(`DELETE FROM particles WHERE id = ? AND owner = ?`, id, owner)
	if err != nil {
		return fmt.Errorf("store: delete particle: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanParticle(r rowScanner) (*models.Particle, error) {
	var (
		p                  models.Particle
		created, updated   string
		tagsJSON, refsJSON string
	)
	if err := r.Scan(&p.ID, &p.Owner, &created, &updated, &p.Title, &p.Body, &tagsJSON, &refsJSON); err != nil {
		return nil, err
	}
	p.CreatedAt = parseTime(created)
	p.UpdatedAt = parseTime(updated)
	p.Tags = unmarshalList(tagsJSON)
	p.References = unmarshalList(refsJSON)
	return &p, nil
}

func collectParticles(rows *sql.Rows) ([]models.Particle, error) {
	defer rows.Close()
	var out []models.Particle
	for rows.Next() {
		p, err := scanParticle(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func marshalList(in []string) string {
	if in == nil {
		in = []string{}
	}
	b, _ := json.Marshal(in)
	return string(b)
}

func unmarshalList(s string) []string {
	var out []string
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return []string{}
	}
	if out == nil {
		out = []string{}
	}
	return out
}
