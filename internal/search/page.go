package search

import "github.com/starford/perthro/internal/models"

// DefaultPageSize applies when the caller passes a page size < 1.
const DefaultPageSize = 10

// excerptLen caps the body projection in summaries.
const excerptLen = 200

// Envelope is the result shape shared by every strategy.
type Envelope struct {
	Particles  []models.ParticleSummary `json:"particles"`
	Total      int                      `json:"total"`
	Page       int                      `json:"page"`
	PageSize   int                      `json:"page_size"`
	TotalPages int                      `json:"total_pages"`
	Query      string                   `json:"query"`
	Tag        string                   `json:"tag,omitempty"`
	Fuzzy      bool                     `json:"fuzzy,omitempty"`
}

func newEnvelope(rows []models.Particle, total, page, pageSize int, query string) *Envelope {
	items := make([]models.ParticleSummary, len(rows))
	for i, p := range rows {
		items[i] = summarize(p)
	}
	return &Envelope{
		Particles:  items,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages(total, pageSize),
		Query:      query,
	}
}

func summarize(p models.Particle) models.ParticleSummary {
	return models.ParticleSummary{
		ID:         p.ID,
		Title:      p.Title,
		Body:       p.Body,
		Excerpt:    excerpt(p.Body),
		Tags:       p.Tags,
		References: p.References,
		CreatedAt:  p.CreatedAt,
		UpdatedAt:  p.UpdatedAt,
	}
}

// excerpt returns the first 200 characters of body, with an ellipsis
// when truncated.
func excerpt(body string) string {
	r := []rune(body)
	if len(r) <= excerptLen {
		return body
	}
	return string(r[:excerptLen]) + "..."
}

func totalPages(total, pageSize int) int {
	return max(1, (total+pageSize-1)/pageSize)
}

// sanePage floors the page at 1 and substitutes the default page size
// for non-positive ones.
func sanePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	return page, pageSize
}

// clampPage pulls an overshooting page number back to the last page.
// The fuzzy strategy deliberately does not use this: past-the-end pages
// come back empty there.
func clampPage(page, total, pageSize int) int {
	return max(1, min(page, totalPages(total, pageSize)))
}
