package search

import (
	"sort"

	"github.com/starford/perthro/internal/fuzzy"
	"github.com/starford/perthro/internal/models"
	"github.com/starford/perthro/internal/parser"
)

const (
	// Composite score weights across title / tags / body.
	titleWeight = 0.60
	tagWeight   = 0.25
	bodyWeight  = 0.15

	// A title token within this normalized distance of a query token
	// earns the typo bonus, so "NOTEES" outranks a deep body match for
	// the query "notes".
	titleBonusThreshold = 0.25
	titleBonus          = 0.15

	// Candidates scoring at or below the floor are discarded.
	scoreFloor = 0.20

	// Body text beyond this many characters does not participate in
	// scoring; it only bounds per-candidate cost.
	bodyScoreCap = 1000
)

type scoredParticle struct {
	score    float64
	particle models.Particle
}

// fuzzySearch scores a bounded candidate window of the owner's most
// recently updated particles and pages the survivors in memory. total is
// the survivor count, which under the candidate cap can be smaller than
// the full collection's match count. The page is not clamped: requests
// past the end return an empty page.
func (e *Engine) fuzzySearch(owner, q string, page, pageSize int) (*Envelope, error) {
	page, pageSize = sanePage(page, pageSize)

	candidates, err := e.store.FetchRecentByOwner(owner, e.CandidateLimit())
	if err != nil {
		return nil, err
	}

	qTokens := parser.Tokenize(q)
	scored := make([]scoredParticle, 0, len(candidates))
	for _, p := range candidates {
		if s := scoreCandidate(q, qTokens, p); s > scoreFloor {
			scored = append(scored, scoredParticle{score: s, particle: p})
		}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].score != scored[j].score {
			return scored[i].score > scored[j].score
		}
		return scored[i].particle.UpdatedAt.After(scored[j].particle.UpdatedAt)
	})

	total := len(scored)
	start := min((page-1)*pageSize, total)
	end := min(start+pageSize, total)

	env := newEnvelope(pageSlice(scored[start:end]), total, page, pageSize, q)
	env.Fuzzy = true
	return env, nil
}

// scoreCandidate computes the composite fuzzy relevance of one particle.
func scoreCandidate(q string, qTokens []string, p models.Particle) float64 {
	titleExact := fuzzy.NormSim(q, p.Title)
	titleTokens := fuzzy.BestTokenSim(q, p.Title)

	tagSim := 0.0
	for _, tag := range p.Tags {
		if s := fuzzy.NormSim(q, tag); s > tagSim {
			tagSim = s
		}
	}

	body := p.Body
	if r := []rune(body); len(r) > bodyScoreCap {
		body = string(r[:bodyScoreCap])
	}
	bodySim := fuzzy.BestTokenSim(q, body)

	bonus := 0.0
	if fuzzy.MinTokenDistance(qTokens, parser.Tokenize(p.Title)) <= titleBonusThreshold {
		bonus = titleBonus
	}

	return titleWeight*max(titleExact, titleTokens) + bonus + tagWeight*tagSim + bodyWeight*bodySim
}

func pageSlice(scored []scoredParticle) []models.Particle {
	out := make([]models.Particle, len(scored))
	for i, s := range scored {
		out[i] = s.particle
	}
	return out
}
