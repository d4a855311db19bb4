// Package retrieval implements hybrid context retrieval: vector-similarity
// hits over the requirement index unioned with lexical keyword hits over the
// knowledge base, deduplicated into an ordered context bundle.
package retrieval

import (
	"context"
	"regexp"
	"strings"

	"pciassist/internal/index"
	"pciassist/internal/kb"
	"pciassist/internal/logging"
)

// NoContextSentinel is the rendered form of an empty bundle. An empty bundle
// is a valid state and must not abort the pipeline.
const NoContextSentinel = "No relevant requirements could be found."

// Method identifies how an excerpt was surfaced.
type Method string

const (
	MethodVector  Method = "vector"
	MethodKeyword Method = "keyword"
)

// Excerpt is one requirement text tagged with its source identifier and the
// retrieval method that surfaced it.
type Excerpt struct {
	ID     string
	Text   string
	Method Method
}

// ContextBundle is a deduplicated, ordered sequence of requirement excerpts:
// vector hits first in index order, then keyword hits in knowledge base
// order. A given requirement appears at most once even if both methods
// matched it.
type ContextBundle struct {
	Excerpts []Excerpt
}

// Empty reports whether no requirement was retrieved.
func (b ContextBundle) Empty() bool {
	return len(b.Excerpts) == 0
}

// IDs returns the requirement identifiers in bundle order.
func (b ContextBundle) IDs() []string {
	ids := make([]string, len(b.Excerpts))
	for i, e := range b.Excerpts {
		ids[i] = e.ID
	}
	return ids
}

// Render formats the bundle for inclusion in a prompt. An empty bundle
// renders as the sentinel text.
func (b ContextBundle) Render() string {
	if b.Empty() {
		return NoContextSentinel
	}

	sections := make([]string, len(b.Excerpts))
	for i, e := range b.Excerpts {
		sections[i] = RenderExcerpt(e.ID, e.Text)
	}
	return strings.Join(sections, "\n\n")
}

// RenderExcerpt formats a single requirement excerpt.
func RenderExcerpt(id, text string) string {
	return "--- From Requirement " + id + " ---\n" + text
}

// identifierPattern matches requirement identifiers: an optional leading
// letter, then digits, then zero or more ".digits" groups (e.g. "3",
// "3.4.1", "A1.2").
var identifierPattern = regexp.MustCompile(`^[A-Za-z]?\d+(\.\d+)*$`)

// LooksLikeRequirementID reports whether s is syntactically a requirement
// identifier.
func LooksLikeRequirementID(s string) bool {
	return identifierPattern.MatchString(s)
}

// leadingComponent returns the most significant component of a dotted
// identifier ("3.4.1" -> "3").
func leadingComponent(id string) string {
	if i := strings.IndexByte(id, '.'); i >= 0 {
		return id[:i]
	}
	return id
}

// VectorQuerier is the vector index contract the retriever relies on.
// Identifiers returned must be knowledge base keys; unknown identifiers are
// dropped with a warning rather than propagated.
type VectorQuerier interface {
	Query(ctx context.Context, text string, topK int) ([]index.Hit, error)
}

// Retriever combines vector and keyword search over a fixed knowledge base.
type Retriever struct {
	base *kb.KB
	vec  VectorQuerier
	topK int
}

// New creates a Retriever. topK bounds the number of vector hits per query.
func New(base *kb.KB, vec VectorQuerier, topK int) *Retriever {
	if topK <= 0 {
		topK = 5
	}
	return &Retriever{base: base, vec: vec, topK: topK}
}

// Retrieve returns the hybrid context bundle for a cleaned observation and
// its keyword set. Vector query failures are tolerated: the bundle then
// contains keyword hits only. Results are deterministic for identical
// inputs and index state.
func (r *Retriever) Retrieve(ctx context.Context, observation string, keywords []string) ContextBundle {
	log := logging.Get(logging.CategoryRetrieval)

	seen := make(map[string]bool)
	var excerpts []Excerpt

	hits, err := r.vec.Query(ctx, observation, r.topK)
	if err != nil {
		log.Warnw("vector query failed, continuing with keyword hits only", "err", err)
		hits = nil
	}
	for _, h := range hits {
		text, ok := r.base.Get(h.ID)
		if !ok {
			log.Warnw("vector index returned unknown requirement", "id", h.ID)
			continue
		}
		if seen[h.ID] {
			continue
		}
		seen[h.ID] = true
		excerpts = append(excerpts, Excerpt{ID: h.ID, Text: text, Method: MethodVector})
	}

	keywordIDs := r.keywordMatches(keywords)
	for _, id := range r.base.SortedIDs() {
		if !keywordIDs[id] || seen[id] {
			continue
		}
		seen[id] = true
		text, _ := r.base.Get(id)
		excerpts = append(excerpts, Excerpt{ID: id, Text: text, Method: MethodKeyword})
	}

	log.Debugw("hybrid retrieval", "vector_hits", len(hits), "total", len(excerpts))
	return ContextBundle{Excerpts: excerpts}
}

// keywordMatches returns the set of requirement identifiers matched by any
// keyword. Identifier-looking keywords match their exact requirement when it
// exists, else their leading section; free-text keywords match by
// case-insensitive substring over requirement bodies.
func (r *Retriever) keywordMatches(keywords []string) map[string]bool {
	matched := make(map[string]bool)

	for _, raw := range keywords {
		keyword := strings.TrimSpace(raw)
		if keyword == "" {
			continue
		}

		if LooksLikeRequirementID(keyword) {
			if r.base.Has(keyword) {
				matched[keyword] = true
			} else if section := leadingComponent(keyword); r.base.Has(section) {
				matched[section] = true
			}
			continue
		}

		lower := strings.ToLower(keyword)
		for _, id := range r.base.SortedIDs() {
			if matched[id] {
				continue
			}
			body, _ := r.base.Get(id)
			if strings.Contains(strings.ToLower(body), lower) {
				matched[id] = true
			}
		}
	}

	return matched
}
