// Package analysis orchestrates the per-observation pipeline: clean the raw
// cell text, expand it into search keywords, retrieve hybrid context, verify
// the primary requirement, and generate a structured recommendation. Each
// step degrades independently so a single model failure never drops a row.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"pciassist/internal/kb"
	"pciassist/internal/llm"
	"pciassist/internal/logging"
	"pciassist/internal/prompt"
	"pciassist/internal/retrieval"
)

// ============================================================================
// OBSERVATION CLEANING
// ============================================================================

var (
	observationLabel = regexp.MustCompile(`(?i)^\s*Observation:\s*`)
	actionRequired   = regexp.MustCompile(`(?i)\bAction Required\b`)
)

// CleanObservation normalizes a raw spreadsheet cell for model consumption:
// the "Observation:" label is stripped, anything from an embedded
// "Action Required" marker onward is cut, and whitespace is trimmed. An
// empty result means the row carries no analyzable content.
func CleanObservation(raw string) string {
	s := observationLabel.ReplaceAllString(raw, "")
	if loc := actionRequired.FindStringIndex(s); loc != nil {
		s = s[:loc[0]]
	}
	return strings.TrimSpace(s)
}

// DisplayObservation is the form of the observation carried into findings
// and reports: the label is stripped but embedded action text is kept.
func DisplayObservation(raw string) string {
	return strings.TrimSpace(observationLabel.ReplaceAllString(raw, ""))
}

// ============================================================================
// KEYWORD EXPANSION
// ============================================================================

// KeywordExpansion is the keyword set for one observation. Fallback is true
// when the model step failed and the keywords were tokenized locally.
type KeywordExpansion struct {
	Keywords []string
	Fallback bool
}

// splitKeywords parses a comma-separated model response into a deduplicated,
// order-preserving keyword list.
func splitKeywords(resp string) []string {
	resp = strings.ReplaceAll(resp, "*", "")

	seen := make(map[string]bool)
	var keywords []string
	for _, part := range strings.Split(resp, ",") {
		kw := strings.TrimSpace(part)
		if kw == "" || seen[kw] {
			continue
		}
		seen[kw] = true
		keywords = append(keywords, kw)
	}
	return keywords
}

var fallbackToken = regexp.MustCompile(`\w{4,}`)

// fallbackKeywords tokenizes the observation itself when expansion fails:
// lowercase words of four or more characters, first occurrence wins.
func fallbackKeywords(text string) []string {
	seen := make(map[string]bool)
	var keywords []string
	for _, tok := range fallbackToken.FindAllString(strings.ToLower(text), -1) {
		if seen[tok] {
			continue
		}
		seen[tok] = true
		keywords = append(keywords, tok)
	}
	return keywords
}

// ============================================================================
// ANALYZER
// ============================================================================

// Analyzer runs the full analysis pipeline for observation text.
type Analyzer struct {
	base      *kb.KB
	retriever *retrieval.Retriever
	client    llm.GenerationClient
}

// New wires an Analyzer. A missing knowledge base or generation client is a
// fatal precondition, not a per-row failure.
func New(base *kb.KB, retriever *retrieval.Retriever, client llm.GenerationClient) (*Analyzer, error) {
	if base == nil || base.Len() == 0 {
		return nil, errors.New("analysis: knowledge base is empty")
	}
	if retriever == nil {
		return nil, errors.New("analysis: retriever is required")
	}
	if client == nil {
		return nil, errors.New("analysis: generation client is required")
	}
	return &Analyzer{base: base, retriever: retriever, client: client}, nil
}

// AnalyzeText runs the pipeline for one raw observation. The second return
// is false when the cleaned observation is blank and no finding applies.
func (a *Analyzer) AnalyzeText(ctx context.Context, raw string) (Finding, bool) {
	cleaned := CleanObservation(raw)
	if cleaned == "" {
		return Finding{}, false
	}
	display := DisplayObservation(raw)
	log := logging.Get(logging.CategoryPipeline)

	expansion := a.expand(ctx, cleaned)
	bundle := a.retriever.Retrieve(ctx, cleaned, expansion.Keywords)

	verifiedID, verified := a.verify(ctx, bundle, cleaned)
	log.Debugw("observation analyzed",
		"keywords", len(expansion.Keywords),
		"fallback", expansion.Fallback,
		"context_ids", bundle.IDs(),
		"verified", verifiedID)

	return a.recommend(ctx, bundle, cleaned, display, verifiedID, verified), true
}

// AnalyzeRows analyzes every non-blank row in order. The result has exactly
// one finding per non-blank row.
func (a *Analyzer) AnalyzeRows(ctx context.Context, rows []string) []Finding {
	var findings []Finding
	for _, row := range rows {
		if f, ok := a.AnalyzeText(ctx, row); ok {
			findings = append(findings, f)
		}
	}
	return findings
}

// expand asks the model for search keywords, falling back to local
// tokenization on any failure or empty response.
func (a *Analyzer) expand(ctx context.Context, cleaned string) KeywordExpansion {
	resp, err := a.client.Complete(ctx, prompt.KeywordExpansion(cleaned))
	if err == nil {
		if keywords := splitKeywords(resp); len(keywords) > 0 {
			return KeywordExpansion{Keywords: keywords}
		}
	}
	if err != nil {
		logging.Get(logging.CategoryPipeline).Warnw("keyword expansion failed, tokenizing locally", "err", err)
	}
	return KeywordExpansion{Keywords: fallbackKeywords(cleaned), Fallback: true}
}

// verify asks the model for the primary requirement number and gates the
// answer on identifier syntax. Any failure simply leaves the requirement
// unverified.
func (a *Analyzer) verify(ctx context.Context, bundle retrieval.ContextBundle, cleaned string) (string, bool) {
	if bundle.Empty() {
		return "", false
	}

	resp, err := a.client.Complete(ctx, prompt.RequirementVerification(bundle.Render(), cleaned))
	if err != nil {
		logging.Get(logging.CategoryPipeline).Warnw("requirement verification failed", "err", err)
		return "", false
	}

	id := strings.Trim(strings.TrimSpace(resp), `*"'.`)
	if !retrieval.LooksLikeRequirementID(id) {
		return "", false
	}
	return id, true
}

// recommend generates and parses the structured recommendation. When a
// verified requirement exists in the knowledge base the context narrows to
// just that requirement.
func (a *Analyzer) recommend(ctx context.Context, bundle retrieval.ContextBundle, cleaned, display, verifiedID string, verified bool) Finding {
	contextText := bundle.Render()
	citeID := ""
	if verified {
		citeID = verifiedID
		if body, ok := a.base.Get(verifiedID); ok {
			contextText = retrieval.RenderExcerpt(verifiedID, body)
		}
	}

	resp, err := a.client.Complete(ctx, prompt.StructuredRecommendation(contextText, cleaned, citeID))
	if err != nil {
		logging.Get(logging.CategoryPipeline).Errorw("recommendation generation failed", "err", err)
		return errorFinding(display, fmt.Sprintf("recommendation generation failed: %v", err))
	}
	return parseResponse(resp, display)
}
