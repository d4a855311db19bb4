package analysis

import (
	"fmt"
	"strings"

	"pciassist/internal/prompt"
)

// parseResponse extracts the four labeled sections from a model response.
// The parser is deliberately tolerant: headings are matched case-insensitively,
// a missing section yields "N/A", and stray markdown asterisks are stripped.
// Any panic while parsing degrades to an error finding so a malformed
// response never loses the row.
func parseResponse(raw, observation string) (f Finding) {
	defer func() {
		if r := recover(); r != nil {
			f = errorFinding(observation, fmt.Sprintf("failed to parse model response: %v", r))
		}
	}()

	headings := []string{
		prompt.HeadingTitle,
		prompt.HeadingCategory,
		prompt.HeadingRecommendation,
		prompt.HeadingActions,
	}

	title := extractSection(raw, prompt.HeadingTitle, headings)
	category := extractSection(raw, prompt.HeadingCategory, headings)

	f = Finding{
		Title:          title,
		Category:       category,
		CategoryKnown:  KnownCategory(category),
		Observation:    observation,
		Recommendation: extractSection(raw, prompt.HeadingRecommendation, headings),
		Actions:        extractSection(raw, prompt.HeadingActions, headings),
	}
	return f
}

// extractSection returns the text between heading and the nearest following
// heading (or end of input), or "N/A" when the heading is absent.
func extractSection(raw, heading string, headings []string) string {
	lower := strings.ToLower(raw)
	idx := strings.Index(lower, strings.ToLower(heading))
	if idx < 0 {
		return "N/A"
	}
	start := idx + len(heading)

	end := len(raw)
	for _, h := range headings {
		if h == heading {
			continue
		}
		if next := strings.Index(lower[start:], strings.ToLower(h)); next >= 0 && start+next < end {
			end = start + next
		}
	}

	section := strings.ReplaceAll(raw[start:end], "*", "")
	section = strings.TrimSpace(section)
	if section == "" {
		return "N/A"
	}
	return section
}

// errorFinding is the degraded result for a row whose analysis failed. The
// observation text survives so the report still accounts for the row.
func errorFinding(observation, reason string) Finding {
	return Finding{
		Title:          "Error",
		Category:       "Error",
		Observation:    observation,
		Recommendation: "An error occurred during analysis.",
		Actions:        "1. " + reason,
	}
}
