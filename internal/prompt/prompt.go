// Package prompt builds the prompts for the three generation steps of the
// analysis pipeline: keyword expansion, requirement verification, and the
// structured recommendation. Wording is a content contract with the model;
// the orchestrator only depends on the response shapes (a comma-separated
// list, a bare requirement number, and the four labeled headings).
package prompt

import (
	"fmt"
	"strings"
)

// Headings of the structured recommendation response, in order.
const (
	HeadingTitle          = "Title:"
	HeadingCategory       = "Category:"
	HeadingRecommendation = "Recommendation:"
	HeadingActions        = "Required Actions:"
)

// KeywordExpansion asks for up to 10 comma-separated requirement numbers and
// technical keywords for an observation.
func KeywordExpansion(observation string) string {
	return fmt.Sprintf("Based on the following PCI DSS observation, list up to 10 relevant requirement numbers and technical keywords. Return only a comma-separated list.\n\nObservation: %q\nKeywords:", observation)
}

// RequirementVerification asks for the single most relevant requirement
// number given the retrieved context.
func RequirementVerification(contextText, observation string) string {
	var b strings.Builder
	b.WriteString("You are a meticulous PCI DSS compliance analyst. Your task is to identify the single most relevant PCI DSS requirement number that directly addresses the issue in the observation, based *only* on the provided context.\n")
	b.WriteString("Respond with ONLY the single requirement number (e.g., \"3.4.1\" or \"12.5.2\").\n\n")
	b.WriteString("--- Context from PCI DSS v4.0.1 ---\n")
	b.WriteString(contextText)
	b.WriteString("\n--- End of Context ---\n\n")
	fmt.Fprintf(&b, "Observation: %q\n\n", observation)
	b.WriteString("The single most relevant requirement number is:")
	return b.String()
}

// StructuredRecommendation asks for the four-part response. verifiedReq may
// be empty, in which case the model is told to use the requirement it finds
// in the context. The decision hierarchy (internal policy > documentation >
// significant change > standard finding) lives here as prompt content.
func StructuredRecommendation(contextText, observation, verifiedReq string) string {
	citeReq := verifiedReq
	if citeReq == "" {
		citeReq = "identified in the context"
	}

	var b strings.Builder
	b.WriteString("You are an expert compliance auditor. Your task is to provide a structured analysis of the observation.\n")
	b.WriteString("Based *only* on the provided context, you must provide a four-part response using the exact headings.\n\n")
	b.WriteString("Heading 1: \"Title:\"\nProvide a short, descriptive title for the finding.\n\n")
	b.WriteString("Heading 2: \"Category:\"\nClassify the finding into ONE category: Network Security, Application Security, Server & Desktop Security, Physical Security, or Information Security.\n\n")
	b.WriteString("Heading 3: \"Recommendation:\"\nWrite the recommendation content.\n\n")
	b.WriteString("Heading 4: \"Required Actions:\"\nProvide a list of required action items.\n\n")
	b.WriteString("---\n")
	fmt.Fprintf(&b, "CRITICAL INSTRUCTION FOR 'Recommendation':\nYour recommendation MUST be based on PCI DSS Requirement %s. You must explicitly cite this requirement number in your response.\n", citeReq)
	b.WriteString("---\n\n")
	b.WriteString("LOGIC HIERARCHY FOR 'Recommendation' and 'Required Actions':\n")
	b.WriteString("1. Internal Policy Violation: If the observation mentions a stricter \"internal policy\", base your findings on that, and DO NOT mention PCI DSS in the recommendation.\n")
	b.WriteString("2. Documentation Finding: If the issue is incomplete/inaccurate documentation (per 12.5.1/12.5.2), focus the recommendation on keeping documentation current and the actions on fixing the specific document.\n")
	b.WriteString("3. Significant Change: If the observation describes a change to the environment, the recommendation must cite the need for re-validation (e.g., Req 11.3.1.3, 11.4.2), and the actions must include the mandatory VAPT/change ticket items.\n")
	b.WriteString("4. Standard Finding: For all other issues, apply the rule from the primary requirement directly.\n")
	b.WriteString("---\n\n")
	b.WriteString("FORMATTING RULES:\n")
	b.WriteString("- For 'Required Actions', use a standard numbered list (e.g., \"1.\", \"2.\").\n")
	b.WriteString("- Do not add any preamble or markdown like '**' around the headings.\n")
	b.WriteString("---\n\n")
	b.WriteString("Context from PCI DSS v4.0.1:\n")
	b.WriteString(contextText)
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "Observation: %q\n\n", observation)
	b.WriteString("Your four-part response:")
	return b.String()
}
