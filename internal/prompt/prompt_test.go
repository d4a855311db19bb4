package prompt

import (
	"strings"
	"testing"
)

func TestKeywordExpansionIncludesObservation(t *testing.T) {
	p := KeywordExpansion("Firewall rule review not documented.")
	if !strings.Contains(p, "Firewall rule review not documented.") {
		t.Fatal("prompt missing observation text")
	}
	if !strings.Contains(p, "comma-separated") {
		t.Fatal("prompt missing response-shape instruction")
	}
}

func TestStructuredRecommendationHeadings(t *testing.T) {
	p := StructuredRecommendation("ctx", "obs", "3.4.1")
	for _, h := range []string{HeadingTitle, HeadingCategory, HeadingRecommendation, HeadingActions} {
		if !strings.Contains(p, h) {
			t.Fatalf("prompt missing heading %q", h)
		}
	}
	if !strings.Contains(p, "Requirement 3.4.1") {
		t.Fatal("prompt does not cite the verified requirement")
	}
}

func TestStructuredRecommendationNoVerifiedReq(t *testing.T) {
	p := StructuredRecommendation("ctx", "obs", "")
	if !strings.Contains(p, "identified in the context") {
		t.Fatal("prompt should fall back to context-identified requirement")
	}
}
