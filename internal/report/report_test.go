package report

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"pciassist/internal/analysis"
)

func sampleFindings() []analysis.Finding {
	return []analysis.Finding{
		{
			Title:          "Unencrypted PAN Storage",
			Category:       "Information Security",
			CategoryKnown:  true,
			Observation:    "PAN stored in plaintext.",
			Recommendation: "Render PAN unreadable per Requirement 3.4.1.",
			Actions:        "1. Enable encryption at rest.\n2. Verify with a storage scan.",
		},
		{
			Title:          "Stale Firewall Review",
			Category:       "Network Security",
			CategoryKnown:  true,
			Observation:    "Rules unreviewed for a year.",
			Recommendation: "Review rule sets every six months.",
			Actions:        "1. Schedule the review.",
		},
	}
}

func TestBuildAssignsID(t *testing.T) {
	r := Build(sampleFindings(), "audit.xlsx")

	assert.NotEqual(t, r.ID.String(), "00000000-0000-0000-0000-000000000000")
	assert.Equal(t, "audit.xlsx", r.SourceFile)
	assert.Len(t, r.Findings, 2)
}

func TestBuildEmptyFindingsPlaceholder(t *testing.T) {
	r := Build(nil, "empty.xlsx")

	require.Len(t, r.Findings, 1)
	assert.Equal(t, "No Findings", r.Findings[0].Title)
}

func TestRenderHTML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderHTML(&buf, Build(sampleFindings(), "audit.xlsx")))
	html := buf.String()

	assert.Contains(t, html, "Finding #1: Unencrypted PAN Storage")
	assert.Contains(t, html, "Finding #2: Stale Firewall Review")
	assert.Contains(t, html, "<li>Enable encryption at rest.</li>")
	assert.Contains(t, html, "audit.xlsx")
}

func TestRenderHTMLEscapes(t *testing.T) {
	findings := []analysis.Finding{{
		Title:       "<script>alert(1)</script>",
		Observation: "obs",
		Actions:     "1. act",
	}}

	var buf bytes.Buffer
	require.NoError(t, RenderHTML(&buf, Build(findings, "x.xlsx")))

	assert.NotContains(t, buf.String(), "<script>alert(1)</script>")
	assert.Contains(t, buf.String(), "&lt;script&gt;")
}

func TestRenderExcel(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderExcel(&buf, Build(sampleFindings(), "audit.xlsx")))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(actionSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3, "header plus one row per finding")

	assert.Equal(t, []string{"Title", "Description", "Category"}, rows[0])
	assert.Equal(t, "Unencrypted PAN Storage", rows[1][0])
	assert.Equal(t, "Information Security", rows[1][2])

	desc := rows[1][1]
	for _, part := range []string{"Observation:", "PAN stored in plaintext.", "Recommendation:", "Action Required:"} {
		assert.Contains(t, desc, part)
	}
}

func TestActionLines(t *testing.T) {
	got := actionLines("1. First step.\n2. Second step.\n\n")
	assert.Equal(t, []string{"First step.", "Second step."}, got)

	assert.Equal(t, []string{"N/A"}, actionLines("  "))
	assert.Equal(t, []string{"no numbering"}, actionLines("no numbering"))
}

func TestStripNumbering(t *testing.T) {
	assert.Equal(t, "Patch now.", stripNumbering("12. Patch now."))
	assert.Equal(t, "3.4.1 applies", stripNumbering("3.4.1 applies"), "dotted ids are not numbering")
}
