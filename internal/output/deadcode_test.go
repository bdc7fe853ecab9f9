package output

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corvids/bury/pkg/models"
)

func sampleAnalysis() *models.DeadCodeAnalysis {
	a := &models.DeadCodeAnalysis{
		Summary:  models.NewDeadCodeSummary(),
		Findings: []models.Finding{},
	}
	a.Summary.TotalFilesScanned = 3
	a.Summary.TotalDefinitions = 12
	a.Summary.ReachableCount = 10
	a.Summary.EntryPointCount = 2

	for _, f := range []models.Finding{
		{
			Name: "orphan", Kind: models.KindFunction, File: "src/a.py", Line: 10,
			Confidence: models.ConfidenceHigh, Reason: "No references found in codebase",
		},
		{
			Name: "maybe", Kind: models.KindMethod, File: "src/b.py", Line: 4,
			Confidence: models.ConfidenceMedium, Reason: "Not reachable from any entry point; file constructs names dynamically",
		},
	} {
		a.Findings = append(a.Findings, f)
		a.Summary.AddFinding(f)
	}
	a.Warnings = []models.Warning{
		{File: "src/c.py", Message: "file had extraction warnings"},
	}
	return a
}

func TestDeadCodeRenderText(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewDeadCodeReport(sampleAnalysis()).RenderText(&buf, false))

	out := buf.String()
	assert.Contains(t, out, "Unreachable Definitions")
	assert.Contains(t, out, "src/a.py:10")
	assert.Contains(t, out, "orphan")
	assert.Contains(t, out, "Summary: 2 of 12 definitions unreachable across 3 files (2 entry points)")
	assert.Contains(t, out, "Confidence: 1 high, 1 medium")
	assert.Contains(t, out, "warning: src/c.py: file had extraction warnings")
}

func TestDeadCodeRenderTextClean(t *testing.T) {
	a := &models.DeadCodeAnalysis{Summary: models.NewDeadCodeSummary()}
	a.Summary.TotalDefinitions = 5
	a.Summary.ReachableCount = 5

	var buf bytes.Buffer
	require.NoError(t, NewDeadCodeReport(a).RenderText(&buf, false))

	out := buf.String()
	assert.NotContains(t, out, "Unreachable Definitions")
	assert.Contains(t, out, "Summary: 0 of 5 definitions unreachable")
	assert.NotContains(t, out, "Confidence:")
}

func TestDeadCodeRenderMarkdown(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewDeadCodeReport(sampleAnalysis()).RenderMarkdown(&buf))

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "## Dead Code Report"))
	assert.Contains(t, out, "| Location | Name | Kind | Confidence | Reason |")
	assert.Contains(t, out, "| src/a.py:10 | orphan | function | high | No references found in codebase |")
	assert.Contains(t, out, "### Warnings")
	assert.Contains(t, out, "- `src/c.py`: file had extraction warnings")
}

func TestDeadCodeRenderData(t *testing.T) {
	a := sampleAnalysis()
	r := NewDeadCodeReport(a)
	assert.Same(t, a, r.RenderData())
}

func TestConfidenceBreakdown(t *testing.T) {
	got := confidenceBreakdown(map[string]int{"high": 2, "low": 1})
	assert.Equal(t, "2 high, 1 low", got)

	assert.Empty(t, confidenceBreakdown(nil))
}
