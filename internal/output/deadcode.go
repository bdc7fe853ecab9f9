package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/corvids/bury/pkg/models"
	"github.com/fatih/color"
)

// DeadCodeReport renders a dead code analysis in all supported formats.
type DeadCodeReport struct {
	Analysis *models.DeadCodeAnalysis
}

// NewDeadCodeReport wraps an analysis for output.
func NewDeadCodeReport(a *models.DeadCodeAnalysis) *DeadCodeReport {
	return &DeadCodeReport{Analysis: a}
}

func (r *DeadCodeReport) RenderData() any {
	return r.Analysis
}

func (r *DeadCodeReport) RenderText(w io.Writer, colored bool) error {
	a := r.Analysis

	if len(a.Findings) > 0 {
		table := r.findingsTable(colored)
		table.Title = "Unreachable Definitions"
		if err := table.RenderText(w, colored); err != nil {
			return err
		}
	}

	s := a.Summary
	fmt.Fprintf(w, "Summary: %d of %d definitions unreachable across %d files (%d entry points)\n",
		s.DeadCodeCount, s.TotalDefinitions, s.TotalFilesScanned, s.EntryPointCount)
	if s.DeadCodeCount > 0 {
		fmt.Fprintf(w, "Confidence: %s\n", confidenceBreakdown(s.ByConfidence))
	}

	if len(a.Warnings) > 0 {
		fmt.Fprintln(w)
		for _, warn := range a.Warnings {
			line := warningLine(warn)
			if colored {
				color.New(color.FgYellow).Fprintln(w, line)
			} else {
				fmt.Fprintln(w, line)
			}
		}
	}

	return nil
}

func (r *DeadCodeReport) RenderMarkdown(w io.Writer) error {
	a := r.Analysis
	s := a.Summary

	fmt.Fprintln(w, "## Dead Code Report")
	fmt.Fprintln(w)
	fmt.Fprintf(w, "%d of %d definitions are unreachable across %d files (%d entry points).\n\n",
		s.DeadCodeCount, s.TotalDefinitions, s.TotalFilesScanned, s.EntryPointCount)

	if len(a.Findings) > 0 {
		if err := r.findingsTable(false).RenderMarkdown(w); err != nil {
			return err
		}
	}

	if len(a.Warnings) > 0 {
		fmt.Fprintln(w, "### Warnings")
		fmt.Fprintln(w)
		for _, warn := range a.Warnings {
			if warn.File != "" {
				fmt.Fprintf(w, "- `%s`: %s\n", warn.File, warn.Message)
			} else {
				fmt.Fprintf(w, "- %s\n", warn.Message)
			}
		}
		fmt.Fprintln(w)
	}

	return nil
}

// findingsTable builds the findings table. Findings arrive sorted by file
// and line, so rows come out grouped by file.
func (r *DeadCodeReport) findingsTable(colored bool) *Table {
	rows := make([][]string, 0, len(r.Analysis.Findings))
	for _, f := range r.Analysis.Findings {
		conf := string(f.Confidence)
		if colored {
			conf = SeverityColor(conf, conf)
		}
		rows = append(rows, []string{
			fmt.Sprintf("%s:%d", f.File, f.Line),
			f.Name,
			string(f.Kind),
			conf,
			f.Reason,
		})
	}
	return NewTable("", []string{"Location", "Name", "Kind", "Confidence", "Reason"}, rows, nil, nil)
}

func confidenceBreakdown(byConf map[string]int) string {
	levels := []models.ConfidenceLevel{models.ConfidenceHigh, models.ConfidenceMedium, models.ConfidenceLow}
	parts := make([]string, 0, len(levels))
	for _, level := range levels {
		if n := byConf[string(level)]; n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, level))
		}
	}
	return strings.Join(parts, ", ")
}

func warningLine(warn models.Warning) string {
	if warn.File != "" {
		return fmt.Sprintf("warning: %s: %s", warn.File, warn.Message)
	}
	return fmt.Sprintf("warning: %s", warn.Message)
}
