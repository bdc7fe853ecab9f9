package deadcode

import (
	"sort"
	"strings"

	"github.com/corvids/bury/pkg/analyzer/callgraph"
	"github.com/corvids/bury/pkg/analyzer/reach"
	"github.com/corvids/bury/pkg/models"
)

// classifyCtx carries the program-wide facts confidence grading needs.
type classifyCtx struct {
	g *callgraph.Graph
	// unresolvedNames holds every name an unresolved reference carries.
	unresolvedNames map[string]bool
	// referenced holds every name any reference carries.
	referenced map[string]bool
	// resolvedTo maps a reference name to the definition IDs it resolved to.
	resolvedTo map[string]map[string]bool
	// baseParents holds class names that appear in some base-class list.
	baseParents map[string]bool
	// classAt finds a class definition by file and scope path.
	classAt map[string]*models.Definition
	// partial and dynamic flag files with extraction warnings or dynamic
	// name construction.
	partial map[string]bool
	dynamic map[string]bool
}

// classify grades every unreachable definition and assembles the run
// result. Module nodes anchor traversal but are never findings.
func classify(g *callgraph.Graph, units []*models.SourceUnit, roots []uint32, res *reach.Result, warnings []models.Warning) *models.DeadCodeAnalysis {
	cc := newClassifyCtx(g, units)

	analysis := &models.DeadCodeAnalysis{
		Summary:  models.NewDeadCodeSummary(),
		Findings: make([]models.Finding, 0),
		Warnings: warnings,
	}
	analysis.Summary.TotalFilesScanned = len(units)
	analysis.Summary.EntryPointCount = len(roots)
	analysis.Summary.Languages = languages(units)
	analysis.Summary.CyclicGroups = len(g.DetectCycles())

	for idx := uint32(0); int(idx) < g.NumNodes(); idx++ {
		node := g.Node(idx)
		if node.Def.Kind == models.KindModule {
			continue
		}
		analysis.Summary.TotalDefinitions++
		if res.Visited.IsSet(idx) {
			analysis.Summary.ReachableCount++
			if res.Speculative[idx] {
				analysis.Summary.SpeculativeCount++
			}
			continue
		}

		confidence, reason := cc.grade(node.Def)
		f := models.Finding{
			Name:       node.Def.Name,
			Kind:       node.Def.Kind,
			File:       node.Def.File,
			Line:       node.Def.Line,
			Column:     node.Def.Column,
			Confidence: confidence,
			Reason:     reason,
		}
		analysis.Findings = append(analysis.Findings, f)
		analysis.Summary.AddFinding(f)
	}

	sort.Slice(analysis.Findings, func(i, j int) bool {
		a, b := analysis.Findings[i], analysis.Findings[j]
		if a.File != b.File {
			return a.File < b.File
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		return a.Name < b.Name
	})
	return analysis
}

func newClassifyCtx(g *callgraph.Graph, units []*models.SourceUnit) *classifyCtx {
	cc := &classifyCtx{
		g:               g,
		unresolvedNames: make(map[string]bool),
		referenced:      make(map[string]bool),
		resolvedTo:      make(map[string]map[string]bool),
		baseParents:     make(map[string]bool),
		classAt:         make(map[string]*models.Definition),
		partial:         make(map[string]bool),
		dynamic:         make(map[string]bool),
	}

	for idx := uint32(0); int(idx) < g.NumNodes(); idx++ {
		for _, ref := range g.UnresolvedAt(idx) {
			if ref.Name != "" {
				cc.unresolvedNames[ref.Name] = true
			}
		}
	}

	for _, u := range units {
		if u.Partial {
			cc.partial[u.Path] = true
		}
		for i := range u.References {
			ref := &u.References[i]
			if ref.Kind == models.RefDynamic {
				cc.dynamic[u.Path] = true
			}
			if ref.Name == "" {
				continue
			}
			cc.referenced[ref.Name] = true
			if ref.Target != "" {
				targets := cc.resolvedTo[ref.Name]
				if targets == nil {
					targets = make(map[string]bool)
					cc.resolvedTo[ref.Name] = targets
				}
				targets[ref.Target] = true
			}
		}
		for i := range u.Definitions {
			d := &u.Definitions[i]
			if d.Kind != models.KindClass && d.Kind != models.KindInterface {
				continue
			}
			key := classKey(d.File, scopePath(d))
			if _, ok := cc.classAt[key]; !ok {
				cc.classAt[key] = d
			}
			for _, base := range d.Bases {
				if name := baseTail(base); name != "" {
					cc.baseParents[name] = true
				}
			}
		}
	}
	return cc
}

// grade assigns a confidence and reason to one dead definition. The
// checks run from the least to the most certain exclusion: textual
// matches and extraction warnings first, then name-collision and
// inheritance risk, then the clean cases.
func (cc *classifyCtx) grade(d *models.Definition) (models.ConfidenceLevel, string) {
	const excluded = "Not reachable from any entry point"

	if cc.unresolvedNames[d.Name] {
		return models.ConfidenceLow, excluded + "; an unresolved reference matches this name"
	}
	if cc.partial[d.File] {
		return models.ConfidenceLow, excluded + "; file had extraction warnings"
	}

	if d.Class != "" {
		if cls := cc.classAt[classKey(d.File, d.Scope)]; cls != nil {
			if len(cls.Bases) > 0 || cc.baseParents[cls.Name] {
				return models.ConfidenceMedium, excluded + "; member of a class participating in inheritance"
			}
		}
	}
	if targets := cc.resolvedTo[d.Name]; len(targets) > 0 && !onlyTarget(targets, d.ID) {
		return models.ConfidenceMedium, excluded + "; a same-named symbol resolves elsewhere"
	}
	if cc.g.AmbiguousName(d.Name) {
		return models.ConfidenceMedium, excluded + "; import resolution for this name was ambiguous"
	}
	if cc.dynamic[d.File] {
		return models.ConfidenceMedium, excluded + "; file constructs names dynamically"
	}

	if !cc.referenced[d.Name] {
		return models.ConfidenceHigh, "No references found in codebase"
	}
	return models.ConfidenceHigh, excluded
}

func onlyTarget(targets map[string]bool, id string) bool {
	return len(targets) == 1 && targets[id]
}

func classKey(file, scope string) string {
	return file + "\x00" + scope
}

func scopePath(d *models.Definition) string {
	if d.Scope == "" {
		return d.Name
	}
	return d.Scope + "." + d.Name
}

// baseTail reduces a base-class expression to its final identifier.
func baseTail(base string) string {
	if idx := strings.IndexAny(base, "[<("); idx > 0 {
		base = base[:idx]
	}
	if idx := strings.LastIndexByte(base, '.'); idx >= 0 {
		base = base[idx+1:]
	}
	return strings.TrimSpace(base)
}

func languages(units []*models.SourceUnit) []string {
	seen := make(map[string]bool)
	var langs []string
	for _, u := range units {
		if !seen[u.Language] {
			seen[u.Language] = true
			langs = append(langs, u.Language)
		}
	}
	sort.Strings(langs)
	return langs
}
