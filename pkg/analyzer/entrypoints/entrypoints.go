// Package entrypoints selects the root definitions reachability starts
// from: file globs, name patterns, designated entry files, and
// per-language conventions.
package entrypoints

import (
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/corvids/bury/pkg/analyzer/callgraph"
	"github.com/corvids/bury/pkg/models"
)

// Spec declares how traversal roots are selected. All rules union; the
// zero value selects nothing.
type Spec struct {
	// FileGlobs roots every definition in files whose path matches,
	// including the file's module scope.
	FileGlobs []string
	// Names roots definitions by name. A pattern may carry one trailing
	// * wildcard, e.g. "test_*".
	Names []string
	// EntryFiles roots the exported top-level surface of exact paths,
	// the way a published package boundary would.
	EntryFiles []string
	// UseConventions enables language defaults: literal main
	// functions, Go package init, executable-script guards, __main__
	// modules.
	UseConventions bool
}

// Resolve computes the root node set for a built graph. Matching is a
// set union, so overlapping rules are idempotent. An empty root set is
// returned as-is with a warning; the caller decides whether an all-dead
// result is meaningful.
func Resolve(g *callgraph.Graph, units []*models.SourceUnit, spec Spec) ([]uint32, []models.Warning) {
	picked := make(map[uint32]bool)
	var warnings []models.Warning

	addDef := func(id string) {
		if idx, ok := g.ByID(id); ok {
			picked[idx] = true
		}
	}
	addModule := func(p string) { addDef(callgraph.ModuleID(p)) }

	for _, pat := range spec.FileGlobs {
		if !doublestar.ValidatePattern(pat) {
			warnings = append(warnings, models.Warning{
				Message: fmt.Sprintf("invalid entry point pattern %q", pat),
			})
			continue
		}
		for _, u := range units {
			if ok, _ := doublestar.Match(pat, u.Path); !ok {
				continue
			}
			addModule(u.Path)
			for i := range u.Definitions {
				addDef(u.Definitions[i].ID)
			}
		}
	}

	if len(spec.Names) > 0 {
		for _, u := range units {
			for i := range u.Definitions {
				d := &u.Definitions[i]
				for _, pat := range spec.Names {
					if matchName(pat, d.Name) {
						addDef(d.ID)
						break
					}
				}
			}
		}
	}

	for _, p := range spec.EntryFiles {
		u := unitByPath(units, p)
		if u == nil {
			warnings = append(warnings, models.Warning{
				File:    p,
				Message: "entry file was not analyzed",
			})
			continue
		}
		addModule(u.Path)
		for i := range u.Definitions {
			d := &u.Definitions[i]
			if d.Scope == "" && d.Exported {
				addDef(d.ID)
			}
		}
	}

	if spec.UseConventions {
		for _, u := range units {
			if u.EntryGuard || path.Base(u.Path) == "__main__.py" {
				addModule(u.Path)
			}
			for i := range u.Definitions {
				d := &u.Definitions[i]
				if !conventionRoot(u, d) {
					continue
				}
				addDef(d.ID)
				// the runtime reaching this definition means the file's
				// module scope ran first
				addModule(u.Path)
			}
		}
	}

	if len(picked) == 0 {
		warnings = append(warnings, models.Warning{
			Message: "no entry points matched any definition",
		})
	}

	roots := make([]uint32, 0, len(picked))
	for idx := range picked {
		roots = append(roots, idx)
	}
	sort.Slice(roots, func(i, j int) bool {
		return g.Node(roots[i]).Def.ID < g.Node(roots[j]).Def.ID
	})
	return roots, warnings
}

// conventionRoot reports whether the language runtime invokes a
// definition without any in-code reference: literal main functions, and
// top-level Go init.
func conventionRoot(u *models.SourceUnit, d *models.Definition) bool {
	if d.Name == "main" && (d.Kind == models.KindFunction || d.Kind == models.KindMethod) {
		return true
	}
	return u.Language == "go" && d.Name == "init" &&
		d.Kind == models.KindFunction && d.Scope == ""
}

// matchName reports whether name matches pattern. Patterns are literal
// except for a single trailing * wildcard.
func matchName(pattern, name string) bool {
	if strings.HasSuffix(pattern, "*") {
		return strings.HasPrefix(name, strings.TrimSuffix(pattern, "*"))
	}
	return pattern == name
}

func unitByPath(units []*models.SourceUnit, p string) *models.SourceUnit {
	for _, u := range units {
		if u.Path == p {
			return u
		}
	}
	return nil
}
