// Package resolve links per-file import and export bindings to the files
// and definitions they target. Sources that match nothing in the scanned
// set are external; names that match a file but no symbol stay unresolved.
package resolve

import (
	"fmt"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/corvids/bury/pkg/models"
)

// DefaultDepth bounds transitive re-export expansion. Barrel chains
// deeper than this are truncated with a warning.
const DefaultDepth = 10

type Options struct {
	// Depth is the maximum number of re-export hops to follow.
	// DefaultDepth when zero.
	Depth int
}

// ResolutionKind says what a local name turned out to be.
type ResolutionKind int

const (
	Unresolved ResolutionKind = iota
	ResolvedDefinition
	ResolvedModule
	External
)

func (k ResolutionKind) String() string {
	switch k {
	case ResolvedDefinition:
		return "definition"
	case ResolvedModule:
		return "module"
	case External:
		return "external"
	default:
		return "unresolved"
	}
}

// Resolution is the outcome for one local name in one file.
type Resolution struct {
	Kind      ResolutionKind
	Def       *models.Definition   // set for ResolvedDefinition
	DefUnit   *models.SourceUnit   // unit defining Def
	Units     []*models.SourceUnit // set for ResolvedModule; a package may span files
	Ambiguous bool                 // several paths matched the binding source
	Truncated bool                 // re-export expansion hit the depth limit
}

// Table holds every file's resolved local names.
type Table struct {
	r     *resolver
	files map[string]map[string]Resolution
}

// Lookup resolves a local name through one file's bindings.
func (t *Table) Lookup(file, name string) (Resolution, bool) {
	res, ok := t.files[file][name]
	return res, ok
}

// Modules returns the scanned files a binding source in file denotes.
func (t *Table) Modules(file, source string) []*models.SourceUnit {
	if m, ok := t.r.modules[file]; ok {
		return m[source].units
	}
	return nil
}

// Member resolves an attribute of a module resolution, trying exported
// symbols first and nested submodules second.
func (t *Table) Member(res Resolution, name string) (Resolution, bool) {
	if res.Kind != ResolvedModule || name == "" {
		return Resolution{}, false
	}
	for _, u := range res.Units {
		sub, ok := t.r.exportOf(u, name, t.r.opts.Depth, map[string]bool{})
		if ok && (sub.Kind == ResolvedDefinition || sub.Kind == ResolvedModule) {
			sub.Ambiguous = sub.Ambiguous || res.Ambiguous
			return sub, true
		}
	}
	for _, u := range res.Units {
		if units, amb := t.r.modulesFor(u, joinModule(u.Language, ".", name)); len(units) > 0 {
			return Resolution{Kind: ResolvedModule, Units: units, Ambiguous: amb || res.Ambiguous}, true
		}
	}
	return Resolution{}, false
}

type modEntry struct {
	units []*models.SourceUnit
	amb   bool
}

type keyEntry struct {
	key  string
	unit *models.SourceUnit
}

type resolver struct {
	opts     Options
	units    []*models.SourceUnit
	exact    map[string][]*models.SourceUnit // path key → units sharing it
	base     map[string][]keyEntry           // last key component → entries
	dirs     map[string][]*models.SourceUnit
	modules  map[string]map[string]modEntry // file → binding source → targets
	warnings []models.Warning
	warned   map[string]bool
}

// Resolve builds the resolution table for a set of extracted units.
// Returned warnings cover ambiguous sources and truncated re-export
// chains; resolution itself never fails.
func Resolve(units []*models.SourceUnit, opts Options) (*Table, []models.Warning) {
	r := newResolver(units, opts)
	t := &Table{r: r, files: make(map[string]map[string]Resolution, len(r.units))}

	for _, u := range r.units {
		entries := make(map[string]Resolution)

		// cache module targets for every source up front; import edges
		// need them even when no local name is bound
		for i := range u.Bindings {
			if src := u.Bindings[i].Source; src != "" {
				r.recordModules(u, src)
			}
		}

		// named bindings outrank wildcard pulls
		for i := range u.Bindings {
			b := &u.Bindings[i]
			if b.Wildcard || b.IsExport || b.LocalName == "" || b.LocalName == "*" {
				continue
			}
			entries[b.LocalName] = r.resolveNamed(u, b)
		}

		for i := range u.Bindings {
			b := &u.Bindings[i]
			if !b.Wildcard || b.IsExport {
				continue
			}
			if b.Source == "." && u.Language == "go" {
				r.expandSiblings(u, entries)
				continue
			}
			r.expandWildcard(u, b, entries)
		}

		t.files[u.Path] = entries
	}

	return t, r.warnings
}

func newResolver(units []*models.SourceUnit, opts Options) *resolver {
	if opts.Depth <= 0 {
		opts.Depth = DefaultDepth
	}
	r := &resolver{
		opts:    opts,
		units:   make([]*models.SourceUnit, len(units)),
		exact:   make(map[string][]*models.SourceUnit),
		base:    make(map[string][]keyEntry),
		dirs:    make(map[string][]*models.SourceUnit),
		modules: make(map[string]map[string]modEntry),
		warned:  make(map[string]bool),
	}
	copy(r.units, units)
	sort.Slice(r.units, func(i, j int) bool { return r.units[i].Path < r.units[j].Path })

	for _, u := range r.units {
		p := filepath.ToSlash(u.Path)
		dir := path.Dir(p)
		r.dirs[dir] = append(r.dirs[dir], u)

		key := stripExt(p)
		r.addKey(key, u)
		switch path.Base(key) {
		case "__init__", "index":
			r.addKey(dir, u)
		}
		if u.Language == "go" {
			r.addKey(dir, u)
		}
	}
	return r
}

func (r *resolver) addKey(key string, u *models.SourceUnit) {
	if l := r.exact[key]; len(l) > 0 && l[len(l)-1] == u {
		return
	}
	r.exact[key] = append(r.exact[key], u)
	r.base[path.Base(key)] = append(r.base[path.Base(key)], keyEntry{key, u})
}

func (r *resolver) warn(file, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	k := file + "\x00" + msg
	if r.warned[k] {
		return
	}
	r.warned[k] = true
	r.warnings = append(r.warnings, models.Warning{File: file, Message: msg})
}

func (r *resolver) recordModules(u *models.SourceUnit, source string) modEntry {
	m := r.modules[u.Path]
	if m == nil {
		m = make(map[string]modEntry)
		r.modules[u.Path] = m
	}
	if cached, ok := m[source]; ok {
		return cached
	}
	units, amb := r.modulesFor(u, source)
	e := modEntry{units: units, amb: amb}
	m[source] = e
	if amb {
		r.warn(u.Path, "ambiguous module %q: using %s", source, units[0].Path)
	}
	return e
}

func (r *resolver) resolveNamed(u *models.SourceUnit, b *models.Binding) Resolution {
	mods := r.recordModules(u, b.Source)
	if len(mods.units) == 0 {
		return Resolution{Kind: External}
	}
	if b.Remote == "" {
		return Resolution{Kind: ResolvedModule, Units: mods.units, Ambiguous: mods.amb}
	}
	for _, target := range mods.units {
		res, ok := r.exportOf(target, b.Remote, r.opts.Depth, map[string]bool{})
		if !ok {
			continue
		}
		res.Ambiguous = res.Ambiguous || mods.amb
		if res.Truncated {
			r.warn(u.Path, "re-export chain for %q from %q exceeds depth %d, truncated", b.Remote, b.Source, r.opts.Depth)
		}
		return res
	}
	// from pkg import sub can name a submodule rather than a symbol
	if sub, amb := r.modulesFor(u, joinModule(u.Language, b.Source, b.Remote)); len(sub) > 0 {
		return Resolution{Kind: ResolvedModule, Units: sub, Ambiguous: amb || mods.amb}
	}
	return Resolution{Kind: Unresolved, Ambiguous: mods.amb}
}

// expandSiblings exposes every top-level definition of the other files in
// a Go package.
func (r *resolver) expandSiblings(u *models.SourceUnit, entries map[string]Resolution) {
	p := filepath.ToSlash(u.Path)
	for _, sib := range r.dirs[path.Dir(p)] {
		if sib == u {
			continue
		}
		for i := range sib.Definitions {
			d := &sib.Definitions[i]
			if d.Scope != "" {
				continue
			}
			if prev, ok := entries[d.Name]; ok {
				if prev.Kind == ResolvedDefinition && prev.Def != d {
					prev.Ambiguous = true
					entries[d.Name] = prev
				}
				continue
			}
			entries[d.Name] = Resolution{Kind: ResolvedDefinition, Def: d, DefUnit: sib}
		}
	}
}

func (r *resolver) expandWildcard(u *models.SourceUnit, b *models.Binding, entries map[string]Resolution) {
	mods := r.recordModules(u, b.Source)
	if len(mods.units) == 0 {
		return
	}
	for _, target := range mods.units {
		names, truncated := r.exportedNames(target, r.opts.Depth, map[string]bool{})
		if truncated {
			r.warn(u.Path, "wildcard import of %q exceeds re-export depth %d, truncated", b.Source, r.opts.Depth)
		}
		for _, name := range names {
			if _, ok := entries[name]; ok {
				continue
			}
			res, ok := r.exportOf(target, name, r.opts.Depth, map[string]bool{})
			if !ok || (res.Kind != ResolvedDefinition && res.Kind != ResolvedModule) {
				continue
			}
			res.Ambiguous = res.Ambiguous || mods.amb
			entries[name] = res
		}
	}
}

// exportOf resolves one exported name of a unit, following re-export
// chains up to the depth budget. The bool reports whether the unit
// answers for the name at all.
func (r *resolver) exportOf(u *models.SourceUnit, name string, depth int, seen map[string]bool) (Resolution, bool) {
	if name == "" || name == "*" {
		return Resolution{}, false
	}
	key := u.Path + "\x00" + name
	if seen[key] {
		return Resolution{}, false
	}
	seen[key] = true
	if depth < 0 {
		return Resolution{Kind: Unresolved, Truncated: true}, true
	}

	for i := range u.Definitions {
		d := &u.Definitions[i]
		if d.Name == name && d.Scope == "" {
			return Resolution{Kind: ResolvedDefinition, Def: d, DefUnit: u}, true
		}
	}

	for i := range u.Bindings {
		b := &u.Bindings[i]
		if b.Wildcard || b.LocalName != name {
			continue
		}
		if b.Source == "" {
			if b.Remote == "" || b.Remote == name {
				continue
			}
			return r.exportOf(u, b.Remote, depth-1, seen)
		}
		targets, amb := r.modulesFor(u, b.Source)
		if len(targets) == 0 {
			return Resolution{Kind: External}, true
		}
		if b.Remote == "" {
			return Resolution{Kind: ResolvedModule, Units: targets, Ambiguous: amb}, true
		}
		for _, target := range targets {
			if res, ok := r.exportOf(target, b.Remote, depth-1, seen); ok {
				res.Ambiguous = res.Ambiguous || amb
				return res, true
			}
		}
		if sub, subAmb := r.modulesFor(u, joinModule(u.Language, b.Source, b.Remote)); len(sub) > 0 {
			return Resolution{Kind: ResolvedModule, Units: sub, Ambiguous: amb || subAmb}, true
		}
		return Resolution{Kind: Unresolved, Ambiguous: amb}, true
	}

	for i := range u.Bindings {
		b := &u.Bindings[i]
		if !b.Wildcard || b.Source == "" {
			continue
		}
		targets, amb := r.modulesFor(u, b.Source)
		for _, target := range targets {
			if target == u {
				continue
			}
			res, ok := r.exportOf(target, name, depth-1, seen)
			if !ok || (res.Kind != ResolvedDefinition && res.Kind != ResolvedModule) {
				continue
			}
			res.Ambiguous = res.Ambiguous || amb
			return res, true
		}
	}

	return Resolution{}, false
}

// exportedNames lists what a wildcard import of u pulls in: explicit
// exports when the unit declares any, otherwise its public surface.
func (r *resolver) exportedNames(u *models.SourceUnit, depth int, seen map[string]bool) ([]string, bool) {
	if seen[u.Path] {
		return nil, false
	}
	seen[u.Path] = true
	if depth < 0 {
		return nil, true
	}

	set := make(map[string]bool)
	explicit := false
	for i := range u.Bindings {
		b := &u.Bindings[i]
		if !b.IsExport || b.Wildcard || b.LocalName == "" || b.LocalName == "*" {
			continue
		}
		explicit = true
		set[b.LocalName] = true
	}

	if !explicit {
		for i := range u.Definitions {
			d := &u.Definitions[i]
			if d.Scope == "" && d.Exported {
				set[d.Name] = true
			}
		}
		if u.Language == langPython {
			// imported public names are re-importable
			for i := range u.Bindings {
				b := &u.Bindings[i]
				if b.IsExport || b.Wildcard || b.LocalName == "" || b.LocalName == "*" {
					continue
				}
				if !strings.HasPrefix(b.LocalName, "_") && !strings.Contains(b.LocalName, ".") {
					set[b.LocalName] = true
				}
			}
		}
	}

	truncated := false
	for i := range u.Bindings {
		b := &u.Bindings[i]
		if !b.Wildcard || b.Source == "" {
			continue
		}
		if !b.IsExport && explicit {
			continue
		}
		targets, _ := r.modulesFor(u, b.Source)
		for _, target := range targets {
			if target == u {
				continue
			}
			names, trunc := r.exportedNames(target, depth-1, seen)
			truncated = truncated || trunc
			for _, n := range names {
				set[n] = true
			}
		}
	}

	names := make([]string, 0, len(set))
	for n := range set {
		names = append(names, n)
	}
	sort.Strings(names)
	return names, truncated
}

// modulesFor maps a binding source to the scanned files it denotes.
func (r *resolver) modulesFor(from *models.SourceUnit, source string) ([]*models.SourceUnit, bool) {
	if source == "" {
		return nil, false
	}
	fromPath := filepath.ToSlash(from.Path)

	if source == "." && from.Language == langGo {
		var sibs []*models.SourceUnit
		for _, u := range r.dirs[path.Dir(fromPath)] {
			if u != from {
				sibs = append(sibs, u)
			}
		}
		return sibs, false
	}

	if rel, ok := relativeTarget(fromPath, source, from.Language); ok {
		return r.exact[rel], false
	}

	rel := source
	if from.Language == langPython {
		rel = strings.ReplaceAll(source, ".", "/")
	}
	return r.bySuffix(rel)
}

// bySuffix finds path keys ending in rel on a component boundary. The key
// with the fewest leading components wins; an exact tie is ambiguous and
// falls back to the lexicographically smallest key.
func (r *resolver) bySuffix(rel string) ([]*models.SourceUnit, bool) {
	rel = strings.Trim(rel, "/")
	if rel == "" {
		return nil, false
	}

	var (
		bestKey   string
		bestExtra int
		found     bool
		ambiguous bool
	)
	relDepth := strings.Count(rel, "/")
	for _, e := range r.base[path.Base(rel)] {
		if e.key != rel && !strings.HasSuffix(e.key, "/"+rel) {
			continue
		}
		extra := strings.Count(e.key, "/") - relDepth
		switch {
		case !found:
			bestKey, bestExtra, found = e.key, extra, true
		case e.key == bestKey:
		case extra < bestExtra:
			bestKey, bestExtra = e.key, extra
			ambiguous = false
		case extra == bestExtra:
			ambiguous = true
			if e.key < bestKey {
				bestKey = e.key
			}
		}
	}
	if !found {
		return nil, false
	}
	return r.exact[bestKey], ambiguous
}

// relativeTarget anchors dot-relative sources at the importing file.
func relativeTarget(fromPath, source, language string) (string, bool) {
	if language == langPython {
		if !strings.HasPrefix(source, ".") {
			return "", false
		}
		dots := 0
		for dots < len(source) && source[dots] == '.' {
			dots++
		}
		dir := path.Dir(fromPath)
		for i := 1; i < dots; i++ {
			dir = path.Dir(dir)
		}
		rest := strings.ReplaceAll(source[dots:], ".", "/")
		if rest == "" {
			return dir, true
		}
		return path.Join(dir, rest), true
	}

	if source == "." || source == ".." || strings.HasPrefix(source, "./") || strings.HasPrefix(source, "../") {
		return path.Join(path.Dir(fromPath), source), true
	}
	return "", false
}

// joinModule appends a submodule segment in the source language's syntax.
func joinModule(language, source, name string) string {
	if language == langPython {
		if strings.Trim(source, ".") == "" {
			return source + name
		}
		return source + "." + name
	}
	return source + "/" + name
}

func stripExt(p string) string {
	return strings.TrimSuffix(p, path.Ext(p))
}

// language names as they appear in SourceUnit.Language
const (
	langPython = "python"
	langGo     = "go"
)
