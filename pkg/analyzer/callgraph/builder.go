package callgraph

import (
	"fmt"
	"sort"
	"strings"

	"github.com/corvids/bury/pkg/analyzer/resolve"
	"github.com/corvids/bury/pkg/models"
)

const moduleDefName = "(module)"

// ModuleID returns the synthetic module node ID for a file path.
func ModuleID(path string) string {
	return models.DefinitionID(path, 0, moduleDefName)
}

type builder struct {
	graph *Graph
	table *resolve.Table
	ctx   map[string]*unitCtx
	units []*models.SourceUnit
}

type unitCtx struct {
	unit        *models.SourceUnit
	moduleIdx   uint32
	byScope     map[string]map[string][]*models.Definition
	defByPath   map[string]*models.Definition
	classByPath map[string]*models.Definition
}

// Build assembles the reference graph for a set of resolved units. Units
// are processed in path order so indices and edges are stable across
// runs. The only failure mode is an internal invariant violation.
func Build(units []*models.SourceUnit, table *resolve.Table) (*Graph, error) {
	b := &builder{
		graph: NewGraph(),
		table: table,
		ctx:   make(map[string]*unitCtx, len(units)),
		units: make([]*models.SourceUnit, len(units)),
	}
	copy(b.units, units)
	sort.Slice(b.units, func(i, j int) bool { return b.units[i].Path < b.units[j].Path })

	if err := b.addNodes(); err != nil {
		return nil, err
	}
	if err := b.addImportEdges(); err != nil {
		return nil, err
	}
	if err := b.addImplicitEdges(); err != nil {
		return nil, err
	}
	if err := b.addReferenceEdges(); err != nil {
		return nil, err
	}
	b.graph.Freeze()
	return b.graph, nil
}

func (b *builder) addNodes() error {
	for _, u := range b.units {
		modDef := &models.Definition{
			ID:       ModuleID(u.Path),
			Name:     u.Path,
			Kind:     models.KindModule,
			File:     u.Path,
			Language: u.Language,
		}
		modIdx, err := b.graph.AddNode(modDef, u)
		if err != nil {
			return err
		}

		uc := &unitCtx{
			unit:        u,
			moduleIdx:   modIdx,
			byScope:     make(map[string]map[string][]*models.Definition),
			defByPath:   make(map[string]*models.Definition),
			classByPath: make(map[string]*models.Definition),
		}
		for i := range u.Definitions {
			d := &u.Definitions[i]
			if _, err := b.graph.AddNode(d, u); err != nil {
				return err
			}
			names := uc.byScope[d.Scope]
			if names == nil {
				names = make(map[string][]*models.Definition)
				uc.byScope[d.Scope] = names
			}
			names[d.Name] = append(names[d.Name], d)

			p := joinScope(d.Scope, d.Name)
			if _, ok := uc.defByPath[p]; !ok {
				uc.defByPath[p] = d
			}
			if classKind(d) {
				if _, ok := uc.classByPath[p]; !ok {
					uc.classByPath[p] = d
				}
			}
		}
		b.ctx[u.Path] = uc
	}
	return nil
}

// addImportEdges links each file's module node to the modules its
// bindings load. Importing a file runs its module scope, so the edge
// direction follows load order.
func (b *builder) addImportEdges() error {
	for _, u := range b.units {
		uc := b.ctx[u.Path]
		seen := make(map[string]bool)
		for i := range u.Bindings {
			src := u.Bindings[i].Source
			if src == "" || seen[src] {
				continue
			}
			seen[src] = true
			for _, target := range b.table.Modules(u.Path, src) {
				tc := b.ctx[target.Path]
				if tc == nil {
					continue
				}
				if err := b.graph.AddEdge(uc.moduleIdx, tc.moduleIdx); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// addImplicitEdges wires members the runtime invokes without a named
// reference: Python dunder protocol methods and JS/TS constructors reach
// through their class, Go init functions through their file.
func (b *builder) addImplicitEdges() error {
	for _, u := range b.units {
		uc := b.ctx[u.Path]
		for i := range u.Definitions {
			d := &u.Definitions[i]
			dIdx, ok := b.graph.ByID(d.ID)
			if !ok {
				return fmt.Errorf("%w: definition %s has no node", ErrInvariant, d.ID)
			}

			if u.Language == langGo && d.Kind == models.KindFunction && d.Scope == "" && d.Name == "init" {
				if err := b.graph.AddEdge(uc.moduleIdx, dIdx); err != nil {
					return err
				}
				continue
			}

			if d.Kind != models.KindMethod || d.Class == "" || !implicitMember(u.Language, d.Name) {
				continue
			}
			cls := uc.classByPath[d.Scope]
			if cls == nil {
				continue
			}
			clsIdx, ok := b.graph.ByID(cls.ID)
			if !ok {
				continue
			}
			if err := b.graph.AddEdge(clsIdx, dIdx); err != nil {
				return err
			}
		}
	}
	return nil
}

func (b *builder) addReferenceEdges() error {
	for _, u := range b.units {
		uc := b.ctx[u.Path]
		for i := range u.References {
			if err := b.reference(uc, &u.References[i]); err != nil {
				return err
			}
		}
	}
	return nil
}

func (b *builder) reference(uc *unitCtx, ref *models.Reference) error {
	fromIdx := uc.moduleIdx
	var fromDef *models.Definition
	if ref.From != "" {
		idx, ok := b.graph.ByID(ref.From)
		if !ok {
			return fmt.Errorf("%w: reference from unknown definition %s", ErrInvariant, ref.From)
		}
		fromIdx = idx
		fromDef = b.graph.Node(idx).Def
	}

	if ref.Kind == models.RefDynamic {
		if ref.Name == "" {
			// nameless dynamic use; its presence is visible on the unit
			return nil
		}
		return b.graph.AddUnresolved(fromIdx, ref)
	}

	if ref.Receiver != "" {
		return b.memberReference(uc, fromIdx, fromDef, ref)
	}
	return b.nameReference(uc, fromIdx, fromDef, ref)
}

// nameReference resolves a bare name: enclosing scopes of this file
// first, then the file's bindings.
func (b *builder) nameReference(uc *unitCtx, fromIdx uint32, fromDef *models.Definition, ref *models.Reference) error {
	if def := b.lookupLocal(uc, fromDef, ref.Name); def != nil {
		return b.edgeTo(fromIdx, def, ref)
	}
	if res, ok := b.table.Lookup(uc.unit.Path, ref.Name); ok {
		return b.resolutionEdge(fromIdx, res, ref)
	}
	return b.graph.AddUnresolved(fromIdx, ref)
}

// memberReference resolves obj.name. Self-style receivers use the
// enclosing class; named receivers must denote a class or module. A
// member missing from a class is searched through its declared bases
// depth-first in declaration order, first match wins.
func (b *builder) memberReference(uc *unitCtx, fromIdx uint32, fromDef *models.Definition, ref *models.Reference) error {
	target, ok := b.resolveReceiver(uc, fromDef, ref.Receiver)
	if !ok {
		return b.graph.AddUnresolved(fromIdx, ref)
	}
	if target.amb {
		b.graph.MarkAmbiguousName(ref.Name)
	}

	if target.class != nil {
		if m := b.memberLookup(target.class, ref.Name, map[string]bool{}); m != nil {
			return b.edgeTo(fromIdx, m, ref)
		}
		return b.graph.AddUnresolved(fromIdx, ref)
	}

	if res, ok := b.table.Member(target.module, ref.Name); ok {
		return b.resolutionEdge(fromIdx, res, ref)
	}
	return b.graph.AddUnresolved(fromIdx, ref)
}

func (b *builder) edgeTo(fromIdx uint32, def *models.Definition, ref *models.Reference) error {
	toIdx, ok := b.graph.ByID(def.ID)
	if !ok {
		return fmt.Errorf("%w: resolved definition %s has no node", ErrInvariant, def.ID)
	}
	ref.Target = def.ID
	return b.graph.AddEdge(fromIdx, toIdx)
}

func (b *builder) resolutionEdge(fromIdx uint32, res resolve.Resolution, ref *models.Reference) error {
	if res.Ambiguous {
		b.graph.MarkAmbiguousName(ref.Name)
	}
	switch res.Kind {
	case resolve.ResolvedDefinition:
		return b.edgeTo(fromIdx, res.Def, ref)
	case resolve.ResolvedModule:
		for _, t := range res.Units {
			tc := b.ctx[t.Path]
			if tc == nil {
				continue
			}
			if err := b.graph.AddEdge(fromIdx, tc.moduleIdx); err != nil {
				return err
			}
		}
		return nil
	case resolve.External:
		// resolves outside the scanned set; not evidence of anything
		return nil
	default:
		return b.graph.AddUnresolved(fromIdx, ref)
	}
}

// lookupLocal searches enclosing lexical scopes innermost-first.
func (b *builder) lookupLocal(uc *unitCtx, fromDef *models.Definition, name string) *models.Definition {
	for _, scope := range scopeChain(fromDef) {
		if defs := uc.byScope[scope][name]; len(defs) > 0 {
			return defs[0]
		}
	}
	return nil
}

// scopeChain lists the scopes visible from inside a definition, innermost
// first, ending at module scope.
func scopeChain(fromDef *models.Definition) []string {
	if fromDef == nil {
		return []string{""}
	}
	inner := joinScope(fromDef.Scope, fromDef.Name)
	chain := []string{inner}
	for inner != "" {
		if idx := strings.LastIndexByte(inner, '.'); idx >= 0 {
			inner = inner[:idx]
		} else {
			inner = ""
		}
		chain = append(chain, inner)
	}
	return chain
}

type receiverTarget struct {
	class  *models.Definition
	module resolve.Resolution
	amb    bool
}

// resolveReceiver follows a dotted receiver chain to a class or module.
// Receivers naming plain values stay unresolved; there is no value type
// inference.
func (b *builder) resolveReceiver(uc *unitCtx, fromDef *models.Definition, receiver string) (receiverTarget, bool) {
	segs := strings.Split(receiver, ".")
	var cur receiverTarget

	switch segs[0] {
	case "self", "cls", "this":
		cls := b.enclosingClass(uc, fromDef)
		if cls == nil {
			return receiverTarget{}, false
		}
		cur.class = cls
	default:
		if def := b.lookupLocal(uc, fromDef, segs[0]); def != nil {
			if !classKind(def) {
				return receiverTarget{}, false
			}
			cur.class = def
		} else if res, ok := b.table.Lookup(uc.unit.Path, segs[0]); ok {
			switch res.Kind {
			case resolve.ResolvedDefinition:
				if !classKind(res.Def) {
					return receiverTarget{}, false
				}
				cur = receiverTarget{class: res.Def, amb: res.Ambiguous}
			case resolve.ResolvedModule:
				cur = receiverTarget{module: res, amb: res.Ambiguous}
			default:
				return receiverTarget{}, false
			}
		} else {
			return receiverTarget{}, false
		}
	}

	for _, seg := range segs[1:] {
		if cur.class != nil {
			m := b.memberLookup(cur.class, seg, map[string]bool{})
			if m == nil || !classKind(m) {
				return receiverTarget{}, false
			}
			cur.class = m
			continue
		}
		res, ok := b.table.Member(cur.module, seg)
		if !ok {
			return receiverTarget{}, false
		}
		switch res.Kind {
		case resolve.ResolvedDefinition:
			if !classKind(res.Def) {
				return receiverTarget{}, false
			}
			cur = receiverTarget{class: res.Def, amb: cur.amb || res.Ambiguous}
		case resolve.ResolvedModule:
			cur = receiverTarget{module: res, amb: cur.amb || res.Ambiguous}
		default:
			return receiverTarget{}, false
		}
	}
	return cur, true
}

// enclosingClass walks outward from a definition to the class whose body
// encloses it.
func (b *builder) enclosingClass(uc *unitCtx, fromDef *models.Definition) *models.Definition {
	for d := fromDef; d != nil; d = uc.defByPath[d.Scope] {
		if d.Class != "" {
			if cls := uc.classByPath[d.Scope]; cls != nil {
				return cls
			}
		}
		if d.Scope == "" {
			return nil
		}
	}
	return nil
}

// memberLookup finds name on cls or on an ancestor, walking declared
// bases depth-first in declaration order with cycle protection.
func (b *builder) memberLookup(cls *models.Definition, name string, visited map[string]bool) *models.Definition {
	if visited[cls.ID] {
		return nil
	}
	visited[cls.ID] = true

	idx, ok := b.graph.ByID(cls.ID)
	if !ok {
		return nil
	}
	uc := b.ctx[b.graph.Node(idx).Unit.Path]
	if uc == nil {
		return nil
	}

	clsPath := joinScope(cls.Scope, cls.Name)
	if defs := uc.byScope[clsPath][name]; len(defs) > 0 {
		return defs[0]
	}

	for _, base := range cls.Bases {
		baseCls := b.resolveClassName(uc, cls, base)
		if baseCls == nil {
			continue
		}
		if m := b.memberLookup(baseCls, name, visited); m != nil {
			return m
		}
	}
	return nil
}

// resolveClassName resolves a base-class expression from the class's own
// file.
func (b *builder) resolveClassName(uc *unitCtx, cls *models.Definition, base string) *models.Definition {
	// drop type parameters kept in the source form
	if idx := strings.IndexAny(base, "[<("); idx > 0 {
		base = base[:idx]
	}
	base = strings.TrimSpace(base)
	if base == "" {
		return nil
	}

	if idx := strings.LastIndexByte(base, '.'); idx >= 0 {
		receiver, name := base[:idx], base[idx+1:]
		target, ok := b.resolveReceiver(uc, cls, receiver)
		if !ok {
			return nil
		}
		if target.class != nil {
			if m := b.memberLookup(target.class, name, map[string]bool{}); m != nil && classKind(m) {
				return m
			}
			return nil
		}
		if res, ok := b.table.Member(target.module, name); ok && res.Kind == resolve.ResolvedDefinition && classKind(res.Def) {
			return res.Def
		}
		return nil
	}

	if def := b.lookupLocal(uc, cls, base); def != nil && classKind(def) {
		return def
	}
	if res, ok := b.table.Lookup(uc.unit.Path, base); ok && res.Kind == resolve.ResolvedDefinition && classKind(res.Def) {
		return res.Def
	}
	return nil
}

// implicitMember reports whether the runtime invokes a member without a
// named reference.
func implicitMember(language, name string) bool {
	switch language {
	case langPython:
		return len(name) > 4 && strings.HasPrefix(name, "__") && strings.HasSuffix(name, "__")
	case "typescript", "tsx", "javascript":
		return name == "constructor"
	}
	return false
}

func classKind(d *models.Definition) bool {
	return d.Kind == models.KindClass || d.Kind == models.KindInterface
}

func joinScope(parent, name string) string {
	if parent == "" {
		return name
	}
	return parent + "." + name
}

const (
	langPython = "python"
	langGo     = "go"
)
