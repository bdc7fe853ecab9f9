package callgraph

import (
	"testing"

	"github.com/corvids/bury/pkg/analyzer/extract"
	"github.com/corvids/bury/pkg/analyzer/resolve"
	"github.com/corvids/bury/pkg/models"
	"github.com/corvids/bury/pkg/parser"
)

// buildGraph extracts the given path→source files, resolves them, and
// builds the reference graph.
func buildGraph(t *testing.T, files map[string]string) (*Graph, []*models.SourceUnit) {
	t.Helper()
	p := parser.New()
	defer p.Close()

	var units []*models.SourceUnit
	for path, src := range files {
		result, err := p.Parse([]byte(src), parser.DetectLanguage(path), path)
		if err != nil {
			t.Fatalf("Parse(%s) error = %v", path, err)
		}
		unit, err := extract.File(result)
		if err != nil {
			t.Fatalf("extract(%s) error = %v", path, err)
		}
		units = append(units, unit)
	}

	table, _ := resolve.Resolve(units, resolve.Options{})
	g, err := Build(units, table)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	return g, units
}

// mustIndex finds the node for a named definition in a file.
func mustIndex(t *testing.T, g *Graph, units []*models.SourceUnit, file, name string) uint32 {
	t.Helper()
	for _, u := range units {
		if u.Path != file {
			continue
		}
		for i := range u.Definitions {
			if u.Definitions[i].Name == name {
				idx, ok := g.ByID(u.Definitions[i].ID)
				if !ok {
					t.Fatalf("definition %s:%s has no node", file, name)
				}
				return idx
			}
		}
	}
	t.Fatalf("definition %s:%s not extracted", file, name)
	return 0
}

func moduleIndex(t *testing.T, g *Graph, file string) uint32 {
	t.Helper()
	idx, ok := g.ByID(ModuleID(file))
	if !ok {
		t.Fatalf("module node for %s missing", file)
	}
	return idx
}

func TestBuildLocalCallEdge(t *testing.T) {
	g, units := buildGraph(t, map[string]string{
		"app.py": "def helper():\n    return 1\n\ndef run():\n    return helper()\n",
	})

	run := mustIndex(t, g, units, "app.py", "run")
	helper := mustIndex(t, g, units, "app.py", "helper")
	if !g.HasEdge(run, helper) {
		t.Error("run -> helper edge missing")
	}
}

func TestBuildCrossFileEdge(t *testing.T) {
	g, units := buildGraph(t, map[string]string{
		"app/util.py": "def helper():\n    return 1\n",
		"app/main.py": "from app.util import helper\n\ndef run():\n    return helper()\n",
	})

	run := mustIndex(t, g, units, "app/main.py", "run")
	helper := mustIndex(t, g, units, "app/util.py", "helper")
	if !g.HasEdge(run, helper) {
		t.Error("cross-file run -> helper edge missing")
	}

	// importing a module runs it
	mainMod := moduleIndex(t, g, "app/main.py")
	utilMod := moduleIndex(t, g, "app/util.py")
	if !g.HasEdge(mainMod, utilMod) {
		t.Error("import edge between module nodes missing")
	}
}

func TestBuildMethodEdgeThroughSelf(t *testing.T) {
	g, units := buildGraph(t, map[string]string{
		"c.py": `class Calculator:
    def add(self, a, b):
        return self._apply(a, b)

    def _apply(self, a, b):
        return a + b
`,
	})

	add := mustIndex(t, g, units, "c.py", "add")
	apply := mustIndex(t, g, units, "c.py", "_apply")
	if !g.HasEdge(add, apply) {
		t.Error("add -> _apply edge through self missing")
	}
}

func TestBuildInheritedMemberEdge(t *testing.T) {
	g, units := buildGraph(t, map[string]string{
		"h.py": `class Base:
    def shared(self):
        return 1

class Derived(Base):
    def use(self):
        return self.shared()
`,
	})

	use := mustIndex(t, g, units, "h.py", "use")
	shared := mustIndex(t, g, units, "h.py", "shared")
	if !g.HasEdge(use, shared) {
		t.Error("member lookup through base class failed")
	}
}

func TestBuildPythonDunderImplicitEdge(t *testing.T) {
	g, units := buildGraph(t, map[string]string{
		"d.py": `class Box:
    def __init__(self):
        self.v = 0
`,
	})

	box := mustIndex(t, g, units, "d.py", "Box")
	init := mustIndex(t, g, units, "d.py", "__init__")
	if !g.HasEdge(box, init) {
		t.Error("class -> __init__ implicit edge missing")
	}
}

func TestBuildTSConstructorImplicitEdge(t *testing.T) {
	g, units := buildGraph(t, map[string]string{
		"w.ts": `class Widget {
  constructor() {}
}
`,
	})

	widget := mustIndex(t, g, units, "w.ts", "Widget")
	ctor := mustIndex(t, g, units, "w.ts", "constructor")
	if !g.HasEdge(widget, ctor) {
		t.Error("class -> constructor implicit edge missing")
	}
}

func TestBuildGoInitImplicitEdge(t *testing.T) {
	g, units := buildGraph(t, map[string]string{
		"p/a.go": "package p\n\nfunc init() {\n\tregister()\n}\n\nfunc register() {}\n",
	})

	mod := moduleIndex(t, g, "p/a.go")
	initFn := mustIndex(t, g, units, "p/a.go", "init")
	if !g.HasEdge(mod, initFn) {
		t.Error("module -> init implicit edge missing")
	}
}

func TestBuildUnresolvedKept(t *testing.T) {
	g, units := buildGraph(t, map[string]string{
		"u.py": `def run(obj):
    return getattr(obj, "maybe_used")
`,
	})

	run := mustIndex(t, g, units, "u.py", "run")
	refs := g.UnresolvedAt(run)
	found := false
	for _, r := range refs {
		if r.Name == "maybe_used" {
			found = true
		}
	}
	if !found {
		t.Errorf("dynamic reference not kept on its source node (got %d refs)", len(refs))
	}
}

func TestBuildDeterministicIndices(t *testing.T) {
	files := map[string]string{
		"b.py": "def two():\n    pass\n",
		"a.py": "def one():\n    pass\n",
	}

	ids := func() []string {
		g, _ := buildGraph(t, files)
		out := make([]string, 0, g.NumNodes())
		for i := uint32(0); int(i) < g.NumNodes(); i++ {
			out = append(out, g.Node(i).Def.ID)
		}
		return out
	}

	first, second := ids(), ids()
	if len(first) != len(second) {
		t.Fatalf("node counts differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("node %d differs across runs: %q vs %q", i, first[i], second[i])
		}
	}
	// path order puts a.py's nodes first
	if first[0] != ModuleID("a.py") {
		t.Errorf("first node = %q, want %q", first[0], ModuleID("a.py"))
	}
}
