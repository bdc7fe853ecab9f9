package extract

import (
	"testing"

	"github.com/corvids/bury/pkg/models"
)

func TestPythonDefinitions(t *testing.T) {
	src := `CONST = 1

def helper(x):
    return x

class Calculator:
    rate = 2

    def add(self, a, b):
        return a + b

    def _scale(self, v):
        return v * self.rate
`
	unit := extractSource(t, src, "calc.py")

	if unit.Partial {
		t.Fatal("clean source marked Partial")
	}

	tests := []struct {
		name     string
		kind     models.Kind
		class    string
		scope    string
		exported bool
	}{
		{"CONST", models.KindVariable, "", "", true},
		{"helper", models.KindFunction, "", "", true},
		{"Calculator", models.KindClass, "", "", true},
		{"rate", models.KindVariable, "Calculator", "Calculator", true},
		{"add", models.KindMethod, "Calculator", "Calculator", true},
		{"_scale", models.KindMethod, "Calculator", "Calculator", false},
	}
	for _, tt := range tests {
		d := findDef(unit, tt.name)
		if d == nil {
			t.Errorf("definition %q missing", tt.name)
			continue
		}
		if d.Kind != tt.kind {
			t.Errorf("%s: kind = %q, want %q", tt.name, d.Kind, tt.kind)
		}
		if d.Class != tt.class {
			t.Errorf("%s: class = %q, want %q", tt.name, d.Class, tt.class)
		}
		if d.Scope != tt.scope {
			t.Errorf("%s: scope = %q, want %q", tt.name, d.Scope, tt.scope)
		}
		if d.Exported != tt.exported {
			t.Errorf("%s: exported = %v, want %v", tt.name, d.Exported, tt.exported)
		}
	}

	add := findDef(unit, "add")
	if want := models.DefinitionID("calc.py", add.Line, "add"); add.ID != want {
		t.Errorf("add ID = %q, want %q", add.ID, want)
	}
}

func TestPythonReferences(t *testing.T) {
	src := `def helper():
    return 1

def run():
    v = helper()
    return v
`
	unit := extractSource(t, src, "app.py")

	if !hasRef(unit, "helper", models.RefCall) {
		t.Error("call to helper not recorded")
	}

	run := findDef(unit, "run")
	for i := range unit.References {
		r := &unit.References[i]
		if r.Name == "helper" && r.Kind == models.RefCall && r.From != run.ID {
			t.Errorf("helper call attributed to %q, want %q", r.From, run.ID)
		}
	}
}

func TestPythonMemberAccess(t *testing.T) {
	src := `class C:
    def m(self):
        return self.n()

    def n(self):
        return 0
`
	unit := extractSource(t, src, "c.py")

	var found *models.Reference
	for i := range unit.References {
		r := &unit.References[i]
		if r.Name == "n" && r.Kind == models.RefMember {
			found = r
		}
	}
	if found == nil {
		t.Fatal("self.n() member reference missing")
	}
	if found.Receiver != "self" {
		t.Errorf("receiver = %q, want self", found.Receiver)
	}
}

func TestPythonInheritance(t *testing.T) {
	src := `class Base:
    pass

class Derived(Base):
    pass
`
	unit := extractSource(t, src, "h.py")

	d := findDef(unit, "Derived")
	if len(d.Bases) != 1 || d.Bases[0] != "Base" {
		t.Errorf("Derived bases = %v, want [Base]", d.Bases)
	}
	if !hasRef(unit, "Base", models.RefInheritance) {
		t.Error("inheritance reference to Base missing")
	}
}

func TestPythonImports(t *testing.T) {
	src := `import os
import os.path
import numpy as np
from app.util import helper
from app.util import helper as h2
from app import *
from . import sibling
`
	unit := extractSource(t, src, "app/main.py")

	tests := []struct {
		local    string
		source   string
		remote   string
		wildcard bool
	}{
		{"os", "os", "", false},
		{"os.path", "os.path", "", false},
		{"np", "numpy", "", false},
		{"helper", "app.util", "helper", false},
		{"h2", "app.util", "helper", false},
		{"*", "app", "", true},
		{"sibling", ".", "sibling", false},
	}
	for _, tt := range tests {
		b := findBinding(unit, tt.local)
		if b == nil {
			t.Errorf("binding %q missing", tt.local)
			continue
		}
		if b.Source != tt.source || b.Remote != tt.remote || b.Wildcard != tt.wildcard {
			t.Errorf("binding %q = {source:%q remote:%q wildcard:%v}, want {%q %q %v}",
				tt.local, b.Source, b.Remote, b.Wildcard, tt.source, tt.remote, tt.wildcard)
		}
	}
}

func TestPythonAllExports(t *testing.T) {
	src := `__all__ = ["public_fn", "PublicClass"]

def public_fn():
    pass

class PublicClass:
    pass
`
	unit := extractSource(t, src, "pkg/__init__.py")

	var exports []string
	for _, b := range unit.Bindings {
		if b.IsExport {
			exports = append(exports, b.LocalName)
		}
	}
	want := map[string]bool{"public_fn": true, "PublicClass": true}
	if len(exports) != 2 {
		t.Fatalf("got %d export bindings %v, want 2", len(exports), exports)
	}
	for _, e := range exports {
		if !want[e] {
			t.Errorf("unexpected export %q", e)
		}
	}
}

func TestPythonMainGuard(t *testing.T) {
	src := `def main():
    pass

if __name__ == "__main__":
    main()
`
	unit := extractSource(t, src, "script.py")
	if !unit.EntryGuard {
		t.Error("__main__ guard not detected")
	}

	plain := extractSource(t, "def f():\n    pass\n", "lib.py")
	if plain.EntryGuard {
		t.Error("EntryGuard set without a guard")
	}
}

func TestPythonDynamicReferences(t *testing.T) {
	src := `import importlib

def dispatch(obj, name):
    fn = getattr(obj, "maybe_used")
    table = globals()["registry"]
    eval("something()")
    return fn, table
`
	unit := extractSource(t, src, "dyn.py")

	if !hasRef(unit, "maybe_used", models.RefDynamic) {
		t.Error("getattr string target not recorded as dynamic")
	}
	if !hasRef(unit, "registry", models.RefDynamic) {
		t.Error("globals() subscript not recorded as dynamic")
	}

	// eval leaves a nameless dynamic marker
	nameless := false
	for _, r := range unit.References {
		if r.Kind == models.RefDynamic && r.Name == "" {
			nameless = true
		}
	}
	if !nameless {
		t.Error("eval did not leave a nameless dynamic reference")
	}
}

func TestPythonDecorators(t *testing.T) {
	src := `def register(fn):
    return fn

@register
def task():
    pass
`
	unit := extractSource(t, src, "d.py")

	if findDef(unit, "task") == nil {
		t.Fatal("decorated definition missing")
	}
	// decorator reference attaches to module scope, not the decorated fn
	found := false
	for _, r := range unit.References {
		if r.Name == "register" && r.From == "" {
			found = true
		}
	}
	if !found {
		t.Error("decorator reference missing or misattributed")
	}
}

func TestPythonNestedFunctionScope(t *testing.T) {
	src := `def outer():
    def inner():
        pass
    inner()
`
	unit := extractSource(t, src, "n.py")

	inner := findDef(unit, "inner")
	if inner == nil {
		t.Fatal("nested definition missing")
	}
	if inner.Scope != "outer" {
		t.Errorf("inner scope = %q, want outer", inner.Scope)
	}
}
