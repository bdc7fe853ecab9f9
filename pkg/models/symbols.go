package models

import "fmt"

// Kind classifies a Definition.
type Kind string

const (
	KindFunction  Kind = "function"
	KindMethod    Kind = "method"
	KindClass     Kind = "class"
	KindVariable  Kind = "variable"
	KindInterface Kind = "interface"

	// KindModule marks the synthetic per-file node that anchors module-scope
	// references and import edges. Module nodes are never reported as
	// findings.
	KindModule Kind = "module"
)

// Visibility describes how widely a Definition is accessible.
type Visibility string

const (
	VisibilityPublic    Visibility = "public"
	VisibilityPrivate   Visibility = "private"
	VisibilityProtected Visibility = "protected"
)

// RefKind classifies how a Reference uses its target.
type RefKind string

const (
	RefCall        RefKind = "call"
	RefMember      RefKind = "member"      // attribute/method access on a receiver
	RefType        RefKind = "type"        // type annotation, instantiation, JSX element
	RefInheritance RefKind = "inheritance" // base class in a class declaration
	RefExport      RefKind = "export"      // re-export use site
	RefDynamic     RefKind = "dynamic"     // computed target (getattr, indexing, eval-like)
)

// Definition is a named, locatable declaration extracted from one file.
// ID is stable across runs and unique program-wide once all files are
// assembled: "file:line:name".
type Definition struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Kind       Kind       `json:"kind"`
	File       string     `json:"file"`
	Line       uint32     `json:"line"`
	Column     uint32     `json:"column"`
	EndLine    uint32     `json:"end_line"`
	Scope      string     `json:"scope,omitempty"` // dotted enclosing-scope path, "" at module level
	Class      string     `json:"class,omitempty"` // enclosing class name for members
	Bases      []string   `json:"bases,omitempty"` // declared base classes in declaration order
	Visibility Visibility `json:"visibility"`
	Exported   bool       `json:"exported"`
	Language   string     `json:"language"`
}

// DefinitionID builds the stable identifier for a definition.
func DefinitionID(file string, line uint32, name string) string {
	return fmt.Sprintf("%s:%d:%s", file, line, name)
}

// Reference is a use-site naming another symbol.
type Reference struct {
	From     string  `json:"from,omitempty"` // enclosing Definition ID, "" at module scope
	File     string  `json:"file"`
	Line     uint32  `json:"line"`
	Name     string  `json:"name"`               // target name as written
	Receiver string  `json:"receiver,omitempty"` // receiver expression text for member accesses
	Kind     RefKind `json:"kind"`
	Target   string  `json:"target,omitempty"` // resolved Definition ID, "" while unresolved
}

// Binding is an import/export edge mapping a local name to a symbol in
// another module. Targets are left unresolved by extraction; the resolver
// fills them in.
type Binding struct {
	File      string `json:"file"`
	Line      uint32 `json:"line"`
	LocalName string `json:"local_name"`
	Source    string `json:"source"`              // module path as written
	Remote    string `json:"remote,omitempty"`    // remote symbol name, "" = whole module
	Wildcard  bool   `json:"wildcard,omitempty"`  // import * / export * from
	IsExport  bool   `json:"is_export,omitempty"` // re-export
}

// SourceUnit holds one file's extracted facts. Immutable once produced.
type SourceUnit struct {
	Path        string       `json:"path"`
	Language    string       `json:"language"`
	Definitions []Definition `json:"definitions"`
	References  []Reference  `json:"references"`
	Bindings    []Binding    `json:"bindings"`
	Lines       int          `json:"lines"`
	Partial     bool         `json:"partial,omitempty"`     // tree had parse errors, extraction is best-effort
	EntryGuard  bool         `json:"entry_guard,omitempty"` // file marks itself executable (e.g. __main__ guard)
}

// Warning is a non-fatal per-file anomaly surfaced with the run result.
type Warning struct {
	File    string `json:"file,omitempty" toon:"file,omitempty"`
	Message string `json:"message" toon:"message"`
}
