package extract

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/corvids/bury/pkg/models"
	"github.com/corvids/bury/pkg/parser"
)

// pythonExtractor extracts symbols from Python sources.
type pythonExtractor struct{}

func (pythonExtractor) Extract(result *parser.ParseResult) (*models.SourceUnit, error) {
	unit := newUnit(result)
	w := &pyWalker{src: result.Source, unit: unit}
	w.walk(result.Tree.RootNode(), pyScope{})
	return finishUnit(result, unit)
}

// pyScope tracks the lexical position of the walk.
type pyScope struct {
	from  string // enclosing definition ID, "" at module scope
	class string // set while directly inside a class body
	path  string // dotted scope path for Definition.Scope
}

type pyWalker struct {
	src  []byte
	unit *models.SourceUnit
}

// pySkipIdents are names that never denote a referencable definition.
var pySkipIdents = map[string]bool{
	"self":     true,
	"cls":      true,
	"_":        true,
	"__name__": true,
	"__file__": true,
	"__doc__":  true,
	"__all__":  true,
}

func (w *pyWalker) text(node *sitter.Node) string {
	return parser.GetNodeText(node, w.src)
}

func (w *pyWalker) addRef(ref models.Reference) {
	ref.File = w.unit.Path
	w.unit.References = append(w.unit.References, ref)
}

func (w *pyWalker) addBinding(b models.Binding) {
	b.File = w.unit.Path
	w.unit.Bindings = append(w.unit.Bindings, b)
}

// walk dispatches one node. Handlers that consume a construct return
// without descending; everything else falls through to a generic descent
// over named children.
func (w *pyWalker) walk(node *sitter.Node, sc pyScope) {
	if node == nil {
		return
	}

	switch node.Type() {
	case "function_definition":
		w.function(node, sc)
	case "class_definition":
		w.classDef(node, sc)
	case "decorated_definition":
		w.decorated(node, sc)
	case "import_statement":
		w.importPlain(node)
	case "import_from_statement":
		w.importFrom(node)
	case "future_import_statement":
		// __future__ pragmas bind nothing of interest
	case "assignment", "augmented_assignment":
		w.assignment(node, sc)
	case "call":
		w.call(node, sc)
	case "attribute":
		w.member(node, sc)
	case "subscript":
		w.subscript(node, sc)
	case "identifier":
		name := w.text(node)
		if name == "" || pySkipIdents[name] {
			return
		}
		w.addRef(models.Reference{From: sc.from, Line: line(node), Name: name, Kind: models.RefType})
	case "keyword_argument":
		w.walk(node.ChildByFieldName("value"), sc)
	case "lambda":
		w.walk(node.ChildByFieldName("body"), sc)
	case "for_statement":
		// Loop targets bind locals, only the iterable is a use.
		w.walk(node.ChildByFieldName("right"), sc)
		w.walk(node.ChildByFieldName("body"), sc)
		w.walk(node.ChildByFieldName("alternative"), sc)
	case "for_in_clause":
		w.walk(node.ChildByFieldName("right"), sc)
	case "as_pattern":
		w.walk(node.NamedChild(0), sc)
	case "if_statement":
		if sc.from == "" && w.isMainGuard(node) {
			w.unit.EntryGuard = true
		}
		for i := range int(node.NamedChildCount()) {
			w.walk(node.NamedChild(i), sc)
		}
	case "global_statement", "nonlocal_statement", "pass_statement", "string", "comment":
		// nothing referencable
	default:
		for i := range int(node.NamedChildCount()) {
			w.walk(node.NamedChild(i), sc)
		}
	}
}

func (w *pyWalker) function(node *sitter.Node, sc pyScope) {
	name := w.text(node.ChildByFieldName("name"))
	if name == "" {
		return
	}

	def := models.Definition{
		ID:         models.DefinitionID(w.unit.Path, line(node), name),
		Name:       name,
		Kind:       models.KindFunction,
		File:       w.unit.Path,
		Line:       line(node),
		Column:     column(node),
		EndLine:    endLine(node),
		Scope:      sc.path,
		Visibility: pyVisibility(name),
		Exported:   !strings.HasPrefix(name, "_"),
		Language:   w.unit.Language,
	}
	if sc.class != "" {
		def.Kind = models.KindMethod
		def.Class = sc.class
	}
	w.unit.Definitions = append(w.unit.Definitions, def)

	// Parameter defaults and annotations evaluate when the def statement
	// runs, so they reference from the enclosing scope.
	if params := node.ChildByFieldName("parameters"); params != nil {
		for i := range int(params.NamedChildCount()) {
			p := params.NamedChild(i)
			switch p.Type() {
			case "default_parameter", "typed_default_parameter":
				w.walk(p.ChildByFieldName("value"), sc)
				w.walk(p.ChildByFieldName("type"), sc)
			case "typed_parameter":
				w.walk(p.ChildByFieldName("type"), sc)
			}
		}
	}
	w.walk(node.ChildByFieldName("return_type"), sc)

	w.walk(node.ChildByFieldName("body"), pyScope{from: def.ID, path: joinScope(sc.path, name)})
}

func (w *pyWalker) classDef(node *sitter.Node, sc pyScope) {
	name := w.text(node.ChildByFieldName("name"))
	if name == "" {
		return
	}

	def := models.Definition{
		ID:         models.DefinitionID(w.unit.Path, line(node), name),
		Name:       name,
		Kind:       models.KindClass,
		File:       w.unit.Path,
		Line:       line(node),
		Column:     column(node),
		EndLine:    endLine(node),
		Scope:      sc.path,
		Visibility: pyVisibility(name),
		Exported:   !strings.HasPrefix(name, "_"),
		Language:   w.unit.Language,
	}
	if sc.class != "" {
		def.Class = sc.class
	}

	if supers := node.ChildByFieldName("superclasses"); supers != nil {
		for i := range int(supers.NamedChildCount()) {
			w.superclass(supers.NamedChild(i), &def, sc)
		}
	}

	w.unit.Definitions = append(w.unit.Definitions, def)

	w.walk(node.ChildByFieldName("body"), pyScope{from: def.ID, class: name, path: joinScope(sc.path, name)})
}

// superclass records one argument of a class header: a base class, a
// parameterized base, or a keyword like metaclass=.
func (w *pyWalker) superclass(arg *sitter.Node, def *models.Definition, sc pyScope) {
	switch arg.Type() {
	case "identifier":
		def.Bases = append(def.Bases, w.text(arg))
		w.addRef(models.Reference{From: def.ID, Line: line(arg), Name: w.text(arg), Kind: models.RefInheritance})
	case "attribute":
		def.Bases = append(def.Bases, w.text(arg))
		w.addRef(models.Reference{
			From:     def.ID,
			Line:     line(arg),
			Name:     w.text(arg.ChildByFieldName("attribute")),
			Receiver: w.text(arg.ChildByFieldName("object")),
			Kind:     models.RefInheritance,
		})
	case "subscript":
		// Generic[T] style base: the subscripted value is the class.
		if value := arg.ChildByFieldName("value"); value != nil {
			w.superclass(value, def, sc)
		}
		w.walk(arg.ChildByFieldName("subscript"), sc)
	case "keyword_argument":
		w.walk(arg.ChildByFieldName("value"), sc)
	default:
		w.walk(arg, sc)
	}
}

func (w *pyWalker) decorated(node *sitter.Node, sc pyScope) {
	// Decorators run at definition time, so their references attach to
	// the enclosing scope rather than the decorated symbol.
	for i := range int(node.NamedChildCount()) {
		child := node.NamedChild(i)
		if child.Type() == "decorator" {
			for j := range int(child.NamedChildCount()) {
				w.walk(child.NamedChild(j), sc)
			}
		}
	}
	w.walk(node.ChildByFieldName("definition"), sc)
}

func (w *pyWalker) assignment(node *sitter.Node, sc pyScope) {
	left := node.ChildByFieldName("left")
	right := node.ChildByFieldName("right")

	if sc.from == "" && left != nil && left.Type() == "identifier" && w.text(left) == "__all__" {
		w.exportList(right)
		return
	}

	if node.Type() == "assignment" && (sc.from == "" || sc.class != "") {
		w.defineTargets(left, right, sc)
	}
	if left != nil {
		switch left.Type() {
		case "identifier", "pattern_list", "tuple_pattern":
			// binding targets, not uses
		default:
			w.walk(left, sc)
		}
	}
	w.walk(node.ChildByFieldName("type"), sc)
	w.walk(right, sc)
}

func (w *pyWalker) defineTargets(left, right *sitter.Node, sc pyScope) {
	if left == nil {
		return
	}
	switch left.Type() {
	case "identifier":
		w.defineVar(left, right, sc)
	case "pattern_list", "tuple_pattern":
		for i := range int(left.NamedChildCount()) {
			if el := left.NamedChild(i); el.Type() == "identifier" {
				w.defineVar(el, nil, sc)
			}
		}
	}
}

func (w *pyWalker) defineVar(nameNode, right *sitter.Node, sc pyScope) {
	name := w.text(nameNode)
	if name == "" || name == "_" {
		return
	}
	kind := models.KindVariable
	if right != nil && right.Type() == "lambda" {
		kind = models.KindFunction
	}
	def := models.Definition{
		ID:         models.DefinitionID(w.unit.Path, line(nameNode), name),
		Name:       name,
		Kind:       kind,
		File:       w.unit.Path,
		Line:       line(nameNode),
		Column:     column(nameNode),
		EndLine:    endLine(nameNode),
		Scope:      sc.path,
		Visibility: pyVisibility(name),
		Exported:   !strings.HasPrefix(name, "_"),
		Language:   w.unit.Language,
	}
	if sc.class != "" {
		def.Class = sc.class
	}
	w.unit.Definitions = append(w.unit.Definitions, def)
}

// exportList turns __all__ entries into export bindings of local names.
func (w *pyWalker) exportList(right *sitter.Node) {
	if right == nil {
		return
	}
	for i := range int(right.NamedChildCount()) {
		el := right.NamedChild(i)
		lit, ok := w.stringLiteral(el)
		if !ok || lit == "" {
			continue
		}
		w.addBinding(models.Binding{
			Line:      line(el),
			LocalName: lit,
			Remote:    lit,
			IsExport:  true,
		})
	}
}

func (w *pyWalker) call(node *sitter.Node, sc pyScope) {
	fn := node.ChildByFieldName("function")
	args := node.ChildByFieldName("arguments")

	switch {
	case fn == nil:
	case fn.Type() == "identifier":
		name := w.text(fn)
		if !w.dynamicCall(name, fn, args, sc) {
			w.addRef(models.Reference{From: sc.from, Line: line(fn), Name: name, Kind: models.RefCall})
		}
	case fn.Type() == "attribute":
		w.member(fn, sc)
	default:
		w.walk(fn, sc)
	}

	if args != nil {
		for i := range int(args.NamedChildCount()) {
			w.walk(args.NamedChild(i), sc)
		}
	}
}

// dynamicCall records reflection-style accesses whose target is named by a
// string, or not statically named at all. Reports whether the call was
// consumed.
func (w *pyWalker) dynamicCall(name string, fn, args *sitter.Node, sc pyScope) bool {
	switch name {
	case "getattr", "hasattr":
		if args == nil || int(args.NamedChildCount()) < 2 {
			return false
		}
		lit, _ := w.stringLiteral(args.NamedChild(1))
		w.addRef(models.Reference{From: sc.from, Line: line(fn), Name: lit, Kind: models.RefDynamic})
		return true
	case "__import__":
		var lit string
		if args != nil && int(args.NamedChildCount()) > 0 {
			lit, _ = w.stringLiteral(args.NamedChild(0))
		}
		w.addRef(models.Reference{From: sc.from, Line: line(fn), Name: lit, Kind: models.RefDynamic})
		return true
	case "eval", "exec":
		w.addRef(models.Reference{From: sc.from, Line: line(fn), Kind: models.RefDynamic})
		return true
	}
	return false
}

// member records an attribute access. When the object is a plain dotted
// name the receiver text is kept so resolution can try class and module
// lookups; otherwise the object expression is walked for its own
// references.
func (w *pyWalker) member(node *sitter.Node, sc pyScope) {
	obj := node.ChildByFieldName("object")
	attr := node.ChildByFieldName("attribute")
	if attr == nil {
		return
	}

	ref := models.Reference{From: sc.from, Line: line(attr), Name: w.text(attr), Kind: models.RefMember}

	if root := pyChainRoot(obj); root != nil {
		ref.Receiver = w.text(obj)
		w.walk(root, sc)
	} else {
		w.walk(obj, sc)
	}
	w.addRef(ref)
}

func (w *pyWalker) subscript(node *sitter.Node, sc pyScope) {
	value := node.ChildByFieldName("value")
	sub := node.ChildByFieldName("subscript")

	// globals()["f"] and friends name their target with a string.
	if value != nil && value.Type() == "call" {
		if fn := value.ChildByFieldName("function"); fn != nil && fn.Type() == "identifier" {
			switch w.text(fn) {
			case "globals", "locals", "vars":
				lit, _ := w.stringLiteral(sub)
				w.addRef(models.Reference{From: sc.from, Line: line(node), Name: lit, Kind: models.RefDynamic})
				return
			}
		}
	}
	w.walk(value, sc)
	w.walk(sub, sc)
}

func (w *pyWalker) importPlain(node *sitter.Node) {
	for i := range int(node.NamedChildCount()) {
		child := node.NamedChild(i)
		switch child.Type() {
		case "dotted_name":
			path := w.text(child)
			w.addBinding(models.Binding{Line: line(child), LocalName: path, Source: path})
			// import a.b.c also binds the package root a.
			if root, _, ok := strings.Cut(path, "."); ok {
				w.addBinding(models.Binding{Line: line(child), LocalName: root, Source: root})
			}
		case "aliased_import":
			name := w.text(child.ChildByFieldName("name"))
			alias := w.text(child.ChildByFieldName("alias"))
			if name != "" && alias != "" {
				w.addBinding(models.Binding{Line: line(child), LocalName: alias, Source: name})
			}
		}
	}
}

func (w *pyWalker) importFrom(node *sitter.Node) {
	moduleNode := node.ChildByFieldName("module_name")
	module := w.text(moduleNode)
	if module == "" {
		return
	}

	for i := range int(node.NamedChildCount()) {
		child := node.NamedChild(i)
		if child.StartByte() == moduleNode.StartByte() && child.EndByte() == moduleNode.EndByte() {
			continue
		}
		switch child.Type() {
		case "dotted_name", "identifier":
			name := w.text(child)
			w.addBinding(models.Binding{Line: line(child), LocalName: name, Source: module, Remote: name})
		case "aliased_import":
			name := w.text(child.ChildByFieldName("name"))
			alias := w.text(child.ChildByFieldName("alias"))
			if name != "" && alias != "" {
				w.addBinding(models.Binding{Line: line(child), LocalName: alias, Source: module, Remote: name})
			}
		case "wildcard_import":
			w.addBinding(models.Binding{Line: line(child), LocalName: "*", Source: module, Wildcard: true})
		}
	}
}

func (w *pyWalker) isMainGuard(node *sitter.Node) bool {
	cond := node.ChildByFieldName("condition")
	if cond == nil {
		return false
	}
	text := w.text(cond)
	return strings.Contains(text, "__name__") && strings.Contains(text, "__main__")
}

// stringLiteral unquotes a plain string node. Formatted and concatenated
// strings do not count as literals.
func (w *pyWalker) stringLiteral(node *sitter.Node) (string, bool) {
	if node == nil || node.Type() != "string" {
		return "", false
	}
	s := strings.TrimLeft(w.text(node), "rbuRBU")
	for _, q := range []string{`"""`, "'''", `"`, `'`} {
		if strings.HasPrefix(s, q) && strings.HasSuffix(s, q) && len(s) >= 2*len(q) {
			return s[len(q) : len(s)-len(q)], true
		}
	}
	return "", false
}

// pyChainRoot returns the identifier at the base of a dotted attribute
// chain, or nil when the object is any other expression.
func pyChainRoot(node *sitter.Node) *sitter.Node {
	for node != nil && node.Type() == "attribute" {
		node = node.ChildByFieldName("object")
	}
	if node != nil && node.Type() == "identifier" {
		return node
	}
	return nil
}

func pyVisibility(name string) models.Visibility {
	if strings.HasPrefix(name, "_") {
		return models.VisibilityPrivate
	}
	return models.VisibilityPublic
}

func joinScope(parent, name string) string {
	if parent == "" {
		return name
	}
	return parent + "." + name
}
