package extract

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/corvids/bury/pkg/models"
	"github.com/corvids/bury/pkg/parser"
)

// goExtractor extracts symbols from Go sources.
type goExtractor struct{}

func (goExtractor) Extract(result *parser.ParseResult) (*models.SourceUnit, error) {
	unit := newUnit(result)
	w := &goWalker{src: result.Source, unit: unit}
	// Files in one directory share a package scope, which behaves like a
	// wildcard import of the sibling files.
	w.addBinding(models.Binding{Line: 1, LocalName: "*", Source: ".", Wildcard: true})
	w.walk(result.Tree.RootNode(), goScope{})
	return finishUnit(result, unit)
}

type goScope struct {
	from string
	path string
}

type goWalker struct {
	src  []byte
	unit *models.SourceUnit
}

// goPredeclared holds identifiers from the universe block that never name
// a project symbol.
var goPredeclared = map[string]bool{
	"bool": true, "byte": true, "complex64": true, "complex128": true,
	"error": true, "float32": true, "float64": true,
	"int": true, "int8": true, "int16": true, "int32": true, "int64": true,
	"rune": true, "string": true,
	"uint": true, "uint8": true, "uint16": true, "uint32": true, "uint64": true, "uintptr": true,
	"any": true, "comparable": true,
	"append": true, "cap": true, "clear": true, "close": true, "complex": true,
	"copy": true, "delete": true, "imag": true, "len": true, "make": true,
	"max": true, "min": true, "new": true, "panic": true, "print": true,
	"println": true, "real": true, "recover": true,
	"iota": true, "_": true,
}

func (w *goWalker) text(node *sitter.Node) string {
	return parser.GetNodeText(node, w.src)
}

func (w *goWalker) addRef(ref models.Reference) {
	ref.File = w.unit.Path
	w.unit.References = append(w.unit.References, ref)
}

func (w *goWalker) addBinding(b models.Binding) {
	b.File = w.unit.Path
	w.unit.Bindings = append(w.unit.Bindings, b)
}

func (w *goWalker) define(def models.Definition) {
	w.unit.Definitions = append(w.unit.Definitions, def)
}

func (w *goWalker) walk(node *sitter.Node, sc goScope) {
	if node == nil {
		return
	}

	switch node.Type() {
	case "function_declaration":
		w.function(node, sc)
	case "method_declaration":
		w.method(node, sc)
	case "type_declaration":
		for i := range int(node.NamedChildCount()) {
			child := node.NamedChild(i)
			if t := child.Type(); t == "type_spec" || t == "type_alias" {
				w.typeSpec(child, sc)
			}
		}
	case "var_declaration", "const_declaration":
		w.valueDecl(node, sc)
	case "import_declaration":
		w.imports(node)
	case "call_expression":
		w.call(node, sc)
	case "selector_expression":
		w.selector(node, sc)
	case "qualified_type":
		w.addRef(models.Reference{
			From:     sc.from,
			Line:     line(node),
			Name:     w.text(node.ChildByFieldName("name")),
			Receiver: w.text(node.ChildByFieldName("package")),
			Kind:     models.RefType,
		})
	case "identifier":
		name := w.text(node)
		if name == "" || goPredeclared[name] {
			return
		}
		w.addRef(models.Reference{From: sc.from, Line: line(node), Name: name, Kind: models.RefType})
	case "type_identifier":
		name := w.text(node)
		if name == "" || goPredeclared[name] {
			return
		}
		w.addRef(models.Reference{From: sc.from, Line: line(node), Name: name, Kind: models.RefType})
	case "short_var_declaration", "range_clause":
		// left side binds locals
		w.walk(node.ChildByFieldName("right"), sc)
	case "assignment_statement":
		if left := node.ChildByFieldName("left"); left != nil {
			for i := range int(left.NamedChildCount()) {
				if el := left.NamedChild(i); el.Type() != "identifier" {
					w.walk(el, sc)
				}
			}
		}
		w.walk(node.ChildByFieldName("right"), sc)
	case "parameter_declaration", "variadic_parameter_declaration":
		w.walk(node.ChildByFieldName("type"), sc)
	case "field_identifier", "package_identifier", "label_name", "blank_identifier",
		"interpreted_string_literal", "raw_string_literal", "comment",
		"int_literal", "float_literal", "imaginary_literal", "rune_literal",
		"nil", "true", "false":
		// never a project reference
	default:
		for i := range int(node.NamedChildCount()) {
			w.walk(node.NamedChild(i), sc)
		}
	}
}

func (w *goWalker) function(node *sitter.Node, sc goScope) {
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
		Visibility: goVisibility(name),
		Exported:   startsUpper(name),
		Language:   w.unit.Language,
	}
	w.define(def)

	inner := goScope{from: def.ID, path: joinScope(sc.path, name)}
	w.walk(node.ChildByFieldName("type_parameters"), inner)
	w.walk(node.ChildByFieldName("parameters"), inner)
	w.walk(node.ChildByFieldName("result"), inner)
	w.walk(node.ChildByFieldName("body"), inner)
}

func (w *goWalker) method(node *sitter.Node, sc goScope) {
	name := w.text(node.ChildByFieldName("name"))
	if name == "" {
		return
	}
	recv := receiverTypeName(node.ChildByFieldName("receiver"), w.src)

	def := models.Definition{
		ID:         models.DefinitionID(w.unit.Path, line(node), name),
		Name:       name,
		Kind:       models.KindMethod,
		File:       w.unit.Path,
		Line:       line(node),
		Column:     column(node),
		EndLine:    endLine(node),
		Scope:      sc.path,
		Class:      recv,
		Visibility: goVisibility(name),
		Exported:   startsUpper(name),
		Language:   w.unit.Language,
	}
	w.define(def)

	inner := goScope{from: def.ID, path: joinScope(sc.path, name)}
	w.walk(node.ChildByFieldName("receiver"), inner)
	w.walk(node.ChildByFieldName("parameters"), inner)
	w.walk(node.ChildByFieldName("result"), inner)
	w.walk(node.ChildByFieldName("body"), inner)
}

func (w *goWalker) typeSpec(spec *sitter.Node, sc goScope) {
	name := w.text(spec.ChildByFieldName("name"))
	if name == "" {
		return
	}
	typ := spec.ChildByFieldName("type")

	kind := models.KindClass
	if typ != nil && typ.Type() == "interface_type" {
		kind = models.KindInterface
	}
	def := models.Definition{
		ID:         models.DefinitionID(w.unit.Path, line(spec), name),
		Name:       name,
		Kind:       kind,
		File:       w.unit.Path,
		Line:       line(spec),
		Column:     column(spec),
		EndLine:    endLine(spec),
		Scope:      sc.path,
		Visibility: goVisibility(name),
		Exported:   startsUpper(name),
		Language:   w.unit.Language,
	}

	inner := goScope{from: def.ID, path: joinScope(sc.path, name)}
	if typ != nil {
		switch typ.Type() {
		case "struct_type":
			w.structBody(typ, &def, inner)
		case "interface_type":
			w.interfaceBody(typ, &def, inner)
		default:
			w.walk(typ, inner)
		}
	}
	w.define(def)
	w.walk(spec.ChildByFieldName("type_parameters"), inner)
}

// structBody records embedded fields as bases and walks named field types.
func (w *goWalker) structBody(typ *sitter.Node, def *models.Definition, sc goScope) {
	for i := range int(typ.NamedChildCount()) {
		list := typ.NamedChild(i)
		if list.Type() != "field_declaration_list" {
			continue
		}
		for j := range int(list.NamedChildCount()) {
			fd := list.NamedChild(j)
			if fd.Type() != "field_declaration" {
				continue
			}
			ft := fd.ChildByFieldName("type")
			if fd.ChildByFieldName("name") == nil && ft != nil {
				w.embedded(ft, def, sc)
				continue
			}
			w.walk(ft, sc)
		}
	}
}

func (w *goWalker) embedded(ft *sitter.Node, def *models.Definition, sc goScope) {
	base := ft
	for base != nil && base.Type() == "pointer_type" {
		base = base.NamedChild(0)
	}
	if base == nil {
		return
	}
	switch base.Type() {
	case "type_identifier":
		name := w.text(base)
		if goPredeclared[name] {
			return
		}
		def.Bases = append(def.Bases, name)
		w.addRef(models.Reference{From: def.ID, Line: line(base), Name: name, Kind: models.RefInheritance})
	case "qualified_type":
		def.Bases = append(def.Bases, w.text(base))
		w.addRef(models.Reference{
			From:     def.ID,
			Line:     line(base),
			Name:     w.text(base.ChildByFieldName("name")),
			Receiver: w.text(base.ChildByFieldName("package")),
			Kind:     models.RefInheritance,
		})
	case "generic_type":
		if inner := base.ChildByFieldName("type"); inner != nil {
			w.embedded(inner, def, sc)
		}
		w.walk(base.ChildByFieldName("type_arguments"), sc)
	default:
		w.walk(ft, sc)
	}
}

// interfaceBody records embedded interfaces as bases and walks method
// signatures for type references.
func (w *goWalker) interfaceBody(typ *sitter.Node, def *models.Definition, sc goScope) {
	for i := range int(typ.NamedChildCount()) {
		c := typ.NamedChild(i)
		switch c.Type() {
		case "method_spec", "method_elem":
			w.walk(c.ChildByFieldName("parameters"), sc)
			w.walk(c.ChildByFieldName("result"), sc)
		case "type_identifier":
			name := w.text(c)
			if goPredeclared[name] {
				continue
			}
			def.Bases = append(def.Bases, name)
			w.addRef(models.Reference{From: def.ID, Line: line(c), Name: name, Kind: models.RefInheritance})
		case "qualified_type":
			def.Bases = append(def.Bases, w.text(c))
			w.addRef(models.Reference{
				From:     def.ID,
				Line:     line(c),
				Name:     w.text(c.ChildByFieldName("name")),
				Receiver: w.text(c.ChildByFieldName("package")),
				Kind:     models.RefInheritance,
			})
		default:
			w.walk(c, sc)
		}
	}
}

func (w *goWalker) valueDecl(node *sitter.Node, sc goScope) {
	for i := range int(node.NamedChildCount()) {
		spec := node.NamedChild(i)
		if t := spec.Type(); t != "var_spec" && t != "const_spec" {
			continue
		}
		if sc.from == "" {
			for j := range int(spec.NamedChildCount()) {
				nameNode := spec.NamedChild(j)
				if nameNode.Type() != "identifier" {
					continue
				}
				name := w.text(nameNode)
				if name == "" || name == "_" {
					continue
				}
				w.define(models.Definition{
					ID:         models.DefinitionID(w.unit.Path, line(nameNode), name),
					Name:       name,
					Kind:       models.KindVariable,
					File:       w.unit.Path,
					Line:       line(nameNode),
					Column:     column(nameNode),
					EndLine:    endLine(nameNode),
					Scope:      sc.path,
					Visibility: goVisibility(name),
					Exported:   startsUpper(name),
					Language:   w.unit.Language,
				})
			}
		}
		w.walk(spec.ChildByFieldName("type"), sc)
		w.walk(spec.ChildByFieldName("value"), sc)
	}
}

func (w *goWalker) imports(node *sitter.Node) {
	var specs []*sitter.Node
	for i := range int(node.NamedChildCount()) {
		child := node.NamedChild(i)
		switch child.Type() {
		case "import_spec":
			specs = append(specs, child)
		case "import_spec_list":
			for j := range int(child.NamedChildCount()) {
				if s := child.NamedChild(j); s.Type() == "import_spec" {
					specs = append(specs, s)
				}
			}
		}
	}

	for _, spec := range specs {
		path := unquote(w.text(spec.ChildByFieldName("path")))
		if path == "" {
			continue
		}
		nameNode := spec.ChildByFieldName("name")
		switch {
		case nameNode == nil:
			w.addBinding(models.Binding{Line: line(spec), LocalName: lastSegment(path), Source: path})
		case nameNode.Type() == "dot":
			w.addBinding(models.Binding{Line: line(spec), LocalName: "*", Source: path, Wildcard: true})
		case nameNode.Type() == "blank_identifier":
			// side-effect import keeps the target package linked
			w.addBinding(models.Binding{Line: line(spec), Source: path})
		default:
			w.addBinding(models.Binding{Line: line(spec), LocalName: w.text(nameNode), Source: path})
		}
	}
}

func (w *goWalker) call(node *sitter.Node, sc goScope) {
	fn := node.ChildByFieldName("function")
	switch {
	case fn == nil:
	case fn.Type() == "identifier":
		name := w.text(fn)
		if name != "" && !goPredeclared[name] {
			w.addRef(models.Reference{From: sc.from, Line: line(fn), Name: name, Kind: models.RefCall})
		}
	case fn.Type() == "selector_expression":
		w.selector(fn, sc)
	default:
		w.walk(fn, sc)
	}

	w.walk(node.ChildByFieldName("type_arguments"), sc)
	if args := node.ChildByFieldName("arguments"); args != nil {
		for i := range int(args.NamedChildCount()) {
			w.walk(args.NamedChild(i), sc)
		}
	}
}

func (w *goWalker) selector(node *sitter.Node, sc goScope) {
	operand := node.ChildByFieldName("operand")
	fieldNode := node.ChildByFieldName("field")
	if fieldNode == nil {
		return
	}

	ref := models.Reference{From: sc.from, Line: line(fieldNode), Name: w.text(fieldNode), Kind: models.RefMember}

	if root := goChainRoot(operand); root != nil {
		ref.Receiver = w.text(operand)
		if name := w.text(root); name != "" && !goPredeclared[name] {
			w.addRef(models.Reference{From: sc.from, Line: line(root), Name: name, Kind: models.RefType})
		}
	} else {
		w.walk(operand, sc)
	}
	w.addRef(ref)
}

func goChainRoot(node *sitter.Node) *sitter.Node {
	for node != nil && node.Type() == "selector_expression" {
		node = node.ChildByFieldName("operand")
	}
	if node != nil && node.Type() == "identifier" {
		return node
	}
	return nil
}

func receiverTypeName(receiver *sitter.Node, src []byte) string {
	if receiver == nil {
		return ""
	}
	var typ *sitter.Node
	for i := range int(receiver.NamedChildCount()) {
		if pd := receiver.NamedChild(i); pd.Type() == "parameter_declaration" {
			typ = pd.ChildByFieldName("type")
			break
		}
	}
	for typ != nil {
		switch typ.Type() {
		case "pointer_type":
			typ = typ.NamedChild(0)
		case "generic_type":
			typ = typ.ChildByFieldName("type")
		case "type_identifier":
			return parser.GetNodeText(typ, src)
		default:
			return ""
		}
	}
	return ""
}

func goVisibility(name string) models.Visibility {
	if startsUpper(name) {
		return models.VisibilityPublic
	}
	return models.VisibilityPrivate
}

func unquote(s string) string {
	if len(s) >= 2 && (s[0] == '"' || s[0] == '`') && s[len(s)-1] == s[0] {
		return s[1 : len(s)-1]
	}
	return s
}

func lastSegment(path string) string {
	if idx := strings.LastIndexByte(path, '/'); idx >= 0 {
		return path[idx+1:]
	}
	return path
}
