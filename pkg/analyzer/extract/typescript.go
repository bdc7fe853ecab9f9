package extract

import (
	"strings"
	"unicode"
	"unicode/utf8"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/corvids/bury/pkg/models"
	"github.com/corvids/bury/pkg/parser"
)

// typescriptExtractor extracts symbols from TypeScript, TSX, and
// JavaScript sources. The three grammars share node names for everything
// this walker touches.
type typescriptExtractor struct{}

func (typescriptExtractor) Extract(result *parser.ParseResult) (*models.SourceUnit, error) {
	unit := newUnit(result)
	w := &tsWalker{src: result.Source, unit: unit}
	w.walk(result.Tree.RootNode(), tsScope{})
	return finishUnit(result, unit)
}

type tsScope struct {
	from          string // enclosing definition ID, "" at module scope
	class         string // set while directly inside a class body
	path          string // dotted scope path for Definition.Scope
	exported      bool   // inside an export statement
	defaultExport bool   // inside export default
}

type tsWalker struct {
	src  []byte
	unit *models.SourceUnit
}

var tsSkipIdents = map[string]bool{
	"arguments": true,
	"undefined": true,
	"require":   true,
}

func (w *tsWalker) text(node *sitter.Node) string {
	return parser.GetNodeText(node, w.src)
}

func (w *tsWalker) addRef(ref models.Reference) {
	ref.File = w.unit.Path
	w.unit.References = append(w.unit.References, ref)
}

func (w *tsWalker) addBinding(b models.Binding) {
	b.File = w.unit.Path
	w.unit.Bindings = append(w.unit.Bindings, b)
}

func (w *tsWalker) walk(node *sitter.Node, sc tsScope) {
	if node == nil {
		return
	}

	switch node.Type() {
	case "function_declaration", "generator_function_declaration", "function_signature":
		w.funcDecl(node, sc)
	case "class_declaration", "abstract_class_declaration":
		w.classDecl(node, sc)
	case "interface_declaration":
		w.interfaceDecl(node, sc)
	case "type_alias_declaration":
		w.typeAlias(node, sc)
	case "enum_declaration":
		w.enumDecl(node, sc)
	case "lexical_declaration", "variable_declaration":
		w.varDecl(node, sc)
	case "import_statement":
		w.importStmt(node)
	case "export_statement":
		w.export(node, sc)
	case "internal_module":
		// namespace N { ... }: members stay module-scoped with a longer path
		if name := w.text(node.ChildByFieldName("name")); name != "" {
			sc.path = joinScope(sc.path, name)
		}
		w.walk(node.ChildByFieldName("body"), sc)
	case "call_expression":
		w.call(node, sc)
	case "new_expression":
		w.newExpr(node, sc)
	case "member_expression":
		w.member(node, sc)
	case "subscript_expression":
		w.subscriptExpr(node, sc)
	case "identifier":
		name := w.text(node)
		if name == "" || tsSkipIdents[name] {
			return
		}
		w.addRef(models.Reference{From: sc.from, Line: line(node), Name: name, Kind: models.RefType})
	case "type_identifier", "shorthand_property_identifier":
		w.addRef(models.Reference{From: sc.from, Line: line(node), Name: w.text(node), Kind: models.RefType})
	case "nested_type_identifier":
		w.addRef(models.Reference{
			From:     sc.from,
			Line:     line(node),
			Name:     w.text(node.ChildByFieldName("name")),
			Receiver: w.text(node.ChildByFieldName("module")),
			Kind:     models.RefType,
		})
	case "jsx_opening_element", "jsx_self_closing_element":
		w.jsx(node, sc)
	case "pair":
		if key := node.ChildByFieldName("key"); key != nil && key.Type() == "computed_property_name" {
			w.walk(key, sc)
		}
		w.walk(node.ChildByFieldName("value"), sc)
	case "method_definition":
		// object literal method; class methods are consumed by classDecl
		w.functionParts(node, sc)
	case "arrow_function", "function", "function_expression", "generator_function":
		w.functionParts(node, sc)
	case "decorator":
		for i := range int(node.NamedChildCount()) {
			w.walk(node.NamedChild(i), sc)
		}
	case "for_in_statement":
		// for (const x of xs): the left side binds locals
		w.walk(node.ChildByFieldName("right"), sc)
		w.walk(node.ChildByFieldName("body"), sc)
	case "catch_clause":
		w.walk(node.ChildByFieldName("body"), sc)
	case "property_identifier", "private_property_identifier", "statement_identifier",
		"string", "template_string_fragment", "comment", "regex", "number", "predefined_type", "this", "super":
		// consumed by enclosing handlers or never a reference
	default:
		for i := range int(node.NamedChildCount()) {
			w.walk(node.NamedChild(i), sc)
		}
	}
}

func (w *tsWalker) define(def models.Definition) {
	w.unit.Definitions = append(w.unit.Definitions, def)
}

func (w *tsWalker) funcDecl(node *sitter.Node, sc tsScope) {
	name := w.text(node.ChildByFieldName("name"))
	if name == "" {
		if !sc.defaultExport {
			return
		}
		name = "default"
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
		Visibility: models.VisibilityPublic,
		Exported:   sc.exported,
		Language:   w.unit.Language,
	}
	w.define(def)
	if sc.defaultExport && name != "default" {
		w.addBinding(models.Binding{Line: line(node), LocalName: "default", Remote: name, IsExport: true})
	}

	w.functionParts(node, tsScope{from: def.ID, path: joinScope(sc.path, name)})
}

func (w *tsWalker) classDecl(node *sitter.Node, sc tsScope) {
	name := w.text(node.ChildByFieldName("name"))
	if name == "" {
		if !sc.defaultExport {
			return
		}
		name = "default"
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
		Visibility: models.VisibilityPublic,
		Exported:   sc.exported,
		Language:   w.unit.Language,
	}

	for i := range int(node.NamedChildCount()) {
		if child := node.NamedChild(i); child.Type() == "class_heritage" {
			w.heritage(child, &def, sc)
		}
	}

	w.define(def)
	if sc.defaultExport && name != "default" {
		w.addBinding(models.Binding{Line: line(node), LocalName: "default", Remote: name, IsExport: true})
	}

	if body := node.ChildByFieldName("body"); body != nil {
		w.classBody(body, def, sc)
	}
}

// heritage records extends/implements clauses. The TS grammars wrap them
// in dedicated clause nodes; the JS grammar puts the expression directly
// under class_heritage.
func (w *tsWalker) heritage(node *sitter.Node, def *models.Definition, sc tsScope) {
	for i := range int(node.NamedChildCount()) {
		child := node.NamedChild(i)
		switch child.Type() {
		case "extends_clause":
			if v := child.ChildByFieldName("value"); v != nil {
				w.base(v, def, sc)
			} else {
				for j := range int(child.NamedChildCount()) {
					w.base(child.NamedChild(j), def, sc)
				}
			}
		case "implements_clause":
			for j := range int(child.NamedChildCount()) {
				t := child.NamedChild(j)
				w.addRef(models.Reference{From: def.ID, Line: line(t), Name: baseName(w.text(t)), Kind: models.RefInheritance})
			}
		default:
			w.base(child, def, sc)
		}
	}
}

func (w *tsWalker) base(node *sitter.Node, def *models.Definition, sc tsScope) {
	switch node.Type() {
	case "identifier", "type_identifier":
		def.Bases = append(def.Bases, w.text(node))
		w.addRef(models.Reference{From: def.ID, Line: line(node), Name: w.text(node), Kind: models.RefInheritance})
	case "member_expression":
		def.Bases = append(def.Bases, w.text(node))
		w.addRef(models.Reference{
			From:     def.ID,
			Line:     line(node),
			Name:     w.text(node.ChildByFieldName("property")),
			Receiver: w.text(node.ChildByFieldName("object")),
			Kind:     models.RefInheritance,
		})
	case "nested_type_identifier":
		def.Bases = append(def.Bases, w.text(node))
		w.addRef(models.Reference{
			From:     def.ID,
			Line:     line(node),
			Name:     w.text(node.ChildByFieldName("name")),
			Receiver: w.text(node.ChildByFieldName("module")),
			Kind:     models.RefInheritance,
		})
	case "generic_type":
		if name := node.ChildByFieldName("name"); name != nil {
			w.base(name, def, sc)
		}
		w.walk(node.ChildByFieldName("type_arguments"), sc)
	case "type_arguments":
		w.walk(node, sc)
	default:
		// mixin factories and other computed bases
		w.walk(node, sc)
	}
}

func (w *tsWalker) classBody(body *sitter.Node, class models.Definition, sc tsScope) {
	inner := tsScope{from: class.ID, class: class.Name, path: joinScope(sc.path, class.Name)}

	for i := range int(body.NamedChildCount()) {
		m := body.NamedChild(i)
		switch m.Type() {
		case "method_definition":
			w.method(m, inner)
		case "public_field_definition", "field_definition":
			w.field(m, inner)
		default:
			w.walk(m, inner)
		}
	}
}

func (w *tsWalker) method(node *sitter.Node, sc tsScope) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	if nameNode.Type() == "computed_property_name" {
		// [expr]() {}: the name is dynamic
		w.addRef(models.Reference{From: sc.from, Line: line(nameNode), Kind: models.RefDynamic})
		w.walk(nameNode, sc)
		w.functionParts(node, sc)
		return
	}
	name := w.text(nameNode)
	if name == "" {
		return
	}

	def := models.Definition{
		ID:         models.DefinitionID(w.unit.Path, line(node), name),
		Name:       name,
		Kind:       models.KindMethod,
		File:       w.unit.Path,
		Line:       line(node),
		Column:     column(node),
		EndLine:    endLine(node),
		Scope:      sc.path,
		Class:      sc.class,
		Visibility: tsMemberVisibility(node, name, w.src),
		Language:   w.unit.Language,
	}
	def.Exported = def.Visibility == models.VisibilityPublic
	w.define(def)

	w.functionParts(node, tsScope{from: def.ID, path: joinScope(sc.path, name)})
}

func (w *tsWalker) field(node *sitter.Node, sc tsScope) {
	nameNode := node.ChildByFieldName("name")
	value := node.ChildByFieldName("value")
	name := w.text(nameNode)
	if name == "" || nameNode.Type() == "computed_property_name" {
		w.walk(nameNode, sc)
		w.walk(value, sc)
		return
	}

	kind := models.KindVariable
	if value != nil && isFunctionValue(value.Type()) {
		kind = models.KindMethod
	}
	def := models.Definition{
		ID:         models.DefinitionID(w.unit.Path, line(node), name),
		Name:       name,
		Kind:       kind,
		File:       w.unit.Path,
		Line:       line(node),
		Column:     column(node),
		EndLine:    endLine(node),
		Scope:      sc.path,
		Class:      sc.class,
		Visibility: tsMemberVisibility(node, name, w.src),
		Language:   w.unit.Language,
	}
	def.Exported = def.Visibility == models.VisibilityPublic
	w.define(def)

	w.walk(node.ChildByFieldName("type"), sc)
	if value != nil {
		if kind == models.KindMethod {
			w.functionParts(value, tsScope{from: def.ID, path: joinScope(sc.path, name)})
		} else {
			w.walk(value, sc)
		}
	}
}

func (w *tsWalker) interfaceDecl(node *sitter.Node, sc tsScope) {
	name := w.text(node.ChildByFieldName("name"))
	if name == "" {
		return
	}

	def := models.Definition{
		ID:         models.DefinitionID(w.unit.Path, line(node), name),
		Name:       name,
		Kind:       models.KindInterface,
		File:       w.unit.Path,
		Line:       line(node),
		Column:     column(node),
		EndLine:    endLine(node),
		Scope:      sc.path,
		Visibility: models.VisibilityPublic,
		Exported:   sc.exported,
		Language:   w.unit.Language,
	}

	inner := tsScope{from: def.ID, path: joinScope(sc.path, name)}
	for i := range int(node.NamedChildCount()) {
		child := node.NamedChild(i)
		switch child.Type() {
		case "extends_type_clause", "extends_clause":
			for j := range int(child.NamedChildCount()) {
				t := child.NamedChild(j)
				switch t.Type() {
				case "type_identifier", "identifier", "nested_type_identifier", "generic_type":
					def.Bases = append(def.Bases, baseName(w.text(t)))
					w.addRef(models.Reference{From: def.ID, Line: line(t), Name: baseName(w.text(t)), Kind: models.RefInheritance})
				default:
					w.walk(t, inner)
				}
			}
		case "object_type":
			w.walk(child, inner)
		}
	}

	w.define(def)
}

func (w *tsWalker) typeAlias(node *sitter.Node, sc tsScope) {
	name := w.text(node.ChildByFieldName("name"))
	if name == "" {
		return
	}

	def := models.Definition{
		ID:         models.DefinitionID(w.unit.Path, line(node), name),
		Name:       name,
		Kind:       models.KindInterface,
		File:       w.unit.Path,
		Line:       line(node),
		Column:     column(node),
		EndLine:    endLine(node),
		Scope:      sc.path,
		Visibility: models.VisibilityPublic,
		Exported:   sc.exported,
		Language:   w.unit.Language,
	}
	w.define(def)

	w.walk(node.ChildByFieldName("value"), tsScope{from: def.ID, path: joinScope(sc.path, name)})
}

func (w *tsWalker) enumDecl(node *sitter.Node, sc tsScope) {
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
		Visibility: models.VisibilityPublic,
		Exported:   sc.exported,
		Language:   w.unit.Language,
	}
	w.define(def)

	inner := tsScope{from: def.ID, class: name, path: joinScope(sc.path, name)}
	if body := node.ChildByFieldName("body"); body != nil {
		for i := range int(body.NamedChildCount()) {
			m := body.NamedChild(i)
			var nameNode, value *sitter.Node
			if m.Type() == "enum_assignment" {
				nameNode = m.ChildByFieldName("name")
				value = m.ChildByFieldName("value")
			} else {
				nameNode = m
			}
			if mn := w.text(nameNode); mn != "" && nameNode.Type() != "computed_property_name" {
				w.define(models.Definition{
					ID:         models.DefinitionID(w.unit.Path, line(nameNode), mn),
					Name:       mn,
					Kind:       models.KindVariable,
					File:       w.unit.Path,
					Line:       line(nameNode),
					Column:     column(nameNode),
					EndLine:    endLine(nameNode),
					Scope:      inner.path,
					Class:      name,
					Visibility: models.VisibilityPublic,
					Exported:   true,
					Language:   w.unit.Language,
				})
			}
			w.walk(value, inner)
		}
	}
}

func (w *tsWalker) varDecl(node *sitter.Node, sc tsScope) {
	for i := range int(node.NamedChildCount()) {
		d := node.NamedChild(i)
		if d.Type() != "variable_declarator" {
			continue
		}
		nameNode := d.ChildByFieldName("name")
		value := d.ChildByFieldName("value")

		// const x = require("m") and destructured forms bind imports.
		if src, ok := w.requireSource(value); ok {
			w.bindRequire(nameNode, src)
			w.walk(d.ChildByFieldName("type"), sc)
			continue
		}

		defined := false
		var def models.Definition
		if sc.from == "" && nameNode != nil {
			switch nameNode.Type() {
			case "identifier":
				name := w.text(nameNode)
				kind := models.KindVariable
				if value != nil && isFunctionValue(value.Type()) {
					kind = models.KindFunction
				}
				def = models.Definition{
					ID:         models.DefinitionID(w.unit.Path, line(d), name),
					Name:       name,
					Kind:       kind,
					File:       w.unit.Path,
					Line:       line(d),
					Column:     column(d),
					EndLine:    endLine(d),
					Scope:      sc.path,
					Visibility: models.VisibilityPublic,
					Exported:   sc.exported,
					Language:   w.unit.Language,
				}
				w.define(def)
				defined = true
			case "object_pattern", "array_pattern":
				w.definePattern(nameNode, sc)
			}
		}

		w.walk(d.ChildByFieldName("type"), sc)
		if value == nil {
			continue
		}
		if defined && def.Kind == models.KindFunction {
			w.functionParts(value, tsScope{from: def.ID, path: joinScope(sc.path, def.Name)})
		} else {
			w.walk(value, sc)
		}
	}
}

// definePattern registers module-scope destructuring targets as variables.
func (w *tsWalker) definePattern(pattern *sitter.Node, sc tsScope) {
	for i := range int(pattern.NamedChildCount()) {
		el := pattern.NamedChild(i)
		switch el.Type() {
		case "shorthand_property_identifier_pattern", "identifier":
			name := w.text(el)
			if name == "" {
				continue
			}
			w.define(models.Definition{
				ID:         models.DefinitionID(w.unit.Path, line(el), name),
				Name:       name,
				Kind:       models.KindVariable,
				File:       w.unit.Path,
				Line:       line(el),
				Column:     column(el),
				EndLine:    endLine(el),
				Scope:      sc.path,
				Visibility: models.VisibilityPublic,
				Exported:   sc.exported,
				Language:   w.unit.Language,
			})
		case "pair_pattern":
			if v := el.ChildByFieldName("value"); v != nil && v.Type() == "identifier" {
				w.definePattern(el, sc)
			}
		case "object_pattern", "array_pattern":
			w.definePattern(el, sc)
		}
	}
}

func (w *tsWalker) export(node *sitter.Node, sc tsScope) {
	source := w.stringText(node.ChildByFieldName("source"))

	star := false
	for i := range int(node.ChildCount()) {
		switch node.Child(i).Type() {
		case "default":
			sc.defaultExport = true
		case "*":
			star = true
		}
	}

	if decl := node.ChildByFieldName("declaration"); decl != nil {
		sc.exported = true
		w.walk(decl, sc)
		return
	}

	if value := node.ChildByFieldName("value"); value != nil {
		// export default <expr>
		if value.Type() == "identifier" {
			name := w.text(value)
			w.addBinding(models.Binding{Line: line(value), LocalName: "default", Remote: name, IsExport: true})
			w.addRef(models.Reference{From: sc.from, Line: line(value), Name: name, Kind: models.RefExport})
		} else {
			w.walk(value, sc)
		}
		return
	}

	handled := false
	for i := range int(node.NamedChildCount()) {
		child := node.NamedChild(i)
		switch child.Type() {
		case "namespace_export":
			// export * as ns from "m"
			if source != "" && child.NamedChildCount() > 0 {
				w.addBinding(models.Binding{Line: line(child), LocalName: w.text(child.NamedChild(0)), Source: source, IsExport: true})
			}
			handled = true
		case "export_clause":
			handled = true
			for j := range int(child.NamedChildCount()) {
				spec := child.NamedChild(j)
				if spec.Type() != "export_specifier" {
					continue
				}
				local := w.text(spec.ChildByFieldName("name"))
				exported := w.text(spec.ChildByFieldName("alias"))
				if exported == "" {
					exported = local
				}
				if local == "" {
					continue
				}
				w.addBinding(models.Binding{
					Line:      line(spec),
					LocalName: exported,
					Remote:    local,
					Source:    source,
					IsExport:  true,
				})
			}
		}
	}

	if !handled && star && source != "" {
		w.addBinding(models.Binding{Line: line(node), LocalName: "*", Source: source, Wildcard: true, IsExport: true})
	}
}

func (w *tsWalker) importStmt(node *sitter.Node) {
	source := w.stringText(node.ChildByFieldName("source"))
	if source == "" {
		return
	}

	clause := false
	for i := range int(node.NamedChildCount()) {
		child := node.NamedChild(i)
		if child.Type() != "import_clause" {
			continue
		}
		clause = true
		for j := range int(child.NamedChildCount()) {
			c := child.NamedChild(j)
			switch c.Type() {
			case "identifier":
				w.addBinding(models.Binding{Line: line(c), LocalName: w.text(c), Source: source, Remote: "default"})
			case "named_imports":
				for k := range int(c.NamedChildCount()) {
					spec := c.NamedChild(k)
					if spec.Type() != "import_specifier" {
						continue
					}
					name := w.text(spec.ChildByFieldName("name"))
					alias := w.text(spec.ChildByFieldName("alias"))
					if alias == "" {
						alias = name
					}
					if name != "" {
						w.addBinding(models.Binding{Line: line(spec), LocalName: alias, Source: source, Remote: name})
					}
				}
			case "namespace_import":
				if ident := c.NamedChild(0); ident != nil {
					w.addBinding(models.Binding{Line: line(c), LocalName: w.text(ident), Source: source})
				}
			}
		}
	}

	if !clause {
		// side-effect import keeps the target module linked
		w.addBinding(models.Binding{Line: line(node), Source: source})
	}
}

func (w *tsWalker) call(node *sitter.Node, sc tsScope) {
	fn := node.ChildByFieldName("function")
	args := node.ChildByFieldName("arguments")

	switch {
	case fn == nil:
	case fn.Type() == "identifier":
		name := w.text(fn)
		if name == "require" {
			if src, ok := w.stringArg(args, 0); ok {
				w.addBinding(models.Binding{Line: line(node), Source: src})
				return
			}
		}
		w.addRef(models.Reference{From: sc.from, Line: line(fn), Name: name, Kind: models.RefCall})
	case fn.Type() == "member_expression":
		w.member(fn, sc)
	case fn.Type() == "import":
		src, _ := w.stringArg(args, 0)
		w.addRef(models.Reference{From: sc.from, Line: line(node), Name: src, Kind: models.RefDynamic})
		if src != "" {
			w.addBinding(models.Binding{Line: line(node), Source: src})
		}
	default:
		w.walk(fn, sc)
	}

	w.walk(node.ChildByFieldName("type_arguments"), sc)
	if args != nil {
		for i := range int(args.NamedChildCount()) {
			w.walk(args.NamedChild(i), sc)
		}
	}
}

func (w *tsWalker) newExpr(node *sitter.Node, sc tsScope) {
	ctor := node.ChildByFieldName("constructor")
	switch {
	case ctor == nil:
	case ctor.Type() == "identifier":
		w.addRef(models.Reference{From: sc.from, Line: line(ctor), Name: w.text(ctor), Kind: models.RefType})
	case ctor.Type() == "member_expression":
		w.member(ctor, sc)
	default:
		w.walk(ctor, sc)
	}

	w.walk(node.ChildByFieldName("type_arguments"), sc)
	if args := node.ChildByFieldName("arguments"); args != nil {
		for i := range int(args.NamedChildCount()) {
			w.walk(args.NamedChild(i), sc)
		}
	}
}

// member records a property access. The receiver text is kept when the
// object is a plain dotted chain rooted at an identifier or this.
func (w *tsWalker) member(node *sitter.Node, sc tsScope) {
	obj := node.ChildByFieldName("object")
	prop := node.ChildByFieldName("property")
	if prop == nil {
		return
	}

	ref := models.Reference{From: sc.from, Line: line(prop), Name: w.text(prop), Kind: models.RefMember}

	if root := tsChainRoot(obj); root != nil {
		ref.Receiver = w.text(obj)
		if root.Type() == "identifier" {
			w.walk(root, sc)
		}
	} else {
		w.walk(obj, sc)
	}
	w.addRef(ref)
}

func (w *tsWalker) subscriptExpr(node *sitter.Node, sc tsScope) {
	obj := node.ChildByFieldName("object")
	index := node.ChildByFieldName("index")

	if index != nil && index.Type() == "string" {
		ref := models.Reference{From: sc.from, Line: line(index), Name: w.stringText(index), Kind: models.RefDynamic}
		if root := tsChainRoot(obj); root != nil {
			ref.Receiver = w.text(obj)
			if root.Type() == "identifier" {
				w.walk(root, sc)
			}
		} else {
			w.walk(obj, sc)
		}
		w.addRef(ref)
		return
	}

	w.walk(obj, sc)
	w.walk(index, sc)
}

// jsx records component references. Lowercase element names are intrinsic
// tags, not symbols.
func (w *tsWalker) jsx(node *sitter.Node, sc tsScope) {
	nameNode := node.ChildByFieldName("name")
	if nameNode != nil {
		switch nameNode.Type() {
		case "identifier":
			if name := w.text(nameNode); startsUpper(name) {
				w.addRef(models.Reference{From: sc.from, Line: line(nameNode), Name: name, Kind: models.RefType})
			}
		case "member_expression":
			w.member(nameNode, sc)
		case "nested_identifier":
			full := w.text(nameNode)
			if idx := strings.LastIndex(full, "."); idx > 0 {
				w.addRef(models.Reference{
					From:     sc.from,
					Line:     line(nameNode),
					Name:     full[idx+1:],
					Receiver: full[:idx],
					Kind:     models.RefType,
				})
			}
		}
	}

	for i := range int(node.NamedChildCount()) {
		child := node.NamedChild(i)
		if nameNode != nil && child.StartByte() == nameNode.StartByte() && child.EndByte() == nameNode.EndByte() {
			continue
		}
		w.walk(child, sc)
	}
}

// functionParts walks the annotations, parameter defaults, and body of a
// function-like node. Parameter names bind locals and are skipped.
func (w *tsWalker) functionParts(node *sitter.Node, sc tsScope) {
	if node == nil {
		return
	}
	if params := node.ChildByFieldName("parameters"); params != nil {
		for i := range int(params.NamedChildCount()) {
			p := params.NamedChild(i)
			switch p.Type() {
			case "required_parameter", "optional_parameter":
				w.walk(p.ChildByFieldName("type"), sc)
				w.walk(p.ChildByFieldName("value"), sc)
			case "identifier":
				// bare parameter name
			default:
				w.walk(p.ChildByFieldName("type"), sc)
			}
		}
	}
	w.walk(node.ChildByFieldName("return_type"), sc)
	w.walk(node.ChildByFieldName("body"), sc)
}

func (w *tsWalker) requireSource(value *sitter.Node) (string, bool) {
	if value == nil || value.Type() != "call_expression" {
		return "", false
	}
	fn := value.ChildByFieldName("function")
	if fn == nil || fn.Type() != "identifier" || w.text(fn) != "require" {
		return "", false
	}
	return w.stringArg(value.ChildByFieldName("arguments"), 0)
}

func (w *tsWalker) bindRequire(nameNode *sitter.Node, source string) {
	if nameNode == nil {
		return
	}
	switch nameNode.Type() {
	case "identifier":
		w.addBinding(models.Binding{Line: line(nameNode), LocalName: w.text(nameNode), Source: source})
	case "object_pattern":
		for i := range int(nameNode.NamedChildCount()) {
			el := nameNode.NamedChild(i)
			switch el.Type() {
			case "shorthand_property_identifier_pattern":
				name := w.text(el)
				w.addBinding(models.Binding{Line: line(el), LocalName: name, Source: source, Remote: name})
			case "pair_pattern":
				remote := w.text(el.ChildByFieldName("key"))
				local := w.text(el.ChildByFieldName("value"))
				if remote != "" && local != "" {
					w.addBinding(models.Binding{Line: line(el), LocalName: local, Source: source, Remote: remote})
				}
			}
		}
	default:
		w.addBinding(models.Binding{Line: line(nameNode), Source: source})
	}
}

func (w *tsWalker) stringArg(args *sitter.Node, i int) (string, bool) {
	if args == nil || int(args.NamedChildCount()) <= i {
		return "", false
	}
	arg := args.NamedChild(i)
	if arg.Type() != "string" {
		return "", false
	}
	s := w.stringText(arg)
	return s, s != ""
}

// stringText unquotes a string node.
func (w *tsWalker) stringText(node *sitter.Node) string {
	if node == nil || node.Type() != "string" {
		return ""
	}
	s := w.text(node)
	if len(s) >= 2 {
		switch s[0] {
		case '\'', '"', '`':
			if s[len(s)-1] == s[0] {
				return s[1 : len(s)-1]
			}
		}
	}
	return ""
}

func tsChainRoot(node *sitter.Node) *sitter.Node {
	for node != nil && node.Type() == "member_expression" {
		node = node.ChildByFieldName("object")
	}
	if node != nil && (node.Type() == "identifier" || node.Type() == "this") {
		return node
	}
	return nil
}

func tsMemberVisibility(node *sitter.Node, name string, src []byte) models.Visibility {
	for i := range int(node.ChildCount()) {
		child := node.Child(i)
		if child.Type() == "accessibility_modifier" {
			switch parser.GetNodeText(child, src) {
			case "private":
				return models.VisibilityPrivate
			case "protected":
				return models.VisibilityProtected
			}
			return models.VisibilityPublic
		}
	}
	if strings.HasPrefix(name, "#") {
		return models.VisibilityPrivate
	}
	return models.VisibilityPublic
}

func isFunctionValue(nodeType string) bool {
	switch nodeType {
	case "arrow_function", "function", "function_expression", "generator_function":
		return true
	}
	return false
}

// baseName strips type arguments from a heritage type's text.
func baseName(s string) string {
	if idx := strings.IndexByte(s, '<'); idx > 0 {
		return s[:idx]
	}
	return s
}

func startsUpper(s string) bool {
	r, _ := utf8.DecodeRuneInString(s)
	return unicode.IsUpper(r)
}
